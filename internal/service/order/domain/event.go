// internal/service/order/domain/event.go
package domain

import (
	"encoding/json"
	"time"
)

// CheckoutCompleted 是结算成功、订单进入待发货时发布的事件
type CheckoutCompleted struct {
	TraceID     string    `json:"traceId,omitempty"`
	OrderID     string    `json:"orderId"`
	CustomerID  string    `json:"customerId"`
	Status      State     `json:"status"`
	TotalAmount Money     `json:"totalAmount"`
	CompletedAt time.Time `json:"completedAt"`
}

// CheckoutFailed 是结算因任何原因失败时发布的事件。
// 没有创建订单时 OrderID 为空。
type CheckoutFailed struct {
	TraceID    string    `json:"traceId,omitempty"`
	OrderID    string    `json:"orderId,omitempty"`
	CustomerID string    `json:"customerId"`
	Status     State     `json:"status,omitempty"`
	Reason     string    `json:"reason"`
	Message    string    `json:"message"`
	FailedAt   time.Time `json:"failedAt"`
}

// 事件类型，写在 Kafka 消息的信封里
const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutFailed    = "checkout.failed"
)

// EventEnvelope 是发往通知主题的消息体，Payload 按 Type 解码
type EventEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope 序列化事件并包上类型
func NewEnvelope(eventType string, event any) (*EventEnvelope, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &EventEnvelope{Type: eventType, Payload: raw}, nil
}
