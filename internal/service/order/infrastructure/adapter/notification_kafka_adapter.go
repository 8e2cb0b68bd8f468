package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bekapono/shopping-cart/internal/pkg/mq"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// NotificationKafkaAdapter 实现了 port.NotificationProducer 接口。
// 消息 key 使用客户 ID，同一客户的事件落在同一分区，保持顺序。
type NotificationKafkaAdapter struct {
	writer mq.MessageWriter
}

// NewNotificationKafkaAdapter 创建一个新的通知生产者适配器。
func NewNotificationKafkaAdapter(writer mq.MessageWriter) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

// SendCheckoutCompleted 发送结算成功通知。
func (a *NotificationKafkaAdapter) SendCheckoutCompleted(ctx context.Context, event domain.CheckoutCompleted) error {
	return a.publish(ctx, domain.EventCheckoutCompleted, event.CustomerID, event)
}

// SendCheckoutFailed 发送结算失败通知。
func (a *NotificationKafkaAdapter) SendCheckoutFailed(ctx context.Context, event domain.CheckoutFailed) error {
	return a.publish(ctx, domain.EventCheckoutFailed, event.CustomerID, event)
}

func (a *NotificationKafkaAdapter) publish(ctx context.Context, eventType, key string, event any) error {
	envelope, err := domain.NewEnvelope(eventType, event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	eventBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", eventType, err)
	}

	// 调用通用的 mq.ProduceMessage，它会自动处理追踪上下文注入
	return mq.ProduceMessage(ctx, a.writer, []byte(key), eventBytes)
}
