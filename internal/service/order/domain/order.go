// internal/service/order/domain/order.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order 是订单聚合的根实体。
// 状态字段不导出，只能通过 ChangeStatus 按流转表修改。
type Order struct {
	ID         string
	CustomerID string
	CreatedAt  time.Time

	snapshot  CartSnapshot // 独占持有，创建后不可变
	status    State
	updatedAt time.Time
}

// NewOrder 工厂函数：分配新的 ID，状态为 DRAFT
func NewOrder(customerID string, snapshot CartSnapshot) (*Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, &ValidationError{Field: "customer.id", Reason: "must not be empty"}
	}
	if snapshot.IsEmpty() {
		return nil, &ValidationError{Field: "cart", Reason: ErrEmptyCart.Error()}
	}

	now := time.Now()
	return &Order{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		CreatedAt:  now,
		snapshot:   snapshot,
		status:     StateDraft, // 初始状态
		updatedAt:  now,
	}, nil
}

// RestoreOrder 由仓储从持久化数据重建订单，不做流转校验
func RestoreOrder(id, customerID string, snapshot CartSnapshot, status State, createdAt, updatedAt time.Time) *Order {
	return &Order{
		ID:         id,
		CustomerID: customerID,
		CreatedAt:  createdAt,
		snapshot:   snapshot,
		status:     status,
		updatedAt:  updatedAt,
	}
}

// ChangeStatus 按流转表推进状态；非法流转返回 IllegalTransitionError 且不修改订单
func (o *Order) ChangeStatus(target State) error {
	if !CanTransition(o.status, target) {
		return &IllegalTransitionError{From: o.status, To: target}
	}
	o.status = target
	o.updatedAt = time.Now()
	return nil
}

func (o *Order) Status() State {
	return o.status
}

func (o *Order) UpdatedAt() time.Time {
	return o.updatedAt
}

// PurchasedItems 返回购买明细的拷贝，调用方无法借此修改订单
func (o *Order) PurchasedItems() []LineItem {
	return o.snapshot.Items()
}

// Snapshot 返回不可变快照
func (o *Order) Snapshot() CartSnapshot {
	return o.snapshot
}

// TotalCost 总价 = Σ 单价 × 数量，来源于快照
func (o *Order) TotalCost() Money {
	return o.snapshot.Total()
}
