// internal/service/order/domain/state.go
package domain

import "fmt"

// State 定义了订单的生命周期状态
type State string

const (
	StateDraft             State = "DRAFT"              // 结算开始时创建，尚未发起支付
	StateProcessingPayment State = "PROCESSING_PAYMENT" // 正在向支付网关请求授权
	StateFailedPayment     State = "FAILED_PAYMENT"     // 支付被拒绝，可重新发起
	StatePaid              State = "PAID"               // 已支付
	StatePendingShipping   State = "PENDING_SHIPPING"   // 库存已扣减，等待发货
	StateShipped           State = "SHIPPED"            // 已发货
	StateDelivered         State = "DELIVERED"          // 已签收
	StateCancelled         State = "CANCELLED"          // 已取消 (终态)
	StateRefunded          State = "REFUNDED"           // 已退款 (终态)
)

// transitions 是唯一的合法状态流转表，未列出的组合一律非法。
var transitions = map[State]map[State]bool{
	StateDraft:             {StateProcessingPayment: true},
	StateProcessingPayment: {StateFailedPayment: true, StatePaid: true, StateCancelled: true},
	StateFailedPayment:     {StateProcessingPayment: true, StateCancelled: true},
	StatePaid:              {StatePendingShipping: true, StateRefunded: true},
	StatePendingShipping:   {StateShipped: true, StateRefunded: true},
	StateShipped:           {StateDelivered: true, StateRefunded: true},
	StateDelivered:         {StateRefunded: true},
	StateCancelled:         {},
	StateRefunded:          {},
}

// CanTransition 判断 from -> to 是否为合法流转。纯函数，不修改任何状态。
func CanTransition(from, to State) bool {
	return transitions[from][to]
}

// IsTerminal 终态没有任何出边
func (s State) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// Valid 报告 s 是否为已知状态
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s State) String() string {
	return string(s)
}

// ParseState 将持久化或外部输入的字符串还原为 State
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order state %q", raw)
	}
	return s, nil
}

// AllStates 按生命周期顺序返回全部状态
func AllStates() []State {
	return []State{
		StateDraft, StateProcessingPayment, StateFailedPayment, StatePaid,
		StatePendingShipping, StateShipped, StateDelivered, StateCancelled, StateRefunded,
	}
}
