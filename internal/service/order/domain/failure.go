package domain

import (
	"errors"
	"fmt"
)

// FailureReason 是结算失败的业务原因
type FailureReason string

const (
	ReasonValidation                     FailureReason = "VALIDATION"
	ReasonInventoryUnavailable           FailureReason = "INVENTORY_UNAVAILABLE"
	ReasonPaymentDeclined                FailureReason = "PAYMENT_DECLINED"
	ReasonReservationExpiredAfterPayment FailureReason = "RESERVATION_EXPIRED_AFTER_PAYMENT"
	// ReasonInternal 表示程序逻辑错误 (如非法状态流转) 或基础设施故障，不可由用户重试
	ReasonInternal FailureReason = "INTERNAL"
)

// CheckoutFailure 是结算的类型化失败结果。
// 尚未创建订单时 Order 为 nil；否则 Order 反映失败时的真实状态。
type CheckoutFailure struct {
	Reason FailureReason
	Order  *Order
	Err    error
}

func (f *CheckoutFailure) Error() string {
	if f.Order != nil {
		return fmt.Sprintf("checkout failed (%s) for order %s: %v", f.Reason, f.Order.ID, f.Err)
	}
	return fmt.Sprintf("checkout failed (%s): %v", f.Reason, f.Err)
}

func (f *CheckoutFailure) Unwrap() error {
	return f.Err
}

// AsCheckoutFailure 从错误链中取出 CheckoutFailure
func AsCheckoutFailure(err error) (*CheckoutFailure, bool) {
	var f *CheckoutFailure
	ok := errors.As(err, &f)
	return f, ok
}
