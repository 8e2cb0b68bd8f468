package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrProductNotFound = errors.New("product not found")
	ErrPaymentDeclined = errors.New("payment declined")
)

// ValidationError 表示在创建任何状态之前被拒绝的非法输入
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IllegalTransitionError 携带当前状态与被拒绝的目标状态。
// 它代表调用方的编程错误，而不是可重试的业务失败。
type IllegalTransitionError struct {
	From State
	To   State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order status transition %s -> %s", e.From, e.To)
}

// IsValidation 报告 err 链上是否存在 ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsIllegalTransition 报告 err 链上是否存在 IllegalTransitionError
func IsIllegalTransition(err error) bool {
	var t *IllegalTransitionError
	return errors.As(err, &t)
}
