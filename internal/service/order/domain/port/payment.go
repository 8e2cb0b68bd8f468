package port

import (
	"context"

	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// PaymentResult 是支付授权的两种结果
type PaymentResult int

const (
	PaymentApproved PaymentResult = iota + 1
	PaymentDeclined
)

func (r PaymentResult) String() string {
	switch r {
	case PaymentApproved:
		return "APPROVED"
	case PaymentDeclined:
		return "DECLINED"
	default:
		return "UNKNOWN"
	}
}

// CustomerInfo 是结算时提供的客户身份
type CustomerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate 客户 ID 是唯一必填字段
func (c CustomerInfo) Validate() error {
	if c.ID == "" {
		return &domain.ValidationError{Field: "customer.id", Reason: "must not be empty"}
	}
	return nil
}

// PaymentGateway 是支付网关的出站端口。
// 网关不可达等传输错误通过 error 返回，而不是 PaymentDeclined。
type PaymentGateway interface {
	Authorize(ctx context.Context, amount domain.Money, customer CustomerInfo) (PaymentResult, error)
}
