package adapter

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/bekapono/shopping-cart/internal/pkg/httpclient"
	"github.com/bekapono/shopping-cart/internal/pkg/metrics"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
	"github.com/bekapono/shopping-cart/internal/service/order/domain/port"
)

const authorizePath = "/authorize"

// AuthorizeRequest 和 AuthorizeResponse 是 payment-service 的请求与响应体
type AuthorizeRequest struct {
	Amount        int64  `json:"amount"`
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type AuthorizeResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// PaymentHTTPAdapter 实现了 port.PaymentGateway 接口。
type PaymentHTTPAdapter struct {
	client      *httpclient.Client
	serviceName string
	timeout     time.Duration
	metrics     *metrics.Metrics
}

// NewPaymentHTTPAdapter 创建一个新的支付网关适配器，timeout <= 0 时只受调用方 context 约束
func NewPaymentHTTPAdapter(client *httpclient.Client, serviceName string, timeout time.Duration, m *metrics.Metrics) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client, serviceName: serviceName, timeout: timeout, metrics: m}
}

// Authorize 网关不可达、超时或返回非 2xx 时返回 error，由调用方决定如何处理
func (a *PaymentHTTPAdapter) Authorize(ctx context.Context, amount domain.Money, customer port.CustomerInfo) (port.PaymentResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := AuthorizeRequest{
		Amount:        int64(amount),
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
	}
	var resp AuthorizeResponse
	if err := a.client.PostJSON(ctx, a.serviceName, authorizePath, req, &resp); err != nil {
		a.metrics.PaymentDecision("error")
		return 0, pkgerrors.Wrap(err, "authorize payment")
	}

	if !resp.Approved {
		a.metrics.PaymentDecision("declined")
		return port.PaymentDeclined, nil
	}
	a.metrics.PaymentDecision("approved")
	return port.PaymentApproved, nil
}
