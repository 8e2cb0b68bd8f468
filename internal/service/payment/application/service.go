package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/pkg/metrics"
	"github.com/bekapono/shopping-cart/internal/service/payment/domain"
)

// AuthorizeRequest 是授权请求体，金额以分为单位
type AuthorizeRequest struct {
	Amount        int64  `json:"amount"`
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// AuthorizeResponse 是授权响应体
type AuthorizeResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// PaymentService 是一个模拟的支付网关，按拒绝策略决定是否授权
type PaymentService struct {
	policy  domain.DeclinePolicy
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

func NewPaymentService(policy domain.DeclinePolicy, tracer trace.Tracer, m *metrics.Metrics) *PaymentService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("payment")
	}
	return &PaymentService{policy: policy, tracer: tracer, metrics: m}
}

// Authorize 请求不合法时返回 ErrInvalidRequest；策略评估失败时返回 error
func (s *PaymentService) Authorize(ctx context.Context, req *AuthorizeRequest) (*AuthorizeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.Authorize")
	defer span.End()

	span.SetAttributes(
		attribute.String("customer.id", req.CustomerID),
		attribute.Int64("payment.amount_cents", req.Amount),
	)

	fact := domain.Fact{Amount: req.Amount, CustomerID: req.CustomerID}
	if err := fact.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	approved, reason, err := s.policy.Decide(fact)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "policy evaluation failed")
		logger.Ctx(ctx).Error().Err(err).Str("rule", s.policy.Rule).Msg("failed to evaluate decline policy")
		s.metrics.PaymentDecision("error")
		return nil, err
	}

	span.SetAttributes(attribute.Bool("payment.approved", approved))
	if !approved {
		s.metrics.PaymentDecision("declined")
		logger.Ctx(ctx).Info().Str("customer", req.CustomerID).Int64("amount", req.Amount).Str("reason", reason).Msg("Payment declined")
		return &AuthorizeResponse{Approved: false, Reason: reason}, nil
	}

	s.metrics.PaymentDecision("approved")
	logger.Ctx(ctx).Info().Str("customer", req.CustomerID).Int64("amount", req.Amount).Msg("Payment approved")
	span.AddEvent("Payment approved")
	return &AuthorizeResponse{Approved: true}, nil
}
