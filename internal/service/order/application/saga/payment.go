package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
	"github.com/bekapono/shopping-cart/internal/service/order/domain/port"
)

// PaymentHandler 推进 DRAFT -> PROCESSING_PAYMENT，并按总价向网关请求授权。
// 拒绝或网关错误都进入 FAILED_PAYMENT，释放预占由补偿完成。
type PaymentHandler struct {
	NextHandler
	repo domain.OrderRepository
}

func NewPaymentHandler(repo domain.OrderRepository) *PaymentHandler {
	return &PaymentHandler{repo: repo}
}

func (h *PaymentHandler) Handle(checkoutCtx *CheckoutContext) error {
	ctx, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "saga.AuthorizePayment")
	defer span.End()

	order := checkoutCtx.Order
	logger.Ctx(ctx).Info().Str("order", order.ID).Msg("【Saga】=> 步骤 3: 请求支付授权...")

	if err := checkoutCtx.transition(span, domain.StateProcessingPayment); err != nil {
		return err
	}
	checkoutCtx.persist(ctx, span, h.repo)

	amount := order.TotalCost()
	span.SetAttributes(attribute.Int64("payment.amount_cents", int64(amount)))

	result, err := checkoutCtx.PaymentGateway.Authorize(ctx, amount, checkoutCtx.Customer)
	if err != nil || result != port.PaymentApproved {
		if err == nil {
			err = domain.ErrPaymentDeclined
		} else {
			err = fmt.Errorf("%w: gateway error: %v", domain.ErrPaymentDeclined, err)
		}
		if tErr := checkoutCtx.transition(span, domain.StateFailedPayment); tErr != nil {
			return tErr
		}
		checkoutCtx.persist(ctx, span, h.repo)
		logger.Ctx(ctx).Warn().Err(err).Str("order", order.ID).Msg("payment was not authorized")
		return checkoutCtx.fail(span, domain.ReasonPaymentDeclined, err)
	}

	if err := checkoutCtx.transition(span, domain.StatePaid); err != nil {
		return err
	}
	checkoutCtx.persist(ctx, span, h.repo)
	span.AddEvent("Payment authorized")

	// 已经收款，此后预占只能提交，不能再被补偿释放
	checkoutCtx.DiscardCompensations()
	return h.executeNext(checkoutCtx)
}
