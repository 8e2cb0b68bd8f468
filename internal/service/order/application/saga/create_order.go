package saga

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// CreateOrderHandler 创建 DRAFT 订单并持久化。
type CreateOrderHandler struct {
	NextHandler
	repo domain.OrderRepository
}

func NewCreateOrderHandler(repo domain.OrderRepository) *CreateOrderHandler {
	return &CreateOrderHandler{repo: repo}
}

func (h *CreateOrderHandler) Handle(checkoutCtx *CheckoutContext) error {
	ctx, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "saga.CreateOrder")
	defer span.End()

	logger.Ctx(ctx).Info().Msg("【Saga】=> 步骤 2: 创建订单实体...")

	order, err := domain.NewOrder(checkoutCtx.Customer.ID, checkoutCtx.Snapshot)
	if err != nil {
		return checkoutCtx.fail(span, domain.ReasonValidation, err)
	}
	checkoutCtx.Order = order
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int64("order.total_cents", int64(order.TotalCost())),
	)

	// 订单还不存在于存储中，保存失败意味着结算无法继续
	if err := h.repo.Save(ctx, order); err != nil {
		checkoutCtx.Order = nil
		return checkoutCtx.fail(span, domain.ReasonInternal, fmt.Errorf("failed to save draft order: %w", err))
	}
	span.AddEvent("Draft order saved to DB.")

	return h.executeNext(checkoutCtx)
}
