package saga

import (
	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// FinalizeHandler 推进 PAID -> PENDING_SHIPPING 并持久化
type FinalizeHandler struct {
	NextHandler
	repo domain.OrderRepository
}

func NewFinalizeHandler(repo domain.OrderRepository) *FinalizeHandler {
	return &FinalizeHandler{repo: repo}
}

func (h *FinalizeHandler) Handle(checkoutCtx *CheckoutContext) error {
	ctx, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "saga.Finalize")
	defer span.End()

	logger.Ctx(ctx).Info().Str("order", checkoutCtx.Order.ID).Msg("【Saga】=> 步骤 5: 订单进入待发货...")

	if err := checkoutCtx.transition(span, domain.StatePendingShipping); err != nil {
		return err
	}
	checkoutCtx.persist(ctx, span, h.repo)

	return h.executeNext(checkoutCtx)
}
