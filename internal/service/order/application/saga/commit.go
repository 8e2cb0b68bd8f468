package saga

import (
	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// CommitHandler 在支付成功后提交预占。
// 提交失败是不一致状态：订单保持 PAID，需要人工对账，不自动退款。
type CommitHandler struct {
	NextHandler
}

func (h *CommitHandler) Handle(checkoutCtx *CheckoutContext) error {
	ctx, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "saga.CommitReservation")
	defer span.End()

	logger.Ctx(ctx).Info().Str("order", checkoutCtx.Order.ID).Msg("【Saga】=> 步骤 4: 提交库存预占...")

	if err := checkoutCtx.InventoryService.Commit(ctx, checkoutCtx.ReservationID); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order", checkoutCtx.Order.ID).
			Str("reservation", checkoutCtx.ReservationID).
			Str("customer", checkoutCtx.Customer.ID).
			Msg("CRITICAL: payment captured but reservation could not be committed, manual reconciliation required")
		return checkoutCtx.fail(span, domain.ReasonReservationExpiredAfterPayment, err)
	}

	span.AddEvent("Reservation committed")
	return h.executeNext(checkoutCtx)
}
