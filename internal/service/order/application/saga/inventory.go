package saga

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// ReserveHandler 负责库存预占步骤，失败时不会创建订单。
type ReserveHandler struct {
	NextHandler
}

func (h *ReserveHandler) Handle(checkoutCtx *CheckoutContext) error {
	ctx, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "saga.InventoryReserve")
	defer span.End()

	logger.Ctx(ctx).Info().Msg("【Saga】=> 步骤 1: 预占库存...")
	span.SetAttributes(attribute.Int("cart.lines", checkoutCtx.Snapshot.Len()))

	reservationID, err := checkoutCtx.InventoryService.Reserve(ctx, checkoutCtx.Snapshot)
	if err != nil {
		return checkoutCtx.fail(span, domain.ReasonInventoryUnavailable, err)
	}
	checkoutCtx.ReservationID = reservationID
	span.SetAttributes(attribute.String("reservation.id", reservationID))

	checkoutCtx.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := checkoutCtx.Tracer.Start(compCtx, "saga.compensation.ReleaseStock")
		defer compSpan.End()
		compSpan.SetAttributes(attribute.String("reservation.id", reservationID))

		// 补偿失败需要人工介入；预占仍会在 TTL 到期后自动失效
		if err := checkoutCtx.InventoryService.Release(compCtx, reservationID); err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).Str("reservation", reservationID).Msg("CRITICAL: failed to release reservation")
		}
	})

	span.AddEvent("All items reserved successfully")
	return h.executeNext(checkoutCtx)
}
