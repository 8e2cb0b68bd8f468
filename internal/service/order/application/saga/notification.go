package saga

import (
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// NotificationHandler 是 Saga 流程的最后一步，负责发送结算成功通知。
type NotificationHandler struct {
	NextHandler
}

func (h *NotificationHandler) Handle(checkoutCtx *CheckoutContext) error {
	ctx, span := checkoutCtx.Tracer.Start(checkoutCtx.Ctx, "saga.Notification")
	defer span.End()

	span.SetAttributes(attribute.String("messaging.system", "kafka"))
	logger.Ctx(ctx).Info().Msg("【Saga】=> 步骤 Final: 发送结算成功通知...")

	order := checkoutCtx.Order
	if checkoutCtx.Notifier == nil {
		return h.executeNext(checkoutCtx)
	}
	err := checkoutCtx.Notifier.SendCheckoutCompleted(ctx, domain.CheckoutCompleted{
		TraceID:     span.SpanContext().TraceID().String(),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Status:      order.Status(),
		TotalAmount: order.TotalCost(),
		CompletedAt: time.Now(),
	})

	// 通知失败不影响结算结果，只记录警告
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order", order.ID).Msg("Failed to publish checkout notification")
		span.RecordError(err)
	}

	span.AddEvent("Saga process finalized and notification sent (or attempted).")
	return h.executeNext(checkoutCtx)
}
