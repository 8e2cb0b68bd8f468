package port

import (
	"context"

	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// NotificationProducer 是结算结果通知的出站端口。
type NotificationProducer interface {
	// SendCheckoutCompleted 发送结算成功通知。
	SendCheckoutCompleted(ctx context.Context, event domain.CheckoutCompleted) error

	// SendCheckoutFailed 发送结算失败通知。
	SendCheckoutFailed(ctx context.Context, event domain.CheckoutFailed) error
}
