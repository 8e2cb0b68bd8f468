package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	orderdomain "github.com/bekapono/shopping-cart/internal/service/order/domain"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Message 是发给客户的一条通知
type Message struct {
	CustomerID string
	Subject    string
	Body       string
}

// Sender 负责把通知送达客户
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender 只把通知写入日志，没有接入真实的邮件或短信通道
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	logger.Ctx(ctx).Info().Str("customer", msg.CustomerID).Str("subject", msg.Subject).Msg("📧 " + msg.Body)
	return nil
}

// NotificationService 把结算事件翻译为客户通知
type NotificationService struct {
	sender Sender
}

func NewNotificationService(sender Sender) *NotificationService {
	return &NotificationService{sender: sender}
}

// HandleEnvelope 按事件类型分发；无法解析的事件返回错误，由调用方转入死信
func (s *NotificationService) HandleEnvelope(ctx context.Context, envelope *orderdomain.EventEnvelope) error {
	switch envelope.Type {
	case orderdomain.EventCheckoutCompleted:
		var event orderdomain.CheckoutCompleted
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		return s.sender.Send(ctx, Message{
			CustomerID: event.CustomerID,
			Subject:    "Your order " + event.OrderID + " is confirmed",
			Body:       fmt.Sprintf("Order %s was paid (%s) and is waiting for shipment.", event.OrderID, event.TotalAmount),
		})
	case orderdomain.EventCheckoutFailed:
		var event orderdomain.CheckoutFailed
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		return s.sender.Send(ctx, Message{
			CustomerID: event.CustomerID,
			Subject:    "We could not complete your checkout",
			Body:       failureText(event),
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, envelope.Type)
	}
}

func failureText(event orderdomain.CheckoutFailed) string {
	switch orderdomain.FailureReason(event.Reason) {
	case orderdomain.ReasonInventoryUnavailable:
		return "Some items in your cart are no longer available."
	case orderdomain.ReasonPaymentDeclined:
		return fmt.Sprintf("Payment for order %s was declined. You can retry with another payment method.", event.OrderID)
	case orderdomain.ReasonReservationExpiredAfterPayment:
		return fmt.Sprintf("Order %s was paid but could not be fulfilled. Our support team will contact you.", event.OrderID)
	default:
		return "Your checkout could not be completed. Please try again."
	}
}
