// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/pkg/metrics"
	"github.com/bekapono/shopping-cart/internal/service/order/application/saga"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
	"github.com/bekapono/shopping-cart/internal/service/order/domain/port"
)

// CheckoutService 只关注结算流程编排，具体步骤在 saga 责任链中。
type CheckoutService struct {
	orderRepo domain.OrderRepository
	tracer    trace.Tracer
	metrics   *metrics.Metrics

	inventoryService port.InventoryService
	paymentGateway   port.PaymentGateway
	notifier         port.NotificationProducer
}

func NewCheckoutService(orderRepo domain.OrderRepository, inventoryService port.InventoryService, paymentGateway port.PaymentGateway, notifier port.NotificationProducer, tracer trace.Tracer, m *metrics.Metrics) *CheckoutService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("checkout")
	}
	return &CheckoutService{
		orderRepo: orderRepo, tracer: tracer, metrics: m,
		inventoryService: inventoryService, paymentGateway: paymentGateway, notifier: notifier,
	}
}

// Checkout 对购物车快照执行一次完整的结算。
// 所有失败都以 *domain.CheckoutFailure 返回；若订单已创建，失败中携带订单的最终状态。
func (s *CheckoutService) Checkout(ctx context.Context, snapshot domain.CartSnapshot, customer port.CustomerInfo) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.Checkout")
	defer span.End()
	start := time.Now()

	span.SetAttributes(
		attribute.String("customer.id", customer.ID),
		attribute.Int("cart.lines", snapshot.Len()),
	)

	if err := validate(snapshot, customer); err != nil {
		return nil, s.finish(ctx, span, start, nil, &domain.CheckoutFailure{Reason: domain.ReasonValidation, Err: err}, customer)
	}

	checkoutCtx := &saga.CheckoutContext{
		Ctx:              ctx,
		Snapshot:         snapshot,
		Customer:         customer,
		Tracer:           s.tracer,
		InventoryService: s.inventoryService,
		PaymentGateway:   s.paymentGateway,
		Notifier:         s.notifier,
	}

	logger.Ctx(ctx).Info().Str("customer", customer.ID).Str("total", snapshot.Total().String()).Msg("Starting checkout")

	if err := s.buildChain().Handle(checkoutCtx); err != nil {
		// 支付成功后补偿已被清空，这里不会释放已付款订单的预占
		checkoutCtx.TriggerCompensation(ctx)
		return checkoutCtx.Order, s.finish(ctx, span, start, checkoutCtx.Order, err, customer)
	}

	order := checkoutCtx.Order
	s.metrics.ObserveCheckout("success", time.Since(start))
	logger.Ctx(ctx).Info().Str("order", order.ID).Str("status", string(order.Status())).Msg("✅ Checkout completed")
	span.AddEvent("Checkout completed")
	return order, nil
}

// finish 统一处理失败：归类原因、记录指标、发送失败通知
func (s *CheckoutService) finish(ctx context.Context, span trace.Span, start time.Time, order *domain.Order, err error, customer port.CustomerInfo) error {
	failure, ok := domain.AsCheckoutFailure(err)
	if !ok {
		failure = &domain.CheckoutFailure{Reason: domain.ReasonInternal, Order: order, Err: err}
	}
	if failure.Order == nil {
		failure.Order = order
	}

	span.RecordError(failure)
	span.SetStatus(codes.Error, string(failure.Reason))
	s.metrics.ObserveCheckout(string(failure.Reason), time.Since(start))

	event := domain.CheckoutFailed{
		TraceID:    span.SpanContext().TraceID().String(),
		CustomerID: customer.ID,
		Reason:     string(failure.Reason),
		Message:    failure.Error(),
		FailedAt:   time.Now(),
	}
	if failure.Order != nil {
		event.OrderID = failure.Order.ID
		event.Status = failure.Order.Status()
	}

	l := logger.Ctx(ctx)
	if failure.Reason == domain.ReasonInternal || failure.Reason == domain.ReasonReservationExpiredAfterPayment {
		l.Error().Err(failure.Err).Str("reason", string(failure.Reason)).Str("order", event.OrderID).Msg("🛑 Checkout failed")
	} else {
		l.Warn().Err(failure.Err).Str("reason", string(failure.Reason)).Str("order", event.OrderID).Msg("Checkout rejected")
	}

	if s.notifier != nil {
		if nErr := s.notifier.SendCheckoutFailed(ctx, event); nErr != nil {
			l.Warn().Err(nErr).Msg("Failed to publish checkout failure notification")
		}
	}
	return failure
}

// GetOrder 根据 ID 读取订单
func (s *CheckoutService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load order")
		}
		return nil, err
	}
	return order, nil
}

// PlaceOrder 是接口层的入口：通过商品目录解析请求中的商品，然后执行结算
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *CheckoutRequest, catalog port.ProductCatalog) (*domain.Order, error) {
	snapshot, err := req.ToSnapshot(ctx, catalog)
	if err != nil {
		// 商品是否存在由库存一侧判定，与 reserve 的结果保持一致
		var reason domain.FailureReason
		switch {
		case domain.IsValidation(err):
			reason = domain.ReasonValidation
		case errors.Is(err, domain.ErrProductNotFound):
			reason = domain.ReasonInventoryUnavailable
		default:
			reason = domain.ReasonInternal
		}
		return nil, &domain.CheckoutFailure{Reason: reason, Err: err}
	}
	return s.Checkout(ctx, snapshot, req.Customer)
}

func validate(snapshot domain.CartSnapshot, customer port.CustomerInfo) error {
	if snapshot.IsEmpty() {
		return &domain.ValidationError{Field: "cart", Reason: domain.ErrEmptyCart.Error()}
	}
	for _, item := range snapshot.Items() {
		if err := item.Product.Validate(); err != nil {
			return err
		}
	}
	return customer.Validate()
}

func (s *CheckoutService) buildChain() saga.Handler {
	checkoutChain := new(saga.ReserveHandler)
	checkoutChain.
		SetNext(saga.NewCreateOrderHandler(s.orderRepo)).
		SetNext(saga.NewPaymentHandler(s.orderRepo)).
		SetNext(new(saga.CommitHandler)).
		SetNext(saga.NewFinalizeHandler(s.orderRepo)).
		SetNext(new(saga.NotificationHandler))

	return checkoutChain
}
