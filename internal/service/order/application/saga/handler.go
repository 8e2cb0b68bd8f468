package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
	"github.com/bekapono/shopping-cart/internal/service/order/domain/port"
)

// CheckoutContext 在 Saga 流程中传递一次结算的上下文数据。
// 它只属于一次 Checkout 调用，不在并发结算之间共享。
type CheckoutContext struct {
	Ctx      context.Context
	Snapshot domain.CartSnapshot
	Customer port.CustomerInfo
	Tracer   trace.Tracer

	// 由各步骤填充
	Order         *domain.Order
	ReservationID string

	// 依赖出站端口
	InventoryService port.InventoryService
	PaymentGateway   port.PaymentGateway
	Notifier         port.NotificationProducer

	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 补偿按后进先出的顺序执行
func (c *CheckoutContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation 执行并清空所有已注册的补偿
func (c *CheckoutContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().Int("count", len(c.compensations)).Str("order", c.orderID()).Msg("Executing compensation functions.")
	for _, comp := range c.compensations {
		comp(ctx)
	}
	c.compensations = nil
}

// DiscardCompensations 支付成功后预占属于已付款订单，不能再被补偿释放
func (c *CheckoutContext) DiscardCompensations() {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = nil
}

func (c *CheckoutContext) orderID() string {
	if c.Order == nil {
		return ""
	}
	return c.Order.ID
}

// fail 记录 span 错误并包装为 CheckoutFailure
func (c *CheckoutContext) fail(span trace.Span, reason domain.FailureReason, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(reason))
	return &domain.CheckoutFailure{Reason: reason, Order: c.Order, Err: err}
}

// transition 通过受保护的 ChangeStatus 推进订单；被拒绝说明流程本身有缺陷
func (c *CheckoutContext) transition(span trace.Span, target domain.State) error {
	if err := c.Order.ChangeStatus(target); err != nil {
		logger.Ctx(c.Ctx).Error().Err(err).Str("order", c.Order.ID).Msg("CRITICAL: checkout attempted an illegal status transition")
		return c.fail(span, domain.ReasonInternal, err)
	}
	span.AddEvent("order status -> " + string(target))
	return nil
}

// persist 保存订单当前状态。订单创建之后的保存失败只记录日志，不改变结算结果。
func (c *CheckoutContext) persist(ctx context.Context, span trace.Span, repo domain.OrderRepository) {
	if err := repo.Save(ctx, c.Order); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("order", c.Order.ID).
			Str("status", string(c.Order.Status())).
			Msg("CRITICAL: failed to persist order status")
	}
}

// Handler 和 NextHandler 组成责任链
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(checkoutCtx *CheckoutContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(checkoutCtx *CheckoutContext) error {
	if h.next != nil {
		return h.next.Handle(checkoutCtx)
	}
	return nil
}
