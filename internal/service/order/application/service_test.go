package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekapono/shopping-cart/internal/pkg/metrics"
	inventoryapp "github.com/bekapono/shopping-cart/internal/service/inventory/application"
	inventorydomain "github.com/bekapono/shopping-cart/internal/service/inventory/domain"
	inventoryinfra "github.com/bekapono/shopping-cart/internal/service/inventory/infrastructure"
	"github.com/bekapono/shopping-cart/internal/service/order/application"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
	"github.com/bekapono/shopping-cart/internal/service/order/domain/port"
	"github.com/bekapono/shopping-cart/internal/service/order/infrastructure"
	"github.com/bekapono/shopping-cart/internal/service/order/infrastructure/adapter"
)

const reservationTTL = 15 * time.Minute

var (
	widget   = domain.Product{ID: "widget", Name: "Widget", Price: 300}
	gadget   = domain.Product{ID: "gadget", Name: "Gadget", Price: 1000}
	customer = port.CustomerInfo{ID: "c-1", Name: "Ada", Email: "ada@example.com"}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeGateway 返回预设结果，并可以在授权期间执行钩子
type fakeGateway struct {
	result port.PaymentResult
	err    error
	during func()

	calls  int
	amount domain.Money
}

func (g *fakeGateway) Authorize(_ context.Context, amount domain.Money, _ port.CustomerInfo) (port.PaymentResult, error) {
	g.calls++
	g.amount = amount
	if g.during != nil {
		g.during()
	}
	return g.result, g.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []domain.CheckoutCompleted
	failed    []domain.CheckoutFailed
	err       error
}

func (n *recordingNotifier) SendCheckoutCompleted(_ context.Context, e domain.CheckoutCompleted) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, e)
	return n.err
}

func (n *recordingNotifier) SendCheckoutFailed(_ context.Context, e domain.CheckoutFailed) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, e)
	return n.err
}

type fixture struct {
	svc       *application.CheckoutService
	repo      *infrastructure.MemoryRepository
	store     *inventoryinfra.MemoryStore
	inventory *inventoryapp.Service
	gateway   *fakeGateway
	notifier  *recordingNotifier
	clock     *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := inventoryinfra.NewMemoryStore()
	require.NoError(t, store.Put(ctx, widget, 10))
	require.NoError(t, store.Put(ctx, gadget, 3))

	clock := &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	inventory := inventoryapp.NewService(store, inventoryinfra.NewMemoryReservationStore(), inventoryinfra.NewKeyedLocker(),
		reservationTTL, inventoryapp.WithClock(clock.Now), inventoryapp.WithMetrics(m))

	f := &fixture{
		repo:      infrastructure.NewMemoryRepository(),
		store:     store,
		inventory: inventory,
		gateway:   &fakeGateway{result: port.PaymentApproved},
		notifier:  &recordingNotifier{},
		clock:     clock,
	}
	f.svc = application.NewCheckoutService(f.repo, adapter.NewLocalInventoryAdapter(inventory), f.gateway, f.notifier, nil, m)
	return f
}

func (f *fixture) available(t *testing.T, p domain.Product) int {
	t.Helper()
	n, err := f.inventory.Available(context.Background(), p.ID)
	require.NoError(t, err)
	return n
}

func snapshotOf(t *testing.T, lines ...domain.LineItem) domain.CartSnapshot {
	t.Helper()
	s, err := domain.NewCartSnapshot(lines...)
	require.NoError(t, err)
	return s
}

func requireFailure(t *testing.T, err error, reason domain.FailureReason) *domain.CheckoutFailure {
	t.Helper()
	require.Error(t, err)
	failure, ok := domain.AsCheckoutFailure(err)
	require.True(t, ok, "expected *CheckoutFailure, got %T: %v", err, err)
	assert.Equal(t, reason, failure.Reason)
	return failure
}

func TestCheckout_HappyPath(t *testing.T) {
	f := newFixture(t)
	snapshot := snapshotOf(t, domain.LineItem{Product: widget, Quantity: 2}, domain.LineItem{Product: gadget, Quantity: 1})

	order, err := f.svc.Checkout(context.Background(), snapshot, customer)
	require.NoError(t, err)

	assert.Equal(t, domain.StatePendingShipping, order.Status())
	assert.Equal(t, domain.Money(1600), order.TotalCost())
	assert.Equal(t, "$16.00", order.TotalCost().String())
	assert.Equal(t, domain.Money(1600), f.gateway.amount)

	stored, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePendingShipping, stored.Status())

	assert.Equal(t, 8, f.available(t, widget))
	assert.Equal(t, 2, f.available(t, gadget))

	require.Len(t, f.notifier.completed, 1)
	assert.Equal(t, order.ID, f.notifier.completed[0].OrderID)
	assert.Empty(t, f.notifier.failed)
}

func TestCheckout_PaymentDeclined(t *testing.T) {
	f := newFixture(t)
	f.gateway.result = port.PaymentDeclined
	snapshot := snapshotOf(t, domain.LineItem{Product: widget, Quantity: 2}, domain.LineItem{Product: gadget, Quantity: 1})

	order, err := f.svc.Checkout(context.Background(), snapshot, customer)
	failure := requireFailure(t, err, domain.ReasonPaymentDeclined)
	assert.Equal(t, domain.Money(1600), f.gateway.amount)
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)

	require.NotNil(t, failure.Order)
	assert.Equal(t, domain.StateFailedPayment, failure.Order.Status())
	require.NotNil(t, order)
	assert.Equal(t, failure.Order.ID, order.ID)

	stored, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailedPayment, stored.Status())

	// 预占被补偿释放，两种商品都恢复可用
	assert.Equal(t, 10, f.available(t, widget))
	assert.Equal(t, 3, f.available(t, gadget))

	require.Len(t, f.notifier.failed, 1)
	assert.Equal(t, string(domain.ReasonPaymentDeclined), f.notifier.failed[0].Reason)
	assert.Equal(t, domain.StateFailedPayment, f.notifier.failed[0].Status)
	assert.Empty(t, f.notifier.completed)
}

func TestCheckout_GatewayErrorTreatedAsDecline(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("connection refused")
	snapshot := snapshotOf(t, domain.LineItem{Product: gadget, Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), snapshot, customer)
	failure := requireFailure(t, err, domain.ReasonPaymentDeclined)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, domain.StateFailedPayment, failure.Order.Status())
	assert.Equal(t, 3, f.available(t, gadget))
}

func TestCheckout_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	snapshot := snapshotOf(t, domain.LineItem{Product: widget, Quantity: 1}, domain.LineItem{Product: gadget, Quantity: 5})

	order, err := f.svc.Checkout(context.Background(), snapshot, customer)
	failure := requireFailure(t, err, domain.ReasonInventoryUnavailable)
	assert.Nil(t, order)
	assert.Nil(t, failure.Order)
	assert.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)

	var unavailable *inventorydomain.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Len(t, unavailable.Lines, 1)
	assert.Equal(t, domain.ProductID("gadget"), unavailable.Lines[0].ProductID)
	assert.Equal(t, 3, unavailable.Lines[0].Available)

	assert.Zero(t, f.repo.Len())
	assert.Zero(t, f.gateway.calls)
	assert.Equal(t, 10, f.available(t, widget))
}

func TestCheckout_ReservationExpiredAfterPayment(t *testing.T) {
	f := newFixture(t)
	f.gateway.during = func() { f.clock.Advance(reservationTTL + time.Second) }
	snapshot := snapshotOf(t, domain.LineItem{Product: gadget, Quantity: 2})

	order, err := f.svc.Checkout(context.Background(), snapshot, customer)
	failure := requireFailure(t, err, domain.ReasonReservationExpiredAfterPayment)
	assert.ErrorIs(t, err, inventorydomain.ErrReservationExpired)

	// 已经收款的订单保持 PAID，等待人工对账
	require.NotNil(t, order)
	assert.Equal(t, domain.StatePaid, order.Status())
	assert.Equal(t, domain.StatePaid, failure.Order.Status())
	stored, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, stored.Status())

	stock, err := f.store.AvailableStock(context.Background(), gadget.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stock, "expired reservation must not deduct stock")
}

func TestCheckout_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), domain.CartSnapshot{}, customer)
	requireFailure(t, err, domain.ReasonValidation)

	snapshot := snapshotOf(t, domain.LineItem{Product: widget, Quantity: 1})
	_, err = f.svc.Checkout(context.Background(), snapshot, port.CustomerInfo{Name: "anonymous"})
	failure := requireFailure(t, err, domain.ReasonValidation)
	assert.True(t, domain.IsValidation(failure))

	assert.Zero(t, f.repo.Len())
	assert.Zero(t, f.gateway.calls)
	assert.Equal(t, 10, f.available(t, widget))
}

func TestCheckout_NotificationFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	snapshot := snapshotOf(t, domain.LineItem{Product: widget, Quantity: 1})

	order, err := f.svc.Checkout(context.Background(), snapshot, customer)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePendingShipping, order.Status())
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)

	req := &application.CheckoutRequest{
		Customer: customer,
		Items: []application.CheckoutItem{
			{ProductID: "widget", Quantity: 1},
			{ProductID: "widget", Quantity: 1},
			{ProductID: "gadget", Quantity: 1},
		},
	}
	order, err := f.svc.PlaceOrder(context.Background(), req, f.store)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1600), order.TotalCost())

	view := application.ToOrderView(order)
	assert.Equal(t, "$16.00", view.TotalText)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 2, view.Items[1].Quantity) // 按商品 ID 排序，widget 在 gadget 之后

	_, err = f.svc.PlaceOrder(context.Background(), &application.CheckoutRequest{
		Customer: customer,
		Items:    []application.CheckoutItem{{ProductID: "nope", Quantity: 1}},
	}, f.store)
	requireFailure(t, err, domain.ReasonInventoryUnavailable)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = f.svc.PlaceOrder(context.Background(), &application.CheckoutRequest{
		Customer: customer,
		Items:    []application.CheckoutItem{{ProductID: "widget", Quantity: 0}},
	}, f.store)
	requireFailure(t, err, domain.ReasonValidation)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

// malformedCatalog 返回名称为空、价格为负的商品
type malformedCatalog struct{}

func (malformedCatalog) Product(_ context.Context, id domain.ProductID) (domain.Product, error) {
	return domain.Product{ID: id, Name: "", Price: -300}, nil
}

func TestPlaceOrder_MalformedProductRejectedBeforeAnyState(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.PlaceOrder(context.Background(), &application.CheckoutRequest{
		Customer: customer,
		Items:    []application.CheckoutItem{{ProductID: "widget", Quantity: 2}},
	}, malformedCatalog{})
	assert.Nil(t, order)
	failure := requireFailure(t, err, domain.ReasonValidation)
	assert.Nil(t, failure.Order)
	assert.True(t, domain.IsValidation(err))

	assert.Equal(t, 0, f.gateway.calls)
	assert.Equal(t, 0, f.repo.Len())
	assert.Equal(t, 10, f.available(t, widget))
}
