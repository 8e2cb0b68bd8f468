// internal/service/inventory/application/service.go
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/pkg/metrics"
	"github.com/bekapono/shopping-cart/internal/service/inventory/domain"
	"github.com/bekapono/shopping-cart/internal/service/inventory/domain/port"
	orderdomain "github.com/bekapono/shopping-cart/internal/service/order/domain"
)

const lockPrefix = "inventory:"

// Service 负责预占、提交与释放库存。
// 可用库存 = 存储中的库存 - 未过期的 HELD 预占，TTL 只在访问时被动检查。
type Service struct {
	store        port.ProductStore
	reservations port.ReservationStore
	locker       port.Locker
	ttl          time.Duration

	now     func() time.Time
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

type Option func(*Service)

// WithClock 替换时间来源，测试中用来模拟 TTL 过期
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store port.ProductStore, reservations port.ReservationStore, locker port.Locker, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		store:        store,
		reservations: reservations,
		locker:       locker,
		ttl:          ttl,
		now:          time.Now,
		tracer:       noop.NewTracerProvider().Tracer("inventory"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve 为快照中的每一行检查存在性与库存，全部满足才创建 HELD 预占。
// 任一行失败返回 *domain.UnavailableError，且不占用任何库存。
func (s *Service) Reserve(ctx context.Context, snapshot orderdomain.CartSnapshot) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Reserve")
	defer span.End()

	if snapshot.IsEmpty() {
		return nil, s.fail(span, "reserve", domain.ErrEmptyReservation)
	}

	ids := snapshot.ProductIDs()
	unlock, err := s.locker.Lock(ctx, lockKeys(ids)...)
	if err != nil {
		return nil, s.fail(span, "reserve", fmt.Errorf("lock products: %w", err))
	}
	defer unlock()

	now := s.now()
	var failures []domain.LineFailure
	for _, id := range ids {
		requested := snapshot.Quantity(id)
		exists, err := s.store.Exists(ctx, id)
		if err != nil {
			return nil, s.fail(span, "reserve", err)
		}
		if !exists {
			failures = append(failures, domain.LineFailure{ProductID: id, Requested: requested, Err: domain.ErrProductNotFound})
			continue
		}
		available, err := s.available(ctx, id, now)
		if err != nil {
			return nil, s.fail(span, "reserve", err)
		}
		if available < requested {
			failures = append(failures, domain.LineFailure{
				ProductID: id, Requested: requested, Available: available, Err: domain.ErrInsufficientStock,
			})
		}
	}
	if len(failures) > 0 {
		return nil, s.fail(span, "reserve", &domain.UnavailableError{Lines: failures})
	}

	r := domain.NewReservation(uuid.New().String(), snapshot, now, s.ttl)
	if err := s.reservations.Save(ctx, r); err != nil {
		return nil, s.fail(span, "reserve", fmt.Errorf("save reservation: %w", err))
	}

	span.SetAttributes(attribute.String("reservation.id", r.ID), attribute.Int("reservation.lines", len(r.Items)))
	span.AddEvent("All items reserved")
	s.metrics.ReservationOp("reserve", "ok")
	logger.Ctx(ctx).Debug().Str("reservation", r.ID).Time("expires_at", r.ExpiresAt).Msg("reservation held")
	return r.Clone(), nil
}

// Commit 永久扣减预占的库存。过期时标记为 RELEASED 并返回 ErrReservationExpired，不扣减。
func (s *Service) Commit(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Commit", trace.WithAttributes(attribute.String("reservation.id", id)))
	defer span.End()

	r, unlock, err := s.lockReservation(ctx, id)
	if err != nil {
		return s.fail(span, "commit", err)
	}
	defer unlock()

	now := s.now()
	if r.Outcome != domain.OutcomeHeld {
		return s.fail(span, "commit", fmt.Errorf("commit %s (%s): %w", id, r.Outcome, domain.ErrAlreadyResolved))
	}
	if r.IsExpired(now) {
		r.MarkReleased(now)
		if err := s.reservations.Save(ctx, r); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("reservation", id).Msg("failed to persist expired reservation")
		}
		return s.fail(span, "commit", fmt.Errorf("commit %s expired at %s: %w", id, r.ExpiresAt.Format(time.RFC3339), domain.ErrReservationExpired))
	}

	for i, h := range r.Items {
		if err := s.store.Deduct(ctx, h.ProductID, h.Quantity); err != nil {
			s.rollback(ctx, r.Items[:i])
			return s.fail(span, "commit", fmt.Errorf("deduct %s: %w", h.ProductID, err))
		}
	}

	r.MarkCommitted(now)
	if err := s.reservations.Save(ctx, r); err != nil {
		s.rollback(ctx, r.Items)
		return s.fail(span, "commit", fmt.Errorf("save reservation: %w", err))
	}

	span.AddEvent("Reservation committed")
	s.metrics.ReservationOp("commit", "ok")
	return nil
}

// Release 幂等：已释放或已过期时直接返回 nil，已提交时返回 ErrAlreadyResolved
func (s *Service) Release(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Release", trace.WithAttributes(attribute.String("reservation.id", id)))
	defer span.End()

	r, unlock, err := s.lockReservation(ctx, id)
	if err != nil {
		return s.fail(span, "release", err)
	}
	defer unlock()

	switch r.Outcome {
	case domain.OutcomeCommitted:
		return s.fail(span, "release", fmt.Errorf("release %s: %w", id, domain.ErrAlreadyResolved))
	case domain.OutcomeReleased:
		span.AddEvent("Reservation already released")
		s.metrics.ReservationOp("release", "noop")
		return nil
	}

	r.MarkReleased(s.now())
	if err := s.reservations.Save(ctx, r); err != nil {
		return s.fail(span, "release", fmt.Errorf("save reservation: %w", err))
	}
	span.AddEvent("Reservation released")
	s.metrics.ReservationOp("release", "ok")
	return nil
}

// Available 返回某商品当前可被预占的数量
func (s *Service) Available(ctx context.Context, id orderdomain.ProductID) (int, error) {
	unlock, err := s.locker.Lock(ctx, lockKeys([]orderdomain.ProductID{id})...)
	if err != nil {
		return 0, fmt.Errorf("lock product %s: %w", id, err)
	}
	defer unlock()
	return s.available(ctx, id, s.now())
}

// Get 返回预占的副本，调用方可用 EffectiveOutcome 判断过期
func (s *Service) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	r, err := s.reservations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

func (s *Service) available(ctx context.Context, id orderdomain.ProductID, now time.Time) (int, error) {
	stock, err := s.store.AvailableStock(ctx, id)
	if err != nil {
		return 0, err
	}
	held, err := s.reservations.ListHeld(ctx, id, now)
	if err != nil {
		return 0, fmt.Errorf("list holds for %s: %w", id, err)
	}
	for _, r := range held {
		if r.IsLive(now) {
			stock -= r.QuantityOf(id)
		}
	}
	return stock, nil
}

// lockReservation 锁住预占涉及的全部商品，并在锁内重新读取预占
func (s *Service) lockReservation(ctx context.Context, id string) (*domain.Reservation, func(), error) {
	r, err := s.reservations.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	unlock, err := s.locker.Lock(ctx, lockKeys(r.ProductIDs())...)
	if err != nil {
		return nil, nil, fmt.Errorf("lock products: %w", err)
	}
	r, err = s.reservations.Get(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return r, unlock, nil
}

func (s *Service) rollback(ctx context.Context, done []domain.Hold) {
	for _, h := range done {
		if err := s.store.Restore(ctx, h.ProductID, h.Quantity); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("product", string(h.ProductID)).
				Int("quantity", h.Quantity).
				Msg("CRITICAL: failed to restore stock during commit rollback")
		}
	}
}

func (s *Service) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.ReservationOp(op, "error")
	return err
}

func lockKeys(ids []orderdomain.ProductID) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, lockPrefix+string(id))
	}
	return keys
}
