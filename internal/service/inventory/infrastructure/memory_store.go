package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bekapono/shopping-cart/internal/service/inventory/domain"
	orderdomain "github.com/bekapono/shopping-cart/internal/service/order/domain"
)

type stockEntry struct {
	product orderdomain.Product
	stock   int
}

// MemoryStore 是进程内的商品库存，实现 ProductStore 与订单侧的 ProductCatalog
type MemoryStore struct {
	mu       sync.RWMutex
	products map[orderdomain.ProductID]*stockEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[orderdomain.ProductID]*stockEntry)}
}

// Put 新增或覆盖一个商品及其库存
func (s *MemoryStore) Put(_ context.Context, p orderdomain.Product, stock int) error {
	if stock < 0 {
		return fmt.Errorf("stock for %s must not be negative", p.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &stockEntry{product: p, stock: stock}
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, id orderdomain.ProductID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.products[id]
	return ok, nil
}

func (s *MemoryStore) AvailableStock(_ context.Context, id orderdomain.ProductID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.products[id]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return e.stock, nil
}

func (s *MemoryStore) Deduct(_ context.Context, id orderdomain.ProductID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if e.stock < qty {
		return domain.ErrInsufficientStock
	}
	e.stock -= qty
	return nil
}

func (s *MemoryStore) Restore(_ context.Context, id orderdomain.ProductID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	e.stock += qty
	return nil
}

func (s *MemoryStore) Product(_ context.Context, id orderdomain.ProductID) (orderdomain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.products[id]
	if !ok {
		return orderdomain.Product{}, domain.ErrProductNotFound
	}
	return e.product, nil
}

// MemoryReservationStore 保存预占记录，并按商品索引 HELD 的预占
type MemoryReservationStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.Reservation
	held map[orderdomain.ProductID]map[string]struct{}
}

func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{
		byID: make(map[string]*domain.Reservation),
		held: make(map[orderdomain.ProductID]map[string]struct{}),
	}
}

func (s *MemoryReservationStore) Save(_ context.Context, r *domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[r.ID] = r.Clone()
	for _, h := range r.Items {
		ids, ok := s.held[h.ProductID]
		if r.Outcome != domain.OutcomeHeld {
			if ok {
				delete(ids, r.ID)
			}
			continue
		}
		if !ok {
			ids = make(map[string]struct{})
			s.held[h.ProductID] = ids
		}
		ids[r.ID] = struct{}{}
	}
	return nil
}

func (s *MemoryReservationStore) Get(_ context.Context, id string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryReservationStore) ListHeld(_ context.Context, id orderdomain.ProductID, now time.Time) ([]*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.held[id]
	out := make([]*domain.Reservation, 0, len(ids))
	for rid := range ids {
		r := s.byID[rid]
		if !r.IsLive(now) {
			delete(ids, rid)
			continue
		}
		out = append(out, r.Clone())
	}
	if len(ids) == 0 {
		delete(s.held, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// heldCount 返回索引中的预占数量，测试用
func (s *MemoryReservationStore) heldCount(id orderdomain.ProductID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.held[id])
}
