package port

import (
	"context"
	"time"

	"github.com/bekapono/shopping-cart/internal/service/inventory/domain"
	orderdomain "github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// ProductStore 是商品库存的外部存储
type ProductStore interface {
	Exists(ctx context.Context, id orderdomain.ProductID) (bool, error)
	// AvailableStock 返回存储中的库存数，商品不存在时返回 ErrProductNotFound
	AvailableStock(ctx context.Context, id orderdomain.ProductID) (int, error)
	// Deduct 永久扣减，库存不足返回 ErrInsufficientStock
	Deduct(ctx context.Context, id orderdomain.ProductID, qty int) error
	Restore(ctx context.Context, id orderdomain.ProductID, qty int) error
}

// ReservationStore 保存预占记录，并能列出某商品下仍占用库存的预占
type ReservationStore interface {
	Save(ctx context.Context, r *domain.Reservation) error
	Get(ctx context.Context, id string) (*domain.Reservation, error)
	// ListHeld 只返回 now 时刻仍有效的 HELD 预占，并把已过期的从索引中摘除。
	// 调用方需持有该商品的锁。过期记录本身保留，Get 仍可读到。
	ListHeld(ctx context.Context, id orderdomain.ProductID, now time.Time) ([]*domain.Reservation, error)
}

// Locker 为一组商品提供互斥，unlock 必须被调用且只调用一次
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}
