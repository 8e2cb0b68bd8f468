package port

import (
	"context"

	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// InventoryService 是库存预占服务的出站端口。
type InventoryService interface {
	// Reserve 原子地预占整个快照，返回预占 ID；任一行不足则什么都不占用。
	Reserve(ctx context.Context, snapshot domain.CartSnapshot) (reservationID string, err error)

	// Commit 永久扣减预占的库存，过期或已结束的预占返回错误。
	Commit(ctx context.Context, reservationID string) error

	// Release 是 Reserve 的补偿操作，幂等。
	Release(ctx context.Context, reservationID string) error
}
