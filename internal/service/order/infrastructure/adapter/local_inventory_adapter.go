package adapter

import (
	"context"

	inventoryapp "github.com/bekapono/shopping-cart/internal/service/inventory/application"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// LocalInventoryAdapter 实现了 port.InventoryService 接口，在同一进程内调用库存服务。
type LocalInventoryAdapter struct {
	svc *inventoryapp.Service
}

func NewLocalInventoryAdapter(svc *inventoryapp.Service) *LocalInventoryAdapter {
	return &LocalInventoryAdapter{svc: svc}
}

func (a *LocalInventoryAdapter) Reserve(ctx context.Context, snapshot domain.CartSnapshot) (string, error) {
	reservation, err := a.svc.Reserve(ctx, snapshot)
	if err != nil {
		return "", err
	}
	return reservation.ID, nil
}

func (a *LocalInventoryAdapter) Commit(ctx context.Context, reservationID string) error {
	return a.svc.Commit(ctx, reservationID)
}

func (a *LocalInventoryAdapter) Release(ctx context.Context, reservationID string) error {
	return a.svc.Release(ctx, reservationID)
}
