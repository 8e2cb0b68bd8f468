package port

import (
	"context"

	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// ProductCatalog 按 ID 查询商品，商品不存在时返回 domain.ErrProductNotFound
type ProductCatalog interface {
	Product(ctx context.Context, id domain.ProductID) (domain.Product, error)
}
