// internal/service/order/application/dto.go
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bekapono/shopping-cart/internal/service/order/domain"
	"github.com/bekapono/shopping-cart/internal/service/order/domain/port"
)

// CheckoutRequest 是结算用例的输入数据
type CheckoutRequest struct {
	Customer port.CustomerInfo `json:"customer"`
	Items    []CheckoutItem    `json:"items"`
}

type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ToSnapshot 通过商品目录把请求解析为不可变的购物车快照
func (req *CheckoutRequest) ToSnapshot(ctx context.Context, catalog port.ProductCatalog) (domain.CartSnapshot, error) {
	if len(req.Items) == 0 {
		return domain.CartSnapshot{}, &domain.ValidationError{Field: "items", Reason: domain.ErrEmptyCart.Error()}
	}

	lines := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" {
			return domain.CartSnapshot{}, &domain.ValidationError{Field: "items.product_id", Reason: "must not be empty"}
		}
		product, err := catalog.Product(ctx, domain.ProductID(item.ProductID))
		if err != nil {
			return domain.CartSnapshot{}, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		lines = append(lines, domain.LineItem{Product: product, Quantity: item.Quantity})
	}
	return domain.NewCartSnapshot(lines...)
}

// OrderView 是订单对外的只读表示
type OrderView struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Status     domain.State    `json:"status"`
	Items      []OrderLineView `json:"items"`
	Total      domain.Money    `json:"total_cents"`
	TotalText  string          `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type OrderLineView struct {
	ProductID string       `json:"product_id"`
	Name      string       `json:"name"`
	UnitPrice domain.Money `json:"unit_price_cents"`
	Quantity  int          `json:"quantity"`
	Subtotal  domain.Money `json:"subtotal_cents"`
}

// ToOrderView 从领域实体转换为响应 DTO
func ToOrderView(order *domain.Order) *OrderView {
	items := order.PurchasedItems()
	lines := make([]OrderLineView, 0, len(items))
	for _, item := range items {
		lines = append(lines, OrderLineView{
			ProductID: string(item.Product.ID),
			Name:      item.Product.Name,
			UnitPrice: item.Product.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		})
	}
	return &OrderView{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status(),
		Items:      lines,
		Total:      order.TotalCost(),
		TotalText:  order.TotalCost().String(),
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt(),
	}
}
