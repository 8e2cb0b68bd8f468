package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// OrderModel 对应数据库中的 orders 表，订单行以 JSON 保存
type OrderModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	CustomerID string `gorm:"size:64;index;not null"`
	Status     string `gorm:"size:32;not null"`
	TotalCents int64  `gorm:"not null"`
	Items      string `gorm:"type:json;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

type orderItemRecord struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// FromDomainOrder 领域实体 -> 持久化模型
func FromDomainOrder(order *domain.Order) (*OrderModel, error) {
	items := order.PurchasedItems()
	records := make([]orderItemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, orderItemRecord{
			ProductID: string(item.Product.ID),
			Name:      item.Product.Name,
			Price:     int64(item.Product.Price),
			Quantity:  item.Quantity,
		})
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "marshal order items")
	}
	return &OrderModel{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status()),
		TotalCents: int64(order.TotalCost()),
		Items:      string(raw),
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt(),
	}, nil
}

// ToDomainOrder 持久化模型 -> 领域实体
func ToDomainOrder(model *OrderModel) (*domain.Order, error) {
	var records []orderItemRecord
	if err := json.Unmarshal([]byte(model.Items), &records); err != nil {
		return nil, pkgerrors.Wrapf(err, "unmarshal items of order %s", model.ID)
	}
	lines := make([]domain.LineItem, 0, len(records))
	for _, rec := range records {
		product, err := domain.NewProduct(domain.ProductID(rec.ProductID), rec.Name, domain.Money(rec.Price))
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "restore product of order %s", model.ID)
		}
		lines = append(lines, domain.LineItem{Product: product, Quantity: rec.Quantity})
	}
	snapshot, err := domain.NewCartSnapshot(lines...)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "restore snapshot of order %s", model.ID)
	}
	status, err := domain.ParseState(model.Status)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "restore status of order %s", model.ID)
	}
	return domain.RestoreOrder(model.ID, model.CustomerID, snapshot, status, model.CreatedAt, model.UpdatedAt), nil
}

// GormRepository 是 OrderRepository 的 MySQL 实现
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&OrderModel{})
}

// Save 按主键插入或更新
func (r *GormRepository) Save(ctx context.Context, order *domain.Order) error {
	model, err := FromDomainOrder(order)
	if err != nil {
		return err
	}
	return pkgerrors.Wrapf(r.db.WithContext(ctx).Save(model).Error, "save order %s", order.ID)
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find order %s", id)
	}
	return ToDomainOrder(&model)
}
