package infrastructure

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bekapono/shopping-cart/internal/service/inventory/domain"
	orderdomain "github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// ProductModel 对应数据库中的 products 表
type ProductModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255;not null"`
	Price     int64  `gorm:"not null"`
	Stock     int    `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (ProductModel) TableName() string {
	return "products"
}

// GormStore 是 ProductStore 与 ProductCatalog 的 MySQL 实现。
// 扣减使用带条件的 UPDATE，库存不会被扣成负数。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&ProductModel{})
}

func (s *GormStore) Put(ctx context.Context, p orderdomain.Product, stock int) error {
	model := ProductModel{ID: string(p.ID), Name: p.Name, Price: int64(p.Price), Stock: stock}
	return pkgerrors.Wrapf(s.db.WithContext(ctx).Save(&model).Error, "put product %s", p.ID)
}

func (s *GormStore) Exists(ctx context.Context, id orderdomain.ProductID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ProductModel{}).Where("id = ?", string(id)).Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrapf(err, "count product %s", id)
	}
	return count > 0, nil
}

func (s *GormStore) AvailableStock(ctx context.Context, id orderdomain.ProductID) (int, error) {
	model, err := s.find(ctx, id)
	if err != nil {
		return 0, err
	}
	return model.Stock, nil
}

func (s *GormStore) Deduct(ctx context.Context, id orderdomain.ProductID, qty int) error {
	res := s.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ? AND stock >= ?", string(id), qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrapf(res.Error, "deduct %s", id)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrProductNotFound
	}
	return domain.ErrInsufficientStock
}

func (s *GormStore) Restore(ctx context.Context, id orderdomain.ProductID, qty int) error {
	res := s.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ?", string(id)).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrapf(res.Error, "restore %s", id)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *GormStore) Product(ctx context.Context, id orderdomain.ProductID) (orderdomain.Product, error) {
	model, err := s.find(ctx, id)
	if err != nil {
		return orderdomain.Product{}, err
	}
	return orderdomain.NewProduct(orderdomain.ProductID(model.ID), model.Name, orderdomain.Money(model.Price))
}

func (s *GormStore) find(ctx context.Context, id orderdomain.ProductID) (*ProductModel, error) {
	var model ProductModel
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "find product %s", id)
	}
	return &model, nil
}
