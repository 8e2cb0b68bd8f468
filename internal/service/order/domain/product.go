package domain

import (
	"fmt"
	"strings"
)

// Money 以最小货币单位(分)计价，避免浮点误差
type Money int64

// Mul 计算单价 × 数量
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}

// ProductID 是商品的唯一标识，商品的相等性只看它
type ProductID string

// Product 是不可变的商品值对象
type Product struct {
	ID    ProductID
	Name  string
	Price Money
}

// NewProduct 校验名称与价格后构造商品
func NewProduct(id ProductID, name string, price Money) (Product, error) {
	p := Product{ID: id, Name: name, Price: price}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Validate 检查 ID、名称与价格。直接用字面量构造的商品也要经过它。
func (p Product) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return &ValidationError{Field: "product.id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "product.name", Reason: "must be a non-empty string"}
	}
	if p.Price < 0 {
		return &ValidationError{Field: "product.price", Reason: fmt.Sprintf("must not be negative, got %s", p.Price)}
	}
	return nil
}

// Equal 只按 ID 比较
func (p Product) Equal(other Product) bool {
	return p.ID == other.ID
}
