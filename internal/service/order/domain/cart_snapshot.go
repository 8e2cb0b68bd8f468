package domain

import (
	"fmt"
	"sort"
)

// LineItem 是快照中的一行：商品 + 数量
type LineItem struct {
	Product  Product
	Quantity int
}

// Subtotal 单行小计
func (l LineItem) Subtotal() Money {
	return l.Product.Price.Mul(l.Quantity)
}

// CartSnapshot 是结算时刻购物车内容的不可变副本。
// 字段不导出，所有访问器返回拷贝，创建后无法被修改。
type CartSnapshot struct {
	lines map[ProductID]LineItem
}

// NewCartSnapshot 校验并构造快照。同一商品出现多次时数量合并。
func NewCartSnapshot(items ...LineItem) (CartSnapshot, error) {
	lines := make(map[ProductID]LineItem, len(items))
	for _, item := range items {
		if err := item.Product.Validate(); err != nil {
			return CartSnapshot{}, err
		}
		if item.Quantity <= 0 {
			return CartSnapshot{}, &ValidationError{
				Field:  "item.quantity",
				Reason: fmt.Sprintf("must be positive for product %s, got %d", item.Product.ID, item.Quantity),
			}
		}
		if existing, ok := lines[item.Product.ID]; ok {
			existing.Quantity += item.Quantity
			lines[item.Product.ID] = existing
			continue
		}
		lines[item.Product.ID] = item
	}
	return CartSnapshot{lines: lines}, nil
}

// Items 按商品 ID 排序返回所有行的拷贝
func (s CartSnapshot) Items() []LineItem {
	items := make([]LineItem, 0, len(s.lines))
	for _, l := range s.lines {
		items = append(items, l)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Product.ID < items[j].Product.ID })
	return items
}

// ProductIDs 按排序返回快照涉及的商品 ID
func (s CartSnapshot) ProductIDs() []ProductID {
	ids := make([]ProductID, 0, len(s.lines))
	for id := range s.lines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Quantity 返回某商品的数量，不存在时为 0
func (s CartSnapshot) Quantity(id ProductID) int {
	return s.lines[id].Quantity
}

func (s CartSnapshot) Len() int {
	return len(s.lines)
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.lines) == 0
}

// Total 总价只从快照计算，与实时购物车无关
func (s CartSnapshot) Total() Money {
	var total Money
	for _, l := range s.lines {
		total += l.Subtotal()
	}
	return total
}
