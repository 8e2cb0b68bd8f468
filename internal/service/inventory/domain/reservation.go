// internal/service/inventory/domain/reservation.go
package domain

import (
	"time"

	orderdomain "github.com/bekapono/shopping-cart/internal/service/order/domain"
)

// Outcome 是预占的三态结果
type Outcome string

const (
	OutcomeHeld      Outcome = "HELD"
	OutcomeCommitted Outcome = "COMMITTED"
	OutcomeReleased  Outcome = "RELEASED"
)

// Hold 是预占中的一行
type Hold struct {
	ProductID orderdomain.ProductID `json:"productId"`
	Quantity  int                   `json:"quantity"`
}

// Reservation 是一次带 TTL 的库存预占。
// 过期而未被提交或释放的预占视为已自动释放。
type Reservation struct {
	ID         string    `json:"id"`
	Items      []Hold    `json:"items"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Outcome    Outcome   `json:"outcome"`
	ResolvedAt time.Time `json:"resolvedAt,omitempty"`
}

// NewReservation 按快照构造一个 HELD 状态的预占，Items 按商品 ID 排序
func NewReservation(id string, snapshot orderdomain.CartSnapshot, now time.Time, ttl time.Duration) *Reservation {
	items := make([]Hold, 0, snapshot.Len())
	for _, line := range snapshot.Items() {
		items = append(items, Hold{ProductID: line.Product.ID, Quantity: line.Quantity})
	}
	return &Reservation{
		ID:        id,
		Items:     items,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Outcome:   OutcomeHeld,
	}
}

// IsExpired 到达 ExpiresAt 即视为过期
func (r *Reservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsLive 报告该预占此刻是否仍占用库存
func (r *Reservation) IsLive(now time.Time) bool {
	return r.Outcome == OutcomeHeld && !r.IsExpired(now)
}

// EffectiveOutcome 把过期的 HELD 报告为 RELEASED
func (r *Reservation) EffectiveOutcome(now time.Time) Outcome {
	if r.Outcome == OutcomeHeld && r.IsExpired(now) {
		return OutcomeReleased
	}
	return r.Outcome
}

// QuantityOf 返回该预占对某商品的占用数量
func (r *Reservation) QuantityOf(id orderdomain.ProductID) int {
	for _, h := range r.Items {
		if h.ProductID == id {
			return h.Quantity
		}
	}
	return 0
}

// ProductIDs 返回涉及的商品，顺序与 Items 一致
func (r *Reservation) ProductIDs() []orderdomain.ProductID {
	ids := make([]orderdomain.ProductID, 0, len(r.Items))
	for _, h := range r.Items {
		ids = append(ids, h.ProductID)
	}
	return ids
}

func (r *Reservation) resolve(outcome Outcome, now time.Time) {
	r.Outcome = outcome
	r.ResolvedAt = now
}

// MarkCommitted / MarkReleased 只由库存服务在持锁状态下调用
func (r *Reservation) MarkCommitted(now time.Time) { r.resolve(OutcomeCommitted, now) }
func (r *Reservation) MarkReleased(now time.Time)  { r.resolve(OutcomeReleased, now) }

// Clone 深拷贝，存储层返回副本避免共享 Items
func (r *Reservation) Clone() *Reservation {
	c := *r
	c.Items = append([]Hold(nil), r.Items...)
	return &c
}
