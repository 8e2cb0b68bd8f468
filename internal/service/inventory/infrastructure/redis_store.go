package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bekapono/shopping-cart/internal/pkg/redis"
	"github.com/bekapono/shopping-cart/internal/service/inventory/domain"
	orderdomain "github.com/bekapono/shopping-cart/internal/service/order/domain"
)

const (
	deductScriptName  = "inventory_deduct"
	restoreScriptName = "inventory_restore"
)

// KEYS[1]: 商品 hash, 例如 inventory:product:{widget}
// ARGV[1]: 扣减数量
// 返回 -1 商品不存在, 0 库存不足, 1 成功
const deductScript = `
if redis.call('exists', KEYS[1]) == 0 then
    return -1
end
local stock = tonumber(redis.call('hget', KEYS[1], 'stock'))
local qty = tonumber(ARGV[1])
if stock == nil or stock < qty then
    return 0
end
redis.call('hincrby', KEYS[1], 'stock', -qty)
return 1
`

// KEYS[1]: 商品 hash
// ARGV[1]: 归还数量
const restoreScript = `
if redis.call('exists', KEYS[1]) == 0 then
    return -1
end
redis.call('hincrby', KEYS[1], 'stock', tonumber(ARGV[1]))
return 1
`

func productKey(id orderdomain.ProductID) string {
	return fmt.Sprintf("inventory:product:{%s}", id)
}

// RedisStore 每个商品一个 hash (name, price, stock)，扣减与归还由 Lua 脚本原子完成
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 在创建时加载所需的 Lua 脚本
func NewRedisStore(ctx context.Context, client *redis.Client) (*RedisStore, error) {
	if err := client.LoadScriptFromContent(ctx, deductScriptName, deductScript); err != nil {
		return nil, err
	}
	if err := client.LoadScriptFromContent(ctx, restoreScriptName, restoreScript); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// Put 新增或覆盖一个商品 (初始化与测试用)
func (s *RedisStore) Put(ctx context.Context, p orderdomain.Product, stock int) error {
	err := s.client.GetClient().HSet(ctx, productKey(p.ID),
		"name", p.Name,
		"price", int64(p.Price),
		"stock", stock,
	).Err()
	return errors.Wrapf(err, "put product %s", p.ID)
}

func (s *RedisStore) Exists(ctx context.Context, id orderdomain.ProductID) (bool, error) {
	n, err := s.client.GetClient().Exists(ctx, productKey(id)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "exists %s", id)
	}
	return n == 1, nil
}

func (s *RedisStore) AvailableStock(ctx context.Context, id orderdomain.ProductID) (int, error) {
	stock, err := s.client.GetClient().HGet(ctx, productKey(id), "stock").Int()
	if err == goredis.Nil {
		return 0, domain.ErrProductNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "read stock of %s", id)
	}
	return stock, nil
}

func (s *RedisStore) Deduct(ctx context.Context, id orderdomain.ProductID, qty int) error {
	code, err := s.run(ctx, deductScriptName, id, qty)
	if err != nil {
		return err
	}
	switch code {
	case 1:
		return nil
	case 0:
		return domain.ErrInsufficientStock
	case -1:
		return domain.ErrProductNotFound
	default:
		return fmt.Errorf("unknown result code from deduct script: %d", code)
	}
}

func (s *RedisStore) Restore(ctx context.Context, id orderdomain.ProductID, qty int) error {
	code, err := s.run(ctx, restoreScriptName, id, qty)
	if err != nil {
		return err
	}
	if code == -1 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *RedisStore) Product(ctx context.Context, id orderdomain.ProductID) (orderdomain.Product, error) {
	fields, err := s.client.GetClient().HGetAll(ctx, productKey(id)).Result()
	if err != nil {
		return orderdomain.Product{}, errors.Wrapf(err, "read product %s", id)
	}
	if len(fields) == 0 {
		return orderdomain.Product{}, domain.ErrProductNotFound
	}
	price, err := strconv.ParseInt(fields["price"], 10, 64)
	if err != nil {
		return orderdomain.Product{}, errors.Wrapf(err, "corrupt price for %s", id)
	}
	return orderdomain.NewProduct(id, fields["name"], orderdomain.Money(price))
}

func (s *RedisStore) run(ctx context.Context, script string, id orderdomain.ProductID, qty int) (int64, error) {
	result, err := s.client.RunScript(ctx, script, []string{productKey(id)}, qty)
	if err != nil {
		return 0, errors.Wrapf(err, "run %s for %s", script, id)
	}
	code, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from Lua script: %T", result)
	}
	return code, nil
}

func reservationKey(id string) string {
	return "inventory:reservation:" + id
}

func heldKey(id orderdomain.ProductID) string {
	return fmt.Sprintf("inventory:held:{%s}", id)
}

// RedisReservationStore 预占以 JSON 保存，每个商品一个 set 索引其 HELD 预占
type RedisReservationStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisReservationStore retention 为预占结束(提交、释放或过期)后记录的保留时长，0 表示永久保留。
// 记录被清理后再次 Release 会返回 ErrReservationNotFound，幂等只在保留期内成立。
func NewRedisReservationStore(client *redis.Client, retention time.Duration) *RedisReservationStore {
	return &RedisReservationStore{client: client, retention: retention}
}

func (s *RedisReservationStore) Save(ctx context.Context, r *domain.Reservation) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal reservation")
	}

	expiration := s.retention
	if s.retention > 0 && r.Outcome == domain.OutcomeHeld {
		// 从未被提交或释放的预占，在过期后同样只保留 retention
		expiration = r.ExpiresAt.Sub(r.CreatedAt) + s.retention
	}

	_, err = s.client.GetClient().TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, reservationKey(r.ID), payload, expiration)
		for _, h := range r.Items {
			if r.Outcome == domain.OutcomeHeld {
				pipe.SAdd(ctx, heldKey(h.ProductID), r.ID)
			} else {
				pipe.SRem(ctx, heldKey(h.ProductID), r.ID)
			}
		}
		return nil
	})
	return errors.Wrapf(err, "save reservation %s", r.ID)
}

func (s *RedisReservationStore) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	raw, err := s.client.GetClient().Get(ctx, reservationKey(id)).Bytes()
	if err == goredis.Nil {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get reservation %s", id)
	}
	var r domain.Reservation
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, errors.Wrapf(err, "decode reservation %s", id)
	}
	return &r, nil
}

func (s *RedisReservationStore) ListHeld(ctx context.Context, id orderdomain.ProductID, now time.Time) ([]*domain.Reservation, error) {
	rdb := s.client.GetClient()
	ids, err := rdb.SMembers(ctx, heldKey(id)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "list holds of %s", id)
	}
	out := make([]*domain.Reservation, 0, len(ids))
	var stale []interface{}
	for _, rid := range ids {
		r, err := s.Get(ctx, rid)
		if errors.Is(err, domain.ErrReservationNotFound) {
			stale = append(stale, rid)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !r.IsLive(now) {
			stale = append(stale, rid)
			continue
		}
		out = append(out, r)
	}
	if len(stale) > 0 {
		if err := rdb.SRem(ctx, heldKey(id), stale...).Err(); err != nil {
			return nil, errors.Wrapf(err, "prune holds of %s", id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
