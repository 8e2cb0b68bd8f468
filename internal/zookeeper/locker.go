package zookeeper

import (
	"context"
	"log"
	"sort"
)

// Locker 用 ZooKeeper 锁实现库存服务的 port.Locker，适用于多实例部署
type Locker struct {
	conn Conn
}

func NewLocker(conn Conn) *Locker {
	return &Locker{conn: conn}
}

// Lock 按排序后的 key 依次加锁，失败时释放已经拿到的锁
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]*DistributedLock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Unlock(); err != nil {
				log.Printf("ERROR: failed to release zookeeper lock %s: %v", held[i].path, err)
			}
		}
	}

	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		lock, err := NewDistributedLock(l.conn, key)
		if err != nil {
			release()
			return nil, err
		}
		if err := lock.Lock(ctx); err != nil {
			release()
			return nil, err
		}
		held = append(held, lock)
	}
	return release, nil
}
