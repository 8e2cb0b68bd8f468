package zookeeper

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memConn 是内存中的 znode 树，只实现锁需要的操作
type memConn struct {
	mu       sync.Mutex
	nodes    map[string]bool
	seq      int
	watchers map[string][]chan zk.Event
}

func newMemConn() *memConn {
	return &memConn{nodes: map[string]bool{}, watchers: map[string][]chan zk.Event{}}
}

func (c *memConn) Exists(p string) (bool, *zk.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodes[p], &zk.Stat{}, nil
}

func (c *memConn) ExistsW(p string) (bool, *zk.Stat, <-chan zk.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan zk.Event, 1)
	c.watchers[p] = append(c.watchers[p], ch)
	return c.nodes[p], &zk.Stat{}, ch, nil
}

func (c *memConn) Create(p string, _ []byte, _ int32, _ []zk.ACL) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nodes[p] {
		return "", zk.ErrNodeExists
	}
	c.nodes[p] = true
	return p, nil
}

func (c *memConn) CreateProtectedEphemeralSequential(p string, _ []byte, _ []zk.ACL) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	dir, base := path.Split(p)
	node := fmt.Sprintf("%s_c_%032d-%s%010d", dir, c.seq, base, c.seq)
	c.nodes[node] = true
	return node, nil
}

func (c *memConn) Children(p string) ([]string, *zk.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for n := range c.nodes {
		if strings.HasPrefix(n, p+"/") && !strings.Contains(strings.TrimPrefix(n, p+"/"), "/") {
			out = append(out, strings.TrimPrefix(n, p+"/"))
		}
	}
	return out, &zk.Stat{}, nil
}

func (c *memConn) Delete(p string, _ int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.nodes[p] {
		return zk.ErrNoNode
	}
	delete(c.nodes, p)
	for _, ch := range c.watchers[p] {
		ch <- zk.Event{Type: zk.EventNodeDeleted, Path: p}
	}
	delete(c.watchers, p)
	return nil
}

func TestDistributedLock_Sequential(t *testing.T) {
	conn := newMemConn()
	ctx := context.Background()

	first, err := NewDistributedLock(conn, "inventory:widget")
	require.NoError(t, err)
	require.NoError(t, first.Lock(ctx))

	second, err := NewDistributedLock(conn, "inventory:widget")
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() { acquired <- second.Lock(ctx) }()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, first.Unlock())
	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
	require.NoError(t, second.Unlock())
	assert.Error(t, second.Unlock())
}

func TestDistributedLock_ContextCancel(t *testing.T) {
	conn := newMemConn()

	holder, err := NewDistributedLock(conn, "r")
	require.NoError(t, err)
	require.NoError(t, holder.Lock(context.Background()))

	waiter, err := NewDistributedLock(conn, "r")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, waiter.Lock(ctx), context.DeadlineExceeded)

	children, _, _ := conn.Children(lockRoot + "/r")
	assert.Len(t, children, 1, "abandoned node must be removed")
}

func TestLocker_MultipleKeys(t *testing.T) {
	conn := newMemConn()
	locker := NewLocker(conn)

	unlock, err := locker.Lock(context.Background(), "b", "a", "b")
	require.NoError(t, err)

	for _, key := range []string{"a", "b"} {
		children, _, _ := conn.Children(lockRoot + "/" + key)
		assert.Len(t, children, 1, key)
	}

	unlock()
	for _, key := range []string{"a", "b"} {
		children, _, _ := conn.Children(lockRoot + "/" + key)
		assert.Empty(t, children, key)
	}
}
