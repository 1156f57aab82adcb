package presence_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/pkg/presence"
)

type fakeConn struct {
	mu       sync.Mutex
	payloads [][]byte
	closed   int
}

func (f *fakeConn) Deliver(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeConn) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegisterAndLookup(t *testing.T) {
	r := presence.NewMemoryRegistry()
	conn := &fakeConn{}

	r.Register(1, conn)

	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, presence.Conn(conn), got)
	assert.Equal(t, 1, r.Count())

	_, ok = r.Lookup(2)
	assert.False(t, ok)
}

func TestRegisterLastConnectWins(t *testing.T) {
	r := presence.NewMemoryRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	r.Register(1, first)
	r.Register(1, second)

	// 后注册的连接顶替先注册的，被顶替者被关闭
	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, presence.Conn(second), got)
	assert.Equal(t, 1, first.closeCount())
	assert.Zero(t, second.closeCount())
	assert.Equal(t, 1, r.Count())
}

func TestRemoveIdempotent(t *testing.T) {
	r := presence.NewMemoryRegistry()
	conn := &fakeConn{}

	r.Register(1, conn)
	assert.True(t, r.Remove(1, conn))

	_, ok := r.Lookup(1)
	assert.False(t, ok)
	assert.Zero(t, r.Count())

	// 重复移除（双重断开）不得panic也不得报错，且不再报告移除发生
	assert.False(t, r.Remove(1, conn))
	assert.False(t, r.Remove(42, conn))
	assert.Zero(t, r.Count())
}

func TestRemoveDoesNotDropSuccessor(t *testing.T) {
	r := presence.NewMemoryRegistry()
	old := &fakeConn{}
	replacement := &fakeConn{}

	r.Register(1, old)
	r.Register(1, replacement)

	// 被顶替的旧连接断开时不得误删新连接的条目
	// 返回false让调用方跳过下线副作用（用户仍通过新连接在线）
	assert.False(t, r.Remove(1, old))

	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, presence.Conn(replacement), got)

	assert.True(t, r.Remove(1, replacement))
	_, ok = r.Lookup(1)
	assert.False(t, ok)
}

func TestConcurrentRegisterDistinctUsers(t *testing.T) {
	r := presence.NewMemoryRegistry()

	const n = 64
	var wg sync.WaitGroup
	conns := make([]*fakeConn, n)
	for i := 0; i < n; i++ {
		conns[i] = &fakeConn{}
		wg.Add(1)
		go func(id uint, conn *fakeConn) {
			defer wg.Done()
			r.Register(id, conn)
		}(uint(i+1), conns[i])
	}
	wg.Wait()

	// 不同用户的并发注册互不干扰
	require.Equal(t, n, r.Count())
	for i := 0; i < n; i++ {
		got, ok := r.Lookup(uint(i + 1))
		require.True(t, ok, fmt.Sprintf("user %d missing", i+1))
		assert.Same(t, presence.Conn(conns[i]), got)
	}
}
