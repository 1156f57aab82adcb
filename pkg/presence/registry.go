package presence

import "sync"

// Conn 活跃连接句柄
// 注册表不关心底层传输，只需要能向连接投递数据、以及在连接被顶替或移除时关闭它
type Conn interface {
	// Deliver 非阻塞投递，返回false表示连接缓冲已满或已关闭
	Deliver(payload []byte) bool
	// Close 关闭连接的发送端，可重复调用
	Close()
}

// Registry 在线注册表：用户ID到活跃连接的进程内映射
// 生命周期与进程一致，不做持久化；重启后为空，等待客户端重连
// 实现可替换为分布式注册表（例如共享缓存）而不需要改动中继逻辑
type Registry interface {
	// Register 注册连接，同一用户后注册的连接顶替先注册的（last-connect-wins）
	Register(userID uint, conn Conn)
	// Lookup 查找用户的活跃连接，用于判断接收方当前是否可达
	Lookup(userID uint) (Conn, bool)
	// Remove 仅当该用户仍映射到conn时移除并返回true（被顶替连接断开时不得误删后继者）
	// 幂等：移除不存在的条目是空操作，返回false
	// 调用方只在返回true时执行下线副作用，避免旧连接的清理把在线的后继者标记为离线
	Remove(userID uint, conn Conn) bool
	// Count 当前在线连接数
	Count() int
}

// MemoryRegistry 进程内注册表实现
type MemoryRegistry struct {
	mu    sync.RWMutex
	conns map[uint]Conn
}

// NewMemoryRegistry 创建进程内注册表
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		conns: make(map[uint]Conn),
	}
}

// Register 注册连接，顶替该用户的既有连接
func (r *MemoryRegistry) Register(userID uint, conn Conn) {
	r.mu.Lock()
	old := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()

	// 被顶替的连接关闭发送端，让其写协程退出
	if old != nil && old != conn {
		old.Close()
	}
}

// Lookup 查找用户的活跃连接
func (r *MemoryRegistry) Lookup(userID uint) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

// Remove 移除连接（幂等），移除发生时返回true
func (r *MemoryRegistry) Remove(userID uint, conn Conn) bool {
	r.mu.Lock()
	current, ok := r.conns[userID]
	if ok && current == conn {
		delete(r.conns, userID)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		conn.Close()
	}
	return ok
}

// Count 当前在线连接数
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
