package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client 代表一个已认证的WebSocket连接
// Send 为发送缓冲通道，由独立的写协程消费
type Client struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte

	closeOnce sync.Once
}

// NewClient 创建连接句柄
func NewClient(userID uint, conn *websocket.Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Deliver 非阻塞投递到发送缓冲
// 缓冲满或通道已关闭返回false，调用方按尽力而为处理
func (c *Client) Deliver(payload []byte) (ok bool) {
	defer func() {
		// 投递与Close可能并发，向已关闭通道发送按失败处理
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Close 关闭发送端，可重复调用
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// writePump 写协程：消费发送缓冲并定时发送ping心跳
// Send关闭或ping失败时退出
func (c *Client) writePump(pingInterval time.Duration, done chan<- struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
