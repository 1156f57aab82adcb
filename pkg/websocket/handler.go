package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"duochat/config"
	"duochat/pkg/jwt"
	"duochat/pkg/logger"
	"duochat/pkg/presence"
	"duochat/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Relay 实时事件处理接口，由service层实现
// 处理方法不返回错误：除认证外的实时错误一律记录日志而不回传客户端
type Relay interface {
	// Connected 连接注册完成后调用（上线）
	Connected(userID uint, username string)
	// Disconnected 连接移除后调用（下线）
	Disconnected(userID uint, username string)
	// HandleSend 处理发送消息事件
	HandleSend(senderID uint, content string, receiverID uint)
	// HandleSeen 处理已读回执事件
	HandleSeen(userID uint, messageID uint)
	// HandleTyping 处理输入状态事件
	HandleTyping(senderID, receiverID uint, isTyping bool)
	// Heartbeat 客户端心跳，刷新在线状态TTL
	Heartbeat(userID uint)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// Handler WebSocket连接处理器
// 每个连接：握手认证 → 注册在线 → 串行处理入站事件 → 断开清理
type Handler struct {
	jwtSvc   *jwt.JWTService
	registry presence.Registry
	relay    Relay
	cfg      config.RelayConfig
}

// NewHandler 创建WebSocket处理器
// 非法的时间参数回退到默认值：PingInterval为0会让NewTicker直接panic，
// ReadTimeout为0会让读截止时间立即过期
func NewHandler(jwtSvc *jwt.JWTService, registry presence.Registry, relay Relay, cfg config.RelayConfig) *Handler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 90 * time.Second
	}
	return &Handler{
		jwtSvc:   jwtSvc,
		registry: registry,
		relay:    relay,
		cfg:      cfg,
	}
}

// Handle Gin路由处理函数
func (h *Handler) Handle(c *gin.Context) {
	// 握手凭证：优先query参数，其次子协议头
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Sec-WebSocket-Protocol"), "Bearer ")
	}

	// 先认证：失败则连接直接关闭，不创建任何在线条目
	userID, username, err := h.jwtSvc.Authenticate(token)
	if err != nil {
		logger.Warn("WebSocket握手认证失败", zap.Error(err), zap.String("ip", c.ClientIP()))
		response.Unauthorized(c, "token无效或已过期")
		return
	}

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		logger.Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	client := NewClient(userID, conn, h.cfg.SendBuffer)

	// 注册在线（同一用户的旧连接被顶替）
	h.registry.Register(userID, client)
	h.relay.Connected(userID, username)

	logger.Info("WebSocket连接建立",
		zap.Uint("user_id", userID),
		zap.String("username", username),
		zap.Int("online", h.registry.Count()),
	)

	// 启动写协程 + 定时发送ping心跳
	done := make(chan struct{})
	go client.writePump(h.cfg.PingInterval, done)

	defer func() {
		// 幂等清理：被顶替的连接不会误删后继连接的在线条目
		// 只有当前连接的断开才触发下线，旧连接的清理不得把在线用户标记为离线
		if h.registry.Remove(userID, client) {
			h.relay.Disconnected(userID, username)
		}
		_ = conn.Close()
		<-done

		logger.Info("WebSocket连接关闭",
			zap.Uint("user_id", userID),
			zap.String("username", username),
		)
	}()

	// 读循环：逐条读取并处理到完成，同一连接的事件严格按到达顺序串行执行
	// 超时未收到任何读事件则断开
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(appData string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		var ev InboundEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			logger.Warn("入站事件解析失败", zap.Uint("user_id", userID), zap.Error(err))
			continue
		}

		switch ev.Type {
		case EventSendMessage:
			h.relay.HandleSend(userID, ev.Content, ev.Receiver)
		case EventMessageSeen:
			h.relay.HandleSeen(userID, ev.MessageID)
		case EventTyping:
			h.relay.HandleTyping(userID, ev.ReceiverID, ev.IsTyping)
		case EventHeartbeat:
			h.relay.Heartbeat(userID)
		default:
			logger.Debug("未知事件类型", zap.Uint("user_id", userID), zap.String("type", ev.Type))
		}
	}
}
