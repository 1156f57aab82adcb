package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"duochat/internal/model"
	"duochat/pkg/logger"
	"duochat/pkg/presence"
	"duochat/pkg/redis"
	"duochat/pkg/response"
	"duochat/pkg/websocket"

	"go.uber.org/zap"
)

// RelayService 实时中继核心
// 持有消息/用户存储与在线注册表，承载发送、已读回执与输入状态的全部语义
// 同一连接的事件由读循环串行送入，这里无须额外的按连接加锁
type RelayService struct {
	messages MessageStore
	users    UserStore
	registry presence.Registry

	// 每次持久化调用的超时，防止慢存储无限期占住连接的事件处理
	storeTimeout time.Duration
}

// NewRelayService 创建RelayService实例
func NewRelayService(messages MessageStore, users UserStore, registry presence.Registry, storeTimeout time.Duration) *RelayService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &RelayService{
		messages:     messages,
		users:        users,
		registry:     registry,
		storeTimeout: storeTimeout,
	}
}

// storeCtx 持久化调用上下文
// 基于Background而非连接上下文：连接关闭不取消已发起的持久化操作
func (s *RelayService) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.storeTimeout)
}

// SendMessage 发送私信
// 校验 → 持久化（ID与时间戳由存储生成，seen=false）→ 回执发送方 → 接收方在线则推送
// 接收方不在线时仅持久化，没有滞留队列，对方重连后通过历史查询补齐
func (s *RelayService) SendMessage(senderID uint, content string, receiverID uint) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", model.ErrValidation)
	}
	if receiverID == 0 {
		return nil, fmt.Errorf("%w: receiver is required", model.ErrValidation)
	}
	if receiverID == senderID {
		return nil, fmt.Errorf("%w: cannot send message to yourself", model.ErrValidation)
	}

	// 接收者必须存在
	ctx, cancel := s.storeCtx()
	defer cancel()
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}

	message := &model.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Seen:       false,
	}

	saveCtx, cancelSave := s.storeCtx()
	defer cancelSave()
	if err := s.messages.Create(saveCtx, message); err != nil {
		return nil, err
	}

	// 未读计数旁路更新，Redis不可用不影响发送
	if err := redis.IncrementUnreadCount(receiverID); err != nil {
		logger.Debug("增加未读计数失败", zap.Uint("receiver_id", receiverID), zap.Error(err))
	}

	payload, err := json.Marshal(websocket.NewMessageEvent(response.FilterMessageInfo(message)))
	if err != nil {
		return message, nil
	}

	// 回执：把持久化后的消息原样送回发送方连接
	if conn, ok := s.registry.Lookup(senderID); ok {
		conn.Deliver(payload)
	}

	// 接收方在线则推送，不在线则静默（无滞留队列）
	if conn, ok := s.registry.Lookup(receiverID); ok {
		if !conn.Deliver(payload) {
			logger.Warn("接收方连接缓冲已满，消息推送丢弃",
				zap.Uint("receiver_id", receiverID),
				zap.Uint("message_id", message.ID),
			)
		}
	}

	return message, nil
}

// MarkSeen 标记消息已读并向原发送者推送已读回执
// 已读回执是尽力而为信号：任何失败只记录日志，不回传客户端
func (s *RelayService) MarkSeen(userID, messageID uint) error {
	if messageID == 0 {
		return fmt.Errorf("%w: message id is required", model.ErrValidation)
	}

	ctx, cancel := s.storeCtx()
	defer cancel()
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID == 0 {
		return fmt.Errorf("%w: message %d has no sender", model.ErrValidation, messageID)
	}

	// 已经是已读则不再落库，重复回执不报错
	if !message.Seen {
		updateCtx, cancelUpdate := s.storeCtx()
		defer cancelUpdate()
		if err := s.messages.MarkSeen(updateCtx, messageID); err != nil {
			return err
		}
		message.Seen = true

		if err := redis.DecrementUnreadCount(message.ReceiverID); err != nil {
			logger.Debug("减少未读计数失败", zap.Uint("receiver_id", message.ReceiverID), zap.Error(err))
		}
	}

	// 原发送者在线则推送状态变更，不在线不补发
	if conn, ok := s.registry.Lookup(message.SenderID); ok {
		if payload, err := json.Marshal(websocket.NewSeenUpdateEvent(messageID)); err == nil {
			conn.Deliver(payload)
		}
	}

	return nil
}

// Typing 转发输入状态
// 纯瞬态信号：不持久化，接收方不在线则直接丢弃
func (s *RelayService) Typing(senderID, receiverID uint, isTyping bool) {
	conn, ok := s.registry.Lookup(receiverID)
	if !ok {
		return
	}

	if payload, err := json.Marshal(websocket.NewTypingEvent(senderID, isTyping)); err == nil {
		conn.Deliver(payload)
	}
}

// Connected 连接建立：状态标记为online（数据库 + Redis镜像，均尽力而为）
func (s *RelayService) Connected(userID uint, username string) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.users.UpdateStatus(ctx, userID, "online"); err != nil {
		logger.Warn("更新用户在线状态失败", zap.Uint("user_id", userID), zap.Error(err))
	}
	if err := redis.SetUserPresence(userID, username, "online"); err != nil {
		logger.Debug("更新Redis在线镜像失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// Disconnected 连接断开：状态标记为offline
func (s *RelayService) Disconnected(userID uint, username string) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.users.UpdateStatus(ctx, userID, "offline"); err != nil {
		logger.Warn("更新用户离线状态失败", zap.Uint("user_id", userID), zap.Error(err))
	}
	if err := redis.SetUserPresence(userID, username, "offline"); err != nil {
		logger.Debug("更新Redis在线镜像失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// Heartbeat 客户端心跳：延长Redis在线状态TTL
func (s *RelayService) Heartbeat(userID uint) {
	if err := redis.RefreshUserPresence(userID); err != nil {
		logger.Debug("刷新在线状态TTL失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// HandleSend websocket.Relay实现：发送失败只记录日志，客户端不收到任何确认
func (s *RelayService) HandleSend(senderID uint, content string, receiverID uint) {
	if _, err := s.SendMessage(senderID, content, receiverID); err != nil {
		logger.Warn("发送消息失败",
			zap.Uint("sender_id", senderID),
			zap.Uint("receiver_id", receiverID),
			zap.Error(err),
		)
	}
}

// HandleSeen websocket.Relay实现：已读回执失败静默处理
func (s *RelayService) HandleSeen(userID uint, messageID uint) {
	if err := s.MarkSeen(userID, messageID); err != nil {
		logger.Warn("处理已读回执失败",
			zap.Uint("user_id", userID),
			zap.Uint("message_id", messageID),
			zap.Error(err),
		)
	}
}

// HandleTyping websocket.Relay实现
func (s *RelayService) HandleTyping(senderID, receiverID uint, isTyping bool) {
	s.Typing(senderID, receiverID, isTyping)
}
