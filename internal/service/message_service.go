package service

import (
	"context"

	"duochat/internal/model"
	"duochat/pkg/logger"
	"duochat/pkg/redis"

	"go.uber.org/zap"
)

// MessageService 消息查询服务（HTTP侧）
// 实时收发走RelayService，这里只承担历史与统计
type MessageService struct {
	messageRepo MessageStore
	userRepo    UserStore
}

// NewMessageService 创建MessageService实例
func NewMessageService(messageRepo MessageStore, userRepo UserStore) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

// GetConversation 获取与指定用户的私信历史，按时间升序
// 离线期间收到的消息只能通过这里补齐（没有重连推送）
func (s *MessageService) GetConversation(ctx context.Context, userID, otherUserID uint) ([]*model.Message, error) {
	// 对方必须存在
	if _, err := s.userRepo.GetByID(ctx, otherUserID); err != nil {
		return nil, err
	}

	return s.messageRepo.GetConversation(ctx, userID, otherUserID)
}

// GetUnreadCount 获取未读消息数量（优先Redis，未命中回源数据库）
func (s *MessageService) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := redis.GetUnreadCount(userID)
	if err == nil && count >= 0 {
		return count, nil
	}

	dbCount, err := s.messageRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	// 回源后同步到Redis
	if err := redis.SetUnreadCount(userID, dbCount); err != nil {
		logger.Debug("同步未读计数到Redis失败", zap.Uint("user_id", userID), zap.Error(err))
	}

	return dbCount, nil
}
