package repository

import (
	"context"
	"errors"
	"fmt"

	"duochat/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 消息数据仓储
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建消息（ID与时间戳由存储生成）
func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return nil
}

// GetByID 根据ID获取消息
func (r *MessageRepository) GetByID(ctx context.Context, id uint) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return &message, nil
}

// GetConversation 获取两个用户之间的全部私信，按时间升序
func (r *MessageRepository) GetConversation(ctx context.Context, userID, otherUserID uint) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userID, otherUserID, otherUserID, userID,
	).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return messages, nil
}

// MarkSeen 标记消息为已读（false→true的单向转换，重复标记无副作用）
func (r *MessageRepository) MarkSeen(ctx context.Context, messageID uint) error {
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", messageID).
		Update("seen", true).Error
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return nil
}

// GetUnreadCount 统计用户收到的未读消息数量
func (r *MessageRepository) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("receiver_id = ? AND seen = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return count, nil
}
