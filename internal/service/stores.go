package service

import (
	"context"

	"duochat/internal/model"
)

// UserStore 用户存储接口（internal/repository.UserRepository实现）
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	ListOthers(ctx context.Context, selfID uint) ([]*model.User, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	UpdateStatus(ctx context.Context, id uint, status string) error
}

// MessageStore 消息存储接口（internal/repository.MessageRepository实现）
type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
	GetByID(ctx context.Context, id uint) (*model.Message, error)
	GetConversation(ctx context.Context, userID, otherUserID uint) ([]*model.Message, error)
	MarkSeen(ctx context.Context, messageID uint) error
	GetUnreadCount(ctx context.Context, userID uint) (int64, error)
}
