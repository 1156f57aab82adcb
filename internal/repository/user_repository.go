package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duochat/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户数据仓储
type UserRepository struct {
	orm *gorm.DB
}

// NewUserRepository 创建UserRepository实例
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{orm: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.orm.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return nil
}

// GetByID 根据ID获取用户
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := r.orm.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return &u, nil
}

// GetByUsernameOrEmail 根据用户名或邮箱获取用户（登录用）
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	var u model.User
	err := r.orm.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %q", model.ErrNotFound, identifier)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return &u, nil
}

// ListOthers 获取除指定用户外的全部用户（会话列表用）
func (r *UserRepository) ListOthers(ctx context.Context, selfID uint) ([]*model.User, error) {
	var users []*model.User
	err := r.orm.WithContext(ctx).
		Where("id <> ?", selfID).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return users, nil
}

// UpdateFields 按字段更新用户资料
// 字段白名单校验在service层完成，这里只负责落库
func (r *UserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.orm.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", model.ErrNotFound, id)
	}
	return nil
}

// UpdateStatus 更新用户在线状态与最近在线时间
func (r *UserRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	err := r.orm.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    status,
			"last_seen": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return nil
}
