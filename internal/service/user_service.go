package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"duochat/internal/model"
	"duochat/pkg/jwt"
	"duochat/pkg/password"
)

// UserService 用户服务：注册、登录、资料查询与更新
type UserService struct {
	repo       UserStore
	jwtService *jwt.JWTService
}

// NewUserService 创建UserService实例
func NewUserService(repo UserStore, jwtService *jwt.JWTService) *UserService {
	return &UserService{repo: repo, jwtService: jwtService}
}

// Register 注册，成功后直接签发token
func (s *UserService) Register(ctx context.Context, username, email, plainPassword string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || plainPassword == "" {
		return nil, "", fmt.Errorf("%w: username and password are required", model.ErrValidation)
	}

	// 密码哈希
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Theme:        "light",
		Status:       "offline",
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login 登录
// 用户不存在与密码错误返回同一认证错误，不泄露账号是否存在
func (s *UserService) Login(ctx context.Context, identifier, plainPassword string) (*model.User, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || plainPassword == "" {
		return nil, "", fmt.Errorf("%w: identifier and password are required", model.ErrValidation)
	}

	u, err := s.repo.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: invalid credentials", model.ErrAuthentication)
		}
		return nil, "", err
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return nil, "", fmt.Errorf("%w: invalid credentials", model.ErrAuthentication)
	}

	token, err := s.jwtService.GenerateToken(u.ID, u.Username)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// ListUsers 获取除自己外的全部用户
func (s *UserService) ListUsers(ctx context.Context, selfID uint) ([]*model.User, error) {
	return s.repo.ListOthers(ctx, selfID)
}

// GetUser 根据ID获取用户
func (s *UserService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile 更新用户资料
// 只接受白名单内的字段，出现任何其他字段则整个请求拒绝、记录保持不变
func (s *UserService) UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) (*model.User, error) {
	for key := range fields {
		if !model.ProfileFields[key] {
			return nil, fmt.Errorf("%w: field %q is not updatable", model.ErrValidation, key)
		}
	}

	if username, ok := fields["username"]; ok {
		name, _ := username.(string)
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: username must not be empty", model.ErrValidation)
		}
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(ctx, id)
}
