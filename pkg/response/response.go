package response

import (
	"errors"
	"net/http"

	"duochat/internal/model"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`           // 状态码：0表示成功，其他表示错误
	Message string      `json:"message"`        // 响应消息
	Data    interface{} `json:"data,omitempty"` // 响应数据
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, 401, message)
}

// NotFound 404错误
func NotFound(c *gin.Context, message string) {
	Error(c, 404, message)
}

// InternalError 500错误
func InternalError(c *gin.Context, message string) {
	Error(c, 500, message)
}

// FromError 按错误分类映射为对应的错误响应
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrAuthentication):
		Unauthorized(c, err.Error())
	case errors.Is(err, model.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, model.ErrNotFound):
		NotFound(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// UserInfo 用户信息（隐藏密码哈希等敏感字段）
type UserInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	Avatar    string `json:"avatar"`
	Theme     string `json:"theme"`
	Status    string `json:"status"`
	LastSeen  string `json:"last_seen"`
	CreatedAt string `json:"created_at"`
}

// FilterUserInfo 过滤用户信息，隐藏敏感字段
func FilterUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}

	return &UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Bio:       user.Bio,
		Avatar:    user.Avatar,
		Theme:     user.Theme,
		Status:    user.Status,
		LastSeen:  user.LastSeen.Format("2006-01-02 15:04:05"),
		CreatedAt: user.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// FilterUserList 批量过滤用户信息
func FilterUserList(users []*model.User) []*UserInfo {
	infos := make([]*UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, FilterUserInfo(u))
	}
	return infos
}

// LoginResponse 登录响应
type LoginResponse struct {
	User        *UserInfo `json:"user"`
	AccessToken string    `json:"access_token"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	User        *UserInfo `json:"user"`
	AccessToken string    `json:"access_token"`
}

// MessageInfo 消息响应（与实时message事件共用同一持久化形态）
type MessageInfo struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	Sender    uint   `json:"sender"`
	Receiver  uint   `json:"receiver"`
	Timestamp int64  `json:"timestamp"`
	Seen      bool   `json:"seen"`
}

// FilterMessageInfo 过滤消息信息
func FilterMessageInfo(message *model.Message) *MessageInfo {
	if message == nil {
		return nil
	}

	return &MessageInfo{
		ID:        message.ID,
		Content:   message.Content,
		Sender:    message.SenderID,
		Receiver:  message.ReceiverID,
		Timestamp: message.CreatedAt.Unix(),
		Seen:      message.Seen,
	}
}

// FilterMessageList 批量过滤消息信息
func FilterMessageList(messages []*model.Message) []*MessageInfo {
	infos := make([]*MessageInfo, 0, len(messages))
	for _, m := range messages {
		infos = append(infos, FilterMessageInfo(m))
	}
	return infos
}
