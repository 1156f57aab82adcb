package handler

import (
	"strconv"

	"duochat/internal/service"
	"duochat/pkg/jwt"
	"duochat/pkg/logger"
	"duochat/pkg/redis"
	"duochat/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler 用户接口处理器
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler 创建UserHandler实例
func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), r.Username, r.Email, r.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", &response.RegisterResponse{
		User:        response.FilterUserInfo(user),
		AccessToken: token,
	})
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
		Password        string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), r.UsernameOrEmail, r.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", &response.LoginResponse{
		User:        response.FilterUserInfo(user),
		AccessToken: token,
	})
}

// List 获取用户列表（除自己外，不含密码哈希）
func (h *UserHandler) List(c *gin.Context) {
	selfID := jwt.GetUserID(c)

	users, err := h.service.ListUsers(c.Request.Context(), selfID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, response.FilterUserList(users))
}

// Get 获取指定用户资料
func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), uint(id))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, response.FilterUserInfo(user))
}

// Update 更新用户资料
// 载荷为原始JSON对象，白名单外的字段在service层整体拒绝
func (h *UserHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), uint(id), fields)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "资料更新成功", response.FilterUserInfo(user))
}

// Online 获取当前在线用户（Redis在线镜像）
func (h *UserHandler) Online(c *gin.Context) {
	presences, err := redis.GetOnlineUsersWithDetails()
	if err != nil {
		logger.Warn("获取在线用户失败", zap.Error(err))
		response.InternalError(c, "在线状态暂不可用")
		return
	}

	response.Success(c, presences)
}
