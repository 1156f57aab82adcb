package handler

import (
	"strconv"

	"duochat/internal/service"
	"duochat/pkg/jwt"
	"duochat/pkg/response"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息接口处理器
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler 创建MessageHandler实例
func NewMessageHandler(s *service.MessageService) *MessageHandler {
	return &MessageHandler{service: s}
}

// GetConversation 获取与指定用户的私信历史（按时间升序）
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userID := jwt.GetUserID(c)

	otherID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	messages, err := h.service.GetConversation(c.Request.Context(), userID, uint(otherID))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, response.FilterMessageList(messages))
}

// GetUnreadCount 获取未读消息数量
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	userID := jwt.GetUserID(c)

	count, err := h.service.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"unread_count": count})
}
