package websocket

import "duochat/pkg/response"

// 事件类型
// 入站（客户端→服务端）：sendMessage / messageSeen / typing / heartbeat
// 出站（服务端→客户端）：message / messageSeenUpdate / typing
const (
	EventSendMessage = "sendMessage"
	EventMessageSeen = "messageSeen"
	EventTyping      = "typing"
	EventHeartbeat   = "heartbeat"

	EventMessage    = "message"
	EventSeenUpdate = "messageSeenUpdate"
)

// InboundEvent 入站事件信封
// 扁平结构，按Type取用对应字段
type InboundEvent struct {
	Type string `json:"type"`

	// sendMessage
	Content  string `json:"content,omitempty"`
	Receiver uint   `json:"receiver,omitempty"`

	// messageSeen
	MessageID uint `json:"message_id,omitempty"`

	// typing
	ReceiverID uint `json:"receiver_id,omitempty"`
	IsTyping   bool `json:"is_typing,omitempty"`
}

// MessageEvent 消息事件：发送方回执和接收方推送共用同一形态
type MessageEvent struct {
	Type    string                `json:"type"`
	Message *response.MessageInfo `json:"message"`
}

// NewMessageEvent 构造消息事件
func NewMessageEvent(msg *response.MessageInfo) *MessageEvent {
	return &MessageEvent{Type: EventMessage, Message: msg}
}

// TypingEvent 输入状态事件，UserID为正在输入的一方
type TypingEvent struct {
	Type     string `json:"type"`
	UserID   uint   `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// NewTypingEvent 构造输入状态事件
func NewTypingEvent(userID uint, isTyping bool) *TypingEvent {
	return &TypingEvent{Type: EventTyping, UserID: userID, IsTyping: isTyping}
}

// SeenUpdateEvent 已读回执事件，推送给原消息的发送者
type SeenUpdateEvent struct {
	Type      string `json:"type"`
	MessageID uint   `json:"message_id"`
	Seen      bool   `json:"seen"`
}

// NewSeenUpdateEvent 构造已读回执事件
func NewSeenUpdateEvent(messageID uint) *SeenUpdateEvent {
	return &SeenUpdateEvent{Type: EventSeenUpdate, MessageID: messageID, Seen: true}
}
