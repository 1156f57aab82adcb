package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"duochat/internal/model"
	"duochat/internal/service"
	"duochat/pkg/presence"
)

// ---- mocks ----

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Create(ctx context.Context, message *model.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageStore) GetByID(ctx context.Context, id uint) (*model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageStore) GetConversation(ctx context.Context, userID, otherUserID uint) ([]*model.Message, error) {
	args := m.Called(ctx, userID, otherUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockMessageStore) MarkSeen(ctx context.Context, messageID uint) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MockMessageStore) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) GetByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) ListOthers(ctx context.Context, selfID uint) ([]*model.User, error) {
	args := m.Called(ctx, selfID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserStore) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockUserStore) UpdateStatus(ctx context.Context, id uint, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// recordConn 记录投递载荷的连接替身
type recordConn struct {
	payloads [][]byte
	closed   bool
}

func (c *recordConn) Deliver(payload []byte) bool {
	c.payloads = append(c.payloads, payload)
	return true
}

func (c *recordConn) Close() { c.closed = true }

func (c *recordConn) events(t *testing.T) []map[string]interface{} {
	t.Helper()
	out := make([]map[string]interface{}, 0, len(c.payloads))
	for _, p := range c.payloads {
		var ev map[string]interface{}
		require.NoError(t, json.Unmarshal(p, &ev))
		out = append(out, ev)
	}
	return out
}

func newRelay(messages *MockMessageStore, users *MockUserStore) (*service.RelayService, *presence.MemoryRegistry) {
	registry := presence.NewMemoryRegistry()
	return service.NewRelayService(messages, users, registry, time.Second), registry
}

// ---- sendMessage ----

func TestSendMessagePersistsAndEchoes(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, registry := newRelay(messages, users)

	sender := &recordConn{}
	registry.Register(1, sender)

	users.On("GetByID", mock.Anything, uint(2)).Return(&model.User{ID: 2, Username: "bob"}, nil)
	messages.On("Create", mock.Anything, mock.AnythingOfType("*model.Message")).
		Run(func(args mock.Arguments) {
			// 存储生成ID与时间戳
			msg := args.Get(1).(*model.Message)
			msg.ID = 7
			msg.CreatedAt = time.Now()
		}).
		Return(nil).Once()

	msg, err := relay.SendMessage(1, "hi", 2)
	require.NoError(t, err)

	// 恰好持久化一条，seen=false，原样返回
	require.NotNil(t, msg)
	assert.Equal(t, uint(7), msg.ID)
	assert.Equal(t, uint(1), msg.SenderID)
	assert.Equal(t, uint(2), msg.ReceiverID)
	assert.Equal(t, "hi", msg.Content)
	assert.False(t, msg.Seen)
	messages.AssertNumberOfCalls(t, "Create", 1)

	// 回执送回发送方连接
	events := sender.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, "message", events[0]["type"])
	body := events[0]["message"].(map[string]interface{})
	assert.Equal(t, "hi", body["content"])
	assert.Equal(t, float64(1), body["sender"])
	assert.Equal(t, false, body["seen"])
}

func TestSendMessageDeliversToPresentReceiver(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, registry := newRelay(messages, users)

	sender := &recordConn{}
	receiver := &recordConn{}
	registry.Register(1, sender)
	registry.Register(2, receiver)

	users.On("GetByID", mock.Anything, uint(2)).Return(&model.User{ID: 2}, nil)
	messages.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*model.Message).ID = 8 }).
		Return(nil)

	_, err := relay.SendMessage(1, "hello", 2)
	require.NoError(t, err)

	// 在线的接收方恰好收到一条推送
	events := receiver.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, "message", events[0]["type"])
	body := events[0]["message"].(map[string]interface{})
	assert.Equal(t, "hello", body["content"])
	assert.Equal(t, float64(1), body["sender"])
}

func TestSendMessageAbsentReceiverOnlyPersists(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, registry := newRelay(messages, users)

	sender := &recordConn{}
	registry.Register(1, sender)
	// 接收方未注册

	users.On("GetByID", mock.Anything, uint(2)).Return(&model.User{ID: 2}, nil)
	messages.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*model.Message).ID = 9 }).
		Return(nil)

	msg, err := relay.SendMessage(1, "offline msg", 2)
	require.NoError(t, err)

	// 仅持久化（无滞留队列），发送方仍收到回执
	assert.Equal(t, uint(9), msg.ID)
	messages.AssertNumberOfCalls(t, "Create", 1)
	assert.Len(t, sender.payloads, 1)
}

func TestSendMessageValidation(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, _ := newRelay(messages, users)

	t.Run("EmptyContent", func(t *testing.T) {
		_, err := relay.SendMessage(1, "   ", 2)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("SelfSend", func(t *testing.T) {
		_, err := relay.SendMessage(1, "hi", 1)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("UnknownReceiver", func(t *testing.T) {
		users.On("GetByID", mock.Anything, uint(99)).Return(nil, model.ErrNotFound)
		_, err := relay.SendMessage(1, "hi", 99)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	// 校验失败时不写存储
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ---- markSeen ----

func TestMarkSeenNotifiesSender(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, registry := newRelay(messages, users)

	sender := &recordConn{}
	registry.Register(1, sender)

	stored := &model.Message{ID: 7, SenderID: 1, ReceiverID: 2, Content: "hi", Seen: false}
	messages.On("GetByID", mock.Anything, uint(7)).Return(stored, nil)
	messages.On("MarkSeen", mock.Anything, uint(7)).Return(nil).Once()

	err := relay.MarkSeen(2, 7)
	require.NoError(t, err)

	// 原发送者收到已读回执
	events := sender.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, "messageSeenUpdate", events[0]["type"])
	assert.Equal(t, float64(7), events[0]["message_id"])
	assert.Equal(t, true, events[0]["seen"])
}

func TestMarkSeenIdempotent(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, registry := newRelay(messages, users)

	sender := &recordConn{}
	registry.Register(1, sender)

	stored := &model.Message{ID: 7, SenderID: 1, ReceiverID: 2, Seen: false}
	messages.On("GetByID", mock.Anything, uint(7)).Return(stored, nil)
	messages.On("MarkSeen", mock.Anything, uint(7)).Return(nil).Once()

	require.NoError(t, relay.MarkSeen(2, 7))
	// 第一次调用已把内存中的消息置为已读，重复调用不得报错也不再落库
	require.NoError(t, relay.MarkSeen(2, 7))

	messages.AssertNumberOfCalls(t, "MarkSeen", 1)
}

func TestMarkSeenAbsentSender(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, _ := newRelay(messages, users)

	stored := &model.Message{ID: 7, SenderID: 1, ReceiverID: 2, Seen: false}
	messages.On("GetByID", mock.Anything, uint(7)).Return(stored, nil)
	messages.On("MarkSeen", mock.Anything, uint(7)).Return(nil)

	// 发送者不在线：状态照常落库，通知直接丢弃
	assert.NoError(t, relay.MarkSeen(2, 7))
}

func TestMarkSeenUnknownMessage(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, _ := newRelay(messages, users)

	messages.On("GetByID", mock.Anything, uint(404)).Return(nil, model.ErrNotFound)

	err := relay.MarkSeen(2, 404)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// HandleSeen吞掉错误，不得panic
	relay.HandleSeen(2, 404)
}

// ---- typing ----

func TestTypingForwardsWithoutPersisting(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, registry := newRelay(messages, users)

	receiver := &recordConn{}
	registry.Register(2, receiver)

	relay.Typing(1, 2, true)
	relay.Typing(1, 2, false)
	relay.Typing(1, 99, true) // 不在线，丢弃

	events := receiver.events(t)
	require.Len(t, events, 2)
	assert.Equal(t, "typing", events[0]["type"])
	assert.Equal(t, float64(1), events[0]["user_id"])
	assert.Equal(t, true, events[0]["is_typing"])
	assert.Equal(t, false, events[1]["is_typing"])

	// 任何typing序列都不触碰消息存储
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	messages.AssertNotCalled(t, "MarkSeen", mock.Anything, mock.Anything)
}

// ---- 端到端场景：A发给B，B标记已读，A收到已读回执 ----

func TestSendThenSeenRoundTrip(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, registry := newRelay(messages, users)

	userA := &recordConn{}
	userB := &recordConn{}
	registry.Register(1, userA)
	registry.Register(2, userB)

	var stored *model.Message
	users.On("GetByID", mock.Anything, uint(2)).Return(&model.User{ID: 2}, nil)
	messages.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*model.Message)
			stored.ID = 11
			stored.CreatedAt = time.Now()
		}).
		Return(nil)

	msg, err := relay.SendMessage(1, "hi", 2)
	require.NoError(t, err)

	// B收到message事件：content=hi sender=1 seen=false
	bEvents := userB.events(t)
	require.Len(t, bEvents, 1)
	body := bEvents[0]["message"].(map[string]interface{})
	assert.Equal(t, "hi", body["content"])
	assert.Equal(t, float64(1), body["sender"])
	assert.Equal(t, false, body["seen"])

	// B标记已读
	messages.On("GetByID", mock.Anything, uint(11)).Return(stored, nil)
	messages.On("MarkSeen", mock.Anything, uint(11)).Return(nil)
	require.NoError(t, relay.MarkSeen(2, msg.ID))

	// A（原发送者）收到messageSeenUpdate，B没有额外事件
	aEvents := userA.events(t)
	require.Len(t, aEvents, 2) // 发送回执 + 已读回执
	assert.Equal(t, "messageSeenUpdate", aEvents[1]["type"])
	assert.Equal(t, float64(11), aEvents[1]["message_id"])
	assert.Len(t, userB.payloads, 1)
}

// 确保错误包装不破坏分类判断
func TestStoreFailureSurfacesAsError(t *testing.T) {
	messages := new(MockMessageStore)
	users := new(MockUserStore)
	relay, _ := newRelay(messages, users)

	users.On("GetByID", mock.Anything, uint(2)).Return(&model.User{ID: 2}, nil)
	messages.On("Create", mock.Anything, mock.Anything).
		Return(errors.Join(model.ErrPersistence, errors.New("disk full")))

	_, err := relay.SendMessage(1, "hi", 2)
	assert.ErrorIs(t, err, model.ErrPersistence)
}
