package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/pkg/response"
)

func TestInboundEventDecoding(t *testing.T) {
	t.Run("SendMessage", func(t *testing.T) {
		var ev InboundEvent
		require.NoError(t, json.Unmarshal(
			[]byte(`{"type":"sendMessage","content":"hi","receiver":2}`), &ev))
		assert.Equal(t, EventSendMessage, ev.Type)
		assert.Equal(t, "hi", ev.Content)
		assert.Equal(t, uint(2), ev.Receiver)
	})

	t.Run("MessageSeen", func(t *testing.T) {
		var ev InboundEvent
		require.NoError(t, json.Unmarshal(
			[]byte(`{"type":"messageSeen","message_id":7}`), &ev))
		assert.Equal(t, EventMessageSeen, ev.Type)
		assert.Equal(t, uint(7), ev.MessageID)
	})

	t.Run("Typing", func(t *testing.T) {
		var ev InboundEvent
		require.NoError(t, json.Unmarshal(
			[]byte(`{"type":"typing","receiver_id":2,"is_typing":true}`), &ev))
		assert.Equal(t, EventTyping, ev.Type)
		assert.Equal(t, uint(2), ev.ReceiverID)
		assert.True(t, ev.IsTyping)
	})

	t.Run("Heartbeat", func(t *testing.T) {
		var ev InboundEvent
		require.NoError(t, json.Unmarshal([]byte(`{"type":"heartbeat"}`), &ev))
		assert.Equal(t, EventHeartbeat, ev.Type)
	})
}

func TestOutboundEventShapes(t *testing.T) {
	t.Run("Message", func(t *testing.T) {
		ev := NewMessageEvent(&response.MessageInfo{
			ID: 7, Content: "hi", Sender: 1, Receiver: 2, Timestamp: 1700000000,
		})
		data, err := json.Marshal(ev)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "message", decoded["type"])
		body := decoded["message"].(map[string]interface{})
		assert.Equal(t, float64(7), body["id"])
		assert.Equal(t, false, body["seen"])
	})

	t.Run("SeenUpdate", func(t *testing.T) {
		data, err := json.Marshal(NewSeenUpdateEvent(7))
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "messageSeenUpdate", decoded["type"])
		assert.Equal(t, float64(7), decoded["message_id"])
		assert.Equal(t, true, decoded["seen"])
	})

	t.Run("Typing", func(t *testing.T) {
		data, err := json.Marshal(NewTypingEvent(1, true))
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "typing", decoded["type"])
		assert.Equal(t, float64(1), decoded["user_id"])
		assert.Equal(t, true, decoded["is_typing"])
	})
}

func TestClientDeliver(t *testing.T) {
	client := NewClient(1, nil, 2)

	assert.True(t, client.Deliver([]byte("a")))
	assert.True(t, client.Deliver([]byte("b")))
	// 缓冲满：投递失败而不是阻塞
	assert.False(t, client.Deliver([]byte("c")))

	client.Close()
	client.Close() // 重复关闭安全

	// 关闭后投递按失败处理
	assert.False(t, client.Deliver([]byte("d")))
}
