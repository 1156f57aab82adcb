package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/config"
)

func TestNewHandlerDefaultsMissingTimings(t *testing.T) {
	// 配置文件缺少relay段时时间参数为零值，必须回退到默认值
	h := NewHandler(nil, nil, nil, config.RelayConfig{})

	assert.Positive(t, h.cfg.PingInterval)
	assert.Positive(t, h.cfg.ReadTimeout)

	// 写协程以回退后的间隔启动不得panic（零间隔会让NewTicker直接panic）
	client := NewClient(1, nil, 1)
	client.Close()
	done := make(chan struct{})
	require.NotPanics(t, func() {
		client.writePump(h.cfg.PingInterval, done)
	})
	<-done
}

func TestNewHandlerKeepsConfiguredTimings(t *testing.T) {
	h := NewHandler(nil, nil, nil, config.RelayConfig{
		PingInterval: 10 * time.Second,
		ReadTimeout:  25 * time.Second,
	})

	assert.Equal(t, 10*time.Second, h.cfg.PingInterval)
	assert.Equal(t, 25*time.Second, h.cfg.ReadTimeout)
}
