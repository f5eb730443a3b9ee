package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "/ws", cfg.WebSocket.Path)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.Equal(t, time.Duration(0), cfg.WebSocket.IdleTimeout, "таймаут простоя по умолчанию выключен")
	assert.Equal(t, 54*time.Second, cfg.WebSocket.PingPeriod())
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv("WS_IDLE_TIMEOUT", "90s")
	t.Setenv("WS_SEND_BUFFER", "16")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("WS_FRAME_RATE", "not-a-number")

	cfg := New()

	assert.Equal(t, 90*time.Second, cfg.WebSocket.IdleTimeout)
	assert.Equal(t, 16, cfg.WebSocket.SendBuffer)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, float64(5), cfg.WebSocket.FrameRate)
}

func TestNew_OriginsList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.org, ,http://localhost:5173")

	cfg := New()

	assert.Equal(t, []string{"https://app.example.org", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Internal.Enabled())
}
