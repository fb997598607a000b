package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "web-final-project", cfg.MongoDB)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(64*1024), cfg.WSReadLimit)
	assert.Equal(t, 30*time.Second, cfg.WSPingInterval)
	assert.Equal(t, 60*time.Second, cfg.WSPongTimeout)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("WS_PING_INTERVAL", "10s")
	t.Setenv("WS_READ_LIMIT_BYTES", "1024")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, "nats://broker:4222", cfg.NATSURL)
	assert.Equal(t, 10*time.Second, cfg.WSPingInterval)
	assert.Equal(t, int64(1024), cfg.WSReadLimit)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.WSAllowedOrigins)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WS_PING_INTERVAL", "soon")
	t.Setenv("RATE_LIMIT_REQUESTS", "lots")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.WSPingInterval)
	assert.Equal(t, 60, cfg.RateLimitRequests)
}
