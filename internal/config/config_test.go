package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cipherchat/backend/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, config.DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, config.DefaultDBDSN, cfg.DBDSN)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, config.DefaultSeedRooms, cfg.SeedRooms)
	assert.Equal(t, config.DefaultHistoryLimit, cfg.HistoryLimit)
	assert.Equal(t, int64(config.DefaultMaxFileBytes), cfg.MaxFileBytes)
	assert.Equal(t, config.DefaultTokenTTL, cfg.TokenTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHAT_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("CHAT_DB_DRIVER", "Postgres")
	t.Setenv("CHAT_DB_DSN", "host=db user=chat dbname=chat")
	t.Setenv("CHAT_REDIS_ADDR", "localhost:6379")
	t.Setenv("CHAT_SEED_ROOMS", "Lobby, Dev ,Ops")
	t.Setenv("CHAT_HISTORY_LIMIT", "10")
	t.Setenv("CHAT_MAX_FILE_BYTES", "1024")
	t.Setenv("CHAT_JWT_TTL", "24h")

	cfg := config.Load()

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "host=db user=chat dbname=chat", cfg.DBDSN)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"Lobby", "Dev", "Ops"}, cfg.SeedRooms)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, int64(1024), cfg.MaxFileBytes)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
}

func TestLoad_SanitizesInvalidValues(t *testing.T) {
	t.Setenv("CHAT_DB_DRIVER", "oracle")
	t.Setenv("CHAT_HISTORY_LIMIT", "-3")
	t.Setenv("CHAT_MAX_FILE_BYTES", "not-a-number")
	t.Setenv("CHAT_JWT_TTL", "soon")

	cfg := config.Load()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, config.DefaultHistoryLimit, cfg.HistoryLimit)
	assert.Equal(t, int64(config.DefaultMaxFileBytes), cfg.MaxFileBytes)
	assert.Equal(t, config.DefaultTokenTTL, cfg.TokenTTL)
}

func TestConfig_MaxFrameBytes(t *testing.T) {
	t.Setenv("CHAT_MAX_FILE_BYTES", "1000")
	cfg := config.Load()

	// The websocket read limit leaves headroom for the JSON envelope.
	assert.Greater(t, cfg.MaxFrameBytes(), cfg.MaxFileBytes)
}
