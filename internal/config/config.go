// Package config loads runtime configuration from the environment, applying
// sane defaults so the server starts with no configuration at all.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the corresponding variable is unset or invalid.
const (
	DefaultListenAddr   = "127.0.0.1:5555"
	DefaultDBDriver     = "sqlite"
	DefaultDBDSN        = "chat_data.db"
	DefaultHistoryLimit = 50
	DefaultMaxFileBytes = 8 << 20
	DefaultSendBuffer   = 256
	DefaultTokenTTL     = 72 * time.Hour
	DefaultTokenSecret  = "cipherchat-dev-secret"
)

// DefaultSeedRooms are the rooms that exist before anyone joins anything.
var DefaultSeedRooms = []string{"General", "Random", "Tech"}

// Config holds all runtime settings for the chat server.
type Config struct {
	// ListenAddr is the host:port the HTTP/WebSocket listener binds to.
	ListenAddr string
	// DBDriver selects the persistence backend: "sqlite" or "postgres".
	DBDriver string
	// DBDSN is the driver-specific connection string.
	DBDSN string
	// RedisAddr enables the recent-history cache when non-empty.
	RedisAddr string
	// SeedRooms are pre-created on startup.
	SeedRooms []string
	// HistoryLimit bounds how many recent messages are replayed on join.
	HistoryLimit int
	// MaxFileBytes caps the encoded size of an inline file payload.
	MaxFileBytes int64
	// SendBuffer is the per-client outbound frame buffer; a client whose
	// buffer fills up is treated as failed and disconnected.
	SendBuffer int
	// TokenSecret signs resume tokens.
	TokenSecret string
	// TokenTTL bounds resume token lifetime.
	TokenTTL time.Duration
}

// Load reads configuration from CHAT_* environment variables, falling back to
// defaults for anything unset or unparsable.
func Load() Config {
	cfg := Config{
		ListenAddr:   getEnv("CHAT_LISTEN_ADDR", DefaultListenAddr),
		DBDriver:     strings.ToLower(getEnv("CHAT_DB_DRIVER", DefaultDBDriver)),
		DBDSN:        getEnv("CHAT_DB_DSN", DefaultDBDSN),
		RedisAddr:    os.Getenv("CHAT_REDIS_ADDR"),
		SeedRooms:    getEnvList("CHAT_SEED_ROOMS", DefaultSeedRooms),
		HistoryLimit: getEnvInt("CHAT_HISTORY_LIMIT", DefaultHistoryLimit),
		MaxFileBytes: getEnvInt64("CHAT_MAX_FILE_BYTES", DefaultMaxFileBytes),
		SendBuffer:   getEnvInt("CHAT_SEND_BUFFER", DefaultSendBuffer),
		TokenSecret:  getEnv("CHAT_JWT_SECRET", DefaultTokenSecret),
		TokenTTL:     getEnvDuration("CHAT_JWT_TTL", DefaultTokenTTL),
	}
	return sanitize(cfg)
}

func sanitize(cfg Config) Config {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		cfg.DBDriver = DefaultDBDriver
	}
	if cfg.DBDSN == "" {
		cfg.DBDSN = DefaultDBDSN
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	return cfg
}

// MaxFrameBytes is the websocket read limit: the largest file payload plus
// headroom for the JSON envelope and GCM overhead.
func (c Config) MaxFrameBytes() int64 {
	return c.MaxFileBytes + 64*1024
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
