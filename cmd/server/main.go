package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cipherchat/backend/internal/api/handler"
	"cipherchat/backend/internal/auth"
	"cipherchat/backend/internal/chathub"
	"cipherchat/backend/internal/config"
	"cipherchat/backend/internal/secure"
	"cipherchat/backend/internal/storage"
)

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	// TranslateError maps driver-specific unique violations onto
	// gorm.ErrDuplicatedKey, which the store relies on for deterministic
	// duplicate-registration outcomes.
	gormCfg := &gorm.Config{TranslateError: true}
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DBDSN), gormCfg)
	default:
		return gorm.Open(sqlite.Open(cfg.DBDSN), gormCfg)
	}
}

func openHistoryCache(cfg config.Config) *storage.HistoryCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The cache is an accelerator only; run without it.
		log.Printf("WARNING: Redis at %s unreachable, history cache disabled: %v", cfg.RedisAddr, err)
		return nil
	}
	return storage.NewHistoryCache(rdb, cfg.HistoryLimit)
}

func main() {
	log.Println("Starting CipherChat server...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded")
	}
	cfg := config.Load()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect database (%s): %v", cfg.DBDriver, err)
	}

	store := storage.NewService(db, openHistoryCache(cfg), cfg.SeedRooms)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	key, err := secure.NewKey()
	if err != nil {
		log.Fatalf("Failed to generate session key: %v", err)
	}
	codec, err := secure.NewCodec(key)
	if err != nil {
		log.Fatalf("Failed to build codec: %v", err)
	}

	registry := chathub.NewRegistry(cfg.SeedRooms)
	broadcast := chathub.NewBroadcaster(registry, codec)
	tokens := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)

	r := gin.Default()
	h := handler.NewHandler(codec, store, registry, broadcast, tokens, cfg)
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/healthz", h.Health)

	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Listener failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
