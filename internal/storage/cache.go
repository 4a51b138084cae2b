package storage

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"cipherchat/backend/internal/models"
)

// HistoryCache keeps the recent tail of each room's message log in a Redis
// list so joins do not hit the database on every replay. It is strictly an
// accelerator: every method on a nil cache is a no-op or a miss, and any
// Redis failure silently degrades to database reads.
type HistoryCache struct {
	rdb   *redis.Client
	limit int
	ctx   context.Context
}

// NewHistoryCache builds a cache that retains up to limit entries per room.
func NewHistoryCache(rdb *redis.Client, limit int) *HistoryCache {
	return &HistoryCache{rdb: rdb, limit: limit, ctx: context.Background()}
}

func historyKey(room string) string {
	return "history:" + room
}

// Push appends one entry to a room's cached tail and trims it to the
// retention limit. Only called after the entry was durably stored.
func (c *HistoryCache) Push(room string, entry models.HistoryEntry) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.RPush(c.ctx, historyKey(room), payload)
	pipe.LTrim(c.ctx, historyKey(room), int64(-c.limit), -1)
	if _, err := pipe.Exec(c.ctx); err != nil {
		log.Printf("ERROR: history cache push for room %s: %v", room, err)
	}
}

// Recent returns up to limit cached entries in chronological order. The
// second return value is false on a miss (or when the cache is disabled), in
// which case the caller falls back to the database. An empty list is treated
// as a miss because it is indistinguishable from an unpopulated key.
func (c *HistoryCache) Recent(room string, limit int) ([]models.HistoryEntry, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.LRange(c.ctx, historyKey(room), int64(-limit), -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	entries := make([]models.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// A corrupt entry poisons the whole list; drop it and miss.
			c.rdb.Del(c.ctx, historyKey(room))
			return nil, false
		}
		entries = append(entries, entry)
	}
	return entries, true
}

// Prime replaces a room's cached tail with entries freshly loaded from the
// database, so subsequent joins of a busy room are served from Redis.
func (c *HistoryCache) Prime(room string, entries []models.HistoryEntry) {
	if c == nil || len(entries) == 0 {
		return
	}
	payloads := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			return
		}
		payloads = append(payloads, payload)
	}
	pipe := c.rdb.TxPipeline()
	pipe.Del(c.ctx, historyKey(room))
	pipe.RPush(c.ctx, historyKey(room), payloads...)
	pipe.LTrim(c.ctx, historyKey(room), int64(-c.limit), -1)
	if _, err := pipe.Exec(c.ctx); err != nil {
		log.Printf("ERROR: history cache prime for room %s: %v", room, err)
	}
}
