// Package storage is the durable record of registered users and room message
// history. It guarantees its own internal consistency: all methods are safe
// to call concurrently from any number of connection handlers.
package storage

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cipherchat/backend/internal/models"
)

// ErrDuplicateUsername is returned when a registration loses the uniqueness
// race: exactly one concurrent registration of a name succeeds, every other
// one observes this error.
var ErrDuplicateUsername = errors.New("username already exists")

// Storage is the persistence contract the chat core depends on.
type Storage interface {
	// RegisterUser stores a new account with a bcrypt hash of the password.
	RegisterUser(username, password string) error
	// Authenticate recomputes the hash and compares; false on unknown user
	// or wrong password.
	Authenticate(username, password string) bool
	// AppendMessage durably records one message. Existing rows are never
	// mutated or removed.
	AppendMessage(author, room, body, kind string) error
	// History returns up to limit most recent messages of a room in
	// chronological order (oldest first).
	History(room string, limit int) ([]models.HistoryEntry, error)
	// RoomNames lists every room known to the store, seeded rooms included.
	RoomNames() ([]string, error)
}

// Service implements Storage on a gorm database, with an optional Redis
// cache in front of history reads.
type Service struct {
	db        *gorm.DB
	cache     *HistoryCache
	seedRooms []string
}

// NewService wires a Service. cache may be nil, in which case every history
// read goes to the database.
func NewService(db *gorm.DB, cache *HistoryCache, seedRooms []string) *Service {
	return &Service{
		db:        db,
		cache:     cache,
		seedRooms: append([]string(nil), seedRooms...),
	}
}

// Migrate creates or updates the users and messages tables.
func (s *Service) Migrate() error {
	if err := s.db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping reports whether the underlying database is reachable.
func (s *Service) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Service) RegisterUser(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Username: username, PasswordHash: string(hash)}
	if err := s.db.Create(&user).Error; err != nil {
		// The unique index decides registration races deterministically.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}

func (s *Service) Authenticate(username, password string) bool {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("ERROR: authenticate %s: %v", username, err)
		}
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *Service) AppendMessage(author, room, body, kind string) error {
	msg := models.Message{Username: author, Room: room, Body: body, Kind: kind}
	if err := s.db.Create(&msg).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	// Cache writes are best effort; a cold or absent cache just means the
	// next history read hits the database.
	s.cache.Push(room, msg.AsHistoryEntry())
	return nil
}

func (s *Service) History(room string, limit int) ([]models.HistoryEntry, error) {
	if entries, ok := s.cache.Recent(room, limit); ok {
		return entries, nil
	}

	var rows []models.Message
	err := s.db.Where("room = ?", room).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	// The query returns newest first; reverse so callers always see
	// chronological order.
	entries := make([]models.HistoryEntry, len(rows))
	for i, row := range rows {
		entries[len(rows)-1-i] = row.AsHistoryEntry()
	}
	s.cache.Prime(room, entries)
	return entries, nil
}

func (s *Service) RoomNames() ([]string, error) {
	var names []string
	err := s.db.Model(&models.Message{}).Distinct("room").Pluck("room", &names).Error
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	seen := make(map[string]struct{}, len(s.seedRooms)+len(names))
	merged := make([]string, 0, len(s.seedRooms)+len(names))
	for _, name := range s.seedRooms {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			merged = append(merged, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			merged = append(merged, name)
		}
	}
	return merged, nil
}
