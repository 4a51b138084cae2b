package chathub

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cipherchat/backend/internal/auth"
	"cipherchat/backend/internal/models"
	"cipherchat/backend/internal/secure"
	"cipherchat/backend/internal/storage"
)

// Session is the per-connection protocol state machine. It moves through
// unauthenticated -> authenticated (no room) -> authenticated (in room), and
// Teardown is its single exit path regardless of how the connection dies.
//
// A Session is driven by exactly one goroutine (the connection's read loop),
// so its own fields need no locking; all shared state lives behind the
// registry and the store.
type Session struct {
	client    Client
	codec     *secure.Codec
	store     storage.Storage
	registry  *Registry
	broadcast *Broadcaster
	tokens    *auth.TokenManager

	historyLimit int
	maxFileBytes int64

	username string // empty until login
	room     string // empty until the first join
}

// NewSession builds the state machine for one connection.
func NewSession(client Client, codec *secure.Codec, store storage.Storage, registry *Registry, broadcast *Broadcaster, tokens *auth.TokenManager, historyLimit int, maxFileBytes int64) *Session {
	return &Session{
		client:       client,
		codec:        codec,
		store:        store,
		registry:     registry,
		broadcast:    broadcast,
		tokens:       tokens,
		historyLimit: historyLimit,
		maxFileBytes: maxFileBytes,
	}
}

// HandleFrame decrypts and dispatches one client frame. A non-nil error is
// fatal for this connection only: the caller must stop reading and run
// Teardown. Unknown actions are ignored so forward-compatible clients keep
// working against older servers.
func (s *Session) HandleFrame(ciphertext []byte) error {
	plaintext, err := s.codec.Decrypt(ciphertext)
	if err != nil {
		return fmt.Errorf("frame from %s: %w", s.client.RemoteAddr(), err)
	}

	var req models.Request
	if err := json.Unmarshal(plaintext, &req); err != nil {
		return fmt.Errorf("malformed frame from %s: %w", s.client.RemoteAddr(), err)
	}

	switch req.Action {
	case models.ActionRegister:
		return s.handleRegister(req)
	case models.ActionLogin:
		return s.handleLogin(req)
	case models.ActionResume:
		return s.handleResume(req)
	case models.ActionJoinRoom:
		return s.handleJoinRoom(req)
	case models.ActionSendMessage:
		return s.handleSendMessage(req)
	case models.ActionSendFile:
		return s.handleSendFile(req)
	default:
		return nil
	}
}

// Teardown removes the session from the registry, notifies the vacated room,
// and releases the connection. It is idempotent and runs on every exit path:
// clean close, protocol error, decrypt failure, or broadcast eviction.
func (s *Session) Teardown() {
	defer s.client.Close()

	if s.username == "" {
		return
	}
	room, remaining, ok := s.registry.Leave(s.username)
	if ok && room != "" {
		s.broadcast.Broadcast(room, models.UserLeft{
			Action:   models.ActionUserLeft,
			Username: s.username,
			Users:    remaining,
		}, s.username)
	}
	log.Printf("INFO: %s disconnected", s.username)
	s.username = ""
	s.room = ""
}

func (s *Session) handleRegister(req models.Request) error {
	resp := models.RegisterResponse{Action: models.ActionRegisterResponse}
	switch err := s.store.RegisterUser(req.Username, req.Password); {
	case err == nil:
		resp.Success = true
		resp.Message = "Registration successful!"
	case errors.Is(err, storage.ErrDuplicateUsername):
		resp.Message = "Username already exists!"
	default:
		log.Printf("ERROR: register %s: %v", req.Username, err)
		resp.Message = "Registration failed!"
	}
	return s.reply(resp)
}

func (s *Session) handleLogin(req models.Request) error {
	if s.username != "" {
		return s.reply(models.LoginResponse{Action: models.ActionLoginResponse, Message: "Already logged in!"})
	}
	if !s.store.Authenticate(req.Username, req.Password) {
		return s.reply(models.LoginResponse{Action: models.ActionLoginResponse, Message: "Invalid credentials!"})
	}
	return s.completeLogin(req.Username)
}

// handleResume authenticates with a resume token instead of a password, so a
// reconnecting client does not have to keep the password around.
func (s *Session) handleResume(req models.Request) error {
	if s.username != "" {
		return s.reply(models.LoginResponse{Action: models.ActionLoginResponse, Message: "Already logged in!"})
	}
	username, err := s.tokens.Verify(req.Token)
	if err != nil {
		return s.reply(models.LoginResponse{Action: models.ActionLoginResponse, Message: "Invalid or expired token!"})
	}
	return s.completeLogin(username)
}

func (s *Session) completeLogin(username string) error {
	if err := s.registry.Login(username, s.client); err != nil {
		if errors.Is(err, ErrAlreadyOnline) {
			return s.reply(models.LoginResponse{Action: models.ActionLoginResponse, Message: "User already online!"})
		}
		return err
	}
	s.username = username

	token, err := s.tokens.Issue(username)
	if err != nil {
		log.Printf("ERROR: issue resume token for %s: %v", username, err)
	}
	log.Printf("INFO: %s logged in from %s", username, s.client.RemoteAddr())
	return s.reply(models.LoginResponse{
		Action:  models.ActionLoginResponse,
		Success: true,
		Message: "Login successful!",
		Rooms:   s.knownRooms(),
		Token:   token,
	})
}

func (s *Session) handleJoinRoom(req models.Request) error {
	if s.username == "" {
		return s.reply(models.ErrorEvent{Action: models.ActionError, Message: "Not authenticated!"})
	}
	if req.Room == "" {
		return s.reply(models.ErrorEvent{Action: models.ActionError, Message: "Room name required!"})
	}

	members, prevRoom, prevRemaining, err := s.registry.JoinRoom(s.username, req.Room)
	if err != nil {
		return err
	}
	s.room = req.Room

	history, err := s.store.History(req.Room, s.historyLimit)
	if err != nil {
		// Replay is best effort; the member still joins the live room.
		log.Printf("ERROR: history for room %s: %v", req.Room, err)
		history = nil
	}
	if history == nil {
		history = []models.HistoryEntry{}
	}

	if err := s.reply(models.RoomJoined{
		Action:  models.ActionRoomJoined,
		Room:    req.Room,
		History: history,
		Users:   members,
	}); err != nil {
		return err
	}

	s.broadcast.Broadcast(req.Room, models.UserJoined{
		Action:   models.ActionUserJoined,
		Username: s.username,
		Room:     req.Room,
		Users:    members,
	}, s.username)

	if prevRoom != "" {
		s.broadcast.Broadcast(prevRoom, models.UserLeft{
			Action:   models.ActionUserLeft,
			Username: s.username,
			Users:    prevRemaining,
		}, s.username)
	}
	return nil
}

func (s *Session) handleSendMessage(req models.Request) error {
	if s.username == "" || s.room == "" {
		return s.reply(models.ErrorEvent{Action: models.ActionError, Message: "Join a room first!"})
	}
	kind := req.Type
	if kind == "" {
		kind = models.KindText
	}

	// Persist-then-broadcast is serialized per room so every member observes
	// this room's messages in the order the server processed them.
	lock := s.registry.RoomLock(s.room)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.AppendMessage(s.username, s.room, req.Message, kind); err != nil {
		// Delivered live even if durable logging failed; the tradeoff is
		// at-least-delivered, best-effort-persisted.
		log.Printf("ERROR: persist message from %s in %s: %v", s.username, s.room, err)
	}

	s.broadcast.Broadcast(s.room, models.NewMessage{
		Action:    models.ActionNewMessage,
		Username:  s.username,
		Message:   req.Message,
		Type:      kind,
		Timestamp: time.Now().Format(models.TimestampLayout),
	}, s.username)
	return nil
}

func (s *Session) handleSendFile(req models.Request) error {
	if s.username == "" || s.room == "" {
		return s.reply(models.ErrorEvent{Action: models.ActionError, Message: "Join a room first!"})
	}
	if int64(len(req.Filedata)) > s.maxFileBytes {
		return s.reply(models.ErrorEvent{Action: models.ActionError, Message: "File payload too large!"})
	}

	lock := s.registry.RoomLock(s.room)
	lock.Lock()
	defer lock.Unlock()

	body := fmt.Sprintf("[FILE:%s]", req.Filename)
	if err := s.store.AppendMessage(s.username, s.room, body, models.KindFile); err != nil {
		log.Printf("ERROR: persist file from %s in %s: %v", s.username, s.room, err)
	}

	s.broadcast.Broadcast(s.room, models.NewFile{
		Action:    models.ActionNewFile,
		Username:  s.username,
		Filename:  req.Filename,
		Filedata:  req.Filedata,
		Timestamp: time.Now().Format(models.TimestampLayout),
	}, s.username)
	return nil
}

// knownRooms merges rooms known to the store (seeded plus any with history)
// with rooms created live in the registry since startup.
func (s *Session) knownRooms() []string {
	names, err := s.store.RoomNames()
	if err != nil {
		log.Printf("ERROR: list rooms: %v", err)
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		seen[name] = struct{}{}
	}
	for _, name := range s.registry.RoomNames() {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// reply encrypts and queues one event for this session's own client. Failure
// to queue means the connection is already unusable and is fatal.
func (s *Session) reply(event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	frame, err := s.codec.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("encrypt reply: %w", err)
	}
	if !s.client.Send(frame) {
		return errors.New("send buffer full or connection closed")
	}
	return nil
}
