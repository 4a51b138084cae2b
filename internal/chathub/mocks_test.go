package chathub_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cipherchat/backend/internal/models"
	"cipherchat/backend/internal/secure"
)

// MockStorage is a testify double for the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) RegisterUser(username, password string) error {
	args := m.Called(username, password)
	return args.Error(0)
}

func (m *MockStorage) Authenticate(username, password string) bool {
	args := m.Called(username, password)
	return args.Bool(0)
}

func (m *MockStorage) AppendMessage(author, room, body, kind string) error {
	args := m.Called(author, room, body, kind)
	return args.Error(0)
}

func (m *MockStorage) History(room string, limit int) ([]models.HistoryEntry, error) {
	args := m.Called(room, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HistoryEntry), args.Error(1)
}

func (m *MockStorage) RoomNames() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// mockClient is an in-memory chathub.Client that records every frame it is
// offered. Setting full simulates a wedged consumer whose buffer never
// drains.
type mockClient struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
	closed bool
}

func newMockClient() *mockClient {
	return &mockClient{}
}

func (c *mockClient) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.frames = append(c.frames, frame)
	return true
}

func (c *mockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockClient) RemoteAddr() string {
	return "mock:0"
}

func (c *mockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// events decrypts and decodes everything the client received so far.
func (c *mockClient) events(t *testing.T, codec *secure.Codec) []map[string]interface{} {
	t.Helper()
	c.mu.Lock()
	frames := append([][]byte(nil), c.frames...)
	c.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(frames))
	for _, frame := range frames {
		plaintext, err := codec.Decrypt(frame)
		require.NoError(t, err)
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(plaintext, &event))
		out = append(out, event)
	}
	return out
}

// eventsOf filters received events by action.
func (c *mockClient) eventsOf(t *testing.T, codec *secure.Codec, action string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, event := range c.events(t, codec) {
		if event["action"] == action {
			out = append(out, event)
		}
	}
	return out
}

// lastEvent returns the most recently received event.
func (c *mockClient) lastEvent(t *testing.T, codec *secure.Codec) map[string]interface{} {
	t.Helper()
	events := c.events(t, codec)
	require.NotEmpty(t, events, "client received no frames")
	return events[len(events)-1]
}
