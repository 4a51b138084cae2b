package models

import "time"

// Message kinds. A file attachment is stored as a regular message whose kind
// is KindFile and whose body records the filename.
const (
	KindText = "text"
	KindFile = "file"
)

// Message is one persisted chat message. Rows are append-only: they are never
// updated or removed, and per-room order follows insertion order.
type Message struct {
	ID uint `gorm:"primaryKey"`
	// Username is the author of the message.
	Username string `gorm:"not null;index:idx_room_created"`
	// Room is the channel the message was sent to.
	Room string `gorm:"not null;index:idx_room_created"`
	// Body is the message text, or a "[FILE:name]" marker for attachments.
	Body string `gorm:"type:text;not null"`
	// Kind is KindText or KindFile.
	Kind      string `gorm:"not null;default:text"`
	CreatedAt time.Time
}

// TimestampLayout is the wire format for message timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// HistoryEntry is one replayed message as delivered to a joining client.
type HistoryEntry struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// AsHistoryEntry converts a stored message into its replay form.
func (m Message) AsHistoryEntry() HistoryEntry {
	return HistoryEntry{
		Username:  m.Username,
		Message:   m.Body,
		Timestamp: m.CreatedAt.Format(TimestampLayout),
		Type:      m.Kind,
	}
}
