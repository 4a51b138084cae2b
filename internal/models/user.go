package models

import "time"

// User represents a registered account. Accounts are created once and never
// mutated or deleted; only the bcrypt hash of the password is ever stored.
type User struct {
	ID uint `gorm:"primaryKey"`
	// Username is the unique, immutable identifier chosen at registration.
	Username string `gorm:"uniqueIndex;not null"`
	// PasswordHash is the bcrypt digest of the account password.
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}
