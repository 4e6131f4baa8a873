package domain

import "time"

// User is an account identified by a unique email. The password is stored
// as a bcrypt hash and must never leave the service; handlers blank it
// before encoding responses.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}
