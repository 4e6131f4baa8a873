package domain

import "time"

// Message sender labels.
const (
	SenderUser   = "user"
	SenderSystem = "system"
)

// Chat is a user's single conversation. One chat per user: the unique
// index on UserID is what makes GetOrCreateChat safe under concurrent
// first messages.
type Chat struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"uniqueIndex;not null"`
	User      User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single user message inside a chat. Each message gets zero
// or more ModelResponse rows, one per model backend.
type Message struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	ChatID    int64     `json:"chat_id" gorm:"index;not null"`
	Chat      Chat      `json:"-" gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
	Sender    string    `json:"sender" gorm:"size:16;not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// ModelResponse is one backend's answer (or fallback text) to a message,
// labeled with the model that produced it.
type ModelResponse struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	MessageID int64     `json:"message_id" gorm:"index;not null"`
	Message   Message   `json:"-" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	Model     string    `json:"model" gorm:"size:64;not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Feedback names the winning model for a message. At most one row per
// message, enforced by the unique index.
type Feedback struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	MessageID   int64     `json:"message_id" gorm:"uniqueIndex;not null"`
	Message     Message   `json:"-" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	WinnerModel string    `json:"winner_model" gorm:"size:64;not null"`
	CreatedAt   time.Time `json:"created_at"`
}
