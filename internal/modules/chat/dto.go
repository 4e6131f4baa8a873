package chat

import (
	"time"

	"duelchat/internal/domain"
)

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type ModelResult struct {
	ID        int64     `json:"id"`
	Model     string    `json:"model"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type FeedbackInfo struct {
	ID          int64  `json:"id"`
	WinnerModel string `json:"winner_model"`
}

// MessageWithResponses is a user message with every backend's settled
// result and the winner vote, if any.
type MessageWithResponses struct {
	ID        int64         `json:"id"`
	ChatID    int64         `json:"chat_id"`
	Sender    string        `json:"sender"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Responses []ModelResult `json:"responses"`
	Feedback  *FeedbackInfo `json:"feedback,omitempty"`
}

func toModelResult(resp domain.ModelResponse) ModelResult {
	return ModelResult{
		ID:        resp.ID,
		Model:     resp.Model,
		Content:   resp.Content,
		CreatedAt: resp.CreatedAt,
	}
}
