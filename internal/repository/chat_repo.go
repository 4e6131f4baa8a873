package repository

import (
	"context"
	"errors"

	"duelchat/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// GetOrCreateChat returns the user's single chat, creating it on first
// use. The insert is ON CONFLICT DO NOTHING against the unique index on
// user_id, then re-read: N concurrent callers for a new user still end up
// with exactly one row.
func (r *ChatRepository) GetOrCreateChat(ctx context.Context, userID int64) (*domain.Chat, error) {
	var chat domain.Chat
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&chat).Error
	if err == nil {
		return &chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	newChat := domain.Chat{UserID: userID, Title: "New Chat"}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&newChat).Error; err != nil {
		return nil, err
	}

	// Re-read: on conflict the insert was a no-op and newChat.ID is not
	// the winning row's.
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ChatRepository) GetMessageByID(ctx context.Context, id int64) (*domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ChatRepository) CreateModelResponse(ctx context.Context, resp *domain.ModelResponse) error {
	return r.db.WithContext(ctx).Create(resp).Error
}

func (r *ChatRepository) ListMessages(ctx context.Context, chatID int64) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *ChatRepository) ListResponsesByMessage(ctx context.Context, messageID int64) ([]domain.ModelResponse, error) {
	var resps []domain.ModelResponse
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC, id ASC").
		Find(&resps).Error
	return resps, err
}

// ListResponsesByChat loads every response for a chat in one query,
// keyed by message.
func (r *ChatRepository) ListResponsesByChat(ctx context.Context, chatID int64) (map[int64][]domain.ModelResponse, error) {
	var resps []domain.ModelResponse
	err := r.db.WithContext(ctx).
		Joins("JOIN messages ON messages.id = model_responses.message_id").
		Where("messages.chat_id = ?", chatID).
		Order("model_responses.created_at ASC, model_responses.id ASC").
		Find(&resps).Error
	if err != nil {
		return nil, err
	}

	byMessage := make(map[int64][]domain.ModelResponse, len(resps))
	for _, resp := range resps {
		byMessage[resp.MessageID] = append(byMessage[resp.MessageID], resp)
	}
	return byMessage, nil
}

// GetChatByUser returns the user's chat without creating one.
func (r *ChatRepository) GetChatByUser(ctx context.Context, userID int64) (*domain.Chat, error) {
	var chat domain.Chat
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListFeedbackByChat loads every winner vote for a chat, keyed by message.
func (r *ChatRepository) ListFeedbackByChat(ctx context.Context, chatID int64) (map[int64]domain.Feedback, error) {
	var votes []domain.Feedback
	err := r.db.WithContext(ctx).
		Joins("JOIN messages ON messages.id = feedbacks.message_id").
		Where("messages.chat_id = ?", chatID).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}

	byMessage := make(map[int64]domain.Feedback, len(votes))
	for _, fb := range votes {
		byMessage[fb.MessageID] = fb
	}
	return byMessage, nil
}

func (r *ChatRepository) GetFeedbackByMessage(ctx context.Context, messageID int64) (*domain.Feedback, error) {
	var fb domain.Feedback
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&fb).Error
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// UpsertFeedback inserts or replaces the winner vote for a message. The
// unique index on message_id keeps it at one row per message.
func (r *ChatRepository) UpsertFeedback(ctx context.Context, fb *domain.Feedback) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"winner_model"}),
		}).
		Create(fb).Error
}
