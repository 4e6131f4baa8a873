package feedback

import (
	"context"
	"errors"

	"duelchat/internal/domain"
	"duelchat/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotOwner        = errors.New("message does not belong to user")
)

// Service records which model won a message. One vote per message;
// voting again replaces the previous winner.
type Service struct {
	chats *repository.ChatRepository
}

func NewService(chats *repository.ChatRepository) *Service {
	return &Service{chats: chats}
}

func (s *Service) Submit(ctx context.Context, userID, messageID int64, winnerModel string) (*domain.Feedback, error) {
	msg, err := s.chats.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	chat, err := s.chats.GetChatByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotOwner
		}
		return nil, err
	}
	if msg.ChatID != chat.ID {
		return nil, ErrNotOwner
	}

	fb := &domain.Feedback{
		MessageID:   messageID,
		WinnerModel: winnerModel,
	}
	if err := s.chats.UpsertFeedback(ctx, fb); err != nil {
		return nil, err
	}

	// Re-read so the returned row carries the winning insert's ID when
	// the upsert hit an existing vote.
	return s.chats.GetFeedbackByMessage(ctx, messageID)
}

func (s *Service) GetByMessage(ctx context.Context, userID, messageID int64) (*domain.Feedback, error) {
	msg, err := s.chats.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	chat, err := s.chats.GetChatByUser(ctx, userID)
	if err != nil || msg.ChatID != chat.ID {
		return nil, ErrNotOwner
	}

	fb, err := s.chats.GetFeedbackByMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return fb, nil
}
