package chat

import (
	"context"
	"log"
	"strings"
	"sync"

	"duelchat/internal/domain"
	"duelchat/internal/llm"
	"duelchat/internal/repository"
)

// Service owns the user's single conversation and the fan-out to every
// configured model backend.
type Service struct {
	chats     *repository.ChatRepository
	providers []llm.Provider
}

func NewService(chats *repository.ChatRepository, providers []llm.Provider) *Service {
	return &Service{chats: chats, providers: providers}
}

// SendMessage persists the user's message once, dispatches it to every
// backend concurrently and returns the message with all settled results.
func (s *Service) SendMessage(ctx context.Context, userID int64, content string) (*MessageWithResponses, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	chat, err := s.chats.GetOrCreateChat(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ChatID:  chat.ID,
		Sender:  domain.SenderUser,
		Content: content,
	}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	results := s.dispatch(ctx, msg.ID, content)

	return &MessageWithResponses{
		ID:        msg.ID,
		ChatID:    chat.ID,
		Sender:    msg.Sender,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		Responses: results,
	}, nil
}

// dispatch fans out to every provider in its own goroutine and waits for
// all branches to settle. Branches are isolated: a failed or panicking
// backend yields the fallback text and never disturbs its siblings. Each
// result is persisted inside its own branch, so one backend's outcome is
// stored even if another backend is still running or has failed. The
// returned slice follows the configured provider order, not completion
// order.
func (s *Service) dispatch(ctx context.Context, messageID int64, prompt string) []ModelResult {
	results := make([]ModelResult, len(s.providers))

	var wg sync.WaitGroup
	for i, provider := range s.providers {
		wg.Add(1)
		go func(i int, provider llm.Provider) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("dispatch: provider %s panicked: %v", provider.Name(), r)
					results[i] = s.persistResult(ctx, messageID, provider.Name(), llm.FallbackResponse)
				}
			}()

			text, err := provider.Complete(ctx, prompt)
			if err != nil {
				log.Printf("dispatch: provider %s failed: %v", provider.Name(), err)
				text = llm.FallbackResponse
			}
			results[i] = s.persistResult(ctx, messageID, provider.Name(), text)
		}(i, provider)
	}
	wg.Wait()

	return results
}

func (s *Service) persistResult(ctx context.Context, messageID int64, model, text string) ModelResult {
	resp := &domain.ModelResponse{
		MessageID: messageID,
		Model:     model,
		Content:   text,
	}
	if err := s.chats.CreateModelResponse(ctx, resp); err != nil {
		log.Printf("dispatch: persist response for model %s failed: %v", model, err)
	}
	return toModelResult(*resp)
}

// GetMessages returns the user's full history: every message with its
// model responses and winner vote, in creation order.
func (s *Service) GetMessages(ctx context.Context, userID int64) (int64, []MessageWithResponses, error) {
	chat, err := s.chats.GetOrCreateChat(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	msgs, err := s.chats.ListMessages(ctx, chat.ID)
	if err != nil {
		return 0, nil, err
	}

	responsesByMessage, err := s.chats.ListResponsesByChat(ctx, chat.ID)
	if err != nil {
		return 0, nil, err
	}

	feedbackByMessage, err := s.chats.ListFeedbackByChat(ctx, chat.ID)
	if err != nil {
		return 0, nil, err
	}

	out := make([]MessageWithResponses, 0, len(msgs))
	for _, msg := range msgs {
		item := MessageWithResponses{
			ID:        msg.ID,
			ChatID:    chat.ID,
			Sender:    msg.Sender,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			Responses: make([]ModelResult, 0, len(responsesByMessage[msg.ID])),
		}
		for _, resp := range responsesByMessage[msg.ID] {
			item.Responses = append(item.Responses, toModelResult(resp))
		}
		if fb, ok := feedbackByMessage[msg.ID]; ok {
			item.Feedback = &FeedbackInfo{ID: fb.ID, WinnerModel: fb.WinnerModel}
		}
		out = append(out, item)
	}
	return chat.ID, out, nil
}
