package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"duelchat/internal/database"
	"duelchat/internal/domain"
	"duelchat/internal/llm"
	"duelchat/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeProvider struct {
	name  string
	reply string
	err   error
	panic bool
	delay time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panic {
		panic("backend blew up")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newChatTestDB(t *testing.T) (*gorm.DB, *repository.ChatRepository) {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	return db, repository.NewChatRepository(db)
}

func seedChatUser(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	user := &domain.User{Email: "chat@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}

func TestSendMessage_FanOut(t *testing.T) {
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	svc := NewService(chats, []llm.Provider{
		&fakeProvider{name: "model-a", reply: "answer from a"},
		&fakeProvider{name: "model-b", reply: "answer from b"},
	})

	msg, err := svc.SendMessage(context.Background(), userID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, domain.SenderUser, msg.Sender)

	require.Len(t, msg.Responses, 2)
	assert.Equal(t, "model-a", msg.Responses[0].Model)
	assert.Equal(t, "answer from a", msg.Responses[0].Content)
	assert.Equal(t, "model-b", msg.Responses[1].Model)
	assert.Equal(t, "answer from b", msg.Responses[1].Content)

	var persisted int64
	require.NoError(t, db.Model(&domain.ModelResponse{}).Where("message_id = ?", msg.ID).Count(&persisted).Error)
	assert.Equal(t, int64(2), persisted)
}

func TestSendMessage_FailedBranchGetsFallback(t *testing.T) {
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	svc := NewService(chats, []llm.Provider{
		&fakeProvider{name: "model-a", err: errors.New("upstream 500")},
		&fakeProvider{name: "model-b", reply: "fine here"},
	})

	msg, err := svc.SendMessage(context.Background(), userID, "hello")
	require.NoError(t, err)

	require.Len(t, msg.Responses, 2)
	assert.Equal(t, llm.FallbackResponse, msg.Responses[0].Content)
	assert.Equal(t, "fine here", msg.Responses[1].Content)

	// Both outcomes are on disk, the failed branch as its fallback.
	var persisted int64
	require.NoError(t, db.Model(&domain.ModelResponse{}).Where("message_id = ?", msg.ID).Count(&persisted).Error)
	assert.Equal(t, int64(2), persisted)
}

func TestSendMessage_PanickingBranchIsIsolated(t *testing.T) {
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	svc := NewService(chats, []llm.Provider{
		&fakeProvider{name: "model-a", panic: true},
		&fakeProvider{name: "model-b", reply: "still here", delay: 20 * time.Millisecond},
	})

	msg, err := svc.SendMessage(context.Background(), userID, "hello")
	require.NoError(t, err)

	require.Len(t, msg.Responses, 2)
	assert.Equal(t, llm.FallbackResponse, msg.Responses[0].Content)
	assert.Equal(t, "still here", msg.Responses[1].Content)
}

func TestSendMessage_Empty(t *testing.T) {
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	svc := NewService(chats, nil)
	_, err := svc.SendMessage(context.Background(), userID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendMessage_ResultsFollowProviderOrder(t *testing.T) {
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	// First provider is the slowest; order in the result must not change.
	svc := NewService(chats, []llm.Provider{
		&fakeProvider{name: "slow", reply: "slow answer", delay: 30 * time.Millisecond},
		&fakeProvider{name: "fast", reply: "fast answer"},
	})

	msg, err := svc.SendMessage(context.Background(), userID, "hello")
	require.NoError(t, err)
	require.Len(t, msg.Responses, 2)
	assert.Equal(t, "slow", msg.Responses[0].Model)
	assert.Equal(t, "fast", msg.Responses[1].Model)
}

func TestGetOrCreateChat_ConcurrentCallersShareOneChat(t *testing.T) {
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	const callers = 8
	ids := make([]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chat, err := chats.GetOrCreateChat(context.Background(), userID)
			if err == nil {
				ids[i] = chat.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, db.Model(&domain.Chat{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetMessages_AssemblesHistory(t *testing.T) {
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	svc := NewService(chats, []llm.Provider{
		&fakeProvider{name: "model-a", reply: "one"},
		&fakeProvider{name: "model-b", reply: "two"},
	})

	first, err := svc.SendMessage(context.Background(), userID, "first question")
	require.NoError(t, err)
	_, err = svc.SendMessage(context.Background(), userID, "second question")
	require.NoError(t, err)

	// Vote on the first exchange.
	require.NoError(t, chats.UpsertFeedback(context.Background(), &domain.Feedback{
		MessageID:   first.ID,
		WinnerModel: "model-a",
	}))

	chatID, history, err := svc.GetMessages(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, first.ChatID, chatID)
	require.Len(t, history, 2)

	assert.Equal(t, "first question", history[0].Content)
	require.Len(t, history[0].Responses, 2)
	require.NotNil(t, history[0].Feedback)
	assert.Equal(t, "model-a", history[0].Feedback.WinnerModel)

	assert.Equal(t, "second question", history[1].Content)
	assert.Nil(t, history[1].Feedback)
}

func TestGetMessages_EmptyHistory(t *testing.T) {
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	svc := NewService(chats, nil)
	chatID, history, err := svc.GetMessages(context.Background(), userID)
	require.NoError(t, err)
	assert.NotZero(t, chatID)
	assert.Empty(t, history)
}
