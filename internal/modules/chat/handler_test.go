package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"duelchat/internal/domain"
	"duelchat/internal/llm"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// disconnectAwareProvider answers only while the dispatch context is
// alive, like a real HTTP backend call would.
type disconnectAwareProvider struct {
	name string
}

func (p *disconnectAwareProvider) Name() string { return p.name }

func (p *disconnectAwareProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "completed", nil
}

// A client that disconnects mid-dispatch must not cancel the model calls
// or their persistence; the HTTP path detaches like the realtime path.
func TestSendMessageHTTP_SurvivesClientDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	svc := NewService(chats, []llm.Provider{&disconnectAwareProvider{name: "model-a"}})
	handler := NewHandler(svc)

	r := gin.New()
	r.POST("/chat/send", func(c *gin.Context) {
		c.Set("user_id", userID)
		handler.SendMessage(c)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/chat/send", strings.NewReader(`{"message":"hi"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "completed")
	assert.NotContains(t, w.Body.String(), llm.FallbackResponse)

	var persisted int64
	require.NoError(t, db.Model(&domain.ModelResponse{}).Count(&persisted).Error)
	assert.Equal(t, int64(1), persisted)
}

func TestSendMessageHTTP_EmptyMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	handler := NewHandler(NewService(chats, nil))
	r := gin.New()
	r.POST("/chat/send", func(c *gin.Context) {
		c.Set("user_id", userID)
		handler.SendMessage(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/chat/send", strings.NewReader(`{"message":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "EMPTY_MESSAGE")
}
