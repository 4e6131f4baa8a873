package chat

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"duelchat/internal/llm"
	"duelchat/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWSServer(t *testing.T, pingInterval time.Duration) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, chats := newChatTestDB(t)
	userID := seedChatUser(t, db)

	jwtService := jwt.New("test-secret", "duelchat", "duelchat-users", time.Hour)
	token, err := jwtService.GenerateToken(userID, "chat@example.com")
	require.NoError(t, err)

	svc := NewService(chats, []llm.Provider{&fakeProvider{name: "model-a", reply: "ok"}})
	handler := NewWSHandler(NewHub(), jwtService, svc)
	handler.pingInterval = pingInterval

	r := gin.New()
	r.GET("/ws/chat", handler.HandleWebSocket)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return server, token
}

func dialWS(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var event map[string]interface{}
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "authenticated", event["type"])
	return conn
}

// Server keepalives and read-loop replies write to the same connection
// from different goroutines; the connection must survive the overlap.
func TestWebSocket_KeepaliveConcurrentWithReplies(t *testing.T) {
	server, token := setupWSServer(t, time.Millisecond)
	conn := dialWS(t, server, token)

	for i := 0; i < 200; i++ {
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
		var reply map[string]interface{}
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, "pong", reply["type"])
	}
}

func TestWebSocket_UnknownType(t *testing.T) {
	server, token := setupWSServer(t, time.Minute)
	conn := dialWS(t, server, token)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	var reply map[string]interface{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "UNKNOWN_TYPE", reply["code"])
}

func TestWebSocket_MissingType(t *testing.T) {
	server, token := setupWSServer(t, time.Minute)
	conn := dialWS(t, server, token)

	require.NoError(t, conn.WriteJSON(map[string]string{"content": "no type field"}))
	var reply map[string]interface{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "INVALID_PAYLOAD", reply["code"])
}
