package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"duelchat/internal/pkg/jwt"
	"duelchat/internal/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,

	// Origin is enforced by the CORS layer in front; the upgrade itself
	// accepts any origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler is the realtime side of the session gate: the access token is
// checked once at handshake and the decoded identity is bound to the
// connection for its lifetime. A connection whose token expires
// mid-session keeps its identity until the next reconnect; that staleness
// window is accepted, not patched.
type WSHandler struct {
	hub          *Hub
	jwtService   *jwt.Service
	chatService  *Service
	pingInterval time.Duration
}

func NewWSHandler(hub *Hub, jwtService *jwt.Service, chatService *Service) *WSHandler {
	return &WSHandler{
		hub:          hub,
		jwtService:   jwtService,
		chatService:  chatService,
		pingInterval: 30 * time.Second,
	}
}

// HandleWebSocket authenticates and upgrades a connection.
//
// Endpoint: GET /ws/chat?token=ACCESS_TOKEN
//
// The token travels in the query because websocket clients cannot set an
// Authorization header on the handshake.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Token is required. Use ?token=YOUR_ACCESS_TOKEN",
		})
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication failed",
		})
		return
	}

	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.hub.Register(userID, conn)
	log.Printf("User %d connected via WebSocket", userID)

	defer func() {
		h.hub.Unregister(userID)
		conn.Close()
		log.Printf("User %d disconnected from WebSocket", userID)
	}()

	// The client waits for this before sending application messages.
	if err := conn.WriteJSON(NewAuthenticatedEvent()); err != nil {
		return
	}

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(conn)

	h.readLoop(conn, userID)
}

// pingLoop sends keepalives from its own goroutine while the read loop
// writes replies on the same connection. WriteControl is the only write
// gorilla allows concurrently with other writers; WriteMessage here would
// race the read loop's WriteJSON calls.
func (h *WSHandler) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		deadline := time.Now().Add(10 * time.Second)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			return
		}
	}
}

func (h *WSHandler) readLoop(conn *websocket.Conn, userID int64) {
	for {
		_, rawMsg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for user %d: %v", userID, err)
			}
			return
		}

		var msg WSClientMessage
		if err := json.Unmarshal(rawMsg, &msg); err != nil {
			h.sendError(conn, "INVALID_JSON", "Failed to parse message")
			continue
		}
		if err := validator.Check(msg); err != nil {
			h.sendError(conn, "INVALID_PAYLOAD", err.Error())
			continue
		}

		switch msg.Type {
		case ClientTypeSendMessage:
			h.handleSendMessage(conn, userID, msg)
		case ClientTypePing:
			conn.WriteJSON(NewPongEvent())
		default:
			h.sendError(conn, "UNKNOWN_TYPE", "Unknown message type: "+msg.Type)
		}
	}
}

func (h *WSHandler) handleSendMessage(conn *websocket.Conn, userID int64, msg WSClientMessage) {
	// Guards handlers that could be reached before the gate bound an
	// identity to this connection.
	if userID == 0 {
		h.sendError(conn, "NOT_AUTHENTICATED", "Not authenticated")
		return
	}
	if msg.Content == "" {
		h.sendError(conn, "EMPTY_CONTENT", "content is required")
		return
	}

	// Detached from the connection: a disconnect mid-dispatch must not
	// stop the model calls or their persistence, only delivery.
	ctx := context.Background()

	result, err := h.chatService.SendMessage(ctx, userID, msg.Content)
	if err != nil {
		h.sendError(conn, "SEND_FAILED", "Failed to process message")
		return
	}

	h.hub.SendToUser(userID, NewMessageResultEvent(msg.ID, result))
}

func (h *WSHandler) sendError(conn *websocket.Conn, code, message string) {
	conn.WriteJSON(NewErrorEvent(code, message))
}
