package chat

import (
	"context"
	"net/http"

	"duelchat/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers chat routes under the protected group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	chatGroup := rg.Group("/chat")
	{
		chatGroup.GET("/messages", h.GetMessages)
		chatGroup.POST("/send", h.SendMessage)
	}
}

// GetMessages returns the caller's history with model responses and votes.
func (h *Handler) GetMessages(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	chatID, msgs, err := h.service.GetMessages(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch messages")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"chat_id":  chatID,
		"messages": msgs,
	})
}

// SendMessage is the HTTP variant of dispatch: it blocks until every
// backend has settled and returns all results.
func (h *Handler) SendMessage(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Message content is required")
		return
	}

	// Detached from the request: a client disconnect mid-dispatch must
	// not cancel the model calls or their persistence, same as the
	// realtime path.
	msg, err := h.service.SendMessage(context.Background(), userID, req.Message)
	if err != nil {
		if err == ErrEmptyMessage {
			response.Error(c, http.StatusBadRequest, "EMPTY_MESSAGE", "Message content is required")
			return
		}
		response.Error(c, http.StatusInternalServerError, "SEND_FAILED", "Failed to process message")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message": msg,
	})
}
