package feedback

import (
	"errors"
	"net/http"
	"strconv"

	"duelchat/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type SubmitFeedbackRequest struct {
	MessageID   int64  `json:"message_id" binding:"required"`
	WinnerModel string `json:"winner_model" binding:"required"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers feedback routes under the protected group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	fbGroup := rg.Group("/feedback")
	{
		fbGroup.POST("", h.Submit)
		fbGroup.GET("/:messageId", h.GetByMessage)
	}
}

func (h *Handler) Submit(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "message_id and winner_model are required")
		return
	}

	fb, err := h.service.Submit(c.Request.Context(), userID, req.MessageID, req.WinnerModel)
	if err != nil {
		switch {
		case errors.Is(err, ErrMessageNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Message not found")
		case errors.Is(err, ErrNotOwner):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Message does not belong to you")
		default:
			response.Error(c, http.StatusInternalServerError, "FEEDBACK_FAILED", "Failed to save feedback")
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"feedback": fb,
	})
}

func (h *Handler) GetByMessage(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	fb, svcErr := h.service.GetByMessage(c.Request.Context(), userID, messageID)
	if svcErr != nil {
		switch {
		case errors.Is(svcErr, ErrMessageNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Message not found")
		case errors.Is(svcErr, ErrNotOwner):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Message does not belong to you")
		default:
			response.Error(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch feedback")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"feedback": fb,
	})
}
