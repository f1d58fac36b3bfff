package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classmatch-api/internal/models"
	"github.com/noah-isme/classmatch-api/pkg/response"
)

type messageService interface {
	List(ctx context.Context, session *models.Session, groupID string, filter models.MessageFilter) ([]models.Message, error)
	Post(ctx context.Context, session *models.Session, groupID string, req models.PostMessageRequest) (*models.Message, error)
}

// MessageHandler serves group chat.
type MessageHandler struct {
	service messageService
}

// NewMessageHandler creates a new handler.
func NewMessageHandler(svc messageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// List godoc
// @Summary Group messages
// @Tags Messages
// @Security BearerAuth
// @Produce json
// @Param id path string true "Group ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Messages to skip"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /groups/{id}/messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	messages, err := h.service.List(c.Request.Context(), session, c.Param("id"), models.MessageFilter{Limit: limit, Offset: offset})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// Post godoc
// @Summary Post a message
// @Tags Messages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.PostMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /groups/{id}/messages [post]
func (h *MessageHandler) Post(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.PostMessageRequest
	if !bindJSON(c, &req, "invalid message payload") {
		return
	}
	msg, err := h.service.Post(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}
