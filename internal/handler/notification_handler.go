package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classmatch-api/internal/models"
	"github.com/noah-isme/classmatch-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, session *models.Session) ([]models.Notification, error)
	UnreadCount(ctx context.Context, session *models.Session) (*models.NotificationCount, error)
	MarkAllRead(ctx context.Context, session *models.Session) (*models.NotificationCount, error)
	Accept(ctx context.Context, session *models.Session, notificationID string) (*models.NotificationResolution, error)
	Decline(ctx context.Context, session *models.Session, notificationID string) (*models.NotificationResolution, error)
}

// NotificationHandler resolves group invitations.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler creates a new handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary Pending invitations
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	list, err := h.service.List(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Count godoc
// @Summary Unread notification count
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/count [get]
func (h *NotificationHandler) Count(c *gin.Context) {
	h.count(c, h.service.UnreadCount)
}

// ReadAll godoc
// @Summary Mark notifications read
// @Description Pending group invitations stay unread until accepted or declined
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [post]
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	h.count(c, h.service.MarkAllRead)
}

func (h *NotificationHandler) count(c *gin.Context, fn func(context.Context, *models.Session) (*models.NotificationCount, error)) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Accept godoc
// @Summary Accept an invitation
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /notifications/{id}/accept [post]
func (h *NotificationHandler) Accept(c *gin.Context) {
	h.resolve(c, h.service.Accept)
}

// Decline godoc
// @Summary Decline an invitation
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/decline [post]
func (h *NotificationHandler) Decline(c *gin.Context) {
	h.resolve(c, h.service.Decline)
}

func (h *NotificationHandler) resolve(c *gin.Context, fn func(context.Context, *models.Session, string) (*models.NotificationResolution, error)) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
