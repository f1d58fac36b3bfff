package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classmatch-api/internal/models"
	"github.com/noah-isme/classmatch-api/pkg/response"
)

type availabilityService interface {
	List(ctx context.Context, session *models.Session) ([]models.AvailabilitySlot, error)
	Add(ctx context.Context, session *models.Session, req models.AddAvailabilityRequest) (*models.AvailabilitySlot, error)
	Delete(ctx context.Context, session *models.Session, slotID string) error
	Replace(ctx context.Context, session *models.Session, req models.ReplaceAvailabilityRequest) ([]models.AvailabilitySlot, error)
}

// AvailabilityHandler edits the caller's free-time slots.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler creates a new handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// List godoc
// @Summary Availability slots
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	slots, err := h.service.List(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Add godoc
// @Summary Add an availability slot
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.AddAvailabilityRequest true "Slot"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/availability [post]
func (h *AvailabilityHandler) Add(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.AddAvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	slot, err := h.service.Add(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Replace godoc
// @Summary Replace all availability slots
// @Description An empty list clears every slot
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.ReplaceAvailabilityRequest true "Slots"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/availability [put]
func (h *AvailabilityHandler) Replace(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.ReplaceAvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	slots, err := h.service.Replace(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Delete godoc
// @Summary Remove an availability slot
// @Tags Availability
// @Security BearerAuth
// @Param slotId path string true "Slot ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /me/availability/{slotId} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), session, c.Param("slotId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
