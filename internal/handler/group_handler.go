package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
	"github.com/noah-isme/classmatch-api/pkg/response"
)

type groupService interface {
	Create(ctx context.Context, session *models.Session, req models.CreateGroupRequest) (*models.GroupSummary, error)
	Get(ctx context.Context, session *models.Session, groupID string) (*models.GroupSummary, error)
	Update(ctx context.Context, session *models.Session, groupID string, update models.GroupUpdate) (*models.GroupSummary, error)
	ListByCourse(ctx context.Context, session *models.Session, courseID string) ([]models.GroupSummary, error)
	ListForUser(ctx context.Context, session *models.Session) ([]models.GroupSummary, error)
	Join(ctx context.Context, session *models.Session, groupID string) (*models.JoinResult, error)
	Leave(ctx context.Context, session *models.Session, groupID string) error
	TransferOwnership(ctx context.Context, session *models.Session, groupID string, req models.TransferOwnershipRequest) (*models.GroupSummary, error)
	Delete(ctx context.Context, session *models.Session, groupID string, hard bool) error
	Invite(ctx context.Context, session *models.Session, groupID string, req models.InviteRequest) (*models.InviteResult, error)
	EligibleInvitees(ctx context.Context, session *models.Session, groupID string) ([]models.Match, error)
}

// GroupHandler manages study groups and invitations.
type GroupHandler struct {
	service groupService
}

// NewGroupHandler creates a new handler.
func NewGroupHandler(svc groupService) *GroupHandler {
	return &GroupHandler{service: svc}
}

// List godoc
// @Summary List study groups
// @Description Groups of one course, or the caller's own groups when mine=true
// @Tags Groups
// @Security BearerAuth
// @Produce json
// @Param course_id query string false "Course ID"
// @Param mine query bool false "Only groups the caller belongs to"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	mine, _ := strconv.ParseBool(c.Query("mine"))
	courseID := c.Query("course_id")

	var (
		groups []models.GroupSummary
		err    error
	)
	switch {
	case mine:
		groups, err = h.service.ListForUser(c.Request.Context(), session)
	case courseID != "":
		groups, err = h.service.ListByCourse(c.Request.Context(), session, courseID)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "course_id or mine=true is required")
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Create godoc
// @Summary Create a study group
// @Tags Groups
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.CreateGroupRequest
	if !bindJSON(c, &req, "invalid group payload") {
		return
	}
	group, err := h.service.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// Get godoc
// @Summary Group detail
// @Tags Groups
// @Security BearerAuth
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	group, err := h.service.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Update godoc
// @Summary Edit a study group
// @Description Owner only; omitted fields keep their value
// @Tags Groups
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.GroupUpdate true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var update models.GroupUpdate
	if !bindJSON(c, &update, "invalid group payload") {
		return
	}
	group, err := h.service.Update(c.Request.Context(), session, c.Param("id"), update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Delete godoc
// @Summary Archive or delete a group
// @Tags Groups
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Param hard query bool false "Delete permanently instead of archiving"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	hard, _ := strconv.ParseBool(c.Query("hard"))
	if err := h.service.Delete(c.Request.Context(), session, c.Param("id"), hard); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Join godoc
// @Summary Join a group
// @Description Joining a group the caller already belongs to succeeds with joined=false
// @Tags Groups
// @Security BearerAuth
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /groups/{id}/join [post]
func (h *GroupHandler) Join(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	res, err := h.service.Join(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Leave godoc
// @Summary Leave a group
// @Tags Groups
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /groups/{id}/leave [post]
func (h *GroupHandler) Leave(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Leave(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transfer godoc
// @Summary Transfer ownership
// @Tags Groups
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.TransferOwnershipRequest true "New owner"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /groups/{id}/transfer [post]
func (h *GroupHandler) Transfer(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.TransferOwnershipRequest
	if !bindJSON(c, &req, "invalid transfer payload") {
		return
	}
	group, err := h.service.TransferOwnership(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Invite godoc
// @Summary Invite classmates
// @Description Sends one invitation per user; per-user failures are reported in failed
// @Tags Groups
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.InviteRequest true "Users to invite"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /groups/{id}/invite [post]
func (h *GroupHandler) Invite(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.InviteRequest
	if !bindJSON(c, &req, "invalid invite payload") {
		return
	}
	res, err := h.service.Invite(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Invitees godoc
// @Summary Matches eligible for an invitation
// @Tags Groups
// @Security BearerAuth
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/invitees [get]
func (h *GroupHandler) Invitees(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	matches, err := h.service.EligibleInvitees(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matches, nil)
}
