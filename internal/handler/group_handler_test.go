package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classmatch-api/internal/middleware"
	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

type groupServiceMock struct {
	calls     []string
	courseID  string
	createReq models.CreateGroupRequest
	hard      bool
	transfer  models.TransferOwnershipRequest
	invite    models.InviteRequest
	joinErr   error
	update    models.GroupUpdate
}

func (m *groupServiceMock) summary(id string) *models.GroupSummary {
	return &models.GroupSummary{Group: models.Group{ID: id, Name: "Algo"}, MemberCount: 2, SpotsLeft: 3}
}

func (m *groupServiceMock) Create(ctx context.Context, session *models.Session, req models.CreateGroupRequest) (*models.GroupSummary, error) {
	m.calls = append(m.calls, "create")
	m.createReq = req
	return m.summary("g9"), nil
}

func (m *groupServiceMock) Get(ctx context.Context, session *models.Session, groupID string) (*models.GroupSummary, error) {
	m.calls = append(m.calls, "get:"+groupID)
	if groupID == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	return m.summary(groupID), nil
}

func (m *groupServiceMock) Update(ctx context.Context, session *models.Session, groupID string, update models.GroupUpdate) (*models.GroupSummary, error) {
	m.calls = append(m.calls, "update:"+groupID)
	m.update = update
	if update.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	return m.summary(groupID), nil
}

func (m *groupServiceMock) ListByCourse(ctx context.Context, session *models.Session, courseID string) ([]models.GroupSummary, error) {
	m.calls = append(m.calls, "course")
	m.courseID = courseID
	return []models.GroupSummary{*m.summary("g1")}, nil
}

func (m *groupServiceMock) ListForUser(ctx context.Context, session *models.Session) ([]models.GroupSummary, error) {
	m.calls = append(m.calls, "mine")
	return nil, nil
}

func (m *groupServiceMock) Join(ctx context.Context, session *models.Session, groupID string) (*models.JoinResult, error) {
	m.calls = append(m.calls, "join:"+groupID)
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	return &models.JoinResult{Group: *m.summary(groupID), Joined: true}, nil
}

func (m *groupServiceMock) Leave(ctx context.Context, session *models.Session, groupID string) error {
	m.calls = append(m.calls, "leave:"+groupID)
	return nil
}

func (m *groupServiceMock) TransferOwnership(ctx context.Context, session *models.Session, groupID string, req models.TransferOwnershipRequest) (*models.GroupSummary, error) {
	m.transfer = req
	return m.summary(groupID), nil
}

func (m *groupServiceMock) Delete(ctx context.Context, session *models.Session, groupID string, hard bool) error {
	m.calls = append(m.calls, "delete:"+groupID)
	m.hard = hard
	return nil
}

func (m *groupServiceMock) Invite(ctx context.Context, session *models.Session, groupID string, req models.InviteRequest) (*models.InviteResult, error) {
	m.invite = req
	return &models.InviteResult{Invited: []string{"u2"}, Failed: map[string]string{"u3": "already a member"}}, nil
}

func (m *groupServiceMock) EligibleInvitees(ctx context.Context, session *models.Session, groupID string) ([]models.Match, error) {
	return []models.Match{{Candidate: models.User{ID: "u4"}, Score: 1}}, nil
}

func TestGroupHandlerList(t *testing.T) {
	mockSvc := &groupServiceMock{}
	h := NewGroupHandler(mockSvc)

	c, w := newContext(http.MethodGet, "/groups?course_id=CS2201", "", testSession())
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CS2201", mockSvc.courseID)
	assert.Contains(t, string(decode(t, w).Data), `"spots_left":3`)

	c, w = newContext(http.MethodGet, "/groups?mine=true&course_id=CS2201", "", testSession())
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"course", "mine"}, mockSvc.calls)

	c, w = newContext(http.MethodGet, "/groups", "", testSession())
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandlerCreate(t *testing.T) {
	mockSvc := &groupServiceMock{}
	h := NewGroupHandler(mockSvc)

	c, w := newContext(http.MethodPost, "/groups", `{"course_id":"CS2201","name":"Algo","max_members":4,"tags":["exam"]}`, testSession())
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 4, mockSvc.createReq.MaxMembers)
	assert.Equal(t, []string{"exam"}, mockSvc.createReq.Tags)

	c, w = newContext(http.MethodPost, "/groups", `[]`, testSession())
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandlerGetNotFound(t *testing.T) {
	h := NewGroupHandler(&groupServiceMock{})

	c, w := newContext(http.MethodGet, "/groups/missing", "", testSession())
	c.AddParam("id", "missing")
	h.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrNotFound.Code, decode(t, w).Error.Code)
}

func TestGroupHandlerJoinFull(t *testing.T) {
	mockSvc := &groupServiceMock{joinErr: appErrors.ErrGroupFull}
	h := NewGroupHandler(mockSvc)

	c, w := newContext(http.MethodPost, "/groups/g1/join", "", testSession())
	c.AddParam("id", "g1")
	h.Join(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrGroupFull.Code, decode(t, w).Error.Code)
}

func TestGroupHandlerMembershipCommands(t *testing.T) {
	mockSvc := &groupServiceMock{}
	h := NewGroupHandler(mockSvc)

	c, w := newContext(http.MethodPost, "/groups/g1/join", "", testSession())
	c.AddParam("id", "g1")
	h.Join(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"joined":true`)

	c, w = newContext(http.MethodPost, "/groups/g1/leave", "", testSession())
	c.AddParam("id", "g1")
	h.Leave(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Zero(t, w.Body.Len())

	c, w = newContext(http.MethodDelete, "/groups/g1?hard=true", "", testSession())
	c.AddParam("id", "g1")
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.True(t, mockSvc.hard)

	c, w = newContext(http.MethodPost, "/groups/g1/transfer", `{"new_owner_id":"u2"}`, testSession())
	c.AddParam("id", "g1")
	h.Transfer(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u2", mockSvc.transfer.NewOwnerID)

	assert.Equal(t, []string{"join:g1", "leave:g1", "delete:g1"}, mockSvc.calls)
}

func TestGroupHandlerInvite(t *testing.T) {
	mockSvc := &groupServiceMock{}
	h := NewGroupHandler(mockSvc)

	c, w := newContext(http.MethodPost, "/groups/g1/invite", `{"user_ids":["u2","u3"]}`, testSession())
	c.AddParam("id", "g1")
	h.Invite(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"u2", "u3"}, mockSvc.invite.UserIDs)
	assert.JSONEq(t, `{"invited":["u2"],"failed":{"u3":"already a member"}}`, string(decode(t, w).Data))

	c, w = newContext(http.MethodGet, "/groups/g1/invitees", "", testSession())
	c.AddParam("id", "g1")
	h.Invitees(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"u4"`)
}

func TestGroupHandlerLeaveThroughRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &groupServiceMock{}
	h := NewGroupHandler(mockSvc)

	r := gin.New()
	r.POST("/groups/:id/leave", func(c *gin.Context) {
		c.Set(middleware.ContextSessionKey, testSession())
		h.Leave(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/groups/g1/leave", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, []string{"leave:g1"}, mockSvc.calls)
}

func TestGroupHandlerUpdate(t *testing.T) {
	mockSvc := &groupServiceMock{}
	h := NewGroupHandler(mockSvc)

	c, w := newContext(http.MethodPut, "/groups/g1", `{"location":"Library","max_members":6}`, testSession())
	c.AddParam("id", "g1")
	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.update.Location)
	assert.Equal(t, "Library", *mockSvc.update.Location)
	require.NotNil(t, mockSvc.update.MaxMembers)
	assert.Equal(t, 6, *mockSvc.update.MaxMembers)
	assert.Nil(t, mockSvc.update.Name)

	c, w = newContext(http.MethodPut, "/groups/g1", `{}`, testSession())
	c.AddParam("id", "g1")
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext(http.MethodPut, "/groups/g1", `{"max_members":"six"}`, testSession())
	c.AddParam("id", "g1")
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []string{"update:g1", "update:g1"}, mockSvc.calls)
}
