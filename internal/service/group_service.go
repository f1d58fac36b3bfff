package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

const (
	minGroupMembers     = 2
	inviteFanOutLimit   = 8
	reasonAlreadyMember = "already a member"
	reasonSelfInvite    = "cannot invite yourself"
)

type groupBackend interface {
	Overview(ctx context.Context, token, userID string) (*models.Overview, error)
	CreateGroup(ctx context.Context, token string, group models.NewGroup) (string, error)
	ListGroups(ctx context.Context, token, courseID string) ([]models.Group, error)
	ListUserGroups(ctx context.Context, token, userID string) ([]models.Group, error)
	GetGroup(ctx context.Context, token, groupID string) (*models.Group, error)
	UpdateGroup(ctx context.Context, token, groupID string, update models.GroupUpdate) error
	JoinGroup(ctx context.Context, token, groupID, userID string) error
	LeaveGroup(ctx context.Context, token, groupID, userID string) error
	TransferOwnership(ctx context.Context, token, groupID, newOwnerID string) error
	DeleteGroup(ctx context.Context, token, groupID string, hard bool) error
	CreateNotification(ctx context.Context, token, userID string, kind models.NotificationType, payload models.InvitationPayload) (string, error)
}

type matchLister interface {
	List(ctx context.Context, session *models.Session, query models.MatchQuery) ([]models.Match, error)
}

// GroupConfig holds group defaults.
type GroupConfig struct {
	DefaultMaxMembers int
}

// GroupService implements the study group directory.
type GroupService struct {
	backend   groupBackend
	matches   matchLister
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	config    GroupConfig
}

// NewGroupService constructs a GroupService.
func NewGroupService(backend groupBackend, matches matchLister, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, config GroupConfig) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultMaxMembers < minGroupMembers {
		config.DefaultMaxMembers = 5
	}
	return &GroupService{backend: backend, matches: matches, validator: validate, metrics: metrics, logger: logger, config: config}
}

// Create validates and creates a group owned by the caller. The caller must be
// enrolled in the group's course.
func (s *GroupService) Create(ctx context.Context, session *models.Session, req models.CreateGroupRequest) (*models.GroupSummary, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid group payload")
	}
	if req.MaxMembers == 0 {
		req.MaxMembers = s.config.DefaultMaxMembers
	}

	overview, err := s.backend.Overview(ctx, session.UpstreamToken, session.UserID)
	if err != nil {
		return nil, backendError(err, "failed to load your courses")
	}
	if !IsEnrolled(req.CourseID, overview.CourseIDs()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you can only create groups for courses you are enrolled in")
	}

	groupID, err := s.backend.CreateGroup(ctx, session.UpstreamToken, models.NewGroup{
		OwnerID:     session.UserID,
		CourseID:    req.CourseID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		MeetingTime: strings.TrimSpace(req.MeetingTime),
		Location:    strings.TrimSpace(req.Location),
		MaxMembers:  req.MaxMembers,
		Tags:        normalizeTags(req.Tags),
	})
	if err != nil {
		return nil, backendError(err, "failed to create group")
	}
	s.logger.Info("group created", zap.String("group_id", groupID), zap.String("owner_id", session.UserID))
	return s.Get(ctx, session, groupID)
}

// Get returns a group annotated for the caller.
func (s *GroupService) Get(ctx context.Context, session *models.Session, groupID string) (*models.GroupSummary, error) {
	group, err := s.load(ctx, session, groupID)
	if err != nil {
		return nil, err
	}
	summary := Summarize(*group, session.UserID)
	return &summary, nil
}

// ListByCourse lists active groups, optionally scoped to one course.
func (s *GroupService) ListByCourse(ctx context.Context, session *models.Session, courseID string) ([]models.GroupSummary, error) {
	groups, err := s.backend.ListGroups(ctx, session.UpstreamToken, courseID)
	if err != nil {
		return nil, backendError(err, "failed to list groups")
	}
	return summarizeAll(groups, session.UserID), nil
}

// ListForUser lists the caller's groups.
func (s *GroupService) ListForUser(ctx context.Context, session *models.Session) ([]models.GroupSummary, error) {
	groups, err := s.backend.ListUserGroups(ctx, session.UpstreamToken, session.UserID)
	if err != nil {
		return nil, backendError(err, "failed to list your groups")
	}
	return summarizeAll(groups, session.UserID), nil
}

// Join adds the caller to a group. Joining a group the caller already belongs to
// succeeds with Joined=false; a full group fails with ErrGroupFull.
func (s *GroupService) Join(ctx context.Context, session *models.Session, groupID string) (*models.JoinResult, error) {
	group, err := s.load(ctx, session, groupID)
	if err != nil {
		return nil, err
	}

	member := models.GroupMember{UserID: session.UserID, Name: session.Profile.Name, Role: models.GroupRoleMember}
	if err := Join(group, member); err != nil {
		return s.joinOutcome(group, session.UserID, err)
	}

	if err := s.backend.JoinGroup(ctx, session.UpstreamToken, groupID, session.UserID); err != nil {
		return s.joinOutcome(group, session.UserID, err)
	}
	s.metrics.RecordEvent("group_join", "ok")
	return &models.JoinResult{Group: Summarize(*group, session.UserID), Joined: true}, nil
}

func (s *GroupService) joinOutcome(group *models.Group, userID string, err error) (*models.JoinResult, error) {
	switch {
	case errors.Is(err, appErrors.ErrAlreadyMember):
		s.metrics.RecordEvent("group_join", "already_member")
		if !IsMember(group, userID) {
			group.Members = append(group.Members, models.GroupMember{UserID: userID, Role: models.GroupRoleMember})
		}
		return &models.JoinResult{Group: Summarize(*group, userID), Joined: false}, nil
	case errors.Is(err, appErrors.ErrGroupFull):
		s.metrics.RecordEvent("group_join", "full")
		return nil, err
	default:
		s.metrics.RecordEvent("group_join", "error")
		return nil, backendError(err, "failed to join group")
	}
}

// Leave removes the caller from a group. Owners must transfer or delete instead.
func (s *GroupService) Leave(ctx context.Context, session *models.Session, groupID string) error {
	group, err := s.load(ctx, session, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID == session.UserID {
		return appErrors.Clone(appErrors.ErrValidation, "owner cannot leave group, transfer ownership or delete group")
	}
	if !IsMember(group, session.UserID) {
		return appErrors.Clone(appErrors.ErrNotFound, "you are not a member of this group")
	}
	if err := s.backend.LeaveGroup(ctx, session.UpstreamToken, groupID, session.UserID); err != nil {
		return backendError(err, "failed to leave group")
	}
	return nil
}

// TransferOwnership hands the group to another member. Only the owner may do this.
func (s *GroupService) TransferOwnership(ctx context.Context, session *models.Session, groupID string, req models.TransferOwnershipRequest) (*models.GroupSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid transfer payload")
	}
	group, err := s.load(ctx, session, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != session.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the group owner can transfer ownership")
	}
	if req.NewOwnerID == session.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you already own this group")
	}
	if !IsMember(group, req.NewOwnerID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new owner must be an active member")
	}
	if err := s.backend.TransferOwnership(ctx, session.UpstreamToken, groupID, req.NewOwnerID); err != nil {
		return nil, backendError(err, "failed to transfer ownership")
	}
	return s.Get(ctx, session, groupID)
}

// Update edits the group's details. Owner only; capacity may not drop below the
// current member count.
func (s *GroupService) Update(ctx context.Context, session *models.Session, groupID string, update models.GroupUpdate) (*models.GroupSummary, error) {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
	}
	if update.Tags != nil {
		update.Tags = normalizeTags(update.Tags)
	}
	if err := s.validator.Struct(update); err != nil {
		return nil, validationError(err, "invalid group payload")
	}
	if update.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid fields to update")
	}
	group, err := s.load(ctx, session, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != session.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the group owner can edit the group")
	}
	if update.MaxMembers != nil && *update.MaxMembers < len(group.Members) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max_members cannot be below the current member count")
	}
	if err := s.backend.UpdateGroup(ctx, session.UpstreamToken, groupID, update); err != nil {
		return nil, backendError(err, "failed to update group")
	}
	return s.Get(ctx, session, groupID)
}

// Delete archives a group, or removes it entirely when hard is set. Owner only.
func (s *GroupService) Delete(ctx context.Context, session *models.Session, groupID string, hard bool) error {
	group, err := s.load(ctx, session, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != session.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the group owner can delete the group")
	}
	if err := s.backend.DeleteGroup(ctx, session.UpstreamToken, groupID, hard); err != nil {
		return backendError(err, "failed to delete group")
	}
	s.logger.Info("group deleted", zap.String("group_id", groupID), zap.Bool("hard", hard))
	return nil
}

// Invite sends a group_invitation notification to each user concurrently. Failures
// are reported per user and do not stop the rest of the batch.
func (s *GroupService) Invite(ctx context.Context, session *models.Session, groupID string, req models.InviteRequest) (*models.InviteResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid invitation payload")
	}
	group, err := s.load(ctx, session, groupID)
	if err != nil {
		return nil, err
	}
	if !IsMember(group, session.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only members can invite to this group")
	}

	result := &models.InviteResult{Invited: []string{}, Failed: map[string]string{}}
	targets := make([]string, 0, len(req.UserIDs))
	seen := make(map[string]struct{}, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		switch {
		case id == session.UserID:
			result.Failed[id] = reasonSelfInvite
		case IsMember(group, id):
			result.Failed[id] = reasonAlreadyMember
		default:
			targets = append(targets, id)
		}
	}

	payload := models.InvitationPayload{GroupID: group.ID, GroupName: group.Name, CourseID: group.CourseID}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inviteFanOutLimit)
	for _, userID := range targets {
		userID := userID
		g.Go(func() error {
			_, err := s.backend.CreateNotification(gctx, session.UpstreamToken, userID, models.NotificationTypeGroupInvitation, payload)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[userID] = appErrors.FromError(err).Message
				s.metrics.RecordEvent("invitation", "error")
				return nil
			}
			result.Invited = append(result.Invited, userID)
			s.metrics.RecordEvent("invitation", "ok")
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if len(result.Failed) > 0 {
		s.logger.Warn("some invitations failed",
			zap.String("group_id", groupID),
			zap.Int("invited", len(result.Invited)),
			zap.Int("failed", len(result.Failed)))
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}

// EligibleInvitees lists the caller's matches who are not yet members of the group.
func (s *GroupService) EligibleInvitees(ctx context.Context, session *models.Session, groupID string) ([]models.Match, error) {
	var (
		group   *models.Group
		matches []models.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		group, err = s.load(gctx, session, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matches.List(gctx, session, models.MatchQuery{SortBy: models.MatchSortScore})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if !IsMember(group, m.Candidate.ID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *GroupService) load(ctx context.Context, session *models.Session, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group id is required")
	}
	group, err := s.backend.GetGroup(ctx, session.UpstreamToken, groupID)
	if err != nil {
		return nil, backendError(err, "failed to load group")
	}
	if group.Archived {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	return group, nil
}

func summarizeAll(groups []models.Group, viewerID string) []models.GroupSummary {
	out := make([]models.GroupSummary, 0, len(groups))
	for _, g := range groups {
		if g.Archived {
			continue
		}
		out = append(out, Summarize(g, viewerID))
	}
	return out
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
