package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

type notificationBackend interface {
	ListNotifications(ctx context.Context, token, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, token, userID, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, token, userID string) (int, error)
	UnreadNotificationCount(ctx context.Context, token, userID string) (int, error)
	DeleteNotification(ctx context.Context, token, userID, notificationID string) error
}

type groupJoiner interface {
	Join(ctx context.Context, session *models.Session, groupID string) (*models.JoinResult, error)
}

// NotificationService drives the invitation lifecycle: unread invitations are
// either accepted (join + mark read) or declined (deleted). Both are terminal.
type NotificationService struct {
	backend notificationBackend
	groups  groupJoiner
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(backend notificationBackend, groups groupJoiner, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{backend: backend, groups: groups, metrics: metrics, logger: logger}
}

// List returns the caller's unread group invitations.
func (s *NotificationService) List(ctx context.Context, session *models.Session) ([]models.Notification, error) {
	all, err := s.backend.ListNotifications(ctx, session.UpstreamToken, session.UserID, true)
	if err != nil {
		return nil, backendError(err, "failed to load notifications")
	}
	out := make([]models.Notification, 0, len(all))
	for _, n := range all {
		if n.Type == models.NotificationTypeGroupInvitation && !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications for the badge.
func (s *NotificationService) UnreadCount(ctx context.Context, session *models.Session) (*models.NotificationCount, error) {
	count, err := s.backend.UnreadNotificationCount(ctx, session.UpstreamToken, session.UserID)
	if err != nil {
		return nil, backendError(err, "failed to count notifications")
	}
	return &models.NotificationCount{Count: count}, nil
}

// MarkAllRead clears the caller's informational notifications. Pending group
// invitations are only resolved through Accept or Decline, so when any exist the
// other notifications are marked one by one and the invitations stay unread.
func (s *NotificationService) MarkAllRead(ctx context.Context, session *models.Session) (*models.NotificationCount, error) {
	unread, err := s.backend.ListNotifications(ctx, session.UpstreamToken, session.UserID, true)
	if err != nil {
		return nil, backendError(err, "failed to load notifications")
	}
	others := make([]string, 0, len(unread))
	pendingInvites := 0
	for _, n := range unread {
		if n.Type == models.NotificationTypeGroupInvitation {
			pendingInvites++
			continue
		}
		others = append(others, n.ID)
	}

	if pendingInvites == 0 {
		updated, err := s.backend.MarkAllNotificationsRead(ctx, session.UpstreamToken, session.UserID)
		if err != nil {
			return nil, backendError(err, "failed to mark notifications read")
		}
		return &models.NotificationCount{Count: updated}, nil
	}

	var (
		mu      sync.Mutex
		updated int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inviteFanOutLimit)
	for _, id := range others {
		id := id
		g.Go(func() error {
			if err := s.backend.MarkNotificationRead(gctx, session.UpstreamToken, session.UserID, id); err != nil {
				return err
			}
			mu.Lock()
			updated++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, backendError(err, "failed to mark notifications read")
	}
	s.logger.Debug("kept pending invitations unread", zap.String("user_id", session.UserID), zap.Int("invitations", pendingInvites))
	return &models.NotificationCount{Count: updated}, nil
}

// Accept joins the invited group and resolves the notification. A full group fails
// with ErrGroupFull and leaves the notification unread.
func (s *NotificationService) Accept(ctx context.Context, session *models.Session, notificationID string) (*models.NotificationResolution, error) {
	n, next, err := s.pending(ctx, session, notificationID, models.NotificationAccepted)
	if err != nil {
		return nil, err
	}

	joined, err := s.groups.Join(ctx, session, n.Payload.GroupID)
	if err != nil {
		s.metrics.RecordEvent("invitation_accept", "error")
		return nil, err
	}
	if err := s.backend.MarkNotificationRead(ctx, session.UpstreamToken, session.UserID, n.ID); err != nil {
		return nil, backendError(err, "failed to resolve notification")
	}
	s.metrics.RecordEvent("invitation_accept", "ok")
	return &models.NotificationResolution{
		NotificationID: n.ID,
		State:          next,
		GroupID:        n.Payload.GroupID,
		Joined:         joined.Joined,
	}, nil
}

// Decline discards the invitation without touching membership.
func (s *NotificationService) Decline(ctx context.Context, session *models.Session, notificationID string) (*models.NotificationResolution, error) {
	n, next, err := s.pending(ctx, session, notificationID, models.NotificationDeclined)
	if err != nil {
		return nil, err
	}
	if err := s.backend.DeleteNotification(ctx, session.UpstreamToken, session.UserID, n.ID); err != nil {
		return nil, backendError(err, "failed to resolve notification")
	}
	s.metrics.RecordEvent("invitation_decline", "ok")
	return &models.NotificationResolution{NotificationID: n.ID, State: next, GroupID: n.Payload.GroupID}, nil
}

// pending finds the notification among the caller's unread invitations and checks
// the requested transition.
func (s *NotificationService) pending(ctx context.Context, session *models.Session, notificationID string, to models.NotificationState) (*models.Notification, models.NotificationState, error) {
	unread, err := s.List(ctx, session)
	if err != nil {
		return nil, "", err
	}
	for i := range unread {
		if unread[i].ID != notificationID {
			continue
		}
		next, err := models.NotificationUnread.Transition(to)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification action")
		}
		return &unread[i], next, nil
	}
	return nil, "", appErrors.ErrNotificationNotFound
}
