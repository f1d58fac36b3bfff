package repository

import (
	"context"

	"github.com/noah-isme/classmatch-api/internal/models"
)

// Backend is the authoritative ClassMatch collaborator. HTTPBackend talks to the
// real REST service; MemoryBackend stands in for it in mock mode and tests.
// token is the caller's upstream bearer token; it may be empty and is never inspected.
type Backend interface {
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	UpdateProfile(ctx context.Context, token, userID string, update models.ProfileUpdate) error
	Overview(ctx context.Context, token, userID string) (*models.Overview, error)
	Candidates(ctx context.Context, token, userID string, reference []models.Course) ([]models.User, error)
	AddAvailability(ctx context.Context, token, userID, slot string) (string, error)
	DeleteAvailability(ctx context.Context, token, userID, slotID string) error
	ReplaceAvailability(ctx context.Context, token, userID string, slots []string) error

	ListCourses(ctx context.Context, token string) ([]models.Course, error)
	Enroll(ctx context.Context, token, courseID, userID string) error
	Unenroll(ctx context.Context, token, courseID, userID string) error

	CreateGroup(ctx context.Context, token string, group models.NewGroup) (string, error)
	ListGroups(ctx context.Context, token, courseID string) ([]models.Group, error)
	ListUserGroups(ctx context.Context, token, userID string) ([]models.Group, error)
	GetGroup(ctx context.Context, token, groupID string) (*models.Group, error)
	UpdateGroup(ctx context.Context, token, groupID string, update models.GroupUpdate) error
	JoinGroup(ctx context.Context, token, groupID, userID string) error
	LeaveGroup(ctx context.Context, token, groupID, userID string) error
	TransferOwnership(ctx context.Context, token, groupID, newOwnerID string) error
	DeleteGroup(ctx context.Context, token, groupID string, hard bool) error

	ListNotifications(ctx context.Context, token, userID string, unreadOnly bool) ([]models.Notification, error)
	CreateNotification(ctx context.Context, token, userID string, kind models.NotificationType, payload models.InvitationPayload) (string, error)
	MarkNotificationRead(ctx context.Context, token, userID, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, token, userID string) (int, error)
	UnreadNotificationCount(ctx context.Context, token, userID string) (int, error)
	DeleteNotification(ctx context.Context, token, userID, notificationID string) error

	ListMessages(ctx context.Context, token, groupID string, filter models.MessageFilter) ([]models.Message, error)
	PostMessage(ctx context.Context, token, groupID, userID, content string) (string, error)
}

var (
	_ Backend = (*HTTPBackend)(nil)
	_ Backend = (*MemoryBackend)(nil)
)
