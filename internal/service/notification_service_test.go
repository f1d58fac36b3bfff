package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

func notificationFixture() (*fakeBackend, *NotificationService) {
	backend := groupFixture()
	backend.notifications = []models.Notification{
		{ID: "n1", UserID: "cat", Type: models.NotificationTypeGroupInvitation, Payload: models.InvitationPayload{GroupID: "g1", GroupName: "Algo Study", CourseID: "c1"}},
		{ID: "n2", UserID: "cat", Type: "system"},
		{ID: "n3", UserID: "dan", Type: models.NotificationTypeGroupInvitation, Payload: models.InvitationPayload{GroupID: "g1"}},
	}
	groups := newTestGroupService(backend)
	return backend, NewNotificationService(backend, groups, nil, zap.NewNop())
}

func TestNotificationServiceListsUnreadInvitations(t *testing.T) {
	_, svc := notificationFixture()

	list, err := svc.List(context.Background(), testSession("cat", "Cat"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n1", list[0].ID)
	assert.Equal(t, "g1", list[0].Payload.GroupID)
}

func TestNotificationServiceAcceptJoinsGroup(t *testing.T) {
	backend, svc := notificationFixture()
	session := testSession("cat", "Cat")

	res, err := svc.Accept(context.Background(), session, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationAccepted, res.State)
	assert.True(t, res.Joined)
	assert.Equal(t, "g1", res.GroupID)
	assert.Equal(t, []string{"n1"}, backend.markedRead)
	assert.True(t, IsMember(backend.groups["g1"], "cat"))

	_, err = svc.Accept(context.Background(), session, "n1")
	assert.ErrorIs(t, err, appErrors.ErrNotificationNotFound)
}

func TestNotificationServiceAcceptFullGroupStaysUnread(t *testing.T) {
	backend, svc := notificationFixture()
	backend.groups["g1"].MaxMembers = 2

	_, err := svc.Accept(context.Background(), testSession("cat", "Cat"), "n1")
	assert.ErrorIs(t, err, appErrors.ErrGroupFull)
	assert.Empty(t, backend.markedRead)

	list, err := svc.List(context.Background(), testSession("cat", "Cat"))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNotificationServiceAcceptWhenAlreadyMember(t *testing.T) {
	backend, svc := notificationFixture()
	backend.groups["g1"].Members = append(backend.groups["g1"].Members, models.GroupMember{UserID: "cat"})

	res, err := svc.Accept(context.Background(), testSession("cat", "Cat"), "n1")
	require.NoError(t, err)
	assert.False(t, res.Joined)
	assert.Equal(t, models.NotificationAccepted, res.State)
	assert.Zero(t, backend.joinCalls)
}

func TestNotificationServiceDeclineLeavesMembership(t *testing.T) {
	backend, svc := notificationFixture()
	session := testSession("cat", "Cat")

	res, err := svc.Decline(context.Background(), session, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationDeclined, res.State)
	assert.Equal(t, []string{"n1"}, backend.deletedNotifIDs)
	assert.False(t, IsMember(backend.groups["g1"], "cat"))

	_, err = svc.Decline(context.Background(), session, "n1")
	assert.ErrorIs(t, err, appErrors.ErrNotificationNotFound)
	_, err = svc.Accept(context.Background(), session, "n1")
	assert.ErrorIs(t, err, appErrors.ErrNotificationNotFound)
}

func TestNotificationServiceCannotResolveOthersNotifications(t *testing.T) {
	_, svc := notificationFixture()

	_, err := svc.Accept(context.Background(), testSession("cat", "Cat"), "n3")
	assert.ErrorIs(t, err, appErrors.ErrNotificationNotFound)
}

func TestNotificationStateTransitions(t *testing.T) {
	next, err := models.NotificationUnread.Transition(models.NotificationAccepted)
	require.NoError(t, err)
	assert.True(t, next.Terminal())

	_, err = models.NotificationAccepted.Transition(models.NotificationDeclined)
	assert.Error(t, err)
	_, err = models.NotificationDeclined.Transition(models.NotificationAccepted)
	assert.Error(t, err)
	_, err = models.NotificationUnread.Transition(models.NotificationUnread)
	assert.Error(t, err)
}

func TestNotificationServiceUnreadCount(t *testing.T) {
	_, svc := notificationFixture()

	count, err := svc.UnreadCount(context.Background(), testSession("cat", "Cat"))
	require.NoError(t, err)
	assert.Equal(t, 2, count.Count)
}

func TestNotificationServiceMarkAllReadKeepsPendingInvitations(t *testing.T) {
	backend, svc := notificationFixture()
	session := testSession("cat", "Cat")

	res, err := svc.MarkAllRead(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []string{"n2"}, backend.markedRead)
	assert.Zero(t, backend.readAllCalls)

	list, err := svc.List(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n1", list[0].ID)
}

func TestNotificationServiceMarkAllReadUsesBulkWithoutInvitations(t *testing.T) {
	backend, svc := notificationFixture()
	backend.notifications = []models.Notification{
		{ID: "n7", UserID: "cat", Type: "system"},
		{ID: "n8", UserID: "cat", Type: "system"},
	}

	res, err := svc.MarkAllRead(context.Background(), testSession("cat", "Cat"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 1, backend.readAllCalls)
}
