package repository

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

const testSecret = "memory-secret"

func newTestMemoryBackend(t *testing.T) (*MemoryBackend, string, string) {
	t.Helper()
	m := NewMemoryBackend(testSecret, time.Hour, WithBcryptCost(bcrypt.MinCost))
	m.AddCourse(models.Course{ID: "cs2201", Code: "CS 2201", Name: "Data Structures"})
	m.AddCourse(models.Course{ID: "math2410", Code: "MATH 2410", Name: "Discrete Mathematics"})

	ctx := context.Background()
	alice, err := m.Register(ctx, models.RegisterRequest{Email: "alice@university.edu", Password: "password123", Name: "Alice Johnson"})
	require.NoError(t, err)
	bob, err := m.Register(ctx, models.RegisterRequest{Email: "bob@university.edu", Password: "password123", Name: "Bob Smith"})
	require.NoError(t, err)
	return m, alice, bob
}

func TestMemoryBackendRegisterAndLogin(t *testing.T) {
	m, alice, _ := newTestMemoryBackend(t)
	ctx := context.Background()

	_, err := m.Register(ctx, models.RegisterRequest{Email: "ALICE@university.edu", Password: "password123", Name: "Dup"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = m.Login(ctx, models.LoginRequest{Email: "alice@university.edu", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	res, err := m.Login(ctx, models.LoginRequest{Email: "alice@university.edu", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, alice, res.User.ID)
	assert.Equal(t, "AJ", res.User.Avatar)

	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(res.Token, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, alice, claims.Subject)
}

func TestMemoryBackendEnrollAndOverview(t *testing.T) {
	m, alice, bob := newTestMemoryBackend(t)
	ctx := context.Background()

	require.NoError(t, m.Enroll(ctx, "", "math2410", alice))
	require.NoError(t, m.Enroll(ctx, "", "cs2201", alice))
	require.NoError(t, m.Enroll(ctx, "", "cs2201", bob))
	assert.ErrorIs(t, m.Enroll(ctx, "", "cs2201", alice), appErrors.ErrConflict)
	assert.ErrorIs(t, m.Enroll(ctx, "", "nope", alice), appErrors.ErrNotFound)
	_, err := m.AddAvailability(ctx, "", alice, "Mon 3-5pm")
	require.NoError(t, err)

	overview, err := m.Overview(ctx, "", alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"cs2201", "math2410"}, overview.CourseIDs())
	assert.Equal(t, 2, overview.Courses[0].EnrolledCount)
	require.Len(t, overview.Availability, 1)

	candidates, err := m.Candidates(ctx, "", alice, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, bob, candidates[0].ID)
	assert.Equal(t, []string{"cs2201"}, candidates[0].CourseIDs)
}

func TestMemoryBackendGroupLifecycle(t *testing.T) {
	m, alice, bob := newTestMemoryBackend(t)
	ctx := context.Background()

	carol, err := m.Register(ctx, models.RegisterRequest{Email: "carol@university.edu", Password: "password123", Name: "Carol"})
	require.NoError(t, err)

	groupID, err := m.CreateGroup(ctx, "", models.NewGroup{OwnerID: alice, CourseID: "cs2201", Name: "Algo", MaxMembers: 2})
	require.NoError(t, err)

	require.NoError(t, m.JoinGroup(ctx, "", groupID, bob))
	assert.ErrorIs(t, m.JoinGroup(ctx, "", groupID, bob), appErrors.ErrAlreadyMember)
	assert.ErrorIs(t, m.JoinGroup(ctx, "", groupID, carol), appErrors.ErrGroupFull)

	assert.ErrorIs(t, m.LeaveGroup(ctx, "", groupID, alice), appErrors.ErrValidation)
	assert.ErrorIs(t, m.TransferOwnership(ctx, "", groupID, carol), appErrors.ErrValidation)
	require.NoError(t, m.TransferOwnership(ctx, "", groupID, bob))

	group, err := m.GetGroup(ctx, "", groupID)
	require.NoError(t, err)
	assert.Equal(t, bob, group.OwnerID)
	assert.Equal(t, models.GroupRoleAdmin, group.Members[1].Role)
	assert.Equal(t, models.GroupRoleMember, group.Members[0].Role)

	require.NoError(t, m.LeaveGroup(ctx, "", groupID, alice))
	mine, err := m.ListUserGroups(ctx, "", alice)
	require.NoError(t, err)
	assert.Empty(t, mine)

	require.NoError(t, m.DeleteGroup(ctx, "", groupID, false))
	listed, err := m.ListGroups(ctx, "", "cs2201")
	require.NoError(t, err)
	assert.Empty(t, listed)
	archived, err := m.GetGroup(ctx, "", groupID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	require.NoError(t, m.DeleteGroup(ctx, "", groupID, true))
	_, err = m.GetGroup(ctx, "", groupID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestMemoryBackendGetGroupReturnsCopy(t *testing.T) {
	m, alice, _ := newTestMemoryBackend(t)
	ctx := context.Background()
	groupID, err := m.CreateGroup(ctx, "", models.NewGroup{OwnerID: alice, CourseID: "cs2201", Name: "Algo"})
	require.NoError(t, err)

	group, err := m.GetGroup(ctx, "", groupID)
	require.NoError(t, err)
	assert.Equal(t, defaultGroupCapacity, group.MaxMembers)
	group.Members = append(group.Members, models.GroupMember{UserID: "intruder"})

	again, err := m.GetGroup(ctx, "", groupID)
	require.NoError(t, err)
	assert.Len(t, again.Members, 1)
}

func TestMemoryBackendNotifications(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryBackend(testSecret, time.Hour, WithBcryptCost(bcrypt.MinCost), WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	ctx := context.Background()
	alice, err := m.Register(ctx, models.RegisterRequest{Email: "alice@university.edu", Password: "password123", Name: "Alice"})
	require.NoError(t, err)

	payload := models.InvitationPayload{GroupID: "g1", GroupName: "Algo", CourseID: "cs2201"}
	first, err := m.CreateNotification(ctx, "", alice, models.NotificationTypeGroupInvitation, payload)
	require.NoError(t, err)
	second, err := m.CreateNotification(ctx, "", alice, models.NotificationTypeGroupInvitation, payload)
	require.NoError(t, err)

	list, err := m.ListNotifications(ctx, "", alice, true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)

	require.NoError(t, m.MarkNotificationRead(ctx, "", alice, first))
	unread, err := m.ListNotifications(ctx, "", alice, true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
	all, err := m.ListNotifications(ctx, "", alice, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, m.DeleteNotification(ctx, "", alice, second))
	assert.ErrorIs(t, m.DeleteNotification(ctx, "", alice, second), appErrors.ErrNotFound)
	assert.ErrorIs(t, m.MarkNotificationRead(ctx, "", "someone-else", first), appErrors.ErrNotFound)
}

func TestMemoryBackendMessagesNewestFirst(t *testing.T) {
	m, alice, _ := newTestMemoryBackend(t)
	ctx := context.Background()
	groupID, err := m.CreateGroup(ctx, "", models.NewGroup{OwnerID: alice, CourseID: "cs2201", Name: "Algo"})
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := m.PostMessage(ctx, "", groupID, alice, content)
		require.NoError(t, err)
	}

	page, err := m.ListMessages(ctx, "", groupID, models.MessageFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Content)
	assert.Equal(t, "two", page[1].Content)

	rest, err := m.ListMessages(ctx, "", groupID, models.MessageFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "one", rest[0].Content)
	assert.Equal(t, "Alice Johnson", rest[0].AuthorName)
}

func TestMemoryBackendAvailabilitySlots(t *testing.T) {
	m, alice, _ := newTestMemoryBackend(t)
	ctx := context.Background()

	first, err := m.AddAvailability(ctx, "", alice, "Mon 3-5pm")
	require.NoError(t, err)
	_, err = m.AddAvailability(ctx, "", alice, "Wed 1-2pm")
	require.NoError(t, err)
	_, err = m.AddAvailability(ctx, "", alice, " ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	require.NoError(t, m.DeleteAvailability(ctx, "", alice, first))
	assert.ErrorIs(t, m.DeleteAvailability(ctx, "", alice, first), appErrors.ErrNotFound)

	overview, err := m.Overview(ctx, "", alice)
	require.NoError(t, err)
	require.Len(t, overview.Availability, 1)
	assert.Equal(t, "Wed 1-2pm", overview.Availability[0].Slot)

	require.NoError(t, m.ReplaceAvailability(ctx, "", alice, []string{"Tue 9-11am", "", "Thu 9-11am"}))
	overview, err = m.Overview(ctx, "", alice)
	require.NoError(t, err)
	require.Len(t, overview.Availability, 2)
	assert.Equal(t, "Tue 9-11am", overview.Availability[0].Slot)

	assert.ErrorIs(t, m.ReplaceAvailability(ctx, "", "ghost", nil), appErrors.ErrNotFound)
}

func TestMemoryBackendUnenroll(t *testing.T) {
	m, alice, _ := newTestMemoryBackend(t)
	ctx := context.Background()

	require.NoError(t, m.Enroll(ctx, "", "cs2201", alice))
	require.NoError(t, m.Unenroll(ctx, "", "cs2201", alice))
	assert.ErrorIs(t, m.Unenroll(ctx, "", "cs2201", alice), appErrors.ErrNotFound)

	overview, err := m.Overview(ctx, "", alice)
	require.NoError(t, err)
	assert.Empty(t, overview.Courses)
}

func TestMemoryBackendUpdateGroup(t *testing.T) {
	m, alice, bob := newTestMemoryBackend(t)
	ctx := context.Background()
	groupID, err := m.CreateGroup(ctx, "", models.NewGroup{OwnerID: alice, CourseID: "cs2201", Name: "Algo", MaxMembers: 4})
	require.NoError(t, err)
	require.NoError(t, m.JoinGroup(ctx, "", groupID, bob))

	location := "Library 3B"
	require.NoError(t, m.UpdateGroup(ctx, "", groupID, models.GroupUpdate{Location: &location, Tags: []string{"exam"}}))
	group, err := m.GetGroup(ctx, "", groupID)
	require.NoError(t, err)
	assert.Equal(t, "Library 3B", group.Location)
	assert.Equal(t, []string{"exam"}, group.Tags)
	assert.Equal(t, "Algo", group.Name)

	one := 1
	assert.ErrorIs(t, m.UpdateGroup(ctx, "", groupID, models.GroupUpdate{MaxMembers: &one}), appErrors.ErrValidation)
	assert.ErrorIs(t, m.UpdateGroup(ctx, "", groupID, models.GroupUpdate{}), appErrors.ErrValidation)
	assert.ErrorIs(t, m.UpdateGroup(ctx, "", "missing", models.GroupUpdate{Location: &location}), appErrors.ErrNotFound)
}

func TestMemoryBackendReadAllAndUnreadCount(t *testing.T) {
	m, alice, bob := newTestMemoryBackend(t)
	ctx := context.Background()
	payload := models.InvitationPayload{GroupID: "g1", GroupName: "Algo"}
	for i := 0; i < 2; i++ {
		_, err := m.CreateNotification(ctx, "", alice, models.NotificationTypeGroupInvitation, payload)
		require.NoError(t, err)
	}
	_, err := m.CreateNotification(ctx, "", bob, models.NotificationTypeGroupInvitation, payload)
	require.NoError(t, err)

	count, err := m.UnreadNotificationCount(ctx, "", alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	updated, err := m.MarkAllNotificationsRead(ctx, "", alice)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	count, err = m.UnreadNotificationCount(ctx, "", alice)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = m.UnreadNotificationCount(ctx, "", bob)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = m.UnreadNotificationCount(ctx, "", "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestInitialsHandleMultibyteNames(t *testing.T) {
	assert.Equal(t, "ÉD", initials("Émile Durand"))
	assert.Equal(t, "ŁW", initials("łukasz wójcik jr"))
	assert.Equal(t, "A", initials("  alice "))
	assert.Empty(t, initials(""))
}
