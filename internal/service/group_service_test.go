package service

import (
	"context"
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

func groupFixture() *fakeBackend {
	backend := matchFixture()
	backend.groups["g1"] = &models.Group{
		ID:         "g1",
		Name:       "Algo Study",
		OwnerID:    "amy",
		CourseID:   "c1",
		MaxMembers: 3,
		Members: []models.GroupMember{
			{UserID: "amy", Role: models.GroupRoleAdmin},
			{UserID: "bob", Role: models.GroupRoleMember},
		},
	}
	return backend
}

func newTestGroupService(backend *fakeBackend) *GroupService {
	matches := NewMatchService(backend, 50, zap.NewNop())
	return NewGroupService(backend, matches, validator.New(), nil, zap.NewNop(), GroupConfig{DefaultMaxMembers: 5})
}

func TestGroupServiceCreateDefaultsCapacity(t *testing.T) {
	backend := groupFixture()
	svc := newTestGroupService(backend)

	summary, err := svc.Create(context.Background(), testSession("amy", "Amy"), models.CreateGroupRequest{
		CourseID: "c1",
		Name:     "  Night Owls ",
		Tags:     []string{"exam", "Exam", " ", "weekly"},
	})
	require.NoError(t, err)
	require.Len(t, backend.createdGroups, 1)
	created := backend.createdGroups[0]
	assert.Equal(t, "Night Owls", created.Name)
	assert.Equal(t, 5, created.MaxMembers)
	assert.Equal(t, []string{"exam", "weekly"}, created.Tags)
	assert.Equal(t, "amy", created.OwnerID)
	assert.True(t, summary.IsMember)
	assert.Equal(t, 4, summary.SpotsLeft)
}

func TestGroupServiceCreateRequiresEnrollment(t *testing.T) {
	svc := newTestGroupService(groupFixture())

	_, err := svc.Create(context.Background(), testSession("amy", "Amy"), models.CreateGroupRequest{CourseID: "c42", Name: "Nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGroupServiceCreateRejectsTinyGroups(t *testing.T) {
	svc := newTestGroupService(groupFixture())

	_, err := svc.Create(context.Background(), testSession("amy", "Amy"), models.CreateGroupRequest{CourseID: "c1", Name: "Solo", MaxMembers: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGroupServiceJoinFillsGroup(t *testing.T) {
	backend := groupFixture()
	svc := newTestGroupService(backend)

	res, err := svc.Join(context.Background(), testSession("cat", "Cat"), "g1")
	require.NoError(t, err)
	assert.True(t, res.Joined)
	assert.Equal(t, 0, res.Group.SpotsLeft)
	assert.False(t, res.Group.CanJoin)

	_, err = svc.Join(context.Background(), testSession("dan", "Dan"), "g1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrGroupFull)
	assert.Equal(t, 1, backend.joinCalls)
}

func TestGroupServiceJoinExistingMemberIsIdempotent(t *testing.T) {
	backend := groupFixture()
	svc := newTestGroupService(backend)

	res, err := svc.Join(context.Background(), testSession("bob", "Bob"), "g1")
	require.NoError(t, err)
	assert.False(t, res.Joined)
	assert.True(t, res.Group.IsMember)
	assert.Zero(t, backend.joinCalls)
}

func TestGroupServiceJoinRaceReportedByBackend(t *testing.T) {
	backend := groupFixture()
	backend.joinErr = appErrors.ErrGroupFull
	svc := newTestGroupService(backend)

	_, err := svc.Join(context.Background(), testSession("cat", "Cat"), "g1")
	assert.ErrorIs(t, err, appErrors.ErrGroupFull)
}

func TestGroupServiceJoinArchivedGroup(t *testing.T) {
	backend := groupFixture()
	backend.groups["g1"].Archived = true
	svc := newTestGroupService(backend)

	_, err := svc.Join(context.Background(), testSession("cat", "Cat"), "g1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGroupServiceOwnerCannotLeave(t *testing.T) {
	backend := groupFixture()
	svc := newTestGroupService(backend)

	err := svc.Leave(context.Background(), testSession("amy", "Amy"), "g1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Leave(context.Background(), testSession("bob", "Bob"), "g1"))
	assert.Equal(t, 1, backend.leaveCalls)

	err = svc.Leave(context.Background(), testSession("dan", "Dan"), "g1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGroupServiceTransferOwnership(t *testing.T) {
	backend := groupFixture()
	svc := newTestGroupService(backend)
	ctx := context.Background()

	_, err := svc.TransferOwnership(ctx, testSession("bob", "Bob"), "g1", models.TransferOwnershipRequest{NewOwnerID: "bob"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.TransferOwnership(ctx, testSession("amy", "Amy"), "g1", models.TransferOwnershipRequest{NewOwnerID: "dan"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	summary, err := svc.TransferOwnership(ctx, testSession("amy", "Amy"), "g1", models.TransferOwnershipRequest{NewOwnerID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "bob", summary.OwnerID)
	assert.Equal(t, "bob", backend.transferredTo)
}

func TestGroupServiceDeleteOwnerOnly(t *testing.T) {
	backend := groupFixture()
	svc := newTestGroupService(backend)

	err := svc.Delete(context.Background(), testSession("bob", "Bob"), "g1", false)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), testSession("amy", "Amy"), "g1", true))
	assert.True(t, backend.deleted["g1"])
}

func TestGroupServiceInviteFansOut(t *testing.T) {
	backend := groupFixture()
	backend.notifyErr["eve"] = appErrors.Clone(appErrors.ErrConflict, "invitation already pending")
	svc := newTestGroupService(backend)

	res, err := svc.Invite(context.Background(), testSession("amy", "Amy"), "g1", models.InviteRequest{
		UserIDs: []string{"cat", "dan", "cat", "bob", "amy", "eve"},
	})
	require.NoError(t, err)

	sort.Strings(res.Invited)
	assert.Equal(t, []string{"cat", "dan"}, res.Invited)
	assert.Equal(t, reasonAlreadyMember, res.Failed["bob"])
	assert.Equal(t, reasonSelfInvite, res.Failed["amy"])
	assert.Equal(t, "invitation already pending", res.Failed["eve"])

	require.Len(t, backend.notifications, 2)
	for _, n := range backend.notifications {
		assert.Equal(t, models.NotificationTypeGroupInvitation, n.Type)
		assert.Equal(t, models.InvitationPayload{GroupID: "g1", GroupName: "Algo Study", CourseID: "c1"}, n.Payload)
	}
}

func TestGroupServiceInviteRequiresMembership(t *testing.T) {
	svc := newTestGroupService(groupFixture())

	_, err := svc.Invite(context.Background(), testSession("dan", "Dan"), "g1", models.InviteRequest{UserIDs: []string{"cat"}})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestGroupServiceEligibleInviteesExcludesMembers(t *testing.T) {
	svc := newTestGroupService(groupFixture())

	matches, err := svc.EligibleInvitees(context.Background(), testSession("amy", "Amy"), "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat", "eve"}, candidateNames(matches))
}

func TestGroupServiceListSkipsArchived(t *testing.T) {
	backend := groupFixture()
	backend.listGroups = []models.Group{
		*backend.groups["g1"],
		{ID: "g2", Name: "Old", MaxMembers: 4, Archived: true},
	}
	svc := newTestGroupService(backend)

	groups, err := svc.ListByCourse(context.Background(), testSession("bob", "Bob"), "c1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].IsMember)
	assert.Equal(t, 1, groups[0].SpotsLeft)
}

func TestGroupServiceUpdateByOwner(t *testing.T) {
	backend := groupFixture()
	svc := newTestGroupService(backend)

	name := "  Algorithms Crew "
	maxMembers := 6
	summary, err := svc.Update(context.Background(), testSession("amy", "Amy"), "g1", models.GroupUpdate{
		Name:       &name,
		MaxMembers: &maxMembers,
		Tags:       []string{"exam", "EXAM"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Algorithms Crew", summary.Name)
	assert.Equal(t, 6, summary.MaxMembers)
	assert.Equal(t, 4, summary.SpotsLeft)
	assert.Equal(t, []string{"exam"}, summary.Tags)
	require.Len(t, backend.groupUpdates, 1)
}

func TestGroupServiceUpdateRules(t *testing.T) {
	backend := groupFixture()
	svc := newTestGroupService(backend)
	ctx := context.Background()
	location := "Library"

	_, err := svc.Update(ctx, testSession("bob", "Bob"), "g1", models.GroupUpdate{Location: &location})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(ctx, testSession("amy", "Amy"), "g1", models.GroupUpdate{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	one := 1
	_, err = svc.Update(ctx, testSession("amy", "Amy"), "g1", models.GroupUpdate{MaxMembers: &one})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// capacity may not drop below the three current members
	backend.groups["g1"].Members = append(backend.groups["g1"].Members, models.GroupMember{UserID: "cat"})
	two := 2
	_, err = svc.Update(ctx, testSession("amy", "Amy"), "g1", models.GroupUpdate{MaxMembers: &two})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	assert.Empty(t, backend.groupUpdates)
}
