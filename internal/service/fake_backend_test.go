package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

// fakeBackend is a hand-written stand-in for the collaborator used by service tests.
type fakeBackend struct {
	mu sync.Mutex

	registerID  string
	registerErr error
	authResult  *models.AuthResult
	loginErr    error
	updateErr   error
	updates     []models.ProfileUpdate
	onUpdate    func()

	overviews     map[string]*models.Overview
	overviewErr   error
	overviewCalls int
	candidates    []models.User
	candidatesErr error
	candidateRefs []models.Course

	availability    map[string][]models.AvailabilitySlot
	availabilityErr error

	courses     []models.Course
	coursesErr  error
	coursesHits int
	enrollErr     error
	enrollCalls   []string
	unenrollErr   error
	unenrollCalls []string

	groups        map[string]*models.Group
	groupErr      error
	listGroups    []models.Group
	createdGroups []models.NewGroup
	joinErr       error
	joinCalls     int
	leaveCalls    int
	transferredTo string
	deleted       map[string]bool
	groupUpdates  []models.GroupUpdate

	notifications   []models.Notification
	notifyErr       map[string]error
	invitedUsers    []string
	markedRead      []string
	deletedNotifIDs []string
	readAllCalls    int

	messages []models.Message
	posted   []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		overviews: map[string]*models.Overview{},
		groups:    map[string]*models.Group{},
		deleted:   map[string]bool{},
		notifyErr:    map[string]error{},
		availability: map[string][]models.AvailabilitySlot{},
	}
}

func (f *fakeBackend) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	return f.registerID, f.registerErr
}

func (f *fakeBackend) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.authResult, nil
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, token, userID string, update models.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, update)
	if f.onUpdate != nil {
		f.onUpdate()
	}
	return nil
}

func (f *fakeBackend) Overview(ctx context.Context, token, userID string) (*models.Overview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overviewCalls++
	if f.overviewErr != nil {
		return nil, f.overviewErr
	}
	out := &models.Overview{}
	if o, ok := f.overviews[userID]; ok {
		clone := *o
		out = &clone
	}
	if slots, ok := f.availability[userID]; ok {
		out.Availability = append([]models.AvailabilitySlot{}, slots...)
	}
	return out, nil
}

func (f *fakeBackend) Candidates(ctx context.Context, token, userID string, reference []models.Course) ([]models.User, error) {
	f.candidateRefs = reference
	return f.candidates, f.candidatesErr
}

func (f *fakeBackend) AddAvailability(ctx context.Context, token, userID, slot string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.availabilityErr != nil {
		return "", f.availabilityErr
	}
	id := fmt.Sprintf("slot-%d", len(f.availability[userID])+1)
	f.availability[userID] = append(f.availability[userID], models.AvailabilitySlot{ID: id, Slot: slot})
	return id, nil
}

func (f *fakeBackend) DeleteAvailability(ctx context.Context, token, userID, slotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	slots := f.availability[userID]
	for i := range slots {
		if slots[i].ID == slotID {
			f.availability[userID] = append(slots[:i], slots[i+1:]...)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
}

func (f *fakeBackend) ReplaceAvailability(ctx context.Context, token, userID string, slots []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.availabilityErr != nil {
		return f.availabilityErr
	}
	next := make([]models.AvailabilitySlot, 0, len(slots))
	for i, slot := range slots {
		next = append(next, models.AvailabilitySlot{ID: fmt.Sprintf("slot-%d", i+1), Slot: slot})
	}
	f.availability[userID] = next
	return nil
}

func (f *fakeBackend) ListCourses(ctx context.Context, token string) ([]models.Course, error) {
	f.mu.Lock()
	f.coursesHits++
	f.mu.Unlock()
	return f.courses, f.coursesErr
}

func (f *fakeBackend) Enroll(ctx context.Context, token, courseID, userID string) error {
	f.enrollCalls = append(f.enrollCalls, courseID)
	return f.enrollErr
}

func (f *fakeBackend) Unenroll(ctx context.Context, token, courseID, userID string) error {
	f.unenrollCalls = append(f.unenrollCalls, courseID)
	return f.unenrollErr
}

func (f *fakeBackend) CreateGroup(ctx context.Context, token string, group models.NewGroup) (string, error) {
	f.createdGroups = append(f.createdGroups, group)
	id := "new-group"
	f.groups[id] = &models.Group{
		ID:         id,
		Name:       group.Name,
		OwnerID:    group.OwnerID,
		CourseID:   group.CourseID,
		MaxMembers: group.MaxMembers,
		Tags:       group.Tags,
		Members:    []models.GroupMember{{UserID: group.OwnerID, Role: models.GroupRoleAdmin}},
	}
	return id, nil
}

func (f *fakeBackend) ListGroups(ctx context.Context, token, courseID string) ([]models.Group, error) {
	return f.listGroups, f.groupErr
}

func (f *fakeBackend) ListUserGroups(ctx context.Context, token, userID string) ([]models.Group, error) {
	return f.listGroups, f.groupErr
}

func (f *fakeBackend) GetGroup(ctx context.Context, token, groupID string) (*models.Group, error) {
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	g, ok := f.groups[groupID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	clone := *g
	clone.Members = append([]models.GroupMember{}, g.Members...)
	return &clone, nil
}

func (f *fakeBackend) UpdateGroup(ctx context.Context, token, groupID string, update models.GroupUpdate) error {
	g, ok := f.groups[groupID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	f.groupUpdates = append(f.groupUpdates, update)
	update.Apply(g)
	return nil
}

func (f *fakeBackend) JoinGroup(ctx context.Context, token, groupID, userID string) error {
	f.joinCalls++
	if f.joinErr != nil {
		return f.joinErr
	}
	g := f.groups[groupID]
	g.Members = append(g.Members, models.GroupMember{UserID: userID, Role: models.GroupRoleMember})
	return nil
}

func (f *fakeBackend) LeaveGroup(ctx context.Context, token, groupID, userID string) error {
	f.leaveCalls++
	return nil
}

func (f *fakeBackend) TransferOwnership(ctx context.Context, token, groupID, newOwnerID string) error {
	f.transferredTo = newOwnerID
	f.groups[groupID].OwnerID = newOwnerID
	return nil
}

func (f *fakeBackend) DeleteGroup(ctx context.Context, token, groupID string, hard bool) error {
	f.deleted[groupID] = hard
	return nil
}

func (f *fakeBackend) ListNotifications(ctx context.Context, token, userID string, unreadOnly bool) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Notification{}
	for _, n := range f.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateNotification(ctx context.Context, token, userID string, kind models.NotificationType, payload models.InvitationPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.notifyErr[userID]; err != nil {
		return "", err
	}
	f.invitedUsers = append(f.invitedUsers, userID)
	id := "n-" + userID
	f.notifications = append(f.notifications, models.Notification{ID: id, UserID: userID, Type: kind, Payload: payload, CreatedAt: time.Now()})
	return id, nil
}

func (f *fakeBackend) MarkNotificationRead(ctx context.Context, token, userID, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == notificationID {
			f.notifications[i].Read = true
			f.markedRead = append(f.markedRead, notificationID)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
}

func (f *fakeBackend) MarkAllNotificationsRead(ctx context.Context, token, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readAllCalls++
	updated := 0
	for i := range f.notifications {
		if f.notifications[i].UserID == userID && !f.notifications[i].Read {
			f.notifications[i].Read = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeBackend) UnreadNotificationCount(ctx context.Context, token, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeBackend) DeleteNotification(ctx context.Context, token, userID, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == notificationID {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			f.deletedNotifIDs = append(f.deletedNotifIDs, notificationID)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
}

func (f *fakeBackend) ListMessages(ctx context.Context, token, groupID string, filter models.MessageFilter) ([]models.Message, error) {
	return f.messages, nil
}

func (f *fakeBackend) PostMessage(ctx context.Context, token, groupID, userID, content string) (string, error) {
	f.posted = append(f.posted, content)
	return "m-1", nil
}

func testSession(userID, name string) *models.Session {
	return &models.Session{
		ID:            "sess-" + userID,
		UserID:        userID,
		UpstreamToken: "upstream",
		Profile:       models.User{ID: userID, Name: name},
		ExpiresAt:     time.Now().Add(time.Hour),
	}
}

func overviewWith(userID string, courseIDs ...string) *models.Overview {
	courses := make([]models.Course, 0, len(courseIDs))
	for _, id := range courseIDs {
		courses = append(courses, models.Course{ID: id})
	}
	return &models.Overview{User: models.User{ID: userID}, Courses: courses}
}
