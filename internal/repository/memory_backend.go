package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

const defaultGroupCapacity = 5

type memUser struct {
	user         models.User
	passwordHash string
	availability []models.AvailabilitySlot
}

type memNotification struct {
	notification models.Notification
}

// MemoryBackend is an in-process collaborator used for mock mode and tests.
// It enforces the same rules the real backend does.
type MemoryBackend struct {
	mu sync.RWMutex

	users         map[string]*memUser
	usersByEmail  map[string]string
	courses       map[string]models.Course
	courseOrder   []string
	enrollments   map[string]map[string]time.Time
	groups        map[string]*models.Group
	notifications map[string]*memNotification
	messages      map[string][]models.Message

	tokenSecret []byte
	tokenTTL    time.Duration
	bcryptCost  int
	now         func() time.Time
}

// MemoryOption customises a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryBackend) { m.now = now }
}

// WithBcryptCost lowers hashing cost, mostly for tests.
func WithBcryptCost(cost int) MemoryOption {
	return func(m *MemoryBackend) { m.bcryptCost = cost }
}

// NewMemoryBackend constructs an empty in-memory collaborator. Tokens issued at
// login are HS256 JWTs signed with tokenSecret.
func NewMemoryBackend(tokenSecret string, tokenTTL time.Duration, opts ...MemoryOption) *MemoryBackend {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	m := &MemoryBackend{
		users:         make(map[string]*memUser),
		usersByEmail:  make(map[string]string),
		courses:       make(map[string]models.Course),
		enrollments:   make(map[string]map[string]time.Time),
		groups:        make(map[string]*models.Group),
		notifications: make(map[string]*memNotification),
		messages:      make(map[string][]models.Message),
		tokenSecret:   []byte(tokenSecret),
		tokenTTL:      tokenTTL,
		bcryptCost:    bcrypt.DefaultCost,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddCourse inserts or replaces a catalog entry.
func (m *MemoryBackend) AddCourse(course models.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.courses[course.ID]; !exists {
		m.courseOrder = append(m.courseOrder, course.ID)
	}
	m.courses[course.ID] = course
}

// Register creates an account.
func (m *MemoryBackend) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "email, password and name are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), m.bcryptCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.usersByEmail[email]; exists {
		return "", appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	id := uuid.NewString()
	m.users[id] = &memUser{
		user: models.User{
			ID:     id,
			Email:  email,
			Name:   strings.TrimSpace(req.Name),
			Major:  req.Major,
			Year:   req.Year,
			Bio:    req.Bio,
			Avatar: initials(req.Name),
		},
		passwordHash: string(hash),
	}
	m.usersByEmail[email] = id
	return id, nil
}

// Login checks credentials and issues a signed mock token.
func (m *MemoryBackend) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	m.mu.RLock()
	id, ok := m.usersByEmail[strings.ToLower(strings.TrimSpace(req.Email))]
	var u memUser
	if ok {
		u = *m.users[id]
	}
	m.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	now := m.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		Issuer:    "classmatch-mock",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.tokenSecret)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	m.mu.RLock()
	user := m.userWithCourses(id)
	m.mu.RUnlock()
	return &models.AuthResult{User: user, Token: token}, nil
}

// UpdateProfile applies the changed fields.
func (m *MemoryBackend) UpdateProfile(ctx context.Context, token, userID string, update models.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	update.Apply(&u.user)
	return nil
}

// Overview returns the profile with enrolled courses ordered by code.
func (m *MemoryBackend) Overview(ctx context.Context, token, userID string) (*models.Overview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	courses := make([]models.Course, 0, len(m.enrollments[userID]))
	for courseID := range m.enrollments[userID] {
		courses = append(courses, m.courseWithCount(courseID))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	availability := append([]models.AvailabilitySlot{}, u.availability...)
	return &models.Overview{User: m.userWithCourses(userID), Courses: courses, Availability: availability}, nil
}

// AddAvailability appends a free-text slot to the user and returns its id.
func (m *MemoryBackend) AddAvailability(ctx context.Context, token, userID, slot string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	if strings.TrimSpace(slot) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "slot is required")
	}
	id := uuid.NewString()
	u.availability = append(u.availability, models.AvailabilitySlot{ID: id, Slot: slot})
	return id, nil
}

// DeleteAvailability removes one slot of the user.
func (m *MemoryBackend) DeleteAvailability(ctx context.Context, token, userID, slotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	for i, slot := range u.availability {
		if slot.ID == slotID {
			u.availability = append(u.availability[:i], u.availability[i+1:]...)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
}

// ReplaceAvailability swaps every slot of the user; blank entries are skipped.
func (m *MemoryBackend) ReplaceAvailability(ctx context.Context, token, userID string, slots []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	next := make([]models.AvailabilitySlot, 0, len(slots))
	for _, slot := range slots {
		if strings.TrimSpace(slot) == "" {
			continue
		}
		next = append(next, models.AvailabilitySlot{ID: uuid.NewString(), Slot: slot})
	}
	u.availability = next
	return nil
}

// Candidates returns every other user with their enrolled courses. The reference
// courses are not needed since candidate rows carry course ids.
func (m *MemoryBackend) Candidates(ctx context.Context, token, userID string, _ []models.Course) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.users[userID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	users := make([]models.User, 0, len(m.users))
	for id := range m.users {
		if id == userID {
			continue
		}
		users = append(users, m.userWithCourses(id))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// ListCourses returns the catalog in insertion order.
func (m *MemoryBackend) ListCourses(ctx context.Context, token string) ([]models.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	courses := make([]models.Course, 0, len(m.courseOrder))
	for _, id := range m.courseOrder {
		courses = append(courses, m.courseWithCount(id))
	}
	return courses, nil
}

// Enroll adds the user to a course; enrolling twice is rejected.
func (m *MemoryBackend) Enroll(ctx context.Context, token, courseID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	if _, ok := m.courses[courseID]; !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if m.enrollments[userID] == nil {
		m.enrollments[userID] = make(map[string]time.Time)
	}
	if _, dup := m.enrollments[userID][courseID]; dup {
		return appErrors.Clone(appErrors.ErrConflict, "already enrolled")
	}
	m.enrollments[userID][courseID] = m.now().UTC()
	return nil
}

// Unenroll removes the user from a course.
func (m *MemoryBackend) Unenroll(ctx context.Context, token, courseID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.enrollments[userID][courseID]; !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	delete(m.enrollments[userID], courseID)
	return nil
}

// CreateGroup stores a group with the owner as its admin member.
func (m *MemoryBackend) CreateGroup(ctx context.Context, token string, group models.NewGroup) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.users[group.OwnerID]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "owner not found")
	}
	course, ok := m.courses[group.CourseID]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if strings.TrimSpace(group.Name) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "owner_user_id, course_id, and name are required")
	}
	maxMembers := group.MaxMembers
	if maxMembers == 0 {
		maxMembers = defaultGroupCapacity
	}
	id := uuid.NewString()
	m.groups[id] = &models.Group{
		ID:          id,
		Name:        group.Name,
		OwnerID:     owner.user.ID,
		OwnerName:   owner.user.Name,
		CourseID:    course.ID,
		CourseCode:  course.Code,
		Description: group.Description,
		MeetingTime: group.MeetingTime,
		Location:    group.Location,
		MaxMembers:  maxMembers,
		Tags:        append([]string{}, group.Tags...),
		Members:     []models.GroupMember{{UserID: owner.user.ID, Name: owner.user.Name, Role: models.GroupRoleAdmin}},
		CreatedAt:   m.now().UTC(),
	}
	return id, nil
}

// ListGroups returns non-archived groups, newest first.
func (m *MemoryBackend) ListGroups(ctx context.Context, token, courseID string) ([]models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterGroups(func(g *models.Group) bool {
		return courseID == "" || g.CourseID == courseID
	}), nil
}

// ListUserGroups returns non-archived groups the user belongs to.
func (m *MemoryBackend) ListUserGroups(ctx context.Context, token, userID string) ([]models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.users[userID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return m.filterGroups(func(g *models.Group) bool {
		for _, member := range g.Members {
			if member.UserID == userID {
				return true
			}
		}
		return false
	}), nil
}

// GetGroup returns a copy of the group.
func (m *MemoryBackend) GetGroup(ctx context.Context, token, groupID string) (*models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[groupID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	clone := copyGroup(g)
	return &clone, nil
}

// UpdateGroup applies the set fields. Capacity cannot drop below the current
// member count.
func (m *MemoryBackend) UpdateGroup(ctx context.Context, token, groupID string, update models.GroupUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok || g.Archived {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	if update.Empty() {
		return appErrors.Clone(appErrors.ErrValidation, "no valid fields to update")
	}
	if update.MaxMembers != nil && *update.MaxMembers < len(g.Members) {
		return appErrors.Clone(appErrors.ErrValidation, "max_members cannot be below the current member count")
	}
	update.Apply(g)
	return nil
}

// JoinGroup adds an active member if capacity allows.
func (m *MemoryBackend) JoinGroup(ctx context.Context, token, groupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok || g.Archived {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	u, ok := m.users[userID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	for _, member := range g.Members {
		if member.UserID == userID {
			return appErrors.ErrAlreadyMember
		}
	}
	if len(g.Members) >= g.MaxMembers {
		return appErrors.ErrGroupFull
	}
	g.Members = append(g.Members, models.GroupMember{UserID: userID, Name: u.user.Name, Role: models.GroupRoleMember})
	return nil
}

// LeaveGroup removes a non-owner member.
func (m *MemoryBackend) LeaveGroup(ctx context.Context, token, groupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	if g.OwnerID == userID {
		return appErrors.Clone(appErrors.ErrValidation, "owner cannot leave group, transfer ownership or delete group")
	}
	for i, member := range g.Members {
		if member.UserID == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "user is not a member of this group")
}

// TransferOwnership makes an existing member the owner.
func (m *MemoryBackend) TransferOwnership(ctx context.Context, token, groupID, newOwnerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	found := false
	for i := range g.Members {
		switch g.Members[i].UserID {
		case newOwnerID:
			g.Members[i].Role = models.GroupRoleAdmin
			found = true
		case g.OwnerID:
			g.Members[i].Role = models.GroupRoleMember
		}
	}
	if !found {
		// undo the demotion above
		for i := range g.Members {
			if g.Members[i].UserID == g.OwnerID {
				g.Members[i].Role = models.GroupRoleAdmin
			}
		}
		return appErrors.Clone(appErrors.ErrValidation, "new owner must be an active member")
	}
	g.OwnerID = newOwnerID
	if u, ok := m.users[newOwnerID]; ok {
		g.OwnerName = u.user.Name
	}
	return nil
}

// DeleteGroup archives the group, or drops it and its messages when hard is set.
func (m *MemoryBackend) DeleteGroup(ctx context.Context, token, groupID string, hard bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	if hard {
		delete(m.groups, groupID)
		delete(m.messages, groupID)
		return nil
	}
	g.Archived = true
	return nil
}

// ListNotifications returns the user's notifications, newest first.
func (m *MemoryBackend) ListNotifications(ctx context.Context, token, userID string, unreadOnly bool) ([]models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.users[userID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	out := make([]models.Notification, 0)
	for _, n := range m.notifications {
		if n.notification.UserID != userID {
			continue
		}
		if unreadOnly && n.notification.Read {
			continue
		}
		out = append(out, n.notification)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateNotification stores a new unread notification.
func (m *MemoryBackend) CreateNotification(ctx context.Context, token, userID string, kind models.NotificationType, payload models.InvitationPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	if kind == models.NotificationTypeGroupInvitation {
		if g, ok := m.groups[payload.GroupID]; ok {
			for _, member := range g.Members {
				if member.UserID == userID {
					return "", appErrors.ErrAlreadyMember
				}
			}
		}
	}
	id := uuid.NewString()
	m.notifications[id] = &memNotification{notification: models.Notification{
		ID:        id,
		UserID:    userID,
		Type:      kind,
		Payload:   payload,
		CreatedAt: m.now().UTC(),
	}}
	return id, nil
}

// MarkNotificationRead flags a notification as read.
func (m *MemoryBackend) MarkNotificationRead(ctx context.Context, token, userID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[notificationID]
	if !ok || n.notification.UserID != userID {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	n.notification.Read = true
	return nil
}

// MarkAllNotificationsRead flags every unread notification of the user.
func (m *MemoryBackend) MarkAllNotificationsRead(ctx context.Context, token, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	updated := 0
	for _, n := range m.notifications {
		if n.notification.UserID == userID && !n.notification.Read {
			n.notification.Read = true
			updated++
		}
	}
	return updated, nil
}

// UnreadNotificationCount counts the user's unread notifications.
func (m *MemoryBackend) UnreadNotificationCount(ctx context.Context, token, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.users[userID]; !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	count := 0
	for _, n := range m.notifications {
		if n.notification.UserID == userID && !n.notification.Read {
			count++
		}
	}
	return count, nil
}

// DeleteNotification removes a notification.
func (m *MemoryBackend) DeleteNotification(ctx context.Context, token, userID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[notificationID]
	if !ok || n.notification.UserID != userID {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	delete(m.notifications, notificationID)
	return nil
}

// ListMessages returns a page of messages, newest first.
func (m *MemoryBackend) ListMessages(ctx context.Context, token, groupID string, filter models.MessageFilter) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.groups[groupID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	all := m.messages[groupID]
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	out := make([]models.Message, 0, limit)
	// stored oldest first
	for i := len(all) - 1 - filter.Offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// PostMessage appends a message to the group.
func (m *MemoryBackend) PostMessage(ctx context.Context, token, groupID, userID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[groupID]; !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	u, ok := m.users[userID]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	id := uuid.NewString()
	m.messages[groupID] = append(m.messages[groupID], models.Message{
		ID:         id,
		GroupID:    groupID,
		UserID:     userID,
		AuthorName: u.user.Name,
		Content:    content,
		CreatedAt:  m.now().UTC(),
	})
	return id, nil
}

// userWithCourses must be called with the lock held.
func (m *MemoryBackend) userWithCourses(id string) models.User {
	u := m.users[id].user
	ids := make([]string, 0, len(m.enrollments[id]))
	for courseID := range m.enrollments[id] {
		ids = append(ids, courseID)
	}
	sort.Strings(ids)
	u.CourseIDs = ids
	return u
}

// courseWithCount must be called with the lock held.
func (m *MemoryBackend) courseWithCount(id string) models.Course {
	c := m.courses[id]
	count := 0
	for _, enrolled := range m.enrollments {
		if _, ok := enrolled[id]; ok {
			count++
		}
	}
	if count > c.EnrolledCount {
		c.EnrolledCount = count
	}
	return c
}

func (m *MemoryBackend) filterGroups(keep func(*models.Group) bool) []models.Group {
	out := make([]models.Group, 0)
	for _, g := range m.groups {
		if g.Archived || !keep(g) {
			continue
		}
		out = append(out, copyGroup(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyGroup(g *models.Group) models.Group {
	clone := *g
	clone.Members = append([]models.GroupMember{}, g.Members...)
	clone.Tags = append([]string{}, g.Tags...)
	return clone
}

func initials(name string) string {
	var b strings.Builder
	letters := 0
	for _, part := range strings.Fields(name) {
		first := []rune(part)[0]
		b.WriteRune(unicode.ToUpper(first))
		letters++
		if letters == 2 {
			break
		}
	}
	return b.String()
}
