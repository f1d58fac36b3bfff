package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
	"github.com/noah-isme/classmatch-api/pkg/middleware/requestid"
)

// CallObserver receives timing for every collaborator round trip.
type CallObserver interface {
	ObserveUpstreamCall(operation string, status int, duration time.Duration)
}

// HTTPBackend is the REST client for the ClassMatch backend.
type HTTPBackend struct {
	baseURL  string
	client   *http.Client
	observer CallObserver
	logger   *zap.Logger
}

// NewHTTPBackend constructs an HTTPBackend rooted at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration, observer CallObserver, logger *zap.Logger) *HTTPBackend {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPBackend{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		observer: observer,
		logger:   logger,
	}
}

// Register creates an account and returns the new user id.
func (b *HTTPBackend) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	var res commandResult
	if err := b.do(ctx, "register", http.MethodPost, "/api/commands/users/register", "", req, &res); err != nil {
		return "", err
	}
	return string(res.UserID), nil
}

// Login authenticates credentials and returns the profile plus any upstream token.
func (b *HTTPBackend) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	var res commandResult
	if err := b.do(ctx, "login", http.MethodPost, "/api/commands/users/login", "", req, &res); err != nil {
		return nil, err
	}
	if !res.OK && res.User.ID == "" {
		return nil, appErrors.ErrInvalidCredentials
	}
	token := res.Token
	if token == "" {
		token = res.AccessToken
	}
	return &models.AuthResult{User: res.User.toModel(), Token: token}, nil
}

// UpdateProfile sends the changed profile fields.
func (b *HTTPBackend) UpdateProfile(ctx context.Context, token, userID string, update models.ProfileUpdate) error {
	return b.do(ctx, "update_profile", http.MethodPut, "/api/commands/users/"+url.PathEscape(userID), token, update, nil)
}

// Overview returns the user's profile, enrolled courses and availability.
func (b *HTTPBackend) Overview(ctx context.Context, token, userID string) (*models.Overview, error) {
	var res wireOverview
	if err := b.do(ctx, "overview", http.MethodGet, "/api/queries/users/"+url.PathEscape(userID)+"/overview", token, nil, &res); err != nil {
		return nil, err
	}
	overview := res.toModel()
	if overview.User.ID == "" {
		overview.User.ID = userID
	}
	return &overview, nil
}

// Candidates returns the pool of users considered for matching against userID.
// The matches endpoint reports shared course codes; reference holds the caller's
// enrolled courses and is used to translate those codes back to course ids.
func (b *HTTPBackend) Candidates(ctx context.Context, token, userID string, reference []models.Course) ([]models.User, error) {
	var payload struct {
		Matches []wireUser `json:"matches"`
	}
	if err := b.do(ctx, "candidates", http.MethodGet, "/api/queries/users/"+url.PathEscape(userID)+"/matches", token, nil, &payload); err != nil {
		return nil, err
	}

	codeToID := make(map[string]string, len(reference))
	for _, c := range reference {
		codeToID[c.Code] = c.ID
	}

	users := make([]models.User, 0, len(payload.Matches))
	for _, row := range payload.Matches {
		u := row.toModel()
		u.CourseIDs = row.candidateCourses(codeToID)
		if len(u.CourseIDs) == 0 && row.SharedCount > 0 {
			b.logger.Warn("candidate row has a shared course count but no course ids or codes",
				zap.String("candidate_id", u.ID), zap.Int("shared_courses", int(row.SharedCount)))
		}
		users = append(users, u)
	}
	return users, nil
}

// ReplaceAvailability swaps the user's availability slots for the given list.
func (b *HTTPBackend) ReplaceAvailability(ctx context.Context, token, userID string, slots []string) error {
	body := map[string]interface{}{"slots": slots}
	return b.do(ctx, "replace_availability", http.MethodPut, "/api/commands/availability/"+url.PathEscape(userID), token, body, nil)
}

// AddAvailability appends one slot and returns its id.
func (b *HTTPBackend) AddAvailability(ctx context.Context, token, userID, slot string) (string, error) {
	var res commandResult
	body := map[string]interface{}{"slot": slot}
	if err := b.do(ctx, "add_availability", http.MethodPost, "/api/commands/availability/"+url.PathEscape(userID), token, body, &res); err != nil {
		return "", err
	}
	return string(res.SlotID), nil
}

// DeleteAvailability removes one of the user's slots.
func (b *HTTPBackend) DeleteAvailability(ctx context.Context, token, userID, slotID string) error {
	path := "/api/commands/availability/" + url.PathEscape(userID) + "/" + url.PathEscape(slotID)
	return b.do(ctx, "delete_availability", http.MethodDelete, path, token, nil, nil)
}

// ListCourses returns the full course catalog.
func (b *HTTPBackend) ListCourses(ctx context.Context, token string) ([]models.Course, error) {
	var rows []wireCourse
	if err := b.do(ctx, "list_courses", http.MethodGet, "/api/queries/courses", token, nil, &rows); err != nil {
		return nil, err
	}
	courses := make([]models.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toModel())
	}
	return courses, nil
}

// Enroll adds the user to a course.
func (b *HTTPBackend) Enroll(ctx context.Context, token, courseID, userID string) error {
	body := map[string]interface{}{"user_id": numericOrString(userID)}
	return b.do(ctx, "enroll", http.MethodPost, "/api/commands/courses/"+url.PathEscape(courseID)+"/enroll", token, body, nil)
}

// Unenroll removes the user from a course.
func (b *HTTPBackend) Unenroll(ctx context.Context, token, courseID, userID string) error {
	body := map[string]interface{}{"user_id": numericOrString(userID)}
	return b.do(ctx, "unenroll", http.MethodDelete, "/api/commands/courses/"+url.PathEscape(courseID)+"/enroll", token, body, nil)
}

// CreateGroup creates a group; the backend adds the owner as its first member.
func (b *HTTPBackend) CreateGroup(ctx context.Context, token string, group models.NewGroup) (string, error) {
	body := map[string]interface{}{
		"owner_user_id": numericOrString(group.OwnerID),
		"course_id":     numericOrString(group.CourseID),
		"name":          group.Name,
		"description":   group.Description,
		"meeting_time":  group.MeetingTime,
		"location":      group.Location,
		"max_members":   group.MaxMembers,
		"tags":          group.Tags,
	}
	var res commandResult
	if err := b.do(ctx, "create_group", http.MethodPost, "/api/commands/groups", token, body, &res); err != nil {
		return "", err
	}
	return string(res.GroupID), nil
}

// ListGroups returns active groups, optionally scoped to a course.
func (b *HTTPBackend) ListGroups(ctx context.Context, token, courseID string) ([]models.Group, error) {
	path := "/api/queries/groups"
	if courseID != "" {
		path += "?course_id=" + url.QueryEscape(courseID)
	}
	return b.groups(ctx, "list_groups", path, token)
}

// ListUserGroups returns the groups the user belongs to.
func (b *HTTPBackend) ListUserGroups(ctx context.Context, token, userID string) ([]models.Group, error) {
	return b.groups(ctx, "list_user_groups", "/api/queries/users/"+url.PathEscape(userID)+"/groups", token)
}

func (b *HTTPBackend) groups(ctx context.Context, op, path, token string) ([]models.Group, error) {
	var rows []wireGroup
	if err := b.do(ctx, op, http.MethodGet, path, token, nil, &rows); err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, r.toModel())
	}
	return groups, nil
}

// UpdateGroup sends only the fields set on the update.
func (b *HTTPBackend) UpdateGroup(ctx context.Context, token, groupID string, update models.GroupUpdate) error {
	body := map[string]interface{}{}
	if update.Name != nil {
		body["name"] = *update.Name
	}
	if update.Description != nil {
		body["description"] = *update.Description
	}
	if update.MeetingTime != nil {
		body["meeting_time"] = *update.MeetingTime
	}
	if update.Location != nil {
		body["location"] = *update.Location
	}
	if update.MaxMembers != nil {
		body["max_members"] = *update.MaxMembers
	}
	if update.Tags != nil {
		body["tags"] = update.Tags
	}
	return b.do(ctx, "update_group", http.MethodPut, "/api/commands/groups/"+url.PathEscape(groupID), token, body, nil)
}

// GetGroup returns a group with its active members.
func (b *HTTPBackend) GetGroup(ctx context.Context, token, groupID string) (*models.Group, error) {
	var row wireGroup
	if err := b.do(ctx, "get_group", http.MethodGet, "/api/queries/groups/"+url.PathEscape(groupID), token, nil, &row); err != nil {
		return nil, err
	}
	group := row.toModel()
	if group.ID == "" {
		group.ID = groupID
	}
	return &group, nil
}

// JoinGroup adds the user to the group.
func (b *HTTPBackend) JoinGroup(ctx context.Context, token, groupID, userID string) error {
	body := map[string]interface{}{"user_id": numericOrString(userID)}
	return b.do(ctx, "join_group", http.MethodPost, "/api/commands/groups/"+url.PathEscape(groupID)+"/join", token, body, nil)
}

// LeaveGroup removes the user from the group.
func (b *HTTPBackend) LeaveGroup(ctx context.Context, token, groupID, userID string) error {
	body := map[string]interface{}{"user_id": numericOrString(userID)}
	return b.do(ctx, "leave_group", http.MethodPost, "/api/commands/groups/"+url.PathEscape(groupID)+"/leave", token, body, nil)
}

// TransferOwnership hands the group to another member.
func (b *HTTPBackend) TransferOwnership(ctx context.Context, token, groupID, newOwnerID string) error {
	body := map[string]interface{}{"new_owner_id": numericOrString(newOwnerID)}
	return b.do(ctx, "transfer_group", http.MethodPatch, "/api/commands/groups/"+url.PathEscape(groupID)+"/transfer-ownership", token, body, nil)
}

// DeleteGroup archives the group, or removes it when hard is set.
func (b *HTTPBackend) DeleteGroup(ctx context.Context, token, groupID string, hard bool) error {
	path := "/api/commands/groups/" + url.PathEscape(groupID)
	if hard {
		path += "?hard_delete=true"
	}
	return b.do(ctx, "delete_group", http.MethodDelete, path, token, nil, nil)
}

// ListNotifications returns the user's notifications with decoded payloads.
func (b *HTTPBackend) ListNotifications(ctx context.Context, token, userID string, unreadOnly bool) ([]models.Notification, error) {
	path := "/api/queries/notifications/" + url.PathEscape(userID)
	if unreadOnly {
		path += "?unread_only=true"
	}
	var rows []wireNotification
	if err := b.do(ctx, "list_notifications", http.MethodGet, path, token, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := r.toModel(userID)
		if err != nil {
			b.logger.Warn("skipping notification with malformed data", zap.String("notification_id", string(r.ID)), zap.Error(err))
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// CreateNotification stores a notification for userID; the payload travels as a JSON string.
func (b *HTTPBackend) CreateNotification(ctx context.Context, token, userID string, kind models.NotificationType, payload models.InvitationPayload) (string, error) {
	data, err := json.Marshal(map[string]interface{}{
		"group_id":   numericOrString(payload.GroupID),
		"group_name": payload.GroupName,
		"course_id":  payload.CourseID,
	})
	if err != nil {
		return "", fmt.Errorf("encode notification payload: %w", err)
	}
	body := map[string]interface{}{"type": string(kind), "data": string(data)}
	var res commandResult
	if err := b.do(ctx, "create_notification", http.MethodPost, "/api/commands/notifications/"+url.PathEscape(userID), token, body, &res); err != nil {
		return "", err
	}
	return string(res.NotificationID), nil
}

// MarkNotificationRead flags a notification as read.
func (b *HTTPBackend) MarkNotificationRead(ctx context.Context, token, userID, notificationID string) error {
	path := "/api/commands/notifications/" + url.PathEscape(userID) + "/" + url.PathEscape(notificationID) + "/read"
	return b.do(ctx, "mark_notification_read", http.MethodPatch, path, token, nil, nil)
}

// MarkAllNotificationsRead flags every unread notification of the user and
// returns how many changed.
func (b *HTTPBackend) MarkAllNotificationsRead(ctx context.Context, token, userID string) (int, error) {
	var res commandResult
	path := "/api/commands/notifications/" + url.PathEscape(userID) + "/read-all"
	if err := b.do(ctx, "mark_all_notifications_read", http.MethodPatch, path, token, nil, &res); err != nil {
		return 0, err
	}
	return int(res.UpdatedCount), nil
}

// UnreadNotificationCount returns the number of unread notifications.
func (b *HTTPBackend) UnreadNotificationCount(ctx context.Context, token, userID string) (int, error) {
	var res struct {
		UnreadCount flexInt `json:"unread_count"`
	}
	path := "/api/queries/notifications/" + url.PathEscape(userID) + "/count"
	if err := b.do(ctx, "unread_notification_count", http.MethodGet, path, token, nil, &res); err != nil {
		return 0, err
	}
	return int(res.UnreadCount), nil
}

// DeleteNotification removes a notification.
func (b *HTTPBackend) DeleteNotification(ctx context.Context, token, userID, notificationID string) error {
	path := "/api/commands/notifications/" + url.PathEscape(userID) + "/" + url.PathEscape(notificationID)
	return b.do(ctx, "delete_notification", http.MethodDelete, path, token, nil, nil)
}

// ListMessages pages through a group's messages, newest first.
func (b *HTTPBackend) ListMessages(ctx context.Context, token, groupID string, filter models.MessageFilter) ([]models.Message, error) {
	q := url.Values{}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	path := "/api/queries/groups/" + url.PathEscape(groupID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var rows []wireMessage
	if err := b.do(ctx, "list_messages", http.MethodGet, path, token, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel(groupID))
	}
	return out, nil
}

// PostMessage posts content to the group as userID.
func (b *HTTPBackend) PostMessage(ctx context.Context, token, groupID, userID, content string) (string, error) {
	body := map[string]interface{}{
		"group_id": numericOrString(groupID),
		"user_id":  numericOrString(userID),
		"content":  content,
	}
	var res commandResult
	if err := b.do(ctx, "post_message", http.MethodPost, "/api/commands/messages", token, body, &res); err != nil {
		return "", err
	}
	return string(res.MessageID), nil
}

// do performs one round trip. Non-2xx statuses and transport failures are mapped
// onto the gateway's error taxonomy.
func (b *HTTPBackend) do(ctx context.Context, op, method, path, token string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		req.Header.Set(requestid.HeaderKey, reqID)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if b.observer != nil {
		b.observer.ObserveUpstreamCall(op, status, time.Since(start))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		b.logger.Warn("backend request failed", zap.String("operation", op), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to read backend response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapStatus(op, resp.StatusCode, raw)
	}

	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "unexpected backend response")
	}
	return nil
}

func mapStatus(op string, status int, raw []byte) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &body)
	msg := body.Error
	if msg == "" {
		msg = body.Message
	}
	cause := fmt.Errorf("%s: backend returned %d", op, status)

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "full"):
		return appErrors.Wrap(cause, appErrors.ErrGroupFull.Code, appErrors.ErrGroupFull.Status, appErrors.ErrGroupFull.Message)
	case strings.Contains(lower, "already") && strings.Contains(lower, "member"):
		return appErrors.Wrap(cause, appErrors.ErrAlreadyMember.Code, appErrors.ErrAlreadyMember.Status, appErrors.ErrAlreadyMember.Message)
	case status == http.StatusNotFound:
		if msg == "" {
			msg = appErrors.ErrNotFound.Message
		}
		return appErrors.Wrap(cause, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, strings.ToLower(msg))
	case status == http.StatusUnauthorized:
		if op == "login" {
			return appErrors.ErrInvalidCredentials
		}
		return appErrors.Wrap(cause, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, appErrors.ErrUnauthorized.Message)
	case status == http.StatusForbidden:
		return appErrors.Wrap(cause, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, appErrors.ErrForbidden.Message)
	case status == http.StatusConflict:
		if msg == "" {
			msg = appErrors.ErrConflict.Message
		}
		return appErrors.Wrap(cause, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, msg)
	case status >= 400 && status < 500:
		if msg == "" {
			msg = appErrors.ErrValidation.Message
		}
		return appErrors.Wrap(cause, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg)
	default:
		return appErrors.Wrap(cause, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
}

// numericOrString sends numeric ids as JSON numbers, which the backend expects
// for its integer keys.
func numericOrString(id string) interface{} {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
