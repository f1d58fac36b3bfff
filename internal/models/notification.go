package models

import (
	"fmt"
	"time"
)

// NotificationType identifies the kind of notification.
type NotificationType string

// NotificationTypeGroupInvitation is the only business-relevant type.
const NotificationTypeGroupInvitation NotificationType = "group_invitation"

// InvitationPayload is the decoded body of a group invitation.
type InvitationPayload struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	CourseID  string `json:"course_id"`
}

// Notification targets one user. Only unread notifications are actionable.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	Payload   InvitationPayload `json:"payload"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}

// NotificationState is the lifecycle of a single notification.
type NotificationState string

const (
	NotificationUnread   NotificationState = "unread"
	NotificationAccepted NotificationState = "accepted"
	NotificationDeclined NotificationState = "declined"
)

// Terminal reports whether the state is absorbing.
func (s NotificationState) Terminal() bool {
	return s == NotificationAccepted || s == NotificationDeclined
}

// Transition validates a state change. Only Unread may move, and only to a terminal state.
func (s NotificationState) Transition(to NotificationState) (NotificationState, error) {
	if s != NotificationUnread || !to.Terminal() {
		return s, fmt.Errorf("invalid notification transition %s -> %s", s, to)
	}
	return to, nil
}

// NotificationResolution is returned after accepting or declining an invitation.
type NotificationResolution struct {
	NotificationID string            `json:"notification_id"`
	State          NotificationState `json:"state"`
	GroupID        string            `json:"group_id"`
	Joined         bool              `json:"joined"`
}

// NotificationCount reports how many notifications are unread, or were just marked read.
type NotificationCount struct {
	Count int `json:"count"`
}
