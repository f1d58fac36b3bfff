package models

import "time"

// GroupRole distinguishes the owner from regular members.
type GroupRole string

const (
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
)

// GroupMember is a user belonging to a study group.
type GroupMember struct {
	UserID string    `json:"user_id"`
	Name   string    `json:"name,omitempty"`
	Role   GroupRole `json:"role"`
}

// Group is a study group scoped to one course with bounded membership.
type Group struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	OwnerID     string        `json:"owner_id"`
	OwnerName   string        `json:"owner_name,omitempty"`
	CourseID    string        `json:"course_id"`
	CourseCode  string        `json:"course_code,omitempty"`
	Description string        `json:"description,omitempty"`
	MeetingTime string        `json:"meeting_time,omitempty"`
	Location    string        `json:"location,omitempty"`
	MaxMembers  int           `json:"max_members"`
	Tags        []string      `json:"tags"`
	Members     []GroupMember `json:"members"`
	Archived    bool          `json:"archived"`
	CreatedAt   time.Time     `json:"created_at"`
}

// GroupSummary is a group annotated with display-only capacity information.
type GroupSummary struct {
	Group
	MemberCount int  `json:"member_count"`
	SpotsLeft   int  `json:"spots_left"`
	IsMember    bool `json:"is_member"`
	CanJoin     bool `json:"can_join"`
}

// CreateGroupRequest is the payload for creating a study group.
type CreateGroupRequest struct {
	CourseID    string   `json:"course_id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=120"`
	Description string   `json:"description" validate:"max=2000"`
	MeetingTime string   `json:"meeting_time" validate:"max=120"`
	Location    string   `json:"location" validate:"max=120"`
	MaxMembers  int      `json:"max_members" validate:"omitempty,min=2,max=100"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=32"`
}

// NewGroup is what the collaborator receives when a group is created.
type NewGroup struct {
	OwnerID     string
	CourseID    string
	Name        string
	Description string
	MeetingTime string
	Location    string
	MaxMembers  int
	Tags        []string
}

// InviteRequest lists the users to invite into a group.
type InviteRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=50,dive,required"`
}

// InviteResult reports per-user invitation outcomes of a batch.
type InviteResult struct {
	Invited []string          `json:"invited"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// TransferOwnershipRequest names the member receiving ownership.
type TransferOwnershipRequest struct {
	NewOwnerID string `json:"new_owner_id" validate:"required"`
}

// JoinResult reports the group after a join. Joined is false when the caller was
// already a member and nothing changed.
type JoinResult struct {
	Group  GroupSummary `json:"group"`
	Joined bool         `json:"joined"`
}

// GroupUpdate carries the editable group fields. Nil fields are left untouched.
type GroupUpdate struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	MeetingTime *string  `json:"meeting_time,omitempty" validate:"omitempty,max=120"`
	Location    *string  `json:"location,omitempty" validate:"omitempty,max=120"`
	MaxMembers  *int     `json:"max_members,omitempty" validate:"omitempty,min=2,max=100"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=32"`
}

// Empty reports whether the update changes nothing.
func (u GroupUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.MeetingTime == nil &&
		u.Location == nil && u.MaxMembers == nil && u.Tags == nil
}

// Apply copies the set fields onto the group.
func (u GroupUpdate) Apply(g *Group) {
	if u.Name != nil {
		g.Name = *u.Name
	}
	if u.Description != nil {
		g.Description = *u.Description
	}
	if u.MeetingTime != nil {
		g.MeetingTime = *u.MeetingTime
	}
	if u.Location != nil {
		g.Location = *u.Location
	}
	if u.MaxMembers != nil {
		g.MaxMembers = *u.MaxMembers
	}
	if u.Tags != nil {
		g.Tags = append([]string{}, u.Tags...)
	}
}
