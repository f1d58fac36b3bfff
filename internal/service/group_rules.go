package service

import (
	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

// IsMember reports whether userID already belongs to the group.
func IsMember(group *models.Group, userID string) bool {
	if group == nil {
		return false
	}
	for _, m := range group.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// CanJoin is true when the user is not yet a member and the group has capacity.
func CanJoin(group *models.Group, userID string) bool {
	if group == nil {
		return false
	}
	return !IsMember(group, userID) && len(group.Members) < group.MaxMembers
}

// Join adds member to the group or reports why it cannot.
func Join(group *models.Group, member models.GroupMember) error {
	if group == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	if IsMember(group, member.UserID) {
		return appErrors.ErrAlreadyMember
	}
	if len(group.Members) >= group.MaxMembers {
		return appErrors.ErrGroupFull
	}
	if member.Role == "" {
		member.Role = models.GroupRoleMember
	}
	group.Members = append(group.Members, member)
	return nil
}

// SpotsLeft is the remaining capacity for display, never negative.
func SpotsLeft(group *models.Group) int {
	if group == nil {
		return 0
	}
	left := group.MaxMembers - len(group.Members)
	if left < 0 {
		return 0
	}
	return left
}

// Summarize annotates a group for the given viewer.
func Summarize(group models.Group, viewerID string) models.GroupSummary {
	return models.GroupSummary{
		Group:       group,
		MemberCount: len(group.Members),
		SpotsLeft:   SpotsLeft(&group),
		IsMember:    IsMember(&group, viewerID),
		CanJoin:     CanJoin(&group, viewerID),
	}
}
