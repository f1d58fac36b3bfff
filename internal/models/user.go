package models

// StudyPreferences captures how and when a student prefers to study.
type StudyPreferences struct {
	PreferredTimes []string `json:"preferred_times,omitempty"`
	Style          string   `json:"style,omitempty"`
}

// User is the canonical ClassMatch student profile.
type User struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	Name       string           `json:"name"`
	Major      string           `json:"major,omitempty"`
	Year       string           `json:"year,omitempty"`
	Bio        string           `json:"bio,omitempty"`
	Avatar     string           `json:"avatar,omitempty"`
	StudyPrefs StudyPreferences `json:"study_prefs"`
	CourseIDs  []string         `json:"course_ids,omitempty"`
}

// HasCourse reports whether the user is enrolled in the given course.
func (u User) HasCourse(courseID string) bool {
	for _, id := range u.CourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// ProfileUpdate carries the mutable profile fields. Nil pointers are left untouched.
type ProfileUpdate struct {
	Name       *string           `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Major      *string           `json:"major,omitempty" validate:"omitempty,max=120"`
	Year       *string           `json:"year,omitempty" validate:"omitempty,max=40"`
	Bio        *string           `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Avatar     *string           `json:"avatar,omitempty" validate:"omitempty,max=16"`
	StudyPrefs *StudyPreferences `json:"study_prefs,omitempty"`
}

// Apply copies the non-nil fields of the update onto the user.
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Major != nil {
		u.Major = *p.Major
	}
	if p.Year != nil {
		u.Year = *p.Year
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.StudyPrefs != nil {
		u.StudyPrefs = *p.StudyPrefs
	}
}

// AvailabilitySlot is a free-text availability window ("Mon 3-5pm").
type AvailabilitySlot struct {
	ID   string `json:"id"`
	Slot string `json:"slot"`
}

// Overview bundles a user's profile with their courses and availability.
type Overview struct {
	User         User               `json:"user"`
	Courses      []Course           `json:"courses"`
	Availability []AvailabilitySlot `json:"availability"`
}

// CourseIDs returns the ids of the enrolled courses in the overview.
func (o Overview) CourseIDs() []string {
	ids := make([]string, 0, len(o.Courses))
	for _, c := range o.Courses {
		ids = append(ids, c.ID)
	}
	return ids
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// AddAvailabilityRequest adds one free-text slot.
type AddAvailabilityRequest struct {
	Slot string `json:"slot" validate:"required,max=120"`
}

// ReplaceAvailabilityRequest replaces every slot of the caller. An empty list
// clears them; a missing list is rejected.
type ReplaceAvailabilityRequest struct {
	Slots []string `json:"slots" validate:"required,max=50,dive,max=120"`
}
