package models

// Course is a catalog entry. It is read-only from the gateway's perspective.
type Course struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Section       string `json:"section,omitempty"`
	Instructor    string `json:"instructor"`
	Schedule      string `json:"schedule,omitempty"`
	Building      string `json:"building,omitempty"`
	Room          string `json:"room,omitempty"`
	EnrolledCount int    `json:"enrolled_count"`
}

// CourseView annotates a course with the caller's enrollment state.
type CourseView struct {
	Course
	IsEnrolled bool `json:"is_enrolled"`
}

// CourseFilter captures Browse Courses query parameters.
type CourseFilter struct {
	Department string
	Search     string
}

// EnrollmentResult reports the outcome of an enroll request.
type EnrollmentResult struct {
	CourseID        string `json:"course_id"`
	UserID          string `json:"user_id"`
	AlreadyEnrolled bool   `json:"already_enrolled"`
}

// CourseListing is the Browse Courses payload.
type CourseListing struct {
	Courses     []CourseView `json:"courses"`
	Departments []string     `json:"departments"`
	Total       int          `json:"total"`
}

// UnenrollResult reports the outcome of an unenroll request. Removed is false when
// the caller was not enrolled.
type UnenrollResult struct {
	CourseID string `json:"course_id"`
	UserID   string `json:"user_id"`
	Removed  bool   `json:"removed"`
}
