package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/classmatch-api/internal/models"
)

// DepartmentAll disables the department filter.
const DepartmentAll = "All"

// FilterCourses keeps courses whose code starts with department (case-sensitive,
// codes are canonical uppercase) and whose name, code or instructor contains search.
func FilterCourses(courses []models.Course, department, search string) []models.Course {
	term := strings.ToLower(strings.TrimSpace(search))
	filtered := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		if department != "" && department != DepartmentAll && !strings.HasPrefix(c.Code, department) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(c.Name), term) &&
			!strings.Contains(strings.ToLower(c.Code), term) &&
			!strings.Contains(strings.ToLower(c.Instructor), term) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

// AnnotateEnrollment marks each course the caller is enrolled in.
func AnnotateEnrollment(courses []models.Course, enrolledIDs []string) []models.CourseView {
	enrolled := make(map[string]struct{}, len(enrolledIDs))
	for _, id := range enrolledIDs {
		enrolled[id] = struct{}{}
	}
	views := make([]models.CourseView, 0, len(courses))
	for _, c := range courses {
		_, ok := enrolled[c.ID]
		views = append(views, models.CourseView{Course: c, IsEnrolled: ok})
	}
	return views
}

// Departments lists the distinct alphabetic code prefixes in the catalog, "All" first.
func Departments(courses []models.Course) []string {
	seen := map[string]struct{}{}
	out := []string{DepartmentAll}
	for _, c := range courses {
		prefix := departmentPrefix(c.Code)
		if prefix == "" {
			continue
		}
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		out = append(out, prefix)
	}
	sort.Strings(out[1:])
	return out
}

func departmentPrefix(code string) string {
	end := 0
	for end < len(code) && code[end] >= 'A' && code[end] <= 'Z' {
		end++
	}
	return code[:end]
}

// IsEnrolled reports set membership of courseID in the caller's enrolled ids.
func IsEnrolled(courseID string, enrolledIDs []string) bool {
	for _, id := range enrolledIDs {
		if id == courseID {
			return true
		}
	}
	return false
}
