package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/classmatch-api/internal/models"
)

var sampleCatalog = []models.Course{
	{ID: "CS1101", Code: "CS 1101", Name: "Introduction to Computer Science", Instructor: "Dr. Sarah Johnson"},
	{ID: "CS2201", Code: "CS 2201", Name: "Data Structures and Algorithms", Instructor: "Prof. Michael Chen"},
	{ID: "MATH2410", Code: "MATH 2410", Name: "Discrete Mathematics", Instructor: "Dr. Lisa Anderson"},
}

func courseIDs(courses []models.Course) []string {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestFilterCoursesDepartment(t *testing.T) {
	assert.Equal(t, []string{"CS1101", "CS2201", "MATH2410"}, courseIDs(FilterCourses(sampleCatalog, DepartmentAll, "")))
	assert.Len(t, FilterCourses(sampleCatalog, "", ""), 3)
	assert.Equal(t, []string{"CS1101", "CS2201"}, courseIDs(FilterCourses(sampleCatalog, "CS", "")))
	assert.Equal(t, []string{"MATH2410"}, courseIDs(FilterCourses(sampleCatalog, "MATH", "")))
	assert.Empty(t, FilterCourses(sampleCatalog, "cs", ""))
}

func TestFilterCoursesSearchAcrossFields(t *testing.T) {
	assert.Equal(t, []string{"CS2201"}, courseIDs(FilterCourses(sampleCatalog, DepartmentAll, "structures")))
	assert.Equal(t, []string{"MATH2410"}, courseIDs(FilterCourses(sampleCatalog, DepartmentAll, "math 24")))
	assert.Equal(t, []string{"CS1101"}, courseIDs(FilterCourses(sampleCatalog, DepartmentAll, "JOHNSON")))
	assert.Empty(t, FilterCourses(sampleCatalog, "MATH", "chen"))
}

func TestAnnotateEnrollment(t *testing.T) {
	views := AnnotateEnrollment(sampleCatalog, []string{"CS2201"})

	assert.Len(t, views, 3)
	assert.False(t, views[0].IsEnrolled)
	assert.True(t, views[1].IsEnrolled)
	assert.False(t, views[2].IsEnrolled)
}

func TestDepartments(t *testing.T) {
	assert.Equal(t, []string{"All", "CS", "MATH"}, Departments(sampleCatalog))
}
