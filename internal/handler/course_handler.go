package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classmatch-api/internal/middleware"
	"github.com/noah-isme/classmatch-api/internal/models"
	"github.com/noah-isme/classmatch-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, session *models.Session, filter models.CourseFilter) (*models.CourseListing, bool, error)
	Enroll(ctx context.Context, session *models.Session, courseID string) (*models.EnrollmentResult, error)
	Unenroll(ctx context.Context, session *models.Session, courseID string) (*models.UnenrollResult, error)
}

// CourseHandler serves the course catalog.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler creates a new handler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List godoc
// @Summary Browse courses
// @Description Catalog annotated with the caller's enrollment, filtered by department prefix and search text
// @Tags Courses
// @Security BearerAuth
// @Produce json
// @Param department query string false "Department code prefix, e.g. CS"
// @Param search query string false "Matches name, code or instructor"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	filter := models.CourseFilter{
		Department: strings.TrimSpace(c.Query("department")),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	listing, hit, err := h.service.List(c.Request.Context(), session, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, listing, nil, middleware.Meta(c))
}

// Enroll godoc
// @Summary Enroll in a course
// @Tags Courses
// @Security BearerAuth
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	res, err := h.service.Enroll(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Unenroll godoc
// @Summary Drop a course
// @Description Removing an enrollment the caller does not hold succeeds with removed=false
// @Tags Courses
// @Security BearerAuth
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/enroll [delete]
func (h *CourseHandler) Unenroll(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	res, err := h.service.Unenroll(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
