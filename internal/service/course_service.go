package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

type courseBackend interface {
	ListCourses(ctx context.Context, token string) ([]models.Course, error)
	Enroll(ctx context.Context, token, courseID, userID string) error
	Unenroll(ctx context.Context, token, courseID, userID string) error
	Overview(ctx context.Context, token, userID string) (*models.Overview, error)
}

// CourseService serves the catalog and enrollment.
type CourseService struct {
	backend    courseBackend
	cache      *CacheService
	catalogTTL time.Duration
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewCourseService constructs a CourseService. cache and metrics may be nil.
func NewCourseService(backend courseBackend, cache *CacheService, catalogTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{backend: backend, cache: cache, catalogTTL: catalogTTL, metrics: metrics, logger: logger}
}

// Catalog returns every course, from cache when possible.
func (s *CourseService) Catalog(ctx context.Context, token string) ([]models.Course, bool, error) {
	var cached []models.Course
	if s.cache.Get(ctx, cacheKeyCatalog, &cached) {
		return cached, true, nil
	}
	courses, err := s.backend.ListCourses(ctx, token)
	if err != nil {
		return nil, false, backendError(err, "failed to load courses")
	}
	s.cache.Set(ctx, cacheKeyCatalog, courses, s.catalogTTL)
	return courses, false, nil
}

// List filters the catalog and marks the caller's enrollments. The second return
// value reports a catalog cache hit.
func (s *CourseService) List(ctx context.Context, session *models.Session, filter models.CourseFilter) (*models.CourseListing, bool, error) {
	var (
		courses  []models.Course
		hit      bool
		overview *models.Overview
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		courses, hit, err = s.Catalog(gctx, session.UpstreamToken)
		return err
	})
	g.Go(func() error {
		var err error
		overview, err = s.backend.Overview(gctx, session.UpstreamToken, session.UserID)
		return backendError(err, "failed to load enrollments")
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	filtered := FilterCourses(courses, filter.Department, filter.Search)
	views := AnnotateEnrollment(filtered, overview.CourseIDs())
	return &models.CourseListing{
		Courses:     views,
		Departments: Departments(courses),
		Total:       len(views),
	}, hit, nil
}

// Enroll adds the caller to a course. Enrolling twice is a no-op reported through
// AlreadyEnrolled; the collaborator is not called in that case.
func (s *CourseService) Enroll(ctx context.Context, session *models.Session, courseID string) (*models.EnrollmentResult, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	result := &models.EnrollmentResult{CourseID: courseID, UserID: session.UserID}

	overview, err := s.backend.Overview(ctx, session.UpstreamToken, session.UserID)
	if err != nil {
		return nil, backendError(err, "failed to load enrollments")
	}
	if IsEnrolled(courseID, overview.CourseIDs()) {
		result.AlreadyEnrolled = true
		s.metrics.RecordEvent("enroll", "duplicate")
		return result, nil
	}

	if err := s.backend.Enroll(ctx, session.UpstreamToken, courseID, session.UserID); err != nil {
		// a concurrent enroll from another tab lands here
		if errors.Is(err, appErrors.ErrConflict) {
			result.AlreadyEnrolled = true
			s.metrics.RecordEvent("enroll", "duplicate")
			return result, nil
		}
		s.metrics.RecordEvent("enroll", "error")
		return nil, backendError(err, "failed to enroll")
	}
	s.metrics.RecordEvent("enroll", "ok")
	s.cache.Invalidate(ctx, cacheKeyCatalog)
	return result, nil
}

// Unenroll removes the caller from a course. Unenrolling from a course the caller
// is not in is a no-op reported through Removed=false.
func (s *CourseService) Unenroll(ctx context.Context, session *models.Session, courseID string) (*models.UnenrollResult, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	result := &models.UnenrollResult{CourseID: courseID, UserID: session.UserID}

	overview, err := s.backend.Overview(ctx, session.UpstreamToken, session.UserID)
	if err != nil {
		return nil, backendError(err, "failed to load enrollments")
	}
	if !IsEnrolled(courseID, overview.CourseIDs()) {
		s.metrics.RecordEvent("unenroll", "noop")
		return result, nil
	}

	if err := s.backend.Unenroll(ctx, session.UpstreamToken, courseID, session.UserID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			s.metrics.RecordEvent("unenroll", "noop")
			return result, nil
		}
		s.metrics.RecordEvent("unenroll", "error")
		return nil, backendError(err, "failed to unenroll")
	}
	result.Removed = true
	s.metrics.RecordEvent("unenroll", "ok")
	s.cache.Invalidate(ctx, cacheKeyCatalog)
	return result, nil
}
