package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
	"github.com/noah-isme/classmatch-api/pkg/export"
)

// Export formats supported by MatchService.Export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type matchBackend interface {
	Overview(ctx context.Context, token, userID string) (*models.Overview, error)
	Candidates(ctx context.Context, token, userID string, reference []models.Course) ([]models.User, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportedFile is a rendered match list ready for download.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// MatchService ranks classmates sharing courses with the session user.
type MatchService struct {
	backend      matchBackend
	defaultLimit int
	csv          csvRenderer
	pdf          pdfRenderer
	logger       *zap.Logger
}

// NewMatchService constructs a MatchService.
func NewMatchService(backend matchBackend, defaultLimit int, logger *zap.Logger) *MatchService {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchService{
		backend:      backend,
		defaultLimit: defaultLimit,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
}

// List computes, filters and sorts the caller's matches.
func (s *MatchService) List(ctx context.Context, session *models.Session, query models.MatchQuery) ([]models.Match, error) {
	overview, err := s.backend.Overview(ctx, session.UpstreamToken, session.UserID)
	if err != nil {
		return nil, backendError(err, "failed to load your courses")
	}
	// the overview doubles as the code lookup for candidate rows
	candidates, err := s.backend.Candidates(ctx, session.UpstreamToken, session.UserID, overview.Courses)
	if err != nil {
		return nil, backendError(err, "failed to load classmates")
	}

	matches := ComputeMatches(session.UserID, overview.CourseIDs(), candidates)
	matches = FilterAndSort(matches, query.Search, query.SortBy)

	limit := query.Limit
	if limit <= 0 || limit > s.defaultLimit {
		limit = s.defaultLimit
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Export renders the ranked match list as CSV or PDF.
func (s *MatchService) Export(ctx context.Context, session *models.Session, query models.MatchQuery, format string) (*ExportedFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	matches, err := s.List(ctx, session, query)
	if err != nil {
		return nil, err
	}
	dataset := matchDataset(matches)

	var body []byte
	contentType := "text/csv"
	if format == ExportFormatPDF {
		contentType = "application/pdf"
		body, err = s.pdf.Render(dataset, fmt.Sprintf("Study matches for %s", session.Profile.Name))
	} else {
		body, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render matches")
	}
	return &ExportedFile{
		Filename:    "matches." + format,
		ContentType: contentType,
		Body:        body,
	}, nil
}

func matchDataset(matches []models.Match) export.Dataset {
	columns := []export.Column{
		{Title: "Rank", Weight: 0.6},
		{Title: "Name", Weight: 2},
		{Title: "Major", Weight: 2},
		{Title: "Year", Weight: 1},
		{Title: "Email", Weight: 2.5},
		{Title: "Shared Courses", Weight: 2.5},
		{Title: "Score", Weight: 0.7},
	}
	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Candidate.Name,
			m.Candidate.Major,
			m.Candidate.Year,
			m.Candidate.Email,
			strings.Join(m.SharedCourseIDs, " "),
			strconv.Itoa(m.Score),
		})
	}
	return export.Dataset{Columns: columns, Rows: rows}
}
