package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classmatch-api/internal/models"
	"github.com/noah-isme/classmatch-api/internal/service"
	"github.com/noah-isme/classmatch-api/pkg/response"
)

type matchService interface {
	List(ctx context.Context, session *models.Session, query models.MatchQuery) ([]models.Match, error)
	Export(ctx context.Context, session *models.Session, query models.MatchQuery, format string) (*service.ExportedFile, error)
}

// MatchHandler exposes classmate matches.
type MatchHandler struct {
	service matchService
}

// NewMatchHandler creates a new handler.
func NewMatchHandler(svc matchService) *MatchHandler {
	return &MatchHandler{service: svc}
}

// List godoc
// @Summary Find study partners
// @Description Classmates sharing at least one course, ranked by shared-course count
// @Tags Matches
// @Security BearerAuth
// @Produce json
// @Param search query string false "Name or major substring"
// @Param sort query string false "score (default) or name"
// @Param limit query int false "Maximum results"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /matches [get]
func (h *MatchHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	query, ok := matchQuery(c)
	if !ok {
		return
	}
	matches, err := h.service.List(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matches, &models.Pagination{Page: 1, PageSize: query.Limit, TotalCount: len(matches)})
}

// Export godoc
// @Summary Download matches
// @Tags Matches
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param search query string false "Name or major substring"
// @Param sort query string false "score (default) or name"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /matches/export [get]
func (h *MatchHandler) Export(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	query, ok := matchQuery(c)
	if !ok {
		return
	}
	file, err := h.service.Export(c.Request.Context(), session, query, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

func matchQuery(c *gin.Context) (models.MatchQuery, bool) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return models.MatchQuery{}, false
	}
	return models.MatchQuery{
		Search: strings.TrimSpace(c.Query("search")),
		SortBy: models.ParseMatchSort(c.Query("sort")),
		Limit:  limit,
	}, true
}
