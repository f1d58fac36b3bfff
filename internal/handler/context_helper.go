package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classmatch-api/internal/middleware"
	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
	"github.com/noah-isme/classmatch-api/pkg/response"
)

// sessionFromContext returns the caller's session, answering 401 when absent.
func sessionFromContext(c *gin.Context) (*models.Session, bool) {
	session := middleware.SessionFrom(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return session, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be a non-negative integer"))
		return 0, false
	}
	return value, true
}
