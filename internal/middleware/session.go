package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
	"github.com/noah-isme/classmatch-api/pkg/logger"
	"github.com/noah-isme/classmatch-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the resolved *models.Session.
const ContextSessionKey = "currentSession"

// Authenticator resolves an opaque session token.
type Authenticator interface {
	Authenticate(ctx context.Context, sessionID string) (*models.Session, error)
}

// Session requires a bearer session token issued at login.
func Session(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			c.Abort()
			return
		}

		session, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, session)
		c.Set(logger.SessionUserKey, session.UserID)
		c.Next()
	}
}

// SessionFrom returns the session attached by Session, or nil.
func SessionFrom(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*models.Session)
	return session
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
