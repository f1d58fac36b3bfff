package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

type authBackend interface {
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	UpdateProfile(ctx context.Context, token, userID string, update models.ProfileUpdate) error
	Overview(ctx context.Context, token, userID string) (*models.Overview, error)
}

// SessionStore persists sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuthConfig defines session lifetime settings.
type AuthConfig struct {
	SessionTTL time.Duration
}

// AuthService owns registration, login and the session/profile lifecycle.
type AuthService struct {
	backend   authBackend
	sessions  SessionStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time

	// profile updates are serialized so the stored snapshot never interleaves
	profileMu sync.Mutex
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(backend authBackend, sessions SessionStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}
	return &AuthService{backend: backend, sessions: sessions, validator: validate, logger: logger, config: config, now: time.Now}
}

// Register creates an account on the collaborator.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}

	userID, err := s.backend.Register(ctx, req)
	if err != nil {
		return nil, backendError(err, "failed to register user")
	}
	s.logger.Info("user registered", zap.String("user_id", userID))
	return &models.RegisterResponse{UserID: userID}, nil
}

// Login authenticates against the collaborator and opens a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	result, err := s.backend.Login(ctx, req)
	if err != nil {
		return nil, backendError(err, "failed to authenticate")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.config.SessionTTL)
	if upstreamExp, ok := upstreamExpiry(result.Token); ok && upstreamExp.Before(expiresAt) {
		expiresAt = upstreamExp
	}
	if !expiresAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "backend issued an expired token")
	}

	session := &models.Session{
		ID:            uuid.NewString(),
		UserID:        result.User.ID,
		UpstreamToken: result.Token,
		Profile:       result.User,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}
	if err := s.sessions.Save(ctx, session, expiresAt.Sub(now)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	return &models.LoginResponse{SessionToken: session.ID, ExpiresAt: expiresAt, User: result.User}, nil
}

// Authenticate resolves a session token into a live session.
func (s *AuthService) Authenticate(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired or invalid")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if !s.now().Before(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired or invalid")
	}
	return session, nil
}

// Logout clears the session.
func (s *AuthService) Logout(ctx context.Context, session *models.Session) error {
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session")
	}
	return nil
}

// UpdateProfile pushes the change to the collaborator, then refreshes the session snapshot.
func (s *AuthService) UpdateProfile(ctx context.Context, session *models.Session, update models.ProfileUpdate) (*models.User, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, validationError(err, "invalid profile payload")
	}

	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	current, err := s.Authenticate(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if err := s.backend.UpdateProfile(ctx, current.UpstreamToken, current.UserID, update); err != nil {
		return nil, backendError(err, "failed to update profile")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	update.Apply(&current.Profile)
	ttl := current.ExpiresAt.Sub(s.now())
	if ttl > 0 {
		if err := s.sessions.Save(ctx, current, ttl); err != nil {
			s.logger.Warn("failed to refresh session profile", zap.String("user_id", current.UserID), zap.Error(err))
		}
	}
	*session = *current
	return &current.Profile, nil
}

// Overview returns the caller's courses and availability.
func (s *AuthService) Overview(ctx context.Context, session *models.Session) (*models.Overview, error) {
	overview, err := s.backend.Overview(ctx, session.UpstreamToken, session.UserID)
	if err != nil {
		return nil, backendError(err, "failed to load overview")
	}
	if overview.User.ID == "" {
		overview.User = session.Profile
		overview.User.CourseIDs = overview.CourseIDs()
	}
	return overview, nil
}

// upstreamExpiry peeks at the exp claim of a JWT-shaped upstream token. The token is
// not verified; it only bounds the session lifetime.
func upstreamExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
