package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 200
)

type messageBackend interface {
	GetGroup(ctx context.Context, token, groupID string) (*models.Group, error)
	ListMessages(ctx context.Context, token, groupID string, filter models.MessageFilter) ([]models.Message, error)
	PostMessage(ctx context.Context, token, groupID, userID, content string) (string, error)
}

// MessageService reads and writes group chat messages. Only members may do either.
type MessageService struct {
	backend   messageBackend
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMessageService constructs a MessageService.
func NewMessageService(backend messageBackend, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{backend: backend, validator: validate, logger: logger, now: time.Now}
}

// List returns a page of messages, newest first.
func (s *MessageService) List(ctx context.Context, session *models.Session, groupID string, filter models.MessageFilter) ([]models.Message, error) {
	if err := s.requireMember(ctx, session, groupID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultMessagePage
	}
	if filter.Limit > maxMessagePage {
		filter.Limit = maxMessagePage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	messages, err := s.backend.ListMessages(ctx, session.UpstreamToken, groupID, filter)
	if err != nil {
		return nil, backendError(err, "failed to load messages")
	}
	return messages, nil
}

// Post sends a message to the group.
func (s *MessageService) Post(ctx context.Context, session *models.Session, groupID string, req models.PostMessageRequest) (*models.Message, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid message payload")
	}
	if err := s.requireMember(ctx, session, groupID); err != nil {
		return nil, err
	}
	id, err := s.backend.PostMessage(ctx, session.UpstreamToken, groupID, session.UserID, req.Content)
	if err != nil {
		return nil, backendError(err, "failed to post message")
	}
	return &models.Message{
		ID:         id,
		GroupID:    groupID,
		UserID:     session.UserID,
		AuthorName: session.Profile.Name,
		Content:    req.Content,
		CreatedAt:  s.now().UTC(),
	}, nil
}

func (s *MessageService) requireMember(ctx context.Context, session *models.Session, groupID string) error {
	group, err := s.backend.GetGroup(ctx, session.UpstreamToken, groupID)
	if err != nil {
		return backendError(err, "failed to load group")
	}
	if group.Archived {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	if !IsMember(group, session.UserID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only members can access group messages")
	}
	return nil
}
