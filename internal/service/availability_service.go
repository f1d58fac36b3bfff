package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

type availabilityBackend interface {
	Overview(ctx context.Context, token, userID string) (*models.Overview, error)
	AddAvailability(ctx context.Context, token, userID, slot string) (string, error)
	DeleteAvailability(ctx context.Context, token, userID, slotID string) error
	ReplaceAvailability(ctx context.Context, token, userID string, slots []string) error
}

// AvailabilityService manages the caller's free-text availability slots.
type AvailabilityService struct {
	backend   availabilityBackend
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(backend availabilityBackend, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{backend: backend, validator: validate, logger: logger}
}

// List returns the caller's slots in creation order.
func (s *AvailabilityService) List(ctx context.Context, session *models.Session) ([]models.AvailabilitySlot, error) {
	overview, err := s.backend.Overview(ctx, session.UpstreamToken, session.UserID)
	if err != nil {
		return nil, backendError(err, "failed to load availability")
	}
	if overview.Availability == nil {
		return []models.AvailabilitySlot{}, nil
	}
	return overview.Availability, nil
}

// Add appends one slot.
func (s *AvailabilityService) Add(ctx context.Context, session *models.Session, req models.AddAvailabilityRequest) (*models.AvailabilitySlot, error) {
	req.Slot = strings.TrimSpace(req.Slot)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid availability slot")
	}
	id, err := s.backend.AddAvailability(ctx, session.UpstreamToken, session.UserID, req.Slot)
	if err != nil {
		return nil, backendError(err, "failed to add availability")
	}
	return &models.AvailabilitySlot{ID: id, Slot: req.Slot}, nil
}

// Delete removes one slot.
func (s *AvailabilityService) Delete(ctx context.Context, session *models.Session, slotID string) error {
	if slotID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "slot id is required")
	}
	if err := s.backend.DeleteAvailability(ctx, session.UpstreamToken, session.UserID, slotID); err != nil {
		return backendError(err, "failed to delete availability")
	}
	return nil
}

// Replace swaps every slot for the given list. Blank and repeated entries are dropped.
func (s *AvailabilityService) Replace(ctx context.Context, session *models.Session, req models.ReplaceAvailabilityRequest) ([]models.AvailabilitySlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid availability payload")
	}
	slots := make([]string, 0, len(req.Slots))
	seen := make(map[string]struct{}, len(req.Slots))
	for _, slot := range req.Slots {
		slot = strings.TrimSpace(slot)
		if slot == "" {
			continue
		}
		if _, dup := seen[slot]; dup {
			continue
		}
		seen[slot] = struct{}{}
		slots = append(slots, slot)
	}
	if err := s.backend.ReplaceAvailability(ctx, session.UpstreamToken, session.UserID, slots); err != nil {
		return nil, backendError(err, "failed to update availability")
	}
	s.logger.Debug("availability replaced", zap.String("user_id", session.UserID), zap.Int("slots", len(slots)))
	return s.List(ctx, session)
}
