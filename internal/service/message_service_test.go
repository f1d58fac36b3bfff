package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classmatch-api/internal/models"
	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

func TestMessageServicePostRequiresMembership(t *testing.T) {
	backend := groupFixture()
	svc := NewMessageService(backend, validator.New(), zap.NewNop())

	_, err := svc.Post(context.Background(), testSession("dan", "Dan"), "g1", models.PostMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	msg, err := svc.Post(context.Background(), testSession("bob", "Bob"), "g1", models.PostMessageRequest{Content: "  see you at 5  "})
	require.NoError(t, err)
	assert.Equal(t, "see you at 5", msg.Content)
	assert.Equal(t, "Bob", msg.AuthorName)
	assert.Equal(t, []string{"see you at 5"}, backend.posted)
}

func TestMessageServiceRejectsBlankContent(t *testing.T) {
	svc := NewMessageService(groupFixture(), validator.New(), zap.NewNop())

	_, err := svc.Post(context.Background(), testSession("bob", "Bob"), "g1", models.PostMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestMessageServiceList(t *testing.T) {
	backend := groupFixture()
	backend.messages = []models.Message{{ID: "m2", Content: "second"}, {ID: "m1", Content: "first"}}
	svc := NewMessageService(backend, validator.New(), zap.NewNop())

	list, err := svc.List(context.Background(), testSession("amy", "Amy"), "g1", models.MessageFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.List(context.Background(), testSession("dan", "Dan"), "g1", models.MessageFilter{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
