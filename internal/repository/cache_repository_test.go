package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/classmatch-api/pkg/errors"
)

func TestCacheRepositoryWithoutRedis(t *testing.T) {
	repo := NewCacheRepository(nil, "classmatch:", nil)
	ctx := context.Background()

	assert.NoError(t, repo.Set(ctx, "catalog:courses", []string{"CS2201"}, time.Minute))
	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "catalog:courses", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Delete(ctx, "catalog:courses"))
	assert.Equal(t, "classmatch:catalog:courses", repo.key("catalog:courses"))
}
