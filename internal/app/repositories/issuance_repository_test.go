package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/diplomaregistry/internal/app/models"
)

func TestMemoryIssuanceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryIssuanceRepository()

	first := models.NewIssuanceRecord("1001", models.StateUploading)
	require.NoError(t, repo.Create(ctx, first))

	first.State = models.StateEnrolled
	first.EnrollTxHash = "0xabc"
	require.NoError(t, repo.Update(ctx, first))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateEnrolled, got.State)
	assert.Equal(t, "0xabc", got.EnrollTxHash)

	// Returned values are copies
	got.State = models.StateFailed
	again, _ := repo.GetByID(ctx, first.ID)
	assert.Equal(t, models.StateEnrolled, again.State)

	assert.ErrorIs(t, repo.Create(ctx, first), ErrIssuanceExists)

	second := models.NewIssuanceRecord("1001", models.StateUploading)
	require.NoError(t, repo.Create(ctx, second))
	latest, err := repo.FindLatestByStudent(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestMemoryIssuanceRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryIssuanceRepository()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrIssuanceNotFound)

	_, err = repo.FindLatestByStudent(ctx, "7")
	assert.ErrorIs(t, err, ErrIssuanceNotFound)

	err = repo.Update(ctx, models.NewIssuanceRecord("7", models.StateUploading))
	assert.ErrorIs(t, err, ErrIssuanceNotFound)
}
