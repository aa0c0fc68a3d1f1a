package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vidmill/vidmill/internal/models"
)

func setupVideoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Video{}))
	return db
}

func newTestVideo(jobID, ownerID string) *models.Video {
	return &models.Video{
		JobID:      jobID,
		OwnerID:    ownerID,
		Title:      "Test Upload",
		SourcePath: "/data/uploads/" + jobID + ".mp4",
		Status:     models.JobStatusQueued,
	}
}

func TestVideoRepo_Create(t *testing.T) {
	db := setupVideoTestDB(t)
	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := newTestVideo(models.NewULID().String(), "owner-1")
	require.NoError(t, repo.Create(ctx, video))
	assert.False(t, video.ID.IsZero())

	found, err := repo.GetByID(ctx, video.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, video.JobID, found.JobID)
	assert.Equal(t, "Test Upload", found.Title)
}

func TestVideoRepo_CreateValidation(t *testing.T) {
	db := setupVideoTestDB(t)
	repo := NewVideoRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &models.Video{OwnerID: "owner-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrJobIDRequired)
}

func TestVideoRepo_GetByJobID(t *testing.T) {
	db := setupVideoTestDB(t)
	repo := NewVideoRepository(db)
	ctx := context.Background()

	jobID := models.NewULID().String()
	require.NoError(t, repo.Create(ctx, newTestVideo(jobID, "owner-1")))

	t.Run("existing", func(t *testing.T) {
		found, err := repo.GetByJobID(ctx, jobID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, jobID, found.JobID)
	})

	t.Run("missing", func(t *testing.T) {
		found, err := repo.GetByJobID(ctx, models.NewULID().String())
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestVideoRepo_GetByOwner(t *testing.T) {
	db := setupVideoTestDB(t)
	repo := NewVideoRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newTestVideo(models.NewULID().String(), "owner-1")))
	}
	require.NoError(t, repo.Create(ctx, newTestVideo(models.NewULID().String(), "owner-2")))

	videos, err := repo.GetByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, videos, 3)
}

func TestVideoRepo_GetByStatus(t *testing.T) {
	db := setupVideoTestDB(t)
	repo := NewVideoRepository(db)
	ctx := context.Background()

	ready := newTestVideo(models.NewULID().String(), "owner-1")
	ready.Status = models.JobStatusReady
	require.NoError(t, repo.Create(ctx, ready))
	require.NoError(t, repo.Create(ctx, newTestVideo(models.NewULID().String(), "owner-1")))

	videos, err := repo.GetByStatus(ctx, models.JobStatusReady)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, ready.JobID, videos[0].JobID)
}

func TestVideoRepo_Update(t *testing.T) {
	db := setupVideoTestDB(t)
	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := newTestVideo(models.NewULID().String(), "owner-1")
	require.NoError(t, repo.Create(ctx, video))

	video.Status = models.JobStatusReady
	require.NoError(t, video.SetArtifacts([]models.Artifact{
		{Rendition: "360p", Kind: models.ArtifactVideo, URL: "https://cdn.example.com/v/360p.mp4"},
		{Kind: models.ArtifactThumbnail, URL: "https://cdn.example.com/v/thumbnail.jpg"},
	}))
	require.NoError(t, repo.Update(ctx, video))

	found, err := repo.GetByID(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusReady, found.Status)
	assert.Equal(t, "https://cdn.example.com/v/thumbnail.jpg", found.ThumbnailURL)

	artifacts, err := found.GetArtifacts()
	require.NoError(t, err)
	assert.Len(t, artifacts, 2)
}

func TestVideoRepo_Delete(t *testing.T) {
	db := setupVideoTestDB(t)
	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := newTestVideo(models.NewULID().String(), "owner-1")
	require.NoError(t, repo.Create(ctx, video))
	require.NoError(t, repo.Delete(ctx, video.ID))

	found, err := repo.GetByID(ctx, video.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
