package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	job := NewJob("01ABC", "user-1", "/uploads/cat.mp4", "cat video")

	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Zero(t, job.ProgressPercent)
	assert.False(t, job.IsTerminal())
	assert.False(t, job.CreatedAt.IsZero())
	require.NoError(t, job.Validate())
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name string
		job  *Job
		want error
	}{
		{"missing id", NewJob("", "u", "/p", ""), ErrJobIDRequired},
		{"missing owner", NewJob("id", "", "/p", ""), ErrOwnerRequired},
		{"missing source", NewJob("id", "u", "", ""), ErrSourcePathRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.job.Validate(), tt.want)
		})
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
	assert.True(t, JobStatusReady.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
}

func TestMarkTransitions(t *testing.T) {
	job := NewJob("01ABC", "user-1", "/uploads/cat.mp4", "")

	job.MarkProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.StartedAt)

	artifacts := []Artifact{{Rendition: "360p", Kind: ArtifactVideo, Path: "/out/360p.mp4"}}
	job.MarkReady(artifacts)
	assert.Equal(t, JobStatusReady, job.Status)
	assert.Equal(t, float64(100), job.ProgressPercent)
	assert.Equal(t, artifacts, job.Artifacts)
	require.NotNil(t, job.CompletedAt)
}

func TestMarkFailed(t *testing.T) {
	job := NewJob("01ABC", "user-1", "/uploads/cat.mp4", "")
	job.MarkProcessing()
	job.MarkFailed(errors.New("encoder exploded"))

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "encoder exploded", job.ErrorMessage)
	assert.True(t, job.IsTerminal())
}

func TestMarkCancelled(t *testing.T) {
	job := NewJob("01ABC", "user-1", "/uploads/cat.mp4", "")
	job.MarkProcessing()
	job.MarkCancelled()

	assert.Equal(t, JobStatusCancelled, job.Status)
	require.NotNil(t, job.CompletedAt)
}

func TestSetProgressMonotonic(t *testing.T) {
	job := NewJob("01ABC", "user-1", "/uploads/cat.mp4", "")
	job.MarkProcessing()

	assert.True(t, job.SetProgress(25, "encoding 360p"))
	assert.Equal(t, float64(25), job.ProgressPercent)
	assert.Equal(t, "encoding 360p", job.ProgressMessage)

	// Lower values are ignored, message included
	assert.False(t, job.SetProgress(10, "encoding 480p"))
	assert.Equal(t, float64(25), job.ProgressPercent)
	assert.Equal(t, "encoding 360p", job.ProgressMessage)

	// Clamped to 100
	assert.True(t, job.SetProgress(150, "encoding 720p"))
	assert.Equal(t, float64(100), job.ProgressPercent)
}

func TestSetProgressTerminalGuard(t *testing.T) {
	job := NewJob("01ABC", "user-1", "/uploads/cat.mp4", "")
	job.MarkCancelled()

	assert.False(t, job.SetProgress(50, "encoding 360p"))
	assert.Zero(t, job.ProgressPercent)
	assert.Empty(t, job.ProgressMessage)
}

func TestVideoArtifactsRoundTrip(t *testing.T) {
	video := &Video{JobID: "01ABC", OwnerID: "user-1"}

	err := video.SetArtifacts([]Artifact{
		{Rendition: "720p", Kind: ArtifactVideo, URL: "https://cdn/720p.mp4"},
		{Kind: ArtifactThumbnail, URL: "https://cdn/thumb.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/thumb.jpg", video.ThumbnailURL)

	artifacts, err := video.GetArtifacts()
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "720p", artifacts[0].Rendition)
}
