package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	name string
	url  string
	err  error

	calls []string
}

func (f *fakePublisher) Name() string { return f.name }

func (f *fakePublisher) Upload(ctx context.Context, localPath, key string) (string, error) {
	f.calls = append(f.calls, key)
	if f.err != nil {
		return "", f.err
	}
	return f.url + "/" + key, nil
}

func TestChainFirstSuccess(t *testing.T) {
	primary := &fakePublisher{name: "s3", url: "https://cdn.example.com"}
	secondary := &fakePublisher{name: "minio", url: "http://minio:9000/videos"}
	chain := NewChain(nil, primary, secondary)

	url, err := chain.Upload(context.Background(), "/out/360p.mp4", "job-1/360p.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/job-1/360p.mp4", url)

	// The secondary was never consulted.
	assert.Empty(t, secondary.calls)
}

func TestChainFallback(t *testing.T) {
	primary := &fakePublisher{name: "s3", err: errors.New("connection refused")}
	secondary := &fakePublisher{name: "minio", url: "http://minio:9000/videos"}
	chain := NewChain(nil, primary, secondary)

	url, err := chain.Upload(context.Background(), "/out/360p.mp4", "job-1/360p.mp4")
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/videos/job-1/360p.mp4", url)
	assert.Len(t, primary.calls, 1)
}

func TestChainAllFail(t *testing.T) {
	s3Err := errors.New("connection refused")
	minioErr := errors.New("bucket not found")
	chain := NewChain(nil,
		&fakePublisher{name: "s3", err: s3Err},
		&fakePublisher{name: "minio", err: minioErr})

	_, err := chain.Upload(context.Background(), "/out/360p.mp4", "job-1/360p.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, s3Err)
	assert.ErrorIs(t, err, minioErr)
}

func TestChainEmpty(t *testing.T) {
	chain := NewChain(nil)

	assert.True(t, chain.Empty())
	_, err := chain.Upload(context.Background(), "/out/360p.mp4", "key")
	assert.ErrorIs(t, err, ErrNoPublisher)
}

func TestChainName(t *testing.T) {
	chain := NewChain(nil,
		&fakePublisher{name: "s3"},
		&fakePublisher{name: "minio"})
	assert.Equal(t, "chain[s3,minio]", chain.Name())
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/mp4", contentTypeFor("/out/720p.mp4"))
	assert.Equal(t, "image/jpeg", contentTypeFor("/out/thumbnail.jpg"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("/out/manifest.bin"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a/b.mp4", publicURL("https://cdn.example.com/", "a/b.mp4"))
	assert.Equal(t, "https://cdn.example.com/a/b.mp4", publicURL("https://cdn.example.com", "a/b.mp4"))
}
