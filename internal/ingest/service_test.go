package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidmill/vidmill/internal/models"
	"github.com/vidmill/vidmill/internal/store"
)

type memStore struct {
	jobs    map[string]*models.Job
	cancels map[string]bool
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*models.Job), cancels: make(map[string]bool)}
}

func (s *memStore) Put(ctx context.Context, job *models.Job) error {
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memStore) Update(ctx context.Context, job *models.Job) error {
	return s.Put(ctx, job)
}

func (s *memStore) Get(ctx context.Context, jobID string) (*models.Job, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *memStore) Delete(ctx context.Context, jobID string) error {
	delete(s.jobs, jobID)
	return nil
}

func (s *memStore) List(ctx context.Context) ([]*models.Job, error) {
	var out []*models.Job
	for _, j := range s.jobs {
		copied := *j
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memStore) ListActive(ctx context.Context) ([]*models.Job, error) {
	all, _ := s.List(ctx)
	var active []*models.Job
	for _, j := range all {
		if !j.IsTerminal() {
			active = append(active, j)
		}
	}
	return active, nil
}

func (s *memStore) RequestCancel(ctx context.Context, jobID string) error {
	s.cancels[jobID] = true
	return nil
}

func (s *memStore) IsCancelRequested(ctx context.Context, jobID string) (bool, error) {
	return s.cancels[jobID], nil
}

var _ store.Store = (*memStore)(nil)

type memQueue struct {
	ids []string
}

func (q *memQueue) Enqueue(ctx context.Context, jobID string) error {
	q.ids = append(q.ids, jobID)
	return nil
}

func (q *memQueue) Dequeue(ctx context.Context) (string, error) {
	if len(q.ids) == 0 {
		return "", nil
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id, nil
}

func (q *memQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.ids)), nil
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video data"), 0o644))
	return path
}

func newTestService(t *testing.T) (*Service, *memStore, *memQueue) {
	st := newMemStore()
	q := &memQueue{}
	return NewService(st, q, nil, nil), st, q
}

func TestEnqueue(t *testing.T) {
	svc, st, q := newTestService(t)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, "owner-1", writeSource(t), "My Video")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, "owner-1", job.OwnerID)

	stored, err := st.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, stored.Status)

	assert.Equal(t, []string{job.ID}, q.ids)
}

func TestEnqueueMissingSource(t *testing.T) {
	svc, _, q := newTestService(t)

	_, err := svc.Enqueue(context.Background(), "owner-1", "/does/not/exist.mp4", "")
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.Empty(t, q.ids)
}

func TestEnqueueValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Enqueue(context.Background(), "", writeSource(t), "")
	assert.ErrorIs(t, err, models.ErrOwnerRequired)
}

func TestStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, "owner-1", writeSource(t), "")
	require.NoError(t, err)

	found, err := svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)

	_, err = svc.Status(ctx, "unknown")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCancel(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, "owner-1", writeSource(t), "")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, job.ID)
	require.NoError(t, err)

	cancelled, err := st.IsCancelRequested(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestCancelTerminal(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, "owner-1", writeSource(t), "")
	require.NoError(t, err)

	stored, _ := st.Get(ctx, job.ID)
	stored.MarkReady(nil)
	require.NoError(t, st.Update(ctx, stored))

	_, err = svc.Cancel(ctx, job.ID)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	cancelled, _ := st.IsCancelRequested(ctx, job.ID)
	assert.False(t, cancelled)
}

func TestCancelUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Cancel(context.Background(), "unknown")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSnapshot(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	j1, err := svc.Enqueue(ctx, "owner-1", writeSource(t), "")
	require.NoError(t, err)
	j2, err := svc.Enqueue(ctx, "owner-1", writeSource(t), "")
	require.NoError(t, err)

	// j2 finished; it stays in the store but leaves the active set.
	stored, _ := st.Get(ctx, j2.ID)
	stored.MarkReady(nil)
	require.NoError(t, st.Update(ctx, stored))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Length)
	require.Len(t, snap.ActiveJobs, 1)
	assert.Equal(t, j1.ID, snap.ActiveJobs[0].ID)
}

func TestListActive(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	j1, err := svc.Enqueue(ctx, "owner-1", writeSource(t), "")
	require.NoError(t, err)
	j2, err := svc.Enqueue(ctx, "owner-1", writeSource(t), "")
	require.NoError(t, err)

	stored, _ := st.Get(ctx, j2.ID)
	stored.MarkCancelled()
	require.NoError(t, st.Update(ctx, stored))

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, j1.ID, active[0].ID)
}
