package models

// JobStatus represents the current status of a transcode job.
type JobStatus string

const (
	// JobStatusQueued indicates the job is waiting for a worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates a worker is running the job.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusReady indicates all renditions finished and were published.
	JobStatusReady JobStatus = "ready"
	// JobStatusFailed indicates the job failed with a terminal error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the job was cancelled by its owner.
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal returns true if the status is a final state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusReady || s == JobStatusFailed || s == JobStatusCancelled
}

// ArtifactKind identifies what an output artifact contains.
type ArtifactKind string

const (
	// ArtifactVideo is an encoded rendition file.
	ArtifactVideo ArtifactKind = "video"
	// ArtifactThumbnail is the poster frame grabbed from the source.
	ArtifactThumbnail ArtifactKind = "thumbnail"
	// ArtifactPreview is the small preview image derived from the thumbnail.
	ArtifactPreview ArtifactKind = "preview"
)

// Artifact is a single output file produced for a job. Path is the local
// file; URL is set once the artifact has been published to object storage.
type Artifact struct {
	Rendition    string       `json:"rendition,omitempty"`
	Kind         ArtifactKind `json:"kind"`
	Path         string       `json:"path"`
	URL          string       `json:"url,omitempty"`
	SizeBytes    int64        `json:"size_bytes"`
	VideoBitrate int          `json:"video_bitrate,omitempty"`
}

// Job is the authoritative job record held in the job store for the
// lifetime of a transcode. It is serialized as a single JSON value.
type Job struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title,omitempty"`
	SourcePath string `json:"source_path"`

	Status          JobStatus `json:"status"`
	ProgressPercent float64   `json:"progress_percent"`
	ProgressMessage string    `json:"progress_message,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`

	// Source properties filled in after inspection.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`

	// Renditions is the selected encode plan, ascending by height.
	Renditions []string   `json:"renditions,omitempty"`
	Artifacts  []Artifact `json:"artifacts,omitempty"`

	CreatedAt   Time  `json:"created_at"`
	UpdatedAt   Time  `json:"updated_at"`
	StartedAt   *Time `json:"started_at,omitempty"`
	CompletedAt *Time `json:"completed_at,omitempty"`
}

// NewJob creates a queued job record for a source file.
func NewJob(id, ownerID, sourcePath, title string) *Job {
	now := Now()
	return &Job{
		ID:         id,
		OwnerID:    ownerID,
		Title:      title,
		SourcePath: sourcePath,
		Status:     JobStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsTerminal returns true if the job has reached a final state.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// MarkProcessing transitions the job to processing.
func (j *Job) MarkProcessing() {
	now := Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkReady transitions the job to ready with its final artifacts.
func (j *Job) MarkReady(artifacts []Artifact) {
	now := Now()
	j.Status = JobStatusReady
	j.Artifacts = artifacts
	j.ProgressPercent = 100
	j.ProgressMessage = ""
	j.ErrorMessage = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed transitions the job to failed with an error message.
func (j *Job) MarkFailed(err error) {
	now := Now()
	j.Status = JobStatusFailed
	if err != nil {
		j.ErrorMessage = err.Error()
	}
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkCancelled transitions the job to cancelled.
func (j *Job) MarkCancelled() {
	now := Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// SetProgress raises the job progress to percent and records the stage
// message. Progress is monotonic: a lower value than the current one is
// ignored, as is any update once the job is terminal. Returns true if the
// record changed.
func (j *Job) SetProgress(percent float64, message string) bool {
	if j.IsTerminal() {
		return false
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent <= j.ProgressPercent {
		return false
	}
	j.ProgressPercent = percent
	j.ProgressMessage = message
	j.UpdatedAt = Now()
	return true
}

// Validate performs basic validation on the job record.
func (j *Job) Validate() error {
	if j.ID == "" {
		return ErrJobIDRequired
	}
	if j.OwnerID == "" {
		return ErrOwnerRequired
	}
	if j.SourcePath == "" {
		return ErrSourcePathRequired
	}
	return nil
}
