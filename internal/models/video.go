package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Video is the relational mirror of a transcode job. It carries the
// historical status for the owning video record; the job store remains the
// authority while the job is live.
type Video struct {
	BaseModel

	// JobID is the job store identifier this row mirrors.
	JobID string `gorm:"not null;size:26;uniqueIndex" json:"job_id"`

	// OwnerID identifies the uploading user.
	OwnerID string `gorm:"not null;size:64;index" json:"owner_id"`

	// Title is a human-readable name for the video.
	Title string `gorm:"size:255" json:"title,omitempty"`

	// SourcePath is the uploaded source file location.
	SourcePath string `gorm:"size:1024" json:"source_path,omitempty"`

	// Status mirrors the job status at the last checkpoint.
	Status JobStatus `gorm:"not null;default:'queued';size:20;index" json:"status"`

	// ErrorMessage carries the terminal failure reason, if any.
	ErrorMessage string `gorm:"size:4096" json:"error_message,omitempty"`

	// Source properties filled in after inspection.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`

	// Renditions is a JSON-encoded list of published artifacts.
	Renditions string `gorm:"size:8192" json:"renditions,omitempty"`

	// ThumbnailURL is the published poster frame location.
	ThumbnailURL string `gorm:"size:1024" json:"thumbnail_url,omitempty"`

	// PublishedAt is when the video became ready.
	PublishedAt *Time `json:"published_at,omitempty"`
}

// TableName returns the table name for Video.
func (Video) TableName() string {
	return "videos"
}

// Validate performs basic validation on the video.
func (v *Video) Validate() error {
	if v.JobID == "" {
		return ErrJobIDRequired
	}
	if v.OwnerID == "" {
		return ErrOwnerRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the video and generates the ULID.
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if err := v.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return v.Validate()
}

// SetArtifacts stores the published artifacts as JSON and lifts the
// thumbnail URL into its own column.
func (v *Video) SetArtifacts(artifacts []Artifact) error {
	data, err := json.Marshal(artifacts)
	if err != nil {
		return err
	}
	v.Renditions = string(data)
	for _, a := range artifacts {
		if a.Kind == ArtifactThumbnail && a.URL != "" {
			v.ThumbnailURL = a.URL
		}
	}
	return nil
}

// GetArtifacts decodes the stored artifact list.
func (v *Video) GetArtifacts() ([]Artifact, error) {
	if v.Renditions == "" {
		return nil, nil
	}
	var artifacts []Artifact
	if err := json.Unmarshal([]byte(v.Renditions), &artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}
