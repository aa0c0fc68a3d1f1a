package media

import (
	"errors"
	"fmt"
)

// ErrUnreadableMedia is returned when the source cannot be probed or has no
// video stream. All inspection errors are terminal for the job.
var ErrUnreadableMedia = errors.New("unreadable media")

// DurationExceededError is returned when the source is longer than the
// platform allows.
type DurationExceededError struct {
	DurationSeconds float64
	LimitSeconds    float64
}

func (e *DurationExceededError) Error() string {
	return fmt.Sprintf("media: duration %.1fs exceeds limit of %.0fs", e.DurationSeconds, e.LimitSeconds)
}

// ResolutionOutOfRangeError is returned when the source resolution falls
// outside the supported range.
type ResolutionOutOfRangeError struct {
	Width  int
	Height int
}

func (e *ResolutionOutOfRangeError) Error() string {
	return fmt.Sprintf("media: resolution %dx%d is outside the supported range", e.Width, e.Height)
}

// FrameRateExceededError is returned when the source frame rate is above the
// supported maximum.
type FrameRateExceededError struct {
	FrameRate float64
	Limit     float64
}

func (e *FrameRateExceededError) Error() string {
	return fmt.Sprintf("media: frame rate %.2f exceeds limit of %.0f", e.FrameRate, e.Limit)
}

// SourceTooLargeError is returned when the source file exceeds the upload
// size limit.
type SourceTooLargeError struct {
	SizeBytes  int64
	LimitBytes int64
}

func (e *SourceTooLargeError) Error() string {
	return fmt.Sprintf("media: source size %d bytes exceeds limit of %d bytes", e.SizeBytes, e.LimitBytes)
}
