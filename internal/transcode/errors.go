package transcode

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when a cancellation request is observed at a
// checkpoint. In-flight encodes are never interrupted for cancellation; the
// check happens only between renditions.
var ErrCancelled = errors.New("job cancelled")

// RenditionEncodeFailedError is returned when ffmpeg fails for one rendition.
// The remaining renditions are not attempted.
type RenditionEncodeFailedError struct {
	Rendition string
	Cause     error
}

func (e *RenditionEncodeFailedError) Error() string {
	return fmt.Sprintf("transcode: rendition %s failed: %v", e.Rendition, e.Cause)
}

func (e *RenditionEncodeFailedError) Unwrap() error {
	return e.Cause
}
