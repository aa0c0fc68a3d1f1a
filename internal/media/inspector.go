package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/vidmill/vidmill/internal/config"
)

// MediaInfo is the reduced inspection result the rest of the pipeline
// consumes.
type MediaInfo struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Container       string  `json:"container"`
	VideoCodec      string  `json:"video_codec"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameRate       float64 `json:"frame_rate"`
	BitRate         int     `json:"bit_rate,omitempty"`
}

// CommandRunner executes an external command and returns its stdout.
// Tests inject a fake; the default runs the real binary.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// execRunner runs the command via os/exec.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Inspector probes source media files and validates them against the
// platform limits.
type Inspector struct {
	ffprobePath   string
	timeout       time.Duration
	limits        config.Limits
	maxSourceSize int64
	run           CommandRunner
}

// NewInspector creates an inspector using the configured ffprobe binary.
func NewInspector(cfg config.FFmpeg, limits config.Limits, maxSourceSize int64) *Inspector {
	return &Inspector{
		ffprobePath:   cfg.ProbePath,
		timeout:       cfg.ProbeTimeout,
		limits:        limits,
		maxSourceSize: maxSourceSize,
		run:           execRunner,
	}
}

// WithRunner overrides the command runner. Used in tests.
func (i *Inspector) WithRunner(run CommandRunner) *Inspector {
	i.run = run
	return i
}

// Inspect probes the file at path and validates it. Every error returned is
// terminal for the job: either the media is unreadable or it violates a
// platform limit.
func (i *Inspector) Inspect(ctx context.Context, path string) (*MediaInfo, error) {
	if i.maxSourceSize > 0 {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableMedia, err)
		}
		if fi.Size() > i.maxSourceSize {
			return nil, &SourceTooLargeError{SizeBytes: fi.Size(), LimitBytes: i.maxSourceSize}
		}
	}

	result, err := i.probe(ctx, path)
	if err != nil {
		return nil, err
	}

	video := result.GetVideoStream()
	if video == nil {
		return nil, fmt.Errorf("%w: no video stream", ErrUnreadableMedia)
	}

	info := &MediaInfo{
		DurationSeconds: result.DurationSeconds(),
		Container:       result.Format.FormatName,
		VideoCodec:      video.CodecName,
		Width:           video.Width,
		Height:          video.Height,
		FrameRate:       video.Framerate(),
		BitRate:         result.Bitrate(),
	}
	if audio := result.GetAudioStream(); audio != nil {
		info.AudioCodec = audio.CodecName
	}

	if err := i.validate(info); err != nil {
		return nil, err
	}

	return info, nil
}

// probe runs ffprobe and decodes its JSON output.
func (i *Inspector) probe(ctx context.Context, path string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	output, err := i.run(ctx, i.ffprobePath, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: probe timeout after %v", ErrUnreadableMedia, i.timeout)
		}
		return nil, fmt.Errorf("%w: ffprobe failed: %v", ErrUnreadableMedia, err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("%w: parsing ffprobe output: %v", ErrUnreadableMedia, err)
	}

	return &result, nil
}

// validate enforces the acceptance limits on the inspected media.
func (i *Inspector) validate(info *MediaInfo) error {
	if info.DurationSeconds <= 0 {
		return fmt.Errorf("%w: missing duration", ErrUnreadableMedia)
	}
	if info.DurationSeconds > i.limits.MaxDurationSeconds {
		return &DurationExceededError{
			DurationSeconds: info.DurationSeconds,
			LimitSeconds:    i.limits.MaxDurationSeconds,
		}
	}
	if info.Width < i.limits.MinWidth || info.Height < i.limits.MinHeight ||
		info.Width > i.limits.MaxWidth || info.Height > i.limits.MaxHeight {
		return &ResolutionOutOfRangeError{Width: info.Width, Height: info.Height}
	}
	if info.FrameRate > i.limits.MaxFrameRate {
		return &FrameRateExceededError{FrameRate: info.FrameRate, Limit: i.limits.MaxFrameRate}
	}
	return nil
}
