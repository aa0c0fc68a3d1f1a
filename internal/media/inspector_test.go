package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidmill/vidmill/internal/config"
)

func testLimits() config.Limits {
	return config.Limits{
		MaxDurationSeconds: 1800,
		MaxFrameRate:       120,
		MinWidth:           240,
		MinHeight:          180,
		MaxWidth:           7680,
		MaxHeight:          4320,
	}
}

// probeJSON builds a canned ffprobe response.
func probeJSON(duration string, width, height int, frameRate string) string {
	return fmt.Sprintf(`{
		"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "%s", "bit_rate": "4500000"},
		"streams": [
			{"index": 0, "codec_name": "h264", "codec_type": "video", "width": %d, "height": %d, "avg_frame_rate": "%s"},
			{"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2}
		]
	}`, duration, width, height, frameRate)
}

func newTestInspector(t *testing.T, output string, runErr error) (*Inspector, string) {
	t.Helper()

	source := filepath.Join(t.TempDir(), "source.mp4")
	require.NoError(t, os.WriteFile(source, []byte("fake video payload"), 0o644))

	insp := NewInspector(
		config.FFmpeg{ProbePath: "ffprobe", ProbeTimeout: 5 * time.Second},
		testLimits(),
		1024*1024,
	).WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if runErr != nil {
			return nil, runErr
		}
		return []byte(output), nil
	})

	return insp, source
}

func TestInspectValidSource(t *testing.T) {
	insp, source := newTestInspector(t, probeJSON("120.5", 1920, 1080, "30000/1001"), nil)

	info, err := insp.Inspect(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 120.5, info.DurationSeconds)
	assert.Equal(t, "h264", info.VideoCodec)
	assert.Equal(t, "aac", info.AudioCodec)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.InDelta(t, 29.97, info.FrameRate, 0.01)
	assert.Equal(t, 4500000, info.BitRate)
}

func TestInspectProbeFailure(t *testing.T) {
	insp, source := newTestInspector(t, "", errors.New("exit status 1"))

	_, err := insp.Inspect(context.Background(), source)
	assert.ErrorIs(t, err, ErrUnreadableMedia)
}

func TestInspectNoVideoStream(t *testing.T) {
	audioOnly := `{
		"format": {"format_name": "mp3", "duration": "60.0"},
		"streams": [{"index": 0, "codec_name": "mp3", "codec_type": "audio"}]
	}`
	insp, source := newTestInspector(t, audioOnly, nil)

	_, err := insp.Inspect(context.Background(), source)
	assert.ErrorIs(t, err, ErrUnreadableMedia)
}

func TestInspectMalformedOutput(t *testing.T) {
	insp, source := newTestInspector(t, "not json", nil)

	_, err := insp.Inspect(context.Background(), source)
	assert.ErrorIs(t, err, ErrUnreadableMedia)
}

func TestInspectDurationExceeded(t *testing.T) {
	insp, source := newTestInspector(t, probeJSON("1800.1", 1280, 720, "25/1"), nil)

	_, err := insp.Inspect(context.Background(), source)

	var durErr *DurationExceededError
	require.ErrorAs(t, err, &durErr)
	assert.Equal(t, 1800.1, durErr.DurationSeconds)
	assert.Equal(t, float64(1800), durErr.LimitSeconds)
}

func TestInspectDurationAtLimit(t *testing.T) {
	insp, source := newTestInspector(t, probeJSON("1800.0", 1280, 720, "25/1"), nil)

	_, err := insp.Inspect(context.Background(), source)
	assert.NoError(t, err)
}

func TestInspectResolutionOutOfRange(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"below minimum", 160, 120},
		{"above maximum", 8192, 4608},
		{"width below minimum", 200, 1080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insp, source := newTestInspector(t, probeJSON("60.0", tt.width, tt.height, "25/1"), nil)

			_, err := insp.Inspect(context.Background(), source)

			var resErr *ResolutionOutOfRangeError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, tt.width, resErr.Width)
			assert.Equal(t, tt.height, resErr.Height)
		})
	}
}

func TestInspectResolutionBoundaries(t *testing.T) {
	// Exactly at the limits is accepted.
	for _, dims := range [][2]int{{240, 180}, {7680, 4320}} {
		insp, source := newTestInspector(t, probeJSON("60.0", dims[0], dims[1], "25/1"), nil)
		_, err := insp.Inspect(context.Background(), source)
		assert.NoError(t, err, "resolution %dx%d", dims[0], dims[1])
	}
}

func TestInspectFrameRateExceeded(t *testing.T) {
	insp, source := newTestInspector(t, probeJSON("60.0", 1280, 720, "144/1"), nil)

	_, err := insp.Inspect(context.Background(), source)

	var frErr *FrameRateExceededError
	require.ErrorAs(t, err, &frErr)
	assert.Equal(t, float64(144), frErr.FrameRate)
}

func TestInspectSourceTooLarge(t *testing.T) {
	source := filepath.Join(t.TempDir(), "big.mp4")
	require.NoError(t, os.WriteFile(source, make([]byte, 2048), 0o644))

	insp := NewInspector(
		config.FFmpeg{ProbePath: "ffprobe", ProbeTimeout: 5 * time.Second},
		testLimits(),
		1024,
	).WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("probe should not run for oversized sources")
		return nil, nil
	})

	_, err := insp.Inspect(context.Background(), source)

	var sizeErr *SourceTooLargeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, int64(2048), sizeErr.SizeBytes)
}

func TestInspectMissingFile(t *testing.T) {
	insp, _ := newTestInspector(t, probeJSON("60.0", 1280, 720, "25/1"), nil)

	_, err := insp.Inspect(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, ErrUnreadableMedia)
}

func TestParseFramerate(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"25/1", 25},
		{"30000/1001", 29.97002997002997},
		{"0/0", 0},
		{"24", 24},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.InDelta(t, tt.expected, parseFramerate(tt.input), 0.0001)
		})
	}
}
