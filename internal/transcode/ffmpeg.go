package transcode

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// stderrTailBytes limits how much encoder stderr is kept for error messages.
const stderrTailBytes = 4096

// runEncode executes ffmpeg for one rendition, parsing key=value progress
// records from stdout against the probed source duration.
func (e *Executor) runEncode(ctx context.Context, args []string, durationSeconds float64, onProgress func(float64)) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if seconds, ok := parseProgressLine(scanner.Text()); ok && durationSeconds > 0 {
			onProgress(seconds / durationSeconds)
		}
	}
	if err := scanner.Err(); err != nil {
		e.logger.Warn("reading encoder progress", slog.String("error", err.Error()))
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	return nil
}

// runFrameGrab executes ffmpeg for a single frame extraction.
func (e *Executor) runFrameGrab(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	return nil
}

// parseProgressLine extracts the elapsed output time in seconds from an
// ffmpeg -progress record. ffmpeg reports out_time_ms in microseconds;
// out_time_us is the explicit form on newer builds.
func parseProgressLine(line string) (float64, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false
	}
	switch key {
	case "out_time_ms", "out_time_us":
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		return float64(us) / 1e6, true
	default:
		return 0, false
	}
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	if len(b.data) > b.limit {
		b.data = b.data[len(b.data)-b.limit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return strings.TrimSpace(string(b.data))
}
