package transcode

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/vidmill/vidmill/internal/models"
)

// Thumbnail and preview dimensions.
const (
	thumbnailWidth  = 640
	thumbnailHeight = 360
	previewWidth    = 320
	previewHeight   = 180

	previewJPEGQuality = 85

	// thumbnailMaxOffsetSeconds is the latest point in the source the poster
	// frame is grabbed from. Shorter sources use their midpoint.
	thumbnailMaxOffsetSeconds = 3.0
)

// generateImages grabs the poster frame and derives the small preview from
// it. The poster comes from one ffmpeg frame grab; the preview is downscaled
// in-process.
func (e *Executor) generateImages(ctx context.Context, sourcePath, outDir string, durationSeconds float64) ([]models.Artifact, error) {
	offset := thumbnailMaxOffsetSeconds
	if half := durationSeconds / 2; half < offset {
		offset = half
	}

	thumbPath := filepath.Join(outDir, "thumbnail.jpg")
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.2f", offset),
		"-i", sourcePath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", thumbnailWidth, thumbnailHeight),
		thumbPath,
	}
	if err := e.grab(ctx, args); err != nil {
		return nil, fmt.Errorf("grabbing thumbnail: %w", err)
	}

	previewPath := filepath.Join(outDir, "preview.jpg")
	if err := downscaleJPEG(thumbPath, previewPath, previewWidth, previewHeight); err != nil {
		return nil, fmt.Errorf("generating preview: %w", err)
	}

	artifacts := []models.Artifact{
		{Kind: models.ArtifactThumbnail, Path: thumbPath},
		{Kind: models.ArtifactPreview, Path: previewPath},
	}
	for i := range artifacts {
		if fi, err := os.Stat(artifacts[i].Path); err == nil {
			artifacts[i].SizeBytes = fi.Size()
		}
	}
	return artifacts, nil
}

// downscaleJPEG resizes src to the given dimensions using Catmull-Rom
// interpolation and writes the result to dst.
func downscaleJPEG(src, dst string, width, height int) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", src, err)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Over, nil)

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := jpeg.Encode(out, scaled, &jpeg.Options{Quality: previewJPEGQuality}); err != nil {
		return fmt.Errorf("encoding %s: %w", dst, err)
	}
	return nil
}
