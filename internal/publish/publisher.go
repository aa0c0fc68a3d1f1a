// Package publish uploads finished artifacts to object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Publisher uploads one local file under the given object key and returns
// its public URL.
type Publisher interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	Name() string
}

// ErrNoPublisher is returned by a chain with no configured targets.
var ErrNoPublisher = errors.New("publish: no publisher configured")

// Chain tries each publisher in order and returns the first success. The
// caller treats an error from Upload as "all targets failed".
type Chain struct {
	publishers []Publisher
	logger     *slog.Logger
}

var _ Publisher = (*Chain)(nil)

// NewChain builds a fallback chain over the given publishers.
func NewChain(logger *slog.Logger, publishers ...Publisher) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{publishers: publishers, logger: logger}
}

// Empty reports whether the chain has no targets.
func (c *Chain) Empty() bool {
	return len(c.publishers) == 0
}

// Name identifies the chain in logs.
func (c *Chain) Name() string {
	names := make([]string, len(c.publishers))
	for i, p := range c.publishers {
		names[i] = p.Name()
	}
	return "chain[" + strings.Join(names, ",") + "]"
}

// Upload tries each target in order, returning the URL from the first one
// that succeeds. The joined errors of every failed target come back when
// none succeeds.
func (c *Chain) Upload(ctx context.Context, localPath, key string) (string, error) {
	if len(c.publishers) == 0 {
		return "", ErrNoPublisher
	}

	var errs []error
	for _, p := range c.publishers {
		url, err := p.Upload(ctx, localPath, key)
		if err == nil {
			return url, nil
		}
		c.logger.Warn("publish target failed",
			slog.String("publisher", p.Name()),
			slog.String("key", key),
			slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return "", errors.Join(errs...)
}

// contentTypeFor maps artifact file extensions to MIME types.
func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// publicURL joins a configured base URL with an object key.
func publicURL(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + key
}
