// Package source defines where images to classify come from. Providers
// register themselves by name; import them for side effects.
package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/crimson-sun/zeroshot/internal/model"
)

// Source defines the interface all image source providers implement.
type Source interface {
	// Stream decodes images in target order and sends them as they become
	// ready. Targets that fail to load are logged and skipped. The channel
	// closes after the last target or when ctx is done.
	Stream(ctx context.Context, cfg Config) (<-chan model.RawImage, error)

	// Load decodes every target, failing on the first that cannot be read.
	Load(ctx context.Context, cfg Config) ([]model.RawImage, error)
}

// Config holds provider settings for one run.
type Config struct {
	Provider string
	Targets  []string // paths, directories or URLs depending on the provider
	Timeout  time.Duration
	Retries  int
	Token    string // bearer token for HTTP sources
}

// LoadFunc reads and decodes a single target.
type LoadFunc func(ctx context.Context, target string) (model.RawImage, error)

// StreamTargets runs load over targets on a goroutine, sending each decoded
// image in order. Failed targets are logged and skipped.
func StreamTargets(ctx context.Context, provider string, targets []string, load LoadFunc) <-chan model.RawImage {
	ch := make(chan model.RawImage)
	go func() {
		defer close(ch)
		for _, t := range targets {
			if ctx.Err() != nil {
				return
			}
			img, err := load(ctx, t)
			if err != nil {
				slog.Warn("skipping image", "source", provider, "target", t, "error", err)
				continue
			}
			select {
			case ch <- img:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// LoadTargets runs load over targets in order and stops at the first error.
func LoadTargets(ctx context.Context, targets []string, load LoadFunc) ([]model.RawImage, error) {
	images := make([]model.RawImage, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := load(ctx, t)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}
