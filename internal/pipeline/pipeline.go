package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/crimson-sun/zeroshot/internal/engine"
	"github.com/crimson-sun/zeroshot/internal/engine/encoder"
	"github.com/crimson-sun/zeroshot/internal/model"
	"github.com/crimson-sun/zeroshot/internal/output"
	"github.com/crimson-sun/zeroshot/internal/source"
)

// Classifier scores one image against a label set. *engine.Engine
// implements it.
type Classifier interface {
	Classify(ctx context.Context, img image.Image, labels []string) (model.ClassificationResult, error)
}

// Stats counts images handled by a Pipeline.
type Stats struct {
	Classified int64
	Skipped    int64
}

// Pipeline connects an image source, a classifier and an output. Every
// image is classified against the same label set.
type Pipeline struct {
	source     source.Source
	classifier Classifier
	output     output.Output
	labels     []string

	classified atomic.Int64
	skipped    atomic.Int64
}

// New creates a Pipeline from the given components.
func New(src source.Source, cls Classifier, out output.Output, labels []string) *Pipeline {
	return &Pipeline{
		source:     src,
		classifier: cls,
		output:     out,
		labels:     labels,
	}
}

// Stream classifies images as the source produces them. An image that fails
// to classify is logged and skipped; errors that would fail every image
// (missing encoders, unusable labels) stop the pipeline. Blocks until the
// source is exhausted or ctx is cancelled.
func (p *Pipeline) Stream(ctx context.Context, cfg source.Config) error {
	ch, err := p.source.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			if err := p.process(ctx, raw); err != nil {
				return err
			}
		}
	}
}

// Run loads every image up front, failing if any cannot be read, then
// classifies them in order.
func (p *Pipeline) Run(ctx context.Context, cfg source.Config) error {
	raws, err := p.source.Load(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline load: %w", err)
	}
	for _, raw := range raws {
		if err := p.process(ctx, raw); err != nil {
			return err
		}
	}
	return nil
}

// process classifies one image and writes the result. Only fatal errors are
// returned.
func (p *Pipeline) process(ctx context.Context, raw model.RawImage) error {
	res, err := p.classifier.Classify(ctx, raw.Image, p.labels)
	if err != nil {
		if fatal(err) {
			return fmt.Errorf("pipeline classify %s: %w", raw.Source, err)
		}
		p.skipped.Add(1)
		slog.Warn("skipping image", "source", raw.Source, "error", err)
		return nil
	}
	res.Source = raw.Source
	p.classified.Add(1)

	slog.Info("classified",
		"request_id", res.ID,
		"source", res.Source,
		"best", res.BestLabel().Text,
		"probability", res.BestLabel().Probability,
		"elapsed", res.Elapsed,
	)
	if err := p.output.Write(ctx, res); err != nil {
		return fmt.Errorf("pipeline output: %w", err)
	}
	return nil
}

// fatal reports errors that no later image could avoid.
func fatal(err error) bool {
	return errors.Is(err, encoder.ErrNotConfigured) ||
		errors.Is(err, engine.ErrUnknownLabel) ||
		errors.Is(err, engine.ErrNoLabels) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Stats returns the running counts.
func (p *Pipeline) Stats() Stats {
	return Stats{Classified: p.classified.Load(), Skipped: p.skipped.Load()}
}

// Close shuts down the output and reports the final counts.
func (p *Pipeline) Close() error {
	s := p.Stats()
	if s.Skipped > 0 {
		slog.Warn("pipeline closed with skipped images", "classified", s.Classified, "skipped", s.Skipped)
	} else {
		slog.Info("pipeline closed", "classified", s.Classified)
	}
	return p.output.Close()
}
