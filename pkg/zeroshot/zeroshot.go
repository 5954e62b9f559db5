package zeroshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/crimson-sun/zeroshot/internal/engine"
	"github.com/crimson-sun/zeroshot/internal/engine/classifier"
	"github.com/crimson-sun/zeroshot/internal/engine/encoder"
	"github.com/crimson-sun/zeroshot/internal/engine/preprocess"
	"github.com/crimson-sun/zeroshot/internal/engine/tokencodec"
	"github.com/crimson-sun/zeroshot/internal/source"
	"github.com/crimson-sun/zeroshot/internal/source/file"
)

var (
	// ErrUnknownLabel matches errors for labels missing from the vocabulary.
	ErrUnknownLabel = engine.ErrUnknownLabel
	// ErrNotConfigured matches errors for encoders that are missing or whose
	// model does not fit the expected tensor contract.
	ErrNotConfigured = encoder.ErrNotConfigured
)

// openModel opens an inference function; replaced in tests.
var openModel = func(path string, opts encoder.ONNXOptions) (encoder.Function, error) {
	fn, err := encoder.OpenONNX(path, opts)
	if err != nil {
		return nil, err
	}
	return fn, nil
}

// Classifier is a zero-shot image classifier. Safe for concurrent use.
type Classifier struct {
	engine *engine.Engine
	image  *encoder.ImageEncoder
	text   *encoder.TextEncoder
	vocab  *tokencodec.Vocabulary
}

// New loads both encoders and the vocabulary. Loading the models is
// expensive: create once, reuse across requests.
func New(opts ...Option) (*Classifier, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	norm, err := preprocess.ParseNormalization(o.normalization)
	if err != nil {
		return nil, fmt.Errorf("zeroshot: %w", err)
	}
	imageOut, err := encoder.ParseOutputRef(o.imageOutput)
	if err != nil {
		return nil, fmt.Errorf("zeroshot: image output: %w", err)
	}
	textOut, err := encoder.ParseOutputRef(o.textOutput)
	if err != nil {
		return nil, fmt.Errorf("zeroshot: text output: %w", err)
	}

	vocab := tokencodec.DefaultVocabulary()
	if o.vocabPath != "" {
		if vocab, err = tokencodec.LoadVocabulary(o.vocabPath); err != nil {
			return nil, fmt.Errorf("zeroshot: %w", err)
		}
	}

	imagePath, textPath := resolvePaths(o)
	onnxOpts := encoder.ONNXOptions{LibraryPath: o.libraryPath, IntraOpThreads: o.threads}

	imageFn, err := openModel(imagePath, onnxOpts)
	if err != nil {
		return nil, fmt.Errorf("zeroshot: image model: %w", err)
	}
	img, err := encoder.NewImageEncoder(imageFn, imageOut)
	if err != nil {
		imageFn.Close()
		return nil, fmt.Errorf("zeroshot: %w", err)
	}

	textFn, err := openModel(textPath, onnxOpts)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("zeroshot: text model: %w", err)
	}
	var textOpts []encoder.PortOption
	if o.parallelism > 1 {
		textOpts = append(textOpts, encoder.Concurrent())
	}
	txt, err := encoder.NewTextEncoder(textFn, textOut, textOpts...)
	if err != nil {
		img.Close()
		textFn.Close()
		return nil, fmt.Errorf("zeroshot: %w", err)
	}

	policy := engine.Strict
	if o.unknownLabels == ScoreUnknownAsZero {
		policy = engine.Degenerate
	}
	eng := engine.New(img, txt,
		preprocess.New(norm),
		tokencodec.New(vocab),
		classifier.New(o.scale),
		engine.WithParallelism(o.parallelism),
		engine.WithUnknownLabels(policy),
	)
	return &Classifier{engine: eng, image: img, text: txt, vocab: vocab}, nil
}

// Labels returns the vocabulary's label texts in sorted order.
func (c *Classifier) Labels() []string {
	return c.vocab.Labels()
}

// Classify scores img against labels. With no labels, every vocabulary label
// is a candidate.
func (c *Classifier) Classify(ctx context.Context, img image.Image, labels ...string) (Result, error) {
	if len(labels) == 0 {
		labels = c.Labels()
	}
	res, err := c.engine.Classify(ctx, img, labels)
	if err != nil {
		return Result{}, err
	}
	return resultFromModel(res), nil
}

// ClassifyReader decodes a JPEG, PNG, GIF, WebP or BMP image from r and
// classifies it.
func (c *Classifier) ClassifyReader(ctx context.Context, r io.Reader, labels ...string) (Result, error) {
	raw, err := source.Decode(r, "reader")
	if err != nil {
		return Result{}, err
	}
	return c.Classify(ctx, raw.Image, labels...)
}

// ClassifyFile decodes the image at path and classifies it.
func (c *Classifier) ClassifyFile(ctx context.Context, path string, labels ...string) (Result, error) {
	raw, err := file.LoadPath(ctx, path)
	if err != nil {
		return Result{}, err
	}
	res, err := c.Classify(ctx, raw.Image, labels...)
	if err != nil {
		return Result{}, err
	}
	res.Source = path
	return res, nil
}

// Close releases model resources (ONNX sessions).
func (c *Classifier) Close() error {
	return errors.Join(c.image.Close(), c.text.Close())
}
