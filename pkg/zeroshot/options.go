package zeroshot

import (
	"path/filepath"

	"github.com/crimson-sun/zeroshot/internal/engine/classifier"
	"github.com/crimson-sun/zeroshot/internal/engine/encoder"
)

// UnknownLabelPolicy selects how labels missing from the vocabulary are
// handled.
type UnknownLabelPolicy int

const (
	// FailOnUnknown rejects the request with an error matching ErrUnknownLabel.
	FailOnUnknown UnknownLabelPolicy = iota
	// ScoreUnknownAsZero keeps the request going: the label gets a raw score
	// of exactly 0 and is flagged Unknown in the result.
	ScoreUnknownAsZero
)

type options struct {
	modelDir       string
	imageModelPath string
	textModelPath  string
	libraryPath    string
	imageOutput    string
	textOutput     string
	vocabPath      string
	normalization  string
	scale          float64
	parallelism    int
	threads        int
	unknownLabels  UnknownLabelPolicy
}

// Option configures a Classifier.
type Option func(*options)

// WithModelDir sets the directory containing the model files.
// Expects: clip_image_encoder.onnx, clip_text_encoder.onnx.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithModelPaths sets explicit paths for the image and text encoder models.
func WithModelPaths(image, text string) Option {
	return func(o *options) {
		o.imageModelPath = image
		o.textModelPath = text
	}
}

// WithLibraryPath sets the onnxruntime shared library path. Default: next to
// the image model.
func WithLibraryPath(path string) Option {
	return func(o *options) {
		o.libraryPath = path
	}
}

// WithOutputs selects the embedding output of each model by name or decimal
// index. Default: "image_embeds" and "text_embeds".
func WithOutputs(image, text string) Option {
	return func(o *options) {
		o.imageOutput = image
		o.textOutput = text
	}
}

// WithVocabulary loads label token sequences from a YAML file instead of the
// built-in vocabulary.
func WithVocabulary(path string) Option {
	return func(o *options) {
		o.vocabPath = path
	}
}

// WithNormalization selects the pixel normalization convention: "pixel255"
// (default) or "unit".
func WithNormalization(name string) Option {
	return func(o *options) {
		o.normalization = name
	}
}

// WithScale sets the softmax logit scale. Default: 100.
func WithScale(s float64) Option {
	return func(o *options) {
		o.scale = s
	}
}

// WithParallelism encodes up to n labels concurrently. Default: 1.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithThreads sets the intra-op thread count of each ONNX session. Default: 4.
func WithThreads(n int) Option {
	return func(o *options) {
		o.threads = n
	}
}

// WithUnknownLabels sets the unknown-label policy. Default: FailOnUnknown.
func WithUnknownLabels(p UnknownLabelPolicy) Option {
	return func(o *options) {
		o.unknownLabels = p
	}
}

func defaultOptions() options {
	return options{
		imageOutput: encoder.DefaultImageOutput,
		textOutput:  encoder.DefaultTextOutput,
		scale:       classifier.DefaultScale,
		parallelism: 1,
		threads:     4,
	}
}

// resolvePaths determines the encoder model paths. Explicit paths take
// precedence over modelDir.
func resolvePaths(o options) (image, text string) {
	if o.imageModelPath != "" {
		return o.imageModelPath, o.textModelPath
	}
	dir := o.modelDir
	if dir == "" {
		dir = "models"
	}
	return filepath.Join(dir, "clip_image_encoder.onnx"),
		filepath.Join(dir, "clip_text_encoder.onnx")
}
