package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/zeroshot/internal/engine/classifier"
	"github.com/crimson-sun/zeroshot/internal/engine/encoder"
	"github.com/crimson-sun/zeroshot/internal/engine/preprocess"
	"github.com/crimson-sun/zeroshot/internal/engine/tokencodec"
	"github.com/crimson-sun/zeroshot/internal/engine/vecmath"
	"github.com/crimson-sun/zeroshot/internal/model"
)

// ErrNoLabels is returned when Classify is called with an empty label set.
var ErrNoLabels = errors.New("engine: no candidate labels")

// ErrUnknownLabel is matched by every *UnknownLabelError.
var ErrUnknownLabel = errors.New("engine: unknown label")

// UnknownLabelError reports a candidate label missing from the vocabulary.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("engine: label %q is not in the vocabulary", e.Label)
}

func (e *UnknownLabelError) Unwrap() error { return ErrUnknownLabel }

// UnknownLabels selects how labels missing from the vocabulary are handled.
type UnknownLabels int

const (
	// Strict fails the request with *UnknownLabelError.
	Strict UnknownLabels = iota
	// Degenerate scores the label with a zero embedding (raw score exactly 0)
	// and marks it Unknown in the result. The text encoder is not invoked.
	Degenerate
)

func (u UnknownLabels) String() string {
	switch u {
	case Strict:
		return "strict"
	case Degenerate:
		return "degenerate"
	default:
		return fmt.Sprintf("UnknownLabels(%d)", int(u))
	}
}

// ParseUnknownLabels resolves a policy by name. Empty selects Strict.
func ParseUnknownLabels(s string) (UnknownLabels, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "degenerate":
		return Degenerate, nil
	default:
		return Strict, fmt.Errorf("engine: unknown label policy %q (want strict or degenerate)", s)
	}
}

// Engine orchestrates the preprocess → encode → normalize → score → rank
// pipeline for one image against a set of candidate labels.
type Engine struct {
	image       *encoder.ImageEncoder
	text        *encoder.TextEncoder
	pre         *preprocess.Preprocessor
	codec       tokencodec.Lookuper
	ranker      *classifier.Ranker
	parallelism int
	unknown     UnknownLabels
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallelism encodes up to n labels concurrently. Values below 2 encode
// sequentially.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.parallelism = n
	}
}

// WithUnknownLabels sets the unknown-label policy. The default is Strict.
func WithUnknownLabels(p UnknownLabels) Option {
	return func(e *Engine) { e.unknown = p }
}

// New creates an Engine with the provided components. A nil preprocessor,
// codec or ranker falls back to the pixel255 convention, the embedded default
// vocabulary and classifier.DefaultScale respectively. Encoders are not
// defaulted: a nil encoder makes Classify fail with a configuration error.
func New(img *encoder.ImageEncoder, txt *encoder.TextEncoder, pre *preprocess.Preprocessor, codec tokencodec.Lookuper, ranker *classifier.Ranker, opts ...Option) *Engine {
	if pre == nil {
		pre = preprocess.New(preprocess.Pixel255)
	}
	if codec == nil {
		codec = tokencodec.New(tokencodec.DefaultVocabulary())
	}
	if ranker == nil {
		ranker = classifier.New(classifier.DefaultScale)
	}
	e := &Engine{
		image:       img,
		text:        txt,
		pre:         pre,
		codec:       codec,
		ranker:      ranker,
		parallelism: 1,
		unknown:     Strict,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Classify scores img against every label and returns the candidates in input
// order with their raw similarity and softmax probability. Ranking runs only
// once every label has been scored; any failure aborts the whole request.
func (e *Engine) Classify(ctx context.Context, img image.Image, labels []string) (model.ClassificationResult, error) {
	start := time.Now()
	if len(labels) == 0 {
		return model.ClassificationResult{}, ErrNoLabels
	}
	if e.image == nil {
		return model.ClassificationResult{}, &encoder.ConfigurationError{Encoder: "image", Reason: "not loaded"}
	}
	if e.text == nil {
		return model.ClassificationResult{}, &encoder.ConfigurationError{Encoder: "text", Reason: "not loaded"}
	}

	candidates, err := e.resolve(labels)
	if err != nil {
		return model.ClassificationResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.ClassificationResult{}, err
	}

	imageEmb, err := e.EmbedImage(img)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	scores, err := e.score(ctx, imageEmb, candidates)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	ranking := e.ranker.Rank(scores)
	for i := range candidates {
		candidates[i].Score = scores[i]
		candidates[i].Probability = ranking.Probabilities[i]
	}

	res := model.ClassificationResult{
		ID:      uuid.NewString(),
		Labels:  candidates,
		Best:    ranking.Best,
		Elapsed: time.Since(start),
	}
	slog.Debug("classified",
		"request_id", res.ID,
		"labels", len(labels),
		"best", res.BestLabel().Text,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// resolve looks up every label before any inference runs, so a Strict
// failure costs nothing.
func (e *Engine) resolve(labels []string) ([]model.CandidateLabel, error) {
	candidates := make([]model.CandidateLabel, len(labels))
	for i, text := range labels {
		seq, ok := e.codec.LookupKnown(text)
		if !ok {
			if e.unknown == Strict {
				return nil, &UnknownLabelError{Label: text}
			}
			seq = model.TokenSequence{}
			slog.Warn("scoring unknown label as zero", "label", text)
		}
		candidates[i] = model.CandidateLabel{Text: text, Tokens: seq, Unknown: !ok}
	}
	return candidates, nil
}

// EmbedImage preprocesses and encodes img, returning a unit-length embedding.
func (e *Engine) EmbedImage(img image.Image) (model.Embedding, error) {
	tensor, err := e.pre.Process(img)
	if err != nil {
		return nil, err
	}
	emb, err := e.image.Encode(tensor)
	if err != nil {
		return nil, fmt.Errorf("engine: image embedding: %w", err)
	}
	return vecmath.Normalize(emb), nil
}

// EmbedTokens encodes seq, returning a unit-length embedding. The degenerate
// all-pad sequence yields a zero embedding without invoking the encoder.
func (e *Engine) EmbedTokens(seq model.TokenSequence) (model.Embedding, error) {
	if seq.IsDegenerate() {
		return make(model.Embedding, model.EmbeddingDim), nil
	}
	emb, err := e.text.Encode(seq)
	if err != nil {
		return nil, err
	}
	return vecmath.Normalize(emb), nil
}

// EmbedLabel looks up text and encodes it. Unknown text follows the engine's
// unknown-label policy.
func (e *Engine) EmbedLabel(text string) (model.Embedding, error) {
	c, err := e.resolve([]string{text})
	if err != nil {
		return nil, err
	}
	return e.EmbedTokens(c[0].Tokens)
}

func (e *Engine) score(ctx context.Context, imageEmb model.Embedding, candidates []model.CandidateLabel) ([]float32, error) {
	scores := make([]float32, len(candidates))
	scoreOne := func(i int) error {
		emb, err := e.EmbedTokens(candidates[i].Tokens)
		if err != nil {
			return fmt.Errorf("engine: label %q: %w", candidates[i].Text, err)
		}
		scores[i] = vecmath.Dot(imageEmb, emb)
		return nil
	}

	if e.parallelism <= 1 || len(candidates) == 1 {
		for i := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := scoreOne(i); err != nil {
				return nil, err
			}
		}
		return scores, nil
	}

	errs := make([]error, len(candidates))
	sem := make(chan struct{}, e.parallelism)
	var wg sync.WaitGroup
schedule:
	for i := range candidates {
		select {
		case <-ctx.Done():
			break schedule
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = scoreOne(i)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return scores, nil
}
