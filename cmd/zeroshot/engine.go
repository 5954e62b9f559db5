package main

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/zeroshot/internal/config"
	"github.com/crimson-sun/zeroshot/internal/engine"
	"github.com/crimson-sun/zeroshot/internal/engine/classifier"
	"github.com/crimson-sun/zeroshot/internal/engine/encoder"
	"github.com/crimson-sun/zeroshot/internal/engine/preprocess"
	"github.com/crimson-sun/zeroshot/internal/engine/tokencodec"
)

// stack is a fully wired engine together with the resources it owns.
type stack struct {
	engine *engine.Engine
	image  *encoder.ImageEncoder
	text   *encoder.TextEncoder
	vocab  *tokencodec.Vocabulary
}

func (s *stack) Close() error {
	return errors.Join(s.image.Close(), s.text.Close())
}

func loadVocabulary(path string) (*tokencodec.Vocabulary, error) {
	if path == "" {
		return tokencodec.DefaultVocabulary(), nil
	}
	return tokencodec.LoadVocabulary(path)
}

func onnxOptions(cfg config.EngineConfig) encoder.ONNXOptions {
	return encoder.ONNXOptions{LibraryPath: cfg.LibraryPath, IntraOpThreads: cfg.Threads}
}

func openImageEncoder(cfg config.EngineConfig) (*encoder.ImageEncoder, error) {
	out, err := encoder.ParseOutputRef(cfg.ImageOutput)
	if err != nil {
		return nil, err
	}
	fn, err := encoder.OpenONNX(cfg.ImageModelPath, onnxOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("image model: %w", err)
	}
	enc, err := encoder.NewImageEncoder(fn, out)
	if err != nil {
		fn.Close()
		return nil, err
	}
	return enc, nil
}

func openTextEncoder(cfg config.EngineConfig) (*encoder.TextEncoder, error) {
	out, err := encoder.ParseOutputRef(cfg.TextOutput)
	if err != nil {
		return nil, err
	}
	fn, err := encoder.OpenONNX(cfg.TextModelPath, onnxOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("text model: %w", err)
	}
	// ONNX Runtime sessions accept concurrent Run calls, so parallel label
	// encoding can skip the port lock.
	var opts []encoder.PortOption
	if cfg.Parallelism > 1 {
		opts = append(opts, encoder.Concurrent())
	}
	enc, err := encoder.NewTextEncoder(fn, out, opts...)
	if err != nil {
		fn.Close()
		return nil, err
	}
	return enc, nil
}

// buildStack wires encoders, preprocessing, vocabulary and ranking from a
// validated config.
func buildStack(cfg config.EngineConfig) (*stack, error) {
	norm, err := preprocess.ParseNormalization(cfg.Normalization)
	if err != nil {
		return nil, err
	}
	policy, err := engine.ParseUnknownLabels(cfg.UnknownLabels)
	if err != nil {
		return nil, err
	}
	vocab, err := loadVocabulary(cfg.VocabPath)
	if err != nil {
		return nil, err
	}

	img, err := openImageEncoder(cfg)
	if err != nil {
		return nil, err
	}
	txt, err := openTextEncoder(cfg)
	if err != nil {
		img.Close()
		return nil, err
	}

	eng := engine.New(img, txt,
		preprocess.New(norm),
		tokencodec.New(vocab),
		classifier.New(cfg.Scale),
		engine.WithParallelism(cfg.Parallelism),
		engine.WithUnknownLabels(policy),
	)
	return &stack{engine: eng, image: img, text: txt, vocab: vocab}, nil
}
