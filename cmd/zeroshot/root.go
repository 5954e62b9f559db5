package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/zeroshot/internal/config"
	"github.com/crimson-sun/zeroshot/internal/logging"
)

var (
	modelDir      string
	imageModel    string
	textModel     string
	libraryPath   string
	vocabPath     string
	normalization string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:          "zeroshot",
	Short:        "Zero-shot image classification with CLIP encoders",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&modelDir, "models", "", "directory containing clip_image_encoder.onnx and clip_text_encoder.onnx")
	pf.StringVar(&imageModel, "image-model", "", "image encoder model path (overrides --models)")
	pf.StringVar(&textModel, "text-model", "", "text encoder model path (overrides --models)")
	pf.StringVar(&libraryPath, "ort-lib", "", "onnxruntime shared library path")
	pf.StringVar(&vocabPath, "vocab", "", "label vocabulary YAML file")
	pf.StringVar(&normalization, "normalization", "", "pixel normalization (pixel255, unit)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(calibrateCmd)
}

// loadConfig reads the environment, applies persistent flag overrides,
// validates the result and installs the logger.
func loadConfig() (config.Config, error) {
	cfg := config.Load()

	if modelDir != "" {
		cfg.Engine.ImageModelPath = filepath.Join(modelDir, "clip_image_encoder.onnx")
		cfg.Engine.TextModelPath = filepath.Join(modelDir, "clip_text_encoder.onnx")
	}
	if imageModel != "" {
		cfg.Engine.ImageModelPath = imageModel
	}
	if textModel != "" {
		cfg.Engine.TextModelPath = textModel
	}
	if libraryPath != "" {
		cfg.Engine.LibraryPath = libraryPath
	}
	if vocabPath != "" {
		cfg.Engine.VocabPath = vocabPath
	}
	if normalization != "" {
		cfg.Engine.Normalization = normalization
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	applyClassifyFlags(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	logging.Init(writesJSONToStdout(cfg.Output), logging.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func writesJSONToStdout(o config.OutputConfig) bool {
	if o.Pretty {
		return false
	}
	for _, t := range o.Targets {
		if t == "stdout" {
			return true
		}
	}
	return false
}

