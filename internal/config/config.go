package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/zeroshot/internal/engine"
	"github.com/crimson-sun/zeroshot/internal/engine/encoder"
	"github.com/crimson-sun/zeroshot/internal/engine/preprocess"
)

// Config holds all zeroshot configuration.
type Config struct {
	Engine   EngineConfig
	Source   SourceConfig
	Output   OutputConfig
	LogLevel string
}

// EngineConfig holds model and classification settings.
type EngineConfig struct {
	ImageModelPath string
	TextModelPath  string
	LibraryPath    string // onnxruntime shared library; empty = next to the image model
	ImageOutput    string // output name, or a decimal index
	TextOutput     string
	VocabPath      string // empty = embedded default vocabulary
	Normalization  string // "pixel255" or "unit"
	Scale          float64
	Parallelism    int
	UnknownLabels  string // "strict" or "degenerate"
	Labels         []string
	Threads        int
}

// SourceConfig holds image source settings.
type SourceConfig struct {
	Provider string // "file", "dir" or "url"
	Timeout  time.Duration
	Retries  int
	Token    string // bearer token sent to url sources
}

// OutputConfig holds result destination settings.
type OutputConfig struct {
	Targets    []string // any of "stdout", "file", "webhook"
	File       string
	MaxSize    int64 // file rotation threshold in bytes; 0 disables rotation
	WebhookURL string
	Pretty     bool
	Verbosity  string // "minimal" or "standard"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Engine: EngineConfig{
			ImageModelPath: getenv("ZEROSHOT_IMAGE_MODEL_PATH", "models/clip_image_encoder.onnx"),
			TextModelPath:  getenv("ZEROSHOT_TEXT_MODEL_PATH", "models/clip_text_encoder.onnx"),
			LibraryPath:    os.Getenv("ZEROSHOT_ORT_LIB_PATH"),
			ImageOutput:    getenv("ZEROSHOT_IMAGE_OUTPUT", encoder.DefaultImageOutput),
			TextOutput:     getenv("ZEROSHOT_TEXT_OUTPUT", encoder.DefaultTextOutput),
			VocabPath:      os.Getenv("ZEROSHOT_VOCAB_PATH"),
			Normalization:  getenv("ZEROSHOT_NORMALIZATION", preprocess.Pixel255.Name),
			Scale:          getenvFloat("ZEROSHOT_SCALE", 100),
			Parallelism:    getenvInt("ZEROSHOT_PARALLELISM", 1),
			UnknownLabels:  getenv("ZEROSHOT_UNKNOWN_LABELS", engine.Strict.String()),
			Labels:         getenvList("ZEROSHOT_LABELS"),
			Threads:        getenvInt("ZEROSHOT_THREADS", 4),
		},
		Source: SourceConfig{
			Provider: getenv("ZEROSHOT_SOURCE", "file"),
			Timeout:  getenvDuration("ZEROSHOT_HTTP_TIMEOUT", 30*time.Second),
			Retries:  getenvInt("ZEROSHOT_HTTP_RETRIES", 3),
			Token:    os.Getenv("ZEROSHOT_HTTP_TOKEN"),
		},
		Output: OutputConfig{
			Targets:    getenvListOr("ZEROSHOT_OUTPUT", []string{"stdout"}),
			File:       os.Getenv("ZEROSHOT_OUTPUT_FILE"),
			MaxSize:    int64(getenvInt("ZEROSHOT_OUTPUT_MAX_SIZE", 0)),
			WebhookURL: os.Getenv("ZEROSHOT_WEBHOOK_URL"),
			Pretty:     getenvBool("ZEROSHOT_OUTPUT_PRETTY", false),
			Verbosity:  getenv("ZEROSHOT_VERBOSITY", "standard"),
		},
		LogLevel: getenv("ZEROSHOT_LOG_LEVEL", "info"),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Engine.ImageModelPath == "" {
		errs = append(errs, errors.New("image model path is required"))
	}
	if c.Engine.TextModelPath == "" {
		errs = append(errs, errors.New("text model path is required"))
	}
	if _, err := encoder.ParseOutputRef(c.Engine.ImageOutput); err != nil {
		errs = append(errs, fmt.Errorf("image output: %w", err))
	}
	if _, err := encoder.ParseOutputRef(c.Engine.TextOutput); err != nil {
		errs = append(errs, fmt.Errorf("text output: %w", err))
	}
	if _, err := preprocess.ParseNormalization(c.Engine.Normalization); err != nil {
		errs = append(errs, err)
	}
	if _, err := engine.ParseUnknownLabels(c.Engine.UnknownLabels); err != nil {
		errs = append(errs, err)
	}
	if c.Engine.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale must be positive, got %g", c.Engine.Scale))
	}
	if c.Engine.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be at least 1, got %d", c.Engine.Parallelism))
	}
	if c.Engine.Threads < 1 {
		errs = append(errs, fmt.Errorf("threads must be at least 1, got %d", c.Engine.Threads))
	}

	switch c.Source.Provider {
	case "file", "dir", "url":
	default:
		errs = append(errs, fmt.Errorf("unknown source %q (want file, dir or url)", c.Source.Provider))
	}
	if c.Source.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", c.Source.Retries))
	}

	if len(c.Output.Targets) == 0 {
		errs = append(errs, errors.New("at least one output is required"))
	}
	for _, t := range c.Output.Targets {
		switch t {
		case "stdout":
		case "file":
			if c.Output.File == "" {
				errs = append(errs, errors.New("file output requires ZEROSHOT_OUTPUT_FILE"))
			}
		case "webhook":
			if c.Output.WebhookURL == "" {
				errs = append(errs, errors.New("webhook output requires ZEROSHOT_WEBHOOK_URL"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown output %q (want stdout, file or webhook)", t))
		}
	}
	if c.Output.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("max file size must not be negative, got %d", c.Output.MaxSize))
	}
	switch c.Output.Verbosity {
	case "minimal", "standard":
	default:
		errs = append(errs, fmt.Errorf("unknown verbosity %q (want minimal or standard)", c.Output.Verbosity))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getenvList splits a comma-separated variable, dropping empty items.
func getenvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvListOr(key string, fallback []string) []string {
	if l := getenvList(key); len(l) > 0 {
		return l
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
