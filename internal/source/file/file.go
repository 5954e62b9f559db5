package file

import (
	"context"
	"fmt"
	"os"

	"github.com/crimson-sun/zeroshot/internal/model"
	"github.com/crimson-sun/zeroshot/internal/source"
)

func init() {
	source.Register("file", func() source.Source {
		return &Source{}
	})
}

// Source reads images from local file paths.
type Source struct{}

func (s *Source) Stream(ctx context.Context, cfg source.Config) (<-chan model.RawImage, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("file source: no paths given")
	}
	return source.StreamTargets(ctx, "file", cfg.Targets, LoadPath), nil
}

func (s *Source) Load(ctx context.Context, cfg source.Config) ([]model.RawImage, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("file source: no paths given")
	}
	return source.LoadTargets(ctx, cfg.Targets, LoadPath)
}

// LoadPath opens and decodes one image file.
func LoadPath(_ context.Context, path string) (model.RawImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.RawImage{}, fmt.Errorf("file source: %w", err)
	}
	defer f.Close()
	return source.Decode(f, path)
}
