package dir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/crimson-sun/zeroshot/internal/model"
	"github.com/crimson-sun/zeroshot/internal/source"
	"github.com/crimson-sun/zeroshot/internal/source/file"
)

func init() {
	source.Register("dir", func() source.Source {
		return &Source{}
	})
}

// Source reads every image file directly inside the target directories.
// Files are visited in lexical order; subdirectories are not descended.
type Source struct{}

func (s *Source) Stream(ctx context.Context, cfg source.Config) (<-chan model.RawImage, error) {
	paths, err := List(cfg.Targets)
	if err != nil {
		return nil, err
	}
	return source.StreamTargets(ctx, "dir", paths, file.LoadPath), nil
}

func (s *Source) Load(ctx context.Context, cfg source.Config) ([]model.RawImage, error) {
	paths, err := List(cfg.Targets)
	if err != nil {
		return nil, err
	}
	return source.LoadTargets(ctx, paths, file.LoadPath)
}

// List expands directories into their image files.
func List(dirs []string) ([]string, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("dir source: no directories given")
	}
	var paths []string
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			return nil, fmt.Errorf("dir source: %w", err)
		}
		var found []string
		for _, e := range entries {
			if e.Type().IsRegular() && source.IsImageFile(e.Name()) {
				found = append(found, filepath.Join(d, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("dir source: no images in %v", dirs)
	}
	return paths, nil
}
