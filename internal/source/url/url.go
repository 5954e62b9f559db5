package url

import (
	"bytes"
	"context"
	"fmt"
	neturl "net/url"

	"github.com/crimson-sun/zeroshot/internal/model"
	"github.com/crimson-sun/zeroshot/internal/source"
	"github.com/crimson-sun/zeroshot/internal/source/httpclient"
)

func init() {
	source.Register("url", func() source.Source {
		return &Source{}
	})
}

// Source downloads images over HTTP(S).
type Source struct{}

func (s *Source) Stream(ctx context.Context, cfg source.Config) (<-chan model.RawImage, error) {
	load, err := loader(cfg)
	if err != nil {
		return nil, err
	}
	return source.StreamTargets(ctx, "url", cfg.Targets, load), nil
}

func (s *Source) Load(ctx context.Context, cfg source.Config) ([]model.RawImage, error) {
	load, err := loader(cfg)
	if err != nil {
		return nil, err
	}
	return source.LoadTargets(ctx, cfg.Targets, load)
}

func loader(cfg source.Config) (source.LoadFunc, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("url source: no URLs given")
	}
	for _, t := range cfg.Targets {
		u, err := neturl.Parse(t)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("url source: invalid URL %q", t)
		}
	}

	client := httpclient.New(
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithRetries(cfg.Retries),
		httpclient.WithToken(cfg.Token),
	)
	return func(ctx context.Context, target string) (model.RawImage, error) {
		body, _, err := client.GetBytes(ctx, target)
		if err != nil {
			return model.RawImage{}, fmt.Errorf("url source: %s: %w", target, err)
		}
		return source.Decode(bytes.NewReader(body), target)
	}, nil
}
