package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/zeroshot/internal/config"
	"github.com/crimson-sun/zeroshot/internal/output"
	"github.com/crimson-sun/zeroshot/internal/output/async"
	"github.com/crimson-sun/zeroshot/internal/output/file"
	"github.com/crimson-sun/zeroshot/internal/output/multi"
	"github.com/crimson-sun/zeroshot/internal/output/stdout"
	"github.com/crimson-sun/zeroshot/internal/output/webhook"
	"github.com/crimson-sun/zeroshot/internal/pipeline"
	"github.com/crimson-sun/zeroshot/internal/source"

	// Register source implementations.
	_ "github.com/crimson-sun/zeroshot/internal/source/dir"
	_ "github.com/crimson-sun/zeroshot/internal/source/file"
	_ "github.com/crimson-sun/zeroshot/internal/source/url"
)

var (
	classifyLabels      []string
	classifySource      string
	classifyOutputs     []string
	classifyOutputFile  string
	classifyPretty      bool
	classifyVerbosity   string
	classifyParallelism int
	classifyUnknown     string
	classifyFailFast    bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify TARGET...",
	Short: "Classify images against a set of text labels",
	Long: `Classify images read from files, directories or URLs against a set of
candidate labels. Each label must be present in the vocabulary. With no
--label flags the ZEROSHOT_LABELS list is used, and failing that every
vocabulary label.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	f := classifyCmd.Flags()
	f.StringArrayVarP(&classifyLabels, "label", "l", nil, "candidate label (repeatable)")
	f.StringVar(&classifySource, "source", "", "image source (file, dir, url)")
	f.StringSliceVar(&classifyOutputs, "output", nil, "result outputs (stdout, file, webhook)")
	f.StringVar(&classifyOutputFile, "output-file", "", "NDJSON file for the file output")
	f.BoolVar(&classifyPretty, "pretty", false, "render stdout results as a ranked table")
	f.StringVar(&classifyVerbosity, "verbosity", "", "result detail (minimal, standard)")
	f.IntVar(&classifyParallelism, "parallelism", 0, "labels encoded concurrently")
	f.StringVar(&classifyUnknown, "unknown-labels", "", "unknown label policy (strict, degenerate)")
	f.BoolVar(&classifyFailFast, "fail-fast", false, "stop at the first image that cannot be read")
}

// applyClassifyFlags overlays classify flags that were set on cfg. Flags of
// other commands keep their zero values, so this is a no-op for them.
func applyClassifyFlags(cfg *config.Config) {
	if len(classifyLabels) > 0 {
		cfg.Engine.Labels = classifyLabels
	}
	if classifySource != "" {
		cfg.Source.Provider = classifySource
	}
	if len(classifyOutputs) > 0 {
		cfg.Output.Targets = classifyOutputs
	}
	if classifyOutputFile != "" {
		cfg.Output.File = classifyOutputFile
	}
	if classifyPretty {
		cfg.Output.Pretty = true
	}
	if classifyVerbosity != "" {
		cfg.Output.Verbosity = classifyVerbosity
	}
	if classifyParallelism > 0 {
		cfg.Engine.Parallelism = classifyParallelism
	}
	if classifyUnknown != "" {
		cfg.Engine.UnknownLabels = classifyUnknown
	}
}

func runClassify(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := buildStack(cfg.Engine)
	if err != nil {
		return err
	}
	defer st.Close()

	labels := cfg.Engine.Labels
	if len(labels) == 0 {
		labels = st.vocab.Labels()
	}

	out, err := buildOutput(cfg.Output)
	if err != nil {
		return err
	}

	ctor, err := source.Get(cfg.Source.Provider)
	if err != nil {
		out.Close()
		return err
	}

	p := pipeline.New(ctor(), st.engine, out, labels)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
		cancel()
	}()

	srcCfg := source.Config{
		Provider: cfg.Source.Provider,
		Targets:  args,
		Timeout:  cfg.Source.Timeout,
		Retries:  cfg.Source.Retries,
		Token:    cfg.Source.Token,
	}

	if classifyFailFast {
		err = p.Run(ctx, srcCfg)
	} else {
		err = p.Stream(ctx, srcCfg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildOutput creates every configured output. The webhook is wrapped in an
// async writer so slow deliveries do not stall classification.
func buildOutput(cfg config.OutputConfig) (output.Output, error) {
	v, err := output.ParseVerbosity(cfg.Verbosity)
	if err != nil {
		return nil, err
	}

	var outs []output.Output
	for _, target := range cfg.Targets {
		switch target {
		case "stdout":
			outs = append(outs, stdout.New(v, cfg.Pretty))
		case "file":
			f, err := file.New(cfg.File, v, file.WithMaxSize(cfg.MaxSize))
			if err != nil {
				multi.New(outs...).Close()
				return nil, err
			}
			outs = append(outs, f)
		case "webhook":
			wh := webhook.New(cfg.WebhookURL, webhook.WithVerbosity(v))
			outs = append(outs, async.New(wh, async.WithDrainTimeout(10*time.Second)))
		default:
			multi.New(outs...).Close()
			return nil, fmt.Errorf("unknown output %q", target)
		}
	}

	if len(outs) == 1 {
		return outs[0], nil
	}
	return multi.New(outs...), nil
}
