package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/zeroshot/internal/engine/encoder"
	"github.com/crimson-sun/zeroshot/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show model inputs and outputs and check them against the encoder contracts",
	Args:  cobra.NoArgs,
	RunE:  runInspect,
}

func runInspect(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := onnxOptions(cfg.Engine)

	checks := []struct {
		kind   string
		path   string
		output string
		bind   func(encoder.Function, encoder.OutputRef) error
	}{
		{"image", cfg.Engine.ImageModelPath, cfg.Engine.ImageOutput, func(fn encoder.Function, out encoder.OutputRef) error {
			_, err := encoder.NewImageEncoder(fn, out)
			return err
		}},
		{"text", cfg.Engine.TextModelPath, cfg.Engine.TextOutput, func(fn encoder.Function, out encoder.OutputRef) error {
			_, err := encoder.NewTextEncoder(fn, out)
			return err
		}},
	}

	for _, c := range checks {
		fn, err := encoder.OpenONNX(c.path, opts)
		if err != nil {
			return err
		}
		out, err := encoder.ParseOutputRef(c.output)
		if err != nil {
			fn.Close()
			return err
		}
		fmt.Print(renderInspection(c.kind, c.path, fn, out, c.bind(fn, out)))
		fn.Close()
	}
	return nil
}

func renderInspection(kind, path string, fn encoder.Function, out encoder.OutputRef, bindErr error) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(kind+" encoder") + "  " + dimStyle.Render(path) + "\n")

	b.WriteString("  inputs:\n")
	for i, in := range fn.Inputs() {
		fmt.Fprintf(&b, "    [%d] %s\n", i, in)
	}
	b.WriteString("  outputs:\n")
	for _, line := range encoder.Describe(fn) {
		b.WriteString("    " + line + "\n")
	}

	candidates := encoder.Discover(fn, model.EmbeddingDim)
	idx := make([]string, len(candidates))
	for i, c := range candidates {
		idx[i] = fmt.Sprintf("#%d", c)
	}
	fmt.Fprintf(&b, "  %d-float outputs: %s\n", model.EmbeddingDim, dimStyle.Render(strings.Join(idx, ", ")))

	if bindErr != nil {
		b.WriteString("  " + errStyle.Render("output "+out.String()+": "+bindErr.Error()) + "\n")
	} else {
		b.WriteString("  " + okStyle.Render("output "+out.String()+": ok") + "\n")
	}
	return b.String()
}
