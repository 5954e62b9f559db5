package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/crimson-sun/zeroshot/internal/model"
	"github.com/crimson-sun/zeroshot/internal/output"
)

var (
	sourceStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	bestStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	labelStyle   = lipgloss.NewStyle()
	unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Output writes classification results to stdout, either as NDJSON or as a
// human-readable ranked table.
type Output struct {
	mu        sync.Mutex
	w         io.Writer
	enc       *json.Encoder
	verbosity output.Verbosity
	pretty    bool
}

// New creates a stdout Output. With pretty set, results are rendered as a
// ranked table instead of NDJSON.
func New(verbosity output.Verbosity, pretty bool) *Output {
	return NewWriter(os.Stdout, verbosity, pretty)
}

// NewWriter is New writing to w.
func NewWriter(w io.Writer, verbosity output.Verbosity, pretty bool) *Output {
	return &Output{w: w, enc: json.NewEncoder(w), verbosity: verbosity, pretty: pretty}
}

func (o *Output) Write(_ context.Context, result model.ClassificationResult) error {
	formatted := output.FormatResult(result, o.verbosity)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pretty {
		if _, err := io.WriteString(o.w, Render(formatted)); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
		return nil
	}
	if err := o.enc.Encode(formatted); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

// Render formats a result as a ranked table: one row per candidate with its
// probability as a percentage and its raw similarity score.
func Render(r model.ClassificationResult) string {
	var b strings.Builder

	header := r.Source
	if header == "" {
		header = r.ID
	}
	b.WriteString(sourceStyle.Render(header))
	b.WriteByte('\n')

	width := 0
	for _, l := range r.Labels {
		width = max(width, lipgloss.Width(l.Text))
	}

	best := r.BestLabel()
	for _, l := range r.Ranked() {
		marker, style := "  ", labelStyle
		if l.Text == best.Text && l.Probability == best.Probability {
			marker, style = "▸ ", bestStyle
		}
		row := fmt.Sprintf("%s%s  %7.2f%%  score %.4f",
			marker,
			style.Width(width).Render(l.Text),
			l.Probability*100,
			l.Score,
		)
		b.WriteString(row)
		if l.Unknown {
			b.WriteString("  " + unknownStyle.Render("(unknown)"))
		}
		b.WriteByte('\n')
	}

	if r.Elapsed > 0 {
		b.WriteString(hintStyle.Render(fmt.Sprintf("%d ms", r.Elapsed.Milliseconds())))
		b.WriteByte('\n')
	}
	return b.String()
}
