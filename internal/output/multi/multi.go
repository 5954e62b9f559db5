package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/zeroshot/internal/model"
	"github.com/crimson-sun/zeroshot/internal/output"
)

// Multi fans out results to multiple output.Output implementations.
// Each Write delivers the result to every wrapped output in order; one
// failing output does not stop delivery to the rest.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers the result to every wrapped output and joins their errors.
func (m *Multi) Write(ctx context.Context, result model.ClassificationResult) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
