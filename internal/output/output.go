package output

import (
	"context"

	"github.com/crimson-sun/zeroshot/internal/model"
)

// Output defines the interface for classification result destinations.
type Output interface {
	Write(ctx context.Context, result model.ClassificationResult) error
	Close() error
}
