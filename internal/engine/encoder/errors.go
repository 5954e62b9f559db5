package encoder

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is matched by every *ConfigurationError.
var ErrNotConfigured = errors.New("encoder not configured")

// ConfigurationError reports an encoder that was never loaded, or whose model
// metadata cannot satisfy the declared contract.
type ConfigurationError struct {
	Encoder string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("encoder %s: %s", e.Encoder, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrNotConfigured }

// ShapeMismatchError reports a tensor that does not match its declared
// contract.
type ShapeMismatchError struct {
	Encoder      string
	Tensor       string
	ExpectedType DataType
	Expected     Shape
	ActualType   DataType
	Actual       Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("encoder %s: tensor %q: expected %s%s, got %s%s",
		e.Encoder, e.Tensor, e.ExpectedType, e.Expected, e.ActualType, e.Actual)
}
