package encoder

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType is the element type of a tensor.
type DataType int

const (
	Unsupported DataType = iota
	Float32
	Int64
)

func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	default:
		return "unsupported"
	}
}

// Size returns the byte width of one element.
func (d DataType) Size() int {
	switch d {
	case Float32:
		return 4
	case Int64:
		return 8
	default:
		return 0
	}
}

// Shape lists tensor dimensions. Negative entries are dynamic in model
// metadata and never appear in concrete tensors.
type Shape []int64

// NumElements multiplies the dimensions, counting dynamic ones as 1.
func (s Shape) NumElements() int64 {
	n := int64(1)
	for _, d := range s {
		if d > 0 {
			n *= d
		} else if d == 0 {
			return 0
		}
	}
	return n
}

// Equal reports exact dimension equality.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Accepts reports whether a concrete shape satisfies s, where dynamic
// dimensions in s match any size.
func (s Shape) Accepts(concrete Shape) bool {
	if len(s) != len(concrete) {
		return false
	}
	for i := range s {
		if s[i] >= 0 && s[i] != concrete[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		if d < 0 {
			parts[i] = "?"
		} else {
			parts[i] = strconv.FormatInt(d, 10)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// TensorInfo is declared metadata for one model input or output.
type TensorInfo struct {
	Name     string
	DataType DataType
	Shape    Shape
}

// ByteSize is the payload size implied by the shape, dynamic dims counted as 1.
func (i TensorInfo) ByteSize() int64 {
	return i.Shape.NumElements() * int64(i.DataType.Size())
}

func (i TensorInfo) String() string {
	return fmt.Sprintf("%s %s%s", i.Name, i.DataType, i.Shape)
}

// Tensor is a dense tensor passed to or returned from a Function. Exactly one
// of Float32s or Int64s is populated, matching DataType.
type Tensor struct {
	Name     string
	DataType DataType
	Shape    Shape
	Float32s []float32
	Int64s   []int64
}

// NewFloat32Tensor wraps data without copying.
func NewFloat32Tensor(name string, shape Shape, data []float32) Tensor {
	return Tensor{Name: name, DataType: Float32, Shape: shape, Float32s: data}
}

// NewInt64Tensor wraps data without copying.
func NewInt64Tensor(name string, shape Shape, data []int64) Tensor {
	return Tensor{Name: name, DataType: Int64, Shape: shape, Int64s: data}
}

// Len returns the number of populated elements.
func (t Tensor) Len() int {
	switch t.DataType {
	case Float32:
		return len(t.Float32s)
	case Int64:
		return len(t.Int64s)
	default:
		return 0
	}
}

// ByteSize returns the payload size in bytes.
func (t Tensor) ByteSize() int {
	return t.Len() * t.DataType.Size()
}
