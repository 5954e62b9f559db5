package encoder

import (
	"fmt"

	"github.com/crimson-sun/zeroshot/internal/model"
)

// Declared input names. Models exported with other names are bound by position.
const (
	PixelValuesInput   = "pixel_values"
	InputIDsInput      = "input_ids"
	AttentionMaskInput = "attention_mask"
)

// Default output names for split CLIP exports.
const (
	DefaultImageOutput = "image_embeds"
	DefaultTextOutput  = "text_embeds"
)

var (
	imageShape = Shape{1, model.ImageSize, model.ImageSize, 3}
	textShape  = Shape{1, model.ContextLength}
)

// ImageContract is the image encoder contract: one float32 [1,224,224,3] HWC
// RGB input and a 512-wide embedding at out.
func ImageContract(out OutputRef) Contract {
	return Contract{
		Inputs: []TensorInfo{{Name: PixelValuesInput, DataType: Float32, Shape: imageShape}},
		Output: out,
		Dim:    model.EmbeddingDim,
	}
}

// TextContract is the text encoder contract: int64 [1,77] token ids and
// attention mask, and a 512-wide embedding at out.
func TextContract(out OutputRef) Contract {
	return Contract{
		Inputs: []TensorInfo{
			{Name: InputIDsInput, DataType: Int64, Shape: textShape},
			{Name: AttentionMaskInput, DataType: Int64, Shape: textShape},
		},
		Output: out,
		Dim:    model.EmbeddingDim,
	}
}

// ImageEncoder embeds preprocessed image tensors.
type ImageEncoder struct {
	port *Port
}

// NewImageEncoder binds fn to ImageContract(out).
func NewImageEncoder(fn Function, out OutputRef, opts ...PortOption) (*ImageEncoder, error) {
	p, err := NewPort("image", fn, ImageContract(out), opts...)
	if err != nil {
		return nil, err
	}
	return &ImageEncoder{port: p}, nil
}

// Encode returns the raw (unnormalized) image embedding.
func (e *ImageEncoder) Encode(t model.ImageTensor) (model.Embedding, error) {
	if e == nil {
		return nil, &ConfigurationError{Encoder: "image", Reason: "not loaded"}
	}
	return e.port.Embed(NewFloat32Tensor(PixelValuesInput, imageShape, t))
}

// Port exposes the bound port for diagnostics.
func (e *ImageEncoder) Port() *Port { return e.port }

// Close releases the underlying function.
func (e *ImageEncoder) Close() error {
	if e == nil {
		return nil
	}
	return e.port.Close()
}

// TextEncoder embeds token sequences.
type TextEncoder struct {
	port *Port
}

// NewTextEncoder binds fn to TextContract(out).
func NewTextEncoder(fn Function, out OutputRef, opts ...PortOption) (*TextEncoder, error) {
	p, err := NewPort("text", fn, TextContract(out), opts...)
	if err != nil {
		return nil, err
	}
	return &TextEncoder{port: p}, nil
}

// Encode returns the raw (unnormalized) text embedding. The attention mask is
// 1 for every non-pad id.
func (e *TextEncoder) Encode(seq model.TokenSequence) (model.Embedding, error) {
	if e == nil {
		return nil, &ConfigurationError{Encoder: "text", Reason: "not loaded"}
	}
	mask := seq.AttentionMask()
	ids := make([]int64, model.ContextLength)
	copy(ids, seq[:])
	return e.port.Embed(
		NewInt64Tensor(InputIDsInput, textShape, ids),
		NewInt64Tensor(AttentionMaskInput, textShape, mask[:]),
	)
}

// Port exposes the bound port for diagnostics.
func (e *TextEncoder) Port() *Port { return e.port }

// Close releases the underlying function.
func (e *TextEncoder) Close() error {
	if e == nil {
		return nil
	}
	return e.port.Close()
}

// Discover lists the outputs of fn whose payload is exactly dim float32
// values. It is a diagnostic for choosing an OutputRef, never a selection
// mechanism.
func Discover(fn Function, dim int) []int {
	var found []int
	want := int64(dim) * int64(Float32.Size())
	for i, o := range fn.Outputs() {
		if o.DataType == Float32 && o.ByteSize() == want {
			found = append(found, i)
		}
	}
	return found
}

// Describe renders one line per output with its index, shape and byte size.
func Describe(fn Function) []string {
	outs := fn.Outputs()
	lines := make([]string, len(outs))
	for i, o := range outs {
		lines[i] = fmt.Sprintf("[%d] %s %s%s %d bytes", i, o.Name, o.DataType, o.Shape, o.ByteSize())
	}
	return lines
}
