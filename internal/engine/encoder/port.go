// Package encoder binds opaque inference functions to declared tensor
// contracts and extracts embeddings from their outputs.
package encoder

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/crimson-sun/zeroshot/internal/model"
)

// Function is an inference function with declared inputs and possibly several
// outputs. Run receives inputs in Inputs() order and returns one tensor per
// entry of Outputs().
type Function interface {
	Inputs() []TensorInfo
	Outputs() []TensorInfo
	Run(inputs []Tensor) ([]Tensor, error)
	Close() error
}

// OutputRef selects one output of a Function, by name or by index.
type OutputRef struct {
	name    string
	index   int
	byIndex bool
}

// OutputNamed selects the output with the given name.
func OutputNamed(name string) OutputRef {
	return OutputRef{name: name}
}

// OutputAt selects the output at a documented index.
func OutputAt(index int) OutputRef {
	return OutputRef{index: index, byIndex: true}
}

// ParseOutputRef reads a decimal index ("1") or an output name ("image_embeds").
func ParseOutputRef(s string) (OutputRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OutputRef{}, fmt.Errorf("encoder: empty output reference")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return OutputRef{}, fmt.Errorf("encoder: negative output index %d", n)
		}
		return OutputAt(n), nil
	}
	return OutputNamed(s), nil
}

func (r OutputRef) String() string {
	if r.byIndex {
		return "#" + strconv.Itoa(r.index)
	}
	return r.name
}

func (r OutputRef) resolve(outputs []TensorInfo) (int, bool) {
	if r.byIndex {
		return r.index, r.index >= 0 && r.index < len(outputs)
	}
	for i, o := range outputs {
		if o.Name == r.name {
			return i, true
		}
	}
	return -1, false
}

// Contract declares the exact inputs an encoder accepts and which output
// carries its Dim-wide float32 embedding.
type Contract struct {
	Inputs []TensorInfo
	Output OutputRef
	Dim    int
}

// Port is a Function bound to a Contract. The output slot is resolved once in
// NewPort; Embed never inspects tensor sizes to choose it.
type Port struct {
	name       string
	fn         Function
	contract   Contract
	order      []int // contract input i is passed at function position order[i]
	out        int
	outInfo    TensorInfo
	concurrent bool

	mu sync.Mutex
}

// PortOption configures a Port.
type PortOption func(*Port)

// Concurrent marks the underlying Function as safe for concurrent Run calls.
// Without it, calls through the Port are serialized.
func Concurrent() PortOption {
	return func(p *Port) { p.concurrent = true }
}

// NewPort validates fn's metadata against c and resolves the embedding
// output. Failures are *ConfigurationError.
func NewPort(name string, fn Function, c Contract, opts ...PortOption) (*Port, error) {
	if fn == nil {
		return nil, &ConfigurationError{Encoder: name, Reason: "not loaded"}
	}
	if c.Dim <= 0 {
		return nil, &ConfigurationError{Encoder: name, Reason: fmt.Sprintf("invalid embedding dim %d", c.Dim)}
	}

	order, err := bindInputs(name, fn.Inputs(), c.Inputs)
	if err != nil {
		return nil, err
	}

	outputs := fn.Outputs()
	idx, ok := c.Output.resolve(outputs)
	if !ok {
		return nil, &ConfigurationError{
			Encoder: name,
			Reason:  fmt.Sprintf("output %s not found among %s", c.Output, describe(outputs)),
		}
	}
	info := outputs[idx]
	want := int64(c.Dim) * int64(Float32.Size())
	if info.DataType != Float32 || info.ByteSize() != want {
		return nil, &ConfigurationError{
			Encoder: name,
			Reason: fmt.Sprintf("output %s is %s (%d bytes), want float32 with %d elements (%d bytes)",
				c.Output, info, info.ByteSize(), c.Dim, want),
		}
	}

	p := &Port{
		name:     name,
		fn:       fn,
		contract: c,
		order:    order,
		out:      idx,
		outInfo:  info,
	}
	for _, opt := range opts {
		opt(p)
	}
	slog.Debug("encoder bound", "encoder", name, "output", info.Name, "index", idx)
	return p, nil
}

// bindInputs maps contract inputs to function inputs, by name when the model
// declares a matching name and by position otherwise.
func bindInputs(name string, have, want []TensorInfo) ([]int, error) {
	if len(have) != len(want) {
		return nil, &ConfigurationError{
			Encoder: name,
			Reason:  fmt.Sprintf("model declares %d inputs %s, contract requires %d", len(have), describe(have), len(want)),
		}
	}
	order := make([]int, len(want))
	used := make([]bool, len(have))
	for i, w := range want {
		pos := i
		for j, h := range have {
			if w.Name != "" && h.Name == w.Name {
				pos = j
				break
			}
		}
		if used[pos] {
			return nil, &ConfigurationError{Encoder: name, Reason: fmt.Sprintf("input %q bound twice", have[pos].Name)}
		}
		used[pos] = true
		h := have[pos]
		if h.DataType != w.DataType || !h.Shape.Accepts(w.Shape) {
			return nil, &ConfigurationError{
				Encoder: name,
				Reason:  fmt.Sprintf("model input %s cannot accept %s", h, w),
			}
		}
		order[i] = pos
	}
	return order, nil
}

// Name returns the encoder name used in errors and logs.
func (p *Port) Name() string {
	return p.name
}

// Output returns metadata for the selected embedding output.
func (p *Port) Output() TensorInfo {
	return p.outInfo
}

// Dim returns the embedding width.
func (p *Port) Dim() int {
	return p.contract.Dim
}

// Embed validates inputs against the contract, runs the function and copies
// the selected output. Inputs are given in contract order.
func (p *Port) Embed(inputs ...Tensor) (model.Embedding, error) {
	if p == nil || p.fn == nil {
		return nil, &ConfigurationError{Encoder: "unknown", Reason: "not loaded"}
	}
	if len(inputs) != len(p.contract.Inputs) {
		return nil, fmt.Errorf("encoder %s: got %d inputs, want %d", p.name, len(inputs), len(p.contract.Inputs))
	}

	ordered := make([]Tensor, len(inputs))
	for i, in := range inputs {
		want := p.contract.Inputs[i]
		if in.DataType != want.DataType || !in.Shape.Equal(want.Shape) || int64(in.Len()) != want.Shape.NumElements() {
			return nil, &ShapeMismatchError{
				Encoder:      p.name,
				Tensor:       want.Name,
				ExpectedType: want.DataType,
				Expected:     want.Shape,
				ActualType:   in.DataType,
				Actual:       actualShape(in),
			}
		}
		in.Name = want.Name
		ordered[p.order[i]] = in
	}

	outs, err := p.run(ordered)
	if err != nil {
		return nil, fmt.Errorf("encoder %s: %w", p.name, err)
	}
	if p.out >= len(outs) {
		return nil, fmt.Errorf("encoder %s: function returned %d outputs, embedding is at %d", p.name, len(outs), p.out)
	}

	out := outs[p.out]
	if out.DataType != Float32 || len(out.Float32s) != p.contract.Dim {
		return nil, &ShapeMismatchError{
			Encoder:      p.name,
			Tensor:       p.outInfo.Name,
			ExpectedType: Float32,
			Expected:     Shape{1, int64(p.contract.Dim)},
			ActualType:   out.DataType,
			Actual:       actualShape(out),
		}
	}
	emb := make(model.Embedding, p.contract.Dim)
	copy(emb, out.Float32s)
	return emb, nil
}

func (p *Port) run(inputs []Tensor) ([]Tensor, error) {
	if !p.concurrent {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	return p.fn.Run(inputs)
}

// Close releases the underlying function.
func (p *Port) Close() error {
	if p == nil || p.fn == nil {
		return nil
	}
	return p.fn.Close()
}

// actualShape reports a tensor's declared shape, or its flat length when the
// declared shape disagrees with the payload.
func actualShape(t Tensor) Shape {
	if t.Shape.NumElements() == int64(t.Len()) {
		return t.Shape
	}
	return Shape{int64(t.Len())}
}

func describe(infos []TensorInfo) string {
	parts := make([]string, len(infos))
	for i, info := range infos {
		parts[i] = strconv.Itoa(i) + ":" + info.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
