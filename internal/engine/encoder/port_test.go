package encoder

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/crimson-sun/zeroshot/internal/model"
)

// fakeFunction mimics a split CLIP export: a raw hidden-state output at index
// 0 and the pooled embedding at index 1.
type fakeFunction struct {
	inputs  []TensorInfo
	outputs []TensorInfo
	run     func(inputs []Tensor) ([]Tensor, error)
	calls   atomic.Int32
	closed  bool
}

func (f *fakeFunction) Inputs() []TensorInfo  { return f.inputs }
func (f *fakeFunction) Outputs() []TensorInfo { return f.outputs }
func (f *fakeFunction) Close() error          { f.closed = true; return nil }

func (f *fakeFunction) Run(inputs []Tensor) ([]Tensor, error) {
	f.calls.Add(1)
	return f.run(inputs)
}

func imageFake() *fakeFunction {
	f := &fakeFunction{
		inputs: []TensorInfo{{Name: "pixel_values", DataType: Float32, Shape: Shape{-1, 224, 224, 3}}},
		outputs: []TensorInfo{
			{Name: "last_hidden_state", DataType: Float32, Shape: Shape{-1, 50, 768}},
			{Name: "image_embeds", DataType: Float32, Shape: Shape{-1, 512}},
		},
	}
	f.run = func(inputs []Tensor) ([]Tensor, error) {
		emb := make([]float32, 512)
		emb[0] = inputs[0].Float32s[0]
		emb[1] = 1
		return []Tensor{
			NewFloat32Tensor("last_hidden_state", Shape{1, 50, 768}, make([]float32, 50*768)),
			NewFloat32Tensor("image_embeds", Shape{1, 512}, emb),
		}, nil
	}
	return f
}

func textFake() *fakeFunction {
	f := &fakeFunction{
		// Declared in the opposite order from the contract.
		inputs: []TensorInfo{
			{Name: "attention_mask", DataType: Int64, Shape: Shape{1, 77}},
			{Name: "input_ids", DataType: Int64, Shape: Shape{1, 77}},
		},
		outputs: []TensorInfo{
			{Name: "last_hidden_state", DataType: Float32, Shape: Shape{1, 77, 512}},
			{Name: "text_embeds", DataType: Float32, Shape: Shape{1, 512}},
		},
	}
	f.run = func(inputs []Tensor) ([]Tensor, error) {
		mask, ids := inputs[0].Int64s, inputs[1].Int64s
		emb := make([]float32, 512)
		var n int64
		for _, m := range mask {
			n += m
		}
		emb[0] = float32(ids[1])
		emb[1] = float32(n)
		return []Tensor{
			NewFloat32Tensor("last_hidden_state", Shape{1, 77, 512}, make([]float32, 77*512)),
			NewFloat32Tensor("text_embeds", Shape{1, 512}, emb),
		}, nil
	}
	return f
}

func TestImageEncoderSelectsNamedOutput(t *testing.T) {
	enc, err := NewImageEncoder(imageFake(), OutputNamed("image_embeds"))
	if err != nil {
		t.Fatalf("NewImageEncoder() error: %v", err)
	}
	if got := enc.Port().Output().Name; got != "image_embeds" {
		t.Errorf("bound output = %q, want image_embeds", got)
	}

	pixels := make(model.ImageTensor, model.ImageTensorLen)
	pixels[0] = 0.25
	emb, err := enc.Encode(pixels)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if len(emb) != 512 {
		t.Fatalf("len = %d, want 512", len(emb))
	}
	if emb[0] != 0.25 || emb[1] != 1 {
		t.Errorf("emb[:2] = %v, want [0.25 1]", emb[:2])
	}
}

func TestImageEncoderSelectsIndexedOutput(t *testing.T) {
	enc, err := NewImageEncoder(imageFake(), OutputAt(1))
	if err != nil {
		t.Fatalf("NewImageEncoder() error: %v", err)
	}
	if _, err := enc.Encode(make(model.ImageTensor, model.ImageTensorLen)); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
}

func TestNewPortRejectsWrongSizedOutput(t *testing.T) {
	_, err := NewImageEncoder(imageFake(), OutputAt(0))
	if err == nil {
		t.Fatal("expected error binding the hidden-state output")
	}
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error %v should match ErrNotConfigured", err)
	}
	if !strings.Contains(err.Error(), "2048 bytes") {
		t.Errorf("error %q should mention the expected byte size", err)
	}
}

func TestNewPortUnknownOutput(t *testing.T) {
	_, err := NewImageEncoder(imageFake(), OutputNamed("pooler_output"))
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigurationError", err)
	}
	if !strings.Contains(cfgErr.Reason, "last_hidden_state") {
		t.Errorf("reason %q should list available outputs", cfgErr.Reason)
	}
	if _, err := NewImageEncoder(imageFake(), OutputAt(5)); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestNilFunctionIsConfigurationError(t *testing.T) {
	_, err := NewTextEncoder(nil, OutputNamed("text_embeds"))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}

	var enc *TextEncoder
	if _, err := enc.Encode(model.TokenSequence{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("nil encoder Encode error = %v, want ErrNotConfigured", err)
	}
	var img *ImageEncoder
	if _, err := img.Encode(nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("nil image encoder Encode error = %v, want ErrNotConfigured", err)
	}
}

func TestImageEncoderShapeMismatch(t *testing.T) {
	f := imageFake()
	enc, err := NewImageEncoder(f, OutputNamed("image_embeds"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = enc.Encode(make(model.ImageTensor, 100))
	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("error = %v, want *ShapeMismatchError", err)
	}
	if !shapeErr.Expected.Equal(Shape{1, 224, 224, 3}) {
		t.Errorf("Expected = %v", shapeErr.Expected)
	}
	if !shapeErr.Actual.Equal(Shape{100}) {
		t.Errorf("Actual = %v, want [100]", shapeErr.Actual)
	}
	if f.calls.Load() != 0 {
		t.Error("function must not run on invalid input")
	}
}

func TestPortRejectsWrongDataType(t *testing.T) {
	enc, err := NewImageEncoder(imageFake(), OutputNamed("image_embeds"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = enc.Port().Embed(NewInt64Tensor("pixel_values", Shape{1, 224, 224, 3}, make([]int64, model.ImageTensorLen)))
	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("error = %v, want *ShapeMismatchError", err)
	}
	if shapeErr.ActualType != Int64 || shapeErr.ExpectedType != Float32 {
		t.Errorf("types = %s/%s", shapeErr.ExpectedType, shapeErr.ActualType)
	}
}

func TestTextEncoderBindsInputsByName(t *testing.T) {
	enc, err := NewTextEncoder(textFake(), OutputNamed("text_embeds"))
	if err != nil {
		t.Fatalf("NewTextEncoder() error: %v", err)
	}
	seq, err := model.NewTokenSequence([]int64{49406, 320, 1125, 539, 320, 2368, 49407})
	if err != nil {
		t.Fatal(err)
	}
	emb, err := enc.Encode(seq)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if emb[0] != 320 {
		t.Errorf("fake saw ids[1] = %v, want 320 (inputs reordered incorrectly)", emb[0])
	}
	if emb[1] != 7 {
		t.Errorf("fake saw mask sum = %v, want 7", emb[1])
	}
}

func TestTextEncoderInputMismatch(t *testing.T) {
	f := textFake()
	f.inputs = f.inputs[:1]
	if _, err := NewTextEncoder(f, OutputNamed("text_embeds")); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured for missing input", err)
	}

	f = textFake()
	f.inputs[1].DataType = Float32
	if _, err := NewTextEncoder(f, OutputNamed("text_embeds")); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured for wrong input type", err)
	}
}

func TestPortOutputShapeCheckedAtRun(t *testing.T) {
	f := imageFake()
	f.run = func([]Tensor) ([]Tensor, error) {
		return []Tensor{
			NewFloat32Tensor("last_hidden_state", Shape{1, 50, 768}, nil),
			NewFloat32Tensor("image_embeds", Shape{1, 256}, make([]float32, 256)),
		}, nil
	}
	enc, err := NewImageEncoder(f, OutputNamed("image_embeds"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = enc.Encode(make(model.ImageTensor, model.ImageTensorLen))
	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("error = %v, want *ShapeMismatchError", err)
	}
}

func TestPortPropagatesRunError(t *testing.T) {
	f := imageFake()
	f.run = func([]Tensor) ([]Tensor, error) { return nil, fmt.Errorf("device lost") }
	enc, err := NewImageEncoder(f, OutputNamed("image_embeds"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Encode(make(model.ImageTensor, model.ImageTensorLen)); err == nil || !strings.Contains(err.Error(), "device lost") {
		t.Errorf("error = %v, want wrapped run error", err)
	}
}

func TestPortSerializesCalls(t *testing.T) {
	f := imageFake()
	var inFlight, maxInFlight atomic.Int32
	inner := f.run
	f.run = func(in []Tensor) ([]Tensor, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		defer inFlight.Add(-1)
		return inner(in)
	}
	enc, err := NewImageEncoder(f, OutputNamed("image_embeds"))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enc.Encode(make(model.ImageTensor, model.ImageTensorLen))
		}()
	}
	wg.Wait()
	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent runs = %d, want 1", maxInFlight.Load())
	}
	if f.calls.Load() != 8 {
		t.Errorf("calls = %d, want 8", f.calls.Load())
	}
}

func TestEmbedReturnsCopy(t *testing.T) {
	f := imageFake()
	shared := make([]float32, 512)
	f.run = func([]Tensor) ([]Tensor, error) {
		return []Tensor{
			NewFloat32Tensor("last_hidden_state", Shape{1, 50, 768}, nil),
			NewFloat32Tensor("image_embeds", Shape{1, 512}, shared),
		}, nil
	}
	enc, _ := NewImageEncoder(f, OutputNamed("image_embeds"))
	emb, err := enc.Encode(make(model.ImageTensor, model.ImageTensorLen))
	if err != nil {
		t.Fatal(err)
	}
	emb[0] = 9
	if shared[0] != 0 {
		t.Error("Embed must not alias the function's output buffer")
	}
}

func TestDiscoverAndDescribe(t *testing.T) {
	f := imageFake()
	if got := Discover(f, 512); len(got) != 1 || got[0] != 1 {
		t.Errorf("Discover = %v, want [1]", got)
	}
	lines := Describe(f)
	if len(lines) != 2 {
		t.Fatalf("Describe returned %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "image_embeds") || !strings.Contains(lines[1], "2048 bytes") {
		t.Errorf("line = %q", lines[1])
	}
}

func TestParseOutputRef(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1", "#1", false},
		{"image_embeds", "image_embeds", false},
		{" text_embeds ", "text_embeds", false},
		{"", "", true},
		{"-2", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputRef(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputRef(%q) error = %v", tt.in, err)
			continue
		}
		if err == nil && got.String() != tt.want {
			t.Errorf("ParseOutputRef(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestShapeHelpers(t *testing.T) {
	if n := (Shape{-1, 512}).NumElements(); n != 512 {
		t.Errorf("NumElements = %d, want 512", n)
	}
	if !(Shape{-1, 224, 224, 3}).Accepts(Shape{1, 224, 224, 3}) {
		t.Error("dynamic batch should accept 1")
	}
	if (Shape{1, 77}).Accepts(Shape{1, 78}) {
		t.Error("static dims must match exactly")
	}
	if s := (Shape{-1, 512}).String(); s != "[?,512]" {
		t.Errorf("String = %q", s)
	}
}
