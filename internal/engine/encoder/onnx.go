package encoder

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXOptions configures OpenONNX.
type ONNXOptions struct {
	// LibraryPath is the onnxruntime shared library. Empty means
	// libonnxruntime.so next to the model file.
	LibraryPath string
	// IntraOpThreads defaults to 4.
	IntraOpThreads int
}

// ONNXFunction is a Function backed by an ONNX Runtime session that exposes
// every model output.
type ONNXFunction struct {
	session *ort.DynamicAdvancedSession
	inputs  []TensorInfo
	outputs []TensorInfo
}

// OpenONNX loads an ONNX model and reads its input/output metadata.
func OpenONNX(modelPath string, opts ONNXOptions) (*ONNXFunction, error) {
	libPath := opts.LibraryPath
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	ins, outs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}

	f := &ONNXFunction{
		inputs:  convertInfos(ins),
		outputs: convertInfos(outs),
	}

	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer so.Destroy()
	threads := opts.IntraOpThreads
	if threads <= 0 {
		threads = 4
	}
	so.SetIntraOpNumThreads(threads)
	so.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, names(f.inputs), names(f.outputs), so)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}
	f.session = session
	return f, nil
}

func convertInfos(infos []ort.InputOutputInfo) []TensorInfo {
	out := make([]TensorInfo, len(infos))
	for i, info := range infos {
		out[i] = TensorInfo{
			Name:     info.Name,
			DataType: convertType(info.DataType),
			Shape:    Shape(info.Dimensions),
		}
	}
	return out
}

func convertType(t ort.TensorElementDataType) DataType {
	switch t {
	case ort.TensorElementDataTypeFloat:
		return Float32
	case ort.TensorElementDataTypeInt64:
		return Int64
	default:
		return Unsupported
	}
}

func names(infos []TensorInfo) []string {
	n := make([]string, len(infos))
	for i, info := range infos {
		n[i] = info.Name
	}
	return n
}

// Inputs returns the model's declared inputs.
func (f *ONNXFunction) Inputs() []TensorInfo { return f.inputs }

// Outputs returns the model's declared outputs.
func (f *ONNXFunction) Outputs() []TensorInfo { return f.outputs }

// Run executes one inference. Output tensors are allocated by the runtime and
// copied out before being released.
func (f *ONNXFunction) Run(inputs []Tensor) ([]Tensor, error) {
	if len(inputs) != len(f.inputs) {
		return nil, fmt.Errorf("onnx: got %d inputs, model has %d", len(inputs), len(f.inputs))
	}

	values := make([]ort.Value, 0, len(inputs))
	defer func() {
		for _, v := range values {
			v.Destroy()
		}
	}()
	for _, in := range inputs {
		v, err := newValue(in)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	outs := make([]ort.Value, len(f.outputs))
	defer func() {
		for _, v := range outs {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	if err := f.session.Run(values, outs); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	result := make([]Tensor, len(outs))
	for i, v := range outs {
		info := f.outputs[i]
		switch t := v.(type) {
		case *ort.Tensor[float32]:
			src := t.GetData()
			data := make([]float32, len(src))
			copy(data, src)
			result[i] = NewFloat32Tensor(info.Name, Shape(t.GetShape()), data)
		case *ort.Tensor[int64]:
			src := t.GetData()
			data := make([]int64, len(src))
			copy(data, src)
			result[i] = NewInt64Tensor(info.Name, Shape(t.GetShape()), data)
		default:
			result[i] = Tensor{Name: info.Name, DataType: Unsupported, Shape: info.Shape}
		}
	}
	return result, nil
}

func newValue(in Tensor) (ort.Value, error) {
	shape := ort.NewShape(in.Shape...)
	switch in.DataType {
	case Float32:
		t, err := ort.NewTensor(shape, in.Float32s)
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", in.Name, err)
		}
		return t, nil
	case Int64:
		t, err := ort.NewTensor(shape, in.Int64s)
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", in.Name, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("onnx: unsupported input type %s for %s", in.DataType, in.Name)
	}
}

// Close releases the ONNX session resources.
func (f *ONNXFunction) Close() error {
	if f.session == nil {
		return nil
	}
	return f.session.Destroy()
}
