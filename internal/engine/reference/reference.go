// Package reference reads reference embeddings stored as F32 tensors in
// safetensors files.
package reference

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// File is a parsed safetensors file.
type File struct {
	data    []byte // tensor payload following the header
	tensors map[string]tensorMeta
}

// Load reads and parses a safetensors file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	return Parse(data)
}

// Parse reads the safetensors layout: 8-byte LE uint64 header length, JSON
// header, then the raw tensor payload.
func Parse(data []byte) (*File, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("reference: file too small: %d bytes", len(data))
	}
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)-8) < headerLen {
		return nil, fmt.Errorf("reference: header length %d exceeds file size", headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("reference: failed to parse header: %w", err)
	}

	f := &File{
		data:    data[8+headerLen:],
		tensors: make(map[string]tensorMeta, len(header)),
	}
	for name, raw := range header {
		if name == "__metadata__" {
			continue
		}
		var meta tensorMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("reference: tensor %q: failed to parse metadata: %w", name, err)
		}
		f.tensors[name] = meta
	}
	return f, nil
}

// Names returns the tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.tensors))
	for n := range f.tensors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Float32 decodes the named F32 tensor. The data is returned flat alongside
// its shape.
func (f *File) Float32(name string) ([]float32, []int, error) {
	meta, ok := f.tensors[name]
	if !ok {
		return nil, nil, fmt.Errorf("reference: tensor %q not found (have %v)", name, f.Names())
	}
	if meta.Dtype != "F32" {
		return nil, nil, fmt.Errorf("reference: tensor %q: expected dtype F32, got %s", name, meta.Dtype)
	}

	numFloats := 1
	for _, d := range meta.Shape {
		numFloats *= d
	}
	start, end := meta.DataOffsets[0], meta.DataOffsets[1]
	if start < 0 || end < start || end-start != numFloats*4 {
		return nil, nil, fmt.Errorf("reference: tensor %q: data size %d doesn't match shape %v",
			name, end-start, meta.Shape)
	}
	if end > len(f.data) {
		return nil, nil, fmt.Errorf("reference: tensor %q: data range [%d:%d] exceeds payload size %d",
			name, start, end, len(f.data))
	}

	out := make([]float32, numFloats)
	for i := range out {
		bits := binary.LittleEndian.Uint32(f.data[start+i*4 : start+i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out, meta.Shape, nil
}

// Embedding decodes the named tensor and checks it holds exactly dim values
// (a [dim] or [1,dim] tensor).
func (f *File) Embedding(name string, dim int) ([]float32, error) {
	data, shape, err := f.Float32(name)
	if err != nil {
		return nil, err
	}
	if len(data) != dim {
		return nil, fmt.Errorf("reference: tensor %q has shape %v, want %d values", name, shape, dim)
	}
	return data, nil
}
