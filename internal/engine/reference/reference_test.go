package reference

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeSafetensors encodes F32 tensors in safetensors layout.
func writeSafetensors(t *testing.T, tensors map[string][]float32, shapes map[string][]int) []byte {
	t.Helper()
	header := map[string]any{"__metadata__": map[string]string{"format": "pt"}}
	var payload []byte
	for _, name := range []string{"image_embeds", "text_embeds"} {
		data, ok := tensors[name]
		if !ok {
			continue
		}
		start := len(payload)
		for _, v := range data {
			payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(v))
		}
		header[name] = map[string]any{
			"dtype":        "F32",
			"shape":        shapes[name],
			"data_offsets": []int{start, len(payload)},
		}
	}
	h, err := json.Marshal(header)
	if err != nil {
		t.Fatal(err)
	}
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(h)))
	out = append(out, h...)
	return append(out, payload...)
}

func TestLoadEmbedding(t *testing.T) {
	emb := make([]float32, 512)
	for i := range emb {
		emb[i] = float32(i) / 512
	}
	data := writeSafetensors(t,
		map[string][]float32{"image_embeds": emb, "text_embeds": {1, 2, 3}},
		map[string][]int{"image_embeds": {1, 512}, "text_embeds": {3}},
	)
	path := filepath.Join(t.TempDir(), "ref.safetensors")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if names := f.Names(); len(names) != 2 || names[0] != "image_embeds" {
		t.Errorf("Names() = %v", names)
	}

	got, err := f.Embedding("image_embeds", 512)
	if err != nil {
		t.Fatalf("Embedding() error: %v", err)
	}
	for i := range emb {
		if got[i] != emb[i] {
			t.Fatalf("got[%d] = %f, want %f", i, got[i], emb[i])
		}
	}

	if _, err := f.Embedding("text_embeds", 512); err == nil {
		t.Error("expected dim mismatch error")
	}
	if _, err := f.Embedding("missing", 512); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte{1, 2}); err == nil {
		t.Error("expected error for short file")
	}

	huge := binary.LittleEndian.AppendUint64(nil, 1<<20)
	if _, err := Parse(huge); err == nil {
		t.Error("expected error for oversized header length")
	}

	bad := binary.LittleEndian.AppendUint64(nil, 3)
	bad = append(bad, "{x}"...)
	if _, err := Parse(bad); err == nil {
		t.Error("expected error for malformed header")
	}
}

func TestFloat32RejectsOtherDtypes(t *testing.T) {
	h := []byte(`{"w":{"dtype":"F16","shape":[2],"data_offsets":[0,4]}}`)
	data := binary.LittleEndian.AppendUint64(nil, uint64(len(h)))
	data = append(data, h...)
	data = append(data, 0, 0, 0, 0)
	f, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.Float32("w"); err == nil || !strings.Contains(err.Error(), "F16") {
		t.Errorf("error = %v, want dtype error", err)
	}
}

func TestFloat32RangeExceedsPayload(t *testing.T) {
	h := []byte(`{"w":{"dtype":"F32","shape":[4],"data_offsets":[0,16]}}`)
	data := binary.LittleEndian.AppendUint64(nil, uint64(len(h)))
	data = append(data, h...)
	data = append(data, make([]byte, 8)...)
	f, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.Float32("w"); err == nil {
		t.Error("expected range error")
	}
}
