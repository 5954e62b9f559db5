// Package preprocess turns decoded images into encoder input tensors.
package preprocess

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"github.com/crimson-sun/zeroshot/internal/model"
)

// Normalization is a per-channel (R, G, B) mean/std convention. Channel values
// are read as 0-255, multiplied by Rescale, then normalized as (v-mean)/std.
type Normalization struct {
	Name    string
	Mean    [3]float32
	Std     [3]float32
	Rescale float32
}

// The two conventions describe the same transform at different pixel scales.
// Pixel255 is what the deployed encoders were fed and is the default.
var (
	Pixel255 = Normalization{
		Name:    "pixel255",
		Mean:    [3]float32{122.77, 116.75, 104.09},
		Std:     [3]float32{68.50, 66.63, 70.32},
		Rescale: 1,
	}
	Unit = Normalization{
		Name:    "unit",
		Mean:    [3]float32{0.48145466, 0.4578275, 0.40821073},
		Std:     [3]float32{0.26862954, 0.26130258, 0.27577711},
		Rescale: 1.0 / 255,
	}
)

// Normalizations returns every built-in convention, default first.
func Normalizations() []Normalization {
	return []Normalization{Pixel255, Unit}
}

// ParseNormalization resolves a convention by name. Empty selects Pixel255.
func ParseNormalization(name string) (Normalization, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Pixel255.Name:
		return Pixel255, nil
	case Unit.Name:
		return Unit, nil
	default:
		return Normalization{}, fmt.Errorf("preprocess: unknown normalization %q (want %s or %s)",
			name, Pixel255.Name, Unit.Name)
	}
}

// Preprocessor resizes images to model.ImageSize square with bilinear
// interpolation and applies a channel normalization.
type Preprocessor struct {
	size int
	norm Normalization
}

// New creates a Preprocessor using the given normalization.
func New(n Normalization) *Preprocessor {
	return &Preprocessor{size: model.ImageSize, norm: n}
}

// Normalization returns the convention this preprocessor applies.
func (p *Preprocessor) Normalization() Normalization {
	return p.norm
}

// Process produces a [size][size][3] float32 tensor in R, G, B order. The
// aspect ratio is not preserved. Alpha is dropped after compositing onto black.
func (p *Preprocessor) Process(img image.Image) (model.ImageTensor, error) {
	if img == nil {
		return nil, fmt.Errorf("preprocess: nil image")
	}
	src := img.Bounds()
	if src.Empty() {
		return nil, fmt.Errorf("preprocess: empty image bounds %v", src)
	}

	dst := image.NewRGBA(image.Rect(0, 0, p.size, p.size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)

	out := make(model.ImageTensor, p.size*p.size*3)
	n := p.norm
	i := 0
	for y := 0; y < p.size; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+p.size*4]
		for x := 0; x < p.size; x++ {
			px := row[x*4 : x*4+3]
			for c := 0; c < 3; c++ {
				out[i] = (float32(px[c])*n.Rescale - n.Mean[c]) / n.Std[c]
				i++
			}
		}
	}
	return out, nil
}
