package model

import (
	"image"
	"time"
)

// RawImage is the intermediate type produced by sources and consumed by the engine.
type RawImage struct {
	Timestamp time.Time
	Source    string      // path or URL the image was read from
	Image     image.Image // decoded pixels
	Format    string      // decoder name reported by image.Decode (jpeg, png, ...)
}

// ImageTensor is a preprocessed image laid out row-major as
// [ImageSize][ImageSize][3] with channels in R, G, B order.
type ImageTensor []float32

// ImageTensorLen is the number of float32 elements in an ImageTensor.
const ImageTensorLen = ImageSize * ImageSize * 3
