package source

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"
	"time"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/crimson-sun/zeroshot/internal/model"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

// IsImageFile reports whether name has a decodable image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Decode reads one image from r. Any registered format is accepted; the
// detected format name is recorded on the result.
func Decode(r io.Reader, name string) (model.RawImage, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return model.RawImage{}, fmt.Errorf("source: decode %s: %w", name, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return model.RawImage{}, fmt.Errorf("source: decode %s: empty image", name)
	}
	return model.RawImage{
		Timestamp: time.Now(),
		Source:    name,
		Image:     img,
		Format:    format,
	}, nil
}
