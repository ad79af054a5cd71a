package ingest

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Thumbnailer derives a square JPEG thumbnail from an extracted image.
type Thumbnailer struct {
	size int
}

// NewThumbnailer creates a thumbnailer producing size x size thumbnails.
func NewThumbnailer(size int) *Thumbnailer {
	if size <= 0 {
		size = 320
	}
	return &Thumbnailer{size: size}
}

// Derive decodes the image, scales and crops it to a centered square, and
// returns JPEG bytes. Decode failures are reported to the caller, which
// treats them as non-fatal for the row.
func (t *Thumbnailer) Derive(img ExtractedImage) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(img.Content))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", img.Filename, err)
	}

	thumb := imaging.Thumbnail(src, t.size, t.size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode thumbnail for %s: %w", img.Filename, err)
	}
	return buf.Bytes(), nil
}
