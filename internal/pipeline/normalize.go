/**
 * Reconstruction Pipeline - Image decoding and normalization
 *
 * Oversized screenshots are downscaled before OCR; all downstream geometry
 * is expressed in ORIGINAL pixel coordinates, so detections made on the
 * normalized image are mapped back through the inverse scale.
 */

package pipeline

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/chatlens/transcript-worker/internal/errors"
	"github.com/chatlens/transcript-worker/internal/geometry"
	"github.com/chatlens/transcript-worker/internal/ocr"
)

// NormalizedImage pairs a possibly-downscaled image with the factors needed
// to move between original and normalized coordinate spaces.
type NormalizedImage struct {
	Img image.Image

	// ScaleX and ScaleY convert original coordinates to normalized ones
	// (normalized = original * scale). Both are 1.0 when no resize happened.
	ScaleX float64
	ScaleY float64

	OrigWidth  int
	OrigHeight int
}

// DecodeAndNormalize decodes raw image bytes and downscales the result so
// that neither side exceeds maxSide. Aspect ratio is preserved; the tiny
// per-axis drift from integer rounding is why two scale factors are kept.
func DecodeAndNormalize(raw []byte, maxSide int, imageIndex int) (*NormalizedImage, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.NewImageDecodeError(imageIndex, err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.NewImageDecodeError(imageIndex, image.ErrFormat)
	}

	n := &NormalizedImage{Img: img, ScaleX: 1, ScaleY: 1, OrigWidth: w, OrigHeight: h}
	longest := w
	if h > longest {
		longest = h
	}
	if maxSide <= 0 || longest <= maxSide {
		return n, nil
	}

	ratio := float64(maxSide) / float64(longest)
	nw := int(float64(w) * ratio)
	nh := int(float64(h) * ratio)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)

	n.Img = dst
	n.ScaleX = float64(nw) / float64(w)
	n.ScaleY = float64(nh) / float64(h)
	return n, nil
}

// ToOriginal maps a quad detected on the normalized image back to original
// pixel coordinates.
func (n *NormalizedImage) ToOriginal(q geometry.Quad) geometry.Quad {
	if n.ScaleX == 1 && n.ScaleY == 1 {
		return q
	}
	return q.Scale(1/n.ScaleX, 1/n.ScaleY)
}

// ToNormalized maps a quad in original coordinates onto the normalized image.
func (n *NormalizedImage) ToNormalized(q geometry.Quad) geometry.Quad {
	if n.ScaleX == 1 && n.ScaleY == 1 {
		return q
	}
	return q.Scale(n.ScaleX, n.ScaleY)
}

// MapBoxesToOriginal rewrites every detection quad from normalized to
// original coordinates in place and returns the slice for chaining.
func (n *NormalizedImage) MapBoxesToOriginal(boxes []ocr.TextBox) []ocr.TextBox {
	if n.ScaleX == 1 && n.ScaleY == 1 {
		return boxes
	}
	for i := range boxes {
		boxes[i].Quad = n.ToOriginal(boxes[i].Quad)
	}
	return boxes
}
