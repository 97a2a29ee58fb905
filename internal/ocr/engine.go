/**
 * OCR Engine Boundary - Shared types and the engine contract
 *
 * Every OCR backend (local Tesseract, remote detection service) is hidden
 * behind the Engine interface so the pipeline never sees engine-specific
 * output shapes.
 */

package ocr

import (
	"context"
	"image"

	"github.com/chatlens/transcript-worker/internal/geometry"
)

// TextBox is one OCR-detected text span: recognized text, its bounding
// quadrilateral in the coordinate space of the image handed to the engine,
// and the recognition confidence in [0,1]. Never mutated after creation.
type TextBox struct {
	Text       string
	Quad       geometry.Quad
	Confidence float64
}

// Engine recognizes text spans in a decoded image.
type Engine interface {
	Detect(ctx context.Context, img image.Image) ([]TextBox, error)
	Name() string
}
