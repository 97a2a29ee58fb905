/**
 * Tesseract OCR Engine - Local, offline text detection
 *
 * Default engine when no remote detection service is configured. Uses
 * line-level bounding boxes so that one chat bubble line maps to one
 * detection, matching the granularity the speaker classifier expects.
 */

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/chatlens/transcript-worker/internal/geometry"
)

// TesseractEngine detects text using a local Tesseract installation.
type TesseractEngine struct {
	language string

	// gosseract clients are not safe for concurrent use.
	mu sync.Mutex
}

// TesseractConfig holds Tesseract engine configuration.
type TesseractConfig struct {
	// Language is the traineddata to load, e.g. "chi_sim" for simplified
	// Chinese chat screenshots. Defaults to "chi_sim+eng".
	Language string
}

// NewTesseractEngine creates a Tesseract-backed engine.
func NewTesseractEngine(cfg *TesseractConfig) (*TesseractEngine, error) {
	language := "chi_sim+eng"
	if cfg != nil && cfg.Language != "" {
		language = cfg.Language
	}

	return &TesseractEngine{language: language}, nil
}

// Name identifies the engine in logs and job records.
func (t *TesseractEngine) Name() string {
	return "tesseract"
}

// Detect runs line-level OCR over the whole image.
func (t *TesseractEngine) Detect(ctx context.Context, img image.Image) ([]TextBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return nil, fmt.Errorf("failed to set OCR language %q: %w", t.language, err)
	}

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("tesseract detection failed: %w", err)
	}

	results := make([]TextBox, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		results = append(results, TextBox{
			Text: text,
			Quad: geometry.NewQuadFromRect(
				float64(box.Box.Min.X), float64(box.Box.Min.Y),
				float64(box.Box.Max.X), float64(box.Box.Max.Y),
			),
			// Tesseract reports percent confidence.
			Confidence: box.Confidence / 100.0,
		})
	}

	return results, nil
}
