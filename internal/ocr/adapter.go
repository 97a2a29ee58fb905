/**
 * OCR Payload Adapter
 *
 * Normalizes the detection payload shapes produced by the different
 * recognition services into the uniform TextBox list:
 *  - attribute shape:  {"rec_texts": [...], "rec_scores": [...], "dt_polys": [...]}
 *  - wrapped shape:    {"result": {<attribute shape>}}
 *  - legacy shape:     [[ [[x,y]x4], ["text", score] ], ...]
 *
 * Contract: detections with empty text are dropped, a missing confidence
 * defaults to 0, and a detection whose geometry cannot be interpreted is
 * skipped without failing the rest of the payload.
 */

package ocr

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chatlens/transcript-worker/internal/geometry"
)

type attributePayload struct {
	RecTexts  []string        `json:"rec_texts"`
	RecScores []float64       `json:"rec_scores"`
	DtPolys   [][][2]float64  `json:"dt_polys"`
	Result    json.RawMessage `json:"result"`
}

// ParseDetections converts a raw detection payload into TextBoxes.
// An empty payload yields an empty (non-nil error free) result; a payload
// that matches none of the known shapes is an error.
func ParseDetections(raw []byte) ([]TextBox, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		return parseLegacy([]byte(trimmed))
	}

	var payload attributePayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, fmt.Errorf("unrecognized detection payload: %w", err)
	}

	// Wrapped shape: the attribute object nested under "result".
	if len(payload.RecTexts) == 0 && len(payload.Result) > 0 {
		return ParseDetections(payload.Result)
	}

	return fromAttributes(payload), nil
}

func fromAttributes(p attributePayload) []TextBox {
	boxes := make([]TextBox, 0, len(p.RecTexts))
	for i, text := range p.RecTexts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if i >= len(p.DtPolys) {
			continue
		}
		quad, ok := quadFromPoly(p.DtPolys[i])
		if !ok {
			continue
		}
		confidence := 0.0
		if i < len(p.RecScores) {
			confidence = p.RecScores[i]
		}
		boxes = append(boxes, TextBox{Text: text, Quad: quad, Confidence: confidence})
	}
	return boxes
}

// parseLegacy handles the list-of-tuples shape: each entry is
// [quad, [text, score]] with score optional.
func parseLegacy(raw []byte) ([]TextBox, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("unrecognized legacy payload: %w", err)
	}

	var boxes []TextBox
	for _, entry := range entries {
		var tuple []json.RawMessage
		if err := json.Unmarshal(entry, &tuple); err != nil || len(tuple) < 2 {
			continue
		}

		var poly [][2]float64
		if err := json.Unmarshal(tuple[0], &poly); err != nil {
			continue
		}
		quad, ok := quadFromPoly(poly)
		if !ok {
			continue
		}

		var textScore []json.RawMessage
		if err := json.Unmarshal(tuple[1], &textScore); err != nil || len(textScore) == 0 {
			continue
		}
		var text string
		if err := json.Unmarshal(textScore[0], &text); err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		confidence := 0.0
		if len(textScore) > 1 {
			// Tolerate a missing or non-numeric score.
			_ = json.Unmarshal(textScore[1], &confidence)
		}

		boxes = append(boxes, TextBox{Text: text, Quad: quad, Confidence: confidence})
	}
	return boxes, nil
}

func quadFromPoly(poly [][2]float64) (geometry.Quad, bool) {
	if len(poly) != 4 {
		return geometry.Quad{}, false
	}
	var q geometry.Quad
	for i, p := range poly {
		q[i] = geometry.Point{X: p[0], Y: p[1]}
	}
	return q, true
}
