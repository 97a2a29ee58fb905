/**
 * Reconstruction Pipeline - Partner name extraction
 *
 * A chat screenshot usually carries the partner's display name centered in
 * the title bar. The extractor looks only inside the title band, keeps
 * boxes near the horizontal centerline, and picks the one closest to it.
 */

package pipeline

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/chatlens/transcript-worker/internal/ocr"
)

// TitleExtractor finds the partner-name candidate in one image's boxes.
type TitleExtractor struct {
	filter *NoiseFilter
	th     Thresholds
}

func NewTitleExtractor(filter *NoiseFilter, th Thresholds) *TitleExtractor {
	return &TitleExtractor{filter: filter, th: th}
}

// Extract returns the partner name and the index (into boxes) of the box it
// came from, or ("", -1) when no candidate qualifies. The caller removes the
// winning box from the dialogue stream so the name never appears as a
// message.
func (e *TitleExtractor) Extract(boxes []ocr.TextBox, imgWidth, imgHeight float64) (string, int) {
	if imgWidth <= 0 || imgHeight <= 0 {
		return "", -1
	}

	centerX := imgWidth / 2
	window := imgWidth * e.th.TitleCenterWindow

	best := -1
	bestDist := math.MaxFloat64
	for i, b := range boxes {
		c := b.Quad.Center()
		frac := c.Y / imgHeight
		if frac < e.th.TitleBandTop || frac > e.th.TitleBandBottom {
			continue
		}
		dist := math.Abs(c.X - centerX)
		if dist > window {
			continue
		}
		name := cleanTitleText(b.Text)
		if name == "" || e.filter.IsNoiseText(name) {
			continue
		}
		if utf8.RuneCountInString(name) > e.th.TitleMaxNameRunes {
			continue
		}
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}

	if best < 0 {
		return "", -1
	}
	return cleanTitleText(boxes[best].Text), best
}

// cleanTitleText strips the unread-count suffix WeChat appends to the title,
// e.g. "小明(3)" or "小明（3）".
func cleanTitleText(text string) string {
	text = strings.TrimSpace(text)
	for _, pair := range [][2]string{{"(", ")"}, {"（", "）"}} {
		open := strings.LastIndex(text, pair[0])
		if open > 0 && strings.HasSuffix(text, pair[1]) {
			inner := text[open+len(pair[0]) : len(text)-len(pair[1])]
			if inner != "" && isAllDigits(inner) {
				text = strings.TrimSpace(text[:open])
			}
		}
	}
	return text
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
