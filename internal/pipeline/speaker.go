/**
 * Reconstruction Pipeline - Two-tier speaker classification
 *
 * Tier 1 samples the bubble background color around the text box: the
 * sender's bubbles are green, the partner's are white or light gray. When
 * color is inconclusive (screenshots with themes, stickers, compression
 * artifacts) tier 2 falls back to horizontal position.
 */

package pipeline

import (
	"image"
	"math"

	"github.com/chatlens/transcript-worker/internal/ocr"
)

type bubbleColor int

const (
	colorUndetermined bubbleColor = iota
	colorGreen
	colorNeutral
)

// SpeakerClassifier attributes a dialogue box to self or partner, or drops
// it when neither tier can decide.
type SpeakerClassifier struct {
	th Thresholds
}

func NewSpeakerClassifier(th Thresholds) *SpeakerClassifier {
	return &SpeakerClassifier{th: th}
}

// Classify returns the speaker for one box and whether the box should be
// kept. Boxes landing in the center dead zone with no color signal are
// dropped rather than guessed.
func (c *SpeakerClassifier) Classify(box ocr.TextBox, img *NormalizedImage) (Speaker, bool) {
	switch c.sampleBubble(box, img) {
	case colorGreen:
		return SpeakerSelf, true
	case colorNeutral:
		return SpeakerPartner, true
	}
	return c.classifyByPosition(box, float64(img.OrigWidth))
}

// sampleBubble votes over three patches just outside the text box: left of
// it, right of it, and above it. The box quad is in original coordinates;
// patches are sampled on the normalized image.
func (c *SpeakerClassifier) sampleBubble(box ocr.TextBox, img *NormalizedImage) bubbleColor {
	if img == nil || img.Img == nil {
		return colorUndetermined
	}

	q := img.ToNormalized(box.Quad)
	cy := q.Center().Y
	off := float64(c.th.SampleOffset)

	votes := map[bubbleColor]int{}
	for _, p := range []struct{ x, y float64 }{
		{q.Left() - off, cy},
		{q.Right() + off, cy},
		{q.Center().X, q.Top() - off},
	} {
		v := c.classifyPatch(img.Img, int(p.x), int(p.y))
		votes[v]++
	}

	if votes[colorGreen] >= 2 {
		return colorGreen
	}
	if votes[colorNeutral] >= 2 {
		return colorNeutral
	}
	return colorUndetermined
}

// classifyPatch averages a small square patch centered at (x, y) and buckets
// the mean color.
func (c *SpeakerClassifier) classifyPatch(img image.Image, x, y int) bubbleColor {
	half := c.th.SamplePatch / 2
	if half < 1 {
		half = 1
	}
	b := img.Bounds()

	var rSum, gSum, bSum, n float64
	for py := y - half; py <= y+half; py++ {
		for px := x - half; px <= x+half; px++ {
			if px < b.Min.X || px >= b.Max.X || py < b.Min.Y || py >= b.Max.Y {
				continue
			}
			r, g, bl, _ := img.At(px, py).RGBA()
			rSum += float64(r >> 8)
			gSum += float64(g >> 8)
			bSum += float64(bl >> 8)
			n++
		}
	}
	if n == 0 {
		return colorUndetermined
	}

	h, s, v := rgbToHSV(rSum/n, gSum/n, bSum/n)
	if h >= c.th.GreenHueMin && h <= c.th.GreenHueMax && s >= c.th.GreenSatMin && v >= c.th.GreenValMin {
		return colorGreen
	}
	if s <= c.th.NeutralSatMax && v >= c.th.NeutralValMin {
		return colorNeutral
	}
	return colorUndetermined
}

// classifyByPosition is the tier-2 fallback: bubble alignment alone. Wide
// boxes spanning much of the screen relax the edge thresholds since long
// paragraphs reach toward the opposite margin.
func (c *SpeakerClassifier) classifyByPosition(box ocr.TextBox, imgWidth float64) (Speaker, bool) {
	if imgWidth <= 0 {
		return 0, false
	}
	left := box.Quad.Left() / imgWidth
	right := box.Quad.Right() / imgWidth
	span := right - left
	wide := span >= c.th.WideBoxSpan

	if wide {
		// Long bubbles hug one margin; the anchored edge decides.
		if right >= c.th.SelfRightMin {
			return SpeakerSelf, true
		}
		if left <= c.th.PartnerLeftMax {
			return SpeakerPartner, true
		}
		return 0, false
	}

	if right >= c.th.SelfRightMin && left >= c.th.SelfLeftMin {
		return SpeakerSelf, true
	}
	if left <= c.th.PartnerLeftMax && right <= c.th.PartnerRightMax {
		return SpeakerPartner, true
	}
	return 0, false
}

// rgbToHSV converts 0-255 RGB to hue in degrees (0-360) with saturation and
// value in 0-1.
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255
	g /= 255
	b /= 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC
	if maxC > 0 {
		s = diff / maxC
	}

	switch {
	case diff == 0:
		h = 0
	case maxC == r:
		h = 60 * math.Mod((g-b)/diff, 6)
	case maxC == g:
		h = 60 * ((b-r)/diff + 2)
	default:
		h = 60 * ((r-g)/diff + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}
