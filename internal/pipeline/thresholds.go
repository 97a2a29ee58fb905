/**
 * Reconstruction Pipeline - Tunable thresholds
 *
 * All geometry thresholds are expressed as fractions of the original image
 * dimensions unless a pixel unit is stated. Defaults were tuned against
 * WeChat-style screenshots.
 */

package pipeline

// Thresholds collects every tunable parameter of the heuristic pipeline.
// Zero value is unusable; always start from DefaultThresholds.
type Thresholds struct {
	// MaxImageSide is the longest side of the normalized image, in pixels.
	MaxImageSide int

	// TopBand and BottomBand are fractions of image height occupied by OS
	// chrome (status bar, home indicator). Boxes whose center falls inside
	// a band are discarded.
	TopBand    float64
	BottomBand float64

	// Title band: where a chat partner name may appear.
	TitleBandTop      float64
	TitleBandBottom   float64
	TitleMaxNameRunes int
	// TitleCenterWindow is the maximum horizontal distance, as a fraction
	// of image width, between the box center and the image centerline.
	TitleCenterWindow float64

	// Bubble color classification (HSV, hue in degrees).
	GreenHueMin   float64
	GreenHueMax   float64
	GreenSatMin   float64
	GreenValMin   float64
	NeutralSatMax float64
	NeutralValMin float64

	// Position fallback, fractions of image width.
	SelfRightMin    float64
	SelfLeftMin     float64
	PartnerLeftMax  float64
	PartnerRightMax float64
	// WideBoxSpan relaxes the position rules for boxes spanning a large
	// fraction of the width (multi-line paragraphs).
	WideBoxSpan float64

	// MergeGap is the maximum vertical distance in original pixels between
	// two same-speaker boxes that still belong to one message.
	MergeGap float64

	// Color sampling geometry, in normalized-image pixels.
	SamplePatch  int
	SampleOffset int
}

// DefaultThresholds returns the tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxImageSide: 2000,

		TopBand:    0.04,
		BottomBand: 0.09,

		TitleBandTop:      0.03,
		TitleBandBottom:   0.12,
		TitleMaxNameRunes: 12,
		TitleCenterWindow: 0.28,

		GreenHueMin:   70,
		GreenHueMax:   150,
		GreenSatMin:   0.25,
		GreenValMin:   0.25,
		NeutralSatMax: 0.18,
		NeutralValMin: 0.72,

		SelfRightMin:    0.75,
		SelfLeftMin:     0.35,
		PartnerLeftMax:  0.25,
		PartnerRightMax: 0.65,
		WideBoxSpan:     0.30,

		MergeGap: 60,

		SamplePatch:  6,
		SampleOffset: 4,
	}
}
