/**
 * Reconstruction Pipeline - Shared data structures
 *
 * Speaker attribution is modeled as a small enum internally; the display
 * string (resolved partner name, "我") is applied only at formatting time.
 */

package pipeline

// Speaker identifies the author of a chat message. There is no "unknown"
// value: a box that cannot be attributed is dropped by the classifier, never
// carried forward with a null speaker.
type Speaker int

const (
	SpeakerSelf Speaker = iota + 1
	SpeakerPartner
)

func (s Speaker) String() string {
	switch s {
	case SpeakerSelf:
		return "self"
	case SpeakerPartner:
		return "partner"
	default:
		return "invalid"
	}
}

// ChatMessage is one attributed chat line. VerticalKey is the within-image
// reading-order key (center Y in original pixel space); cross-image order is
// the two-level key (ImageIndex, VerticalKey).
type ChatMessage struct {
	Speaker     Speaker
	Text        string
	ImageIndex  int
	VerticalKey float64
}

// ImageOCRResult holds everything extracted from one input image. Owned by
// the orchestrator for the duration of one reconstruction; never persisted.
type ImageOCRResult struct {
	Index    int
	RawTexts []string
	Messages []ChatMessage

	// TitleName is the partner-name candidate found in this image's title
	// band, or empty.
	TitleName string
}

// Conversation is the sole externally visible artifact of a reconstruction:
// the final transcript plus the resolved partner display name.
type Conversation struct {
	Transcript  string
	PartnerName string

	// Messages is the heuristic message sequence the transcript was built
	// from. Empty when the transcript came from the refinement collaborator.
	Messages []ChatMessage

	// Refined reports whether the generative refinement step produced the
	// transcript.
	Refined bool

	ImageCount int
}
