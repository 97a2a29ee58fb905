/**
 * Reconstruction Pipeline - Multi-image assembly and formatting
 *
 * Per-image message lists are combined into one sequence ordered by the
 * (image index, vertical key) pair, then either formatted directly or
 * handed to a refinement collaborator that re-orders, de-duplicates, and
 * renames using the raw tagged dump.
 */

package pipeline

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// Refiner turns a tagged OCR dump into a polished transcript. Implemented
// by the LLM client; the heuristic path never needs it.
type Refiner interface {
	Refine(ctx context.Context, taggedDump string, detectedName string) (transcript string, partnerName string, err error)
}

// Assembler orders per-image results into one conversation.
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Flatten concatenates the per-image message lists into one slice ordered by
// (image index, vertical key). Input order inside each image is already
// vertical, but the sort is kept stable so equal keys preserve it.
func (a *Assembler) Flatten(results []ImageOCRResult) []ChatMessage {
	var all []ChatMessage
	for _, r := range results {
		all = append(all, r.Messages...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].ImageIndex != all[j].ImageIndex {
			return all[i].ImageIndex < all[j].ImageIndex
		}
		return all[i].VerticalKey < all[j].VerticalKey
	})
	return all
}

// TaggedDump renders the per-image results in the marker format the refiner
// consumes: an image separator line, then one "[speaker] text" line per
// message.
func (a *Assembler) TaggedDump(results []ImageOCRResult, partnerName string) string {
	label := partnerName
	if label == "" {
		label = "对方"
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString("=== 图片 ")
		b.WriteString(strconv.Itoa(r.Index + 1))
		b.WriteString(" ===\n")
		for _, m := range r.Messages {
			b.WriteString("[")
			if m.Speaker == SpeakerSelf {
				b.WriteString("我")
			} else {
				b.WriteString(label)
			}
			b.WriteString("] ")
			b.WriteString(m.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Format renders the final transcript: one "{speaker}：{text}" line per
// message, self as "我", partner as the resolved name or "对方".
func (a *Assembler) Format(msgs []ChatMessage, partnerName string) string {
	label := partnerName
	if label == "" {
		label = "对方"
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		switch m.Speaker {
		case SpeakerSelf:
			lines = append(lines, "我："+m.Text)
		default:
			lines = append(lines, label+"："+m.Text)
		}
	}
	return strings.Join(lines, "\n")
}
