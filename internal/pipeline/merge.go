/**
 * Reconstruction Pipeline - Message merging
 *
 * OCR splits a multi-line bubble into one box per line. Consecutive boxes
 * from the same speaker that sit close together vertically are fused back
 * into one message. CJK text is concatenated without a separator; segments
 * around Latin or digit boundaries get a single space.
 */

package pipeline

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Merger fuses adjacent same-speaker fragments into whole messages.
type Merger struct {
	th Thresholds
}

func NewMerger(th Thresholds) *Merger {
	return &Merger{th: th}
}

// Merge sorts the messages by vertical position and fuses runs of
// same-speaker fragments whose vertical gap stays under the threshold. The
// merged message keeps the first fragment's key, so merging is idempotent:
// running Merge on its own output changes nothing.
//
// All input is assumed to come from a single image; the caller never mixes
// images here, so a merge can never span an image boundary.
func (m *Merger) Merge(msgs []ChatMessage) []ChatMessage {
	if len(msgs) <= 1 {
		return msgs
	}

	sorted := make([]ChatMessage, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VerticalKey < sorted[j].VerticalKey
	})

	out := make([]ChatMessage, 0, len(sorted))
	cur := sorted[0]
	lastKey := cur.VerticalKey
	for _, next := range sorted[1:] {
		if next.Speaker == cur.Speaker && next.VerticalKey-lastKey <= m.th.MergeGap {
			cur.Text = joinFragments(cur.Text, next.Text)
			lastKey = next.VerticalKey
			continue
		}
		out = append(out, cur)
		cur = next
		lastKey = next.VerticalKey
	}
	out = append(out, cur)
	return out
}

// joinFragments concatenates two text fragments. No separator between CJK
// runes; a space when either side of the seam is Latin or a digit, so
// "hello" + "world" does not become "helloworld".
func joinFragments(a, b string) string {
	a = strings.TrimRight(a, " ")
	b = strings.TrimLeft(b, " ")
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	last, _ := utf8.DecodeLastRuneInString(a)
	first, _ := utf8.DecodeRuneInString(b)
	if needsSpace(last) || needsSpace(first) {
		return a + " " + b
	}
	return a + b
}

func needsSpace(r rune) bool {
	if r > unicode.MaxASCII {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
