/**
 * Reconstruction Pipeline - Noise classification
 *
 * Separates dialogue candidates from screenshot chrome: OS status bars,
 * in-app navigation labels, timestamps and date separators, carrier names.
 * Pattern matching is anchored full-string so substrings inside real
 * messages never match.
 */

package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/chatlens/transcript-worker/internal/ocr"
)

// builtinPatterns covers the chrome text seen on WeChat-style screenshots.
// Every pattern is implicitly anchored at both ends.
var builtinPatterns = []string{
	`\d{1,2}:\d{2}`,            // clock HH:MM
	`\d{1,2}月\d{1,2}日.*`,       // Chinese date
	`\d{4}/\d{1,2}/\d{1,2}.*`,  // slash date
	`星期[一二三四五六日天]`,
	`周[一二三四五六日天]`,
	`上午|下午|凌晨|晚上|中午`,
	`(上午|下午|凌晨|晚上)\d{1,2}:\d{2}`,
	`昨天|今天|刚刚`,
	`昨天 ?\d{1,2}:\d{2}`,
	`\d+%`, // battery
	`[45]G|WiFi|WIFI|LTE`,
	`返回|发送|更多|按住 说话`,
	`语音|视频|转账|红包|位置|相册|拍摄`,
	`\+|表情`,
	`消息|通讯录|发现|我`, // bottom tab bar
	`聊天`,
	`\[.*\]`, // [语音] [图片] placeholders
	`···|\.\.\.|…`,
	`中国移动|中国联通|中国电信`,
}

// NoiseFilter decides which OCR boxes are UI chrome rather than dialogue.
type NoiseFilter struct {
	patterns []*regexp.Regexp
	th       Thresholds
}

// NewNoiseFilter builds a filter over the builtin pattern library.
func NewNoiseFilter(th Thresholds) *NoiseFilter {
	f := &NoiseFilter{th: th}
	for _, p := range builtinPatterns {
		f.patterns = append(f.patterns, regexp.MustCompile(`^(?:`+p+`)$`))
	}
	return f
}

// LoadPatternFile appends operator-supplied patterns, one per line. Blank
// lines and lines starting with '#' are skipped. Each pattern is compiled
// with the same full-string anchoring as the builtins.
func (f *NoiseFilter) LoadPatternFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open pattern file: %w", err)
	}
	defer fh.Close()

	sc := bufio.NewScanner(fh)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		re, err := regexp.Compile(`^(?:` + text + `)$`)
		if err != nil {
			return fmt.Errorf("pattern file %s line %d: %w", path, line, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return sc.Err()
}

// IsNoiseText reports whether the text alone marks a box as chrome.
func (f *NoiseFilter) IsNoiseText(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	if isSingleSymbol(text) {
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// isSingleSymbol drops lone glyphs that carry no dialogue content (bullet
// dots, arrows). A single CJK character or letter or digit is kept: one-rune
// replies like "好" are real messages.
func isSingleSymbol(text string) bool {
	runes := []rune(text)
	if len(runes) != 1 {
		return false
	}
	r := runes[0]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// InChromeBand reports whether a box center sits in the top or bottom chrome
// band of an image with the given original height.
func (f *NoiseFilter) InChromeBand(centerY, imgHeight float64) bool {
	if imgHeight <= 0 {
		return false
	}
	frac := centerY / imgHeight
	return frac < f.th.TopBand || frac > 1-f.th.BottomBand
}

// Filter returns the boxes that survive both the band check and the text
// pattern check, preserving input order.
func (f *NoiseFilter) Filter(boxes []ocr.TextBox, imgWidth, imgHeight float64) []ocr.TextBox {
	kept := make([]ocr.TextBox, 0, len(boxes))
	for _, b := range boxes {
		if f.InChromeBand(b.Quad.Center().Y, imgHeight) {
			continue
		}
		if f.IsNoiseText(b.Text) {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}
