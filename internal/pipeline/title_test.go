package pipeline

import (
	"testing"

	"github.com/chatlens/transcript-worker/internal/geometry"
	"github.com/chatlens/transcript-worker/internal/ocr"
)

func newTitleExtractor() *TitleExtractor {
	th := DefaultThresholds()
	return NewTitleExtractor(NewNoiseFilter(th), th)
}

func TestExtractFindsCenteredName(t *testing.T) {
	e := newTitleExtractor()

	boxes := []ocr.TextBox{
		{Text: "<", Quad: geometry.NewQuadFromRect(10, 40, 40, 70)},     // back button
		{Text: "小明", Quad: geometry.NewQuadFromRect(360, 40, 440, 70)}, // title
		{Text: "你好", Quad: geometry.NewQuadFromRect(600, 300, 760, 340)},
	}

	name, idx := e.Extract(boxes, 800, 1000)
	if name != "小明" || idx != 1 {
		t.Fatalf("Extract() = (%q, %d), want (小明, 1)", name, idx)
	}
}

func TestExtractStripsUnreadCount(t *testing.T) {
	e := newTitleExtractor()

	for _, raw := range []string{"小明(3)", "小明（12）"} {
		boxes := []ocr.TextBox{
			{Text: raw, Quad: geometry.NewQuadFromRect(350, 40, 450, 70)},
		}
		name, _ := e.Extract(boxes, 800, 1000)
		if name != "小明" {
			t.Errorf("Extract(%q) name = %q, want 小明", raw, name)
		}
	}
}

func TestExtractRejectsOffCenterAndNoise(t *testing.T) {
	e := newTitleExtractor()

	boxes := []ocr.TextBox{
		{Text: "小红", Quad: geometry.NewQuadFromRect(650, 40, 760, 70)},  // too far right
		{Text: "12:30", Quad: geometry.NewQuadFromRect(370, 40, 430, 70)}, // chrome text
	}

	name, idx := e.Extract(boxes, 800, 1000)
	if name != "" || idx != -1 {
		t.Fatalf("Extract() = (%q, %d), want no candidate", name, idx)
	}
}

func TestExtractRejectsOutsideTitleBand(t *testing.T) {
	e := newTitleExtractor()

	boxes := []ocr.TextBox{
		{Text: "小明", Quad: geometry.NewQuadFromRect(360, 400, 440, 440)}, // mid screen
	}

	if name, _ := e.Extract(boxes, 800, 1000); name != "" {
		t.Fatalf("name outside title band must not match, got %q", name)
	}
}

func TestExtractRejectsOverlongName(t *testing.T) {
	e := newTitleExtractor()

	boxes := []ocr.TextBox{
		{Text: "这是一个远远超过十二个字符长度限制的标题文本", Quad: geometry.NewQuadFromRect(200, 40, 600, 70)},
	}

	if name, _ := e.Extract(boxes, 800, 1000); name != "" {
		t.Fatalf("overlong title must not be treated as a name, got %q", name)
	}
}

func TestExtractPicksClosestToCenter(t *testing.T) {
	e := newTitleExtractor()

	boxes := []ocr.TextBox{
		{Text: "小红", Quad: geometry.NewQuadFromRect(240, 40, 320, 70)},
		{Text: "小明", Quad: geometry.NewQuadFromRect(370, 40, 430, 70)},
	}

	name, idx := e.Extract(boxes, 800, 1000)
	if name != "小明" || idx != 1 {
		t.Fatalf("Extract() = (%q, %d), want closest-to-center 小明", name, idx)
	}
}

func TestCleanTitleText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"小明", "小明"},
		{"小明(3)", "小明"},
		{"小明（3）", "小明"},
		{"小明(abc)", "小明(abc)"}, // only numeric suffixes are unread counts
		{"(3)", "(3)"},          // nothing before the parens
		{"  小明  ", "小明"},
	}
	for _, c := range cases {
		if got := cleanTitleText(c.in); got != c.want {
			t.Errorf("cleanTitleText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
