package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chatlens/transcript-worker/internal/geometry"
	"github.com/chatlens/transcript-worker/internal/ocr"
)

func TestIsNoiseTextChromePatterns(t *testing.T) {
	f := NewNoiseFilter(DefaultThresholds())

	noise := []string{
		"12:34", "9:05",
		"10月1日", "2025/10/1",
		"星期三", "周五",
		"上午", "昨天", "刚刚",
		"87%", "5G", "WiFi",
		"返回", "发送", "更多",
		"语音", "视频", "红包",
		"消息", "通讯录", "发现",
		"[语音]", "[图片]",
		"···", "…",
		"中国移动",
	}
	for _, s := range noise {
		if !f.IsNoiseText(s) {
			t.Errorf("IsNoiseText(%q) = false, want true", s)
		}
	}

	dialogue := []string{
		"好",   // single CJK char is a real reply
		"嗯嗯",
		"在吗",
		"下午三点见",       // contains 下午 but is not bare chrome
		"我到了",         // contains 我 but longer
		"明天10:30开会吗", // clock inside a sentence
		"ok",
	}
	for _, s := range dialogue {
		if f.IsNoiseText(s) {
			t.Errorf("IsNoiseText(%q) = true, want false", s)
		}
	}
}

func TestIsNoiseTextSingleSymbol(t *testing.T) {
	f := NewNoiseFilter(DefaultThresholds())

	for _, s := range []string{"·", "<", "+", ">"} {
		if !f.IsNoiseText(s) {
			t.Errorf("lone glyph %q should be noise", s)
		}
	}
	for _, s := range []string{"好", "a", "7"} {
		if f.IsNoiseText(s) {
			t.Errorf("single letter/digit/CJK %q should survive", s)
		}
	}
}

func TestInChromeBand(t *testing.T) {
	f := NewNoiseFilter(DefaultThresholds())

	const h = 1000.0
	if !f.InChromeBand(20, h) {
		t.Error("status bar region should be chrome")
	}
	if !f.InChromeBand(960, h) {
		t.Error("compose bar region should be chrome")
	}
	if f.InChromeBand(500, h) {
		t.Error("mid-screen should not be chrome")
	}
}

func TestFilterCombinesBandAndText(t *testing.T) {
	f := NewNoiseFilter(DefaultThresholds())

	boxes := []ocr.TextBox{
		{Text: "14:02", Quad: geometry.NewQuadFromRect(300, 490, 380, 510)}, // timestamp mid-screen
		{Text: "在吗", Quad: geometry.NewQuadFromRect(50, 400, 150, 440)},
		{Text: "你好", Quad: geometry.NewQuadFromRect(50, 10, 150, 30)}, // inside status bar
	}

	got := f.Filter(boxes, 800, 1000)
	if len(got) != 1 || got[0].Text != "在吗" {
		t.Fatalf("Filter() = %+v, want only 在吗", got)
	}
}

func TestLoadPatternFile(t *testing.T) {
	f := NewNoiseFilter(DefaultThresholds())

	path := filepath.Join(t.TempDir(), "patterns.txt")
	content := "# operator additions\n\n以下是新消息\n对方正在输入.*\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.LoadPatternFile(path); err != nil {
		t.Fatalf("LoadPatternFile() error: %v", err)
	}

	if !f.IsNoiseText("以下是新消息") {
		t.Error("operator pattern should match")
	}
	if !f.IsNoiseText("对方正在输入...") {
		t.Error("operator wildcard pattern should match")
	}
	if f.IsNoiseText("新消息内容在这里") {
		t.Error("anchoring must prevent substring matches")
	}
}

func TestLoadPatternFileBadRegex(t *testing.T) {
	f := NewNoiseFilter(DefaultThresholds())

	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte("([unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.LoadPatternFile(path); err == nil {
		t.Fatal("invalid pattern should return an error")
	}
}
