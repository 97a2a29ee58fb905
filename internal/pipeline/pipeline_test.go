package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chatlens/transcript-worker/internal/errors"
	"github.com/chatlens/transcript-worker/internal/geometry"
	"github.com/chatlens/transcript-worker/internal/ocr"
)

// chatScreenshot paints a synthetic chat screen: gray canvas, green bubble
// for the sender line, white bubble for the partner line, optional title.
// Width doubles as the fakeEngine key, so every fixture uses a distinct one.
func chatScreenshot(t *testing.T, width int, withTitle bool) ([]byte, []ocr.TextBox) {
	t.Helper()
	img := makeCanvas(width, 600, chatGray)
	paintRect(img, 585, 135, 775, 205, bubbleGreen)
	paintRect(img, 25, 235, 215, 305, bubbleWhite)

	boxes := []ocr.TextBox{
		{Text: "你好", Quad: geometry.NewQuadFromRect(600, 150, 760, 190), Confidence: 0.98},
		{Text: "在吗", Quad: geometry.NewQuadFromRect(40, 250, 200, 290), Confidence: 0.97},
		{Text: "14:02", Quad: geometry.NewQuadFromRect(360, 480, 440, 500), Confidence: 0.95},
	}
	if withTitle {
		boxes = append(boxes, ocr.TextBox{
			Text: "小明", Quad: geometry.NewQuadFromRect(360, 40, 440, 70), Confidence: 0.99,
		})
	}
	return encodePNG(t, img), boxes
}

func TestReconstructTwoImages(t *testing.T) {
	rawA, boxesA := chatScreenshot(t, 800, true)
	rawB, boxesB := chatScreenshot(t, 810, true)
	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{800: boxesA, 810: boxesB}}

	r := NewReconstructor(engine, DefaultThresholds(), testLogger())
	conv, err := r.Reconstruct(context.Background(), [][]byte{rawA, rawB}, false)
	if err != nil {
		t.Fatalf("Reconstruct() error: %v", err)
	}

	if conv.PartnerName != "小明" {
		t.Errorf("partner name = %q, want 小明", conv.PartnerName)
	}
	want := "我：你好\n小明：在吗\n我：你好\n小明：在吗"
	if conv.Transcript != want {
		t.Errorf("transcript = %q, want %q", conv.Transcript, want)
	}
	if conv.Refined {
		t.Error("heuristic path must not mark the conversation refined")
	}
	if conv.ImageCount != 2 {
		t.Errorf("image count = %d, want 2", conv.ImageCount)
	}
	if strings.Contains(conv.Transcript, "14:02") {
		t.Error("timestamp chrome leaked into the transcript")
	}
}

func TestReconstructTitleNeverBecomesDialogue(t *testing.T) {
	raw, boxes := chatScreenshot(t, 800, true)
	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{800: boxes}}

	r := NewReconstructor(engine, DefaultThresholds(), testLogger())
	conv, err := r.Reconstruct(context.Background(), [][]byte{raw}, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(conv.Transcript, "\n") {
		if strings.HasSuffix(line, "：小明") {
			t.Fatalf("title text appeared as a message: %q", line)
		}
	}
}

func TestReconstructOrderFollowsInput(t *testing.T) {
	// Two images with distinct single messages; ordering must track input
	// position, not pixel position or content.
	imgA := makeCanvas(800, 600, chatGray)
	paintRect(imgA, 585, 135, 775, 205, bubbleGreen)
	rawA := encodePNG(t, imgA)
	imgB := makeCanvas(820, 600, chatGray)
	paintRect(imgB, 25, 235, 215, 305, bubbleWhite)
	rawB := encodePNG(t, imgB)

	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{
		800: {{Text: "晚上一起吃饭吗", Quad: geometry.NewQuadFromRect(600, 150, 760, 190)}},
		820: {{Text: "好呀几点", Quad: geometry.NewQuadFromRect(40, 250, 200, 290)}},
	}}
	r := NewReconstructor(engine, DefaultThresholds(), testLogger())

	forward, err := r.Reconstruct(context.Background(), [][]byte{rawA, rawB}, false)
	if err != nil {
		t.Fatal(err)
	}
	reversed, err := r.Reconstruct(context.Background(), [][]byte{rawB, rawA}, false)
	if err != nil {
		t.Fatal(err)
	}

	if want := "我：晚上一起吃饭吗\n对方：好呀几点"; forward.Transcript != want {
		t.Errorf("forward transcript = %q, want %q", forward.Transcript, want)
	}
	if want := "对方：好呀几点\n我：晚上一起吃饭吗"; reversed.Transcript != want {
		t.Errorf("reversed transcript = %q, want %q", reversed.Transcript, want)
	}
	for i, m := range forward.Messages {
		if m.ImageIndex != i {
			t.Errorf("message %d image index = %d, want %d", i, m.ImageIndex, i)
		}
	}
}

func TestReconstructNoTitleUsesDefaultLabel(t *testing.T) {
	raw, boxes := chatScreenshot(t, 800, false)
	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{800: boxes}}

	r := NewReconstructor(engine, DefaultThresholds(), testLogger())
	conv, err := r.Reconstruct(context.Background(), [][]byte{raw}, false)
	if err != nil {
		t.Fatal(err)
	}
	if conv.PartnerName != "" {
		t.Errorf("partner name = %q, want empty", conv.PartnerName)
	}
	if want := "我：你好\n对方：在吗"; conv.Transcript != want {
		t.Errorf("transcript = %q, want %q", conv.Transcript, want)
	}
}

func TestReconstructSkipsBadImages(t *testing.T) {
	raw, boxes := chatScreenshot(t, 800, true)
	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{800: boxes}}

	r := NewReconstructor(engine, DefaultThresholds(), testLogger())
	conv, err := r.Reconstruct(context.Background(), [][]byte{[]byte("junk"), raw}, false)
	if err != nil {
		t.Fatalf("one good image should be enough, got error: %v", err)
	}
	if conv.PartnerName != "小明" || conv.Transcript == "" {
		t.Fatalf("good image must still be processed, got %+v", conv)
	}
}

func TestReconstructAllImagesMalformed(t *testing.T) {
	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{}}
	r := NewReconstructor(engine, DefaultThresholds(), testLogger())

	_, err := r.Reconstruct(context.Background(), [][]byte{[]byte("junk"), []byte("more junk")}, false)
	if err == nil {
		t.Fatal("all-malformed input must fail")
	}
	var rerr *errors.ReconstructionError
	if !stderrors.As(err, &rerr) || rerr.Code != errors.ErrorNoUsableImages {
		t.Fatalf("error = %v, want code %s", err, errors.ErrorNoUsableImages)
	}
}

func TestReconstructAllOCRFailed(t *testing.T) {
	raw := encodePNG(t, makeCanvas(640, 480, chatGray))
	engine := &fakeEngine{err: stderrors.New("engine unavailable")}
	r := NewReconstructor(engine, DefaultThresholds(), testLogger())

	_, err := r.Reconstruct(context.Background(), [][]byte{raw}, false)
	if err == nil {
		t.Fatal("all-failed OCR must fail")
	}
	var rerr *errors.ReconstructionError
	if !stderrors.As(err, &rerr) || rerr.Code != errors.ErrorNoUsableImages {
		t.Fatalf("error = %v, want code %s", err, errors.ErrorNoUsableImages)
	}
	if strings.Contains(rerr.Message, "decoded") {
		t.Fatalf("message %q must not claim a decode failure", rerr.Message)
	}
}

func TestReconstructNoTextIsNotAnError(t *testing.T) {
	raw := encodePNG(t, makeCanvas(640, 480, chatGray))
	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{}} // no detections
	r := NewReconstructor(engine, DefaultThresholds(), testLogger())

	conv, err := r.Reconstruct(context.Background(), [][]byte{raw}, false)
	if err != nil {
		t.Fatalf("textless image is a normal outcome, got error: %v", err)
	}
	if conv.Transcript != "" || conv.PartnerName != "" {
		t.Fatalf("expected empty conversation, got %+v", conv)
	}
}

func TestReconstructEmptyInput(t *testing.T) {
	r := NewReconstructor(&fakeEngine{}, DefaultThresholds(), testLogger())
	conv, err := r.Reconstruct(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("empty input should not fail: %v", err)
	}
	if conv.Transcript != "" {
		t.Fatalf("expected empty conversation, got %+v", conv)
	}
}

type stubRefiner struct {
	transcript string
	name       string
	err        error

	gotDump string
	gotName string
}

func (s *stubRefiner) Refine(_ context.Context, dump, detectedName string) (string, string, error) {
	s.gotDump = dump
	s.gotName = detectedName
	return s.transcript, s.name, s.err
}

func TestReconstructRefinementPath(t *testing.T) {
	raw, boxes := chatScreenshot(t, 800, true)
	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{800: boxes}}
	ref := &stubRefiner{transcript: "我：你好\n小明：在吗，最近怎么样？", name: "小明"}

	r := NewReconstructor(engine, DefaultThresholds(), testLogger(), WithRefiner(ref))
	conv, err := r.Reconstruct(context.Background(), [][]byte{raw}, true)
	if err != nil {
		t.Fatal(err)
	}

	if !conv.Refined {
		t.Error("conversation should be marked refined")
	}
	if conv.Transcript != ref.transcript || conv.PartnerName != "小明" {
		t.Fatalf("refined output not used: %+v", conv)
	}
	if ref.gotName != "小明" {
		t.Errorf("detected name not passed to refiner, got %q", ref.gotName)
	}
	if !strings.Contains(ref.gotDump, "=== 图片 1 ===") {
		t.Errorf("tagged dump missing image marker:\n%s", ref.gotDump)
	}
	if !strings.Contains(ref.gotDump, "[我] 你好") || !strings.Contains(ref.gotDump, "[小明] 在吗") {
		t.Errorf("tagged dump missing speaker lines:\n%s", ref.gotDump)
	}
}

func TestReconstructRefinementFallback(t *testing.T) {
	raw, boxes := chatScreenshot(t, 800, true)
	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{800: boxes}}
	ref := &stubRefiner{err: fmt.Errorf("upstream unavailable")}

	r := NewReconstructor(engine, DefaultThresholds(), testLogger(), WithRefiner(ref))
	refined, err := r.Reconstruct(context.Background(), [][]byte{raw}, true)
	if err != nil {
		t.Fatalf("refinement failure must not fail the job: %v", err)
	}
	heuristic, err := r.Reconstruct(context.Background(), [][]byte{raw}, false)
	if err != nil {
		t.Fatal(err)
	}

	if refined.Refined {
		t.Error("fallback output must not be marked refined")
	}
	if refined.Transcript != heuristic.Transcript || refined.PartnerName != heuristic.PartnerName {
		t.Fatalf("fallback output differs from heuristic: %+v vs %+v", refined, heuristic)
	}
}

func TestReconstructRefinementDisabledSkipsRefiner(t *testing.T) {
	raw, boxes := chatScreenshot(t, 800, true)
	engine := &fakeEngine{byWidth: map[int][]ocr.TextBox{800: boxes}}
	ref := &stubRefiner{transcript: "should not be used"}

	r := NewReconstructor(engine, DefaultThresholds(), testLogger(), WithRefiner(ref))
	conv, err := r.Reconstruct(context.Background(), [][]byte{raw}, false)
	if err != nil {
		t.Fatal(err)
	}
	if conv.Refined || ref.gotDump != "" {
		t.Fatal("refiner must not run when refinement is disabled")
	}
}
