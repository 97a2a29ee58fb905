package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"testing"

	"github.com/chatlens/transcript-worker/internal/logging"
	"github.com/chatlens/transcript-worker/internal/ocr"
)

var (
	bubbleGreen = color.RGBA{R: 149, G: 236, B: 105, A: 255} // sender bubble
	bubbleWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	chatGray    = color.RGBA{R: 128, G: 128, B: 128, A: 255} // neither green nor neutral
)

func testLogger() *logging.Logger {
	return logging.NewLoggerTo(io.Discard, "test")
}

func makeCanvas(w, h int, bg color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img
}

func paintRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	draw.Draw(img, image.Rect(x0, y0, x1, y1), image.NewUniform(c), image.Point{}, draw.Src)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// normFromImage wraps an already-decoded image without any rescaling.
func normFromImage(img image.Image) *NormalizedImage {
	b := img.Bounds()
	return &NormalizedImage{Img: img, ScaleX: 1, ScaleY: 1, OrigWidth: b.Dx(), OrigHeight: b.Dy()}
}

// fakeEngine returns preset detections keyed by image width, so each
// synthetic test image gets its own result set even under concurrency.
type fakeEngine struct {
	byWidth map[int][]ocr.TextBox
	err     error
}

func (f *fakeEngine) Detect(_ context.Context, img image.Image) ([]ocr.TextBox, error) {
	if f.err != nil {
		return nil, f.err
	}
	boxes := f.byWidth[img.Bounds().Dx()]
	out := make([]ocr.TextBox, len(boxes))
	copy(out, boxes)
	return out, nil
}

func (f *fakeEngine) Name() string { return "fake" }
