package ocr

import (
	"testing"
)

func TestParseDetectionsAttributeShape(t *testing.T) {
	payload := `{
		"rec_texts": ["你好", "", "在吗"],
		"rec_scores": [0.98, 0.5],
		"dt_polys": [
			[[10,10],[110,10],[110,40],[10,40]],
			[[10,50],[110,50],[110,80],[10,80]],
			[[10,90],[110,90],[110,120],[10,120]]
		]
	}`

	boxes, err := ParseDetections([]byte(payload))
	if err != nil {
		t.Fatalf("ParseDetections returned error: %v", err)
	}

	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2 (empty text dropped)", len(boxes))
	}
	if boxes[0].Text != "你好" || boxes[0].Confidence != 0.98 {
		t.Errorf("first box = %q conf=%v", boxes[0].Text, boxes[0].Confidence)
	}
	// Third detection has no score entry: confidence defaults to 0.
	if boxes[1].Text != "在吗" || boxes[1].Confidence != 0 {
		t.Errorf("second box = %q conf=%v, want 在吗 conf=0", boxes[1].Text, boxes[1].Confidence)
	}
	if boxes[1].Quad.Top() != 90 {
		t.Errorf("second box top = %v, want 90", boxes[1].Quad.Top())
	}
}

func TestParseDetectionsWrappedShape(t *testing.T) {
	payload := `{"result": {
		"rec_texts": ["好"],
		"rec_scores": [0.9],
		"dt_polys": [[[0,0],[10,0],[10,10],[0,10]]]
	}}`

	boxes, err := ParseDetections([]byte(payload))
	if err != nil {
		t.Fatalf("ParseDetections returned error: %v", err)
	}
	if len(boxes) != 1 || boxes[0].Text != "好" {
		t.Fatalf("got %+v, want one box 好", boxes)
	}
}

func TestParseDetectionsLegacyShape(t *testing.T) {
	payload := `[
		[[[10,10],[110,10],[110,40],[10,40]], ["第一行", 0.91]],
		[[[10,50],[110,50],[110,80],[10,80]], ["第二行"]],
		[[[10,90],[110,90]], ["坏的几何", 0.5]],
		"garbage entry"
	]`

	boxes, err := ParseDetections([]byte(payload))
	if err != nil {
		t.Fatalf("ParseDetections returned error: %v", err)
	}

	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2 (bad geometry and garbage skipped)", len(boxes))
	}
	if boxes[0].Text != "第一行" || boxes[0].Confidence != 0.91 {
		t.Errorf("first box = %q conf=%v", boxes[0].Text, boxes[0].Confidence)
	}
	if boxes[1].Text != "第二行" || boxes[1].Confidence != 0 {
		t.Errorf("missing score should default to 0, got %v", boxes[1].Confidence)
	}
}

func TestParseDetectionsEmptyAndMalformed(t *testing.T) {
	boxes, err := ParseDetections([]byte(""))
	if err != nil || boxes != nil {
		t.Errorf("empty payload: boxes=%v err=%v", boxes, err)
	}

	boxes, err = ParseDetections([]byte("null"))
	if err != nil || boxes != nil {
		t.Errorf("null payload: boxes=%v err=%v", boxes, err)
	}

	if _, err = ParseDetections([]byte("not json at all")); err == nil {
		t.Error("expected error for non-JSON payload")
	}
}
