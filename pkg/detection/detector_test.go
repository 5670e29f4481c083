package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/menta2k/passport-photo/pkg/client"
	"github.com/menta2k/passport-photo/pkg/types"
)

// fakeClient answers every request with a canned report
type fakeClient struct {
	report *types.FaceReport
	err    error
	prompt string
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a face", nil
}

func (f *fakeClient) LocateFaces(ctx context.Context, model, prompt, imgB64 string) (*types.FaceReport, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	// copy so repeated calls see the original boxes
	r := *f.report
	r.Faces = append([]types.Face(nil), f.report.Faces...)
	return &r, nil
}

func TestLocate(t *testing.T) {
	fc := &fakeClient{report: &types.FaceReport{Faces: []types.Face{
		{Box: types.Box{X: 0.25, Y: 0.1, W: 0.5, H: 0.4}, Confidence: 0.95},
		{Box: types.Box{X: 0.8, Y: 0.8, W: 0.1, H: 0.1}, Confidence: 0.1},
	}}}
	d := NewDetector(fc, DefaultOptions("test"))

	boxes, err := d.Locate(context.Background(), image.NewNRGBA(image.Rect(0, 0, 400, 500)))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("Expected low-confidence face to be dropped, got %d boxes", len(boxes))
	}
	want := types.BoundingBox{X: 100, Y: 50, W: 200, H: 200}
	if boxes[0] != want {
		t.Errorf("Expected %+v, got %+v", want, boxes[0])
	}
	if fc.prompt != DefaultPrompt {
		t.Error("Expected default prompt")
	}
}

func TestLocateUnscoredFace(t *testing.T) {
	report, err := client.ParseFaceReport(`{"faces": [{"box": {"x": 0.25, "y": 0.1, "w": 0.5, "h": 0.4}}], "description": "one person"}`)
	if err != nil {
		t.Fatalf("ParseFaceReport failed: %v", err)
	}
	d := NewDetector(&fakeClient{report: report}, DefaultOptions("test"))

	boxes, err := d.Locate(context.Background(), image.NewNRGBA(image.Rect(0, 0, 400, 500)))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(boxes) != 1 {
		t.Errorf("Expected the unscored face to be kept, got %d boxes", len(boxes))
	}
}

func TestLocatePixelAnswer(t *testing.T) {
	// the model saw a 1024x512 downscale and answered in its pixels
	fc := &fakeClient{report: &types.FaceReport{Faces: []types.Face{
		{Box: types.Box{X: 256, Y: 128, W: 512, H: 256}, Confidence: 1},
	}}}
	d := NewDetector(fc, DefaultOptions("test"))

	boxes, err := d.Locate(context.Background(), image.NewNRGBA(image.Rect(0, 0, 2048, 1024)))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	want := types.BoundingBox{X: 512, Y: 256, W: 1024, H: 512}
	if len(boxes) != 1 || boxes[0] != want {
		t.Errorf("Expected %+v, got %+v", want, boxes)
	}
}

func TestLocateNoFaces(t *testing.T) {
	d := NewDetector(&fakeClient{report: &types.FaceReport{Description: "empty room"}}, DefaultOptions("test"))
	boxes, err := d.Locate(context.Background(), image.NewNRGBA(image.Rect(0, 0, 100, 100)))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("Expected no boxes, got %v", boxes)
	}
}

func TestLocateClientError(t *testing.T) {
	boom := errors.New("connection refused")
	d := NewDetector(&fakeClient{err: boom}, DefaultOptions("test"))
	if _, err := d.Locate(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10))); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped client error, got %v", err)
	}
}

func TestNormalizeBox(t *testing.T) {
	got := normalizeBox(types.Box{X: 0.9, Y: -0.2, W: 0.5, H: 0.5}, 0, 0)
	want := types.Box{X: 0.9, Y: 0, W: 0.1, H: 0.5}
	if diff := got.W - want.W; got.X != want.X || got.Y != want.Y || diff > 1e-12 || diff < -1e-12 || got.H != want.H {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestSentSize(t *testing.T) {
	if got := sentSize(image.Pt(4000, 3000), 1024); got != image.Pt(1024, 768) {
		t.Errorf("Expected 1024x768, got %v", got)
	}
	if got := sentSize(image.Pt(600, 800), 1024); got != image.Pt(600, 800) {
		t.Errorf("Expected unchanged size, got %v", got)
	}
}

func TestVisionProbe(t *testing.T) {
	d := NewDetector(&fakeClient{}, DefaultOptions("test"))
	answer, err := d.TestVision(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)))
	if err != nil || answer != "a face" {
		t.Errorf("Unexpected answer %q, %v", answer, err)
	}
}
