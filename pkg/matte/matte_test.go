package matte

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/passport-photo/pkg/types"
)

// createPortrait draws a dark subject block on a light blue backdrop
func createPortrait(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{200, 220, 255, 255}
			if x >= width/4 && x < 3*width/4 && y >= height/4 {
				c = color.NRGBA{120, 70, 40, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestChromaAutoKey(t *testing.T) {
	c, err := NewChroma(DefaultChromaConfig())
	if err != nil {
		t.Fatalf("NewChroma failed: %v", err)
	}
	img := createPortrait(80, 100)
	m, err := c.Extract(context.Background(), img)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if m.Bounds().Size() != img.Bounds().Size() {
		t.Fatalf("Expected matte %v, got %v", img.Bounds().Size(), m.Bounds().Size())
	}
	if got := m.GrayAt(5, 5).Y; got != 0 {
		t.Errorf("Expected backdrop 0, got %d", got)
	}
	if got := m.GrayAt(40, 60).Y; got != 255 {
		t.Errorf("Expected subject 255, got %d", got)
	}
}

func TestChromaExplicitKey(t *testing.T) {
	c, err := NewChroma(ChromaConfig{Key: "#78462a", Tolerance: 0.05})
	if err != nil {
		t.Fatalf("NewChroma failed: %v", err)
	}
	// keying on the subject colour inverts the matte
	m, err := c.Extract(context.Background(), createPortrait(40, 40))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if m.GrayAt(20, 30).Y != 0 || m.GrayAt(1, 1).Y != 255 {
		t.Errorf("Unexpected matte values %d %d", m.GrayAt(20, 30).Y, m.GrayAt(1, 1).Y)
	}

	if _, err := NewChroma(ChromaConfig{Key: "blue"}); err == nil {
		t.Error("Expected invalid key error")
	}
	if _, err := NewChroma(ChromaConfig{Tolerance: -1}); err == nil {
		t.Error("Expected negative tolerance error")
	}
}

func TestRamp(t *testing.T) {
	cases := []struct {
		d, tol, soft float64
		want         uint8
	}{
		{0.01, 0.1, 0.1, 0},
		{0.1, 0.1, 0.1, 0},
		{0.125, 0.1, 0.1, 64},
		{0.2, 0.1, 0.1, 255},
		{0.11, 0.1, 0, 255},
	}
	for _, tc := range cases {
		if got := ramp(tc.d, tc.tol, tc.soft); got != tc.want {
			t.Errorf("ramp(%v, %v, %v) = %d, want %d", tc.d, tc.tol, tc.soft, got, tc.want)
		}
	}
}

func TestAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 14, 14))
	img.SetNRGBA(11, 12, color.NRGBA{255, 0, 0, 200})

	m, err := Alpha{}.Extract(context.Background(), img)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if m.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("Expected zero-origin 4x4 matte, got %v", m.Bounds())
	}
	if m.GrayAt(1, 2).Y != 200 || m.GrayAt(0, 0).Y != 0 {
		t.Errorf("Unexpected alpha values %d %d", m.GrayAt(1, 2).Y, m.GrayAt(0, 0).Y)
	}

	if _, err := (Alpha{}).Extract(context.Background(), createPortrait(4, 4)); !errors.Is(err, types.ErrMissingMatte) {
		t.Errorf("Expected ErrMissingMatte for opaque input, got %v", err)
	}
}

func TestProbabilityToGray(t *testing.T) {
	g := ProbabilityToGray([]float32{-2, 0, 2, 1}, 2, 2)
	want := []uint8{0, 128, 255, 191}
	for i, v := range want {
		if g.Pix[i] != v {
			t.Errorf("pixel %d: got %d, want %d", i, g.Pix[i], v)
		}
	}

	flat := ProbabilityToGray([]float32{0.9, 0.9}, 2, 1)
	if flat.Pix[0] != 255 || flat.Pix[1] != 255 {
		t.Errorf("Expected flat high prediction to be all subject, got %v", flat.Pix)
	}
}

func TestResizeGray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range g.Pix {
		g.Pix[i] = 77
	}
	out := ResizeGray(g, 10, 6)
	if out.Bounds().Dx() != 10 || out.Bounds().Dy() != 6 {
		t.Fatalf("Expected 10x6, got %v", out.Bounds().Size())
	}
	if out.GrayAt(5, 3).Y != 77 {
		t.Errorf("Expected 77, got %d", out.GrayAt(5, 3).Y)
	}
	if ResizeGray(g, 4, 4) != g {
		t.Error("Expected same-size resize to return the input")
	}
}

func BenchmarkChroma(b *testing.B) {
	c, _ := NewChroma(DefaultChromaConfig())
	img := createPortrait(826, 1062)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Extract(ctx, img)
	}
}
