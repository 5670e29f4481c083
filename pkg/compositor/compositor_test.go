package compositor

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/passport-photo/pkg/types"
)

var (
	white = color.NRGBA{255, 255, 255, 255}
	red   = color.NRGBA{255, 0, 0, 255}
)

// createTestImage creates a solid test image
func createTestImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func createMatte(width, height int, v uint8) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, width, height))
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

func TestCompositeExactCanvasSize(t *testing.T) {
	c := New()
	canvas := types.CanvasSpec{Width: 826, Height: 1062}

	crops := []types.Size{{W: 300, H: 400}, {W: 3000, H: 4000}, {W: 57, H: 76}, {W: 826, H: 1062}}
	for _, s := range crops {
		crop := createTestImage(s.W, s.H, red)
		out, err := c.Composite(crop, nil, Options{Canvas: canvas})
		if err != nil {
			t.Fatalf("Composite(%v) failed: %v", s, err)
		}
		if out.Bounds().Dx() != canvas.Width || out.Bounds().Dy() != canvas.Height {
			t.Errorf("crop %v: expected %dx%d, got %v", s, canvas.Width, canvas.Height, out.Bounds().Size())
		}
	}
}

func TestCompositeMatteBlend(t *testing.T) {
	c := New()
	canvas := types.CanvasSpec{Width: 30, Height: 40}
	crop := createTestImage(60, 80, red)

	out, err := c.Composite(crop, createMatte(60, 80, 0), Options{Canvas: canvas, Background: white})
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if got := out.NRGBAAt(15, 20); got != white {
		t.Errorf("Expected background where matte is 0, got %v", got)
	}

	out, err = c.Composite(crop, createMatte(60, 80, 255), Options{Canvas: canvas, Background: white})
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if got := out.NRGBAAt(15, 20); got != red {
		t.Errorf("Expected subject where matte is 255, got %v", got)
	}
}

func TestApplyMatteHalfBlend(t *testing.T) {
	subject := createTestImage(4, 4, color.NRGBA{200, 100, 0, 255})
	out, err := ApplyMatte(subject, createMatte(4, 4, 128), color.NRGBA{0, 0, 0, 255})
	if err != nil {
		t.Fatalf("ApplyMatte failed: %v", err)
	}
	got := out.NRGBAAt(1, 1)
	// 128/255 of 200 and 100
	if got.R != 100 || got.G != 50 || got.B != 0 || got.A != 255 {
		t.Errorf("Expected {100 50 0 255}, got %v", got)
	}
}

func TestCompositeMatteMismatch(t *testing.T) {
	c := New()
	crop := createTestImage(60, 80, red)
	_, err := c.Composite(crop, createMatte(10, 10, 255), Options{Canvas: types.CanvasSpec{Width: 30, Height: 40}})
	if !errors.Is(err, types.ErrMissingMatte) {
		t.Errorf("Expected ErrMissingMatte, got %v", err)
	}
}

func TestCompositeInvalidCanvas(t *testing.T) {
	c := New()
	crop := createTestImage(60, 80, red)
	for _, canvas := range []types.CanvasSpec{{Width: 0, Height: 10}, {Width: 10, Height: -1}} {
		if _, err := c.Composite(crop, nil, Options{Canvas: canvas}); !errors.Is(err, types.ErrInvalidCanvasSpec) {
			t.Errorf("canvas %+v: expected ErrInvalidCanvasSpec, got %v", canvas, err)
		}
	}
}

func TestEnhance(t *testing.T) {
	img := createTestImage(2, 2, color.NRGBA{10, 100, 250, 255})

	out := Enhance(img, Enhancement{Alpha: 1.5, Beta: 20})
	got := out.NRGBAAt(0, 0)
	if got.R != 35 || got.G != 170 || got.B != 255 {
		t.Errorf("Expected {35 170 255}, got %v", got)
	}
	if got.A != 255 {
		t.Errorf("Expected alpha untouched, got %d", got.A)
	}

	out = Enhance(img, Enhancement{Alpha: 1, Beta: -50})
	if got := out.NRGBAAt(0, 0); got.R != 0 || got.G != 50 {
		t.Errorf("Expected clamp at 0, got %v", got)
	}

	out = Enhance(img, Enhancement{Alpha: 1, Beta: 0})
	if got := out.NRGBAAt(1, 1); got != img.NRGBAAt(1, 1) {
		t.Errorf("Expected identity, got %v", got)
	}
}

func TestAddBorder(t *testing.T) {
	img := createTestImage(30, 40, red)
	black := color.NRGBA{0, 0, 0, 255}

	out := AddBorder(img, Border{Thickness: 5, Color: black})
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 50 {
		t.Fatalf("Expected 40x50, got %v", out.Bounds().Size())
	}
	if got := out.NRGBAAt(0, 0); got != black {
		t.Errorf("Expected border colour in corner, got %v", got)
	}
	if got := out.NRGBAAt(5, 5); got != red {
		t.Errorf("Expected photo inside border, got %v", got)
	}

	out = AddBorder(img, Border{Thickness: 0, Color: black})
	if out.Bounds().Size() != img.Bounds().Size() {
		t.Errorf("Expected unchanged size without border, got %v", out.Bounds().Size())
	}
}

func TestCompositeOrder(t *testing.T) {
	c := New()
	crop := createTestImage(60, 80, color.NRGBA{100, 100, 100, 255})
	opts := Options{
		Canvas:     types.CanvasSpec{Width: 30, Height: 40},
		Background: color.NRGBA{100, 100, 100, 255},
		Enhance:    &Enhancement{Alpha: 2, Beta: 0},
		Border:     &Border{Thickness: 2, Color: color.NRGBA{0, 0, 255, 255}},
	}

	out, err := c.Composite(crop, createMatte(60, 80, 0), opts)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if out.Bounds().Dx() != 34 || out.Bounds().Dy() != 44 {
		t.Fatalf("Expected bordered 34x44, got %v", out.Bounds().Size())
	}
	// enhancement runs after matting, the border is drawn last and is not enhanced
	if got := out.NRGBAAt(10, 10); got.R != 200 {
		t.Errorf("Expected enhanced background 200, got %v", got)
	}
	if got := out.NRGBAAt(0, 0); got.B != 255 || got.R != 0 {
		t.Errorf("Expected raw border colour, got %v", got)
	}
}

func BenchmarkApplyMatte(b *testing.B) {
	subject := createTestImage(826, 1062, red)
	matte := createMatte(826, 1062, 200)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ApplyMatte(subject, matte, white)
	}
}
