package onnxrt

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestFillCHW(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 255, 0, 51, 255
	}

	dst := make([]float32, 3*2*2)
	if err := FillCHW(dst, img, 2, 2, [3]float32{0, 0, 0}, [3]float32{1, 1, 1}); err != nil {
		t.Fatalf("FillCHW failed: %v", err)
	}
	// planes: R then G then B
	for i := 0; i < 4; i++ {
		if dst[i] != 1 || dst[4+i] != 0 || math.Abs(float64(dst[8+i])-0.2) > 1e-6 {
			t.Fatalf("Unexpected tensor %v", dst)
		}
	}

	if err := FillCHW(make([]float32, 5), img, 2, 2, ImageNetMean, ImageNetStd); err == nil {
		t.Error("Expected size mismatch error")
	}
}

func TestCHWToNRGBA(t *testing.T) {
	data := []float32{
		1, 0, // R
		0, 1.5, // G, clamped
		0.5, -1, // B, clamped
	}
	img, err := CHWToNRGBA(data, 2, 1)
	if err != nil {
		t.Fatalf("CHWToNRGBA failed: %v", err)
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{255, 0, 128, 255}) {
		t.Errorf("Unexpected pixel 0: %v", got)
	}
	if got := img.NRGBAAt(1, 0); got != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("Unexpected pixel 1: %v", got)
	}
	if _, err := CHWToNRGBA(data[:4], 2, 1); err == nil {
		t.Error("Expected short tensor error")
	}
}
