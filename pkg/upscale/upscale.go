// Package upscale enlarges finished photos: interpolation kernels from
// x/image/draw and ONNX super-resolution models.
package upscale

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// TargetSize returns the size of img scaled by factor on each axis.
func TargetSize(b image.Rectangle, factor float64) (image.Point, error) {
	if factor < 1 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return image.Point{}, fmt.Errorf("upscale factor must be >= 1, got %v", factor)
	}
	return image.Pt(
		int(math.Round(float64(b.Dx())*factor)),
		int(math.Round(float64(b.Dy())*factor)),
	), nil
}

// Kernel scales with an interpolation kernel.
type Kernel struct {
	scaler draw.Scaler
}

// NewKernel picks the kernel by name: nearest, bilinear, approxbilinear or
// catmullrom (the default for "").
func NewKernel(name string) (*Kernel, error) {
	var s draw.Scaler
	switch strings.ToLower(name) {
	case "", "catmullrom", "catmull-rom":
		s = draw.CatmullRom
	case "bilinear":
		s = draw.BiLinear
	case "approxbilinear":
		s = draw.ApproxBiLinear
	case "nearest":
		s = draw.NearestNeighbor
	default:
		return nil, fmt.Errorf("unknown upscale kernel %q", name)
	}
	return &Kernel{scaler: s}, nil
}

// Upscale returns img enlarged by factor.
func (k *Kernel) Upscale(ctx context.Context, img image.Image, factor float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size, err := TargetSize(img.Bounds(), factor)
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	k.scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}
