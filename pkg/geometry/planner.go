package geometry

import (
	"fmt"
	"image"
	"math"

	"github.com/menta2k/passport-photo/pkg/types"
)

// Padding holds the crop padding as multiples of the face size.
// Top and bottom differ: passport framing leaves more room for
// shoulders below the face than for the forehead above it.
type Padding struct {
	X      float64 `json:"x"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Config holds configuration for crop planning
type Config struct {
	Padding     Padding
	TargetRatio float64 // width / height
}

// DefaultConfig returns the 3:4 portrait framing.
func DefaultConfig() Config {
	return Config{
		Padding:     Padding{X: 0.4, Top: 0.5, Bottom: 1.1},
		TargetRatio: 3.0 / 4.0,
	}
}

// Planner derives a padded, aspect-correct crop rectangle from a face box
type Planner struct {
	config Config
}

// New creates a Planner with default configuration
func New() *Planner {
	return &Planner{config: DefaultConfig()}
}

// NewWithConfig creates a Planner with custom configuration
func NewWithConfig(config Config) *Planner {
	return &Planner{config: config}
}

// Config returns the planner configuration.
func (p *Planner) Config() Config {
	return p.config
}

// SelectFace picks the largest box by area. Ties go to the earliest box.
func SelectFace(boxes []types.BoundingBox) (types.BoundingBox, error) {
	if len(boxes) == 0 {
		return types.BoundingBox{}, types.ErrNoFaceDetected
	}
	best := boxes[0]
	for _, b := range boxes[1:] {
		if b.Area() > best.Area() {
			best = b
		}
	}
	return best, nil
}

// Plan selects the authoritative face from boxes and plans its crop.
func (p *Planner) Plan(bounds types.Size, boxes []types.BoundingBox) (types.BoundingBox, types.CropRect, error) {
	face, err := SelectFace(boxes)
	if err != nil {
		return types.BoundingBox{}, types.CropRect{}, err
	}
	crop, err := p.PlanCrop(bounds, face)
	return face, crop, err
}

// PlanCrop computes the crop for one face using the planner configuration.
func (p *Planner) PlanCrop(bounds types.Size, face types.BoundingBox) (types.CropRect, error) {
	return PlanCrop(bounds, face, p.config.Padding, p.config.TargetRatio)
}

// PlanCrop pads the face box, clamps it to the image and shrinks the longer
// side about its centre until width/height equals targetRatio.
func PlanCrop(bounds types.Size, face types.BoundingBox, pad Padding, targetRatio float64) (types.CropRect, error) {
	if bounds.W <= 0 || bounds.H <= 0 {
		return types.CropRect{}, fmt.Errorf("%w: image bounds %dx%d", types.ErrDegenerateCrop, bounds.W, bounds.H)
	}
	if targetRatio <= 0 || math.IsNaN(targetRatio) || math.IsInf(targetRatio, 0) {
		return types.CropRect{}, fmt.Errorf("%w: target ratio %v", types.ErrInvalidCanvasSpec, targetRatio)
	}
	if pad.X < 0 || pad.Top < 0 || pad.Bottom < 0 {
		return types.CropRect{}, fmt.Errorf("negative padding %+v", pad)
	}

	// Detectors may report boxes that poke out of the frame.
	clipped := face.Rect().Intersect(boundsRect(bounds))
	if clipped.Empty() {
		return types.CropRect{}, fmt.Errorf("%w: face box %+v outside image %dx%d",
			types.ErrDegenerateCrop, face, bounds.W, bounds.H)
	}
	fx, fy := float64(clipped.Min.X), float64(clipped.Min.Y)
	fw, fh := float64(clipped.Dx()), float64(clipped.Dy())

	x1 := fx - pad.X*fw
	x2 := fx + fw + pad.X*fw
	y1 := fy - pad.Top*fh
	y2 := fy + fh + pad.Bottom*fh

	// Each edge is clamped on its own.
	W, H := float64(bounds.W), float64(bounds.H)
	x1 = math.Max(0, x1)
	y1 = math.Max(0, y1)
	x2 = math.Min(W, x2)
	y2 = math.Min(H, y2)

	if x2-x1 <= 0 || y2-y1 <= 0 {
		return types.CropRect{}, fmt.Errorf("%w: clamped to %.1fx%.1f", types.ErrDegenerateCrop, x2-x1, y2-y1)
	}

	crop := enforceRatio(types.CropRect{X1: x1, Y1: y1, X2: x2, Y2: y2}, targetRatio, W, H)

	if crop.Width() < 1 || crop.Height() < 1 || crop.Rect().Empty() {
		return types.CropRect{}, fmt.Errorf("%w: %.2fx%.2f after ratio enforcement",
			types.ErrDegenerateCrop, crop.Width(), crop.Height())
	}
	return crop, nil
}

func enforceRatio(c types.CropRect, ratio, imgW, imgH float64) types.CropRect {
	w, h := c.Width(), c.Height()
	if w/h > ratio {
		newW := h * ratio
		cx := (c.X1 + c.X2) / 2
		c.X1, c.X2 = fit(cx-newW/2, newW, imgW)
		return c
	}

	newH := w / ratio
	cy := (c.Y1 + c.Y2) / 2
	c.Y1, c.Y2 = fit(cy-newH/2, newH, imgH)
	return c
}

// fit places a span of length n starting at start inside [0, limit],
// sliding it back when rounding pushes it past either end.
func fit(start, n, limit float64) (float64, float64) {
	start = math.Max(0, start)
	if start+n > limit {
		start = math.Max(0, limit-n)
	}
	return start, start + n
}

func boundsRect(s types.Size) image.Rectangle {
	return image.Rect(0, 0, s.W, s.H)
}
