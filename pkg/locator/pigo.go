// Package locator finds faces without a remote model: a pigo cascade
// detector and a fixed-box locator for pre-framed inputs.
package locator

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"

	"github.com/menta2k/passport-photo/pkg/types"
)

// PigoConfig tunes the cascade scan
type PigoConfig struct {
	CascadePath string  `json:"cascade_path" yaml:"cascade_path"`
	MaxDim      int     `json:"max_dim" yaml:"max_dim"`           // detection runs on a downscale
	MinSize     int     `json:"min_size" yaml:"min_size"`         // pixels, on the downscale
	MaxSizePct  float64 `json:"max_size_pct" yaml:"max_size_pct"` // of the shorter side
	ShiftFactor float64 `json:"shift_factor" yaml:"shift_factor"`
	ScaleFactor float64 `json:"scale_factor" yaml:"scale_factor"`
	IoU         float64 `json:"iou" yaml:"iou"`
	MinQuality  float32 `json:"min_quality" yaml:"min_quality"`
}

// DefaultPigoConfig expects the stock facefinder cascade in the working directory.
func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		CascadePath: "facefinder",
		MaxDim:      1200,
		MinSize:     40,
		MaxSizePct:  0.8,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		IoU:         0.2,
		MinQuality:  5,
	}
}

// Pigo detects faces with a pixel-intensity-comparison cascade.
type Pigo struct {
	cfg        PigoConfig
	classifier *pigo.Pigo
}

// NewPigo reads and unpacks the cascade file named in cfg.
func NewPigo(cfg PigoConfig) (*Pigo, error) {
	data, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("face cascade %q not found (download https://github.com/esimov/pigo/raw/master/cascade/facefinder): %w",
				cfg.CascadePath, err)
		}
		return nil, fmt.Errorf("error reading cascade file: %w", err)
	}
	return NewPigoFromBytes(cfg, data)
}

// NewPigoFromBytes unpacks an in-memory cascade.
func NewPigoFromBytes(cfg PigoConfig, cascade []byte) (*Pigo, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking cascade file: %w", err)
	}
	return &Pigo{cfg: cfg, classifier: classifier}, nil
}

// Locate returns every face above the quality threshold, in pixel
// coordinates of img.
func (p *Pigo) Locate(ctx context.Context, img image.Image) ([]types.BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	scaled, scale := downscale(img, p.cfg.MaxDim)
	gray := imaging.Grayscale(scaled)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()

	// grayscale NRGBA keeps the luma in every colour channel
	pixels := make([]uint8, w*h)
	for i := range pixels {
		pixels[i] = gray.Pix[i*4]
	}

	maxSize := int(float64(min(w, h)) * p.cfg.MaxSizePct)
	if maxSize < p.cfg.MinSize {
		return nil, nil
	}
	params := pigo.CascadeParams{
		MinSize:     p.cfg.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: p.cfg.ShiftFactor,
		ScaleFactor: p.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   h,
			Cols:   w,
			Dim:    w,
		},
	}

	dets := p.classifier.RunCascade(params, 0.0)
	dets = p.classifier.ClusterDetections(dets, p.cfg.IoU)

	boxes := make([]types.BoundingBox, 0, len(dets))
	for _, d := range dets {
		if d.Q < p.cfg.MinQuality {
			continue
		}
		if box, ok := detectionBox(d, scale, b.Dx(), b.Dy()); ok {
			boxes = append(boxes, box)
		}
	}
	return boxes, nil
}

// downscale shrinks img so its longer side is at most maxDim and returns
// the factor applied.
func downscale(img image.Image, maxDim int) (image.Image, float64) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img, 1
	}
	scale := float64(maxDim) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	return imaging.Resize(img, nw, nh, imaging.Box), scale
}

// detectionBox converts a centre/size detection on the downscale into a
// clamped box on the source image.
func detectionBox(d pigo.Detection, scale float64, imgW, imgH int) (types.BoundingBox, bool) {
	size := float64(d.Scale) / scale
	cx := float64(d.Col) / scale
	cy := float64(d.Row) / scale

	x0 := int(math.Round(math.Max(0, cx-size/2)))
	y0 := int(math.Round(math.Max(0, cy-size/2)))
	x1 := int(math.Round(math.Min(float64(imgW), cx+size/2)))
	y1 := int(math.Round(math.Min(float64(imgH), cy+size/2)))
	if x1 <= x0 || y1 <= y0 {
		return types.BoundingBox{}, false
	}
	return types.BoundingBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}, true
}
