package matte

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/menta2k/passport-photo/pkg/types"
)

// ChromaConfig tunes the chroma key. Distances are CIE Lab distances in
// go-colorful units, where 1.0 spans black to white.
type ChromaConfig struct {
	// Key is the backdrop colour as hex; empty samples the image border.
	Key       string  `json:"key" yaml:"key"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"` // fully background below this
	Softness  float64 `json:"softness" yaml:"softness"`   // ramp width above Tolerance
	BorderPct float64 `json:"border_pct" yaml:"border_pct"`
}

// DefaultChromaConfig samples the backdrop from a 3% frame.
func DefaultChromaConfig() ChromaConfig {
	return ChromaConfig{Tolerance: 0.08, Softness: 0.06, BorderPct: 0.03}
}

// Chroma separates a subject from a roughly uniform backdrop.
type Chroma struct {
	cfg ChromaConfig
	key *colorful.Color
}

// NewChroma validates cfg and parses the key colour if present.
func NewChroma(cfg ChromaConfig) (*Chroma, error) {
	if cfg.Tolerance < 0 || cfg.Softness < 0 {
		return nil, fmt.Errorf("chroma tolerance and softness must not be negative")
	}
	c := &Chroma{cfg: cfg}
	if cfg.Key != "" {
		k, err := colorful.Hex(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid chroma key %q: %w", cfg.Key, err)
		}
		c.key = &k
	}
	return c, nil
}

// Extract builds a matte that is 0 on the backdrop and 255 on the subject.
func (c *Chroma) Extract(ctx context.Context, img image.Image) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", types.ErrMissingMatte)
	}

	key := c.key
	if key == nil {
		k := borderMean(src, c.cfg.BorderPct)
		key = &k
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	cache := make(map[[3]uint8]uint8)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			rgb := [3]uint8{row[x*4], row[x*4+1], row[x*4+2]}
			a, ok := cache[rgb]
			if !ok {
				d := colorful.Color{
					R: float64(rgb[0]) / 255,
					G: float64(rgb[1]) / 255,
					B: float64(rgb[2]) / 255,
				}.DistanceLab(*key)
				a = ramp(d, c.cfg.Tolerance, c.cfg.Softness)
				cache[rgb] = a
			}
			out.Pix[y*out.Stride+x] = a
		}
	}
	return out, nil
}

func ramp(d, tol, soft float64) uint8 {
	switch {
	case d <= tol:
		return 0
	case soft <= 0 || d >= tol+soft:
		return 255
	default:
		return uint8((d-tol)/soft*255 + 0.5)
	}
}

// borderMean averages the top band and side bands of img, each pct of the
// shorter side wide. The bottom edge usually holds shoulders.
func borderMean(img *image.NRGBA, pct float64) colorful.Color {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	t := int(pct * float64(min(w, h)))
	if t < 1 {
		t = 1
	}
	var r, g, b, n float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y >= t && x >= t && x < w-t {
				continue
			}
			c := img.NRGBAAt(x, y)
			r += float64(c.R)
			g += float64(c.G)
			b += float64(c.B)
			n++
		}
	}
	k, _ := colorful.MakeColor(color.NRGBA{
		R: uint8(r/n + 0.5),
		G: uint8(g/n + 0.5),
		B: uint8(b/n + 0.5),
		A: 255,
	})
	return k
}
