package matte

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/passport-photo/pkg/types"
)

// Alpha reuses the transparency of an already cut-out input.
type Alpha struct{}

// Extract returns the alpha channel of img. Fully opaque images have no
// cut-out and fail with ErrMissingMatte.
func (Alpha) Extract(ctx context.Context, img image.Image) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return nil, fmt.Errorf("%w: image has no transparency", types.ErrMissingMatte)
	}

	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i := range out.Pix {
		out.Pix[i] = src.Pix[i*4+3]
	}
	return out, nil
}
