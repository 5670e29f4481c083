package document

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/menta2k/passport-photo/pkg/processing"
	"github.com/menta2k/passport-photo/pkg/types"
)

// ErrSinglePage is returned when a raster sheet is asked for a second page.
var ErrSinglePage = errors.New("raster sheets hold a single page")

// Raster paints one page into a bitmap at a fixed DPI.
type Raster struct {
	page   types.PageSpec
	format string
	opts   Options
	sheet  *image.NRGBA
	scaled map[rasterKey]*image.NRGBA
}

type rasterKey struct {
	img  image.Image
	w, h int
}

// NewRaster creates a raster sheet writer. format is png, jpg or webp.
func NewRaster(page types.PageSpec, format string, opts Options) (*Raster, error) {
	if opts.DPI <= 0 {
		return nil, fmt.Errorf("%w: dpi %d", types.ErrInvalidPageSpec, opts.DPI)
	}
	return &Raster{
		page:   page,
		format: processing.NormalizeFormat(format),
		opts:   opts,
		scaled: make(map[rasterKey]*image.NRGBA),
	}, nil
}

// AddPage allocates the sheet. A second call fails with ErrSinglePage.
func (r *Raster) AddPage() error {
	if r.sheet != nil {
		return ErrSinglePage
	}
	size := PagePixels(r.page, r.opts.DPI)
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("%w: page is %v pixels at %d dpi", types.ErrInvalidPageSpec, size, r.opts.DPI)
	}
	r.sheet = imaging.New(size.X, size.Y, r.opts.Background)
	return nil
}

// PlaceImage draws img resized into the pixel box covering the cell,
// blending any transparency over the sheet background.
func (r *Raster) PlaceImage(img image.Image, x, y, w, h float64) error {
	if r.sheet == nil {
		return fmt.Errorf("no page to place image on")
	}
	dpi := r.opts.DPI
	top := r.page.Height - y - h
	x0, y0 := MMToPixels(x, dpi), MMToPixels(top, dpi)
	x1, y1 := MMToPixels(x+w, dpi), MMToPixels(top+h, dpi)
	if x1 <= x0 || y1 <= y0 {
		return fmt.Errorf("%w: cell %.2fx%.2fmm is below one pixel at %d dpi", types.ErrInvalidPageSpec, w, h, dpi)
	}

	key := rasterKey{img: img, w: x1 - x0, h: y1 - y0}
	scaled, ok := r.scaled[key]
	if !ok {
		scaled = imaging.Resize(img, key.w, key.h, imaging.Lanczos)
		r.scaled[key] = scaled
	}
	draw.Draw(r.sheet, image.Rect(x0, y0, x1, y1), scaled, image.Point{}, draw.Over)
	return nil
}

// Image returns the painted sheet, or nil before AddPage.
func (r *Raster) Image() *image.NRGBA { return r.sheet }

// Encode writes the sheet in the configured format.
func (r *Raster) Encode(w io.Writer) error {
	if r.sheet == nil {
		return fmt.Errorf("%w: document has no pages", types.ErrInvalidPageSpec)
	}
	return processing.EncodeImage(w, r.sheet, r.format, r.opts.Quality, r.opts.Lossless)
}
