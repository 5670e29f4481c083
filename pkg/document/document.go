// Package document renders page layouts to files: PDF through fpdf and
// single-page raster sheets through imaging.
package document

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/menta2k/passport-photo/pkg/layout"
	"github.com/menta2k/passport-photo/pkg/processing"
	"github.com/menta2k/passport-photo/pkg/types"
)

const mmPerInch = 25.4

// Options controls how pages are written
type Options struct {
	DPI        int         // raster sheets only
	Background color.NRGBA // raster sheets only; PDF pages are white
	Quality    int         // JPEG/WebP quality, also used for images embedded in PDF
	Lossless   bool        // WebP
	// Embed selects the encoding of photos inside a PDF: "png" or "jpg".
	Embed string
	Title string
}

// DefaultOptions returns 300 DPI, white, quality 95, PNG embedding.
func DefaultOptions() Options {
	return Options{
		DPI:        300,
		Background: color.NRGBA{255, 255, 255, 255},
		Quality:    95,
		Embed:      "png",
	}
}

// Document is a canvas that can be serialized once all photos are placed.
type Document interface {
	layout.Canvas
	Encode(w io.Writer) error
}

// New returns the document writer for format (pdf, png, jpg or webp).
func New(format string, page types.PageSpec, opts Options) (Document, error) {
	if page.Width <= 0 || page.Height <= 0 {
		return nil, fmt.Errorf("%w: page %.2fx%.2fmm", types.ErrInvalidPageSpec, page.Width, page.Height)
	}
	switch f := processing.NormalizeFormat(format); f {
	case "pdf":
		return NewPDF(page, opts), nil
	case "png", "jpg", "webp":
		return NewRaster(page, f, opts)
	default:
		return nil, fmt.Errorf("%w: document format %q", types.ErrUnsupportedFormat, format)
	}
}

// PagePixels returns the pixel size of a page at dpi.
func PagePixels(page types.PageSpec, dpi int) image.Point {
	return image.Pt(MMToPixels(page.Width, dpi), MMToPixels(page.Height, dpi))
}

// MMToPixels converts a length to whole pixels at dpi.
func MMToPixels(mm float64, dpi int) int {
	return int(math.Round(mm / mmPerInch * float64(dpi)))
}
