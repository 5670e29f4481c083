package document

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"

	"github.com/menta2k/passport-photo/pkg/types"
)

// PDF writes pages at their physical size in millimetres.
type PDF struct {
	pdf    *fpdf.Fpdf
	page   types.PageSpec
	opts   Options
	names  map[image.Image]string
	pages  int
	encode imaging.Format
}

// NewPDF creates an empty PDF document sized to page.
func NewPDF(page types.PageSpec, opts Options) *PDF {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("passport-photo", true)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	// fixed dates keep identical inputs byte-identical
	epoch := time.Unix(0, 0).UTC()
	pdf.SetCreationDate(epoch)
	pdf.SetModificationDate(epoch)
	pdf.SetCatalogSort(true)

	enc := imaging.PNG
	if opts.Embed == "jpg" || opts.Embed == "jpeg" {
		enc = imaging.JPEG
	}
	return &PDF{
		pdf:    pdf,
		page:   page,
		opts:   opts,
		names:  make(map[image.Image]string),
		encode: enc,
	}
}

// AddPage starts a new page.
func (d *PDF) AddPage() error {
	d.pdf.AddPage()
	d.pages++
	return d.pdf.Error()
}

// Pages returns the number of pages added so far.
func (d *PDF) Pages() int { return d.pages }

// PlaceImage draws img with its bottom-left corner at x, y. The photo is
// embedded once no matter how many cells reference it.
func (d *PDF) PlaceImage(img image.Image, x, y, w, h float64) error {
	if d.pages == 0 {
		return fmt.Errorf("no page to place image on")
	}
	name, opts, err := d.register(img)
	if err != nil {
		return err
	}
	top := d.page.Height - y - h
	d.pdf.ImageOptions(name, x, top, w, h, false, opts, 0, "")
	return d.pdf.Error()
}

func (d *PDF) register(img image.Image) (string, fpdf.ImageOptions, error) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	if d.encode == imaging.JPEG {
		opts.ImageType = "JPG"
	}
	if name, ok := d.names[img]; ok {
		return name, opts, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, d.encode, imaging.JPEGQuality(d.opts.Quality)); err != nil {
		return "", opts, fmt.Errorf("failed to encode photo for PDF: %w", err)
	}
	name := fmt.Sprintf("photo%d", len(d.names))
	d.pdf.RegisterImageOptionsReader(name, opts, &buf)
	if err := d.pdf.Error(); err != nil {
		return "", opts, fmt.Errorf("failed to embed photo: %w", err)
	}
	d.names[img] = name
	return name, opts, nil
}

// Encode writes the finished PDF.
func (d *PDF) Encode(w io.Writer) error {
	if d.pages == 0 {
		return fmt.Errorf("%w: document has no pages", types.ErrInvalidPageSpec)
	}
	return d.pdf.Output(w)
}
