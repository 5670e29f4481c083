package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/passport-photo/pkg/types"
)

// Enhancement is a linear intensity transform: out = alpha*in + beta.
type Enhancement struct {
	Alpha float64 `json:"alpha"` // contrast
	Beta  float64 `json:"beta"`  // brightness
}

// Identity reports whether the transform leaves pixels unchanged.
func (e Enhancement) Identity() bool {
	return e.Alpha == 1 && e.Beta == 0
}

// Border is a solid frame added around a finished photo.
type Border struct {
	Thickness int
	Color     color.NRGBA
}

// Options controls one Composite call. Nil pointers disable a step.
type Options struct {
	Canvas     types.CanvasSpec
	Background color.NRGBA
	Enhance    *Enhancement
	Border     *Border
}

// Compositor turns a crop into a finished, canonical-size photo
type Compositor struct {
	filter imaging.ResampleFilter
}

// New creates a Compositor using area averaging for resizes
func New() *Compositor {
	return &Compositor{filter: imaging.Box}
}

// NewWithFilter creates a Compositor with a custom resample filter
func NewWithFilter(filter imaging.ResampleFilter) *Compositor {
	return &Compositor{filter: filter}
}

// Composite resizes crop to the canvas, blends it over the background with
// matte (when non-nil), then applies enhancement and border in that order.
func (c *Compositor) Composite(crop image.Image, matte *image.Gray, opts Options) (*image.NRGBA, error) {
	if matte != nil && matte.Bounds().Size() != crop.Bounds().Size() {
		return nil, fmt.Errorf("%w: matte %v does not match crop %v",
			types.ErrMissingMatte, matte.Bounds().Size(), crop.Bounds().Size())
	}

	out, err := c.Resize(crop, opts.Canvas)
	if err != nil {
		return nil, err
	}

	if matte != nil {
		m, err := c.ResizeMatte(matte, opts.Canvas)
		if err != nil {
			return nil, err
		}
		out, err = ApplyMatte(out, m, opts.Background)
		if err != nil {
			return nil, err
		}
	}

	if opts.Enhance != nil {
		out = Enhance(out, *opts.Enhance)
	}
	if opts.Border != nil {
		out = AddBorder(out, *opts.Border)
	}
	return out, nil
}

// Resize scales img to exactly the canvas size. The crop already carries
// the canvas aspect ratio, so this is a uniform scale.
func (c *Compositor) Resize(img image.Image, canvas types.CanvasSpec) (*image.NRGBA, error) {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", types.ErrInvalidCanvasSpec, canvas.Width, canvas.Height)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty source %v", types.ErrInvalidCanvasSpec, img.Bounds())
	}
	out := imaging.Resize(img, canvas.Width, canvas.Height, c.filter)
	if out.Bounds().Dx() != canvas.Width || out.Bounds().Dy() != canvas.Height {
		return nil, fmt.Errorf("%w: resize produced %v, want %dx%d",
			types.ErrInvalidCanvasSpec, out.Bounds().Size(), canvas.Width, canvas.Height)
	}
	return out, nil
}

// ResizeMatte scales a matte to the canvas size with the same filter.
func (c *Compositor) ResizeMatte(matte *image.Gray, canvas types.CanvasSpec) (*image.Gray, error) {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", types.ErrInvalidCanvasSpec, canvas.Width, canvas.Height)
	}
	if matte.Bounds().Dx() == canvas.Width && matte.Bounds().Dy() == canvas.Height {
		return matte, nil
	}
	scaled := imaging.Resize(matte, canvas.Width, canvas.Height, c.filter)
	out := image.NewGray(scaled.Bounds())
	for y := 0; y < canvas.Height; y++ {
		src := scaled.Pix[y*scaled.Stride : y*scaled.Stride+canvas.Width*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+canvas.Width]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out, nil
}

// ApplyMatte blends subject over a flat background: out = m*s + (1-m)*bg.
func ApplyMatte(subject *image.NRGBA, matte *image.Gray, bg color.NRGBA) (*image.NRGBA, error) {
	sb, mb := subject.Bounds(), matte.Bounds()
	if sb.Size() != mb.Size() {
		return nil, fmt.Errorf("%w: matte %v does not match subject %v", types.ErrMissingMatte, mb.Size(), sb.Size())
	}

	w, h := sb.Dx(), sb.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	bgc := [3]uint32{uint32(bg.R), uint32(bg.G), uint32(bg.B)}

	for y := 0; y < h; y++ {
		si := subject.PixOffset(sb.Min.X, sb.Min.Y+y)
		mi := matte.PixOffset(mb.Min.X, mb.Min.Y+y)
		di := out.PixOffset(0, y)
		for x := 0; x < w; x++ {
			m := uint32(matte.Pix[mi+x])
			inv := 255 - m
			s := subject.Pix[si+x*4 : si+x*4+4]
			d := out.Pix[di+x*4 : di+x*4+4]
			for ch := 0; ch < 3; ch++ {
				d[ch] = uint8((m*uint32(s[ch]) + inv*bgc[ch] + 127) / 255)
			}
			d[3] = 255
		}
	}
	return out, nil
}

// Enhance applies clamp(alpha*v + beta, 0, 255) to each colour channel.
func Enhance(img image.Image, e Enhancement) *image.NRGBA {
	if e.Identity() {
		return imaging.Clone(img)
	}
	var lut [256]uint8
	for i := range lut {
		v := math.Round(e.Alpha*float64(i) + e.Beta)
		lut[i] = uint8(math.Max(0, math.Min(255, v)))
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// AddBorder grows the canvas by Thickness on every side and fills the new
// area with the border colour. Non-positive thickness returns a copy.
func AddBorder(img image.Image, b Border) *image.NRGBA {
	if b.Thickness <= 0 {
		return imaging.Clone(img)
	}
	size := img.Bounds().Size()
	framed := imaging.New(size.X+2*b.Thickness, size.Y+2*b.Thickness, b.Color)
	return imaging.Paste(framed, img, image.Pt(b.Thickness, b.Thickness))
}
