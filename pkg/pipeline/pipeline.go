// Package pipeline sequences one passport photo run: decode, locate the
// face, plan and cut the crop, matte, composite, upscale and lay the
// result out on a page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"

	"github.com/menta2k/passport-photo/internal/utils"
	"github.com/menta2k/passport-photo/pkg/analyzer"
	"github.com/menta2k/passport-photo/pkg/compositor"
	"github.com/menta2k/passport-photo/pkg/document"
	"github.com/menta2k/passport-photo/pkg/geometry"
	"github.com/menta2k/passport-photo/pkg/layout"
	"github.com/menta2k/passport-photo/pkg/processing"
	"github.com/menta2k/passport-photo/pkg/types"
	"github.com/menta2k/passport-photo/pkg/upscale"
)

// Stage names carried by *types.StageError.
const (
	StageConfigure = "configure"
	StageInput     = "input"
	StageLocate    = "locate"
	StageGeometry  = "geometry"
	StageCrop      = "crop"
	StageEnhance   = "enhance"
	StageMatte     = "matte"
	StageComposite = "composite"
	StageUpscale   = "upscale"
	StageBorder    = "border"
	StageLayout    = "layout"
	StageOutput    = "output"
)

// FaceLocator finds faces in an image. An empty result is not an error.
type FaceLocator interface {
	Locate(ctx context.Context, img image.Image) ([]types.BoundingBox, error)
}

// MatteExtractor returns a per-pixel subject opacity the size of img.
type MatteExtractor interface {
	Extract(ctx context.Context, img image.Image) (*image.Gray, error)
}

// Upscaler enlarges img by factor on each axis.
type Upscaler interface {
	Upscale(ctx context.Context, img image.Image, factor float64) (image.Image, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMatteExtractor sets the backend used when the background is replaced.
func WithMatteExtractor(m MatteExtractor) Option {
	return func(p *Pipeline) { p.matte = m }
}

// WithUpscaler sets the backend used when UpscaleFactor > 1.
func WithUpscaler(u Upscaler) Option {
	return func(p *Pipeline) { p.upscaler = u }
}

// WithLogger sets where per-stage progress lines go.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithAnalyzer replaces the input validator.
func WithAnalyzer(a *analyzer.ImageAnalyzer) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.analyzer = a
		}
	}
}

// Pipeline is safe for concurrent Run calls as long as its backends are.
type Pipeline struct {
	settings   Settings
	locator    FaceLocator
	matte      MatteExtractor
	upscaler   Upscaler
	analyzer   *analyzer.ImageAnalyzer
	processor  *processing.Processor
	planner    *geometry.Planner
	compositor *compositor.Compositor
	plan       types.PagePlan
	logger     *log.Logger
}

// Result describes a finished (or probed) run.
type Result struct {
	Input     string              `json:"input"`
	Output    string              `json:"output,omitempty"`
	ImageSize types.Size          `json:"image_size"`
	Faces     []types.BoundingBox `json:"faces"`
	Face      types.BoundingBox   `json:"face"`
	Crop      types.CropRect      `json:"crop"`
	PhotoSize types.Size          `json:"photo_size,omitempty"`
	Plan      *types.PagePlan     `json:"plan,omitempty"`
	Pages     int                 `json:"pages,omitempty"`
}

// New validates settings and plans the page once. All configuration
// errors surface here, before any image is read.
func New(settings Settings, locator FaceLocator, opts ...Option) (*Pipeline, error) {
	if locator == nil {
		return nil, types.Stage(StageConfigure, errors.New("no face locator configured"))
	}
	if settings.EnhanceStage == "" {
		settings.EnhanceStage = EnhanceAfterMatte
	}
	if settings.Mode == "" {
		settings.Mode = ModeSheet
	}
	if settings.UpscaleFactor == 0 {
		settings.UpscaleFactor = 1
	}
	if err := settings.Validate(); err != nil {
		return nil, types.Stage(StageConfigure, err)
	}

	geo := settings.Geometry
	geo.TargetRatio = settings.CropRatio()

	p := &Pipeline{
		settings:   settings,
		locator:    locator,
		analyzer:   analyzer.New(),
		processor:  processing.NewProcessor(),
		planner:    geometry.NewWithConfig(geo),
		compositor: compositor.New(),
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(p)
	}

	if settings.ReplaceBackground && p.matte == nil {
		return nil, types.Stage(StageConfigure,
			fmt.Errorf("%w: background replacement needs a matte extractor", types.ErrMissingMatte))
	}
	if settings.UpscaleFactor > 1 && p.upscaler == nil {
		k, err := upscale.NewKernel("")
		if err != nil {
			return nil, types.Stage(StageConfigure, err)
		}
		p.upscaler = k
	}

	if settings.Mode == ModeSheet {
		plan, err := layout.PlanPage(settings.Page, settings.Canvas.Ratio())
		if err != nil {
			return nil, types.Stage(StageLayout, err)
		}
		p.plan = plan
	}
	return p, nil
}

// Settings returns the validated settings.
func (p *Pipeline) Settings() Settings { return p.settings }

// PagePlan returns the sheet plan computed by New. It is empty in single mode.
func (p *Pipeline) PagePlan() types.PagePlan { return p.plan }

// Probe decodes input, locates faces and plans the crop without producing
// any output.
func (p *Pipeline) Probe(ctx context.Context, input string) (*Result, image.Image, error) {
	res := &Result{Input: input}
	img, err := p.load(input)
	if err != nil {
		return nil, nil, err
	}
	res.ImageSize = types.Size{W: img.Bounds().Dx(), H: img.Bounds().Dy()}
	if err := p.locate(ctx, img, res); err != nil {
		return nil, nil, err
	}
	return res, img, nil
}

// Run processes input and writes output. The output format follows the
// extension of output. Nothing is written unless every stage succeeds.
func (p *Pipeline) Run(ctx context.Context, input, output string) (*Result, error) {
	format := processing.FormatFromPath(output)
	if err := p.checkOutput(format); err != nil {
		return nil, types.Stage(StageOutput, err)
	}

	res, img, err := p.Probe(ctx, input)
	if err != nil {
		return nil, err
	}
	res.Output = output
	s := p.settings

	cropped, err := p.processor.Crop(img, res.Crop.Rect())
	if err != nil {
		return nil, types.Stage(StageCrop, err)
	}
	p.logger.Printf("crop: %dx%d at (%d,%d)", cropped.Bounds().Dx(), cropped.Bounds().Dy(),
		res.Crop.Rect().Min.X, res.Crop.Rect().Min.Y)

	var subject image.Image = cropped
	if s.Enhance != nil && s.EnhanceStage == EnhanceBeforeMatte {
		subject = compositor.Enhance(cropped, *s.Enhance)
		p.logger.Printf("enhance: alpha=%.2f beta=%.1f before matte", s.Enhance.Alpha, s.Enhance.Beta)
	}

	var matte *image.Gray
	if s.ReplaceBackground {
		matte, err = p.extractMatte(ctx, subject)
		if err != nil {
			return nil, types.Stage(StageMatte, err)
		}
	}

	opts := compositor.Options{Canvas: s.Canvas, Background: s.Background}
	if s.Enhance != nil && s.EnhanceStage == EnhanceAfterMatte {
		opts.Enhance = s.Enhance
	}
	photo, err := p.compositor.Composite(subject, matte, opts)
	if err != nil {
		return nil, types.Stage(StageComposite, err)
	}
	p.logger.Printf("composite: %dx%d", photo.Bounds().Dx(), photo.Bounds().Dy())

	var final image.Image = photo
	if s.UpscaleFactor > 1 {
		final, err = p.upscaler.Upscale(ctx, photo, s.UpscaleFactor)
		if err != nil {
			return nil, types.Stage(StageUpscale, err)
		}
		p.logger.Printf("upscale: x%.2f to %dx%d", s.UpscaleFactor, final.Bounds().Dx(), final.Bounds().Dy())
	}

	if s.Border != nil && s.Border.Thickness > 0 {
		if s.Mode == ModeSingle {
			final = compositor.AddBorder(final, *s.Border)
		} else {
			p.logger.Printf("border: skipped for sheet output")
		}
	}
	res.PhotoSize = types.Size{W: final.Bounds().Dx(), H: final.Bounds().Dy()}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Mode == ModeSingle {
		err = p.writeSingle(final, output, format, res)
	} else {
		err = p.writeSheet(final, output, format, res)
	}
	if err != nil {
		return nil, err
	}
	p.logger.Printf("output: %s (%s, %d page(s))", output, format, res.Pages)
	return res, nil
}

func (p *Pipeline) load(input string) (image.Image, error) {
	img, err := p.analyzer.Load(input)
	if err != nil {
		return nil, types.Stage(StageInput, err)
	}
	p.logger.Printf("input: %s %dx%d", input, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

func (p *Pipeline) locate(ctx context.Context, img image.Image, res *Result) error {
	boxes, err := p.locator.Locate(ctx, img)
	if err != nil {
		return types.Stage(StageLocate, err)
	}
	res.Faces = boxes
	p.logger.Printf("locate: %d face(s)", len(boxes))

	face, crop, err := p.planner.Plan(res.ImageSize, boxes)
	if err != nil {
		stage := StageGeometry
		if errors.Is(err, types.ErrNoFaceDetected) {
			stage = StageLocate
		}
		return types.Stage(stage, fmt.Errorf("%w (image %dx%d)", err, res.ImageSize.W, res.ImageSize.H))
	}
	res.Face, res.Crop = face, crop
	p.logger.Printf("geometry: face %dx%d at (%d,%d), crop %.1fx%.1f ratio %.4f",
		face.W, face.H, face.X, face.Y, crop.Width(), crop.Height(), crop.Ratio())
	return nil
}

func (p *Pipeline) extractMatte(ctx context.Context, img image.Image) (*image.Gray, error) {
	m, err := p.matte.Extract(ctx, img)
	if err != nil {
		if errors.Is(err, types.ErrMissingMatte) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", types.ErrMissingMatte, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: extractor returned no matte", types.ErrMissingMatte)
	}
	p.logger.Printf("matte: %dx%d", m.Bounds().Dx(), m.Bounds().Dy())
	return m, nil
}

func (p *Pipeline) checkOutput(format string) error {
	switch format {
	case "png", "jpg", "webp":
		if p.settings.Mode == ModeSheet {
			if copies := p.settings.Copies; copies > len(p.plan.Cells) {
				return fmt.Errorf("%w: a %s sheet holds %d photos, %d copies requested",
					types.ErrInvalidPageSpec, format, len(p.plan.Cells), copies)
			}
		}
		return nil
	case "pdf":
		return nil
	default:
		return fmt.Errorf("%w: output format %q", types.ErrUnsupportedFormat, format)
	}
}

func (p *Pipeline) writeSheet(photo image.Image, output, format string, res *Result) error {
	doc, err := document.New(format, p.settings.Page, p.settings.Document)
	if err != nil {
		return types.Stage(StageOutput, err)
	}
	if err := layout.Render(p.plan, photo, doc, p.settings.Copies); err != nil {
		return types.Stage(StageLayout, err)
	}
	plan := p.plan
	res.Plan = &plan
	copies := p.settings.Copies
	if copies <= 0 {
		copies = len(plan.Cells)
	}
	res.Pages = layout.PagesFor(plan, copies)
	if err := utils.WriteFileAtomic(output, doc.Encode); err != nil {
		return types.Stage(StageOutput, err)
	}
	return nil
}

// writeSingle writes the photo as an image, or as a one-page PDF at the
// photo's physical size when output ends in .pdf.
func (p *Pipeline) writeSingle(photo image.Image, output, format string, res *Result) error {
	opts := p.settings.Document
	res.Pages = 1
	if format != "pdf" {
		err := utils.WriteFileAtomic(output, func(w io.Writer) error {
			return processing.EncodeImage(w, photo, format, opts.Quality, opts.Lossless)
		})
		return types.Stage(StageOutput, err)
	}

	page := PhotoPage(res.PhotoSize, opts.DPI)
	plan, err := layout.PlanPage(page, float64(res.PhotoSize.W)/float64(res.PhotoSize.H))
	if err != nil {
		return types.Stage(StageLayout, err)
	}
	doc, err := document.New(format, page, opts)
	if err != nil {
		return types.Stage(StageOutput, err)
	}
	if err := layout.Render(plan, photo, doc, 1); err != nil {
		return types.Stage(StageLayout, err)
	}
	res.Plan = &plan
	return types.Stage(StageOutput, utils.WriteFileAtomic(output, doc.Encode))
}

// PhotoPage returns a borderless 1x1 page matching a photo printed at dpi.
// A non-positive dpi falls back to 300.
func PhotoPage(size types.Size, dpi int) types.PageSpec {
	if dpi <= 0 {
		dpi = 300
	}
	mm := func(px int) float64 {
		return math.Round(float64(px)/float64(dpi)*25.4*100) / 100
	}
	return types.PageSpec{Width: mm(size.W), Height: mm(size.H), Rows: 1, Cols: 1}
}
