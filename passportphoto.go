// Package passportphoto turns a portrait into passport photos.
//
// A run locates the face, pads the face box into a crop at the photo's
// aspect ratio, replaces the background through a matte, resizes to the
// canonical pixel size and tiles copies onto a printable page.
//
// Basic usage:
//
//	pp, err := passportphoto.New(
//		passportphoto.WithPage("A6", 3, 3),
//		passportphoto.WithCascade("facefinder"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pp.Close()
//
//	res, err := pp.Process(context.Background(), "me.jpg", "me_sheet.pdf")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d page(s), crop %.0fx%.0f\n", res.Pages, res.Crop.Width(), res.Crop.Height())
//
// The package consists of these main components:
//
//  1. Geometry (pkg/geometry): face selection and crop planning
//  2. Compositor (pkg/compositor): resize, matte blend, enhancement, border
//  3. Layout (pkg/layout) and Document (pkg/document): page grid, PDF and raster sheets
//  4. Pipeline (pkg/pipeline): runs the stages and reports typed errors
//
// Face location, matting and upscaling are pluggable: pigo, ollama,
// llama.cpp or fixed boxes for faces; ONNX, chroma key or source alpha
// for mattes; kernel or ONNX super-resolution for upscaling.
package passportphoto

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"

	"github.com/menta2k/passport-photo/internal/bootstrap"
	"github.com/menta2k/passport-photo/internal/config"
	"github.com/menta2k/passport-photo/internal/utils"
	"github.com/menta2k/passport-photo/pkg/analyzer"
	"github.com/menta2k/passport-photo/pkg/pipeline"
	"github.com/menta2k/passport-photo/pkg/types"
)

// Version of the passport photo library
const Version = "1.0.0"

// Option adjusts the configuration before the pipeline is built.
type Option func(o *options) error

// options collects edits so a config file loads first whatever the order.
type options struct {
	configPath string
	edits      []func(c *config.Config)
	logger     *log.Logger
}

func (o *options) edit(f func(c *config.Config)) error {
	o.edits = append(o.edits, f)
	return nil
}

// WithConfigFile starts from a JSON or YAML file instead of the defaults.
// The other options are applied on top of it wherever it appears.
func WithConfigFile(path string) Option {
	return func(o *options) error {
		if o.configPath != "" {
			return fmt.Errorf("config file given twice: %s and %s", o.configPath, path)
		}
		o.configPath = path
		return nil
	}
}

// WithLogger receives one line per pipeline stage.
func WithLogger(l *log.Logger) Option {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}

// WithCanvas sets the pixel size of one finished photo.
func WithCanvas(width, height int) Option {
	return func(o *options) error {
		return o.edit(func(c *config.Config) {
			c.Canvas = config.CanvasConfig{Width: width, Height: height}
		})
	}
}

// WithPage selects a named paper and grid.
func WithPage(paper string, rows, cols int) Option {
	return func(o *options) error {
		return o.edit(func(c *config.Config) {
			c.Page.Size, c.Page.Rows, c.Page.Cols = paper, rows, cols
		})
	}
}

// WithDPI sets the resolution of raster sheets and single-photo PDF pages.
func WithDPI(dpi int) Option {
	return func(o *options) error {
		return o.edit(func(c *config.Config) { c.Page.DPI = dpi })
	}
}

// WithSingle writes one photo instead of a sheet.
func WithSingle() Option {
	return func(o *options) error {
		return o.edit(func(c *config.Config) { c.Output.Mode = string(pipeline.ModeSingle) })
	}
}

// WithBackground sets the replacement background colour (#rrggbb).
func WithBackground(hex string) Option {
	return func(o *options) error {
		if _, err := config.ParseColor(hex); err != nil {
			return err
		}
		return o.edit(func(c *config.Config) {
			c.Background.Replace = true
			c.Background.Color = hex
		})
	}
}

// WithOriginalBackground keeps the photo's own background.
func WithOriginalBackground() Option {
	return func(o *options) error {
		return o.edit(func(c *config.Config) { c.Background.Replace = false })
	}
}

// WithCascade uses the pigo detector with the given facefinder cascade.
func WithCascade(path string) Option {
	return func(o *options) error {
		return o.edit(func(c *config.Config) {
			c.Detection.Backend = "pigo"
			c.Detection.Pigo.CascadePath = path
		})
	}
}

// WithFixedFace skips detection and uses a known normalized face box.
func WithFixedFace(box types.Box) Option {
	return func(o *options) error {
		return o.edit(func(c *config.Config) {
			c.Detection.Backend = "fixed"
			c.Detection.Fixed = []types.Box{box}
		})
	}
}

// WithVisionModel locates faces with a vision model served by ollama or
// llamacpp at url.
func WithVisionModel(backend, url, model string) Option {
	return func(o *options) error {
		return o.edit(func(c *config.Config) {
			c.Detection.Backend = backend
			c.Detection.Vision.URL = url
			c.Detection.Vision.Model = model
		})
	}
}

// PassportPhoto provides a high-level interface over the pipeline
type PassportPhoto struct {
	pipeline *pipeline.Pipeline
	analyzer *analyzer.ImageAnalyzer
	closer   io.Closer
	formats  []string
	cfg      config.OutputConfig
}

// New builds a PassportPhoto from the default configuration and opts.
func New(opts ...Option) (*PassportPhoto, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadFromFile(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	for _, edit := range o.edits {
		edit(cfg)
	}

	p, closer, err := bootstrap.Build(cfg, o.logger)
	if err != nil {
		return nil, err
	}
	return &PassportPhoto{
		pipeline: p,
		analyzer: analyzer.New(),
		closer:   closer,
		formats:  cfg.Input.SupportedFormats,
		cfg:      cfg.Output,
	}, nil
}

// NewFromConfigFile is New with WithConfigFile(path) added to opts.
func NewFromConfigFile(path string, opts ...Option) (*PassportPhoto, error) {
	return New(append([]Option{WithConfigFile(path)}, opts...)...)
}

// Process turns input into output. The output format follows its extension.
func (pp *PassportPhoto) Process(ctx context.Context, input, output string) (*pipeline.Result, error) {
	return pp.pipeline.Run(ctx, input, output)
}

// Probe locates the face and plans the crop without writing anything.
func (pp *PassportPhoto) Probe(ctx context.Context, input string) (*pipeline.Result, error) {
	res, _, err := pp.pipeline.Probe(ctx, input)
	return res, err
}

// ProcessDir processes every supported image under inputDir into
// outputDir in the configured output format. Subdirectories of inputDir
// are mirrored under outputDir.
func (pp *PassportPhoto) ProcessDir(ctx context.Context, inputDir, outputDir string) ([]pipeline.BatchResult, error) {
	files, err := utils.ListImageFiles(inputDir, pp.formats)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", inputDir, err)
	}
	outputs := utils.BatchOutputFilenames(inputDir, files, outputDir, pp.cfg.Prefix, pp.cfg.Suffix, pp.cfg.Format)
	jobs := make([]pipeline.Job, len(files))
	for i, f := range files {
		jobs[i] = pipeline.Job{Input: f, Output: outputs[i]}
	}
	return pp.pipeline.RunBatch(ctx, jobs, pp.cfg.Workers, nil), nil
}

// PagePlan returns the sheet layout every page uses.
func (pp *PassportPhoto) PagePlan() types.PagePlan {
	return pp.pipeline.PagePlan()
}

// GetImageInfo returns basic information about an image
func (pp *PassportPhoto) GetImageInfo(img image.Image) analyzer.ImageInfo {
	return pp.analyzer.GetImageInfo(img)
}

// Close releases model sessions.
func (pp *PassportPhoto) Close() error {
	if pp.closer == nil {
		return nil
	}
	return pp.closer.Close()
}
