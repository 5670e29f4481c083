package main

import (
	"github.com/spf13/cobra"

	"github.com/menta2k/passport-photo/internal/config"
)

// flagOverrides are the config fields exposed as command-line flags. A flag
// only replaces the configured value when it was set explicitly.
type flagOverrides struct {
	mode        string
	format      string
	page        string
	rows        int
	cols        int
	copies      int
	dpi         int
	width       int
	height      int
	background  string
	keepBg      bool
	detector    string
	cascade     string
	model       string
	url         string
	matte       string
	upscale     float64
	border      int
	borderColor string
}

var overrides flagOverrides

// addPipelineFlags registers the overrides on a command that builds a pipeline.
func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&overrides.mode, "mode", "", "output mode: sheet or single")
	f.StringVar(&overrides.format, "format", "", "output format when no output path is given: pdf, png, jpg or webp")
	f.StringVar(&overrides.page, "page", "", "paper size: A4, A5, A6, Letter or 4x6")
	f.IntVar(&overrides.rows, "rows", 0, "photo rows per page")
	f.IntVar(&overrides.cols, "cols", 0, "photo columns per page")
	f.IntVar(&overrides.copies, "copies", 0, "number of photos (0 fills one page)")
	f.IntVar(&overrides.dpi, "dpi", 0, "resolution of raster sheets")
	f.IntVar(&overrides.width, "width", 0, "photo width in pixels")
	f.IntVar(&overrides.height, "height", 0, "photo height in pixels")
	f.StringVar(&overrides.background, "background", "", "background colour, e.g. #ffffff")
	f.BoolVar(&overrides.keepBg, "keep-background", false, "keep the original background")
	f.StringVar(&overrides.detector, "detector", "", "face locator: pigo, ollama, llamacpp or fixed")
	f.StringVar(&overrides.cascade, "cascade", "", "pigo facefinder cascade file")
	f.StringVar(&overrides.model, "model", "", "vision model name for ollama/llamacpp")
	f.StringVar(&overrides.url, "url", "", "vision server URL for ollama/llamacpp")
	f.StringVar(&overrides.matte, "matte", "", "matte extractor: onnx, chroma or alpha")
	f.Float64Var(&overrides.upscale, "upscale", 0, "upscale factor for the finished photo (1 disables)")
	f.IntVar(&overrides.border, "border", 0, "border thickness in pixels, single mode only")
	f.StringVar(&overrides.borderColor, "border-color", "", "border colour")
}

func (o *flagOverrides) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("mode") {
		cfg.Output.Mode = o.mode
	}
	if changed("format") {
		cfg.Output.Format = o.format
	}
	if changed("page") {
		cfg.Page.Size = o.page
	}
	if changed("rows") {
		cfg.Page.Rows = o.rows
	}
	if changed("cols") {
		cfg.Page.Cols = o.cols
	}
	if changed("copies") {
		cfg.Page.Copies = o.copies
	}
	if changed("dpi") {
		cfg.Page.DPI = o.dpi
	}
	if changed("width") {
		cfg.Canvas.Width = o.width
	}
	if changed("height") {
		cfg.Canvas.Height = o.height
	}
	if changed("background") {
		cfg.Background.Color = o.background
	}
	if changed("keep-background") {
		cfg.Background.Replace = !o.keepBg
	}
	if changed("detector") {
		cfg.Detection.Backend = o.detector
	}
	if changed("cascade") {
		cfg.Detection.Pigo.CascadePath = o.cascade
	}
	if changed("model") {
		cfg.Detection.Vision.Model = o.model
	}
	if changed("url") {
		cfg.Detection.Vision.URL = o.url
	}
	if changed("matte") {
		cfg.Matte.Backend = o.matte
	}
	if changed("upscale") {
		cfg.Upscale.Factor = o.upscale
	}
	if changed("border") {
		cfg.Border.Thickness = o.border
	}
	if changed("border-color") {
		cfg.Border.Color = o.borderColor
	}
}
