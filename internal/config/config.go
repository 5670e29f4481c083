package config

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/passport-photo/pkg/compositor"
	"github.com/menta2k/passport-photo/pkg/detection"
	"github.com/menta2k/passport-photo/pkg/document"
	"github.com/menta2k/passport-photo/pkg/geometry"
	"github.com/menta2k/passport-photo/pkg/layout"
	"github.com/menta2k/passport-photo/pkg/locator"
	"github.com/menta2k/passport-photo/pkg/matte"
	"github.com/menta2k/passport-photo/pkg/pipeline"
	"github.com/menta2k/passport-photo/pkg/types"
	"github.com/menta2k/passport-photo/pkg/upscale"
)

// Config holds the application configuration
type Config struct {
	Input      InputConfig      `json:"input" yaml:"input"`
	Geometry   GeometryConfig   `json:"geometry" yaml:"geometry"`
	Canvas     CanvasConfig     `json:"canvas" yaml:"canvas"`
	Background BackgroundConfig `json:"background" yaml:"background"`
	Enhance    EnhanceConfig    `json:"enhance" yaml:"enhance"`
	Border     BorderConfig     `json:"border" yaml:"border"`
	Page       PageConfig       `json:"page" yaml:"page"`
	Detection  DetectionConfig  `json:"detection" yaml:"detection"`
	Matte      MatteConfig      `json:"matte" yaml:"matte"`
	Upscale    UpscaleConfig    `json:"upscale" yaml:"upscale"`
	Output     OutputConfig     `json:"output" yaml:"output"`
}

// InputConfig holds configuration for input validation
type InputConfig struct {
	SupportedFormats []string `json:"supported_formats" yaml:"supported_formats"`
	MinImageSize     int      `json:"min_image_size" yaml:"min_image_size"`
	AutoOrient       bool     `json:"auto_orient" yaml:"auto_orient"`
}

// GeometryConfig holds the crop padding around the face, as fractions of
// the face box. TargetRatio 0 crops at the canvas ratio.
type GeometryConfig struct {
	PadX        float64 `json:"pad_x" yaml:"pad_x"`
	PadTop      float64 `json:"pad_top" yaml:"pad_top"`
	PadBottom   float64 `json:"pad_bottom" yaml:"pad_bottom"`
	TargetRatio float64 `json:"target_ratio" yaml:"target_ratio"`
}

// CanvasConfig is the pixel size of one finished photo
type CanvasConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// BackgroundConfig controls background replacement
type BackgroundConfig struct {
	Replace bool   `json:"replace" yaml:"replace"`
	Color   string `json:"color" yaml:"color"`
}

// EnhanceConfig holds the linear contrast/brightness adjustment
type EnhanceConfig struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Alpha   float64 `json:"alpha" yaml:"alpha"`
	Beta    float64 `json:"beta" yaml:"beta"`
	Stage   string  `json:"stage" yaml:"stage"` // after-matte or before-matte
}

// BorderConfig adds a frame to single-photo output. Thickness 0 disables it.
type BorderConfig struct {
	Thickness int    `json:"thickness" yaml:"thickness"`
	Color     string `json:"color" yaml:"color"`
}

// PageConfig describes the print sheet. Size names a known paper; when it
// is empty WidthMM and HeightMM are used.
type PageConfig struct {
	Size     string  `json:"size" yaml:"size"`
	WidthMM  float64 `json:"width_mm" yaml:"width_mm"`
	HeightMM float64 `json:"height_mm" yaml:"height_mm"`
	MarginMM float64 `json:"margin_mm" yaml:"margin_mm"`
	GapMM    float64 `json:"gap_mm" yaml:"gap_mm"`
	Rows     int     `json:"rows" yaml:"rows"`
	Cols     int     `json:"cols" yaml:"cols"`
	Copies   int     `json:"copies" yaml:"copies"` // 0 fills one page
	DPI      int     `json:"dpi" yaml:"dpi"`       // raster sheets
}

// DetectionConfig selects the face locator: pigo, ollama, llamacpp or fixed.
type DetectionConfig struct {
	Backend string             `json:"backend" yaml:"backend"`
	Pigo    locator.PigoConfig `json:"pigo" yaml:"pigo"`
	Vision  VisionConfig       `json:"vision" yaml:"vision"`
	Fixed   []types.Box        `json:"fixed" yaml:"fixed"`
}

// VisionConfig holds configuration for the vision-model locators
type VisionConfig struct {
	URL           string  `json:"url" yaml:"url"`
	Model         string  `json:"model" yaml:"model"`
	Prompt        string  `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	MaxDim        int     `json:"max_dim" yaml:"max_dim"`
	Quality       int     `json:"quality" yaml:"quality"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

// MatteConfig selects the matte extractor: onnx, chroma, alpha or none.
type MatteConfig struct {
	Backend string             `json:"backend" yaml:"backend"`
	ONNX    matte.ONNXConfig   `json:"onnx" yaml:"onnx"`
	Chroma  matte.ChromaConfig `json:"chroma" yaml:"chroma"`
}

// UpscaleConfig selects the upscaler: kernel or onnx. Factor 1 disables it.
type UpscaleConfig struct {
	Factor  float64            `json:"factor" yaml:"factor"`
	Backend string             `json:"backend" yaml:"backend"`
	Kernel  string             `json:"kernel" yaml:"kernel"`
	ONNX    upscale.ONNXConfig `json:"onnx" yaml:"onnx"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Mode      string `json:"mode" yaml:"mode"` // sheet or single
	Format    string `json:"format" yaml:"format"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	Suffix    string `json:"suffix" yaml:"suffix"`
	Quality   int    `json:"quality" yaml:"quality"`
	Lossless  bool   `json:"lossless" yaml:"lossless"`
	Embed     string `json:"embed" yaml:"embed"` // photo encoding inside PDF
	Title     string `json:"title" yaml:"title"`
	Workers   int    `json:"workers" yaml:"workers"`
}

// Default returns a configuration with default values
func Default() *Config {
	geo := geometry.DefaultConfig()
	vision := detection.DefaultOptions("minicpm-v")
	return &Config{
		Input: InputConfig{
			SupportedFormats: []string{"jpg", "jpeg", "png"},
			MinImageSize:     100,
			AutoOrient:       true,
		},
		Geometry: GeometryConfig{
			PadX:      geo.Padding.X,
			PadTop:    geo.Padding.Top,
			PadBottom: geo.Padding.Bottom,
		},
		Canvas: CanvasConfig{Width: 826, Height: 1062},
		Background: BackgroundConfig{
			Replace: true,
			Color:   "#ffffff",
		},
		Enhance: EnhanceConfig{
			Alpha: 1,
			Stage: string(pipeline.EnhanceAfterMatte),
		},
		Border: BorderConfig{Color: "#000000"},
		Page: PageConfig{
			Size:     layout.A6.Name,
			MarginMM: 2,
			GapMM:    2,
			Rows:     3,
			Cols:     3,
			DPI:      300,
		},
		Detection: DetectionConfig{
			Backend: "pigo",
			Pigo:    locator.DefaultPigoConfig(),
			Vision: VisionConfig{
				URL:           "http://localhost:11434",
				Model:         vision.Model,
				MaxDim:        vision.MaxDim,
				Quality:       vision.Quality,
				MinConfidence: vision.MinConfidence,
			},
		},
		Matte: MatteConfig{
			Backend: "chroma",
			ONNX:    matte.DefaultONNXConfig(),
			Chroma:  matte.DefaultChromaConfig(),
		},
		Upscale: UpscaleConfig{
			Factor:  1,
			Backend: "kernel",
			Kernel:  "catmullrom",
			ONNX:    upscale.DefaultONNXConfig(),
		},
		Output: OutputConfig{
			Mode:      string(pipeline.ModeSheet),
			Format:    "pdf",
			OutputDir: "./output",
			Suffix:    "_passport",
			Quality:   95,
			Embed:     "png",
			Workers:   2,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Fields missing
// from the file keep their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as YAML or JSON depending on the extension
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal(filename)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal encodes the configuration in the format implied by filename.
func (c *Config) Marshal(filename string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func isYAML(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Input.MinImageSize < 1 {
		return fmt.Errorf("input.min_image_size must be positive")
	}

	if len(c.Input.SupportedFormats) == 0 {
		return fmt.Errorf("input.supported_formats cannot be empty")
	}

	switch c.Detection.Backend {
	case "pigo", "ollama", "llamacpp":
	case "fixed":
		if len(c.Detection.Fixed) == 0 {
			return fmt.Errorf("detection.fixed needs at least one box")
		}
	default:
		return fmt.Errorf("unknown detection.backend %q", c.Detection.Backend)
	}

	switch c.Matte.Backend {
	case "onnx", "chroma", "alpha", "none", "":
	default:
		return fmt.Errorf("unknown matte.backend %q", c.Matte.Backend)
	}

	switch c.Upscale.Backend {
	case "kernel", "onnx", "":
	default:
		return fmt.Errorf("unknown upscale.backend %q", c.Upscale.Backend)
	}

	if c.Detection.Vision.MinConfidence < 0 || c.Detection.Vision.MinConfidence > 1 {
		return fmt.Errorf("detection.vision.min_confidence must be between 0 and 1")
	}

	if c.Background.Replace && (c.Matte.Backend == "none" || c.Matte.Backend == "") {
		return fmt.Errorf("%w: background.replace needs a matte backend", types.ErrMissingMatte)
	}

	settings, err := c.Settings()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// PageSpec resolves the page section to millimetres.
func (c *Config) PageSpec() (types.PageSpec, error) {
	p := c.Page
	spec := types.PageSpec{
		Width:  p.WidthMM,
		Height: p.HeightMM,
		Margin: p.MarginMM,
		Gap:    p.GapMM,
		Rows:   p.Rows,
		Cols:   p.Cols,
	}
	if p.Size != "" {
		paper, ok := layout.PaperByName(p.Size)
		if !ok {
			return types.PageSpec{}, fmt.Errorf("%w: unknown paper size %q", types.ErrInvalidPageSpec, p.Size)
		}
		spec.Width, spec.Height = paper.Width, paper.Height
	}
	return spec, nil
}

// Settings converts the configuration into the immutable pipeline settings.
func (c *Config) Settings() (pipeline.Settings, error) {
	page, err := c.PageSpec()
	if err != nil {
		return pipeline.Settings{}, err
	}
	bg, err := ParseColor(c.Background.Color)
	if err != nil {
		return pipeline.Settings{}, fmt.Errorf("background.color: %w", err)
	}

	s := pipeline.Settings{
		Geometry: geometry.Config{
			Padding: geometry.Padding{
				X:      c.Geometry.PadX,
				Top:    c.Geometry.PadTop,
				Bottom: c.Geometry.PadBottom,
			},
			TargetRatio: c.Geometry.TargetRatio,
		},
		Canvas:            types.CanvasSpec{Width: c.Canvas.Width, Height: c.Canvas.Height},
		ReplaceBackground: c.Background.Replace,
		Background:        bg,
		EnhanceStage:      pipeline.EnhanceStage(c.Enhance.Stage),
		Page:              page,
		Copies:            c.Page.Copies,
		UpscaleFactor:     c.Upscale.Factor,
		Mode:              pipeline.Mode(c.Output.Mode),
		Document: document.Options{
			DPI:        c.Page.DPI,
			Background: color.NRGBA{255, 255, 255, 255},
			Quality:    c.Output.Quality,
			Lossless:   c.Output.Lossless,
			Embed:      c.Output.Embed,
			Title:      c.Output.Title,
		},
	}

	if c.Enhance.Enabled {
		e := compositor.Enhancement{Alpha: c.Enhance.Alpha, Beta: c.Enhance.Beta}
		if !e.Identity() {
			s.Enhance = &e
		}
	}
	if c.Border.Thickness != 0 {
		bc, err := ParseColor(c.Border.Color)
		if err != nil {
			return pipeline.Settings{}, fmt.Errorf("border.color: %w", err)
		}
		s.Border = &compositor.Border{Thickness: c.Border.Thickness, Color: bc}
	}
	return s, nil
}

// ParseColor parses a #rrggbb or #rgb colour.
func ParseColor(hex string) (color.NRGBA, error) {
	if hex != "" && !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "passport-photo", "config.yaml")
}
