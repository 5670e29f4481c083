// Package analyzer validates and loads pipeline inputs.
package analyzer

import (
	"fmt"
	"image"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/menta2k/passport-photo/pkg/processing"
	"github.com/menta2k/passport-photo/pkg/types"
)

// ImageAnalyzer checks input files before they enter the pipeline
type ImageAnalyzer struct {
	config    Config
	processor *processing.Processor
}

// Config holds configuration for input validation
type Config struct {
	SupportedFormats []string
	MinImageSize     int
	AutoOrient       bool
}

// DefaultConfig accepts jpg, png and webp of at least 100px per side.
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpg", "jpeg", "png", "webp"},
		MinImageSize:     100,
		AutoOrient:       true,
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	p := processing.NewProcessor()
	p.AutoOrient = config.AutoOrient
	return &ImageAnalyzer{config: config, processor: p}
}

// CheckInput verifies that source exists and carries a supported extension.
// URLs are checked by the extension of their path when they have one.
func (a *ImageAnalyzer) CheckInput(source string) error {
	if processing.IsURL(source) {
		u, err := url.Parse(source)
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
		if ext := path.Ext(u.Path); ext != "" && !a.isFormatSupported(ext) {
			return fmt.Errorf("%w: %s", types.ErrUnsupportedFormat, ext)
		}
		return nil
	}

	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", types.ErrFileNotFound, source)
		}
		return fmt.Errorf("failed to stat input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", types.ErrFileNotFound, source)
	}
	if !a.isFormatSupported(processing.FormatFromPath(source)) {
		return fmt.Errorf("%w: %s", types.ErrUnsupportedFormat, source)
	}
	return nil
}

// Load checks, decodes and validates source.
func (a *ImageAnalyzer) Load(source string) (image.Image, error) {
	if err := a.CheckInput(source); err != nil {
		return nil, err
	}
	img, err := a.processor.LoadImageSmart(source)
	if err != nil {
		return nil, err
	}
	if err := a.ValidateImage(img); err != nil {
		return nil, err
	}
	return img, nil
}

// GetImageInfo returns basic information about an image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	return ImageInfo{
		Width:       width,
		Height:      height,
		AspectRatio: float64(width) / float64(height),
		Area:        width * height,
	}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	format = processing.NormalizeFormat(format)
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, processing.NormalizeFormat(supported)) {
			return true
		}
	}
	return false
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < a.config.MinImageSize || bounds.Dy() < a.config.MinImageSize {
		return fmt.Errorf("%w: %dx%d (minimum: %d)",
			types.ErrImageTooSmall, bounds.Dx(), bounds.Dy(), a.config.MinImageSize)
	}
	return nil
}
