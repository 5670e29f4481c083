// Package bootstrap turns a Config into a ready Pipeline with its face,
// matte and upscale backends.
package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/menta2k/passport-photo/internal/config"
	"github.com/menta2k/passport-photo/pkg/analyzer"
	"github.com/menta2k/passport-photo/pkg/client"
	"github.com/menta2k/passport-photo/pkg/detection"
	"github.com/menta2k/passport-photo/pkg/llamacpp"
	"github.com/menta2k/passport-photo/pkg/locator"
	"github.com/menta2k/passport-photo/pkg/matte"
	"github.com/menta2k/passport-photo/pkg/ollama"
	"github.com/menta2k/passport-photo/pkg/pipeline"
	"github.com/menta2k/passport-photo/pkg/upscale"
)

// closers collects model sessions to release together.
type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build validates cfg and wires the configured backends into a Pipeline.
// The returned Closer releases model sessions.
func Build(cfg *config.Config, logger *log.Logger) (*pipeline.Pipeline, io.Closer, error) {
	var open closers
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, nil, err
	}

	loc, err := NewLocator(cfg.Detection)
	if err != nil {
		return nil, nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithAnalyzer(analyzer.NewWithConfig(analyzer.Config{
			SupportedFormats: cfg.Input.SupportedFormats,
			MinImageSize:     cfg.Input.MinImageSize,
			AutoOrient:       cfg.Input.AutoOrient,
		})),
	}

	if settings.ReplaceBackground {
		m, err := NewMatte(cfg.Matte)
		if err != nil {
			return nil, nil, err
		}
		if c, ok := m.(io.Closer); ok {
			open = append(open, c)
		}
		opts = append(opts, pipeline.WithMatteExtractor(m))
	}

	if cfg.Upscale.Factor > 1 {
		u, err := NewUpscaler(cfg.Upscale)
		if err != nil {
			open.Close()
			return nil, nil, err
		}
		if c, ok := u.(io.Closer); ok {
			open = append(open, c)
		}
		opts = append(opts, pipeline.WithUpscaler(u))
	}

	p, err := pipeline.New(settings, loc, opts...)
	if err != nil {
		open.Close()
		return nil, nil, err
	}
	return p, open, nil
}

// NewLocator returns the face locator named by cfg.Backend.
func NewLocator(cfg config.DetectionConfig) (pipeline.FaceLocator, error) {
	switch cfg.Backend {
	case "pigo", "":
		return locator.NewPigo(cfg.Pigo)
	case "fixed":
		if len(cfg.Fixed) == 0 {
			return nil, fmt.Errorf("fixed locator needs at least one box")
		}
		return locator.NewFixed(cfg.Fixed...), nil
	case "ollama", "llamacpp":
		vc, err := NewVisionClient(cfg.Backend, cfg.Vision.URL)
		if err != nil {
			return nil, err
		}
		return detection.NewDetector(vc, DetectionOptions(cfg.Vision)), nil
	default:
		return nil, fmt.Errorf("unknown detection backend %q", cfg.Backend)
	}
}

// NewVisionClient connects to an ollama or llama.cpp server.
func NewVisionClient(backend, url string) (client.VisionClient, error) {
	switch backend {
	case "ollama":
		return ollama.NewClient(url)
	case "llamacpp":
		return llamacpp.NewClient(url)
	default:
		return nil, fmt.Errorf("unknown vision backend %q", backend)
	}
}

// DetectionOptions maps the vision section onto detector options.
func DetectionOptions(v config.VisionConfig) detection.Options {
	opts := detection.DefaultOptions(v.Model)
	if v.Prompt != "" {
		opts.Prompt = v.Prompt
	}
	if v.MaxDim > 0 {
		opts.MaxDim = v.MaxDim
	}
	if v.Quality > 0 {
		opts.Quality = v.Quality
	}
	opts.MinConfidence = v.MinConfidence
	return opts
}

// NewMatte returns the matte extractor named by cfg.Backend.
func NewMatte(cfg config.MatteConfig) (pipeline.MatteExtractor, error) {
	switch cfg.Backend {
	case "chroma":
		return matte.NewChroma(cfg.Chroma)
	case "alpha":
		return matte.Alpha{}, nil
	case "onnx":
		return matte.NewONNX(cfg.ONNX)
	default:
		return nil, fmt.Errorf("unknown matte backend %q", cfg.Backend)
	}
}

// NewUpscaler returns the upscaler named by cfg.Backend.
func NewUpscaler(cfg config.UpscaleConfig) (pipeline.Upscaler, error) {
	switch cfg.Backend {
	case "kernel", "":
		return upscale.NewKernel(cfg.Kernel)
	case "onnx":
		return upscale.NewONNX(cfg.ONNX)
	default:
		return nil, fmt.Errorf("unknown upscale backend %q", cfg.Backend)
	}
}
