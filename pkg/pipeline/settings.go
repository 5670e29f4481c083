package pipeline

import (
	"fmt"
	"image/color"
	"math"

	"github.com/menta2k/passport-photo/pkg/compositor"
	"github.com/menta2k/passport-photo/pkg/document"
	"github.com/menta2k/passport-photo/pkg/geometry"
	"github.com/menta2k/passport-photo/pkg/layout"
	"github.com/menta2k/passport-photo/pkg/types"
)

// Mode selects what Run writes.
type Mode string

const (
	// ModeSheet tiles copies of the photo onto printable pages.
	ModeSheet Mode = "sheet"
	// ModeSingle writes one finished photo.
	ModeSingle Mode = "single"
)

// EnhanceStage selects where the linear enhancement runs.
type EnhanceStage string

const (
	EnhanceAfterMatte  EnhanceStage = "after-matte"
	EnhanceBeforeMatte EnhanceStage = "before-matte"
)

// ratioTolerance bounds how far an explicit crop ratio may drift from the
// canvas ratio before the final resize would visibly distort.
const ratioTolerance = 0.01

// Settings is the read-only configuration of a Pipeline. A zero
// Geometry.TargetRatio crops at the canvas ratio.
type Settings struct {
	Geometry          geometry.Config
	Canvas            types.CanvasSpec
	ReplaceBackground bool
	Background        color.NRGBA
	Enhance           *compositor.Enhancement
	EnhanceStage      EnhanceStage
	Border            *compositor.Border // single mode only
	Page              types.PageSpec
	Copies            int // sheet mode; <= 0 fills one page
	UpscaleFactor     float64
	Mode              Mode
	Document          document.Options
}

// DefaultSettings returns a 3x3 A6 sheet of 826x1062 photos on white.
func DefaultSettings() Settings {
	g := geometry.DefaultConfig()
	g.TargetRatio = 0
	return Settings{
		Geometry:          g,
		Canvas:            types.CanvasSpec{Width: 826, Height: 1062},
		ReplaceBackground: true,
		Background:        color.NRGBA{255, 255, 255, 255},
		EnhanceStage:      EnhanceAfterMatte,
		Page: types.PageSpec{
			Width:  layout.A6.Width,
			Height: layout.A6.Height,
			Margin: 2,
			Gap:    2,
			Rows:   3,
			Cols:   3,
		},
		UpscaleFactor: 1,
		Mode:          ModeSheet,
		Document:      document.DefaultOptions(),
	}
}

// CropRatio returns the width/height the planner crops at.
func (s Settings) CropRatio() float64 {
	if s.Geometry.TargetRatio > 0 {
		return s.Geometry.TargetRatio
	}
	return s.Canvas.Ratio()
}

// Validate rejects settings that cannot produce output, before any image
// work happens.
func (s Settings) Validate() error {
	if s.Canvas.Width <= 0 || s.Canvas.Height <= 0 {
		return fmt.Errorf("%w: canvas %dx%d", types.ErrInvalidCanvasSpec, s.Canvas.Width, s.Canvas.Height)
	}
	if r := s.Geometry.TargetRatio; r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: target ratio %v", types.ErrInvalidCanvasSpec, r)
	}
	if r := s.Geometry.TargetRatio; r > 0 && math.Abs(r/s.Canvas.Ratio()-1) > ratioTolerance {
		return fmt.Errorf("%w: target ratio %.4f does not match canvas %dx%d (%.4f)",
			types.ErrInvalidCanvasSpec, r, s.Canvas.Width, s.Canvas.Height, s.Canvas.Ratio())
	}
	p := s.Geometry.Padding
	if p.X < 0 || p.Top < 0 || p.Bottom < 0 {
		return fmt.Errorf("%w: negative padding %+v", types.ErrInvalidCanvasSpec, p)
	}
	if s.Border != nil && s.Border.Thickness < 0 {
		return fmt.Errorf("%w: border thickness %d", types.ErrInvalidCanvasSpec, s.Border.Thickness)
	}
	if s.UpscaleFactor != 0 && s.UpscaleFactor < 1 {
		return fmt.Errorf("%w: upscale factor %v", types.ErrInvalidCanvasSpec, s.UpscaleFactor)
	}
	if s.Enhance != nil && s.Enhance.Alpha < 0 {
		return fmt.Errorf("%w: enhancement alpha %v", types.ErrInvalidCanvasSpec, s.Enhance.Alpha)
	}
	switch s.EnhanceStage {
	case "", EnhanceAfterMatte, EnhanceBeforeMatte:
	default:
		return fmt.Errorf("unknown enhancement stage %q", s.EnhanceStage)
	}
	switch s.Mode {
	case ModeSingle:
	case ModeSheet, "":
		if err := layout.Validate(s.Page); err != nil {
			return err
		}
		if s.Document.DPI <= 0 {
			return fmt.Errorf("%w: dpi %d", types.ErrInvalidPageSpec, s.Document.DPI)
		}
	default:
		return fmt.Errorf("unknown output mode %q", s.Mode)
	}
	return nil
}
