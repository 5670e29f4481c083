package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/menta2k/passport-photo/pkg/pipeline"
	"github.com/menta2k/passport-photo/pkg/types"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}

	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if s.Canvas != (types.CanvasSpec{Width: 826, Height: 1062}) {
		t.Errorf("Unexpected canvas %+v", s.Canvas)
	}
	if s.Page.Width != 105 || s.Page.Height != 148 || s.Page.Rows != 3 || s.Page.Cols != 3 {
		t.Errorf("Expected A6 3x3, got %+v", s.Page)
	}
	if s.Background != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Expected white background, got %v", s.Background)
	}
	if s.Enhance != nil || s.Border != nil {
		t.Error("Enhancement and border should be disabled by default")
	}
	if s.Geometry.Padding.X != 0.4 || s.Geometry.Padding.Top != 0.5 || s.Geometry.Padding.Bottom != 1.1 {
		t.Errorf("Unexpected padding %+v", s.Geometry.Padding)
	}
	if s.Mode != pipeline.ModeSheet {
		t.Errorf("Expected sheet mode, got %q", s.Mode)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   error
	}{
		{"zero canvas", func(c *Config) { c.Canvas.Width = 0 }, types.ErrInvalidCanvasSpec},
		{"unknown paper", func(c *Config) { c.Page.Size = "B7" }, types.ErrInvalidPageSpec},
		{"no rows", func(c *Config) { c.Page.Rows = 0 }, types.ErrInvalidPageSpec},
		{"margin too wide", func(c *Config) { c.Page.MarginMM = 60 }, types.ErrInvalidPageSpec},
		{"explicit page", func(c *Config) { c.Page.Size = ""; c.Page.WidthMM = 0 }, types.ErrInvalidPageSpec},
		{"ratio mismatch", func(c *Config) { c.Geometry.TargetRatio = 1 }, types.ErrInvalidCanvasSpec},
		{"replace without matte", func(c *Config) { c.Matte.Backend = "none" }, types.ErrMissingMatte},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	plain := []func(c *Config){
		func(c *Config) { c.Output.Quality = 0 },
		func(c *Config) { c.Input.SupportedFormats = nil },
		func(c *Config) { c.Detection.Backend = "opencv" },
		func(c *Config) { c.Detection.Backend = "fixed" },
		func(c *Config) { c.Matte.Backend = "rembg" },
		func(c *Config) { c.Background.Color = "white" },
		func(c *Config) { c.Output.Mode = "poster" },
	}
	for i, modify := range plain {
		cfg := Default()
		modify(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestSettingsOptionalSteps(t *testing.T) {
	cfg := Default()
	cfg.Enhance.Enabled = true
	cfg.Enhance.Alpha = 1.2
	cfg.Enhance.Beta = 10
	cfg.Border.Thickness = 8
	cfg.Border.Color = "1e90ff"

	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if s.Enhance == nil || s.Enhance.Alpha != 1.2 || s.Enhance.Beta != 10 {
		t.Errorf("Unexpected enhancement %+v", s.Enhance)
	}
	if s.Border == nil || s.Border.Thickness != 8 || s.Border.Color != (color.NRGBA{0x1e, 0x90, 0xff, 255}) {
		t.Errorf("Unexpected border %+v", s.Border)
	}

	cfg.Enhance.Alpha, cfg.Enhance.Beta = 1, 0
	s, _ = cfg.Settings()
	if s.Enhance != nil {
		t.Error("Identity enhancement should be dropped")
	}
}

func TestExplicitPage(t *testing.T) {
	cfg := Default()
	cfg.Page.Size = ""
	cfg.Page.WidthMM, cfg.Page.HeightMM = 100, 150
	spec, err := cfg.PageSpec()
	if err != nil {
		t.Fatalf("PageSpec failed: %v", err)
	}
	if spec.Width != 100 || spec.Height != 150 || spec.Margin != 2 {
		t.Errorf("Unexpected page %+v", spec)
	}

	cfg.Page.Size = "letter"
	spec, _ = cfg.PageSpec()
	if spec.Width != 215.9 {
		t.Errorf("Expected Letter width, got %v", spec.Width)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Canvas = CanvasConfig{Width: 600, Height: 800}
	cfg.Detection.Backend = "fixed"
	cfg.Detection.Fixed = []types.Box{{X: 0.3, Y: 0.2, W: 0.4, H: 0.3}}

	for _, name := range []string{"config.json", "nested/config.yaml"} {
		path := filepath.Join(dir, name)
		if err := cfg.SaveToFile(path); err != nil {
			t.Fatalf("SaveToFile(%s) failed: %v", name, err)
		}
		loaded, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile(%s) failed: %v", name, err)
		}
		if !reflect.DeepEqual(loaded, cfg) {
			t.Errorf("%s: round trip changed config\n got %+v\nwant %+v", name, loaded, cfg)
		}
	}
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yml")
	data := []byte("canvas:\n  width: 413\n  height: 531\npage:\n  size: A4\n  rows: 4\n  cols: 4\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Canvas.Width != 413 || cfg.Page.Rows != 4 || cfg.Page.Size != "A4" {
		t.Errorf("File values not applied: %+v %+v", cfg.Canvas, cfg.Page)
	}
	if cfg.Page.MarginMM != 2 || cfg.Detection.Backend != "pigo" || cfg.Output.Quality != 95 {
		t.Error("Missing fields should keep defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Partial config should validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("Expected parse error")
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#ffffff": {255, 255, 255, 255},
		"000000":  {0, 0, 0, 255},
		"#f00":    {255, 0, 0, 255},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Errorf("ParseColor(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseColor(""); err == nil {
		t.Error("Expected error for empty colour")
	}
}
