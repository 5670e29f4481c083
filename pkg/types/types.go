package types

import (
	"encoding/json"
	"image"
	"math"
)

// Box represents a normalized bounding box with coordinates in [0,1] range.
// Vision models answer in this form; it is converted to a BoundingBox once
// the source image size is known.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Face is one face reported by a vision model.
type Face struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// UnmarshalJSON reads a face whose confidence is missing or null as
// confidence 1, so threshold filtering only drops faces the model scored.
func (f *Face) UnmarshalJSON(data []byte) error {
	type face Face
	v := face{Confidence: 1}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Face(v)
	return nil
}

// FaceReport contains the complete answer from the vision model
type FaceReport struct {
	Faces       []Face `json:"faces"`
	Description string `json:"description"`
}

// Size is a width/height pair in pixels.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// BoundingBox is an axis-aligned face region in pixel coordinates,
// origin top-left.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns W*H.
func (b BoundingBox) Area() int {
	return b.W * b.H
}

// Rect converts the box to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// ToPixels converts a normalized box to pixel coordinates for an image of w x h.
func (b Box) ToPixels(w, h int) BoundingBox {
	x0 := int(math.Round(clamp01(b.X) * float64(w)))
	y0 := int(math.Round(clamp01(b.Y) * float64(h)))
	x1 := int(math.Round(clamp01(b.X+b.W) * float64(w)))
	y1 := int(math.Round(clamp01(b.Y+b.H) * float64(h)))
	return BoundingBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// CropRect is a crop in source-image pixel coordinates. Coordinates stay
// fractional so the aspect ratio is exact; Rect rounds for the raster crop.
type CropRect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width of the crop.
func (c CropRect) Width() float64 { return c.X2 - c.X1 }

// Height of the crop.
func (c CropRect) Height() float64 { return c.Y2 - c.Y1 }

// Ratio returns width/height.
func (c CropRect) Ratio() float64 {
	if c.Height() == 0 {
		return 0
	}
	return c.Width() / c.Height()
}

// Rect rounds the crop to whole pixels.
func (c CropRect) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(c.X1)), int(math.Round(c.Y1)),
		int(math.Round(c.X2)), int(math.Round(c.Y2)),
	)
}

// CanvasSpec is the canonical pixel size of one finished photo.
type CanvasSpec struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Ratio returns width/height of the canvas.
func (c CanvasSpec) Ratio() float64 {
	return float64(c.Width) / float64(c.Height)
}

// PageSpec describes a printable page. All lengths are millimetres.
type PageSpec struct {
	Width  float64 `json:"width_mm"`
	Height float64 `json:"height_mm"`
	Margin float64 `json:"margin_mm"`
	Gap    float64 `json:"gap_mm"`
	Rows   int     `json:"rows"`
	Cols   int     `json:"cols"`
}

// Cell is one photo slot on a page. X/Y is the bottom-left corner in page
// coordinates with the origin at the bottom-left of the page.
type Cell struct {
	Index int     `json:"index"`
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// PagePlan is the placement grid for one page. It is computed once and
// reused for every page of a document.
type PagePlan struct {
	Page       PageSpec `json:"page"`
	CellWidth  float64  `json:"cell_width_mm"`
	CellHeight float64  `json:"cell_height_mm"`
	OffsetX    float64  `json:"offset_x_mm"`
	OffsetY    float64  `json:"offset_y_mm"`
	Cells      []Cell   `json:"cells"`
}

// Footprint returns the grid extent including gaps.
func (p PagePlan) Footprint() (w, h float64) {
	w = float64(p.Page.Cols)*p.CellWidth + float64(p.Page.Cols-1)*p.Page.Gap
	h = float64(p.Page.Rows)*p.CellHeight + float64(p.Page.Rows-1)*p.Page.Gap
	return w, h
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
