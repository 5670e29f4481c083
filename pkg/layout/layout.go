// Package layout places identical photo cells on a printable page.
//
// Lengths are millimetres. Cell origins use page coordinates with the origin
// at the bottom-left corner, the convention of print canvases; row 0 is the
// visually topmost row.
package layout

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/menta2k/passport-photo/pkg/types"
)

// Canvas is a page surface that photos are drawn onto.
type Canvas interface {
	// AddPage starts a new page. Render calls it before the first cell.
	AddPage() error
	// PlaceImage draws img stretched to w x h with its bottom-left corner at x, y.
	PlaceImage(img image.Image, x, y, w, h float64) error
}

// Standard paper sizes in millimetres, portrait orientation.
var (
	A4       = Paper{Name: "A4", Width: 210, Height: 297}
	A5       = Paper{Name: "A5", Width: 148, Height: 210}
	A6       = Paper{Name: "A6", Width: 105, Height: 148}
	Letter   = Paper{Name: "Letter", Width: 215.9, Height: 279.4}
	Photo4x6 = Paper{Name: "4x6", Width: 101.6, Height: 152.4}
)

// Paper is a named page size
type Paper struct {
	Name   string
	Width  float64
	Height float64
}

// CommonPapers returns the paper sizes known by name
func CommonPapers() []Paper {
	return []Paper{A4, A5, A6, Letter, Photo4x6}
}

// PaperByName looks up a paper size ignoring case.
func PaperByName(name string) (Paper, bool) {
	for _, p := range CommonPapers() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Paper{}, false
}

// Validate checks that spec can hold at least one cell.
func Validate(spec types.PageSpec) error {
	if spec.Rows <= 0 || spec.Cols <= 0 {
		return fmt.Errorf("%w: grid %dx%d", types.ErrInvalidPageSpec, spec.Rows, spec.Cols)
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return fmt.Errorf("%w: page %.2fx%.2fmm", types.ErrInvalidPageSpec, spec.Width, spec.Height)
	}
	if spec.Margin < 0 || spec.Gap < 0 {
		return fmt.Errorf("%w: margin %.2fmm gap %.2fmm", types.ErrInvalidPageSpec, spec.Margin, spec.Gap)
	}
	availW, availH := available(spec)
	if availW <= 0 || availH <= 0 {
		return fmt.Errorf("%w: no room for %dx%d cells on %.2fx%.2fmm with margin %.2fmm and gap %.2fmm",
			types.ErrInvalidPageSpec, spec.Rows, spec.Cols, spec.Width, spec.Height, spec.Margin, spec.Gap)
	}
	return nil
}

func available(spec types.PageSpec) (w, h float64) {
	w = spec.Width - 2*spec.Margin - float64(spec.Cols-1)*spec.Gap
	h = spec.Height - 2*spec.Margin - float64(spec.Rows-1)*spec.Gap
	return w, h
}

// PlanPage computes the largest undistorted cell grid for spec. cellRatio
// is width/height of one photo. The grid is centred on the page, so the
// actual border may be wider than the margin.
func PlanPage(spec types.PageSpec, cellRatio float64) (types.PagePlan, error) {
	if err := Validate(spec); err != nil {
		return types.PagePlan{}, err
	}
	if cellRatio <= 0 || math.IsNaN(cellRatio) || math.IsInf(cellRatio, 0) {
		return types.PagePlan{}, fmt.Errorf("%w: cell ratio %v", types.ErrInvalidPageSpec, cellRatio)
	}

	availW, availH := available(spec)
	maxW := availW / float64(spec.Cols)
	maxH := availH / float64(spec.Rows)

	var cellW, cellH float64
	if maxW/maxH > cellRatio {
		cellH = maxH
		cellW = cellH * cellRatio
	} else {
		cellW = maxW
		cellH = cellW / cellRatio
	}

	plan := types.PagePlan{
		Page:       spec,
		CellWidth:  cellW,
		CellHeight: cellH,
	}
	gridW, gridH := plan.Footprint()
	plan.OffsetX = (spec.Width - gridW) / 2
	plan.OffsetY = (spec.Height - gridH) / 2

	plan.Cells = make([]types.Cell, 0, spec.Rows*spec.Cols)
	for r := 0; r < spec.Rows; r++ {
		top := plan.OffsetY + float64(r)*(cellH+spec.Gap)
		for c := 0; c < spec.Cols; c++ {
			plan.Cells = append(plan.Cells, types.Cell{
				Index: r*spec.Cols + c,
				Row:   r,
				Col:   c,
				X:     plan.OffsetX + float64(c)*(cellW+spec.Gap),
				Y:     spec.Height - top - cellH,
				W:     cellW,
				H:     cellH,
			})
		}
	}
	return plan, nil
}

// PagesFor returns how many pages copies photos need under plan.
func PagesFor(plan types.PagePlan, copies int) int {
	per := len(plan.Cells)
	if per == 0 || copies <= 0 {
		return 0
	}
	return (copies + per - 1) / per
}

// Render draws photo into the cells of plan, filling pages in cell order
// until copies photos are placed. copies <= 0 fills exactly one page.
func Render(plan types.PagePlan, photo image.Image, canvas Canvas, copies int) error {
	if len(plan.Cells) == 0 {
		return fmt.Errorf("%w: plan has no cells", types.ErrInvalidPageSpec)
	}
	if copies <= 0 {
		copies = len(plan.Cells)
	}

	placed := 0
	for page := 0; placed < copies; page++ {
		if err := canvas.AddPage(); err != nil {
			return fmt.Errorf("failed to add page %d: %w", page+1, err)
		}
		for _, cell := range plan.Cells {
			if placed == copies {
				break
			}
			if err := canvas.PlaceImage(photo, cell.X, cell.Y, cell.W, cell.H); err != nil {
				return fmt.Errorf("failed to place cell %d on page %d: %w", cell.Index, page+1, err)
			}
			placed++
		}
	}
	return nil
}
