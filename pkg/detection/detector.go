// Package detection locates faces with a multimodal vision model.
package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/passport-photo/pkg/client"
	"github.com/menta2k/passport-photo/pkg/processing"
	"github.com/menta2k/passport-photo/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks for every face as a normalized box
const DefaultPrompt = `You are a face locator for identity photos.

Return JSON only:
{
  "faces": [
    {"box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}, "confidence": 0.0}
  ],
  "description": "short neutral sentence (<= 20 words)"
}

HARD RULES
- One entry per visible human face, largest first.
- All coordinates are normalized to [0,1] (NOT pixels); x,y is the top-left corner.
- The box spans forehead to chin and ear to ear. Exclude hair and shoulders.
- If no face is visible, return {"faces": [], "description": "..."}.
- Do not guess real identities.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Options configures a Detector
type Options struct {
	Model         string
	Prompt        string
	MaxDim        int     // longest side of the image sent to the model
	Quality       int     // JPEG quality of the image sent to the model
	MinConfidence float64 // faces below this are dropped
}

// DefaultOptions returns sensible defaults for model
func DefaultOptions(model string) Options {
	return Options{
		Model:         model,
		Prompt:        DefaultPrompt,
		MaxDim:        1024,
		Quality:       90,
		MinConfidence: 0.3,
	}
}

// Detector handles face detection using vision models
type Detector struct {
	client    client.VisionClient
	processor *processing.Processor
	opts      Options
}

// NewDetector creates a new detector with a vision client
func NewDetector(c client.VisionClient, opts Options) *Detector {
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.Quality <= 0 {
		opts.Quality = 90
	}
	return &Detector{client: c, processor: processing.NewProcessor(), opts: opts}
}

// Locate returns the face boxes of img in pixel coordinates.
func (d *Detector) Locate(ctx context.Context, img image.Image) ([]types.BoundingBox, error) {
	report, err := d.DetectFaces(ctx, img)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	boxes := make([]types.BoundingBox, 0, len(report.Faces))
	for _, f := range report.Faces {
		if f.Confidence < d.opts.MinConfidence {
			continue
		}
		px := f.Box.ToPixels(b.Dx(), b.Dy())
		if px.W <= 0 || px.H <= 0 {
			continue
		}
		boxes = append(boxes, px)
	}
	return boxes, nil
}

// DetectFaces sends img to the model and returns its normalized answer.
func (d *Detector) DetectFaces(ctx context.Context, img image.Image) (*types.FaceReport, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, "jpg", d.opts.MaxDim, d.opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	report, err := d.client.LocateFaces(ctx, d.opts.Model, d.opts.Prompt, imgB64)
	if err != nil {
		return nil, fmt.Errorf("vision model %s: %w", d.opts.Model, err)
	}

	sent := sentSize(img.Bounds().Size(), d.opts.MaxDim)
	for i := range report.Faces {
		report.Faces[i].Box = normalizeBox(report.Faces[i].Box, sent.X, sent.Y)
	}
	return report, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, img image.Image) (string, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, "jpg", d.opts.MaxDim, d.opts.Quality)
	if err != nil {
		return "", err
	}
	return d.client.SimpleQuery(ctx, d.opts.Model, SimpleTestPrompt, imgB64)
}

// sentSize mirrors the downscale done by PrepareImageForModel.
func sentSize(s image.Point, maxDim int) image.Point {
	if maxDim <= 0 || (s.X <= maxDim && s.Y <= maxDim) {
		return s
	}
	if s.X >= s.Y {
		return image.Pt(maxDim, int(float64(s.Y)*float64(maxDim)/float64(s.X)+0.5))
	}
	return image.Pt(int(float64(s.X)*float64(maxDim)/float64(s.Y)+0.5), maxDim)
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox maps a box to [0,1]. Models sometimes answer in pixels of
// the image they were shown; those are divided by imgW/imgH.
func normalizeBox(b types.Box, imgW, imgH int) types.Box {
	if imgW > 0 && imgH > 0 && (b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1) {
		b = types.Box{
			X: b.X / float64(imgW),
			Y: b.Y / float64(imgH),
			W: b.W / float64(imgW),
			H: b.H / float64(imgH),
		}
	}
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}
