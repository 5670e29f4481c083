// Package matte extracts subject alpha mattes: an ONNX segmentation model,
// a chroma key against a plain backdrop, and the source alpha channel.
package matte

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/floats"

	"github.com/menta2k/passport-photo/internal/onnxrt"
	"github.com/menta2k/passport-photo/pkg/types"
)

// ONNXConfig describes a single-input, single-output segmentation model
// such as U2-Net or MODNet exported to ONNX.
type ONNXConfig struct {
	ModelPath   string `json:"model_path" yaml:"model_path"`
	LibraryPath string `json:"library_path" yaml:"library_path"`
	InputName   string `json:"input_name" yaml:"input_name"`
	OutputName  string `json:"output_name" yaml:"output_name"`
	Size        int    `json:"size" yaml:"size"` // square model input
	Threads     int    `json:"threads" yaml:"threads"`
}

// DefaultONNXConfig matches the public u2netp export.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		ModelPath:  "u2netp.onnx",
		InputName:  "input.1",
		OutputName: "1959",
		Size:       320,
	}
}

// ONNX runs a segmentation model. A session owns preallocated tensors, so
// Extract calls are serialized.
type ONNX struct {
	mu      sync.Mutex
	size    int
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNX loads the model and allocates its tensors.
func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("matte model input size must be positive, got %d", cfg.Size)
	}
	if err := onnxrt.Init(cfg.LibraryPath); err != nil {
		return nil, err
	}

	s := int64(cfg.Size)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, s, s))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, s, s))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	opts, err := onnxrt.NewSessionOptions(cfg.Threads)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer opts.Destroy()

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.Value{input}, []ort.Value{output}, opts)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create matte session for %s: %w", cfg.ModelPath, err)
	}

	return &ONNX{size: cfg.Size, session: session, input: input, output: output}, nil
}

// Extract predicts a matte for img at img's size.
func (m *ONNX) Extract(ctx context.Context, img image.Image) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", types.ErrMissingMatte)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := onnxrt.FillCHW(m.input.GetData(), img, m.size, m.size, onnxrt.ImageNetMean, onnxrt.ImageNetStd); err != nil {
		return nil, err
	}
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: inference failed: %v", types.ErrMissingMatte, err)
	}

	raw := ProbabilityToGray(m.output.GetData(), m.size, m.size)
	return ResizeGray(raw, b.Dx(), b.Dy()), nil
}

// Close releases the session and tensors.
func (m *ONNX) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	if m.session != nil {
		first = m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
	return first
}

// ProbabilityToGray min-max normalizes a raw prediction map to 0..255.
func ProbabilityToGray(pred []float32, w, h int) *image.Gray {
	vals := make([]float64, w*h)
	for i := range vals {
		vals[i] = float64(pred[i])
	}
	lo, hi := floats.Min(vals), floats.Max(vals)
	out := image.NewGray(image.Rect(0, 0, w, h))
	if hi-lo < 1e-12 {
		// flat prediction: treat as all subject when high, else background
		if hi >= 0.5 {
			for i := range out.Pix {
				out.Pix[i] = 255
			}
		}
		return out
	}
	floats.AddConst(-lo, vals)
	floats.Scale(255/(hi-lo), vals)
	for i, v := range vals {
		out.Pix[i] = uint8(v + 0.5)
	}
	return out
}

// ResizeGray scales a matte to w x h.
func ResizeGray(g *image.Gray, w, h int) *image.Gray {
	if g.Bounds().Dx() == w && g.Bounds().Dy() == h {
		return g
	}
	scaled := imaging.Resize(g, w, h, imaging.Linear)
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i := range out.Pix {
		out.Pix[i] = scaled.Pix[i*4]
	}
	return out
}
