package upscale

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/menta2k/passport-photo/internal/onnxrt"
)

// ONNXConfig describes a super-resolution model taking NCHW RGB in [0,1]
// with dynamic height and width (Real-ESRGAN and similar exports).
type ONNXConfig struct {
	ModelPath   string `json:"model_path" yaml:"model_path"`
	LibraryPath string `json:"library_path" yaml:"library_path"`
	InputName   string `json:"input_name" yaml:"input_name"`
	OutputName  string `json:"output_name" yaml:"output_name"`
	Threads     int    `json:"threads" yaml:"threads"`
}

// DefaultONNXConfig matches the common Real-ESRGAN x4 export.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		ModelPath:  "realesrgan-x4.onnx",
		InputName:  "input",
		OutputName: "output",
	}
}

// ONNX runs a super-resolution model once, then resamples the result to
// the exact requested factor.
type ONNX struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewONNX loads the model.
func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	if err := onnxrt.Init(cfg.LibraryPath); err != nil {
		return nil, err
	}
	opts, err := onnxrt.NewSessionOptions(cfg.Threads)
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create upscale session for %s: %w", cfg.ModelPath, err)
	}
	return &ONNX{session: session}, nil
}

// Upscale runs the model and resizes its output to img scaled by factor.
func (u *ONNX) Upscale(ctx context.Context, img image.Image, factor float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size, err := TargetSize(img.Bounds(), factor)
	if err != nil {
		return nil, err
	}
	if factor == 1 {
		return imaging.Clone(img), nil
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	data := make([]float32, 3*w*h)
	if err := onnxrt.FillCHW(data, img, w, h, [3]float32{}, [3]float32{1, 1, 1}); err != nil {
		return nil, err
	}
	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(h), int64(w)), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	u.mu.Lock()
	err = u.session.Run([]ort.Value{input}, outputs)
	u.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("super-resolution inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected super-resolution output type %T", outputs[0])
	}
	shape := out.GetShape()
	if len(shape) != 4 || shape[1] != 3 {
		return nil, fmt.Errorf("unexpected super-resolution output shape %v", shape)
	}
	sr, err := onnxrt.CHWToNRGBA(out.GetData(), int(shape[3]), int(shape[2]))
	if err != nil {
		return nil, err
	}
	if sr.Bounds().Dx() == size.X && sr.Bounds().Dy() == size.Y {
		return sr, nil
	}
	return imaging.Resize(sr, size.X, size.Y, imaging.Lanczos), nil
}

// Close releases the session.
func (u *ONNX) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.session == nil {
		return nil
	}
	err := u.session.Destroy()
	u.session = nil
	return err
}
