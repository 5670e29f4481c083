// Package onnxrt owns the process-wide ONNX Runtime environment and the
// conversions between images and planar float tensors.
package onnxrt

import (
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

// ImageNet normalisation used by most segmentation backbones.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Init loads the shared library and initializes the environment. Only the
// first call has any effect; later calls return its result.
func Init(libraryPath string) error {
	initOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("failed to initialize onnxruntime: %w", err)
		}
	})
	return initErr
}

// NewSessionOptions returns options limited to threads intra-op threads
// (0 keeps the runtime default). The caller destroys them.
func NewSessionOptions(threads int) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if threads > 0 {
		if err := opts.SetIntraOpNumThreads(threads); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}
	return opts, nil
}

// FillCHW resizes img to w x h and writes it into dst as three planes of
// (v/255 - mean) / std. dst must hold 3*w*h values.
func FillCHW(dst []float32, img image.Image, w, h int, mean, std [3]float32) error {
	if len(dst) != 3*w*h {
		return fmt.Errorf("tensor holds %d values, want %d", len(dst), 3*w*h)
	}
	src := imaging.Resize(img, w, h, imaging.Linear)
	plane := w * h
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			i := y*w + x
			for c := 0; c < 3; c++ {
				v := float32(row[x*4+c]) / 255
				dst[c*plane+i] = (v - mean[c]) / std[c]
			}
		}
	}
	return nil
}

// CHWToNRGBA converts three planes in [0,1] to an opaque image.
func CHWToNRGBA(data []float32, w, h int) (*image.NRGBA, error) {
	if len(data) < 3*w*h {
		return nil, fmt.Errorf("tensor holds %d values, want %d", len(data), 3*w*h)
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	plane := w * h
	for i := 0; i < plane; i++ {
		for c := 0; c < 3; c++ {
			out.Pix[i*4+c] = toByte(data[c*plane+i])
		}
		out.Pix[i*4+3] = 255
	}
	return out, nil
}

func toByte(v float32) uint8 {
	v = v*255 + 0.5
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
