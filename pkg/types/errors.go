package types

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrImageTooSmall     = errors.New("image too small")
	ErrNoFaceDetected    = errors.New("no face detected")
	ErrDegenerateCrop    = errors.New("degenerate crop")
	ErrMissingMatte      = errors.New("missing matte")
	ErrInvalidCanvasSpec = errors.New("invalid canvas spec")
	ErrInvalidPageSpec   = errors.New("invalid page spec")
)

// StageError ties a failure to the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Stage wraps err with the stage name. A nil err stays nil.
func Stage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
