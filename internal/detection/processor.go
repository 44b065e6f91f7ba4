package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// ImageProcessor is the vision capability the detector depends on.
//
// Load is called lazily before the first image operation and again after a
// failed load; it must be idempotent. Binary images use 255 for foreground
// and 0 for background.
type ImageProcessor interface {
	Load(ctx context.Context) error
	Grayscale(img image.Image) (*image.Gray, error)
	ThresholdInv(gray *image.Gray, level uint8) (*image.Gray, error)
	ExternalContours(bin *image.Gray) (int, error)
	CountNonZero(bin *image.Gray) (int, error)
}

// ErrBackendUnavailable is returned by processors that are not compiled in.
var ErrBackendUnavailable = errors.New("vision backend not available in this build")

// Backend names accepted by NewProcessor.
const (
	BackendNative = "native"
	BackendGoCV   = "gocv"
)

// NewProcessor returns the processor for a backend name.
func NewProcessor(backend string) (ImageProcessor, error) {
	switch strings.ToLower(backend) {
	case "", BackendNative:
		return NewNativeProcessor(), nil
	case BackendGoCV, "opencv":
		return NewGoCVProcessor(), nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q (use %s or %s)", backend, BackendNative, BackendGoCV)
	}
}
