//go:build !gocv

package detection

import (
	"context"
	"image"
)

// GoCVProcessor is a placeholder when the binary is built without the gocv
// tag. Load always fails, so a detector using it reports zero confidence.
type GoCVProcessor struct{}

// NewGoCVProcessor returns the placeholder processor.
func NewGoCVProcessor() *GoCVProcessor {
	return &GoCVProcessor{}
}

// Load reports that OpenCV is not compiled in.
func (p *GoCVProcessor) Load(ctx context.Context) error {
	return ErrBackendUnavailable
}

func (p *GoCVProcessor) Grayscale(image.Image) (*image.Gray, error) {
	return nil, ErrBackendUnavailable
}

func (p *GoCVProcessor) ThresholdInv(*image.Gray, uint8) (*image.Gray, error) {
	return nil, ErrBackendUnavailable
}

func (p *GoCVProcessor) ExternalContours(*image.Gray) (int, error) {
	return 0, ErrBackendUnavailable
}

func (p *GoCVProcessor) CountNonZero(*image.Gray) (int, error) {
	return 0, ErrBackendUnavailable
}
