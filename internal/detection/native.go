package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// NativeProcessor implements ImageProcessor in pure Go. It has nothing to
// load and is safe for concurrent use.
type NativeProcessor struct{}

// NewNativeProcessor returns a pure-Go processor.
func NewNativeProcessor() *NativeProcessor {
	return &NativeProcessor{}
}

// Load only honours cancellation.
func (p *NativeProcessor) Load(ctx context.Context) error {
	return ctx.Err()
}

// BT.601 luma weights, as used by OpenCV's RGB-to-gray conversion.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Grayscale converts img to 8-bit luminance.
func (p *NativeProcessor) Grayscale(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}
	rgba := effect.GrayscaleWithWeights(img, lumaR, lumaG, lumaB)

	// All three channels carry the luma; keep R.
	b := rgba.Bounds()
	gray := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+b.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return gray, nil
}

// ThresholdInv marks pixels at or below level as foreground (255), like
// OpenCV's THRESH_BINARY_INV with maxval 255.
func (p *NativeProcessor) ThresholdInv(gray *image.Gray, level uint8) (*image.Gray, error) {
	if gray == nil {
		return nil, fmt.Errorf("nil grayscale image")
	}
	if level == 255 {
		out := image.NewGray(gray.Bounds())
		for i := range out.Pix {
			out.Pix[i] = 255
		}
		return out, nil
	}

	// bild sets pixels >= level to white; shift by one and invert.
	out := segment.Threshold(gray, level+1)
	for i := range out.Pix {
		out.Pix[i] = 255 - out.Pix[i]
	}
	return out, nil
}

// ExternalContours counts outermost foreground regions.
func (p *NativeProcessor) ExternalContours(bin *image.Gray) (int, error) {
	if bin == nil {
		return 0, fmt.Errorf("nil binary image")
	}
	return countExternalRegions(bin), nil
}

// CountNonZero counts foreground pixels.
func (p *NativeProcessor) CountNonZero(bin *image.Gray) (int, error) {
	if bin == nil {
		return 0, fmt.Errorf("nil binary image")
	}
	b := bin.Bounds()
	n := 0
	for y := 0; y < b.Dy(); y++ {
		row := bin.Pix[y*bin.Stride : y*bin.Stride+b.Dx()]
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n, nil
}
