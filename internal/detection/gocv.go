//go:build gocv

package detection

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"
)

// GoCVProcessor implements ImageProcessor with OpenCV through gocv. Each
// call allocates and closes its own Mats, so it is safe for concurrent use.
type GoCVProcessor struct{}

// NewGoCVProcessor returns an OpenCV-backed processor.
func NewGoCVProcessor() *GoCVProcessor {
	return &GoCVProcessor{}
}

// Load checks that the OpenCV runtime answers.
func (p *GoCVProcessor) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if gocv.Version() == "" {
		return fmt.Errorf("opencv runtime did not report a version")
	}
	return nil
}

// Grayscale converts img with COLOR_RGBA2GRAY.
func (p *GoCVProcessor) Grayscale(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}
	rgba := tightRGBA(img)
	b := rgba.Bounds()

	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap raster: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)

	return matToGray(gray)
}

// ThresholdInv applies THRESH_BINARY_INV at level with maxval 255.
func (p *GoCVProcessor) ThresholdInv(gray *image.Gray, level uint8) (*image.Gray, error) {
	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap grayscale: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Threshold(src, &dst, float32(level), 255, gocv.ThresholdBinaryInv)

	return matToGray(dst)
}

// ExternalContours runs findContours with RETR_EXTERNAL.
func (p *GoCVProcessor) ExternalContours(bin *image.Gray) (int, error) {
	src, err := gocv.ImageGrayToMatGray(bin)
	if err != nil {
		return 0, fmt.Errorf("failed to wrap binary image: %w", err)
	}
	defer src.Close()

	contours := gocv.FindContours(src, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	return contours.Size(), nil
}

// CountNonZero counts foreground pixels.
func (p *GoCVProcessor) CountNonZero(bin *image.Gray) (int, error) {
	src, err := gocv.ImageGrayToMatGray(bin)
	if err != nil {
		return 0, fmt.Errorf("failed to wrap binary image: %w", err)
	}
	defer src.Close()
	return gocv.CountNonZero(src), nil
}

// tightRGBA returns img as an RGBA whose stride is exactly 4*width, which
// NewMatFromBytes requires.
func tightRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func matToGray(m gocv.Mat) (*image.Gray, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to read mat: %w", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("expected single-channel mat, got %T", img)
	}
	return gray, nil
}
