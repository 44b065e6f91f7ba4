package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// EncodedImage is a raster serialised for transport over MCP.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	data, err := PNG(img)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &EncodedImage{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

// PNG returns the PNG encoding of img.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBase64 decodes base64 PNG, JPEG or GIF data, such as the output of
// EncodePNG, and describes it. EXIF orientation is applied as in Cache.Load.
func DecodeBase64(encoded string) (image.Image, *Info, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()
	return img, &Info{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		FileSizeBytes: int64(len(data)),
	}, nil
}

// InkBounds returns the smallest rectangle containing every pixel whose
// luminance is at or below threshold. ok is false when the raster has no ink.
func InkBounds(img image.Image, threshold uint8) (r image.Rectangle, ok bool) {
	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if Luma(img.At(x, y)) > threshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// CropToInk crops img to its ink bounds grown by pad pixels on every side,
// clipped to the image. A raster without ink is returned as a full copy.
func CropToInk(img image.Image, threshold uint8, pad int) *image.NRGBA {
	r, ok := InkBounds(img, threshold)
	if !ok {
		return imaging.Clone(img)
	}
	r = image.Rect(r.Min.X-pad, r.Min.Y-pad, r.Max.X+pad, r.Max.Y+pad).Intersect(img.Bounds())
	return imaging.Crop(img, r)
}

// FitWithin downscales img so neither side exceeds maxSide, preserving the
// aspect ratio. Images already within the limit, or a non-positive maxSide,
// yield img unchanged.
func FitWithin(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	if maxSide <= 0 || (bounds.Dx() <= maxSide && bounds.Dy() <= maxSide) {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Box)
}
