package imaging

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses a "#RRGGBB" or "#RGB" brush colour.
func ParseColor(hex string) (colorful.Color, error) {
	if hex == "" {
		return colorful.Color{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return c, nil
}

// MustParseColor is ParseColor for compile-time constants. It panics on a
// malformed string.
func MustParseColor(hex string) colorful.Color {
	c, err := ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// BlendOver returns the opaque colour produced by painting fg at the given
// opacity (0..1) over bg. Blending happens in RGB space, which is what a
// browser canvas does for a translucent fill.
func BlendOver(fg, bg colorful.Color, opacity float64) colorful.Color {
	if opacity <= 0 {
		return bg
	}
	if opacity >= 1 {
		return fg
	}
	return bg.BlendRgb(fg, opacity).Clamped()
}

// Luma returns the BT.601 luminance (0-255) of c.
func Luma(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	return uint8((299*(r>>8) + 587*(g>>8) + 114*(b>>8) + 500) / 1000)
}
