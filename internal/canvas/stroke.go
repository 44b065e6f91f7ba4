package canvas

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects the brush used for new strokes.
type Mode string

const (
	// Drawing paints with the ink colour and a pressure-simulated width.
	Drawing Mode = "drawing"
	// Erasing paints with the background colour and the eraser width.
	Erasing Mode = "erasing"
)

// ParseMode accepts "drawing"/"draw"/"pen" and "erasing"/"erase"/"eraser".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drawing", "draw", "pen":
		return Drawing, nil
	case "erasing", "erase", "eraser":
		return Erasing, nil
	default:
		return Drawing, fmt.Errorf("unknown mode %q (use drawing or erasing)", s)
	}
}

// UnmarshalText accepts the same spellings as ParseMode.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Point is one pointer sample in raster pixel coordinates. T is a timestamp
// in milliseconds; only differences between consecutive points matter.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

// Valid reports whether both coordinates are finite numbers.
func (p Point) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Stroke is one pointer-down to pointer-up trail.
//
// Widths[i] is the brush width used for the segment ending at Points[i];
// Widths[0] is the brush width when the stroke began and is also the dot
// diameter for a single-point stroke.
type Stroke struct {
	Points []Point   `json:"points"`
	Widths []float64 `json:"widths"`
	Color  string    `json:"color"`
	Mode   Mode      `json:"mode"`
}

func (s Stroke) clone() Stroke {
	s.Points = append([]Point(nil), s.Points...)
	s.Widths = append([]float64(nil), s.Widths...)
	return s
}

// BrushDynamics parameterises the speed-to-width mapping.
type BrushDynamics struct {
	MinWidth     float64 `json:"min_width" yaml:"min_width" toml:"min_width"`
	MaxWidth     float64 `json:"max_width" yaml:"max_width" toml:"max_width"`
	BaseWidth    float64 `json:"base_width" yaml:"base_width" toml:"base_width"`
	SpeedDivisor float64 `json:"speed_divisor" yaml:"speed_divisor" toml:"speed_divisor"`
}

// DefaultDynamics returns the 3..6 px range centred on a 5 px pen.
func DefaultDynamics() BrushDynamics {
	return BrushDynamics{
		MinWidth:     3,
		MaxWidth:     6,
		BaseWidth:    5,
		SpeedDivisor: 10,
	}
}

// WidthFor returns the simulated pen width for the segment prev→p drawn over
// elapsedMs milliseconds: clamp(MinWidth, MaxWidth, BaseWidth − speed/SpeedDivisor)
// with speed in pixels per millisecond. A non-positive elapsed time or
// divisor yields the clamped base width.
func WidthFor(prev, p Point, elapsedMs float64, d BrushDynamics) float64 {
	if elapsedMs <= 0 || d.SpeedDivisor <= 0 {
		return clamp(d.BaseWidth, d.MinWidth, d.MaxWidth)
	}
	speed := math.Hypot(p.X-prev.X, p.Y-prev.Y) / elapsedMs
	return clamp(d.BaseWidth-speed/d.SpeedDivisor, d.MinWidth, d.MaxWidth)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// smoothSamples is the number of Catmull-Rom samples per segment.
const smoothSamples = 10

// segmentPath returns the polyline used to render the segment ending at
// pts[i]. Without smoothing that is just the two endpoints. With smoothing
// the segment is a Catmull-Rom spline through pts[i-2], pts[i-1], pts[i],
// with the end tangent taken from pts[i] itself since later points are not
// yet known. The result depends only on pts[:i+1], so replaying a sealed
// stroke reproduces the incremental rendering exactly.
func segmentPath(pts []Point, i int, smooth bool) []Point {
	p1, p2 := pts[i-1], pts[i]
	if !smooth {
		return []Point{p1, p2}
	}

	p0 := p1
	if i >= 2 {
		p0 = pts[i-2]
	}
	p3 := p2

	out := make([]Point, 0, smoothSamples+1)
	for k := 0; k <= smoothSamples; k++ {
		t := float64(k) / smoothSamples
		out = append(out, Point{
			X: catmullRom(p0.X, p1.X, p2.X, p3.X, t),
			Y: catmullRom(p0.Y, p1.Y, p2.Y, p3.Y, t),
		})
	}
	return out
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * (2*p1 +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}
