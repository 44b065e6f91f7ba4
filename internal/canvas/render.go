package canvas

import (
	"math"

	"github.com/gogpu/gg"
	"go.uber.org/zap"
)

// Guide line style: 1 px, 6 on / 6 off.
const (
	guideWidth = 1.0
	guideDash  = 6.0
)

// repaint rebuilds the raster from scratch: background, guides, watermark,
// then every sealed stroke in order.
func (s *Surface) repaint() {
	s.dc.ClearWithColor(gg.Hex(s.opts.Background))
	if s.opts.Guides {
		s.drawGuides()
	}
	if s.showWatermark && s.target != "" {
		s.drawWatermark()
	}
	for i := range s.strokes {
		s.renderStroke(&s.strokes[i])
	}
}

func (s *Surface) renderStroke(st *Stroke) {
	if len(st.Points) == 1 {
		s.drawDot(st)
		return
	}
	for i := 1; i < len(st.Points); i++ {
		s.drawSegment(st, i)
	}
}

// drawSegment strokes the segment ending at st.Points[i] with st.Widths[i].
func (s *Surface) drawSegment(st *Stroke, i int) {
	path := segmentPath(st.Points, i, s.opts.Smoothing)

	s.dc.SetHexColor(st.Color)
	s.dc.SetStroke(gg.DefaultStroke().
		WithWidth(st.Widths[i]).
		WithCap(gg.LineCapRound).
		WithJoin(gg.LineJoinRound))
	s.dc.MoveTo(path[0].X, path[0].Y)
	for _, q := range path[1:] {
		s.dc.LineTo(q.X, q.Y)
	}
	if err := s.dc.Stroke(); err != nil {
		s.log.Debug("stroke segment", zap.Int("index", i), zap.Error(err))
	}
}

// drawDot renders a one-point stroke as a filled circle, which is what a
// zero-length line with round caps looks like.
func (s *Surface) drawDot(st *Stroke) {
	p := st.Points[0]
	s.dc.SetHexColor(st.Color)
	s.dc.DrawCircle(p.X, p.Y, st.Widths[0]/2)
	if err := s.dc.Fill(); err != nil {
		s.log.Debug("fill dot", zap.Error(err))
	}
}

// drawGuides draws the dashed centre cross of a practice square. The guide
// colour is light enough that the detector's threshold ignores it.
func (s *Surface) drawGuides() {
	w, h := float64(s.width), float64(s.height)
	cx, cy := math.Floor(w/2)+0.5, math.Floor(h/2)+0.5

	s.dc.SetHexColor(s.opts.GuideColor)
	s.dc.SetStroke(gg.DefaultStroke().
		WithWidth(guideWidth).
		WithDashPattern(guideDash, guideDash))

	s.dc.MoveTo(cx, 0)
	s.dc.LineTo(cx, h)
	s.dc.MoveTo(0, cy)
	s.dc.LineTo(w, cy)
	if err := s.dc.Stroke(); err != nil {
		s.log.Debug("stroke guides", zap.Error(err))
	}
}

// drawWatermark renders the target glyph centred on the raster in the
// pre-blended watermark colour.
func (s *Surface) drawWatermark() {
	if s.opts.Font == nil {
		if !s.warnedNoFont {
			s.log.Warn("no watermark font configured; skipping reference glyph",
				zap.String("target", s.target))
			s.warnedNoFont = true
		}
		return
	}

	size := s.opts.WatermarkScale * float64(min(s.width, s.height))
	s.dc.SetFont(s.opts.Font.Face(size))
	s.dc.SetHexColor(s.watermarkHex)
	s.dc.DrawStringAnchored(s.target, float64(s.width)/2, float64(s.height)/2, 0.5, 0.5)
}
