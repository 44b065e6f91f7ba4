package canvas

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
)

const inkThreshold = 50

func newTestSurface(t *testing.T, mutate func(*Options)) *Surface {
	t.Helper()
	opts := DefaultOptions()
	opts.Width, opts.Height = 120, 120
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// drawLine draws one sealed stroke through pts with 16 ms between samples.
func drawLine(s *Surface, pts ...Point) {
	for i := range pts {
		pts[i].T = int64(i * 16)
	}
	s.Begin(pts[0])
	for _, p := range pts[1:] {
		s.Extend(p)
	}
	s.End()
}

func isInk(t *testing.T, s *Surface, x, y int) bool {
	t.Helper()
	return imaging.Luma(s.Snapshot().At(x, y)) <= inkThreshold
}

func TestNew_RejectsBadColour(t *testing.T) {
	opts := DefaultOptions()
	opts.InkColor = "#nothex"
	if _, err := New(opts); err == nil {
		t.Error("expected error for malformed ink colour")
	}
}

func TestNew_ClampsSize(t *testing.T) {
	s := newTestSurface(t, func(o *Options) {
		o.Width, o.Height = 5000, 0
	})
	w, h := s.Size()
	if w != DefaultMaxSide || h != 1 {
		t.Errorf("Size() = %dx%d, want %dx1", w, h, DefaultMaxSide)
	}
}

func TestSurface_BlankRasterHasNoInk(t *testing.T) {
	s := newTestSurface(t, nil)
	if _, ok := imaging.InkBounds(s.Snapshot(), inkThreshold); ok {
		t.Error("fresh surface must contain no ink")
	}
}

func TestSurface_ClearAlwaysLeavesZeroStrokes(t *testing.T) {
	sequences := []func(s *Surface){
		func(s *Surface) {},
		func(s *Surface) { drawLine(s, Point{X: 10, Y: 10}, Point{X: 50, Y: 50}) },
		func(s *Surface) {
			drawLine(s, Point{X: 10, Y: 10}, Point{X: 50, Y: 50})
			drawLine(s, Point{X: 60, Y: 10})
			s.Begin(Point{X: 1, Y: 1})
			s.Extend(Point{X: 2, Y: 2})
		},
		func(s *Surface) {
			s.End()
			s.Extend(Point{X: 3, Y: 3})
			s.SetMode(Erasing)
			drawLine(s, Point{X: 10, Y: 10}, Point{X: 20, Y: 20})
		},
	}

	for i, seq := range sequences {
		s := newTestSurface(t, nil)
		seq(s)
		s.Clear()
		if n := s.StrokeCount(); n != 0 {
			t.Errorf("sequence %d: %d strokes after Clear, want 0", i, n)
		}
		if s.InStroke() {
			t.Errorf("sequence %d: stroke still in progress after Clear", i)
		}
		if _, ok := imaging.InkBounds(s.Snapshot(), inkThreshold); ok {
			t.Errorf("sequence %d: ink left on raster after Clear", i)
		}
	}
}

func TestSurface_StrokeCountMatchesCompletedCycles(t *testing.T) {
	s := newTestSurface(t, nil)
	for i := 0; i < 5; i++ {
		x := float64(10 + 20*i)
		drawLine(s, Point{X: x, Y: 20}, Point{X: x, Y: 80})
	}
	s.Begin(Point{X: 5, Y: 5})
	if got := s.StrokeCount(); got != 5 {
		t.Errorf("StrokeCount() = %d, want 5", got)
	}
}

func TestSurface_DotStroke(t *testing.T) {
	s := newTestSurface(t, nil)

	if !s.Begin(Point{X: 60.5, Y: 60.5}) {
		t.Fatal("Begin rejected")
	}
	if !s.End() {
		t.Fatal("End rejected")
	}

	strokes := s.Strokes()
	if len(strokes) != 1 || len(strokes[0].Points) != 1 {
		t.Fatalf("got %+v, want one single-point stroke", strokes)
	}
	if !isInk(t, s, 60, 60) {
		t.Error("dot not rendered at the point")
	}
	if isInk(t, s, 70, 60) {
		t.Error("dot larger than the brush")
	}
}

func TestSurface_BeginWhileInStrokeIsRejected(t *testing.T) {
	s := newTestSurface(t, nil)
	s.Begin(Point{X: 10, Y: 10})
	if s.Begin(Point{X: 90, Y: 90}) {
		t.Error("second Begin should be rejected")
	}
	s.End()

	strokes := s.Strokes()
	if len(strokes) != 1 || strokes[0].Points[0] != (Point{X: 10, Y: 10}) {
		t.Errorf("second Begin altered the stroke: %+v", strokes)
	}
}

func TestSurface_IdleOperationsAreNoOps(t *testing.T) {
	s := newTestSurface(t, nil)
	before := s.Snapshot()

	if s.Extend(Point{X: 50, Y: 50}) {
		t.Error("Extend while idle should be rejected")
	}
	if s.End() {
		t.Error("End while idle should be rejected")
	}
	if s.StrokeCount() != 0 {
		t.Error("idle operations must not seal strokes")
	}
	if !bytes.Equal(before.Pix, s.Snapshot().Pix) {
		t.Error("idle operations must not touch the raster")
	}
}

func TestSurface_MalformedPointsIgnored(t *testing.T) {
	s := newTestSurface(t, nil)
	if s.Begin(Point{X: math.NaN(), Y: 4}) {
		t.Error("Begin with NaN should be rejected")
	}

	s.Begin(Point{X: 10, Y: 10})
	if s.Extend(Point{X: math.Inf(1), Y: 10}) {
		t.Error("Extend with Inf should be rejected")
	}
	s.Extend(Point{X: 40, Y: 10, T: 16})
	s.End()

	if got := len(s.Strokes()[0].Points); got != 2 {
		t.Errorf("stroke has %d points, want 2", got)
	}
}

func TestSurface_SnapshotRoundTrip(t *testing.T) {
	s := newTestSurface(t, nil)
	pts := []Point{{X: 20.5, Y: 30.5}, {X: 60.5, Y: 30.5}, {X: 60.5, Y: 90.5}, {X: 100.5, Y: 90.5}}
	drawLine(s, pts...)

	img := s.Snapshot()
	for _, st := range s.Strokes() {
		for _, p := range st.Points {
			if imaging.Luma(img.At(int(p.X), int(p.Y))) > inkThreshold {
				t.Errorf("point (%v,%v) missing from snapshot", p.X, p.Y)
			}
		}
	}
	// Midpoints of each segment are covered too.
	for _, m := range [][2]int{{40, 30}, {60, 60}, {80, 90}} {
		if imaging.Luma(img.At(m[0], m[1])) > inkThreshold {
			t.Errorf("segment midpoint %v missing from snapshot", m)
		}
	}
	if imaging.Luma(img.At(100, 20)) <= inkThreshold {
		t.Error("ink found far from the stroke")
	}
}

func TestSurface_SnapshotIsACopy(t *testing.T) {
	s := newTestSurface(t, nil)
	snap := s.Snapshot()
	pristine := append([]byte(nil), snap.Pix...)

	drawLine(s, Point{X: 10, Y: 60}, Point{X: 110, Y: 60})
	if !bytes.Equal(snap.Pix, pristine) {
		t.Error("drawing after Snapshot changed the earlier snapshot")
	}

	for i := range snap.Pix {
		snap.Pix[i] = 0
	}
	if !isInk(t, s, 60, 60) || isInk(t, s, 60, 10) {
		t.Error("mutating a snapshot changed the live raster")
	}
}

func TestSurface_EraserPaintsBackground(t *testing.T) {
	s := newTestSurface(t, nil)
	drawLine(s, Point{X: 20, Y: 60.5}, Point{X: 100, Y: 60.5})
	if !isInk(t, s, 60, 60) {
		t.Fatal("ink stroke not rendered")
	}

	s.SetMode(Erasing)
	drawLine(s, Point{X: 10, Y: 60.5}, Point{X: 110, Y: 60.5})

	if _, ok := imaging.InkBounds(s.Snapshot(), inkThreshold); ok {
		t.Error("eraser left ink behind")
	}
	if got := s.StrokeCount(); got != 2 {
		t.Errorf("eraser strokes are sealed like ink strokes: got %d, want 2", got)
	}
	last := s.Strokes()[1]
	if last.Mode != Erasing || last.Color != s.opts.Background {
		t.Errorf("eraser stroke = %+v", last)
	}
	for _, w := range last.Widths {
		if w != 15 {
			t.Errorf("eraser width %v, want 15", w)
		}
	}
}

func TestSurface_PressureWidths(t *testing.T) {
	s := newTestSurface(t, nil)
	s.Begin(Point{X: 10, Y: 10, T: 0})
	s.Extend(Point{X: 110, Y: 10, T: 1})  // 100 px/ms
	s.Extend(Point{X: 110, Y: 11, T: 17}) // crawling
	s.End()

	got := s.Strokes()[0].Widths
	want := []float64{4, 3, 5 - (1.0/16)/10}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b float64) bool {
		return math.Abs(a-b) < 1e-9
	})); diff != "" {
		t.Errorf("Widths mismatch (-want +got):\n%s", diff)
	}
}

func TestSurface_PressureDisabled(t *testing.T) {
	s := newTestSurface(t, func(o *Options) { o.Pressure = false })
	drawLine(s, Point{X: 10, Y: 10}, Point{X: 110, Y: 10})
	for _, w := range s.Strokes()[0].Widths {
		if w != 4 {
			t.Errorf("width %v, want the ink width 4", w)
		}
	}
}

func TestSurface_ModeChangeMidStrokeKeepsBrush(t *testing.T) {
	s := newTestSurface(t, nil)
	s.Begin(Point{X: 10, Y: 10, T: 0})
	s.Extend(Point{X: 20, Y: 10, T: 10})
	s.SetMode(Erasing)
	s.Extend(Point{X: 30, Y: 10, T: 20})
	s.End()

	s.Begin(Point{X: 10, Y: 50, T: 0})
	s.Extend(Point{X: 20, Y: 50, T: 10})
	s.SetMode(Drawing)
	s.Extend(Point{X: 30, Y: 50, T: 20})
	s.End()

	strokes := s.Strokes()
	if len(strokes) != 2 {
		t.Fatalf("got %d strokes, want 2", len(strokes))
	}

	ink := strokes[0]
	if ink.Mode != Drawing || ink.Color != s.opts.InkColor {
		t.Errorf("first stroke mode %q colour %s, want drawing with ink", ink.Mode, ink.Color)
	}
	for i, w := range ink.Widths {
		if w < s.opts.Dynamics.MinWidth || w > s.opts.Dynamics.MaxWidth {
			t.Errorf("ink width[%d] = %v, outside the pen range", i, w)
		}
	}

	eraser := strokes[1]
	if eraser.Mode != Erasing || eraser.Color != s.opts.Background {
		t.Errorf("second stroke mode %q colour %s, want erasing with background", eraser.Mode, eraser.Color)
	}
	for i, w := range eraser.Widths {
		if w != s.opts.EraserWidth {
			t.Errorf("eraser width[%d] = %v, want %v", i, w, s.opts.EraserWidth)
		}
	}
}

func TestSurface_ResizeKeepsSealedDropsInProgress(t *testing.T) {
	s := newTestSurface(t, nil)
	drawLine(s, Point{X: 20, Y: 20.5}, Point{X: 80, Y: 20.5})
	s.Begin(Point{X: 5, Y: 5})
	s.Extend(Point{X: 30, Y: 5, T: 16})

	s.Resize(200, 150)

	if s.InStroke() {
		t.Error("stroke in progress survived Resize")
	}
	if s.StrokeCount() != 1 {
		t.Errorf("StrokeCount() = %d, want 1", s.StrokeCount())
	}
	if w, h := s.Size(); w != 200 || h != 150 {
		t.Errorf("Size() = %dx%d, want 200x150", w, h)
	}
	if !isInk(t, s, 50, 20) {
		t.Error("sealed stroke not re-rendered after Resize")
	}
	if isInk(t, s, 20, 5) {
		t.Error("discarded stroke still on the raster")
	}
}

func TestSurface_RenderingIsDeterministic(t *testing.T) {
	draw := func(s *Surface) {
		drawLine(s, Point{X: 10, Y: 10}, Point{X: 40, Y: 70}, Point{X: 90, Y: 30})
		s.SetMode(Erasing)
		drawLine(s, Point{X: 30, Y: 30}, Point{X: 60, Y: 60})
		s.SetMode(Drawing)
		drawLine(s, Point{X: 100, Y: 100})
	}

	for _, smoothing := range []bool{false, true} {
		opts := func(o *Options) { o.Smoothing = smoothing; o.Guides = true }
		a := newTestSurface(t, opts)
		b := newTestSurface(t, opts)
		draw(a)
		draw(b)

		incremental := a.Snapshot()
		if !bytes.Equal(incremental.Pix, b.Snapshot().Pix) {
			t.Errorf("smoothing=%v: identical input rendered differently", smoothing)
		}

		w, h := a.Size()
		a.Resize(w, h)
		if !bytes.Equal(incremental.Pix, a.Snapshot().Pix) {
			t.Errorf("smoothing=%v: re-render differs from incremental rendering", smoothing)
		}
	}
}

func TestSurface_StrokesAreCopies(t *testing.T) {
	s := newTestSurface(t, nil)
	drawLine(s, Point{X: 10, Y: 10}, Point{X: 20, Y: 20})

	got := s.Strokes()
	got[0].Points[0].X = 999
	got[0].Widths[0] = 999

	again := s.Strokes()
	if again[0].Points[0].X != 10 || again[0].Widths[0] != 4 {
		t.Error("sealed stroke mutated through Strokes()")
	}
}

func TestSurface_GuidesStayBelowInkThreshold(t *testing.T) {
	s := newTestSurface(t, func(o *Options) { o.Guides = true })
	img := s.Snapshot()

	if _, ok := imaging.InkBounds(img, inkThreshold); ok {
		t.Error("guides must not read as ink")
	}
	paper := img.RGBAAt(5, 5)
	// Somewhere on the vertical centre line a dash is drawn.
	found := false
	for y := 0; y < 20; y++ {
		if img.RGBAAt(60, y) != paper {
			found = true
			break
		}
	}
	if !found {
		t.Error("no guide pixels on the centre line")
	}
}

func TestSurface_WatermarkWithoutFontIsSkipped(t *testing.T) {
	s := newTestSurface(t, func(o *Options) { o.Target = "あ" })
	if s.Target() != "あ" {
		t.Errorf("Target() = %q", s.Target())
	}

	plain := newTestSurface(t, nil)
	if !bytes.Equal(s.Snapshot().Pix, plain.Snapshot().Pix) {
		t.Error("watermark drawn without a font")
	}
}

func TestSurface_Replay(t *testing.T) {
	src := newTestSurface(t, nil)
	drawLine(src, Point{X: 20, Y: 20}, Point{X: 100, Y: 100})
	drawLine(src, Point{X: 100, Y: 20})

	dst := newTestSurface(t, nil)
	bad := []Stroke{
		{},
		{Points: []Point{{X: 1, Y: 1}}, Widths: nil, Color: "#212121"},
		{Points: []Point{{X: 1, Y: 1}}, Widths: []float64{4}, Color: "nope"},
	}
	n := dst.Replay(append(src.Strokes(), bad...))

	if n != 2 {
		t.Errorf("Replay accepted %d strokes, want 2", n)
	}
	if diff := cmp.Diff(src.Strokes(), dst.Strokes()); diff != "" {
		t.Errorf("replayed strokes differ (-src +dst):\n%s", diff)
	}
	if !bytes.Equal(src.Snapshot().Pix, dst.Snapshot().Pix) {
		t.Error("replayed raster differs from the original")
	}
}
