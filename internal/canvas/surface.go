package canvas

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"go.uber.org/zap"

	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
)

// Options configures a Surface.
type Options struct {
	// Width and Height are the raster size in pixels. Both are clamped to
	// [1, MaxSide].
	Width  int
	Height int

	// MaxSide caps either side of the raster. Zero means 400.
	MaxSide int

	// Background is the paper colour; the eraser paints with it.
	Background string

	InkColor    string
	InkWidth    float64
	EraserWidth float64

	// Pressure enables speed-simulated width in drawing mode.
	Pressure bool
	Dynamics BrushDynamics

	// Smoothing renders extend segments as Catmull-Rom splines.
	Smoothing bool

	// Guides draws a faint dashed centre cross, as on practice paper.
	Guides     bool
	GuideColor string

	// Target is the reference glyph drawn as a faint watermark.
	Target string

	// KeepWatermark keeps the watermark across Clear.
	KeepWatermark    bool
	WatermarkColor   string
	WatermarkOpacity float64
	// WatermarkScale is the glyph size as a fraction of the shorter side.
	WatermarkScale float64

	// Font renders the watermark. Without it the watermark is skipped.
	Font *text.FontSource

	Logger *zap.Logger
}

// DefaultMaxSide bounds the raster so detection stays cheap.
const DefaultMaxSide = 400

// DefaultOptions returns a 300×300 practice square with pressure enabled.
func DefaultOptions() Options {
	return Options{
		Width:            300,
		Height:           300,
		MaxSide:          DefaultMaxSide,
		Background:       "#fffef7",
		InkColor:         "#212121",
		InkWidth:         4,
		EraserWidth:      15,
		Pressure:         true,
		Dynamics:         DefaultDynamics(),
		GuideColor:       "#e6e1d3",
		KeepWatermark:    true,
		WatermarkColor:   "#808080",
		WatermarkOpacity: 0.15,
		WatermarkScale:   0.6,
	}
}

// withDefaults fills zero-valued colours and sizes from DefaultOptions.
// Boolean switches and the watermark opacity are left as given.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxSide <= 0 {
		o.MaxSide = d.MaxSide
	}
	if o.Background == "" {
		o.Background = d.Background
	}
	if o.InkColor == "" {
		o.InkColor = d.InkColor
	}
	if o.GuideColor == "" {
		o.GuideColor = d.GuideColor
	}
	if o.WatermarkColor == "" {
		o.WatermarkColor = d.WatermarkColor
	}
	if o.WatermarkScale <= 0 {
		o.WatermarkScale = d.WatermarkScale
	}
	if o.Dynamics == (BrushDynamics{}) {
		o.Dynamics = d.Dynamics
	}
	return o
}

// Surface is a stroke capture surface backed by a gg raster.
type Surface struct {
	opts Options
	log  *zap.Logger

	dc            *gg.Context
	width, height int

	mode       Mode
	brushColor string
	brushWidth float64

	target        string
	showWatermark bool
	watermarkHex  string
	warnedNoFont  bool

	strokes []Stroke
	current *Stroke
}

// New validates opts and returns a surface with a freshly painted raster.
func New(opts Options) (*Surface, error) {
	opts = opts.withDefaults()
	for name, hex := range map[string]string{
		"background": opts.Background,
		"ink":        opts.InkColor,
		"guide":      opts.GuideColor,
		"watermark":  opts.WatermarkColor,
	} {
		if _, err := imaging.ParseColor(hex); err != nil {
			return nil, fmt.Errorf("%s colour: %w", name, err)
		}
	}
	if opts.InkWidth <= 0 || opts.EraserWidth <= 0 {
		return nil, fmt.Errorf("brush widths must be positive (ink %v, eraser %v)", opts.InkWidth, opts.EraserWidth)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	wm := imaging.BlendOver(
		imaging.MustParseColor(opts.WatermarkColor),
		imaging.MustParseColor(opts.Background),
		opts.WatermarkOpacity,
	)

	s := &Surface{
		opts:          opts,
		log:           log,
		target:        opts.Target,
		showWatermark: opts.Target != "",
		watermarkHex:  wm.Hex(),
	}
	s.SetMode(Drawing)
	s.allocate(opts.Width, opts.Height)
	return s, nil
}

// Close releases the raster.
func (s *Surface) Close() error {
	return s.dc.Close()
}

// Size returns the raster dimensions.
func (s *Surface) Size() (width, height int) {
	return s.width, s.height
}

// Mode returns the current brush mode.
func (s *Surface) Mode() Mode {
	return s.mode
}

// Target returns the reference glyph.
func (s *Surface) Target() string {
	return s.target
}

// InStroke reports whether a stroke has begun and not yet ended.
func (s *Surface) InStroke() bool {
	return s.current != nil
}

// StrokeCount returns the number of sealed strokes.
func (s *Surface) StrokeCount() int {
	return len(s.strokes)
}

// Begin starts a new stroke at p with the current brush. It returns false
// and does nothing when a stroke is already in progress or p is malformed.
func (s *Surface) Begin(p Point) bool {
	if s.current != nil || !p.Valid() {
		return false
	}
	s.current = &Stroke{
		Points: []Point{p},
		Widths: []float64{s.brushWidth},
		Color:  s.brushColor,
		Mode:   s.mode,
	}
	return true
}

// Extend appends p to the stroke in progress and renders the new segment.
func (s *Surface) Extend(p Point) bool {
	if s.current == nil || !p.Valid() {
		return false
	}

	prev := s.current.Points[len(s.current.Points)-1]
	width := s.current.Widths[0]
	if s.current.Mode == Drawing && s.opts.Pressure {
		width = WidthFor(prev, p, float64(p.T-prev.T), s.opts.Dynamics)
	}

	s.current.Points = append(s.current.Points, p)
	s.current.Widths = append(s.current.Widths, width)
	s.drawSegment(s.current, len(s.current.Points)-1)
	return true
}

// End seals the stroke in progress. A stroke that never moved is rendered as
// a dot here.
func (s *Surface) End() bool {
	if s.current == nil {
		return false
	}
	st := *s.current
	s.current = nil
	if len(st.Points) == 1 {
		s.drawDot(&st)
	}
	s.strokes = append(s.strokes, st)
	return true
}

// Clear drops every stroke and repaints the background. The watermark is
// repainted only when KeepWatermark is set.
func (s *Surface) Clear() {
	s.strokes = nil
	s.current = nil
	if !s.opts.KeepWatermark {
		s.showWatermark = false
	}
	s.repaint()
}

// SetMode switches between the ink brush and the background-coloured eraser.
// A stroke already in progress keeps the brush it began with.
func (s *Surface) SetMode(m Mode) {
	switch m {
	case Erasing:
		s.mode = Erasing
		s.brushColor = s.opts.Background
		s.brushWidth = s.opts.EraserWidth
	default:
		s.mode = Drawing
		s.brushColor = s.opts.InkColor
		s.brushWidth = s.opts.InkWidth
	}
}

// SetTarget replaces the reference glyph and repaints. An empty glyph
// removes the watermark.
func (s *Surface) SetTarget(glyph string) {
	s.target = glyph
	s.showWatermark = glyph != ""
	s.repaint()
}

// Resize recreates the raster at the new size. The stroke in progress is
// discarded; sealed strokes are rendered again at their original coordinates.
func (s *Surface) Resize(width, height int) {
	s.current = nil
	if err := s.dc.Close(); err != nil {
		s.log.Debug("closing raster", zap.Error(err))
	}
	s.allocate(width, height)
}

// Snapshot returns a copy of the raster. Later drawing does not affect it.
func (s *Surface) Snapshot() *image.RGBA {
	if err := s.dc.FlushGPU(); err != nil {
		s.log.Debug("flushing raster", zap.Error(err))
	}
	img := s.dc.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// Strokes returns copies of the sealed strokes in drawing order.
func (s *Surface) Strokes() []Stroke {
	out := make([]Stroke, len(s.strokes))
	for i, st := range s.strokes {
		out[i] = st.clone()
	}
	return out
}

// Replay appends already-sealed strokes, such as an exported drawing, and
// renders them. Strokes with no points, mismatched widths or malformed
// points are skipped. It returns the number of strokes accepted.
func (s *Surface) Replay(strokes []Stroke) int {
	accepted := 0
	for _, st := range strokes {
		if !replayable(st) {
			continue
		}
		if _, err := imaging.ParseColor(st.Color); err != nil {
			continue
		}
		st = st.clone()
		s.strokes = append(s.strokes, st)
		s.renderStroke(&s.strokes[len(s.strokes)-1])
		accepted++
	}
	return accepted
}

func replayable(st Stroke) bool {
	if len(st.Points) == 0 || len(st.Points) != len(st.Widths) {
		return false
	}
	for i, p := range st.Points {
		if !p.Valid() || st.Widths[i] <= 0 {
			return false
		}
	}
	return true
}

func (s *Surface) allocate(width, height int) {
	s.width = clampSide(width, s.opts.MaxSide)
	s.height = clampSide(height, s.opts.MaxSide)
	s.dc = gg.NewContext(s.width, s.height)
	s.repaint()
}

func clampSide(v, maxSide int) int {
	if v < 1 {
		return 1
	}
	if v > maxSide {
		return maxSide
	}
	return v
}
