// Package session keeps the open drawing surfaces of an MCP host.
//
// A canvas.Surface has a single owner. Each Session serialises access to its
// surface with a mutex and adds two rules the host needs: a generation
// counter, bumped on Clear and Resize, that lets a late detection result be
// recognised as stale; and an optional input lock that rejects new ink while
// a detection of the same session is in flight.
package session

import (
	"context"
	"errors"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/ironsheep/glyph-practice-mcp/internal/canvas"
	"github.com/ironsheep/glyph-practice-mcp/internal/detection"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrLimit is returned when MaxSessions sessions are already open.
	ErrLimit = errors.New("session limit reached")
	// ErrBusy is returned for pointer input while a detection runs.
	ErrBusy = errors.New("input locked while detection runs")
	// ErrClosed is returned by a session after Close.
	ErrClosed = errors.New("session closed")
)

// Info describes a session without exposing its surface.
type Info struct {
	ID         string      `json:"id"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Mode       canvas.Mode `json:"mode"`
	Target     string      `json:"target,omitempty"`
	Strokes    int         `json:"strokes"`
	InStroke   bool        `json:"in_stroke"`
	Generation uint64      `json:"generation"`
}

// Outcome is a detection result tied to the generation it was taken from.
type Outcome struct {
	Result     detection.Result `json:"result"`
	Generation uint64           `json:"generation"`
	// Stale is set when the surface was cleared or resized while the
	// detection ran.
	Stale bool `json:"stale"`
}

// Session is one surface plus its bookkeeping. It is safe for concurrent use.
type Session struct {
	id        string
	lockInput bool
	log       *zap.Logger

	mu         sync.Mutex
	surface    *canvas.Surface
	generation uint64
	detecting  int
	closed     bool
}

func newSession(id string, surface *canvas.Surface, lockInput bool, log *zap.Logger) *Session {
	return &Session{
		id:        id,
		lockInput: lockInput,
		log:       log.With(zap.String("session", id)),
		surface:   surface,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Info returns the current session state.
func (s *Session) Info() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Info{}, ErrClosed
	}
	return s.infoLocked(), nil
}

func (s *Session) infoLocked() Info {
	w, h := s.surface.Size()
	return Info{
		ID:         s.id,
		Width:      w,
		Height:     h,
		Mode:       s.surface.Mode(),
		Target:     s.surface.Target(),
		Strokes:    s.surface.StrokeCount(),
		InStroke:   s.surface.InStroke(),
		Generation: s.generation,
	}
}

// input runs fn when pointer input is currently allowed.
func (s *Session) input(fn func(*canvas.Surface) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if s.lockInput && s.detecting > 0 {
		return false, ErrBusy
	}
	return fn(s.surface), nil
}

// control runs fn regardless of the input lock.
func (s *Session) control(fn func(*canvas.Surface)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	fn(s.surface)
	return nil
}

// Begin starts a stroke. The bool reports whether the surface accepted it.
func (s *Session) Begin(p canvas.Point) (bool, error) {
	return s.input(func(c *canvas.Surface) bool { return c.Begin(p) })
}

// Extend adds a point to the stroke in progress.
func (s *Session) Extend(p canvas.Point) (bool, error) {
	return s.input(func(c *canvas.Surface) bool { return c.Extend(p) })
}

// End seals the stroke in progress. It is not subject to the input lock so
// that a stroke begun before a detection can still be finished.
func (s *Session) End() (bool, error) {
	var ok bool
	err := s.control(func(c *canvas.Surface) { ok = c.End() })
	return ok, err
}

// Stroke draws a whole stroke under one lock. Malformed points are skipped;
// it returns the number of points accepted, zero when the stroke could not
// begin.
func (s *Session) Stroke(points []canvas.Point) (int, error) {
	var accepted int
	_, err := s.input(func(c *canvas.Surface) bool {
		i := 0
		for ; i < len(points); i++ {
			if c.Begin(points[i]) {
				accepted++
				break
			}
		}
		if accepted == 0 {
			return false
		}
		for _, p := range points[i+1:] {
			if c.Extend(p) {
				accepted++
			}
		}
		return c.End()
	})
	return accepted, err
}

// Clear wipes the surface and starts a new generation.
func (s *Session) Clear() error {
	return s.control(func(c *canvas.Surface) {
		c.Clear()
		s.generation++
	})
}

// Resize changes the raster size and starts a new generation.
func (s *Session) Resize(width, height int) (Info, error) {
	var info Info
	err := s.control(func(c *canvas.Surface) {
		c.Resize(width, height)
		s.generation++
		info = s.infoLocked()
	})
	return info, err
}

// SetMode switches the brush.
func (s *Session) SetMode(m canvas.Mode) error {
	return s.control(func(c *canvas.Surface) { c.SetMode(m) })
}

// SetTarget changes the practice glyph.
func (s *Session) SetTarget(glyph string) error {
	return s.control(func(c *canvas.Surface) { c.SetTarget(glyph) })
}

// Snapshot returns a copy of the raster, the target and the generation it
// belongs to.
func (s *Session) Snapshot() (raster *image.RGBA, target string, generation uint64, err error) {
	err = s.control(func(c *canvas.Surface) {
		raster = c.Snapshot()
		target = c.Target()
		generation = s.generation
	})
	return raster, target, generation, err
}

// Record returns the replayable stroke record.
func (s *Session) Record() (canvas.Record, error) {
	var d canvas.Record
	err := s.control(func(c *canvas.Surface) { d = c.Record() })
	return d, err
}

// Export returns the sealed ink strokes as recogniser batch input.
func (s *Session) Export(lang string) (canvas.BatchInput, error) {
	var b canvas.BatchInput
	err := s.control(func(c *canvas.Surface) { b = c.Export(lang) })
	return b, err
}

// Detect evaluates a snapshot of the surface. The detector runs outside the
// session lock; while it runs, Begin and Extend fail with ErrBusy when the
// input lock is enabled.
func (s *Session) Detect(ctx context.Context, d *detection.Detector) (Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Outcome{}, ErrClosed
	}
	raster := s.surface.Snapshot()
	target := s.surface.Target()
	gen := s.generation
	s.detecting++
	s.mu.Unlock()

	res := d.Detect(ctx, raster, target)

	s.mu.Lock()
	s.detecting--
	stale := s.generation != gen
	s.mu.Unlock()

	if stale {
		s.log.Debug("detection result is stale", zap.Uint64("generation", gen))
	}
	return Outcome{Result: res, Generation: gen, Stale: stale}, nil
}

// Close releases the surface. Later calls fail with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.surface.Close()
}
