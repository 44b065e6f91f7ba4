// Package canvas implements the stroke capture surface: it turns pointer
// events into rendered ink on a fixed-size raster and hands out snapshot
// copies of that raster for detection.
//
// # Strokes
//
// A stroke starts with [Surface.Begin], grows with [Surface.Extend] and is
// sealed by [Surface.End]. Every extend renders one segment immediately with
// round caps and joins. In drawing mode the segment width is simulated from
// pointer speed by [WidthFor]: slow movement draws a thicker line.
//
//	s, _ := canvas.New(canvas.DefaultOptions())
//	s.Begin(canvas.Point{X: 40, Y: 40, T: 0})
//	s.Extend(canvas.Point{X: 120, Y: 60, T: 16})
//	s.End()
//	img := s.Snapshot()
//
// A begin immediately followed by end seals a one-point stroke which renders
// as a dot.
//
// # Erasing
//
// [Erasing] mode paints with the background colour and a wider brush. It
// does not remove pixels, so an erased watermark or guide stays erased until
// the next [Surface.Clear].
//
// # Raster
//
// The raster is a gogpu/gg context. It is always a deterministic rendering of
// the background, the optional practice guides, the optional watermark glyph
// and the sealed strokes in order, so [Surface.Resize] and [Surface.Clear]
// can rebuild it from stroke data alone.
//
// A Surface is not safe for concurrent use; callers that share one across
// goroutines must serialise access.
package canvas
