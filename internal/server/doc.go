// Package server exposes handwriting practice canvases over the Model
// Context Protocol.
//
// A client opens a canvas with canvas_create, feeds it pointer events
// (canvas_begin, canvas_extend, canvas_end) or whole strokes
// (canvas_stroke), and asks for an evaluation with canvas_detect. The
// detector counts separately drawn strokes and ink coverage and answers with
// detected, accuracy, strokes and a feedback message; it never fails the
// call, reporting problems as a zero-confidence result instead.
//
// # Tools
//
// Canvas lifecycle:
//   - canvas_create: open a canvas, returns its session id
//   - canvas_close: release a canvas
//
// Pointer input:
//   - canvas_begin, canvas_extend, canvas_end: one pointer event each
//   - canvas_stroke: a complete stroke
//
// Surface control:
//   - canvas_clear, canvas_set_mode, canvas_set_target, canvas_resize
//
// Output and evaluation:
//   - canvas_snapshot: PNG of the canvas, optionally cropped to the ink
//   - canvas_detect: stroke count and heuristic accuracy
//   - canvas_export_strokes: replayable strokes or recogniser batch input
//   - canvas_read_glyph: Tesseract reading of the drawn character
//
// Files:
//   - image_detect: evaluate an image file through the image cache, or inline
//     base64 image data
//
// # Sessions
//
// Each canvas is a session.Session. Clearing or resizing a canvas starts a
// new generation; a detection that overlapped such a change is returned with
// stale set. While a detection runs, new pointer input for that canvas is
// rejected unless the configuration turns the lock off.
//
// # Transports
//
// Run serves stdio, which is how desktop MCP clients launch the server.
// RunHTTP serves the streamable HTTP transport. Logs always go to stderr.
//
// # Usage
//
//	srv, err := server.New(server.Options{Config: cfg, Logger: log})
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server
