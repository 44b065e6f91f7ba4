package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ironsheep/glyph-practice-mcp/internal/canvas"
	"github.com/ironsheep/glyph-practice-mcp/internal/detection"
	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
)

// SessionInput names the canvas a tool acts on.
type SessionInput struct {
	Session string `json:"session" jsonschema:"canvas session id returned by canvas_create"`
}

// CreateInput is the input of canvas_create. Unset fields use the server
// defaults.
type CreateInput struct {
	Width     int    `json:"width,omitempty" jsonschema:"canvas width in pixels (default 300, capped at max_side)"`
	Height    int    `json:"height,omitempty" jsonschema:"canvas height in pixels (default 300, capped at max_side)"`
	Target    string `json:"target,omitempty" jsonschema:"glyph the learner is practising; shown as a faint watermark"`
	Guides    *bool  `json:"guides,omitempty" jsonschema:"draw a dashed centre cross as on practice paper"`
	Smoothing *bool  `json:"smoothing,omitempty" jsonschema:"interpolate strokes with Catmull-Rom curves"`
	Pressure  *bool  `json:"pressure,omitempty" jsonschema:"vary ink width with drawing speed"`
}

// PointInput is one pointer event. Missing coordinates make the event a
// no-op, as a pointer event without a position would be.
type PointInput struct {
	Session string   `json:"session" jsonschema:"canvas session id"`
	X       *float64 `json:"x,omitempty" jsonschema:"x coordinate in canvas pixels"`
	Y       *float64 `json:"y,omitempty" jsonschema:"y coordinate in canvas pixels"`
	T       int64    `json:"t,omitempty" jsonschema:"event time in milliseconds; drives pressure simulation"`
}

// PointerOutput reports whether a pointer event changed the surface.
type PointerOutput struct {
	Accepted bool `json:"accepted"`
	Strokes  int  `json:"strokes"`
	InStroke bool `json:"in_stroke"`
}

// StrokeInput is the input of canvas_stroke.
type StrokeInput struct {
	Session string         `json:"session" jsonschema:"canvas session id"`
	Points  []canvas.Point `json:"points" jsonschema:"stroke points in drawing order, each {x, y, t}"`
}

// StrokeOutput reports how much of a whole stroke was drawn.
type StrokeOutput struct {
	AcceptedPoints int `json:"accepted_points"`
	Strokes        int `json:"strokes"`
}

// ModeInput is the input of canvas_set_mode.
type ModeInput struct {
	Session string `json:"session" jsonschema:"canvas session id"`
	Mode    string `json:"mode" jsonschema:"drawing or erasing"`
}

// TargetInput is the input of canvas_set_target.
type TargetInput struct {
	Session string `json:"session" jsonschema:"canvas session id"`
	Target  string `json:"target" jsonschema:"glyph to practise; empty removes the watermark"`
}

// ResizeInput is the input of canvas_resize.
type ResizeInput struct {
	Session string `json:"session" jsonschema:"canvas session id"`
	Width   int    `json:"width" jsonschema:"new width in pixels"`
	Height  int    `json:"height" jsonschema:"new height in pixels"`
}

// SnapshotInput is the input of canvas_snapshot.
type SnapshotInput struct {
	Session string `json:"session" jsonschema:"canvas session id"`
	Crop    bool   `json:"crop,omitempty" jsonschema:"crop the image to the drawn ink"`
	Padding int    `json:"padding,omitempty" jsonschema:"paper kept around the ink when cropping (default 16)"`
}

// SnapshotOutput is a PNG rendering of the canvas.
type SnapshotOutput struct {
	Image      imaging.EncodedImage `json:"image"`
	Generation uint64               `json:"generation"`
	Empty      bool                 `json:"empty"`
}

// ExportInput is the input of canvas_export_strokes.
type ExportInput struct {
	Session string `json:"session" jsonschema:"canvas session id"`
	Format  string `json:"format,omitempty" jsonschema:"native (replayable strokes, default) or recognizer (handwriting service batch input)"`
	Lang    string `json:"lang,omitempty" jsonschema:"recognition language for the recognizer format, e.g. ja_JP"`
}

// ExportOutput carries exactly one of the two stroke formats.
type ExportOutput struct {
	Format     string             `json:"format"`
	Drawing    *canvas.Record     `json:"drawing,omitempty"`
	Recognizer *canvas.BatchInput `json:"recognizer,omitempty"`
}

// ReadGlyphInput is the input of canvas_read_glyph.
type ReadGlyphInput struct {
	Session  string `json:"session" jsonschema:"canvas session id"`
	Language string `json:"language,omitempty" jsonschema:"Tesseract language (default jpn)"`
}

// ImageDetectInput is the input of image_detect.
type ImageDetectInput struct {
	Path        string `json:"path,omitempty" jsonschema:"absolute path to a PNG, JPEG or GIF of a handwritten glyph"`
	ImageBase64 string `json:"image_base64,omitempty" jsonschema:"base64 PNG, JPEG or GIF data, instead of path"`
	Reload      bool   `json:"reload,omitempty" jsonschema:"read the file again even if it was loaded before"`
	Target      string `json:"target,omitempty" jsonschema:"glyph the image is an attempt at"`
}

// ImageDetectOutput is a detection result for an image file.
type ImageDetectOutput struct {
	Result detection.Result `json:"result"`
	Image  imaging.Info     `json:"image"`
}

// CloseOutput confirms canvas_close.
type CloseOutput struct {
	Closed bool `json:"closed"`
	Open   int  `json:"open"`
}

// registerTools registers every tool handler with the MCP server.
func (s *Server) registerTools() {
	// Canvas lifecycle
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_create",
		Description: "Create a drawing canvas for handwriting practice and return its session id. Draw on it with canvas_begin/extend/end or canvas_stroke, then evaluate with canvas_detect.",
	}, s.handleCreate)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_close",
		Description: "Close a canvas session and release its raster.",
	}, s.handleClose)

	// Pointer input
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_begin",
		Description: "Pointer down: start a stroke at (x, y). Rejected while a stroke is already in progress.",
	}, s.handleBegin)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_extend",
		Description: "Pointer move: extend the current stroke to (x, y). Ignored when no stroke is in progress.",
	}, s.handleExtend)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_end",
		Description: "Pointer up: finish the current stroke. A stroke that never moved is drawn as a dot.",
	}, s.handleEnd)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_stroke",
		Description: "Draw a complete stroke from a list of points in one call.",
	}, s.handleStroke)

	// Surface control
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_clear",
		Description: "Erase every stroke and repaint the paper.",
	}, s.handleClear)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_set_mode",
		Description: "Switch the brush between drawing (ink) and erasing (paper colour, wide brush).",
	}, s.handleSetMode)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_set_target",
		Description: "Set the glyph being practised. It is shown as a faint watermark when a font is configured.",
	}, s.handleSetTarget)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_resize",
		Description: "Resize the canvas. Finished strokes are redrawn at their original coordinates; a stroke in progress is discarded.",
	}, s.handleResize)

	// Output and evaluation
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_snapshot",
		Description: "Return the canvas as a PNG image, optionally cropped to the ink.",
	}, s.handleSnapshot)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_detect",
		Description: "Evaluate the drawing: counts separate strokes and ink coverage and returns detected, accuracy (0-100), strokes and a feedback message.",
	}, s.handleDetect)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_export_strokes",
		Description: "Export the finished strokes, either as a replayable drawing or as batch input for a handwriting recognition service.",
	}, s.handleExport)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "canvas_read_glyph",
		Description: "Read the drawn character with Tesseract OCR and compare it with the target. Informational; use canvas_detect for scoring.",
	}, s.handleReadGlyph)

	// Files
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "image_detect",
		Description: "Evaluate a handwritten glyph from an image file or inline base64 image data with the same detector as canvas_detect.",
	}, s.handleImageDetect)
}
