package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ironsheep/glyph-practice-mcp/internal/canvas"
	"github.com/ironsheep/glyph-practice-mcp/internal/glyph"
	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
	"github.com/ironsheep/glyph-practice-mcp/internal/ocr"
	"github.com/ironsheep/glyph-practice-mcp/internal/session"
)

// Snapshot cropping keeps anything darker than mid-gray.
const (
	snapshotInkThreshold = 128
	defaultSnapshotPad   = 16
)

// Export formats accepted by canvas_export_strokes.
const (
	FormatNative     = "native"
	FormatRecognizer = "recognizer"
)

// ErrOCRDisabled is returned by canvas_read_glyph when OCR is switched off.
var ErrOCRDisabled = errors.New("OCR is disabled in the server configuration")

// checkTarget accepts an empty target or exactly one character.
func checkTarget(target string) error {
	if target != "" && !glyph.IsSingle(target) {
		return fmt.Errorf("target %q must be a single character", target)
	}
	return nil
}

func (s *Server) handleCreate(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in CreateInput,
) (*mcp.CallToolResult, session.Info, error) {
	if err := checkTarget(in.Target); err != nil {
		return nil, session.Info{}, err
	}
	opts := s.sessions.Defaults()
	if in.Width > 0 {
		opts.Width = in.Width
	}
	if in.Height > 0 {
		opts.Height = in.Height
	}
	if in.Guides != nil {
		opts.Guides = *in.Guides
	}
	if in.Smoothing != nil {
		opts.Smoothing = *in.Smoothing
	}
	if in.Pressure != nil {
		opts.Pressure = *in.Pressure
	}
	opts.Target = in.Target

	sess, err := s.sessions.Create(opts)
	if err != nil {
		return nil, session.Info{}, err
	}
	info, err := sess.Info()
	if err != nil {
		return nil, session.Info{}, err
	}
	s.log.Info("canvas created",
		zap.String("session", info.ID),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.String("target", info.Target))
	return nil, info, nil
}

func (s *Server) handleClose(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in SessionInput,
) (*mcp.CallToolResult, CloseOutput, error) {
	if err := s.sessions.Close(in.Session); err != nil {
		return nil, CloseOutput{}, err
	}
	return nil, CloseOutput{Closed: true, Open: s.sessions.Len()}, nil
}

// point converts a pointer event. ok is false when a coordinate is missing.
func (in PointInput) point() (p canvas.Point, ok bool) {
	if in.X == nil || in.Y == nil {
		return canvas.Point{}, false
	}
	return canvas.Point{X: *in.X, Y: *in.Y, T: in.T}, true
}

func (s *Server) pointer(
	in PointInput,
	apply func(*session.Session, canvas.Point) (bool, error),
) (*mcp.CallToolResult, PointerOutput, error) {
	sess, err := s.sessions.Get(in.Session)
	if err != nil {
		return nil, PointerOutput{}, err
	}

	var accepted bool
	if p, ok := in.point(); ok {
		if accepted, err = apply(sess, p); err != nil {
			return nil, PointerOutput{}, err
		}
	}
	return s.pointerOutput(sess, accepted)
}

func (s *Server) pointerOutput(sess *session.Session, accepted bool) (*mcp.CallToolResult, PointerOutput, error) {
	info, err := sess.Info()
	if err != nil {
		return nil, PointerOutput{}, err
	}
	return nil, PointerOutput{Accepted: accepted, Strokes: info.Strokes, InStroke: info.InStroke}, nil
}

func (s *Server) handleBegin(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in PointInput,
) (*mcp.CallToolResult, PointerOutput, error) {
	return s.pointer(in, (*session.Session).Begin)
}

func (s *Server) handleExtend(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in PointInput,
) (*mcp.CallToolResult, PointerOutput, error) {
	return s.pointer(in, (*session.Session).Extend)
}

func (s *Server) handleEnd(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in SessionInput,
) (*mcp.CallToolResult, PointerOutput, error) {
	sess, err := s.sessions.Get(in.Session)
	if err != nil {
		return nil, PointerOutput{}, err
	}
	accepted, err := sess.End()
	if err != nil {
		return nil, PointerOutput{}, err
	}
	return s.pointerOutput(sess, accepted)
}

func (s *Server) handleStroke(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in StrokeInput,
) (*mcp.CallToolResult, StrokeOutput, error) {
	sess, err := s.sessions.Get(in.Session)
	if err != nil {
		return nil, StrokeOutput{}, err
	}
	n, err := sess.Stroke(in.Points)
	if err != nil {
		return nil, StrokeOutput{}, err
	}
	info, err := sess.Info()
	if err != nil {
		return nil, StrokeOutput{}, err
	}
	return nil, StrokeOutput{AcceptedPoints: n, Strokes: info.Strokes}, nil
}

func (s *Server) handleClear(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in SessionInput,
) (*mcp.CallToolResult, session.Info, error) {
	return s.control(in.Session, (*session.Session).Clear)
}

func (s *Server) handleSetMode(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in ModeInput,
) (*mcp.CallToolResult, session.Info, error) {
	mode, err := canvas.ParseMode(in.Mode)
	if err != nil {
		return nil, session.Info{}, err
	}
	return s.control(in.Session, func(sess *session.Session) error {
		return sess.SetMode(mode)
	})
}

func (s *Server) handleSetTarget(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in TargetInput,
) (*mcp.CallToolResult, session.Info, error) {
	if err := checkTarget(in.Target); err != nil {
		return nil, session.Info{}, err
	}
	return s.control(in.Session, func(sess *session.Session) error {
		return sess.SetTarget(in.Target)
	})
}

func (s *Server) handleResize(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in ResizeInput,
) (*mcp.CallToolResult, session.Info, error) {
	if in.Width < 1 || in.Height < 1 {
		return nil, session.Info{}, fmt.Errorf("invalid size %dx%d", in.Width, in.Height)
	}
	return s.control(in.Session, func(sess *session.Session) error {
		_, err := sess.Resize(in.Width, in.Height)
		return err
	})
}

// control applies fn to a session and reports the resulting state.
func (s *Server) control(id string, fn func(*session.Session) error) (*mcp.CallToolResult, session.Info, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, session.Info{}, err
	}
	if err := fn(sess); err != nil {
		return nil, session.Info{}, err
	}
	info, err := sess.Info()
	if err != nil {
		return nil, session.Info{}, err
	}
	return nil, info, nil
}

func (s *Server) handleSnapshot(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in SnapshotInput,
) (*mcp.CallToolResult, SnapshotOutput, error) {
	sess, err := s.sessions.Get(in.Session)
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	raster, _, gen, err := sess.Snapshot()
	if err != nil {
		return nil, SnapshotOutput{}, err
	}

	_, hasInk := imaging.InkBounds(raster, snapshotInkThreshold)
	var img image.Image = raster
	if in.Crop && hasInk {
		pad := in.Padding
		if pad <= 0 {
			pad = defaultSnapshotPad
		}
		img = imaging.CropToInk(raster, snapshotInkThreshold, pad)
	}

	data, err := imaging.PNG(img)
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	b := img.Bounds()
	out := SnapshotOutput{
		Image: imaging.EncodedImage{
			Width:       b.Dx(),
			Height:      b.Dy(),
			ImageBase64: base64.StdEncoding.EncodeToString(data),
			MimeType:    "image/png",
		},
		Generation: gen,
		Empty:      !hasInk,
	}
	res := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.ImageContent{Data: data, MIMEType: "image/png"},
		},
	}
	return res, out, nil
}

func (s *Server) handleDetect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in SessionInput,
) (*mcp.CallToolResult, session.Outcome, error) {
	sess, err := s.sessions.Get(in.Session)
	if err != nil {
		return nil, session.Outcome{}, err
	}
	out, err := sess.Detect(ctx, s.detector)
	if err != nil {
		return nil, session.Outcome{}, err
	}
	s.log.Info("canvas evaluated",
		zap.String("session", in.Session),
		zap.String("target", out.Result.Target),
		zap.Int("strokes", out.Result.Strokes),
		zap.Int("accuracy", out.Result.Accuracy),
		zap.Bool("detected", out.Result.Detected),
		zap.Bool("stale", out.Stale))
	return nil, out, nil
}

func (s *Server) handleExport(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in ExportInput,
) (*mcp.CallToolResult, ExportOutput, error) {
	sess, err := s.sessions.Get(in.Session)
	if err != nil {
		return nil, ExportOutput{}, err
	}

	switch strings.ToLower(in.Format) {
	case "", FormatNative:
		d, err := sess.Record()
		if err != nil {
			return nil, ExportOutput{}, err
		}
		return nil, ExportOutput{Format: FormatNative, Drawing: &d}, nil
	case FormatRecognizer:
		b, err := sess.Export(in.Lang)
		if err != nil {
			return nil, ExportOutput{}, err
		}
		return nil, ExportOutput{Format: FormatRecognizer, Recognizer: &b}, nil
	default:
		return nil, ExportOutput{}, fmt.Errorf("unknown export format %q (use %s or %s)", in.Format, FormatNative, FormatRecognizer)
	}
}

func (s *Server) handleReadGlyph(
	_ context.Context,
	_ *mcp.CallToolRequest,
	in ReadGlyphInput,
) (*mcp.CallToolResult, ocr.Reading, error) {
	cfg := s.config()
	if !cfg.OCR.Enabled {
		return nil, ocr.Reading{}, ErrOCRDisabled
	}
	sess, err := s.sessions.Get(in.Session)
	if err != nil {
		return nil, ocr.Reading{}, err
	}
	raster, target, _, err := sess.Snapshot()
	if err != nil {
		return nil, ocr.Reading{}, err
	}

	lang := in.Language
	if lang == "" {
		lang = cfg.OCR.Language
	}
	reading, err := ocr.ReadGlyph(raster, lang, target)
	if err != nil {
		return nil, ocr.Reading{}, err
	}
	return nil, *reading, nil
}

func (s *Server) handleImageDetect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in ImageDetectInput,
) (*mcp.CallToolResult, ImageDetectOutput, error) {
	if err := checkTarget(in.Target); err != nil {
		return nil, ImageDetectOutput{}, err
	}

	var (
		img  image.Image
		info *imaging.Info
		err  error
	)
	switch {
	case in.Path != "" && in.ImageBase64 != "":
		return nil, ImageDetectOutput{}, errors.New("give either path or image_base64, not both")
	case in.ImageBase64 != "":
		img, info, err = imaging.DecodeBase64(in.ImageBase64)
	case in.Path != "":
		if in.Reload {
			s.cache.Evict(in.Path)
		}
		if info, err = imaging.LoadInfo(s.cache, in.Path); err == nil {
			img, err = s.cache.Load(in.Path)
		}
	default:
		return nil, ImageDetectOutput{}, errors.New("path or image_base64 is required")
	}
	if err != nil {
		return nil, ImageDetectOutput{}, err
	}

	res := s.detector.Detect(ctx, img, in.Target)
	return nil, ImageDetectOutput{Result: res, Image: *info}, nil
}
