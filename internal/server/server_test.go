package server

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/glyph-practice-mcp/internal/config"
	"github.com/ironsheep/glyph-practice-mcp/internal/detection"
	"github.com/ironsheep/glyph-practice-mcp/internal/session"
)

// brokenProcessor never loads.
type brokenProcessor struct{ *detection.NativeProcessor }

func (brokenProcessor) Load(context.Context) error { return errors.New("no backend") }

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := New(Options{})
		require.NoError(t, err)
		defer s.Close()
		assert.Equal(t, detection.DefaultPolicy(), s.detector.Policy())
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Canvas.InkColor = "ink"
		_, err := New(Options{Config: cfg})
		assert.Error(t, err)
	})

	t.Run("processor override", func(t *testing.T) {
		s, err := New(Options{Processor: brokenProcessor{}})
		require.NoError(t, err)
		defer s.Close()

		_, info, err := s.handleCreate(context.Background(), nil, CreateInput{})
		require.NoError(t, err)
		_, out, err := s.handleDetect(context.Background(), nil, SessionInput{Session: info.ID})
		require.NoError(t, err)
		assert.Equal(t, detection.Result{Message: detection.MessageError}, out.Result)
	})
}

func TestServer_Reload(t *testing.T) {
	s := newTestServer(t)

	cfg := config.Default()
	cfg.Detector.Scoring.PassMark = 90
	cfg.Canvas.Width = 180
	s.Reload(cfg)

	assert.Equal(t, cfg.Detector.Scoring, s.detector.Policy())
	assert.Equal(t, 180, s.sessions.Defaults().Width)

	_, info, err := s.handleCreate(context.Background(), nil, CreateInput{})
	require.NoError(t, err)
	assert.Equal(t, 180, info.Width)

	cfg.OCR.Enabled = false
	s.Reload(cfg)
	_, _, err = s.handleReadGlyph(context.Background(), nil, ReadGlyphInput{Session: info.ID})
	assert.ErrorIs(t, err, ErrOCRDisabled)
}

// connect runs s over in-memory transports and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "practice-test", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs
}

func call[T any](t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) T {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "%s failed: %+v", name, res.Content)

	var out T
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestServer_ListTools(t *testing.T) {
	cs := connect(t, newTestServer(t))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	sort.Strings(names)

	assert.Equal(t, []string{
		"canvas_begin",
		"canvas_clear",
		"canvas_close",
		"canvas_create",
		"canvas_detect",
		"canvas_end",
		"canvas_export_strokes",
		"canvas_extend",
		"canvas_read_glyph",
		"canvas_resize",
		"canvas_set_mode",
		"canvas_set_target",
		"canvas_snapshot",
		"canvas_stroke",
		"image_detect",
	}, names)
}

func TestServer_PracticeRoundTrip(t *testing.T) {
	cs := connect(t, newTestServer(t))

	info := call[session.Info](t, cs, "canvas_create", map[string]any{"target": "二"})
	require.NotEmpty(t, info.ID)

	for _, y := range []float64{100, 200} {
		pts := make([]map[string]any, 0, 21)
		for _, p := range line(60, y, 240, y) {
			pts = append(pts, map[string]any{"x": p.X, "y": p.Y, "t": p.T})
		}
		out := call[StrokeOutput](t, cs, "canvas_stroke", map[string]any{"session": info.ID, "points": pts})
		assert.Equal(t, 21, out.AcceptedPoints)
	}

	outcome := call[session.Outcome](t, cs, "canvas_detect", map[string]any{"session": info.ID})
	assert.True(t, outcome.Result.Detected)
	assert.Equal(t, 2, outcome.Result.Strokes)
	assert.Equal(t, detection.MessageSuccess, outcome.Result.Message)

	closed := call[CloseOutput](t, cs, "canvas_close", map[string]any{"session": info.ID})
	assert.True(t, closed.Closed)
}

func TestServer_ToolErrorsAreResults(t *testing.T) {
	cs := connect(t, newTestServer(t))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "canvas_clear",
		Arguments: map[string]any{"session": "missing"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
