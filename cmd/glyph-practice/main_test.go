package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ironsheep/glyph-practice-mcp/internal/canvas"
	"github.com/ironsheep/glyph-practice-mcp/internal/config"
	"github.com/ironsheep/glyph-practice-mcp/internal/detection"
	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
)

func TestMain(m *testing.M) {
	logger = zap.NewNop()
	goleak.VerifyTestMain(m)
}

func writeBlobs(t *testing.T, dir, name string, rects ...image.Rectangle) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestDetectFiles(t *testing.T) {
	dir := t.TempDir()
	three := writeBlobs(t, dir, "three.png",
		image.Rect(10, 10, 20, 30), image.Rect(40, 10, 50, 30), image.Rect(70, 70, 80, 80))
	blank := writeBlobs(t, dir, "blank.png")
	missing := filepath.Join(dir, "missing.png")

	det := detection.New(detection.NewNativeProcessor(), detection.DefaultOptions())
	results := detectFiles(context.Background(), det, []string{three, blank, missing}, "川", 2)

	require.Len(t, results, 3)
	assert.Equal(t, three, results[0].Path)
	assert.True(t, results[0].Result.Detected)
	assert.Equal(t, 69, results[0].Result.Accuracy)
	assert.Equal(t, "川", results[0].Result.Target)

	assert.False(t, results[1].Result.Detected)
	assert.Equal(t, detection.MessageRetry, results[1].Result.Message)

	assert.NotEmpty(t, results[2].Error)
	assert.Equal(t, detection.MessageError, results[2].Result.Message)
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	renderResults(&buf, []fileResult{
		{Path: "/tmp/a.png", Result: detection.Result{Detected: true, Accuracy: 69, Strokes: 3, Message: detection.MessageSuccess}},
		{Path: "/tmp/b.png", Result: detection.Result{Message: detection.MessageError}, Error: "no such file"},
	})

	out := buf.String()
	assert.Contains(t, out, "a.png")
	assert.Contains(t, out, "accuracy 69%")
	assert.Contains(t, out, "no such file")
	assert.True(t, strings.HasSuffix(out, "1 of 2 detected\n"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []fileResult{{Path: "x.png", Result: detection.Result{Accuracy: 10}}}))

	var got []fileResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 10, got[0].Result.Accuracy)
}

func TestReplayDrawing(t *testing.T) {
	cfg := config.Default()

	src, err := canvas.New(cfg.CanvasOptions(nil, nil))
	require.NoError(t, err)
	defer src.Close()
	src.SetTarget("二")
	for _, y := range []float64{100, 200} {
		require.True(t, src.Begin(canvas.Point{X: 60, Y: y}))
		for i := 1; i <= 10; i++ {
			src.Extend(canvas.Point{X: 60 + float64(i)*18, Y: y, T: int64(i * 16)})
		}
		require.True(t, src.End())
	}

	dir := t.TempDir()
	in := filepath.Join(dir, "drawing.json")
	data, err := json.Marshal(src.Record())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in, data, 0o600))

	out := filepath.Join(dir, "drawing.png")
	surface, err := replayDrawing(cfg, in, out)
	require.NoError(t, err)
	defer surface.Close()

	assert.Equal(t, 2, surface.StrokeCount())
	assert.Equal(t, "二", surface.Target())

	cache := imaging.NewCache()
	img, err := cache.Load(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 300), img.Bounds())

	det := detection.New(detection.NewNativeProcessor(), detection.DefaultOptions())
	res := det.Detect(context.Background(), img, "二")
	assert.Equal(t, 2, res.Strokes)
}

func TestReplayDrawing_Errors(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()

	_, err := replayDrawing(cfg, filepath.Join(dir, "none.json"), filepath.Join(dir, "out.png"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"strokes": [{"mode": "spray"}]}`), 0o600))
	_, err = replayDrawing(cfg, bad, filepath.Join(dir, "out.png"))
	assert.Error(t, err)
}

func TestBackendStatus(t *testing.T) {
	assert.Equal(t, "native (ready)", backendStatus(context.Background(), detection.BackendNative))
	assert.Contains(t, backendStatus(context.Background(), "tflite"), "unknown detector backend")
}

func TestDetectCmd_RejectsMultiCharacterTarget(t *testing.T) {
	old := detectTarget
	t.Cleanup(func() { detectTarget = old })

	detectTarget = "川口"
	err := detectCmd.RunE(detectCmd, []string{"attempt.png"})
	assert.ErrorContains(t, err, "single character")
}
