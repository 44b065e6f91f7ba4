package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/glyph-practice-mcp/internal/canvas"
	"github.com/ironsheep/glyph-practice-mcp/internal/config"
	"github.com/ironsheep/glyph-practice-mcp/internal/detection"
	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
)

var (
	replayOut    string
	replayDetect bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <drawing.json>",
	Short: "Render an exported drawing to PNG",
	Long: `Rebuilds a canvas from a drawing exported with canvas_export_strokes
(native format) and writes it as a PNG. With --detect the rebuilt canvas is
also scored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := replayOut
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".png"
		}

		surface, err := replayDrawing(cfg, args[0], out)
		if err != nil {
			return err
		}
		defer surface.Close()
		logger.Info("drawing rendered", zap.String("out", out), zap.Int("strokes", surface.StrokeCount()))

		if replayDetect {
			proc, err := detection.NewProcessor(cfg.Detector.Backend)
			if err != nil {
				return err
			}
			det := detection.New(proc, cfg.DetectorOptions(logger))
			res := det.Detect(cmd.Context(), surface.Snapshot(), surface.Target())
			renderResults(cmd.OutOrStdout(), []fileResult{{Path: out, Result: res}})
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayOut, "out", "o", "", "PNG output path (default: input name with .png)")
	replayCmd.Flags().BoolVar(&replayDetect, "detect", false, "Score the rebuilt drawing")
}

// replayDrawing renders the drawing stored at in and writes it to out. The
// caller closes the returned surface.
func replayDrawing(c *config.Config, in, out string) (*canvas.Surface, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read drawing: %w", err)
	}
	var d canvas.Record
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse drawing %s: %w", in, err)
	}

	opts := c.CanvasOptions(loadFont(c), logger)
	if d.Width > 0 {
		opts.Width = d.Width
	}
	if d.Height > 0 {
		opts.Height = d.Height
	}
	opts.Target = d.Target

	surface, err := canvas.New(opts)
	if err != nil {
		return nil, err
	}
	if n := surface.Replay(d.Strokes); n != len(d.Strokes) {
		logger.Warn("skipped malformed strokes", zap.Int("skipped", len(d.Strokes)-n))
	}

	png, err := imaging.PNG(surface.Snapshot())
	if err != nil {
		surface.Close()
		return nil, err
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		surface.Close()
		return nil, fmt.Errorf("failed to write %s: %w", out, err)
	}
	return surface, nil
}
