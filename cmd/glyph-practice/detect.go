package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/glyph-practice-mcp/internal/detection"
	"github.com/ironsheep/glyph-practice-mcp/internal/glyph"
	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
)

var (
	detectTarget   string
	detectParallel int
	detectJSON     bool
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>...",
	Short: "Score handwritten glyph images",
	Long: `Runs the character detector on each image file (PNG, JPEG or GIF) and
prints detected, accuracy and stroke count. Files are processed concurrently,
at most --parallel at a time. A file that cannot be read is reported and does
not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if detectTarget != "" && !glyph.IsSingle(detectTarget) {
			return fmt.Errorf("--target %q must be a single character", detectTarget)
		}
		proc, err := detection.NewProcessor(cfg.Detector.Backend)
		if err != nil {
			return err
		}
		det := detection.New(proc, cfg.DetectorOptions(logger))

		results := detectFiles(cmd.Context(), det, args, detectTarget, detectParallel)
		if detectJSON {
			return writeJSON(cmd.OutOrStdout(), results)
		}
		renderResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectTarget, "target", "t", "", "Glyph the images are attempts at")
	detectCmd.Flags().IntVarP(&detectParallel, "parallel", "p", runtime.NumCPU(), "Maximum files processed at once")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "Print results as JSON")
}

// fileResult is the detection outcome for one file.
type fileResult struct {
	Path   string           `json:"path"`
	Result detection.Result `json:"result"`
	Error  string           `json:"error,omitempty"`
}

// detectFiles scores every path, at most parallel at a time, and returns the
// results in argument order.
func detectFiles(ctx context.Context, det *detection.Detector, paths []string, target string, parallel int) []fileResult {
	if parallel < 1 {
		parallel = 1
	}
	cache := imaging.NewCache()
	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range paths {
		g.Go(func() error {
			results[i].Path = path
			img, err := cache.Load(path)
			if err != nil {
				results[i].Error = err.Error()
				results[i].Result = detection.Result{Message: detection.MessageError}
				return nil
			}
			results[i].Result = det.Detect(gctx, img, target)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

var (
	pathStyle    = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	retryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

func renderResults(w io.Writer, results []fileResult) {
	passed := 0
	for _, r := range results {
		style := retryStyle
		switch {
		case r.Error != "":
			style = errorStyle
		case r.Result.Detected:
			style = successStyle
			passed++
		}

		fmt.Fprintf(w, "%s  %s\n", pathStyle.Render(filepath.Base(r.Path)), style.Render(r.Result.Message))
		if r.Error != "" {
			fmt.Fprintf(w, "    %s\n", mutedStyle.Render(r.Error))
			continue
		}
		fmt.Fprintf(w, "    %s\n", mutedStyle.Render(fmt.Sprintf(
			"accuracy %d%%  strokes %d  ink %.2f%%",
			r.Result.Accuracy, r.Result.Strokes, r.Result.FilledRatio*100)))
	}
	fmt.Fprintf(w, "\n%d of %d detected\n", passed, len(results))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
