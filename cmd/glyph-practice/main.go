// Command glyph-practice serves handwriting practice canvases over MCP and
// evaluates handwritten glyph images from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/glyph-practice-mcp/internal/config"
	"github.com/ironsheep/glyph-practice-mcp/internal/detection"
	"github.com/ironsheep/glyph-practice-mcp/internal/logging"
	"github.com/ironsheep/glyph-practice-mcp/internal/ocr"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "glyph-practice",
	Short: "Handwriting practice canvas and character detector",
	Long: `glyph-practice captures pen strokes on a practice canvas and scores them
with a classical-vision detector: strokes are counted as separate ink regions
and combined with ink coverage into an accuracy between 0 and 100.

Run "glyph-practice serve" from an MCP client configuration to expose the
canvas tools, or "glyph-practice detect" to score image files directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		// stdout carries the MCP stream, so the logger writes to stderr.
		logger, err = logging.New(cfg.Log.Level, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "glyph-practice %s\n", Version)
		fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Tesseract:  %s\n", ocr.Version())
		fmt.Fprintf(out, "  Detector:   %s\n", backendStatus(cmd.Context(), cfg.Detector.Backend))
	},
}

// backendStatus loads the named vision backend and reports whether it is
// usable in this build.
func backendStatus(ctx context.Context, backend string) string {
	if ctx == nil {
		ctx = context.Background()
	}
	proc, err := detection.NewProcessor(backend)
	if err != nil {
		return fmt.Sprintf("%s (%v)", backend, err)
	}
	det := detection.New(proc, detection.Options{Logger: logger})
	if err := det.Load(ctx); err != nil {
		logger.Debug("vision backend failed to load", zap.Error(err))
	}
	if !det.Ready() {
		return backend + " (unavailable)"
	}
	return backend + " (ready)"
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")

	rootCmd.AddCommand(serveCmd, detectCmd, replayCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
