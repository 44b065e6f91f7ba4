package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/gg/text"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/glyph-practice-mcp/internal/canvas"
	"github.com/ironsheep/glyph-practice-mcp/internal/config"
	"github.com/ironsheep/glyph-practice-mcp/internal/server"
)

var (
	httpAddr    string
	watchConfig bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the practice tools over MCP",
	Long: `Serves the canvas and detection tools over the Model Context Protocol.

By default the server speaks MCP on stdin/stdout, which is how desktop MCP
clients launch it. With --http it serves the streamable HTTP transport.
With --watch and --config, edits to the config file are applied without a
restart: the scoring policy changes immediately and canvas defaults apply to
canvases created afterwards.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on this address (e.g. :8080) instead of stdio")
	serveCmd.Flags().BoolVar(&watchConfig, "watch", false, "Reload the config file when it changes")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting glyph-practice",
		zap.String("version", Version),
		zap.String("commit", GitCommit),
		zap.String("backend", cfg.Detector.Backend))

	srv, err := server.New(server.Options{
		Config:  cfg,
		Font:    loadFont(cfg),
		Version: Version,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	if watchConfig {
		if configPath == "" {
			return fmt.Errorf("--watch needs --config")
		}
		w, err := config.NewWatcher(configPath, srv.Reload, logger)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	if httpAddr != "" {
		return srv.RunHTTP(ctx, httpAddr)
	}
	return srv.Run(ctx)
}

// loadFont returns the configured watermark font, or nil when none is set or
// it cannot be read. A missing font only disables the watermark.
func loadFont(c *config.Config) *text.FontSource {
	if c.Canvas.WatermarkFont == "" {
		return nil
	}
	font, err := canvas.LoadFont(c.Canvas.WatermarkFont)
	if err != nil {
		logger.Warn("watermark disabled", zap.Error(err))
		return nil
	}
	return font
}
