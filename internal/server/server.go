package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gogpu/gg/text"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ironsheep/glyph-practice-mcp/internal/config"
	"github.com/ironsheep/glyph-practice-mcp/internal/detection"
	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
	"github.com/ironsheep/glyph-practice-mcp/internal/session"
)

// Name is the MCP implementation name.
const Name = "glyph-practice-mcp"

// Options configures a Server.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config
	// Font renders target watermarks. Nil disables them.
	Font *text.FontSource
	// Processor overrides the backend named in Config.
	Processor detection.ImageProcessor
	Version   string
	Logger    *zap.Logger
}

// Server exposes practice canvases and the detector as MCP tools.
type Server struct {
	sessions *session.Manager
	detector *detection.Detector
	cache    *imaging.Cache
	font     *text.FontSource
	log      *zap.Logger
	server   *mcp.Server

	mu  sync.RWMutex
	cfg *config.Config
}

// New builds a server and registers its tools.
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	proc := opts.Processor
	if proc == nil {
		var err error
		if proc, err = detection.NewProcessor(cfg.Detector.Backend); err != nil {
			return nil, err
		}
	}

	s := &Server{
		sessions: session.NewManager(session.Options{
			Defaults:                 cfg.CanvasOptions(opts.Font, log),
			MaxSessions:              cfg.Session.MaxSessions,
			LockInputDuringDetection: cfg.Session.LockInputDuringDetection,
			Logger:                   log,
		}),
		detector: detection.New(proc, cfg.DetectorOptions(log)),
		cache:    imaging.NewCache(),
		font:     opts.Font,
		log:      log,
		server:   mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil),
		cfg:      cfg,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("serving MCP on stdio")
	defer s.sessions.CloseAll()
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves MCP over streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("http shutdown", zap.Error(err))
		}
	}()

	s.log.Info("serving MCP over HTTP", zap.String("addr", addr))
	defer s.sessions.CloseAll()
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Reload applies a new configuration. The scoring policy changes for every
// later detection; canvas defaults apply to sessions created afterwards.
// Backend, ink threshold and session limits need a restart.
func (s *Server) Reload(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.detector.SetPolicy(cfg.Detector.Scoring)
	s.sessions.SetDefaults(cfg.CanvasOptions(s.font, s.log))
	s.log.Info("configuration applied",
		zap.Int("pass_mark", cfg.Detector.Scoring.PassMark),
		zap.Int("open_sessions", s.sessions.Len()))
}

// Close releases every open session.
func (s *Server) Close() {
	s.sessions.CloseAll()
	s.cache.Clear()
}

func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}
