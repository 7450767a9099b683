package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"shotline/internal/batch"
	"shotline/internal/config"
	"shotline/internal/generation"
	"shotline/internal/logging"
	"shotline/internal/runlog"
	"shotline/internal/stage"
)

// StageRunner runs one batch. *batch.Scheduler satisfies it.
type StageRunner interface {
	Run(ctx context.Context, opts batch.Options) (batch.Summary, error)
}

// History reads recorded batches. *runlog.Store satisfies it.
type History interface {
	Batches(ctx context.Context, name stage.Name, limit int) ([]runlog.Batch, error)
	Batch(ctx context.Context, id string) (runlog.Batch, []runlog.ShotRun, error)
}

// ServerConfig holds the collaborators behind the HTTP surface. History may
// be nil when the run ledger is unavailable.
type ServerConfig struct {
	Config    *config.Config
	Runner    StageRunner
	History   History
	Generator generation.Adapter
	Logger    *slog.Logger
	Now       func() time.Time
}

func (c ServerConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Server is the HTTP listener for the router.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer binds the router to cfg.Config.Paths.APIBind.
func NewServer(cfg ServerConfig) *Server {
	logger := logging.NewComponentLogger(cfg.Logger, "api")
	cfg.Logger = logger
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Config.Paths.APIBind,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Serve listens until ctx is cancelled, then shuts down gracefully. ready,
// when non-nil, receives the bound address once listening.
func (s *Server) Serve(ctx context.Context, ready chan<- string) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("http server listening", logging.String("addr", ln.Addr().String()))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
