package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/zeusync/eventscope/internal/config"
	"github.com/zeusync/eventscope/internal/core/observability/log"
)

const shutdownTimeout = 5 * time.Second

// HTTPServer serves the statistics feed and the metrics endpoint.
type HTTPServer struct {
	server *http.Server
	hub    *Hub
	logger log.Log
}

// NewHTTPServer mounts hub on cfg.FeedPath and metrics, when not nil, on
// cfg.MetricsPath.
func NewHTTPServer(cfg config.ServeConfig, hub *Hub, metrics http.Handler, logger log.Log) *HTTPServer {
	if logger == nil {
		logger = log.Nop()
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.FeedPath, hub)
	if metrics != nil && cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, metrics)
	}
	return &HTTPServer{
		server: &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		hub:    hub,
		logger: logger,
	}
}

func (s *HTTPServer) Handler() http.Handler { return s.server.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("feed server listening", log.String("addr", s.server.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
