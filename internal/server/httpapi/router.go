// Package httpapi serves the backend's operational endpoints: Prometheus
// metrics and a health check.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/logging"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewRouter wires /metrics over gatherer and /healthz over db.
func NewRouter(gatherer prometheus.Gatherer, db Pinger) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.HandleFunc("/healthz", healthHandler(db)).Methods(http.MethodGet)
	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		code, body := http.StatusOK, map[string]string{"status": "ok"}
		if err := db.PingContext(ctx); err != nil {
			code, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Server runs the router until the context is done.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

func NewServer(addr string, h http.Handler, l logging.Logger) *Server {
	return &Server{
		srv:    &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second},
		logger: l.With("module", "http_server"),
	}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
