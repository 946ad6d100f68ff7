// # internal/shared/observability/server.go
package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusFunc supplies the payload of the /health endpoint.
type StatusFunc func() any

// Server exposes prometheus metrics and a JSON health snapshot.
type Server struct {
	addr   string
	status StatusFunc
	server *http.Server
}

func NewServer(addr string, status StatusFunc) *Server {
	return &Server{addr: addr, status: status}
}

func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var payload any = map[string]string{"status": "up"}
		if s.status != nil {
			payload = s.status()
		}
		_ = json.NewEncoder(w).Encode(payload)
	})

	s.server = &http.Server{Addr: s.addr, Handler: mux}
	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
