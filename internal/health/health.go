package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers 200 when every check passes and 503 otherwise.
func Handler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		results := lo.MapValues(checks, func(check Check, _ string) error { return check(ctx) })
		failed := lo.PickBy(results, func(_ string, err error) bool { return err != nil })

		resp := response{Status: "ok"}
		code := http.StatusOK
		if len(failed) > 0 {
			resp.Status = "degraded"
			resp.Checks = lo.MapValues(failed, func(err error, _ string) string { return err.Error() })
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(resp)
	}
}

// Server serves /health and /metrics for processes without a web front end.
type Server struct {
	httpServer *http.Server
}

func New(addr string, checks map[string]Check) *Server {
	mux := http.NewServeMux()
	mux.Handle("GET /health", Handler(checks))
	mux.Handle("GET /metrics", promhttp.Handler())
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
