package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jackzampolin/digest/internal/metrics"
	"github.com/jackzampolin/digest/internal/svcctx"
)

// registerRoutes sets up routes that are not part of the endpoint registry.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// ReadyResponse is the response for the readiness check.
type ReadyResponse struct {
	Status    string `json:"status"`
	Jobs      string `json:"jobs"`
	Providers int    `json:"providers"`
}

// handleReady returns OK only once the job manager is running and at
// least one LLM provider is registered.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{
		Status:    "ok",
		Jobs:      "ok",
		Providers: len(s.registry.ListLLM()),
	}

	if s.JobManager() == nil {
		resp.Status = "degraded"
		resp.Jobs = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if resp.Providers == 0 {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// middleware enriches the request context with services, recovers panics,
// and logs and counts every request.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if services := s.currentServices(); services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		req := r.WithContext(ctx)
		sw := &statusWriter{ResponseWriter: w}

		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprint(rec))
				if sw.status == 0 {
					writeJSON(sw, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			// Label by route pattern to keep metric cardinality bounded.
			pattern := req.Pattern
			if pattern == "" {
				pattern = "unmatched"
			}
			metrics.ObserveHTTP(r.Method, pattern, status, elapsed)

			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", elapsed.Milliseconds())
		}()

		next.ServeHTTP(sw, req)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
