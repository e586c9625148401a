// Package admin implements the read-only admin HTTP surface (§4.K):
// /metrics (Prometheus exposition) and /healthz (liveness/dependency
// status), modeled on the teacher's internal/interfaces/http.Server --
// same gorilla/mux router, timeout middleware, and request-ID header,
// generalized from a candidate-scan API to this pipeline's health
// surface.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// HealthChecker reports whether a dependency the server exposes on
// /healthz is currently reachable.
type HealthChecker interface {
	// Name identifies the dependency in the /healthz response body.
	Name() string
	// Healthy reports the dependency's current status and, when
	// unhealthy, a short diagnostic message.
	Healthy(ctx context.Context) (ok bool, detail string)
}

// Server is the process's local-only, read-only admin HTTP server.
type Server struct {
	router   *mux.Router
	server   *http.Server
	checkers []HealthChecker
}

// New builds a Server bound to addr (e.g. ":9090"), exposing promReg on
// /metrics and polling checkers for /healthz.
func New(addr string, promReg *prometheus.Registry, checkers []HealthChecker) *Server {
	router := mux.NewRouter()
	s := &Server{router: router, checkers: checkers}

	router.Use(s.requestIDMiddleware)
	router.Use(s.timeoutMiddleware)

	router.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving until the server is shut down. Callers typically
// run it in its own goroutine.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("admin: starting HTTP server")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, honoring ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, `{"error":"not found","path":%q}`, r.URL.Path)
}
