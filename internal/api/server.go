package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"veritas/internal/api/health"
	"veritas/internal/metrics"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Port        int
	ServiceName string
	Version     string
}

// Server wraps HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures HTTP server with all routes
func NewServer(cfg ServerConfig, healthHandler *health.Handler, handlers *Handlers, hub *EventHub, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	// Health check endpoints (Kubernetes probes)
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReadiness)
	mux.HandleFunc("/live", healthHandler.HandleLiveness)
	mux.HandleFunc("/workers", healthHandler.HandleWorkers)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", metrics.Handler())

	// Claim endpoints
	mux.HandleFunc("POST /claims", handlers.HandleCreateClaim)
	mux.HandleFunc("GET /claims/{id}", handlers.HandleGetClaim)
	mux.HandleFunc("GET /claims/{id}/result", handlers.HandleLatestResult)
	mux.HandleFunc("GET /claims/{id}/results", handlers.HandleResultHistory)

	// Evidence endpoints
	mux.HandleFunc("POST /claims/{id}/evidence", handlers.HandleSubmitEvidence)
	mux.HandleFunc("GET /claims/{id}/evidence", handlers.HandleListEvidence)
	mux.HandleFunc("POST /evidence/{id}/review", handlers.HandleReviewEvidence)

	// Dispute endpoints
	mux.HandleFunc("POST /claims/{id}/disputes", handlers.HandleFileDispute)
	mux.HandleFunc("GET /claims/{id}/disputes", handlers.HandleListDisputes)

	// Admin override endpoints, routed through the same lifecycle guards
	mux.HandleFunc("POST /admin/claims/{id}/preliminary", handlers.HandleForcePreliminary)
	mux.HandleFunc("POST /admin/claims/{id}/resolve", handlers.HandleForceFinal)
	mux.HandleFunc("POST /admin/claims/{id}/refund", handlers.HandleForceRefund)
	mux.HandleFunc("POST /admin/disputes/{id}/resolve", handlers.HandleResolveDispute)

	// Live event stream mirroring the Kafka topics
	if hub != nil {
		mux.HandleFunc("GET /ws/events", hub.HandleWS)
	}

	// Root endpoint (service info)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":"%s","version":"%s","status":"running"}`,
			cfg.ServiceName, cfg.Version)
	})

	port := 8080
	if cfg.Port > 0 {
		port = cfg.Port
	}

	log.Infof("HTTP server configured on port %d", port)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
// Waits for active connections to complete within timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("HTTP server stopped")
	return nil
}
