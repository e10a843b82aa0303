// Package api serves the read-only node-map API used by the website, plus
// health and Prometheus endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/netcrawl/netcrawl/internal/domain"
	"github.com/netcrawl/netcrawl/internal/health"
	"github.com/netcrawl/netcrawl/internal/infra/metrics"
)

// PeerSource looks up the stored peer list of one endpoint.
// Implemented by infra/redisstore.Store.
type PeerSource interface {
	NodePeers(ctx context.Context, ip string, port int) (json.RawMessage, error)
}

// Server is the HTTP API server.
type Server struct {
	peers          PeerSource
	health         *health.Checker
	metricsEnabled bool
	log            *zap.Logger
}

// NewServer creates a new API server.
func NewServer(peers PeerSource, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{peers: peers, log: log}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth sets the checker reported by /health.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)
	r.Use(instrument)

	r.Get("/health", s.handleHealth)

	r.Get("/api/nodes/{ip}/{port}", s.handleNodePeers)
	r.Get("/api/nodes/{ip}/{port}/peers", s.handleNodePeers)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// PeersResponse is the body of a node lookup.
type PeersResponse struct {
	Node  string          `json:"node"`
	Peers json.RawMessage `json:"peers"`
}

func (s *Server) handleNodePeers(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	port, err := strconv.Atoi(chi.URLParam(r, "port"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "port must be an integer")
		return
	}

	peers, err := s.peers.NodePeers(r.Context(), ip, port)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "node not found")
		return
	case err != nil:
		s.log.Error("node lookup failed", zap.String("ip", ip), zap.Int("port", port), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, PeersResponse{
		Node:  ip + ":" + strconv.Itoa(port),
		Peers: peers,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"code":    status,
		},
	})
}

// corsMiddleware lets the website fetch from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument counts requests by matched route pattern and status.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}
