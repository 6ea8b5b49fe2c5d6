// Package health provides the status and metrics HTTP endpoints for pongd.
package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/pprof"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinmesh/pongd/internal/responder"
)

// Provider exposes the running responder to the status endpoints.
// *responder.Responder satisfies it.
type Provider interface {
	// IsRunning returns true if the receive loop is active.
	IsRunning() bool

	// Stats returns a counter snapshot.
	Stats() responder.Stats

	// Subscribe registers a live packet-event channel.
	Subscribe(buffer int) (<-chan responder.PacketEvent, func())
}

// ServerConfig contains status server configuration.
type ServerConfig struct {
	// Address to listen on (e.g., ":8081")
	Address string

	// ReadTimeout for HTTP reads
	ReadTimeout time.Duration

	// WriteTimeout for HTTP writes
	WriteTimeout time.Duration
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":8081",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server is an HTTP server for status, metrics, and live events.
type Server struct {
	cfg      ServerConfig
	provider Provider
	server   *http.Server
	listener net.Listener
	running  atomic.Bool
}

// NewServer creates a new status server.
func NewServer(cfg ServerConfig, provider Provider) *Server {
	s := &Server{
		cfg:      cfg,
		provider: provider,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Live packet event stream
	mux.HandleFunc("/events", s.handleEvents)

	// pprof debug endpoints
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start starts the status server.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.listener = ln
	s.running.Store(true)

	go s.server.Serve(ln)

	return nil
}

// Stop stops the status server.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Address returns the server's listen address.
func (s *Server) Address() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// handleHealth handles the basic health check endpoint.
// Returns 200 if the server is responding.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK\n"))
}

// handleHealthz handles the detailed health check endpoint.
// Returns 200 with JSON counters if the loop is up, 503 otherwise.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.provider == nil || !s.provider.IsRunning() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "unavailable",
			"running": false,
		})
		return
	}

	stats := s.provider.Stats()
	response := map[string]interface{}{
		"status":    "healthy",
		"running":   true,
		"received":  stats.Received,
		"replied":   stats.Replied,
		"discarded": stats.Discarded,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleStatus reports the full responder snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.provider == nil {
		http.Error(w, "responder not configured", http.StatusServiceUnavailable)
		return
	}

	stats := s.provider.Stats()
	response := map[string]interface{}{
		"running":        s.provider.IsRunning(),
		"listen_addr":    stats.ListenAddr,
		"banner":         stats.Banner,
		"entropy_source": stats.EntropySource,
		"started":        stats.Started,
		"started_human":  humanize.Time(stats.Started),
		"uptime":         time.Since(stats.Started).Round(time.Second).String(),
		"received":       stats.Received,
		"replied":        stats.Replied,
		"ignored":        stats.Ignored,
		"discarded":      stats.Discarded,
		"suppressed":     stats.Suppressed,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
