// Package health serves liveness and metrics endpoints for swarmctl serve.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides /healthz (backend ping) and /metrics (Prometheus).
type Server struct {
	pinger   swarmstore.Pinger
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	addr     string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a server that will listen on addr. A nil gatherer
// disables /metrics.
func NewServer(addr string, pinger swarmstore.Pinger, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pinger:   pinger,
		gatherer: gatherer,
		logger:   logger,
		addr:     addr,
	}
}

// Handler returns the HTTP routes served by Start.
func (h *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)
	if h.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start binds the listener and serves in the background. Bind errors are
// returned directly.
func (h *Server) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.server != nil {
		return fmt.Errorf("health server already started")
	}

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}

	h.listener = ln
	h.done = make(chan struct{})
	h.server = &http.Server{
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server error", zap.Error(err))
		}
	}(h.server, h.done)

	h.logger.Info("health server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (h *Server) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.addr
}

// Shutdown gracefully stops the server and waits for the serve loop to exit.
func (h *Server) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	srv, done := h.server, h.done
	h.mu.Unlock()
	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if the backend answers a ping, 503 Service Unavailable otherwise.
func (h *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{Status: "healthy", Backend: "connected"}
	status := http.StatusOK

	if err := h.ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Backend = "disconnected"
		response.Error = err.Error()
		status = http.StatusServiceUnavailable
		h.logger.Warn("health check failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Debug("failed to write health response", zap.Error(err))
	}
}

func (h *Server) ping(ctx context.Context) error {
	if h.pinger == nil {
		return fmt.Errorf("no backend configured")
	}
	return h.pinger.Ping(ctx)
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error,omitempty"`
}
