// Package server exposes the generation engine over HTTP: job submission
// and polling endpoints plus a WebSocket stream of live job updates.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/complyforge/complyforge/audit"
	"github.com/complyforge/complyforge/generation"
)

// Server serves the generation API.
type Server struct {
	engine *generation.Engine
	pool   *generation.WorkerPool
	sink   *audit.SQLSink
	logger *zap.SugaredLogger

	httpServer *http.Server

	mu      sync.RWMutex
	clients map[*Client]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server. The pool is already started by the caller; the
// server only reads its metrics and queue.
func New(ctx context.Context, port int, engine *generation.Engine, pool *generation.WorkerPool, sink *audit.SQLSink, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	serverCtx, cancel := context.WithCancel(ctx)

	s := &Server{
		engine:  engine,
		pool:    pool,
		sink:    sink,
		logger:  logger.Named("server"),
		clients: make(map[*Client]bool),
		ctx:     serverCtx,
		cancel:  cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.HandleHealth)
	mux.HandleFunc("/api/generation", s.HandleGeneration)
	mux.HandleFunc("/api/generation/jobs", s.HandleJobs)
	mux.HandleFunc("/api/generation/jobs/", s.HandleJob)
	mux.HandleFunc("/api/audit/stats", s.HandleAuditStats)
	mux.HandleFunc("/ws", s.HandleWebSocket)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	return s
}

// Start begins serving and launches the job update broadcaster. It blocks
// until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.startJobUpdateBroadcaster()

	s.logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the listener, disconnects clients and waits for
// background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	for client := range s.clients {
		client.close()
	}
	s.clients = make(map[*Client]bool)
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// HandleHealth reports process liveness plus worker pool metrics.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"metrics": s.pool.GetSystemMetrics(),
	})
}

// HandleAuditStats reports per-action audit event counts for the last day.
func (s *Server) HandleAuditStats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	counts, err := s.sink.Stats(r.Context(), since)
	if err != nil {
		s.logger.Errorw("Failed to get audit stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get audit stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"since":  since,
		"counts": counts,
	})
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requireMethod enforces the HTTP method, writing 405 on mismatch
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed", r.Method))
		return false
	}
	return true
}

// extractPathParts splits the URL path after a prefix into segments
func extractPathParts(path, prefix string) []string {
	trimmed := strings.TrimPrefix(path, prefix)
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// parseIntQueryParam reads an integer query parameter with bounds
func parseIntQueryParam(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}
