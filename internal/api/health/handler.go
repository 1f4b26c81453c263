// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/nulltasker/nulltasker/pkg/config"
)

// readyTimeout bounds how long a readiness probe may spend on its
// dependency checks.
const readyTimeout = 5 * time.Second

// Checker reports whether a single dependency is usable.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler answers the /health endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterChecker adds a dependency to the readiness probe.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

type status struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func writeStatus(w http.ResponseWriter, code int, s status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(s)
}

// Health answers "is the process up" checks and reports the running
// version.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, status{Status: "ok", Version: config.Version})
}

// Live is the liveness probe: a 200 whenever the process can serve it.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, status{Status: "live"})
}

// Ready is the readiness probe. It runs every registered checker and
// returns 503 with per-dependency detail if any of them fail.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	s := status{Status: "ready", Checks: make(map[string]string, len(checkers))}
	code := http.StatusOK

	for _, c := range checkers {
		if err := c.Check(ctx); err != nil {
			s.Checks[c.Name()] = err.Error()
			s.Status = "not_ready"
			code = http.StatusServiceUnavailable
		} else {
			s.Checks[c.Name()] = "ok"
		}
	}

	writeStatus(w, code, s)
}
