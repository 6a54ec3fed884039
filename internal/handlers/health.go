package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/httpx"
)

// ReadinessCheck probes one dependency for /readyz. A non-nil error marks
// the service not ready.
type ReadinessCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	startedAt time.Time
	version   string
	clock     func() time.Time
	checks    []ReadinessCheck
}

// HealthOption customises health handler construction.
type HealthOption func(*HealthHandlers)

// WithHealthVersion sets the version string reported by /healthz.
func WithHealthVersion(version string) HealthOption {
	return func(h *HealthHandlers) {
		h.version = version
	}
}

// WithHealthClock substitutes the time source, for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithReadinessChecks appends dependency probes run by /readyz.
func WithReadinessChecks(checks ...ReadinessCheck) HealthOption {
	return func(h *HealthHandlers) {
		h.checks = append(h.checks, checks...)
	}
}

// NewHealthHandlers constructs the health handler set.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		startedAt: time.Now(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	payload := map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.startedAt).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if h.version != "" {
		payload["version"] = h.version
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

// Readyz runs the registered dependency probes and reports 503 when any
// fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := make(map[string]string, len(h.checks))
	details := make([]string, 0)

	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			checks[check.Name] = "degraded"
			details = append(details, check.Name+": "+err.Error())
			continue
		}
		checks[check.Name] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if len(details) > 0 {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	httpx.WriteJSON(w, code, map[string]any{
		"status":  status,
		"checks":  checks,
		"details": details,
	})
}
