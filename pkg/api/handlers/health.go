package handlers

import (
	"net/http"
	"time"
)

// BlazeStatus is the view of the Blaze server the API needs.
type BlazeStatus interface {
	Ready() bool
	GetActiveConnections() int32
	GetListenerAddr() string
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	server    BlazeStatus
	startTime time.Time
}

// NewHealthHandler creates a health handler. server may be nil, in which
// case readiness always fails.
func NewHealthHandler(server BlazeStatus) *HealthHandler {
	return &HealthHandler{server: server, startTime: time.Now()}
}

// Liveness handles GET /health. It succeeds while the process is serving
// HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "rme3",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready. It succeeds once the Blaze listener
// accepts connections.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.server == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("blaze server not configured"))
		return
	}
	if !h.server.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("blaze listener not accepting connections"))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"listen_addr":        h.server.GetListenerAddr(),
		"active_connections": h.server.GetActiveConnections(),
	}))
}
