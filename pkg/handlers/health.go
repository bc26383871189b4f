package handlers

import "net/http"

// HealthHandler answers liveness probes.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// RegisterRoutes registers the health endpoint. It is unauthenticated.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Get)
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteData(w, map[string]string{"status": "ok", "version": h.version})
}
