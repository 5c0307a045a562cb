package handler

import (
	"net/http"
)

// HealthHandler answers liveness probes.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, http.StatusOK, "ok", nil)
}
