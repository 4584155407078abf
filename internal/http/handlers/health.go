package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ShivpalBellway/DevBhakti/internal/http/respond"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler answers liveness probes
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a health handler. db may be nil to skip the store check.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			respond.JSON(w, http.StatusServiceUnavailable, respond.Envelope{Success: false, Message: "Database unavailable"})
			return
		}
	}
	respond.OK(w, http.StatusOK, "DevBhakti Backend is running", nil)
}
