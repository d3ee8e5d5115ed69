package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/realty-be/internal/monitoring"
	"github.com/rs/zerolog/log"
)

// Pinger checks that a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HostStatsSource provides the latest host resource snapshot.
type HostStatsSource interface {
	Latest() monitoring.HostStats
}

// HealthHandler reports service liveness and host resource usage.
type HealthHandler struct {
	db    Pinger
	stats HostStatsSource
}

// NewHealthHandler creates a new HealthHandler. stats may be nil.
func NewHealthHandler(db Pinger, stats HostStatsSource) *HealthHandler {
	return &HealthHandler{db: db, stats: stats}
}

// Health answers 200 when the database is reachable and 503 otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, dbStatus, code := "ok", "ok", http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: database unreachable")
		status, dbStatus, code = "degraded", "unreachable", http.StatusServiceUnavailable
	}

	body := map[string]interface{}{
		"status":   status,
		"database": dbStatus,
	}
	if h.stats != nil {
		body["host"] = h.stats.Latest()
	}
	writeJSON(w, code, body)
}
