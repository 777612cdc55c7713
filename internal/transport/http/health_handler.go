package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	platformredis "hl7bridge/internal/platform/redis"
	"hl7bridge/pkg/platform/httputil"
)

// HealthHandler reports process liveness and dependency reachability.
type HealthHandler struct {
	db    *sql.DB
	redis *platformredis.Client
}

func NewHealthHandler(db *sql.DB, redis *platformredis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["postgres"] = "unreachable"
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Health(ctx); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	httputil.WriteJSON(w, status, map[string]any{
		"status": state,
		"checks": checks,
	})
}
