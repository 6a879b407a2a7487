package handlers

import (
	"net/http"
	"time"

	"timeline-hub-backend/pkg/database"
	"timeline-hub-backend/pkg/utils"
)

// HealthHandler reports service liveness and storage reachability.
type HealthHandler struct {
	db database.DatabaseInterface
}

func NewHealthHandler(db database.DatabaseInterface) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	dbStatus := "ok"

	if err := h.db.HealthCheck(); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	utils.WriteJSONResponse(w, code, map[string]interface{}{
		"status":   status,
		"database": dbStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
