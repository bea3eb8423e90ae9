package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/webbase/adminapi/internal/api/middleware"
	"github.com/webbase/adminapi/internal/api/response"
)

// DBPinger checks database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      DBPinger
	driver  string
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db DBPinger, driver, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		driver:  driver,
		version: version,
	}
}

type databaseStatus struct {
	Driver    string `json:"driver"`
	Connected bool   `json:"connected"`
}

type healthData struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Database databaseStatus `json:"database"`
}

// ServeHTTP reports "healthy" with 200 when the database answers a ping and
// "degraded" with 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code, connected := "healthy", http.StatusOK, true
	if h.db == nil {
		status, code, connected = "degraded", http.StatusServiceUnavailable, false
	} else if err := h.db.Ping(ctx); err != nil {
		slog.Warn("database ping failed", "error", err)
		status, code, connected = "degraded", http.StatusServiceUnavailable, false
	}

	response.Success(w, code, healthData{
		Status:  status,
		Version: h.version,
		Database: databaseStatus{
			Driver:    h.driver,
			Connected: connected,
		},
	}, requestID)
}
