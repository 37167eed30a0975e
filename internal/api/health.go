// Package api provides the HTTP handlers of the similarity service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db        HealthChecker
	records   RecordRepository
	log       logrus.FieldLogger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. db and records may be nil when
// the service runs without a database.
func NewHealthHandler(db HealthChecker, records RecordRepository, log logrus.FieldLogger, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		records:   records,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// healthResponse is the JSON payload returned by the health endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Records       *int    `json:"records,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health. The database is checked best effort
// and never fails liveness.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "not_configured",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp.Database = "connected"

		if err := h.db.HealthCheck(ctx); err != nil {
			h.log.WithError(err).Warn("health: database check failed")
			resp.Database = "disconnected"
		} else if h.records != nil {
			if n, err := h.records.CountRecords(ctx); err == nil {
				resp.Records = &n
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}
