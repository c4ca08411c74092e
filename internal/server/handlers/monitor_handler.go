package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/service/monitor"
	"github.com/mamadbah2/hatchery/internal/service/reporting"
)

// MonitorHandler exposes reminders, manual sweeps and the hatch statistics.
type MonitorHandler struct {
	monitor   *monitor.Service
	store     monitor.BatchLister
	reporting *reporting.Service
	logger    *zap.Logger
}

// NewMonitorHandler constructs the monitoring endpoints.
func NewMonitorHandler(monitorSvc *monitor.Service, store monitor.BatchLister, reportingSvc *reporting.Service, logger *zap.Logger) *MonitorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorHandler{monitor: monitorSvc, store: store, reporting: reportingSvc, logger: logger}
}

// Sweep runs a monitor pass immediately and reports what it raised.
func (h *MonitorHandler) Sweep(c *gin.Context) {
	result, err := h.monitor.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reminders lists the milestones due on ?date= (today by default) without notifying.
func (h *MonitorHandler) Reminders(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		day = parsed
	}
	active, err := h.store.ListBatches(c.Request.Context(), repository.BatchFilter{ActiveOnly: true})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	reminders := monitor.Detect(active, day)
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	c.JSON(http.StatusOK, reminders)
}

// Statistics summarizes completed batches hatching between ?from= and ?to=, defaulting
// to the last 7 days.
func (h *MonitorHandler) Statistics(c *gin.Context) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -6)
	for key, target := range map[string]*time.Time{"from": &start, "to": &end} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		parsed, err := parseDate(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		*target = parsed
	}
	stats, err := h.reporting.Statistics(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
