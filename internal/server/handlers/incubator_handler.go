package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/service/incubators"
)

// IncubatorHandler serves incubators, trays and environment readings.
type IncubatorHandler struct {
	svc    *incubators.Service
	logger *zap.Logger
}

// NewIncubatorHandler constructs the incubator endpoints.
func NewIncubatorHandler(svc *incubators.Service, logger *zap.Logger) *IncubatorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncubatorHandler{svc: svc, logger: logger}
}

// List returns every incubator.
func (h *IncubatorHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create registers an incubator.
func (h *IncubatorHandler) Create(c *gin.Context) {
	var req models.Incubator
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Get returns one incubator.
func (h *IncubatorHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	inc, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, inc)
}

// Update edits the descriptive fields of an incubator.
func (h *IncubatorHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req models.Incubator
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.ID = id
	updated, err := h.svc.UpdateDetails(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type environmentRequest struct {
	Temp     *float64 `json:"temp" binding:"required"`
	Humidity *float64 `json:"humidity" binding:"required"`
	BatchID  *int64   `json:"batch_id"`
}

// RecordEnvironment stores a reading and refreshes the incubator snapshot.
func (h *IncubatorHandler) RecordEnvironment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req environmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reading, err := h.svc.UpdateEnvironment(c.Request.Context(), id, *req.Temp, *req.Humidity, req.BatchID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, reading)
}

// Readings lists recent readings, newest first.
func (h *IncubatorHandler) Readings(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			badRequest(c, err)
			return
		}
	}
	readings, err := h.svc.Readings(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}

type addTrayRequest struct {
	Capacity int `json:"capacity" binding:"required"`
}

// AddTray appends a tray to the incubator.
func (h *IncubatorHandler) AddTray(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req addTrayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tray, err := h.svc.AddTray(c.Request.Context(), id, req.Capacity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tray)
}

// Trays lists the incubator's trays by index.
func (h *IncubatorHandler) Trays(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	trays, err := h.svc.Trays(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, trays)
}

// DeleteTray removes a tray. With ?cascade=true its batches go first.
func (h *IncubatorHandler) DeleteTray(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	cascade, _ := strconv.ParseBool(c.DefaultQuery("cascade", "false"))
	if err := h.svc.DeleteTray(c.Request.Context(), id, cascade); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StreamTrays pushes the incubator's tray list whenever trays change.
func (h *IncubatorHandler) StreamTrays(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	streamQuery(c, h.logger, h.svc.TraysForIncubator(id), "trays", asIs[models.Tray])
}
