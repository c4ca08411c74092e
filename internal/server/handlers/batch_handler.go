package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/calculators"
	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/service/batches"
)

const dateLayout = "2006-01-02"

// BatchHandler serves the batch lifecycle.
type BatchHandler struct {
	svc    *batches.Service
	logger *zap.Logger
}

// NewBatchHandler constructs the batch endpoints.
func NewBatchHandler(svc *batches.Service, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{svc: svc, logger: logger}
}

type createBatchRequest struct {
	TrayID    int64  `json:"tray_id"`
	SpeciesID int64  `json:"species_id"`
	BreedID   int64  `json:"breed_id"`
	EggsSet   int    `json:"eggs_set"`
	StartDate string `json:"start_date"`
	Notes     string `json:"notes"`
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", value)
	}
	return calculators.DateOnly(t), nil
}

func (r createBatchRequest) toServiceRequest() (batches.CreateRequest, error) {
	req := batches.CreateRequest{
		TrayID:    r.TrayID,
		SpeciesID: r.SpeciesID,
		BreedID:   r.BreedID,
		EggsSet:   r.EggsSet,
		Notes:     r.Notes,
	}
	if r.StartDate == "" {
		return req, nil
	}
	start, err := parseDate(r.StartDate)
	if err != nil {
		return req, err
	}
	req.StartDate = start
	return req, nil
}

func (h *BatchHandler) bindCreate(c *gin.Context) (batches.CreateRequest, bool) {
	var body createBatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return batches.CreateRequest{}, false
	}
	req, err := body.toServiceRequest()
	if err != nil {
		badRequest(c, err)
		return batches.CreateRequest{}, false
	}
	return req, true
}

// Create admits and stores a new batch.
func (h *BatchHandler) Create(c *gin.Context) {
	req, ok := h.bindCreate(c)
	if !ok {
		return
	}
	result, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Preview reports what Create would do without storing anything.
func (h *BatchHandler) Preview(c *gin.Context) {
	req, ok := h.bindCreate(c)
	if !ok {
		return
	}
	preview, err := h.svc.Preview(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// List returns batches, optionally narrowed by ?tray_id= and ?active=true.
func (h *BatchHandler) List(c *gin.Context) {
	var filter repository.BatchFilter
	if raw := c.Query("tray_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, errBadID)
			return
		}
		filter.TrayID = id
	}
	filter.ActiveOnly, _ = strconv.ParseBool(c.Query("active"))

	list, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	views := make([]batches.View, 0, len(list))
	for _, b := range list {
		views = append(views, batches.NewView(b))
	}
	c.JSON(http.StatusOK, views)
}

// Get returns one batch with its efficiency figures.
func (h *BatchHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	batch, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, batches.NewView(*batch))
}

type countsRequest struct {
	Hatched   int `json:"hatched"`
	Discarded int `json:"discarded"`
}

// UpdateCounts overwrites the progress counters.
func (h *BatchHandler) UpdateCounts(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req countsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	batch, err := h.svc.UpdateCounts(c.Request.Context(), id, req.Hatched, req.Discarded)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, batches.NewView(*batch))
}

// Complete records the final counters and closes the batch.
func (h *BatchHandler) Complete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req countsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.svc.Complete(c.Request.Context(), id, req.Hatched, req.Discarded)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus applies a transition-table checked status change.
func (h *BatchHandler) SetStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	to, err := models.ParseBatchStatus(req.Status)
	if err != nil {
		badRequest(c, err)
		return
	}
	batch, err := h.svc.TransitionStatus(c.Request.Context(), id, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, batches.NewView(*batch))
}

// Discard gives up on an active batch.
func (h *BatchHandler) Discard(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	batch, err := h.svc.Discard(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, batches.NewView(*batch))
}

type eventRequest struct {
	Type  string `json:"type" binding:"required"`
	Value string `json:"value"`
	Notes string `json:"notes"`
}

// AddEvent appends a diary entry to the batch.
func (h *BatchHandler) AddEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := h.svc.Get(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	event, err := h.svc.AddEvent(c.Request.Context(), id, models.EventType(req.Type), req.Value, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// Events lists the batch diary, newest first.
func (h *BatchHandler) Events(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	events, err := h.svc.Events(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Dashboard returns incubators and active batches with resolved catalog names.
func (h *BatchHandler) Dashboard(c *gin.Context) {
	dash, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// Stream pushes the active batch list as server-sent events, once on connect and again
// after every batch write, until the client goes away.
func (h *BatchHandler) Stream(c *gin.Context) {
	streamQuery(c, h.logger, h.svc.ActiveBatches(), "batches", func(items []models.Batch) any {
		views := make([]batches.View, 0, len(items))
		for _, b := range items {
			views = append(views, batches.NewView(b))
		}
		return views
	})
}
