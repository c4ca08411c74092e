package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/service/admission"
	"github.com/mamadbah2/hatchery/internal/service/batches"
	"github.com/mamadbah2/hatchery/internal/service/catalog"
	"github.com/mamadbah2/hatchery/internal/service/export"
	"github.com/mamadbah2/hatchery/internal/service/incubators"
)

var errBadID = errors.New("id must be a positive integer")

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var capErr *admission.CapacityError
	switch {
	case errors.As(err, &capErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrReferenced),
		errors.Is(err, batches.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, batches.ErrInvalidCounts):
		return http.StatusUnprocessableEntity
	case errors.Is(err, batches.ErrInvalidRequest),
		errors.Is(err, catalog.ErrInvalidBreed),
		errors.Is(err, catalog.ErrInvalidSpecies),
		errors.Is(err, incubators.ErrInvalidInput),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, errBadID):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	body := gin.H{"error": err.Error()}
	var capErr *admission.CapacityError
	if errors.As(err, &capErr) {
		body["active_eggs"] = capErr.ActiveEggs
		body["proposed"] = capErr.Proposed
		body["capacity"] = capErr.Capacity
	}
	c.JSON(status, body)
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
