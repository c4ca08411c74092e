package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/service/catalog"
)

// CatalogHandler serves species and breeds.
type CatalogHandler struct {
	svc    *catalog.Service
	logger *zap.Logger
}

// NewCatalogHandler constructs the catalog endpoints.
func NewCatalogHandler(svc *catalog.Service, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{svc: svc, logger: logger}
}

// List returns every species with its breeds.
func (h *CatalogHandler) List(c *gin.Context) {
	entries, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type createSpeciesRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateSpecies adds a species.
func (h *CatalogHandler) CreateSpecies(c *gin.Context) {
	var req createSpeciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	species, err := h.svc.CreateSpecies(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, species)
}

// DeleteSpecies removes a species and its breeds.
func (h *CatalogHandler) DeleteSpecies(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.svc.DeleteSpecies(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateBreed adds a breed under the species in the path.
func (h *CatalogHandler) CreateBreed(c *gin.Context) {
	speciesID, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var breed models.Breed
	if err := c.ShouldBindJSON(&breed); err != nil {
		badRequest(c, err)
		return
	}
	breed.SpeciesID = speciesID
	created, err := h.svc.CreateBreed(c.Request.Context(), breed)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetBreed returns one breed.
func (h *CatalogHandler) GetBreed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	breed, err := h.svc.GetBreed(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, breed)
}

// UpdateBreed replaces a breed's parameters. Existing batches keep their frozen dates.
func (h *CatalogHandler) UpdateBreed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var breed models.Breed
	if err := c.ShouldBindJSON(&breed); err != nil {
		badRequest(c, err)
		return
	}
	breed.ID = id
	updated, err := h.svc.UpdateBreed(c.Request.Context(), breed)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteBreed removes an unused breed.
func (h *CatalogHandler) DeleteBreed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.svc.DeleteBreed(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StreamBreeds pushes the species' breed list whenever breeds change.
func (h *CatalogHandler) StreamBreeds(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	streamQuery(c, h.logger, h.svc.BreedsForSpecies(id), "breeds", asIs[models.Breed])
}
