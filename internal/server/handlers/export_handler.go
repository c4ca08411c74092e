package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/service/export"
)

// ExportHandler serves batch exports.
type ExportHandler struct {
	svc    *export.Service
	logger *zap.Logger
}

// NewExportHandler constructs the export endpoints.
func NewExportHandler(svc *export.Service, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{svc: svc, logger: logger}
}

func exportParams(c *gin.Context) (export.Format, bool, error) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		return "", false, err
	}
	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	return format, activeOnly, nil
}

// Download renders ?format=csv|xlsx as an attachment.
func (h *ExportHandler) Download(c *gin.Context) {
	format, activeOnly, err := exportParams(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	file, err := h.svc.Render(c.Request.Context(), format, activeOnly)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Sheets writes the batch list to Google Sheets; ?mode=append keeps existing rows.
func (h *ExportHandler) Sheets(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	mode := export.SheetMode(c.DefaultQuery("mode", string(export.SheetReplace)))
	rows, err := h.svc.ToSheets(c.Request.Context(), mode, activeOnly)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// Archive uploads a rendered export to the S3 bucket.
func (h *ExportHandler) Archive(c *gin.Context) {
	format, activeOnly, err := exportParams(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	key, err := h.svc.Archive(c.Request.Context(), format, activeOnly)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}
