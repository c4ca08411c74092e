package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/server/handlers"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// Handlers bundles the endpoint groups. Webhook is optional.
type Handlers struct {
	Catalog    *handlers.CatalogHandler
	Incubators *handlers.IncubatorHandler
	Batches    *handlers.BatchHandler
	Monitor    *handlers.MonitorHandler
	Export     *handlers.ExportHandler
	Webhook    *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares. A nil gatherer
// serves the default Prometheus registry.
func New(h Handlers, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")

	catalog := api.Group("/catalog")
	catalog.GET("", h.Catalog.List)
	catalog.POST("/species", h.Catalog.CreateSpecies)
	catalog.DELETE("/species/:id", h.Catalog.DeleteSpecies)
	catalog.POST("/species/:id/breeds", h.Catalog.CreateBreed)
	catalog.GET("/species/:id/breeds/stream", h.Catalog.StreamBreeds)
	catalog.GET("/breeds/:id", h.Catalog.GetBreed)
	catalog.PUT("/breeds/:id", h.Catalog.UpdateBreed)
	catalog.DELETE("/breeds/:id", h.Catalog.DeleteBreed)

	incubators := api.Group("/incubators")
	incubators.GET("", h.Incubators.List)
	incubators.POST("", h.Incubators.Create)
	incubators.GET("/:id", h.Incubators.Get)
	incubators.PUT("/:id", h.Incubators.Update)
	incubators.POST("/:id/environment", h.Incubators.RecordEnvironment)
	incubators.GET("/:id/readings", h.Incubators.Readings)
	incubators.GET("/:id/trays", h.Incubators.Trays)
	incubators.POST("/:id/trays", h.Incubators.AddTray)
	incubators.GET("/:id/trays/stream", h.Incubators.StreamTrays)
	api.DELETE("/trays/:id", h.Incubators.DeleteTray)

	batches := api.Group("/batches")
	batches.GET("", h.Batches.List)
	batches.POST("", h.Batches.Create)
	batches.POST("/preview", h.Batches.Preview)
	batches.GET("/stream", h.Batches.Stream)
	batches.GET("/:id", h.Batches.Get)
	batches.PUT("/:id/counts", h.Batches.UpdateCounts)
	batches.POST("/:id/complete", h.Batches.Complete)
	batches.PUT("/:id/status", h.Batches.SetStatus)
	batches.POST("/:id/discard", h.Batches.Discard)
	batches.GET("/:id/events", h.Batches.Events)
	batches.POST("/:id/events", h.Batches.AddEvent)
	api.GET("/dashboard", h.Batches.Dashboard)

	api.GET("/reminders", h.Monitor.Reminders)
	api.POST("/monitor/sweep", h.Monitor.Sweep)
	api.GET("/reports/hatch", h.Monitor.Statistics)

	exports := api.Group("/exports")
	exports.GET("/batches", h.Export.Download)
	exports.POST("/sheets", h.Export.Sheets)
	exports.POST("/archive", h.Export.Archive)

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/send-message", h.Webhook.SendMessage)
		api.POST("/notifications/test", h.Webhook.TestNotification)
	}

	logger.Info("router initialized", zap.Bool("webhook", h.Webhook != nil))
	return r
}

// requestIDMiddleware reuses an inbound X-Request-ID or assigns a fresh one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDKey)))
	}
}
