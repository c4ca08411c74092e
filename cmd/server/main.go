package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/config"
	"github.com/mamadbah2/hatchery/internal/metrics"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/memory"
	"github.com/mamadbah2/hatchery/internal/repository/mongodb"
	s3archive "github.com/mamadbah2/hatchery/internal/repository/s3"
	"github.com/mamadbah2/hatchery/internal/repository/sheets"
	"github.com/mamadbah2/hatchery/internal/repository/sqlite"
	"github.com/mamadbah2/hatchery/internal/scheduler"
	"github.com/mamadbah2/hatchery/internal/server/handlers"
	"github.com/mamadbah2/hatchery/internal/server/router"
	"github.com/mamadbah2/hatchery/internal/service/admission"
	batchsvc "github.com/mamadbah2/hatchery/internal/service/batches"
	catalogsvc "github.com/mamadbah2/hatchery/internal/service/catalog"
	commandsvc "github.com/mamadbah2/hatchery/internal/service/commands"
	exportsvc "github.com/mamadbah2/hatchery/internal/service/export"
	incubatorsvc "github.com/mamadbah2/hatchery/internal/service/incubators"
	monitorsvc "github.com/mamadbah2/hatchery/internal/service/monitor"
	reportingsvc "github.com/mamadbah2/hatchery/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/hatchery/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/hatchery/pkg/clients/whatsapp"
	"github.com/mamadbah2/hatchery/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to open store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	catalogSvc := catalogsvc.NewService(store, logger.Named(baseLogger, "svc.catalog"))
	if cfg.Catalog.SeedOnStart {
		seeded, err := catalogSvc.Seed(ctx, catalogsvc.DefaultSeed)
		if err != nil {
			baseLogger.Fatal("failed to seed catalog", zap.Error(err))
		}
		if seeded {
			baseLogger.Info("catalog seeded with default species")
		}
	}

	incubatorSvc := incubatorsvc.NewService(store, logger.Named(baseLogger, "svc.incubators"))
	guard := admission.NewGuard(store, logger.Named(baseLogger, "svc.admission"))
	batchSvc := batchsvc.NewService(store, guard, appMetrics, logger.Named(baseLogger, "svc.batches"))
	reportingSvc := reportingsvc.NewService(store, logger.Named(baseLogger, "svc.reporting"))

	notifiers := monitorsvc.Fanout{monitorsvc.NewLogNotifier(logger.Named(baseLogger, "notify.log"))}
	var (
		webhookHandler *handlers.WebhookHandler
		sessions       *whatsappsvc.SessionManager
	)
	if cfg.WhatsApp.Enabled() {
		sessions = whatsappsvc.NewSessionManager(whatsappsvc.DefaultSessionTTL)
		dispatcher := commandsvc.NewService(batchSvc, reportingSvc, sessions, logger.Named(baseLogger, "svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, dispatcher, logger.Named(baseLogger, "svc.whatsapp"))
		if cfg.WhatsApp.NotifyTo != "" {
			notifiers = append(notifiers, messagingSvc)
		}
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, notifiers, logger.Named(baseLogger, "handlers.whatsapp"))
		baseLogger.Info("whatsapp integration enabled")
	} else {
		baseLogger.Warn("whatsapp token missing, chat commands and push notifications disabled")
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}
	monitorSvc := monitorsvc.NewService(store, notifiers, loc, appMetrics, logger.Named(baseLogger, "svc.monitor"))

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	}
	var archive exportsvc.Archiver
	if cfg.Export.ArchiveEnabled() {
		a, err := s3archive.New(ctx, cfg.Export, logger.Named(baseLogger, "repo.s3"))
		if err != nil {
			baseLogger.Fatal("failed to init export archive", zap.Error(err))
		}
		archive = a
		baseLogger.Info("export archive enabled", zap.String("bucket", a.Bucket()))
	}
	exportSvc := exportsvc.NewService(store, sheetsRepo, cfg.Sheets.BatchRange, archive, appMetrics, logger.Named(baseLogger, "svc.export"))

	routes := router.Handlers{
		Catalog:    handlers.NewCatalogHandler(catalogSvc, logger.Named(baseLogger, "handlers.catalog")),
		Incubators: handlers.NewIncubatorHandler(incubatorSvc, logger.Named(baseLogger, "handlers.incubators")),
		Batches:    handlers.NewBatchHandler(batchSvc, logger.Named(baseLogger, "handlers.batches")),
		Monitor:    handlers.NewMonitorHandler(monitorSvc, store, reportingSvc, logger.Named(baseLogger, "handlers.monitor")),
		Export:     handlers.NewExportHandler(exportSvc, logger.Named(baseLogger, "handlers.export")),
		Webhook:    webhookHandler,
	}
	engine := router.New(routes, registry, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(cfg.Schedule, monitorSvc, reportingSvc, notifiers, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if sessions != nil {
		if err := sched.AddFunc("@every 10m", func() { sessions.Prune() }); err != nil {
			baseLogger.Fatal("failed to schedule session pruning", zap.Error(err))
		}
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the SSE stream stays open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	case config.DriverSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store opened", zap.String("path", store.Path()))
		return store, nil
	case config.DriverMongoDB:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
