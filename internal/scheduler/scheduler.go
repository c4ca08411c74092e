package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/config"
	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/service/monitor"
)

const (
	sweepTimeout  = time.Minute
	reportTimeout = 2 * time.Minute
)

// weeklyReportID keeps report notifications apart from the per-batch reminder ids.
const weeklyReportID = 1

// Sweeper runs one monitor pass.
type Sweeper interface {
	Sweep(ctx context.Context) (*monitor.Result, error)
}

// ReportGenerator renders the weekly hatch report.
type ReportGenerator interface {
	GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	reports  ReportGenerator
	notifier monitor.Notifier
	cfg      config.ScheduleConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance. Cron expressions are evaluated in the
// configured timezone.
func NewScheduler(cfg config.ScheduleConfig, sweeper Sweeper, reports ReportGenerator, notifier monitor.Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load schedule timezone: %w", err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		sweeper:  sweeper,
		reports:  reports,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("monitor_cron", s.cfg.MonitorCron),
		zap.String("report_cron", s.cfg.ReportCron))

	if _, err := s.cron.AddFunc(s.cfg.MonitorCron, s.RunSweep); err != nil {
		return fmt.Errorf("schedule monitor sweep: %w", err)
	}
	if s.reports != nil {
		if _, err := s.cron.AddFunc(s.cfg.ReportCron, s.SendWeeklyReport); err != nil {
			return fmt.Errorf("schedule weekly report: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// AddFunc registers an extra housekeeping job.
func (s *Scheduler) AddFunc(spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule job %q: %w", spec, err)
	}
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Entries exposes the registered jobs.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// RunSweep performs one monitor pass. Failures are logged, never propagated.
func (s *Scheduler) RunSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("monitor sweep failed", zap.Error(err))
		return
	}
	s.logger.Debug("monitor sweep completed",
		zap.Int("reminders", len(result.Reminders)),
		zap.Int("failed", result.Failed))
}

// SendWeeklyReport renders the weekly report and pushes it through the notifier.
func (s *Scheduler) SendWeeklyReport() {
	s.logger.Info("generating weekly report")
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	report, err := s.reports.GenerateWeeklyReport(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to generate weekly report", zap.Error(err))
		return
	}

	note := models.Notification{
		ID:      weeklyReportID,
		Title:   "Weekly Hatch Report",
		Body:    report,
		Channel: models.ChannelAlerts,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error("failed to send weekly report", zap.Error(err))
		return
	}
	s.logger.Info("weekly report sent successfully")
}
