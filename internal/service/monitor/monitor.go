// Package monitor scans active batches for lockdown and hatch days and hands the
// resulting reminders to a notification sink.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/calculators"
	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/metrics"
	"github.com/mamadbah2/hatchery/internal/repository"
)

// Notifier delivers a notification. Delivery and deduplication are its concern.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// BatchLister is the one-shot read the sweep needs.
type BatchLister interface {
	ListBatches(ctx context.Context, filter repository.BatchFilter) ([]models.Batch, error)
}

// Detect returns the reminders due today. Only exact calendar-day matches fire; a batch
// whose lockdown and hatch fall on the same day yields both.
func Detect(batches []models.Batch, today time.Time) []models.Reminder {
	day := calculators.DateOnly(today)
	var reminders []models.Reminder
	for _, b := range batches {
		if !b.IsActive() {
			continue
		}
		if calculators.SameDay(b.LockdownDate, day) {
			reminders = append(reminders, models.Reminder{BatchID: b.ID, Kind: models.ReminderLockdown, Date: day})
		}
		if calculators.SameDay(b.ExpectedHatchDate, day) {
			reminders = append(reminders, models.Reminder{BatchID: b.ID, Kind: models.ReminderHatch, Date: day})
		}
	}
	return reminders
}

// NotificationFor renders a reminder. Ids are stable per batch and kind so a sink can
// replace rather than stack repeated reminders.
func NotificationFor(r models.Reminder) models.Notification {
	switch r.Kind {
	case models.ReminderLockdown:
		return models.Notification{
			ID:      int(r.BatchID*10 + 1),
			Title:   "Lockdown Reminder",
			Body:    fmt.Sprintf("Batch #%d enters lockdown today.", r.BatchID),
			Channel: models.ChannelReminders,
		}
	default:
		return models.Notification{
			ID:      int(r.BatchID*10 + 2),
			Title:   "Hatch Day!",
			Body:    fmt.Sprintf("Batch #%d is expected to hatch today.", r.BatchID),
			Channel: models.ChannelReminders,
		}
	}
}

// Result summarizes one sweep.
type Result struct {
	Scanned   int               `json:"scanned"`
	Reminders []models.Reminder `json:"reminders"`
	Delivered int               `json:"delivered"`
	Failed    int               `json:"failed"`
}

// Service runs sweeps against a store.
type Service struct {
	store    BatchLister
	notifier Notifier
	metrics  *metrics.Metrics
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService constructs a monitor. "Today" is taken in loc, which defaults to UTC.
func NewService(store BatchLister, notifier Notifier, loc *time.Location, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &Service{
		store:    store,
		notifier: notifier,
		metrics:  m,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep reads the active batches once, notifies every due reminder and returns. A
// failed read is returned; failed deliveries are logged and counted.
func (s *Service) Sweep(ctx context.Context) (*Result, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveSweep(time.Since(started)) }()

	active, err := s.store.ListBatches(ctx, repository.BatchFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load active batches: %w", err)
	}

	today := s.now().In(s.location)
	result := &Result{Scanned: len(active), Reminders: Detect(active, today)}
	if result.Reminders == nil {
		result.Reminders = []models.Reminder{}
	}

	for _, r := range result.Reminders {
		s.metrics.ReminderRaised(string(r.Kind))
		if err := s.notifier.Notify(ctx, NotificationFor(r)); err != nil {
			result.Failed++
			s.metrics.NotifyFailed()
			s.logger.Warn("reminder delivery failed",
				zap.Int64("batch_id", r.BatchID),
				zap.String("kind", string(r.Kind)),
				zap.Error(err))
			continue
		}
		result.Delivered++
	}

	s.logger.Info("monitor sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("reminders", len(result.Reminders)),
		zap.Int("failed", result.Failed))
	return result, nil
}

// LogNotifier writes notifications to the log. It is the sink when no chat channel is set up.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, note models.Notification) error {
	n.logger.Info("notification",
		zap.Int("id", note.ID),
		zap.String("channel", note.Channel),
		zap.String("title", note.Title),
		zap.String("body", note.Body))
	return nil
}

// Fanout delivers to every sink and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, note models.Notification) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
