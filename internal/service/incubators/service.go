// Package incubators manages incubators, their trays and environment readings.
package incubators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/live"
)

// ErrInvalidInput flags missing names, non-positive capacities and similar.
var ErrInvalidInput = errors.New("invalid incubator input")

// Service wraps the incubator store.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs an incubator service.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Create registers an incubator. An unset environment starts at the default snapshot.
func (s *Service) Create(ctx context.Context, incubator models.Incubator) (*models.Incubator, error) {
	incubator.Name = strings.TrimSpace(incubator.Name)
	if incubator.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if incubator.TrayCount < 0 {
		return nil, fmt.Errorf("%w: tray count must not be negative", ErrInvalidInput)
	}
	if incubator.CurrentTemp == 0 && incubator.CurrentHumidity == 0 {
		incubator.CurrentTemp = models.DefaultIncubatorTemp
		incubator.CurrentHumidity = models.DefaultIncubatorHumidity
	}
	id, err := s.store.CreateIncubator(ctx, incubator)
	if err != nil {
		return nil, fmt.Errorf("create incubator: %w", err)
	}
	incubator.ID = id
	s.logger.Info("incubator created", zap.Int64("incubator_id", id), zap.String("name", incubator.Name))
	return &incubator, nil
}

// Get loads one incubator.
func (s *Service) Get(ctx context.Context, id int64) (*models.Incubator, error) {
	inc, err := s.store.GetIncubator(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load incubator: %w", err)
	}
	return inc, nil
}

// List returns every incubator.
func (s *Service) List(ctx context.Context) ([]models.Incubator, error) {
	out, err := s.store.ListIncubators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incubators: %w", err)
	}
	return out, nil
}

// UpdateDetails changes the descriptive fields and keeps the environment snapshot.
func (s *Service) UpdateDetails(ctx context.Context, incubator models.Incubator) (*models.Incubator, error) {
	current, err := s.Get(ctx, incubator.ID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(incubator.Name); name != "" {
		current.Name = name
	}
	current.Location = incubator.Location
	current.Model = incubator.Model
	if incubator.TrayCount > 0 {
		current.TrayCount = incubator.TrayCount
	}
	if err := s.store.UpdateIncubator(ctx, *current); err != nil {
		return nil, fmt.Errorf("update incubator: %w", err)
	}
	return current, nil
}

// UpdateEnvironment replaces the current snapshot and appends the sample to the reading
// history. batchID optionally ties the reading to a batch.
func (s *Service) UpdateEnvironment(ctx context.Context, id int64, temp, humidity float64, batchID *int64) (*models.Reading, error) {
	if humidity < 0 || humidity > 100 {
		return nil, fmt.Errorf("%w: humidity %.1f out of 0-100", ErrInvalidInput, humidity)
	}
	inc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if batchID != nil {
		if _, err := s.store.GetBatch(ctx, *batchID); err != nil {
			return nil, fmt.Errorf("load batch: %w", err)
		}
	}

	inc.CurrentTemp = temp
	inc.CurrentHumidity = humidity
	if err := s.store.UpdateIncubator(ctx, *inc); err != nil {
		return nil, fmt.Errorf("update environment: %w", err)
	}

	reading := models.Reading{
		IncubatorID: id,
		BatchID:     batchID,
		Timestamp:   s.now().UTC(),
		Temp:        temp,
		Humidity:    humidity,
	}
	readingID, err := s.store.CreateReading(ctx, reading)
	if err != nil {
		return nil, fmt.Errorf("record reading: %w", err)
	}
	reading.ID = readingID
	return &reading, nil
}

// Readings returns the most recent samples, newest first.
func (s *Service) Readings(ctx context.Context, id int64, limit int) ([]models.Reading, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.store.ListReadings(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	return out, nil
}

// AddTray appends a tray after the incubator's existing ones.
func (s *Service) AddTray(ctx context.Context, incubatorID int64, capacity int) (*models.Tray, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidInput)
	}
	existing, err := s.store.ListTrays(ctx, incubatorID)
	if err != nil {
		return nil, fmt.Errorf("list trays: %w", err)
	}
	tray := models.Tray{IncubatorID: incubatorID, Index: len(existing) + 1, Capacity: capacity}
	id, err := s.store.CreateTray(ctx, tray)
	if err != nil {
		return nil, fmt.Errorf("create tray: %w", err)
	}
	tray.ID = id
	return &tray, nil
}

// Trays lists an incubator's trays by index.
func (s *Service) Trays(ctx context.Context, incubatorID int64) ([]models.Tray, error) {
	out, err := s.store.ListTrays(ctx, incubatorID)
	if err != nil {
		return nil, fmt.Errorf("list trays: %w", err)
	}
	return out, nil
}

// DeleteTray removes a tray. Without cascade a tray that still holds batches is rejected
// with repository.ErrReferenced; with cascade its batches and their events go first.
func (s *Service) DeleteTray(ctx context.Context, trayID int64, cascade bool) error {
	if cascade {
		if err := s.store.DeleteBatchesInTray(ctx, trayID); err != nil {
			return fmt.Errorf("delete tray batches: %w", err)
		}
	}
	if err := s.store.DeleteTray(ctx, trayID); err != nil {
		return fmt.Errorf("delete tray: %w", err)
	}
	s.logger.Info("tray deleted", zap.Int64("tray_id", trayID), zap.Bool("cascade", cascade))
	return nil
}

// TraysForIncubator is a live query of an incubator's trays ordered by index.
func (s *Service) TraysForIncubator(incubatorID int64) *live.Query[models.Tray] {
	return live.NewQuery(s.store.Changes(), func(ctx context.Context) ([]models.Tray, error) {
		return s.store.ListTrays(ctx, incubatorID)
	}, live.TopicTrays)
}
