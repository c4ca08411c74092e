// Package batches owns the batch lifecycle: admission-checked creation, counter updates,
// completion and status transitions.
package batches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/calculators"
	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/metrics"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/live"
	"github.com/mamadbah2/hatchery/internal/service/admission"
)

var (
	// ErrInvalidRequest flags missing or malformed input.
	ErrInvalidRequest = errors.New("invalid batch request")
	// ErrInvalidTransition flags a status assignment the transition table forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidCounts flags negative counters or more outcomes than eggs set.
	ErrInvalidCounts = errors.New("invalid batch counts")
)

// CreateRequest carries the inputs of a new batch.
type CreateRequest struct {
	TrayID    int64     `json:"tray_id"`
	SpeciesID int64     `json:"species_id"`
	BreedID   int64     `json:"breed_id"`
	EggsSet   int       `json:"eggs_set"`
	StartDate time.Time `json:"start_date"`
	Notes     string    `json:"notes,omitempty"`
}

func (r CreateRequest) validate() error {
	var missing []string
	if r.TrayID <= 0 {
		missing = append(missing, "tray_id")
	}
	if r.SpeciesID <= 0 {
		missing = append(missing, "species_id")
	}
	if r.BreedID <= 0 {
		missing = append(missing, "breed_id")
	}
	if r.EggsSet <= 0 {
		missing = append(missing, "eggs_set")
	}
	if r.StartDate.IsZero() {
		missing = append(missing, "start_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// CreateResult is the stored batch plus any advisory environment warnings.
type CreateResult struct {
	Batch    models.Batch                   `json:"batch"`
	Warnings []admission.EnvironmentWarning `json:"warnings,omitempty"`
}

// Preview is what Create would do, without persisting anything.
type Preview struct {
	IncubationDays int                            `json:"incubation_days"`
	Milestones     calculators.Milestones         `json:"milestones"`
	Capacity       admission.Decision             `json:"capacity"`
	Warnings       []admission.EnvironmentWarning `json:"warnings,omitempty"`
}

// View decorates a batch with efficiency figures computed on read.
type View struct {
	models.Batch
	HatchOfSet float64              `json:"hatch_of_set"`
	HatchRate  float64              `json:"hatch_rate"`
	Next       []models.BatchStatus `json:"next_statuses"`
}

// NewView computes the display figures for a batch.
func NewView(b models.Batch) View {
	return View{
		Batch:      b,
		HatchOfSet: calculators.HatchOfSet(b.HatchedCount, b.EggsSet),
		HatchRate:  calculators.HatchRate(b.HatchedCount, b.EggsSet, b.DiscardedCount),
		Next:       NextStatuses(b.Status),
	}
}

// Service implements the batch lifecycle on top of a store.
type Service struct {
	store   repository.Store
	guard   *admission.Guard
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a lifecycle service. m may be nil.
func NewService(store repository.Store, guard *admission.Guard, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = admission.NewGuard(store, logger)
	}
	return &Service{
		store:   store,
		guard:   guard,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

type admissionContext struct {
	breed     *models.Breed
	incubator *models.Incubator
	decision  admission.Decision
}

func (s *Service) admit(ctx context.Context, req CreateRequest) (*admissionContext, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSpecies(ctx, req.SpeciesID); err != nil {
		return nil, fmt.Errorf("load species: %w", err)
	}
	breed, err := s.store.GetBreed(ctx, req.BreedID)
	if err != nil {
		return nil, fmt.Errorf("load breed: %w", err)
	}
	if breed.SpeciesID != req.SpeciesID {
		return nil, fmt.Errorf("%w: breed %d does not belong to species %d", ErrInvalidRequest, breed.ID, req.SpeciesID)
	}
	tray, err := s.store.GetTray(ctx, req.TrayID)
	if err != nil {
		return nil, fmt.Errorf("load tray: %w", err)
	}
	incubator, err := s.store.GetIncubator(ctx, tray.IncubatorID)
	if err != nil {
		return nil, fmt.Errorf("load incubator: %w", err)
	}
	decision, err := s.guard.CheckCapacity(ctx, req.TrayID, req.EggsSet)
	if err != nil {
		return nil, err
	}
	return &admissionContext{breed: breed, incubator: incubator, decision: decision}, nil
}

// Preview runs the admission checks and date math without storing a batch.
func (s *Service) Preview(ctx context.Context, req CreateRequest) (*Preview, error) {
	ac, err := s.admit(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Preview{
		IncubationDays: ac.breed.DefaultIncubationDays,
		Milestones: calculators.ComputeMilestones(req.StartDate,
			ac.breed.DefaultIncubationDays, ac.breed.DefaultLockdownDays, ac.breed.DefaultDiscardGraceDays),
		Capacity: ac.decision,
		Warnings: admission.CheckEnvironment(*ac.incubator, *ac.breed),
	}, nil
}

// Create admits and stores a new batch. The breed's day counts are copied into the batch
// so later breed edits never move its dates.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	ac, err := s.admit(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ac.decision.Accepted {
		s.metrics.AdmissionRejected()
		return nil, ac.decision.Err()
	}

	milestones := calculators.ComputeMilestones(req.StartDate,
		ac.breed.DefaultIncubationDays, ac.breed.DefaultLockdownDays, ac.breed.DefaultDiscardGraceDays)

	batch := models.Batch{
		TrayID:            req.TrayID,
		SpeciesID:         req.SpeciesID,
		BreedID:           req.BreedID,
		EggsSet:           req.EggsSet,
		StartDate:         calculators.DateOnly(req.StartDate),
		IncubationDays:    ac.breed.DefaultIncubationDays,
		ExpectedHatchDate: milestones.ExpectedHatch,
		LockdownDate:      milestones.Lockdown,
		DiscardDate:       milestones.Discard,
		Status:            models.StatusIncubating,
		Notes:             strings.TrimSpace(req.Notes),
	}

	id, err := s.store.CreateBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	batch.ID = id
	s.metrics.BatchCreated()

	warnings := admission.CheckEnvironment(*ac.incubator, *ac.breed)
	s.logger.Info("batch created",
		zap.Int64("batch_id", id),
		zap.Int64("tray_id", batch.TrayID),
		zap.Int("eggs_set", batch.EggsSet),
		zap.Time("expected_hatch_date", batch.ExpectedHatchDate),
		zap.Int("environment_warnings", len(warnings)))

	return &CreateResult{Batch: batch, Warnings: warnings}, nil
}

// Get loads one batch.
func (s *Service) Get(ctx context.Context, id int64) (*models.Batch, error) {
	batch, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	return batch, nil
}

// List returns batches matching filter.
func (s *Service) List(ctx context.Context, filter repository.BatchFilter) ([]models.Batch, error) {
	batches, err := s.store.ListBatches(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

func validateCounts(batch models.Batch, hatched, discarded int) error {
	if hatched < 0 || discarded < 0 {
		return fmt.Errorf("%w: counts must not be negative (hatched %d, discarded %d)", ErrInvalidCounts, hatched, discarded)
	}
	if hatched+discarded > batch.EggsSet {
		return fmt.Errorf("%w: hatched %d + discarded %d exceeds %d eggs set",
			ErrInvalidCounts, hatched, discarded, batch.EggsSet)
	}
	return nil
}

// UpdateCounts overwrites the progress counters without touching status.
func (s *Service) UpdateCounts(ctx context.Context, id int64, hatched, discarded int) (*models.Batch, error) {
	batch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateCounts(*batch, hatched, discarded); err != nil {
		return nil, err
	}
	batch.HatchedCount = hatched
	batch.DiscardedCount = discarded
	if err := s.store.UpdateBatch(ctx, *batch); err != nil {
		return nil, fmt.Errorf("update batch counts: %w", err)
	}
	return batch, nil
}

// Complete records the final counters and forces the batch to COMPLETED from any status.
func (s *Service) Complete(ctx context.Context, id int64, hatched, discarded int) (*View, error) {
	batch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateCounts(*batch, hatched, discarded); err != nil {
		return nil, err
	}
	previous := batch.Status
	batch.HatchedCount = hatched
	batch.DiscardedCount = discarded
	batch.Status = models.StatusCompleted
	if err := s.store.UpdateBatch(ctx, *batch); err != nil {
		return nil, fmt.Errorf("complete batch: %w", err)
	}
	s.metrics.StatusChanged(string(models.StatusCompleted))

	view := NewView(*batch)
	s.logger.Info("batch completed",
		zap.Int64("batch_id", id),
		zap.String("previous_status", string(previous)),
		zap.Int("hatched", hatched),
		zap.Int("discarded", discarded),
		zap.Float64("hatch_of_set", view.HatchOfSet))
	return &view, nil
}

// TransitionStatus assigns a new status when the transition table allows it.
func (s *Service) TransitionStatus(ctx context.Context, id int64, to models.BatchStatus) (*models.Batch, error) {
	if _, err := models.ParseBatchStatus(string(to)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	batch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(batch.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, batch.Status, to)
	}
	if batch.Status == to {
		return batch, nil
	}

	from := batch.Status
	batch.Status = to
	if err := s.store.UpdateBatch(ctx, *batch); err != nil {
		return nil, fmt.Errorf("update batch status: %w", err)
	}
	s.metrics.StatusChanged(string(to))
	s.logger.Info("batch status changed",
		zap.Int64("batch_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return batch, nil
}

// Discard moves an active batch to DISCARDED.
func (s *Service) Discard(ctx context.Context, id int64) (*models.Batch, error) {
	return s.TransitionStatus(ctx, id, models.StatusDiscarded)
}

// AddEvent appends a diary entry. It never changes status or counters.
func (s *Service) AddEvent(ctx context.Context, batchID int64, eventType models.EventType, value, notes string) (*models.Event, error) {
	if _, err := models.ParseEventType(string(eventType)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	event := models.Event{
		BatchID:   batchID,
		Timestamp: s.now().UTC(),
		Type:      eventType,
		Value:     strings.TrimSpace(value),
		Notes:     strings.TrimSpace(notes),
	}
	id, err := s.store.CreateEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	event.ID = id
	return &event, nil
}

// Events lists a batch's diary, newest first.
func (s *Service) Events(ctx context.Context, batchID int64) ([]models.Event, error) {
	if _, err := s.Get(ctx, batchID); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ActiveBatches is a live query of non-terminal batches ordered by expected hatch date.
func (s *Service) ActiveBatches() *live.Query[models.Batch] {
	return live.NewQuery(s.store.Changes(), func(ctx context.Context) ([]models.Batch, error) {
		return s.store.ListBatches(ctx, repository.BatchFilter{ActiveOnly: true})
	}, live.TopicBatches)
}
