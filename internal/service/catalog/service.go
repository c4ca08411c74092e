// Package catalog manages the species and breed reference data.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/live"
)

// ErrInvalidBreed flags a breed with missing or inconsistent parameters.
var ErrInvalidBreed = errors.New("invalid breed")

// ErrInvalidSpecies flags a species without a name.
var ErrInvalidSpecies = errors.New("invalid species")

// Service wraps the catalog store.
type Service struct {
	store  repository.Store
	logger *zap.Logger
}

// NewService constructs a catalog service.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Seed loads entries when the catalog has no species yet. It reports whether it wrote.
func (s *Service) Seed(ctx context.Context, entries []SeedSpecies) (bool, error) {
	existing, err := s.store.ListSpecies(ctx)
	if err != nil {
		return false, fmt.Errorf("list species: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Debug("catalog already populated, skipping seed", zap.Int("species", len(existing)))
		return false, nil
	}

	breeds := 0
	for _, entry := range entries {
		speciesID, err := s.store.CreateSpecies(ctx, models.Species{Name: entry.Name})
		if err != nil {
			return false, fmt.Errorf("seed species %s: %w", entry.Name, err)
		}
		for _, b := range entry.Breeds {
			breed := models.Breed{
				SpeciesID:             speciesID,
				Name:                  b.Name,
				DefaultIncubationDays: b.IncubationDays,
				DefaultLockdownDays:   b.LockdownDays,
			}
			breed.ApplyDefaults()
			if _, err := s.store.CreateBreed(ctx, breed); err != nil {
				return false, fmt.Errorf("seed breed %s: %w", b.Name, err)
			}
			breeds++
		}
	}
	s.logger.Info("catalog seeded", zap.Int("species", len(entries)), zap.Int("breeds", breeds))
	return true, nil
}

// CreateSpecies adds a species.
func (s *Service) CreateSpecies(ctx context.Context, name string) (*models.Species, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidSpecies)
	}
	species := models.Species{Name: name}
	id, err := s.store.CreateSpecies(ctx, species)
	if err != nil {
		return nil, fmt.Errorf("create species: %w", err)
	}
	species.ID = id
	return &species, nil
}

// DeleteSpecies removes a species together with its breeds.
func (s *Service) DeleteSpecies(ctx context.Context, id int64) error {
	if err := s.store.DeleteSpecies(ctx, id); err != nil {
		return fmt.Errorf("delete species: %w", err)
	}
	s.logger.Info("species deleted", zap.Int64("species_id", id))
	return nil
}

// List returns every species with its breeds.
func (s *Service) List(ctx context.Context) ([]models.SpeciesWithBreeds, error) {
	species, err := s.store.ListSpecies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	out := make([]models.SpeciesWithBreeds, 0, len(species))
	for _, sp := range species {
		breeds, err := s.store.ListBreeds(ctx, sp.ID)
		if err != nil {
			return nil, fmt.Errorf("list breeds: %w", err)
		}
		out = append(out, models.SpeciesWithBreeds{Species: sp, Breeds: breeds})
	}
	return out, nil
}

func validateBreed(b models.Breed) error {
	switch {
	case strings.TrimSpace(b.Name) == "":
		return fmt.Errorf("%w: name required", ErrInvalidBreed)
	case b.SpeciesID <= 0:
		return fmt.Errorf("%w: species_id required", ErrInvalidBreed)
	case b.DefaultIncubationDays <= 0:
		return fmt.Errorf("%w: incubation days must be positive", ErrInvalidBreed)
	case b.DefaultLockdownDays < 0 || b.DefaultDiscardGraceDays < 0:
		return fmt.Errorf("%w: day counts must not be negative", ErrInvalidBreed)
	case b.MinTemp > b.MaxTemp:
		return fmt.Errorf("%w: min temperature above max", ErrInvalidBreed)
	case b.MinHumidity > b.MaxHumidity:
		return fmt.Errorf("%w: min humidity above max", ErrInvalidBreed)
	}
	return nil
}

// CreateBreed adds a breed, filling unset grace days and ranges with the defaults.
func (s *Service) CreateBreed(ctx context.Context, breed models.Breed) (*models.Breed, error) {
	breed.Name = strings.TrimSpace(breed.Name)
	breed.ApplyDefaults()
	if err := validateBreed(breed); err != nil {
		return nil, err
	}
	id, err := s.store.CreateBreed(ctx, breed)
	if err != nil {
		return nil, fmt.Errorf("create breed: %w", err)
	}
	breed.ID = id
	return &breed, nil
}

// UpdateBreed replaces a breed. Existing batches keep their frozen copy.
func (s *Service) UpdateBreed(ctx context.Context, breed models.Breed) (*models.Breed, error) {
	breed.Name = strings.TrimSpace(breed.Name)
	breed.ApplyDefaults()
	if err := validateBreed(breed); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBreed(ctx, breed); err != nil {
		return nil, fmt.Errorf("update breed: %w", err)
	}
	return &breed, nil
}

// GetBreed loads one breed.
func (s *Service) GetBreed(ctx context.Context, id int64) (*models.Breed, error) {
	breed, err := s.store.GetBreed(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load breed: %w", err)
	}
	return breed, nil
}

// DeleteBreed removes a breed no batch refers to.
func (s *Service) DeleteBreed(ctx context.Context, id int64) error {
	if err := s.store.DeleteBreed(ctx, id); err != nil {
		return fmt.Errorf("delete breed: %w", err)
	}
	return nil
}

// BreedsForSpecies is a live query of one species' breeds.
func (s *Service) BreedsForSpecies(speciesID int64) *live.Query[models.Breed] {
	return live.NewQuery(s.store.Changes(), func(ctx context.Context) ([]models.Breed, error) {
		return s.store.ListBreeds(ctx, speciesID)
	}, live.TopicBreeds)
}
