package batches

import (
	"context"
	"errors"
	"fmt"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
)

// DashboardBatch is an active batch with its catalog names resolved.
type DashboardBatch struct {
	View
	SpeciesName string `json:"species_name"`
	BreedName   string `json:"breed_name"`
}

// Dashboard is the overview of incubators and everything currently incubating.
type Dashboard struct {
	Incubators    []models.Incubator `json:"incubators"`
	ActiveBatches []DashboardBatch   `json:"active_batches"`
	ActiveEggs    int                `json:"active_eggs"`
}

// Dashboard assembles the overview. Batches whose species or breed has vanished are
// left out instead of failing the whole view.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	incubators, err := s.store.ListIncubators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incubators: %w", err)
	}
	active, err := s.store.ListBatches(ctx, repository.BatchFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list active batches: %w", err)
	}

	out := &Dashboard{Incubators: incubators, ActiveBatches: make([]DashboardBatch, 0, len(active))}
	for _, b := range active {
		species, err := s.store.GetSpecies(ctx, b.SpeciesID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load species: %w", err)
		}
		breed, err := s.store.GetBreed(ctx, b.BreedID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load breed: %w", err)
		}
		out.ActiveBatches = append(out.ActiveBatches, DashboardBatch{
			View:        NewView(b),
			SpeciesName: species.Name,
			BreedName:   breed.Name,
		})
		out.ActiveEggs += b.EggsSet
	}
	return out, nil
}
