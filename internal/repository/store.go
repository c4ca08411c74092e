// Package repository defines the persistence surface shared by the memory, SQLite and
// MongoDB stores.
package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository/live"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrReferenced is returned when a delete would orphan batches.
var ErrReferenced = errors.New("record is referenced by batches")

// DefaultReadingsLimit bounds ListReadings when the caller passes a non-positive limit.
const DefaultReadingsLimit = 50

// BatchFilter narrows ListBatches. Zero values mean "no constraint".
type BatchFilter struct {
	TrayID     int64
	ActiveOnly bool
}

// CatalogStore persists species and breeds.
type CatalogStore interface {
	CreateSpecies(ctx context.Context, species models.Species) (int64, error)
	GetSpecies(ctx context.Context, id int64) (*models.Species, error)
	ListSpecies(ctx context.Context) ([]models.Species, error)
	// DeleteSpecies removes the species and its breeds.
	DeleteSpecies(ctx context.Context, id int64) error

	CreateBreed(ctx context.Context, breed models.Breed) (int64, error)
	GetBreed(ctx context.Context, id int64) (*models.Breed, error)
	ListBreeds(ctx context.Context, speciesID int64) ([]models.Breed, error)
	UpdateBreed(ctx context.Context, breed models.Breed) error
	DeleteBreed(ctx context.Context, id int64) error
}

// IncubatorStore persists incubators and their trays.
type IncubatorStore interface {
	CreateIncubator(ctx context.Context, incubator models.Incubator) (int64, error)
	GetIncubator(ctx context.Context, id int64) (*models.Incubator, error)
	ListIncubators(ctx context.Context) ([]models.Incubator, error)
	UpdateIncubator(ctx context.Context, incubator models.Incubator) error

	CreateTray(ctx context.Context, tray models.Tray) (int64, error)
	GetTray(ctx context.Context, id int64) (*models.Tray, error)
	// ListTrays orders trays by index ascending.
	ListTrays(ctx context.Context, incubatorID int64) ([]models.Tray, error)
	DeleteTray(ctx context.Context, id int64) error
}

// BatchStore persists batches.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch models.Batch) (int64, error)
	GetBatch(ctx context.Context, id int64) (*models.Batch, error)
	UpdateBatch(ctx context.Context, batch models.Batch) error
	// ListBatches orders active-only results by expected hatch date ascending and
	// everything else by id.
	ListBatches(ctx context.Context, filter BatchFilter) ([]models.Batch, error)
	ActiveEggsInTray(ctx context.Context, trayID int64) (int, error)
	// DeleteBatchesInTray removes the tray's batches together with their events.
	DeleteBatchesInTray(ctx context.Context, trayID int64) error
}

// JournalStore persists the append-only events and readings.
type JournalStore interface {
	CreateEvent(ctx context.Context, event models.Event) (int64, error)
	// ListEvents orders events by timestamp descending.
	ListEvents(ctx context.Context, batchID int64) ([]models.Event, error)
	CreateReading(ctx context.Context, reading models.Reading) (int64, error)
	// ListReadings orders readings by timestamp descending.
	ListReadings(ctx context.Context, incubatorID int64, limit int) ([]models.Reading, error)
}

// Store is the full persistence surface.
type Store interface {
	CatalogStore
	IncubatorStore
	BatchStore
	JournalStore

	// Changes exposes the broker every write publishes to.
	Changes() *live.Broker
	Close(ctx context.Context) error
}
