// Package memory provides an in-memory implementation of the hatchery store used for
// tests, ephemeral runs and as the working set of the SQLite store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/live"
)

var _ repository.Store = (*Store)(nil)

// Snapshot captures a point-in-time copy of the whole store.
type Snapshot struct {
	Sequence   int64                      `json:"sequence"`
	Species    map[int64]models.Species   `json:"species"`
	Breeds     map[int64]models.Breed     `json:"breeds"`
	Incubators map[int64]models.Incubator `json:"incubators"`
	Trays      map[int64]models.Tray      `json:"trays"`
	Batches    map[int64]models.Batch     `json:"batches"`
	Events     map[int64]models.Event     `json:"events"`
	Readings   map[int64]models.Reading   `json:"readings"`
}

// CommitHook runs after every successful write while the store lock is held.
type CommitHook func(Snapshot) error

// Option customizes a Store.
type Option func(*Store)

// WithCommitHook registers a hook that persists or mirrors every write.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hook = hook }
}

// WithBroker shares an existing change broker.
func WithBroker(b *live.Broker) Option {
	return func(s *Store) { s.broker = b }
}

// Store keeps every entity in maps keyed by id.
type Store struct {
	mu     sync.RWMutex
	state  Snapshot
	hook   CommitHook
	broker *live.Broker
}

// New constructs an empty store.
func New(opts ...Option) *Store {
	s := &Store{state: emptySnapshot()}
	for _, opt := range opts {
		opt(s)
	}
	if s.broker == nil {
		s.broker = live.NewBroker()
	}
	return s
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Species:    make(map[int64]models.Species),
		Breeds:     make(map[int64]models.Breed),
		Incubators: make(map[int64]models.Incubator),
		Trays:      make(map[int64]models.Tray),
		Batches:    make(map[int64]models.Batch),
		Events:     make(map[int64]models.Event),
		Readings:   make(map[int64]models.Reading),
	}
}

// Changes implements repository.Store.
func (s *Store) Changes() *live.Broker { return s.broker }

// Close implements repository.Store.
func (s *Store) Close(context.Context) error { return nil }

// ExportState returns a deep copy of the current state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.state)
}

// ImportState replaces the current state with a copy of snapshot. Nil maps are
// replaced by empty ones.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	s.state = cloneSnapshot(snapshot)
	s.mu.Unlock()
	s.broker.Publish(live.TopicSpecies, live.TopicBreeds, live.TopicIncubators, live.TopicTrays,
		live.TopicBatches, live.TopicEvents, live.TopicReadings)
}

func cloneSnapshot(in Snapshot) Snapshot {
	out := emptySnapshot()
	out.Sequence = in.Sequence
	for k, v := range in.Species {
		out.Species[k] = v
	}
	for k, v := range in.Breeds {
		out.Breeds[k] = v
	}
	for k, v := range in.Incubators {
		out.Incubators[k] = v
	}
	for k, v := range in.Trays {
		out.Trays[k] = v
	}
	for k, v := range in.Batches {
		out.Batches[k] = v
	}
	for k, v := range in.Events {
		out.Events[k] = v
	}
	for k, v := range in.Readings {
		out.Readings[k] = cloneReading(v)
	}
	return out
}

func cloneReading(r models.Reading) models.Reading {
	if r.BatchID != nil {
		id := *r.BatchID
		r.BatchID = &id
	}
	return r
}

// write applies fn under the lock, runs the commit hook and publishes topics.
func (s *Store) write(ctx context.Context, fn func(st *Snapshot) error, topics ...live.Topic) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	var previous Snapshot
	if s.hook != nil {
		previous = cloneSnapshot(s.state)
	}
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.hook != nil {
		if err := s.hook(cloneSnapshot(s.state)); err != nil {
			s.state = previous
			s.mu.Unlock()
			return fmt.Errorf("commit state: %w", err)
		}
	}
	s.mu.Unlock()
	s.broker.Publish(topics...)
	return nil
}

func (s *Store) read(ctx context.Context, fn func(st *Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.state)
}

func nextID(st *Snapshot) int64 {
	st.Sequence++
	return st.Sequence
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, repository.ErrNotFound)
}

// CreateSpecies implements repository.CatalogStore.
func (s *Store) CreateSpecies(ctx context.Context, species models.Species) (int64, error) {
	var id int64
	err := s.write(ctx, func(st *Snapshot) error {
		id = nextID(st)
		species.ID = id
		st.Species[id] = species
		return nil
	}, live.TopicSpecies)
	return id, err
}

// GetSpecies implements repository.CatalogStore.
func (s *Store) GetSpecies(ctx context.Context, id int64) (*models.Species, error) {
	var out *models.Species
	err := s.read(ctx, func(st *Snapshot) error {
		v, ok := st.Species[id]
		if !ok {
			return notFound("species", id)
		}
		out = &v
		return nil
	})
	return out, err
}

// ListSpecies implements repository.CatalogStore.
func (s *Store) ListSpecies(ctx context.Context) ([]models.Species, error) {
	var out []models.Species
	err := s.read(ctx, func(st *Snapshot) error {
		out = make([]models.Species, 0, len(st.Species))
		for _, v := range st.Species {
			out = append(out, v)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

// DeleteSpecies implements repository.CatalogStore. Batches keep their species and
// breed by reference, so a species still used by a batch cannot go.
func (s *Store) DeleteSpecies(ctx context.Context, id int64) error {
	return s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Species[id]; !ok {
			return notFound("species", id)
		}
		for _, b := range st.Batches {
			if b.SpeciesID == id {
				return fmt.Errorf("species %d: %w", id, repository.ErrReferenced)
			}
			if breed, ok := st.Breeds[b.BreedID]; ok && breed.SpeciesID == id {
				return fmt.Errorf("species %d breed %d: %w", id, breed.ID, repository.ErrReferenced)
			}
		}
		for breedID, breed := range st.Breeds {
			if breed.SpeciesID == id {
				delete(st.Breeds, breedID)
			}
		}
		delete(st.Species, id)
		return nil
	}, live.TopicSpecies, live.TopicBreeds)
}

// CreateBreed implements repository.CatalogStore.
func (s *Store) CreateBreed(ctx context.Context, breed models.Breed) (int64, error) {
	var id int64
	err := s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Species[breed.SpeciesID]; !ok {
			return notFound("species", breed.SpeciesID)
		}
		id = nextID(st)
		breed.ID = id
		st.Breeds[id] = breed
		return nil
	}, live.TopicBreeds)
	return id, err
}

// GetBreed implements repository.CatalogStore.
func (s *Store) GetBreed(ctx context.Context, id int64) (*models.Breed, error) {
	var out *models.Breed
	err := s.read(ctx, func(st *Snapshot) error {
		v, ok := st.Breeds[id]
		if !ok {
			return notFound("breed", id)
		}
		out = &v
		return nil
	})
	return out, err
}

// ListBreeds implements repository.CatalogStore.
func (s *Store) ListBreeds(ctx context.Context, speciesID int64) ([]models.Breed, error) {
	var out []models.Breed
	err := s.read(ctx, func(st *Snapshot) error {
		out = make([]models.Breed, 0)
		for _, v := range st.Breeds {
			if v.SpeciesID == speciesID {
				out = append(out, v)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

// UpdateBreed implements repository.CatalogStore.
func (s *Store) UpdateBreed(ctx context.Context, breed models.Breed) error {
	return s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Breeds[breed.ID]; !ok {
			return notFound("breed", breed.ID)
		}
		if _, ok := st.Species[breed.SpeciesID]; !ok {
			return notFound("species", breed.SpeciesID)
		}
		st.Breeds[breed.ID] = breed
		return nil
	}, live.TopicBreeds)
}

// DeleteBreed implements repository.CatalogStore.
func (s *Store) DeleteBreed(ctx context.Context, id int64) error {
	return s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Breeds[id]; !ok {
			return notFound("breed", id)
		}
		for _, b := range st.Batches {
			if b.BreedID == id {
				return fmt.Errorf("breed %d: %w", id, repository.ErrReferenced)
			}
		}
		delete(st.Breeds, id)
		return nil
	}, live.TopicBreeds)
}

// CreateIncubator implements repository.IncubatorStore.
func (s *Store) CreateIncubator(ctx context.Context, incubator models.Incubator) (int64, error) {
	var id int64
	err := s.write(ctx, func(st *Snapshot) error {
		id = nextID(st)
		incubator.ID = id
		st.Incubators[id] = incubator
		return nil
	}, live.TopicIncubators)
	return id, err
}

// GetIncubator implements repository.IncubatorStore.
func (s *Store) GetIncubator(ctx context.Context, id int64) (*models.Incubator, error) {
	var out *models.Incubator
	err := s.read(ctx, func(st *Snapshot) error {
		v, ok := st.Incubators[id]
		if !ok {
			return notFound("incubator", id)
		}
		out = &v
		return nil
	})
	return out, err
}

// ListIncubators implements repository.IncubatorStore.
func (s *Store) ListIncubators(ctx context.Context) ([]models.Incubator, error) {
	var out []models.Incubator
	err := s.read(ctx, func(st *Snapshot) error {
		out = make([]models.Incubator, 0, len(st.Incubators))
		for _, v := range st.Incubators {
			out = append(out, v)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

// UpdateIncubator implements repository.IncubatorStore.
func (s *Store) UpdateIncubator(ctx context.Context, incubator models.Incubator) error {
	return s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Incubators[incubator.ID]; !ok {
			return notFound("incubator", incubator.ID)
		}
		st.Incubators[incubator.ID] = incubator
		return nil
	}, live.TopicIncubators)
}

// CreateTray implements repository.IncubatorStore.
func (s *Store) CreateTray(ctx context.Context, tray models.Tray) (int64, error) {
	var id int64
	err := s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Incubators[tray.IncubatorID]; !ok {
			return notFound("incubator", tray.IncubatorID)
		}
		id = nextID(st)
		tray.ID = id
		st.Trays[id] = tray
		return nil
	}, live.TopicTrays)
	return id, err
}

// GetTray implements repository.IncubatorStore.
func (s *Store) GetTray(ctx context.Context, id int64) (*models.Tray, error) {
	var out *models.Tray
	err := s.read(ctx, func(st *Snapshot) error {
		v, ok := st.Trays[id]
		if !ok {
			return notFound("tray", id)
		}
		out = &v
		return nil
	})
	return out, err
}

// ListTrays implements repository.IncubatorStore.
func (s *Store) ListTrays(ctx context.Context, incubatorID int64) ([]models.Tray, error) {
	var out []models.Tray
	err := s.read(ctx, func(st *Snapshot) error {
		out = make([]models.Tray, 0)
		for _, v := range st.Trays {
			if v.IncubatorID == incubatorID {
				out = append(out, v)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Index == out[j].Index {
				return out[i].ID < out[j].ID
			}
			return out[i].Index < out[j].Index
		})
		return nil
	})
	return out, err
}

// DeleteTray implements repository.IncubatorStore.
func (s *Store) DeleteTray(ctx context.Context, id int64) error {
	return s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Trays[id]; !ok {
			return notFound("tray", id)
		}
		for _, b := range st.Batches {
			if b.TrayID == id {
				return fmt.Errorf("tray %d: %w", id, repository.ErrReferenced)
			}
		}
		delete(st.Trays, id)
		return nil
	}, live.TopicTrays)
}

// CreateBatch implements repository.BatchStore.
func (s *Store) CreateBatch(ctx context.Context, batch models.Batch) (int64, error) {
	var id int64
	err := s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Trays[batch.TrayID]; !ok {
			return notFound("tray", batch.TrayID)
		}
		id = nextID(st)
		batch.ID = id
		st.Batches[id] = batch
		return nil
	}, live.TopicBatches)
	return id, err
}

// GetBatch implements repository.BatchStore.
func (s *Store) GetBatch(ctx context.Context, id int64) (*models.Batch, error) {
	var out *models.Batch
	err := s.read(ctx, func(st *Snapshot) error {
		v, ok := st.Batches[id]
		if !ok {
			return notFound("batch", id)
		}
		out = &v
		return nil
	})
	return out, err
}

// UpdateBatch implements repository.BatchStore.
func (s *Store) UpdateBatch(ctx context.Context, batch models.Batch) error {
	return s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Batches[batch.ID]; !ok {
			return notFound("batch", batch.ID)
		}
		st.Batches[batch.ID] = batch
		return nil
	}, live.TopicBatches)
}

// ListBatches implements repository.BatchStore.
func (s *Store) ListBatches(ctx context.Context, filter repository.BatchFilter) ([]models.Batch, error) {
	var out []models.Batch
	err := s.read(ctx, func(st *Snapshot) error {
		out = make([]models.Batch, 0)
		for _, b := range st.Batches {
			if filter.TrayID != 0 && b.TrayID != filter.TrayID {
				continue
			}
			if filter.ActiveOnly && !b.IsActive() {
				continue
			}
			out = append(out, b)
		}
		sortBatches(out, filter.ActiveOnly)
		return nil
	})
	return out, err
}

func sortBatches(batches []models.Batch, byHatchDate bool) {
	sort.Slice(batches, func(i, j int) bool {
		if byHatchDate && !batches[i].ExpectedHatchDate.Equal(batches[j].ExpectedHatchDate) {
			return batches[i].ExpectedHatchDate.Before(batches[j].ExpectedHatchDate)
		}
		return batches[i].ID < batches[j].ID
	})
}

// ActiveEggsInTray implements repository.BatchStore.
func (s *Store) ActiveEggsInTray(ctx context.Context, trayID int64) (int, error) {
	total := 0
	err := s.read(ctx, func(st *Snapshot) error {
		for _, b := range st.Batches {
			if b.TrayID == trayID && b.IsActive() {
				total += b.EggsSet
			}
		}
		return nil
	})
	return total, err
}

// DeleteBatchesInTray implements repository.BatchStore.
func (s *Store) DeleteBatchesInTray(ctx context.Context, trayID int64) error {
	return s.write(ctx, func(st *Snapshot) error {
		removed := make(map[int64]struct{})
		for id, b := range st.Batches {
			if b.TrayID == trayID {
				removed[id] = struct{}{}
				delete(st.Batches, id)
			}
		}
		for id, e := range st.Events {
			if _, ok := removed[e.BatchID]; ok {
				delete(st.Events, id)
			}
		}
		for id, r := range st.Readings {
			if r.BatchID == nil {
				continue
			}
			if _, ok := removed[*r.BatchID]; ok {
				r.BatchID = nil
				st.Readings[id] = r
			}
		}
		return nil
	}, live.TopicBatches, live.TopicEvents, live.TopicReadings)
}

// CreateEvent implements repository.JournalStore.
func (s *Store) CreateEvent(ctx context.Context, event models.Event) (int64, error) {
	var id int64
	err := s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Batches[event.BatchID]; !ok {
			return notFound("batch", event.BatchID)
		}
		id = nextID(st)
		event.ID = id
		st.Events[id] = event
		return nil
	}, live.TopicEvents)
	return id, err
}

// ListEvents implements repository.JournalStore.
func (s *Store) ListEvents(ctx context.Context, batchID int64) ([]models.Event, error) {
	var out []models.Event
	err := s.read(ctx, func(st *Snapshot) error {
		out = make([]models.Event, 0)
		for _, e := range st.Events {
			if e.BatchID == batchID {
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Timestamp.Equal(out[j].Timestamp) {
				return out[i].ID > out[j].ID
			}
			return out[i].Timestamp.After(out[j].Timestamp)
		})
		return nil
	})
	return out, err
}

// CreateReading implements repository.JournalStore.
func (s *Store) CreateReading(ctx context.Context, reading models.Reading) (int64, error) {
	var id int64
	err := s.write(ctx, func(st *Snapshot) error {
		if _, ok := st.Incubators[reading.IncubatorID]; !ok {
			return notFound("incubator", reading.IncubatorID)
		}
		id = nextID(st)
		reading.ID = id
		st.Readings[id] = cloneReading(reading)
		return nil
	}, live.TopicReadings)
	return id, err
}

// ListReadings implements repository.JournalStore.
func (s *Store) ListReadings(ctx context.Context, incubatorID int64, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = repository.DefaultReadingsLimit
	}
	var out []models.Reading
	err := s.read(ctx, func(st *Snapshot) error {
		out = make([]models.Reading, 0)
		for _, r := range st.Readings {
			if r.IncubatorID == incubatorID {
				out = append(out, cloneReading(r))
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Timestamp.Equal(out[j].Timestamp) {
				return out[i].ID > out[j].ID
			}
			return out[i].Timestamp.After(out[j].Timestamp)
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}
