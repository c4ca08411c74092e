package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
)

type fixture struct {
	store     *Store
	speciesID int64
	breedID   int64
	incID     int64
	trayID    int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := New()

	speciesID, err := s.CreateSpecies(ctx, models.Species{Name: "Chicken"})
	require.NoError(t, err)
	breedID, err := s.CreateBreed(ctx, models.Breed{SpeciesID: speciesID, Name: "Leghorn", DefaultIncubationDays: 21, DefaultLockdownDays: 3})
	require.NoError(t, err)
	incID, err := s.CreateIncubator(ctx, models.Incubator{Name: "Main", TrayCount: 2})
	require.NoError(t, err)
	trayID, err := s.CreateTray(ctx, models.Tray{IncubatorID: incID, Index: 1, Capacity: 30})
	require.NoError(t, err)

	return fixture{store: s, speciesID: speciesID, breedID: breedID, incID: incID, trayID: trayID}
}

func (f fixture) batch(status models.BatchStatus, eggs int, hatch time.Time) models.Batch {
	return models.Batch{
		TrayID:            f.trayID,
		SpeciesID:         f.speciesID,
		BreedID:           f.breedID,
		EggsSet:           eggs,
		Status:            status,
		ExpectedHatchDate: hatch,
	}
}

func TestDeleteSpecies_CascadesBreeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.CreateBreed(ctx, models.Breed{SpeciesID: f.speciesID, Name: "Silkie"})
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteSpecies(ctx, f.speciesID))

	_, err = f.store.GetBreed(ctx, f.breedID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	breeds, err := f.store.ListBreeds(ctx, f.speciesID)
	require.NoError(t, err)
	assert.Empty(t, breeds)
}

func TestDeleteSpecies_RejectedWhileBatchesReferenceIt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.CreateBatch(ctx, f.batch(models.StatusCompleted, 10, time.Now()))
	require.NoError(t, err)

	err = f.store.DeleteSpecies(ctx, f.speciesID)
	assert.ErrorIs(t, err, repository.ErrReferenced)
	_, err = f.store.GetBreed(ctx, f.breedID)
	assert.NoError(t, err)
}

func TestDeleteTray_RejectedUntilBatchesRemoved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	batchID, err := f.store.CreateBatch(ctx, f.batch(models.StatusIncubating, 12, time.Now()))
	require.NoError(t, err)
	_, err = f.store.CreateEvent(ctx, models.Event{BatchID: batchID, Type: models.EventNote, Timestamp: time.Now()})
	require.NoError(t, err)
	readingBatch := batchID
	readingID, err := f.store.CreateReading(ctx, models.Reading{IncubatorID: f.incID, BatchID: &readingBatch, Timestamp: time.Now()})
	require.NoError(t, err)

	assert.ErrorIs(t, f.store.DeleteTray(ctx, f.trayID), repository.ErrReferenced)

	require.NoError(t, f.store.DeleteBatchesInTray(ctx, f.trayID))
	require.NoError(t, f.store.DeleteTray(ctx, f.trayID))

	_, err = f.store.GetBatch(ctx, batchID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	events, err := f.store.ListEvents(ctx, batchID)
	require.NoError(t, err)
	assert.Empty(t, events)

	readings, err := f.store.ListReadings(ctx, f.incID, 0)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, readingID, readings[0].ID)
	assert.Nil(t, readings[0].BatchID)
}

func TestListBatches_ActiveOrderedByHatchDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	late, err := f.store.CreateBatch(ctx, f.batch(models.StatusIncubating, 5, base.AddDate(0, 0, 10)))
	require.NoError(t, err)
	_, err = f.store.CreateBatch(ctx, f.batch(models.StatusCompleted, 5, base))
	require.NoError(t, err)
	early, err := f.store.CreateBatch(ctx, f.batch(models.StatusLockdown, 5, base.AddDate(0, 0, 2)))
	require.NoError(t, err)

	active, err := f.store.ListBatches(ctx, repository.BatchFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, early, active[0].ID)
	assert.Equal(t, late, active[1].ID)

	all, err := f.store.ListBatches(ctx, repository.BatchFilter{TrayID: f.trayID})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestActiveEggsInTray_IgnoresTerminalBatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, b := range []models.Batch{
		f.batch(models.StatusIncubating, 10, time.Now()),
		f.batch(models.StatusHatching, 5, time.Now()),
		f.batch(models.StatusCompleted, 7, time.Now()),
		f.batch(models.StatusDiscarded, 9, time.Now()),
	} {
		_, err := f.store.CreateBatch(ctx, b)
		require.NoError(t, err)
	}

	total, err := f.store.ActiveEggsInTray(ctx, f.trayID)
	require.NoError(t, err)
	assert.Equal(t, 15, total)
}

func TestListTrays_OrderedByIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.CreateTray(ctx, models.Tray{IncubatorID: f.incID, Index: 0, Capacity: 10})
	require.NoError(t, err)

	trays, err := f.store.ListTrays(ctx, f.incID)
	require.NoError(t, err)
	require.Len(t, trays, 2)
	assert.Equal(t, 0, trays[0].Index)
	assert.Equal(t, 1, trays[1].Index)
}

func TestListReadings_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	base := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := f.store.CreateReading(ctx, models.Reading{IncubatorID: f.incID, Timestamp: base.Add(time.Duration(i) * time.Hour), Temp: float64(37 + i)})
		require.NoError(t, err)
	}

	readings, err := f.store.ListReadings(ctx, f.incID, 2)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 41.0, readings[0].Temp)
	assert.Equal(t, 40.0, readings[1].Temp)
}

func TestCommitHookFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	fail := false
	s := New(WithCommitHook(func(Snapshot) error {
		if fail {
			return errors.New("disk full")
		}
		return nil
	}))
	_, err := s.CreateSpecies(ctx, models.Species{Name: "Duck"})
	require.NoError(t, err)

	fail = true
	_, err = s.CreateSpecies(ctx, models.Species{Name: "Goose"})
	require.Error(t, err)

	species, err := s.ListSpecies(ctx)
	require.NoError(t, err)
	assert.Len(t, species, 1)
}

func TestCreateBatch_UnknownTray(t *testing.T) {
	s := New()
	_, err := s.CreateBatch(context.Background(), models.Batch{TrayID: 99})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
