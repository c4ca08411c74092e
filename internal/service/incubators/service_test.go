package incubators

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/memory"
)

func TestCreate_DefaultsEnvironment(t *testing.T) {
	svc := NewService(memory.New(), nil)
	inc, err := svc.Create(context.Background(), models.Incubator{Name: " Brinsea ", TrayCount: 3})
	require.NoError(t, err)
	assert.Equal(t, "Brinsea", inc.Name)
	assert.Equal(t, models.DefaultIncubatorTemp, inc.CurrentTemp)
	assert.Equal(t, models.DefaultIncubatorHumidity, inc.CurrentHumidity)

	_, err = svc.Create(context.Background(), models.Incubator{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddTray_IndexesSequentially(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), nil)
	inc, err := svc.Create(ctx, models.Incubator{Name: "A"})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		tray, err := svc.AddTray(ctx, inc.ID, 40)
		require.NoError(t, err)
		assert.Equal(t, i, tray.Index)
	}
	trays, err := svc.Trays(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, trays, 3)
	assert.Equal(t, 1, trays[0].Index)

	_, err = svc.AddTray(ctx, inc.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.AddTray(ctx, 999, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateEnvironment_RecordsReading(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), nil)
	clock := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { clock = clock.Add(time.Hour); return clock }

	inc, err := svc.Create(ctx, models.Incubator{Name: "A"})
	require.NoError(t, err)

	_, err = svc.UpdateEnvironment(ctx, inc.ID, 37.2, 50, nil)
	require.NoError(t, err)
	last, err := svc.UpdateEnvironment(ctx, inc.ID, 37.8, 60, nil)
	require.NoError(t, err)

	stored, err := svc.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, 37.8, stored.CurrentTemp)
	assert.Equal(t, 60.0, stored.CurrentHumidity)

	readings, err := svc.Readings(ctx, inc.ID, 0)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, last.ID, readings[0].ID)

	_, err = svc.UpdateEnvironment(ctx, inc.ID, 37.5, 120, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	missing := int64(4242)
	_, err = svc.UpdateEnvironment(ctx, inc.ID, 37.5, 50, &missing)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteTray_RestrictOrCascade(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewService(store, nil)
	inc, err := svc.Create(ctx, models.Incubator{Name: "A"})
	require.NoError(t, err)
	tray, err := svc.AddTray(ctx, inc.ID, 30)
	require.NoError(t, err)
	batchID, err := store.CreateBatch(ctx, models.Batch{TrayID: tray.ID, EggsSet: 10, Status: models.StatusIncubating})
	require.NoError(t, err)
	_, err = store.CreateEvent(ctx, models.Event{BatchID: batchID, Type: models.EventNote})
	require.NoError(t, err)

	err = svc.DeleteTray(ctx, tray.ID, false)
	assert.ErrorIs(t, err, repository.ErrReferenced)

	require.NoError(t, svc.DeleteTray(ctx, tray.ID, true))
	_, err = store.GetBatch(ctx, batchID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	events, err := store.ListEvents(ctx, batchID)
	require.NoError(t, err)
	assert.Empty(t, events)
	_, err = store.GetTray(ctx, tray.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTraysForIncubator_Live(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := NewService(memory.New(), nil)
	inc, err := svc.Create(ctx, models.Incubator{Name: "A"})
	require.NoError(t, err)

	sub := svc.TraysForIncubator(inc.ID).Subscribe(ctx)
	defer sub.Close()
	assert.Empty(t, (<-sub.Updates()).Items)

	_, err = svc.AddTray(ctx, inc.ID, 12)
	require.NoError(t, err)
	select {
	case snap := <-sub.Updates():
		require.Len(t, snap.Items, 1)
		assert.Equal(t, 12, snap.Items[0].Capacity)
	case <-time.After(2 * time.Second):
		t.Fatal("no update")
	}
}
