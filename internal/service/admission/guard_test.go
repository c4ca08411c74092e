package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/memory"
)

func seedTray(t *testing.T, store *memory.Store, capacity int) int64 {
	t.Helper()
	ctx := context.Background()
	incID, err := store.CreateIncubator(ctx, models.Incubator{Name: "Cabinet"})
	require.NoError(t, err)
	trayID, err := store.CreateTray(ctx, models.Tray{IncubatorID: incID, Index: 1, Capacity: capacity})
	require.NoError(t, err)
	return trayID
}

func TestCheckCapacity_RejectsOverflowAndReportsValues(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	trayID := seedTray(t, store, 30)
	_, err := store.CreateBatch(ctx, models.Batch{TrayID: trayID, EggsSet: 20, Status: models.StatusIncubating, StartDate: time.Now()})
	require.NoError(t, err)

	guard := NewGuard(store, nil)

	decision, err := guard.CheckCapacity(ctx, trayID, 11)
	require.NoError(t, err)
	assert.False(t, decision.Accepted)
	assert.Equal(t, 20, decision.ActiveEggs)
	assert.Equal(t, 11, decision.Proposed)
	assert.Equal(t, 30, decision.Capacity)
	assert.Contains(t, decision.Message, "20")
	assert.Contains(t, decision.Message, "11")
	assert.Contains(t, decision.Message, "30")

	var capErr *CapacityError
	require.True(t, errors.As(decision.Err(), &capErr))
	assert.ErrorIs(t, decision.Err(), ErrCapacityExceeded)

	decision, err = guard.CheckCapacity(ctx, trayID, 10)
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	assert.Empty(t, decision.Message)
	assert.NoError(t, decision.Err())
}

func TestCheckCapacity_IgnoresTerminalBatches(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	trayID := seedTray(t, store, 30)
	for _, status := range []models.BatchStatus{models.StatusCompleted, models.StatusDiscarded} {
		_, err := store.CreateBatch(ctx, models.Batch{TrayID: trayID, EggsSet: 25, Status: status})
		require.NoError(t, err)
	}

	decision, err := NewGuard(store, nil).CheckCapacity(ctx, trayID, 30)
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	assert.Zero(t, decision.ActiveEggs)
}

func TestCheckCapacity_UnknownTray(t *testing.T) {
	_, err := NewGuard(memory.New(), nil).CheckCapacity(context.Background(), 404, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckEnvironment(t *testing.T) {
	breed := models.Breed{Name: "Leghorn", MinTemp: 37.5, MaxTemp: 38.0, MinHumidity: 45, MaxHumidity: 65}

	cases := []struct {
		name     string
		temp     float64
		humidity float64
		want     []Dimension
	}{
		{name: "in range", temp: 37.7, humidity: 55},
		{name: "bounds inclusive", temp: 38.0, humidity: 45},
		{name: "too cold", temp: 36.9, humidity: 55, want: []Dimension{DimensionTemperature}},
		{name: "too dry", temp: 37.6, humidity: 30, want: []Dimension{DimensionHumidity}},
		{name: "both", temp: 39.2, humidity: 80, want: []Dimension{DimensionTemperature, DimensionHumidity}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			warnings := CheckEnvironment(models.Incubator{CurrentTemp: tc.temp, CurrentHumidity: tc.humidity}, breed)
			var got []Dimension
			for _, w := range warnings {
				got = append(got, w.Dimension)
				assert.NotEmpty(t, w.Message)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}
