package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/memory"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

type failingLister struct{}

func (failingLister) ListBatches(context.Context, repository.BatchFilter) ([]models.Batch, error) {
	return nil, errors.New("disk gone")
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDetect_ExactDayOnly(t *testing.T) {
	batches := []models.Batch{
		{ID: 1, Status: models.StatusIncubating, LockdownDate: day(2024, 1, 19), ExpectedHatchDate: day(2024, 1, 22)},
		{ID: 2, Status: models.StatusLockdown, LockdownDate: day(2024, 1, 16), ExpectedHatchDate: day(2024, 1, 19)},
		{ID: 3, Status: models.StatusCompleted, LockdownDate: day(2024, 1, 19), ExpectedHatchDate: day(2024, 1, 22)},
		{ID: 4, Status: models.StatusIncubating, LockdownDate: day(2023, 1, 19), ExpectedHatchDate: day(2023, 1, 22)},
	}

	got := Detect(batches, time.Date(2024, 1, 19, 18, 45, 0, 0, time.UTC))
	require.Len(t, got, 2)
	assert.Equal(t, models.Reminder{BatchID: 1, Kind: models.ReminderLockdown, Date: day(2024, 1, 19)}, got[0])
	assert.Equal(t, models.Reminder{BatchID: 2, Kind: models.ReminderHatch, Date: day(2024, 1, 19)}, got[1])

	assert.Empty(t, Detect(batches, day(2024, 1, 20)))
}

func TestDetect_DegenerateSameDayEmitsBoth(t *testing.T) {
	b := models.Batch{ID: 7, Status: models.StatusIncubating, LockdownDate: day(2024, 3, 1), ExpectedHatchDate: day(2024, 3, 1)}
	got := Detect([]models.Batch{b}, day(2024, 3, 1))
	require.Len(t, got, 2)
	assert.Equal(t, models.ReminderLockdown, got[0].Kind)
	assert.Equal(t, models.ReminderHatch, got[1].Kind)
}

func TestNotificationFor(t *testing.T) {
	lock := NotificationFor(models.Reminder{BatchID: 12, Kind: models.ReminderLockdown})
	assert.Equal(t, 121, lock.ID)
	assert.Equal(t, "Lockdown Reminder", lock.Title)
	assert.Contains(t, lock.Body, "#12")
	assert.Equal(t, models.ChannelReminders, lock.Channel)

	hatch := NotificationFor(models.Reminder{BatchID: 12, Kind: models.ReminderHatch})
	assert.Equal(t, 122, hatch.ID)
	assert.Equal(t, "Hatch Day!", hatch.Title)
}

func TestSweep_NotifiesAndCountsFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	incID, err := store.CreateIncubator(ctx, models.Incubator{Name: "A"})
	require.NoError(t, err)
	trayID, err := store.CreateTray(ctx, models.Tray{IncubatorID: incID, Index: 1, Capacity: 100})
	require.NoError(t, err)

	lockID, err := store.CreateBatch(ctx, models.Batch{TrayID: trayID, EggsSet: 10, Status: models.StatusIncubating,
		LockdownDate: day(2024, 1, 19), ExpectedHatchDate: day(2024, 1, 22)})
	require.NoError(t, err)
	hatchID, err := store.CreateBatch(ctx, models.Batch{TrayID: trayID, EggsSet: 10, Status: models.StatusHatching,
		LockdownDate: day(2024, 1, 16), ExpectedHatchDate: day(2024, 1, 19)})
	require.NoError(t, err)

	notifier := new(mockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.ID == int(lockID*10+1)
	})).Return(nil).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.ID == int(hatchID*10+2)
	})).Return(errors.New("sink offline")).Once()

	svc := NewService(store, notifier, time.UTC, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 19, 6, 0, 0, 0, time.UTC) }

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Len(t, res.Reminders, 2)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, res.Failed)
	notifier.AssertExpectations(t)
}

func TestSweep_UsesConfiguredTimezone(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	incID, err := store.CreateIncubator(ctx, models.Incubator{Name: "A"})
	require.NoError(t, err)
	trayID, err := store.CreateTray(ctx, models.Tray{IncubatorID: incID, Index: 1, Capacity: 100})
	require.NoError(t, err)
	_, err = store.CreateBatch(ctx, models.Batch{TrayID: trayID, EggsSet: 1, Status: models.StatusIncubating,
		LockdownDate: day(2024, 1, 20), ExpectedHatchDate: day(2024, 1, 23)})
	require.NoError(t, err)

	loc := time.FixedZone("UTC+3", 3*60*60)
	svc := NewService(store, nil, loc, nil, nil)
	// 22:00 UTC on the 19th is already the 20th at UTC+3.
	svc.now = func() time.Time { return time.Date(2024, 1, 19, 22, 0, 0, 0, time.UTC) }

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, res.Reminders, 1)
	assert.Equal(t, models.ReminderLockdown, res.Reminders[0].Kind)
}

func TestSweep_PropagatesReadFailure(t *testing.T) {
	svc := NewService(failingLister{}, nil, nil, nil, nil)
	_, err := svc.Sweep(context.Background())
	assert.Error(t, err)
}

func TestFanout_JoinsErrors(t *testing.T) {
	ok := new(mockNotifier)
	ok.On("Notify", mock.Anything, mock.Anything).Return(nil)
	bad := new(mockNotifier)
	bad.On("Notify", mock.Anything, mock.Anything).Return(errors.New("boom"))

	err := Fanout{ok, bad}.Notify(context.Background(), models.Notification{ID: 1})
	assert.EqualError(t, err, "boom")
	ok.AssertNumberOfCalls(t, "Notify", 1)
}
