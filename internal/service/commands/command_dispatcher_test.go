package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/service/batches"
)

type mockLifecycle struct {
	mock.Mock
}

func (m *mockLifecycle) List(ctx context.Context, filter repository.BatchFilter) ([]models.Batch, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Batch), args.Error(1)
}

func (m *mockLifecycle) Get(ctx context.Context, id int64) (*models.Batch, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.Batch)
	return b, args.Error(1)
}

func (m *mockLifecycle) UpdateCounts(ctx context.Context, id int64, hatched, discarded int) (*models.Batch, error) {
	args := m.Called(ctx, id, hatched, discarded)
	b, _ := args.Get(0).(*models.Batch)
	return b, args.Error(1)
}

func (m *mockLifecycle) Complete(ctx context.Context, id int64, hatched, discarded int) (*batches.View, error) {
	args := m.Called(ctx, id, hatched, discarded)
	v, _ := args.Get(0).(*batches.View)
	return v, args.Error(1)
}

func (m *mockLifecycle) TransitionStatus(ctx context.Context, id int64, to models.BatchStatus) (*models.Batch, error) {
	args := m.Called(ctx, id, to)
	b, _ := args.Get(0).(*models.Batch)
	return b, args.Error(1)
}

func (m *mockLifecycle) AddEvent(ctx context.Context, batchID int64, eventType models.EventType, value, notes string) (*models.Event, error) {
	args := m.Called(ctx, batchID, eventType, value, notes)
	e, _ := args.Get(0).(*models.Event)
	return e, args.Error(1)
}

type mockReporting struct {
	mock.Mock
}

func (m *mockReporting) GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error) {
	args := m.Called(ctx, now)
	return args.String(0), args.Error(1)
}

type mapFocus map[string]int64

func (f mapFocus) Focus(sender string) (int64, bool) {
	id, ok := f[sender]
	return id, ok
}

func (f mapFocus) SetFocus(sender string, id int64) { f[sender] = id }

var fixedNow = time.Date(2024, 1, 19, 10, 0, 0, 0, time.UTC)

func newDispatcher(lc *mockLifecycle, rep ReportingAdapter, focus FocusStore) *Service {
	svc := NewService(lc, rep, focus, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestHandleCommand_Batches(t *testing.T) {
	lc := new(mockLifecycle)
	lc.On("List", mock.Anything, repository.BatchFilter{ActiveOnly: true}).Return([]models.Batch{
		{ID: 3, TrayID: 1, EggsSet: 24, Status: models.StatusLockdown, ExpectedHatchDate: time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC)},
		{ID: 4, TrayID: 2, EggsSet: 12, Status: models.StatusHatching, ExpectedHatchDate: time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC)},
	}, nil)

	reply, err := newDispatcher(lc, nil, nil).HandleCommand(context.Background(), models.ParseCommand("/batches"), "224")
	require.NoError(t, err)
	assert.Contains(t, reply, "2 active batches")
	assert.Contains(t, reply, "#3 tray 1, 24 eggs, LOCKDOWN, hatch 2024-01-22 (in 3 days)")
	assert.Contains(t, reply, "(today)")
}

func TestHandleCommand_CompleteWithExplicitID(t *testing.T) {
	lc := new(mockLifecycle)
	lc.On("Complete", mock.Anything, int64(7), 18, 1).Return(&batches.View{
		Batch:      models.Batch{ID: 7, EggsSet: 20, HatchedCount: 18, DiscardedCount: 1, Status: models.StatusCompleted},
		HatchOfSet: 90,
	}, nil)

	reply, err := newDispatcher(lc, nil, nil).HandleCommand(context.Background(), models.ParseCommand("/complete 7 18 1"), "224")
	require.NoError(t, err)
	assert.Equal(t, "Batch #7 completed: 18 of 20 hatched (90.0% of set).", reply)
	lc.AssertExpectations(t)
}

func TestHandleCommand_FocusCarriesBetweenCommands(t *testing.T) {
	lc := new(mockLifecycle)
	focus := mapFocus{}
	lc.On("Get", mock.Anything, int64(5)).Return(&models.Batch{ID: 5, EggsSet: 30, Status: models.StatusIncubating}, nil)
	lc.On("UpdateCounts", mock.Anything, int64(5), 10, 2).Return(&models.Batch{ID: 5, EggsSet: 30, HatchedCount: 10, DiscardedCount: 2}, nil)
	lc.On("TransitionStatus", mock.Anything, int64(5), models.StatusLockdown).Return(&models.Batch{ID: 5, Status: models.StatusLockdown}, nil)
	lc.On("AddEvent", mock.Anything, int64(5), models.EventCandling, "clear", "two infertile").Return(&models.Event{ID: 1}, nil)
	lc.On("AddEvent", mock.Anything, int64(5), models.EventNote, "", "Turned eggs by hand").Return(&models.Event{ID: 2}, nil)

	d := newDispatcher(lc, nil, focus)
	ctx := context.Background()

	reply, err := d.HandleCommand(ctx, models.ParseCommand("/batch 5"), "224")
	require.NoError(t, err)
	assert.Contains(t, reply, "Batch #5 (INCUBATING)")

	reply, err = d.HandleCommand(ctx, models.ParseCommand("/counts 10 2"), "224")
	require.NoError(t, err)
	assert.Contains(t, reply, "10 hatched, 2 discarded of 30")

	reply, err = d.HandleCommand(ctx, models.ParseCommand("/status lockdown"), "224")
	require.NoError(t, err)
	assert.Equal(t, "Batch #5 is now LOCKDOWN.", reply)

	_, err = d.HandleCommand(ctx, models.ParseCommand("/candle clear two infertile"), "224")
	require.NoError(t, err)
	_, err = d.HandleCommand(ctx, models.ParseCommand("/note Turned eggs by hand"), "224")
	require.NoError(t, err)

	lc.AssertExpectations(t)

	// A different sender has no focus.
	_, err = d.HandleCommand(ctx, models.ParseCommand("/counts 10 2"), "other")
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestHandleCommand_InvalidArguments(t *testing.T) {
	d := newDispatcher(new(mockLifecycle), nil, nil)
	ctx := context.Background()

	for _, text := range []string{"/batch", "/counts 5 x 1", "/complete 5 1", "/status 5 flying", "/note", "/batch -2"} {
		t.Run(text, func(t *testing.T) {
			_, err := d.HandleCommand(ctx, models.ParseCommand(text), "224")
			assert.ErrorIs(t, err, ErrInvalidArguments)
		})
	}

	_, err := d.HandleCommand(ctx, models.ParseCommand("/eggs 12"), "224")
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
	_, err = d.HandleCommand(ctx, models.ParseCommand("/report"), "224")
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestHandleCommand_DomainErrorsPropagate(t *testing.T) {
	lc := new(mockLifecycle)
	lc.On("UpdateCounts", mock.Anything, int64(9), 30, 0).Return(nil, batches.ErrInvalidCounts)

	_, err := newDispatcher(lc, nil, nil).HandleCommand(context.Background(), models.ParseCommand("/counts 9 30 0"), "224")
	assert.ErrorIs(t, err, batches.ErrInvalidCounts)
}

func TestHandleCommand_Report(t *testing.T) {
	rep := new(mockReporting)
	rep.On("GenerateWeeklyReport", mock.Anything, fixedNow).Return("Hatch report", nil)

	reply, err := newDispatcher(new(mockLifecycle), rep, nil).HandleCommand(context.Background(), models.ParseCommand("/REPORT"), "224")
	require.NoError(t, err)
	assert.Equal(t, "Hatch report", reply)
}
