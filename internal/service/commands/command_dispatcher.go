package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/calculators"
	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/service/batches"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

const dateFormat = "2006-01-02"

// Lifecycle is the slice of the batch service the dispatcher drives.
type Lifecycle interface {
	List(ctx context.Context, filter repository.BatchFilter) ([]models.Batch, error)
	Get(ctx context.Context, id int64) (*models.Batch, error)
	UpdateCounts(ctx context.Context, id int64, hatched, discarded int) (*models.Batch, error)
	Complete(ctx context.Context, id int64, hatched, discarded int) (*batches.View, error)
	TransitionStatus(ctx context.Context, id int64, to models.BatchStatus) (*models.Batch, error)
	AddEvent(ctx context.Context, batchID int64, eventType models.EventType, value, notes string) (*models.Event, error)
}

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error)
}

// FocusStore remembers the batch each sender last looked at so follow-up commands can
// omit the id.
type FocusStore interface {
	Focus(sender string) (int64, bool)
	SetFocus(sender string, batchID int64)
}

// Dispatcher executes parsed commands.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	batches   Lifecycle
	reporting ReportingAdapter
	focus     FocusStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs a command dispatcher. focus may be nil, in which case every
// command needs an explicit batch id.
func NewService(lifecycle Lifecycle, reporting ReportingAdapter, focus FocusStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:   lifecycle,
		reporting: reporting,
		focus:     focus,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleCommand executes the command and returns the chat reply.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Any("args", cmd.Args))

	switch cmd.Type {
	case models.CommandBatches:
		return s.listActive(ctx)
	case models.CommandBatch:
		id, _, err := s.resolveID(cmd.Args, sender, 1)
		if err != nil {
			return "", err
		}
		batch, err := s.batches.Get(ctx, id)
		if err != nil {
			return "", err
		}
		s.remember(sender, id)
		return describeBatch(*batch), nil
	case models.CommandCounts, models.CommandComplete:
		id, rest, err := s.resolveID(cmd.Args, sender, 3)
		if err != nil {
			return "", err
		}
		if len(rest) != 2 {
			return "", ErrInvalidArguments
		}
		hatched, err1 := strconv.Atoi(rest[0])
		discarded, err2 := strconv.Atoi(rest[1])
		if err1 != nil || err2 != nil {
			return "", ErrInvalidArguments
		}
		s.remember(sender, id)
		if cmd.Type == models.CommandCounts {
			batch, err := s.batches.UpdateCounts(ctx, id, hatched, discarded)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Batch #%d counts updated: %d hatched, %d discarded of %d.", batch.ID, batch.HatchedCount, batch.DiscardedCount, batch.EggsSet), nil
		}
		view, err := s.batches.Complete(ctx, id, hatched, discarded)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Batch #%d completed: %d of %d hatched (%.1f%% of set).", view.ID, view.HatchedCount, view.EggsSet, view.HatchOfSet), nil
	case models.CommandStatus:
		id, rest, err := s.resolveID(cmd.Args, sender, 2)
		if err != nil {
			return "", err
		}
		if len(rest) != 1 {
			return "", ErrInvalidArguments
		}
		status, err := models.ParseBatchStatus(rest[0])
		if err != nil {
			return "", ErrInvalidArguments
		}
		s.remember(sender, id)
		batch, err := s.batches.TransitionStatus(ctx, id, status)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Batch #%d is now %s.", batch.ID, batch.Status), nil
	case models.CommandNote:
		id, rest, err := s.resolveLeadingID(cmd.Args, sender)
		if err != nil {
			return "", err
		}
		if len(rest) == 0 {
			return "", ErrInvalidArguments
		}
		if _, err := s.batches.AddEvent(ctx, id, models.EventNote, "", strings.Join(rest, " ")); err != nil {
			return "", err
		}
		s.remember(sender, id)
		return fmt.Sprintf("Note saved on batch #%d.", id), nil
	case models.CommandCandle:
		id, rest, err := s.resolveLeadingID(cmd.Args, sender)
		if err != nil {
			return "", err
		}
		if len(rest) == 0 {
			return "", ErrInvalidArguments
		}
		notes := strings.Join(rest[1:], " ")
		if _, err := s.batches.AddEvent(ctx, id, models.EventCandling, rest[0], notes); err != nil {
			return "", err
		}
		s.remember(sender, id)
		return fmt.Sprintf("Candling result %q saved on batch #%d.", rest[0], id), nil
	case models.CommandReport:
		if s.reporting == nil {
			return "", ErrUnsupportedCommand
		}
		return s.reporting.GenerateWeeklyReport(ctx, s.now())
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) listActive(ctx context.Context) (string, error) {
	active, err := s.batches.List(ctx, repository.BatchFilter{ActiveOnly: true})
	if err != nil {
		return "", err
	}
	if len(active) == 0 {
		return "No active batches.", nil
	}
	today := calculators.DateOnly(s.now())
	var b strings.Builder
	fmt.Fprintf(&b, "%d active batches:", len(active))
	for _, batch := range active {
		days := int(batch.ExpectedHatchDate.Sub(today).Hours() / 24)
		fmt.Fprintf(&b, "\n#%d tray %d, %d eggs, %s, hatch %s (%s)",
			batch.ID, batch.TrayID, batch.EggsSet, batch.Status, batch.ExpectedHatchDate.Format(dateFormat), relativeDays(days))
	}
	return b.String(), nil
}

func relativeDays(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days > 1:
		return fmt.Sprintf("in %d days", days)
	default:
		return fmt.Sprintf("%d days overdue", -days)
	}
}

func describeBatch(b models.Batch) string {
	view := batches.NewView(b)
	lines := []string{
		fmt.Sprintf("Batch #%d (%s)", b.ID, b.Status),
		fmt.Sprintf("Tray %d, %d eggs set on %s", b.TrayID, b.EggsSet, b.StartDate.Format(dateFormat)),
		fmt.Sprintf("Lockdown %s, hatch %s, discard after %s",
			b.LockdownDate.Format(dateFormat), b.ExpectedHatchDate.Format(dateFormat), b.DiscardDate.Format(dateFormat)),
		fmt.Sprintf("Hatched %d, discarded %d (%.1f%% of set)", b.HatchedCount, b.DiscardedCount, view.HatchOfSet),
	}
	if b.Notes != "" {
		lines = append(lines, "Notes: "+b.Notes)
	}
	return strings.Join(lines, "\n")
}

// resolveID takes the id from args when they have the full arity, otherwise from the
// sender's focused batch.
func (s *Service) resolveID(args []string, sender string, fullArity int) (int64, []string, error) {
	if len(args) == fullArity {
		id, err := parseID(args[0])
		if err != nil {
			return 0, nil, ErrInvalidArguments
		}
		return id, args[1:], nil
	}
	if len(args) == fullArity-1 {
		if id, ok := s.focused(sender); ok {
			return id, args, nil
		}
	}
	return 0, nil, ErrInvalidArguments
}

// resolveLeadingID treats a numeric first argument as the id and otherwise falls back
// to the focused batch.
func (s *Service) resolveLeadingID(args []string, sender string) (int64, []string, error) {
	if len(args) > 0 {
		if id, err := parseID(args[0]); err == nil {
			return id, args[1:], nil
		}
	}
	if id, ok := s.focused(sender); ok {
		return id, args, nil
	}
	return 0, nil, ErrInvalidArguments
}

func (s *Service) focused(sender string) (int64, bool) {
	if s.focus == nil {
		return 0, false
	}
	return s.focus.Focus(sender)
}

func (s *Service) remember(sender string, id int64) {
	if s.focus != nil {
		s.focus.SetFocus(sender, id)
	}
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(value, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidArguments
	}
	return id, nil
}
