// Package admission runs the pre-flight checks a new batch must pass before it is stored.
package admission

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/models"
)

// ErrCapacityExceeded matches every *CapacityError.
var ErrCapacityExceeded = errors.New("tray capacity exceeded")

// CapacityError reports the three values behind a rejected admission.
type CapacityError struct {
	TrayID     int64
	ActiveEggs int
	Proposed   int
	Capacity   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("tray %d would exceed its capacity: %d active eggs + %d proposed > capacity %d",
		e.TrayID, e.ActiveEggs, e.Proposed, e.Capacity)
}

// Is lets errors.Is match ErrCapacityExceeded.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// Decision is the outcome of a capacity check. Message is empty when accepted.
type Decision struct {
	Accepted   bool   `json:"accepted"`
	TrayID     int64  `json:"tray_id"`
	ActiveEggs int    `json:"active_eggs"`
	Proposed   int    `json:"proposed"`
	Capacity   int    `json:"capacity"`
	Remaining  int    `json:"remaining"`
	Message    string `json:"message,omitempty"`
}

// Err returns the rejection as a *CapacityError, or nil when accepted.
func (d Decision) Err() error {
	if d.Accepted {
		return nil
	}
	return &CapacityError{TrayID: d.TrayID, ActiveEggs: d.ActiveEggs, Proposed: d.Proposed, Capacity: d.Capacity}
}

// Decide applies the capacity rule to already-known numbers.
func Decide(trayID int64, activeEggs, proposed, capacity int) Decision {
	d := Decision{
		Accepted:   activeEggs+proposed <= capacity,
		TrayID:     trayID,
		ActiveEggs: activeEggs,
		Proposed:   proposed,
		Capacity:   capacity,
		Remaining:  capacity - activeEggs,
	}
	if !d.Accepted {
		d.Message = d.Err().Error()
	}
	return d
}

// TrayReader is the slice of the store the guard reads.
type TrayReader interface {
	GetTray(ctx context.Context, id int64) (*models.Tray, error)
	ActiveEggsInTray(ctx context.Context, trayID int64) (int, error)
}

// Guard checks tray capacity against the store. The read-then-decide sequence is not
// isolated from concurrent writers.
type Guard struct {
	store  TrayReader
	logger *zap.Logger
}

// NewGuard constructs a capacity guard.
func NewGuard(store TrayReader, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{store: store, logger: logger}
}

// CheckCapacity sums the tray's active eggs and decides whether proposed more fit.
func (g *Guard) CheckCapacity(ctx context.Context, trayID int64, proposed int) (Decision, error) {
	tray, err := g.store.GetTray(ctx, trayID)
	if err != nil {
		return Decision{}, fmt.Errorf("load tray: %w", err)
	}
	active, err := g.store.ActiveEggsInTray(ctx, trayID)
	if err != nil {
		return Decision{}, fmt.Errorf("sum active eggs: %w", err)
	}

	decision := Decide(trayID, active, proposed, tray.Capacity)
	if !decision.Accepted {
		g.logger.Info("admission rejected",
			zap.Int64("tray_id", trayID),
			zap.Int("active_eggs", active),
			zap.Int("proposed", proposed),
			zap.Int("capacity", tray.Capacity))
	}
	return decision, nil
}
