package batches

import "github.com/mamadbah2/hatchery/internal/domain/models"

// transitions lists, per current status, every status an assignment may move to.
// COMPLETED and DISCARDED are reachable from every non-terminal state.
var transitions = map[models.BatchStatus][]models.BatchStatus{
	models.StatusIncubating: {models.StatusIncubating, models.StatusLockdown, models.StatusDiscarded, models.StatusCompleted},
	models.StatusLockdown:   {models.StatusLockdown, models.StatusHatching, models.StatusDiscarded, models.StatusCompleted},
	models.StatusHatching:   {models.StatusHatching, models.StatusCompleted, models.StatusDiscarded},
	models.StatusCompleted:  {models.StatusCompleted},
	models.StatusDiscarded:  {models.StatusDiscarded},
}

// CanTransition reports whether a batch in from may be assigned to.
func CanTransition(from, to models.BatchStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from the given one.
func NextStatuses(from models.BatchStatus) []models.BatchStatus {
	return append([]models.BatchStatus(nil), transitions[from]...)
}
