package models

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus drives the batch lifecycle.
type BatchStatus string

const (
	StatusIncubating BatchStatus = "INCUBATING"
	StatusLockdown   BatchStatus = "LOCKDOWN"
	StatusHatching   BatchStatus = "HATCHING"
	StatusCompleted  BatchStatus = "COMPLETED"
	StatusDiscarded  BatchStatus = "DISCARDED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []BatchStatus{StatusIncubating, StatusLockdown, StatusHatching, StatusCompleted, StatusDiscarded}

// ParseBatchStatus accepts any casing of a known status.
func ParseBatchStatus(value string) (BatchStatus, error) {
	candidate := BatchStatus(strings.ToUpper(strings.TrimSpace(value)))
	for _, status := range AllStatuses {
		if status == candidate {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown batch status %q", value)
}

// IsTerminal reports whether no further lifecycle progress is possible.
func (s BatchStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDiscarded
}

// Batch is a cohort of eggs set in one tray on one date. The derived dates and
// IncubationDays are frozen at creation and never recomputed from the breed.
type Batch struct {
	ID                int64       `bson:"_id" json:"id"`
	TrayID            int64       `bson:"tray_id" json:"tray_id"`
	SpeciesID         int64       `bson:"species_id" json:"species_id"`
	BreedID           int64       `bson:"breed_id" json:"breed_id"`
	EggsSet           int         `bson:"eggs_set" json:"eggs_set"`
	StartDate         time.Time   `bson:"start_date" json:"start_date"`
	IncubationDays    int         `bson:"incubation_days" json:"incubation_days"`
	ExpectedHatchDate time.Time   `bson:"expected_hatch_date" json:"expected_hatch_date"`
	LockdownDate      time.Time   `bson:"lockdown_date" json:"lockdown_date"`
	DiscardDate       time.Time   `bson:"discard_date" json:"discard_date"`
	HatchedCount      int         `bson:"hatched_count" json:"hatched_count"`
	DiscardedCount    int         `bson:"discarded_count" json:"discarded_count"`
	Status            BatchStatus `bson:"status" json:"status"`
	Notes             string      `bson:"notes,omitempty" json:"notes,omitempty"`
}

// IsActive reports whether the batch still occupies its tray.
func (b Batch) IsActive() bool {
	return !b.Status.IsTerminal()
}
