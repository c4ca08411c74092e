package models

import "time"

// HatchStatistics summarizes completed batches over a period.
type HatchStatistics struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Batches        int       `json:"batches"`
	EggsSet        int       `json:"eggs_set"`
	Hatched        int       `json:"hatched"`
	Discarded      int       `json:"discarded"`
	HatchOfSet     float64   `json:"hatch_of_set"`
	HatchRate      float64   `json:"hatch_rate"`
	BestBatchID    int64     `json:"best_batch_id,omitempty"`
	BestHatchOfSet float64   `json:"best_hatch_of_set,omitempty"`
}
