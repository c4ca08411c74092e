package reporting

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/calculators"
	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
)

const dateLayout = "2006-01-02"

// BatchSource is the read the reporting service needs.
type BatchSource interface {
	ListBatches(ctx context.Context, filter repository.BatchFilter) ([]models.Batch, error)
}

// Service exposes hatch analytics for chat summaries and the API.
type Service struct {
	repo   BatchSource
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(repository BatchSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repository, logger: logger}
}

// Statistics aggregates completed batches whose expected hatch date falls in [start, end].
func (s *Service) Statistics(ctx context.Context, start, end time.Time) (*models.HatchStatistics, error) {
	batches, err := s.repo.ListBatches(ctx, repository.BatchFilter{})
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}

	from, to := calculators.DateOnly(start), calculators.DateOnly(end)
	stats := &models.HatchStatistics{From: from, To: to}
	for _, b := range batches {
		if b.Status != models.StatusCompleted {
			continue
		}
		hatch := calculators.DateOnly(b.ExpectedHatchDate)
		if hatch.Before(from) || hatch.After(to) {
			continue
		}

		stats.Batches++
		stats.EggsSet += b.EggsSet
		stats.Hatched += b.HatchedCount
		stats.Discarded += b.DiscardedCount

		ofSet := calculators.HatchOfSet(b.HatchedCount, b.EggsSet)
		if stats.BestBatchID == 0 || ofSet > stats.BestHatchOfSet {
			stats.BestBatchID = b.ID
			stats.BestHatchOfSet = round2(ofSet)
		}
	}

	stats.HatchOfSet = round2(calculators.HatchOfSet(stats.Hatched, stats.EggsSet))
	stats.HatchRate = round2(calculators.HatchRate(stats.Hatched, stats.EggsSet, stats.Discarded))
	s.logger.Debug("hatch statistics computed", zap.Int("batches", stats.Batches), zap.Time("from", from), zap.Time("to", to))
	return stats, nil
}

// GenerateWeeklyReport summarizes the seven days ending on now.
func (s *Service) GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error) {
	end := calculators.DateOnly(now)
	start := calculators.AddDays(end, -6)

	stats, err := s.Statistics(ctx, start, end)
	if err != nil {
		return "", err
	}
	active, err := s.repo.ListBatches(ctx, repository.BatchFilter{ActiveOnly: true})
	if err != nil {
		return "", fmt.Errorf("load active batches: %w", err)
	}

	return FormatReport(*stats, active), nil
}

// FormatReport renders statistics and the upcoming hatches as chat text.
func FormatReport(stats models.HatchStatistics, active []models.Batch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hatch report (%s-%s)\n", stats.From.Format(dateLayout), stats.To.Format(dateLayout))
	if stats.Batches == 0 {
		b.WriteString("No batches completed in this period.\n")
	} else {
		fmt.Fprintf(&b, "Completed batches: %d\n", stats.Batches)
		fmt.Fprintf(&b, "Eggs set: %d, hatched: %d, discarded: %d\n", stats.EggsSet, stats.Hatched, stats.Discarded)
		fmt.Fprintf(&b, "Hatch of set: %.2f%%, hatch rate: %.2f%%\n", stats.HatchOfSet, stats.HatchRate)
		fmt.Fprintf(&b, "Best batch: #%d (%.2f%%)\n", stats.BestBatchID, stats.BestHatchOfSet)
	}

	if len(active) == 0 {
		b.WriteString("Nothing incubating.")
		return b.String()
	}
	fmt.Fprintf(&b, "Incubating: %d batches\n", len(active))
	for _, batch := range active {
		fmt.Fprintf(&b, "- #%d %s, %d eggs, hatch %s\n", batch.ID, batch.Status, batch.EggsSet, batch.ExpectedHatchDate.Format(dateLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
