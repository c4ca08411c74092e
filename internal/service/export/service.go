// Package export renders batch records as CSV or XLSX and pushes them to Google Sheets
// or an S3 archive.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/metrics"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/sheets"
)

var (
	// ErrUnsupportedFormat flags an unknown export format.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrNotConfigured flags a destination that was not set up.
	ErrNotConfigured = errors.New("export destination not configured")
)

// Format names an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts any casing; an empty value means CSV.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// BatchLister is the read the exporter needs.
type BatchLister interface {
	ListBatches(ctx context.Context, filter repository.BatchFilter) ([]models.Batch, error)
}

// Archiver stores rendered files.
type Archiver interface {
	Upload(ctx context.Context, name, contentType string, body []byte) (string, error)
}

// Service renders and ships exports. sheetsRepo and archive are optional.
type Service struct {
	store      BatchLister
	sheetsRepo sheets.Repository
	sheetRange string
	archive    Archiver
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires an exporter.
func NewService(store BatchLister, sheetsRepo sheets.Repository, sheetRange string, archive Archiver, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		sheetsRepo: sheetsRepo,
		sheetRange: sheetRange,
		archive:    archive,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Render loads batches and encodes them. activeOnly restricts to non-terminal batches.
func (s *Service) Render(ctx context.Context, format Format, activeOnly bool) (*File, error) {
	batches, err := s.store.ListBatches(ctx, repository.BatchFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}

	var data []byte
	switch format {
	case FormatCSV:
		data, err = CSV(batches)
	case FormatXLSX:
		data, err = XLSX(batches)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}

	s.metrics.Exported(string(format))
	return &File{
		Name:        fmt.Sprintf("batches-%s.%s", s.now().UTC().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Data:        data,
		Rows:        len(batches),
	}, nil
}

// SheetMode selects how ToSheets writes.
type SheetMode string

const (
	// SheetReplace clears the range and writes the header plus every row.
	SheetReplace SheetMode = "replace"
	// SheetAppend adds rows for batches not yet in the sheet, without a header.
	SheetAppend SheetMode = "append"
)

// ToSheets pushes the current batches into the configured sheet range.
func (s *Service) ToSheets(ctx context.Context, mode SheetMode, activeOnly bool) (int, error) {
	if s.sheetsRepo == nil {
		return 0, fmt.Errorf("%w: google sheets", ErrNotConfigured)
	}
	batches, err := s.store.ListBatches(ctx, repository.BatchFilter{ActiveOnly: activeOnly})
	if err != nil {
		return 0, fmt.Errorf("load batches: %w", err)
	}

	rows := SheetRows(batches)
	written := len(batches)
	switch mode {
	case SheetAppend:
		fresh, err := s.unseenRows(ctx, rows[1:])
		if err != nil {
			return 0, err
		}
		if err := s.sheetsRepo.AppendRows(ctx, s.sheetRange, fresh); err != nil {
			return 0, fmt.Errorf("append sheet rows: %w", err)
		}
		written = len(fresh)
	case SheetReplace, "":
		if err := s.sheetsRepo.ReplaceRange(ctx, s.sheetRange, rows); err != nil {
			return 0, fmt.Errorf("replace sheet range: %w", err)
		}
	default:
		return 0, fmt.Errorf("%w: sheet mode %q", ErrUnsupportedFormat, mode)
	}

	s.metrics.Exported("sheets")
	s.logger.Info("batches exported to sheet",
		zap.String("range", s.sheetRange),
		zap.String("mode", string(mode)),
		zap.Int("rows", written))
	return written, nil
}

// unseenRows drops rows whose batch id already appears in the first column of the sheet.
func (s *Service) unseenRows(ctx context.Context, rows [][]interface{}) ([][]interface{}, error) {
	existing, err := s.sheetsRepo.ReadRange(ctx, s.sheetRange)
	if err != nil {
		return nil, fmt.Errorf("read sheet range: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		if len(row) > 0 {
			seen[fmt.Sprint(row[0])] = struct{}{}
		}
	}
	fresh := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[fmt.Sprint(row[0])]; ok {
			continue
		}
		fresh = append(fresh, row)
	}
	return fresh, nil
}

// Archive renders an export and uploads it, returning the object key.
func (s *Service) Archive(ctx context.Context, format Format, activeOnly bool) (string, error) {
	if s.archive == nil {
		return "", fmt.Errorf("%w: s3 archive", ErrNotConfigured)
	}
	file, err := s.Render(ctx, format, activeOnly)
	if err != nil {
		return "", err
	}
	key, err := s.archive.Upload(ctx, file.Name, file.ContentType, file.Data)
	if err != nil {
		return "", fmt.Errorf("archive export: %w", err)
	}
	return key, nil
}
