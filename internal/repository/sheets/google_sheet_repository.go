// Package sheets mirrors batch rows into a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/hatchery/internal/config"
)

// ErrEmptyRange is returned when no A1 range was given.
var ErrEmptyRange = errors.New("sheet range must not be empty")

// userEntered lets Sheets parse dates and numbers as if typed by hand.
const userEntered = "USER_ENTERED"

// Repository is the spreadsheet surface the export service writes through.
type Repository interface {
	AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
	ReplaceRange(ctx context.Context, sheetRange string, rows [][]interface{}) error
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// GoogleSheetRepository talks to one spreadsheet through the Sheets v4 API.
type GoogleSheetRepository struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository authenticates with the service-account file in cfg.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id required")
	}

	service, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("init sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		values:        service.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendRows inserts rows after the last filled row of the range. No rows is a no-op.
func (r *GoogleSheetRepository) AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return ErrEmptyRange
	}
	if len(rows) == 0 {
		return nil
	}

	resp, err := r.values.Append(r.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption(userEntered).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheetRange, err)
	}

	updated := ""
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRange
	}
	r.logger.Debug("sheet rows appended", zap.String("range", updated), zap.Int("rows", len(rows)))
	return nil
}

// ReplaceRange clears the range, then writes rows from its top-left cell.
func (r *GoogleSheetRepository) ReplaceRange(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return ErrEmptyRange
	}

	if _, err := r.values.Clear(r.spreadsheetID, sheetRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheetRange, err)
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := r.values.Update(r.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption(userEntered).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("write %s: %w", sheetRange, err)
	}

	r.logger.Debug("sheet range replaced", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// ReadRange returns the formatted cell values of the range, row by row.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, ErrEmptyRange
	}

	resp, err := r.values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetRange, err)
	}
	return resp.Values, nil
}
