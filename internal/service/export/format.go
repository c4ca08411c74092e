package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/hatchery/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Header is the column order shared by every export format.
var Header = []string{"ID", "TrayID", "Born", "EggsSet", "HatchDate", "Status"}

// Row renders one batch in Header order.
func Row(b models.Batch) []string {
	return []string{
		strconv.FormatInt(b.ID, 10),
		strconv.FormatInt(b.TrayID, 10),
		b.StartDate.Format(dateLayout),
		strconv.Itoa(b.EggsSet),
		b.ExpectedHatchDate.Format(dateLayout),
		string(b.Status),
	}
}

// CSV renders batches with a header row.
func CSV(batches []models.Batch) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range batches {
		if err := w.Write(Row(b)); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", b.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

const sheetName = "Batches"

// XLSX renders batches as a workbook with a bold, frozen header row. Numeric columns
// are written as numbers.
func XLSX(batches []models.Batch) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, b := range batches {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			b.ID,
			b.TrayID,
			b.StartDate.Format(dateLayout),
			b.EggsSet,
			b.ExpectedHatchDate.Format(dateLayout),
			string(b.Status),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", b.ID, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "F", 14); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SheetRows renders batches, header included, for the Sheets API.
func SheetRows(batches []models.Batch) [][]interface{} {
	rows := make([][]interface{}, 0, len(batches)+1)
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	rows = append(rows, header)
	for _, b := range batches {
		row := Row(b)
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		rows = append(rows, values)
	}
	return rows
}
