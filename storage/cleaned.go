package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/chanakanakandala/ikman-lk-housing-data/models"
)

const cleanedSheet = "Cleaned"

var cleanedHeader = []string{"Location", "Date", "Title", "Price", "Link"}

// CleanedFileName returns the deterministic dataset file name for a merge
// interval.
func CleanedFileName(start, end time.Time) string {
	return fmt.Sprintf("cleaned_%s_to_%s.xlsx",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// CleanedFileWriter writes cleaned datasets as xlsx files. Writing to an
// existing path overwrites it, so regenerating an interval is idempotent.
type CleanedFileWriter struct{}

// NewCleanedFileWriter creates a CleanedFileWriter.
func NewCleanedFileWriter() *CleanedFileWriter {
	return &CleanedFileWriter{}
}

// Write persists rows to path, creating intermediate directories.
func (w *CleanedFileWriter) Write(rows []models.CleanedRow, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cleaned: create dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", cleanedSheet); err != nil {
		return fmt.Errorf("cleaned: name sheet: %w", err)
	}

	header := make([]interface{}, len(cleanedHeader))
	for i, h := range cleanedHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(cleanedSheet, "A1", &header); err != nil {
		return fmt.Errorf("cleaned: write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cleaned: cell name: %w", err)
		}
		row := []interface{}{r.Location, r.Date, r.Title, r.Price, r.Link}
		if err := f.SetSheetRow(cleanedSheet, cell, &row); err != nil {
			return fmt.Errorf("cleaned: write row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("cleaned: save %q: %w", path, err)
	}
	return nil
}
