package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/chanakanakandala/ikman-lk-housing-data/models"
)

const snapshotSheet = "ScrapeData"

// snapshotHeader is the snapshot column order. Readers locate columns by
// these names, so the names are part of the on-disk contract.
var snapshotHeader = []string{
	"Area Slug",
	"Date",
	"Location",
	"Title",
	"Description",
	"Details",
	"Price",
	"Agent Name",
	"URL",
	"Note",
}

// SnapshotStore keeps one append-only xlsx file per scrape day under dir.
// Appends are serialized with a mutex; rows are only ever added after the
// last used row, never rewritten.
type SnapshotStore struct {
	mu  sync.Mutex
	dir string
}

// NewSnapshotStore creates a store rooted at dir. The directory is created
// lazily on first append.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

// PathFor returns the snapshot file path for the given date ("2006-01-02").
func (s *SnapshotStore) PathFor(date string) string {
	return filepath.Join(s.dir, fmt.Sprintf("ikman_scrape_%s.xlsx", date))
}

// Append adds records to the given date's snapshot, creating the file with
// its header row if it does not exist yet. Returns the snapshot path.
func (s *SnapshotStore) Append(date string, records []*models.ListingRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: create dir %q: %w", s.dir, err)
	}

	path := s.PathFor(date)

	var (
		f       *excelize.File
		nextRow int
	)
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return "", fmt.Errorf("snapshot: open %q: %w", path, err)
		}
		rows, err := f.GetRows(snapshotSheet)
		if err != nil {
			_ = f.Close()
			return "", fmt.Errorf("snapshot: read %q: %w", path, err)
		}
		nextRow = len(rows) + 1
	} else {
		f = excelize.NewFile()
		if err := f.SetSheetName("Sheet1", snapshotSheet); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("snapshot: name sheet: %w", err)
		}
		header := make([]interface{}, len(snapshotHeader))
		for i, h := range snapshotHeader {
			header[i] = h
		}
		if err := f.SetSheetRow(snapshotSheet, "A1", &header); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("snapshot: write header: %w", err)
		}
		nextRow = 2
	}
	defer f.Close()

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, nextRow+i)
		if err != nil {
			return "", fmt.Errorf("snapshot: cell name: %w", err)
		}
		row := []interface{}{
			r.AreaSlug, r.Date, r.Location, r.Title, r.Description,
			r.Details, r.Price, r.SellerName, r.URL, r.Note,
		}
		if err := f.SetSheetRow(snapshotSheet, cell, &row); err != nil {
			return "", fmt.Errorf("snapshot: write row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("snapshot: save %q: %w", path, err)
	}
	return path, nil
}

// Read loads a snapshot file and returns its header row plus all data rows
// in arrival order.
func (s *SnapshotStore) Read(path string) (*models.SnapshotTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %q: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %q: %w", path, err)
	}
	if len(rows) == 0 {
		return &models.SnapshotTable{}, nil
	}
	return &models.SnapshotTable{Header: rows[0], Rows: rows[1:]}, nil
}
