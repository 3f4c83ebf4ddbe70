package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chanakanakandala/ikman-lk-housing-data/models"
)

// Ledger is the append-only run history, stored as a JSON array in a single
// file. Every crawl run appends exactly one record.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// NewLedger creates a ledger backed by the given JSON file.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

func (l *Ledger) load() ([]models.RunRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: read %q: %w", l.path, err)
	}

	var records []models.RunRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("ledger: parse %q: %w", l.path, err)
	}
	return records, nil
}

// Append adds one run record to the ledger.
func (l *Ledger) Append(rec models.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return err
	}
	records = append(records, rec)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("ledger: create dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("ledger: write %q: %w", l.path, err)
	}
	return nil
}

// All returns every run record in append order.
func (l *Ledger) All() ([]models.RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// InRange returns the runs whose date falls in [start, end] inclusive and
// whose snapshot file still exists on disk. Runs without a resolvable
// snapshot cannot feed a merge and are skipped.
func (l *Ledger) InRange(start, end time.Time) ([]models.RunRecord, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}

	var matched []models.RunRecord
	for _, rec := range records {
		d, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		if rec.SnapshotFile == "" {
			continue
		}
		if _, err := os.Stat(rec.SnapshotFile); err != nil {
			continue
		}
		matched = append(matched, rec)
	}
	return matched, nil
}
