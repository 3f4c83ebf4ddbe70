package storage

import (
	"time"

	"github.com/chanakanakandala/ikman-lk-housing-data/models"
)

// SnapshotAppender is the write side of the snapshot store. Append returns
// the path of the snapshot file the records landed in.
type SnapshotAppender interface {
	Append(date string, records []*models.ListingRecord) (string, error)
	PathFor(date string) string
}

// SnapshotReader is the read side of the snapshot store.
type SnapshotReader interface {
	Read(path string) (*models.SnapshotTable, error)
}

// RunLedger records crawl-run summaries and resolves date ranges to the
// runs (and therefore snapshots) they produced.
type RunLedger interface {
	Append(rec models.RunRecord) error
	All() ([]models.RunRecord, error)
	InRange(start, end time.Time) ([]models.RunRecord, error)
}

// CleanedWriter persists one cleaned dataset.
type CleanedWriter interface {
	Write(rows []models.CleanedRow, path string) error
}

// CleanedMirror is an optional secondary sink for cleaned rows.
type CleanedMirror interface {
	Mirror(rows []models.CleanedRow) error
	Close() error
}
