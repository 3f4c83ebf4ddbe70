package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chanakanakandala/ikman-lk-housing-data/models"
	"github.com/chanakanakandala/ikman-lk-housing-data/storage"
)

type fakeLedger struct {
	runs []models.RunRecord
}

func (f *fakeLedger) Append(models.RunRecord) error { return nil }

func (f *fakeLedger) All() ([]models.RunRecord, error) { return f.runs, nil }

func (f *fakeLedger) InRange(start, end time.Time) ([]models.RunRecord, error) {
	var out []models.RunRecord
	for _, rec := range f.runs {
		d, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			continue
		}
		if !d.Before(start) && !d.After(end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeReader struct {
	tables map[string]*models.SnapshotTable
}

func (f *fakeReader) Read(path string) (*models.SnapshotTable, error) {
	table, ok := f.tables[path]
	if !ok {
		return nil, errors.New("snapshot not found")
	}
	return table, nil
}

type captureWriter struct {
	rows  []models.CleanedRow
	path  string
	calls int
}

func (w *captureWriter) Write(rows []models.CleanedRow, path string) error {
	w.rows = rows
	w.path = path
	w.calls++
	return nil
}

type captureMirror struct {
	rows []models.CleanedRow
	err  error
}

func (m *captureMirror) Mirror(rows []models.CleanedRow) error {
	if m.err != nil {
		return m.err
	}
	m.rows = rows
	return nil
}

func (m *captureMirror) Close() error { return nil }

func snapshotHeaderRow() []string {
	return []string{"Area Slug", "Date", "Location", "Title", "Description", "Details", "Price", "Agent Name", "URL", "Note"}
}

func snapshotRow(date, title, price, link string) []string {
	return []string{"ampara", date, "Ampara", title, "desc", "3 beds", price, "Agent", link, ""}
}

func run(date, file string) models.RunRecord {
	return models.RunRecord{Date: date, SnapshotFile: file}
}

func day(date string) time.Time {
	d, _ := time.Parse("2006-01-02", date)
	return d
}

func newTestMerger(ledger storage.RunLedger, reader storage.SnapshotReader, writer storage.CleanedWriter, threshold int) *Merger {
	return NewMerger(ledger, reader, writer, threshold, "/tmp/cleaned", zap.NewNop().Sugar())
}

func TestMergerRecencyWins(t *testing.T) {
	ledger := &fakeLedger{runs: []models.RunRecord{
		run("2025-01-05", "snap-05"),
		run("2025-01-06", "snap-06"),
	}}
	reader := &fakeReader{tables: map[string]*models.SnapshotTable{
		"snap-05": {
			Header: snapshotHeaderRow(),
			Rows:   [][]string{snapshotRow("2025-01-05", "Nice House For Sale!!", "19500000", "link-old")},
		},
		"snap-06": {
			Header: snapshotHeaderRow(),
			Rows:   [][]string{snapshotRow("2025-01-06", "nice house for sale", "19600000", "link-new")},
		},
	}}
	writer := &captureWriter{}

	result := newTestMerger(ledger, reader, writer, 80).Cleanup(day("2025-01-05"), day("2025-01-06"))

	require.True(t, result.Success, result.Message)
	require.Len(t, writer.rows, 1)
	assert.Equal(t, "2025-01-06", writer.rows[0].Date)
	assert.Equal(t, "nice house for sale", writer.rows[0].Title)
	assert.Equal(t, 19600000, writer.rows[0].Price)
	assert.Equal(t, "link-new", writer.rows[0].Link)
	assert.Contains(t, result.File, "cleaned_2025-01-05_to_2025-01-06.xlsx")
}

func TestMergerThresholdBoundary(t *testing.T) {
	// Ratio("abcd", "abcdef") is exactly 80; with the >= rule that is a
	// duplicate. Ratio("abcd", "abcdefg") is 73, so both survive.
	tests := []struct {
		name     string
		newer    string
		older    string
		wantKept int
	}{
		{"at threshold is duplicate", "abcd", "abcdef", 1},
		{"below threshold keeps both", "abcd", "abcdefg", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{runs: []models.RunRecord{
				run("2025-01-05", "snap-05"),
				run("2025-01-06", "snap-06"),
			}}
			reader := &fakeReader{tables: map[string]*models.SnapshotTable{
				"snap-05": {
					Header: snapshotHeaderRow(),
					Rows:   [][]string{snapshotRow("2025-01-05", tt.older, "100", "l1")},
				},
				"snap-06": {
					Header: snapshotHeaderRow(),
					Rows:   [][]string{snapshotRow("2025-01-06", tt.newer, "200", "l2")},
				},
			}}
			writer := &captureWriter{}

			result := newTestMerger(ledger, reader, writer, 80).Cleanup(day("2025-01-05"), day("2025-01-06"))

			require.True(t, result.Success, result.Message)
			require.Len(t, writer.rows, tt.wantKept)
			// The newer record always survives.
			assert.Equal(t, tt.newer, writer.rows[0].Title)
		})
	}
}

func TestMergerOrdersOutputByDateDescending(t *testing.T) {
	ledger := &fakeLedger{runs: []models.RunRecord{
		run("2025-01-05", "snap-05"),
		run("2025-01-07", "snap-07"),
	}}
	reader := &fakeReader{tables: map[string]*models.SnapshotTable{
		"snap-05": {
			Header: snapshotHeaderRow(),
			Rows: [][]string{
				snapshotRow("2025-01-05", "Beachfront villa in Unawatuna", "1", "l1"),
				snapshotRow("2025-01-05", "City apartment near the fort", "2", "l2"),
			},
		},
		"snap-07": {
			Header: snapshotHeaderRow(),
			Rows:   [][]string{snapshotRow("2025-01-07", "Hillside bungalow with tea estate", "3", "l3")},
		},
	}}
	writer := &captureWriter{}

	result := newTestMerger(ledger, reader, writer, 80).Cleanup(day("2025-01-05"), day("2025-01-07"))

	require.True(t, result.Success, result.Message)
	require.Len(t, writer.rows, 3)
	assert.Equal(t, "2025-01-07", writer.rows[0].Date)
	assert.Equal(t, "2025-01-05", writer.rows[1].Date)
	assert.Equal(t, "2025-01-05", writer.rows[2].Date)
}

func TestMergerEmptyRangeFails(t *testing.T) {
	ledger := &fakeLedger{runs: []models.RunRecord{run("2025-01-05", "snap-05")}}
	writer := &captureWriter{}

	result := newTestMerger(ledger, &fakeReader{}, writer, 80).Cleanup(day("2025-02-01"), day("2025-02-28"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "No snapshots found")
	assert.Zero(t, writer.calls)
	assert.Empty(t, result.File)
}

func TestMergerEmptySnapshotsFail(t *testing.T) {
	ledger := &fakeLedger{runs: []models.RunRecord{run("2025-01-05", "snap-05")}}
	reader := &fakeReader{tables: map[string]*models.SnapshotTable{
		"snap-05": {Header: snapshotHeaderRow()},
	}}
	writer := &captureWriter{}

	result := newTestMerger(ledger, reader, writer, 80).Cleanup(day("2025-01-05"), day("2025-01-05"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "No data found")
	assert.Zero(t, writer.calls)
}

func TestMergerMissingColumnIsHardFailure(t *testing.T) {
	ledger := &fakeLedger{runs: []models.RunRecord{run("2025-01-05", "snap-05")}}
	reader := &fakeReader{tables: map[string]*models.SnapshotTable{
		"snap-05": {
			Header: []string{"Area Slug", "Date", "Location", "Description", "Details", "Price", "Agent Name", "URL", "Note"},
			Rows:   [][]string{{"ampara", "2025-01-05", "Ampara", "desc", "3 beds", "100", "Agent", "l1", ""}},
		},
	}}
	writer := &captureWriter{}

	result := newTestMerger(ledger, reader, writer, 80).Cleanup(day("2025-01-05"), day("2025-01-05"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, `"Title"`)
	assert.Zero(t, writer.calls)
}

func TestMergerIdempotentRegeneration(t *testing.T) {
	ledger := &fakeLedger{runs: []models.RunRecord{
		run("2025-01-05", "snap-05"),
		run("2025-01-06", "snap-06"),
	}}
	reader := &fakeReader{tables: map[string]*models.SnapshotTable{
		"snap-05": {
			Header: snapshotHeaderRow(),
			Rows: [][]string{
				snapshotRow("2025-01-05", "Nice House For Sale!!", "19500000", "l1"),
				snapshotRow("2025-01-05", "Colonial manor with garden", "25000000", "l2"),
			},
		},
		"snap-06": {
			Header: snapshotHeaderRow(),
			Rows:   [][]string{snapshotRow("2025-01-06", "nice house for sale", "19600000", "l3")},
		},
	}}
	writer := &captureWriter{}
	merger := newTestMerger(ledger, reader, writer, 80)

	first := merger.Cleanup(day("2025-01-05"), day("2025-01-06"))
	require.True(t, first.Success, first.Message)
	firstRows := writer.rows
	firstPath := writer.path

	second := merger.Cleanup(day("2025-01-05"), day("2025-01-06"))
	require.True(t, second.Success, second.Message)

	assert.Equal(t, firstRows, writer.rows)
	assert.Equal(t, firstPath, writer.path)
	assert.Equal(t, 2, writer.calls)
}

func TestMergerReadsEachSnapshotOnce(t *testing.T) {
	// Two runs on the same day share a snapshot; its rows must not be
	// merged twice.
	ledger := &fakeLedger{runs: []models.RunRecord{
		run("2025-01-05", "snap-05"),
		run("2025-01-05", "snap-05"),
	}}
	reader := &fakeReader{tables: map[string]*models.SnapshotTable{
		"snap-05": {
			Header: snapshotHeaderRow(),
			Rows:   [][]string{snapshotRow("2025-01-05", "Lakeside cottage", "1", "l1")},
		},
	}}
	writer := &captureWriter{}

	result := newTestMerger(ledger, reader, writer, 80).Cleanup(day("2025-01-05"), day("2025-01-05"))

	require.True(t, result.Success, result.Message)
	assert.Len(t, writer.rows, 1)
}

func TestMergerMirrorFailureDoesNotFailMerge(t *testing.T) {
	ledger := &fakeLedger{runs: []models.RunRecord{run("2025-01-05", "snap-05")}}
	reader := &fakeReader{tables: map[string]*models.SnapshotTable{
		"snap-05": {
			Header: snapshotHeaderRow(),
			Rows:   [][]string{snapshotRow("2025-01-05", "Lakeside cottage", "1", "l1")},
		},
	}}
	writer := &captureWriter{}
	merger := newTestMerger(ledger, reader, writer, 80)
	merger.SetMirror(&captureMirror{err: errors.New("connection refused")})

	result := merger.Cleanup(day("2025-01-05"), day("2025-01-05"))

	assert.True(t, result.Success, result.Message)
	assert.Equal(t, 1, writer.calls)
}

func TestMergerMirrorsCleanedRows(t *testing.T) {
	ledger := &fakeLedger{runs: []models.RunRecord{run("2025-01-05", "snap-05")}}
	reader := &fakeReader{tables: map[string]*models.SnapshotTable{
		"snap-05": {
			Header: snapshotHeaderRow(),
			Rows:   [][]string{snapshotRow("2025-01-05", "Lakeside cottage", "1", "l1")},
		},
	}}
	writer := &captureWriter{}
	mirror := &captureMirror{}
	merger := newTestMerger(ledger, reader, writer, 80)
	merger.SetMirror(mirror)

	result := merger.Cleanup(day("2025-01-05"), day("2025-01-05"))

	require.True(t, result.Success, result.Message)
	assert.Equal(t, writer.rows, mirror.rows)
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Nice House For Sale!!", "nice house for sale"},
		{"  NICE   house,  for sale  ", "nice house for sale"},
		{"LUXURY 2-storey (brand new)", "luxury 2storey brand new"},
		{"තනි තට්ටු නිවස", "තනි තට්ටු නිවස"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTitle(tt.raw), "raw=%q", tt.raw)
	}
}
