package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"

	"github.com/chanakanakandala/ikman-lk-housing-data/models"
	"github.com/chanakanakandala/ikman-lk-housing-data/storage"
)

// requiredColumns must be present in every source snapshot; a missing one
// is schema drift and fails the whole merge.
var requiredColumns = []string{"Location", "Date", "Title", "Price", "URL"}

// Merger combines the snapshots covering a date interval into one cleaned
// dataset, removing fuzzy title duplicates with a recency-wins policy: the
// most recently observed occurrence of a listing survives.
type Merger struct {
	ledger    storage.RunLedger
	reader    storage.SnapshotReader
	writer    storage.CleanedWriter
	mirror    storage.CleanedMirror
	threshold int
	outDir    string
	logger    *zap.SugaredLogger
}

// NewMerger creates a Merger. threshold is the 0-100 similarity ratio at or
// above which two normalized titles count as the same listing.
func NewMerger(
	ledger storage.RunLedger,
	reader storage.SnapshotReader,
	writer storage.CleanedWriter,
	threshold int,
	outDir string,
	logger *zap.SugaredLogger,
) *Merger {
	return &Merger{
		ledger:    ledger,
		reader:    reader,
		writer:    writer,
		threshold: threshold,
		outDir:    outDir,
		logger:    logger,
	}
}

// SetMirror attaches an optional secondary sink that receives the cleaned
// rows after the file is written.
func (m *Merger) SetMirror(mirror storage.CleanedMirror) {
	m.mirror = mirror
}

// mergeRow is one snapshot row lifted into typed form for sorting and
// projection.
type mergeRow struct {
	location string
	dateText string
	title    string
	price    int
	link     string
	date     time.Time
	hasDate  bool
}

// Cleanup merges all snapshots whose runs fall in [start, end] inclusive.
// Domain failures (empty range, schema drift) come back as an unsuccessful
// result rather than an error; nothing is written in those cases.
func (m *Merger) Cleanup(start, end time.Time) models.CleanupResult {
	runs, err := m.ledger.InRange(start, end)
	if err != nil {
		return failure(fmt.Sprintf("Failed to read run history: %v", err))
	}
	if len(runs) == 0 {
		return failure("No snapshots found for the selected date range.")
	}

	seen := make(map[string]struct{}, len(runs))
	var rows []mergeRow
	for _, run := range runs {
		if _, dup := seen[run.SnapshotFile]; dup {
			continue
		}
		seen[run.SnapshotFile] = struct{}{}

		table, err := m.reader.Read(run.SnapshotFile)
		if err != nil {
			return failure(fmt.Sprintf("Failed to read snapshot %s: %v", run.SnapshotFile, err))
		}
		fileRows, err := extractRows(table)
		if err != nil {
			return failure(fmt.Sprintf("Snapshot %s: %v", run.SnapshotFile, err))
		}
		rows = append(rows, fileRows...)
	}
	if len(rows) == 0 {
		return failure("No data found in the selected snapshots.")
	}

	// Newest first. This ordering decides which of two fuzzy-matching
	// titles survives, so it must happen before deduplication. Rows with
	// unparseable dates sort last.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].hasDate != rows[j].hasDate {
			return rows[i].hasDate
		}
		return rows[i].date.After(rows[j].date)
	})

	kept := make([]string, 0, len(rows))
	out := make([]models.CleanedRow, 0, len(rows))
	for _, r := range rows {
		norm := NormalizeTitle(r.title)
		if m.isDuplicate(norm, kept) {
			continue
		}
		kept = append(kept, norm)
		out = append(out, models.CleanedRow{
			Location: r.location,
			Date:     r.dateText,
			Title:    r.title,
			Price:    r.price,
			Link:     r.link,
		})
	}

	m.logger.Infof("[merge] %d rows in, %d kept after fuzzy dedup (threshold %d)",
		len(rows), len(out), m.threshold)

	path := filepath.Join(m.outDir, storage.CleanedFileName(start, end))
	if err := m.writer.Write(out, path); err != nil {
		return failure(fmt.Sprintf("Error while saving cleaned file: %v", err))
	}

	if m.mirror != nil {
		if err := m.mirror.Mirror(out); err != nil {
			// The file artifact is already written; a mirror failure
			// downgrades to a warning.
			m.logger.Warnf("[merge] mirror write failed: %v", err)
		}
	}

	return models.CleanupResult{
		Success: true,
		Message: fmt.Sprintf("Cleanup complete. %d records in final file.", len(out)),
		File:    path,
	}
}

func (m *Merger) isDuplicate(norm string, kept []string) bool {
	for _, k := range kept {
		if fuzzy.Ratio(norm, k) >= m.threshold {
			return true
		}
	}
	return false
}

// extractRows maps a snapshot table's named columns into typed rows,
// failing if any required column is absent.
func extractRows(table *models.SnapshotTable) ([]mergeRow, error) {
	idx := make(map[string]int, len(table.Header))
	for i, name := range table.Header {
		idx[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q, cannot remove duplicates", col)
		}
	}

	cell := func(row []string, col string) string {
		// GetRows trims trailing empty cells, so rows can be shorter
		// than the header.
		if i := idx[col]; i < len(row) {
			return row[i]
		}
		return ""
	}

	rows := make([]mergeRow, 0, len(table.Rows))
	for _, raw := range table.Rows {
		r := mergeRow{
			location: cell(raw, "Location"),
			dateText: cell(raw, "Date"),
			title:    cell(raw, "Title"),
			link:     cell(raw, "URL"),
		}
		if n, err := strconv.Atoi(cell(raw, "Price")); err == nil {
			r.price = n
		}
		if d, err := time.Parse("2006-01-02", r.dateText); err == nil {
			r.date = d
			r.hasDate = true
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// NormalizeTitle lowercases a title, strips everything but letters, digits
// and whitespace, and collapses whitespace runs. Used only for comparison;
// output rows keep the original title.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func failure(msg string) models.CleanupResult {
	return models.CleanupResult{Success: false, Message: msg}
}
