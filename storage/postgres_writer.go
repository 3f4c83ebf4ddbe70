package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/chanakanakandala/ikman-lk-housing-data/models"
)

// PostgresWriter mirrors cleaned dataset rows to PostgreSQL so they can be
// queried alongside the xlsx artifacts.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS cleaned_listings (
			id        SERIAL PRIMARY KEY,
			location  TEXT        NOT NULL DEFAULT '',
			date      VARCHAR(10) NOT NULL DEFAULT '',
			title     TEXT        NOT NULL,
			price     BIGINT      NOT NULL DEFAULT 0,
			link      TEXT        UNIQUE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cleaned_listings_price    ON cleaned_listings(price);
		CREATE INDEX IF NOT EXISTS idx_cleaned_listings_location ON cleaned_listings(location);
		CREATE INDEX IF NOT EXISTS idx_cleaned_listings_date     ON cleaned_listings(date);
	`)
	return err
}

// Clear deletes all existing rows from the table.
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM cleaned_listings")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Mirror replaces the stored dataset with the given rows, clearing old data
// first so regeneration stays idempotent.
func (pw *PostgresWriter) Mirror(rows []models.CleanedRow) error {
	if len(rows) == 0 {
		return nil
	}

	if err := pw.Clear(); err != nil {
		return err
	}

	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := pw.insertBatch(rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []models.CleanedRow) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*5)

	for idx, r := range batch {
		base := idx * 5
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5))
		valueArgs = append(valueArgs, r.Location, r.Date, r.Title, r.Price, r.Link)
	}

	query := fmt.Sprintf(`
		INSERT INTO cleaned_listings (location, date, title, price, link)
		VALUES %s
		ON CONFLICT (link) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
