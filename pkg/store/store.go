// pkg/store/store.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"campushours/pkg/hours"
	"campushours/pkg/log"
)

// Store is the SQLite persistence gateway: full-replace hour writes plus an
// append-only scrape log.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the SQLite file at path, creating the directory if
// needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS facilities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL UNIQUE,
	website_url TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS facility_hours (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	facility_id INTEGER NOT NULL,
	section_name TEXT NOT NULL,
	day_of_week TEXT NOT NULL,
	open_time TEXT,
	close_time TEXT,
	is_closed BOOLEAN DEFAULT FALSE,
	route TEXT,
	notes TEXT,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (facility_id) REFERENCES facilities (id)
);
CREATE TABLE IF NOT EXISTS scrape_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	facility_type TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT,
	scraped_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Migrate creates the tables and seeds the facility rows.
func (s *Store) Migrate(facilities []hours.Facility) error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	for _, facility := range facilities {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO facilities (name, type, website_url) VALUES (?, ?, ?)`,
			facility.Name, string(facility.Type), facility.URL,
		)
		if err != nil {
			return fmt.Errorf("seeding facility %s: %w", facility.Type, err)
		}
	}
	return nil
}

// transaction executes fn inside one transaction, rolling back on error.
func (s *Store) transaction(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) facilityID(facilityType hours.FacilityType) (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM facilities WHERE type = ?`, string(facilityType)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("facility %q not found: %w", facilityType, err)
	}
	return id, nil
}

// ReplaceFacilityHours atomically deletes a facility's stored hours and
// inserts the new set. On any failure the old rows survive untouched.
func (s *Store) ReplaceFacilityHours(ctx context.Context, facilityType hours.FacilityType, entries []hours.Entry) error {
	facilityID, err := s.facilityID(facilityType)
	if err != nil {
		return err
	}

	return s.transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM facility_hours WHERE facility_id = ?`, facilityID); err != nil {
			return fmt.Errorf("deleting old hours: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO facility_hours
				(facility_id, section_name, day_of_week, open_time, close_time, is_closed, route, notes, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, entry := range entries {
			_, err := stmt.ExecContext(ctx,
				facilityID, entry.Section, string(entry.Day),
				entry.Open, entry.Close, entry.Closed,
				nullable(entry.Route), nullable(entry.Notes))
			if err != nil {
				return fmt.Errorf("inserting hours for %s/%s: %w", entry.Section, entry.Day, err)
			}
		}
		return nil
	})
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// FacilityHours reads a facility's stored entries back, ordered by section
// then day of week.
func (s *Store) FacilityHours(ctx context.Context, facilityType hours.FacilityType) ([]hours.Entry, error) {
	facilityID, err := s.facilityID(facilityType)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT section_name, day_of_week, open_time, close_time, is_closed, route, notes
		FROM facility_hours
		WHERE facility_id = ?
		ORDER BY section_name,
			CASE day_of_week
				WHEN 'Sunday' THEN 0 WHEN 'Monday' THEN 1 WHEN 'Tuesday' THEN 2
				WHEN 'Wednesday' THEN 3 WHEN 'Thursday' THEN 4 WHEN 'Friday' THEN 5
				WHEN 'Saturday' THEN 6
			END`, facilityID)
	if err != nil {
		return nil, fmt.Errorf("querying hours: %w", err)
	}
	defer rows.Close()

	var entries []hours.Entry
	for rows.Next() {
		var entry hours.Entry
		var day string
		var route, notes sql.NullString
		if err := rows.Scan(&entry.Section, &day, &entry.Open, &entry.Close, &entry.Closed, &route, &notes); err != nil {
			return nil, fmt.Errorf("scanning hours row: %w", err)
		}
		entry.Facility = facilityType
		entry.Day = hours.Day(day)
		entry.Route = route.String
		entry.Notes = notes.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AppendScrapeLog records one phase transition. It is best-effort: a logging
// failure warns and never fails the caller.
func (s *Store) AppendScrapeLog(ctx context.Context, facilityType hours.FacilityType, status hours.ScrapeStatus, message string) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_log (facility_type, status, message) VALUES (?, ?, ?)`,
		string(facilityType), string(status), message)
	if err != nil {
		log.L().Warn("scrape_log_append_failed", zap.Error(err))
	}
}

// ScrapeLogRecord is one stored audit row.
type ScrapeLogRecord struct {
	Facility hours.FacilityType
	Status   hours.ScrapeStatus
	Message  string
	At       time.Time
}

// RecentScrapeLogs returns the newest audit rows, most recent first.
func (s *Store) RecentScrapeLogs(ctx context.Context, limit int) ([]ScrapeLogRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT facility_type, status, message, scraped_at FROM scrape_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying scrape log: %w", err)
	}
	defer rows.Close()

	var records []ScrapeLogRecord
	for rows.Next() {
		var record ScrapeLogRecord
		var facility, status string
		var message sql.NullString
		if err := rows.Scan(&facility, &status, &message, &record.At); err != nil {
			return nil, fmt.Errorf("scanning scrape log row: %w", err)
		}
		record.Facility = hours.FacilityType(facility)
		record.Status = hours.ScrapeStatus(status)
		record.Message = message.String
		records = append(records, record)
	}
	return records, rows.Err()
}
