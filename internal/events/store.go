package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"stereowatch/internal/config"
	"stereowatch/internal/sessions"
)

// Record is one persisted mode transition.
type Record struct {
	ID                    string             `json:"id"`
	EndpointID            string             `json:"endpoint_id"`
	EndpointName          string             `json:"endpoint_name"`
	Previous              string             `json:"previous"`
	Current               string             `json:"current"`
	At                    time.Time          `json:"at"`
	Sessions              []sessions.Session `json:"sessions,omitempty"`
	AttributionIncomplete bool               `json:"attribution_incomplete,omitempty"`
}

// Store manages mode event persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the event database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.EventDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save persists one transition record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	var sessionsJSON any
	if len(rec.Sessions) > 0 {
		data, err := json.Marshal(rec.Sessions)
		if err != nil {
			return fmt.Errorf("marshal sessions: %w", err)
		}
		sessionsJSON = string(data)
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO mode_events (
            id, endpoint_id, endpoint_name, previous_state, current_state,
            occurred_at, sessions_json, attribution_incomplete
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.EndpointID,
		rec.EndpointName,
		rec.Previous,
		rec.Current,
		rec.At.UTC().Format(time.RFC3339Nano),
		sessionsJSON,
		boolToInt(rec.AttributionIncomplete),
	)
	if err != nil {
		return fmt.Errorf("insert mode event: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, endpoint_id, endpoint_name, previous_state, current_state,
                occurred_at, sessions_json, attribution_incomplete
         FROM mode_events ORDER BY occurred_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query mode events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ForEndpoint returns the newest records for one endpoint, most recent first.
func (s *Store) ForEndpoint(ctx context.Context, endpointID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, endpoint_id, endpoint_name, previous_state, current_state,
                occurred_at, sessions_json, attribution_incomplete
         FROM mode_events WHERE endpoint_id = ? ORDER BY occurred_at DESC LIMIT ?`,
		endpointID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query endpoint events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneOlderThan deletes records that occurred before cutoff.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM mode_events WHERE occurred_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune mode events: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all records.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mode_events`)
	if err != nil {
		return 0, fmt.Errorf("clear mode events: %w", err)
	}
	return res.RowsAffected()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec          Record
		occurredRaw  string
		sessionsJSON sql.NullString
		incomplete   int
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.EndpointID,
		&rec.EndpointName,
		&rec.Previous,
		&rec.Current,
		&occurredRaw,
		&sessionsJSON,
		&incomplete,
	); err != nil {
		return Record{}, fmt.Errorf("scan mode event: %w", err)
	}

	if at, err := time.Parse(time.RFC3339Nano, occurredRaw); err == nil {
		rec.At = at
	}
	if sessionsJSON.Valid && sessionsJSON.String != "" {
		if err := json.Unmarshal([]byte(sessionsJSON.String), &rec.Sessions); err != nil {
			return Record{}, fmt.Errorf("unmarshal sessions: %w", err)
		}
	}
	rec.AttributionIncomplete = incomplete != 0
	return rec, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
