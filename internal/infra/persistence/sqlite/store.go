// Package sqlite keeps survey and measurement records in a local SQLite file,
// one JSON payload per row keyed by dataset.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register the pure go sqlite driver

	"ecoresiduos/internal/records"
)

var sqlOpen = sql.Open

const schema = `CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset TEXT NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS records_dataset_idx ON records(dataset);`

// Store implements records.Source on SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// DatasetInfo summarises one stored dataset.
type DatasetInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Open opens or creates the database at path. ":memory:" keeps it in RAM.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "ecoresiduos.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sqlOpen("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Load returns the records of dataset in insertion order.
func (s *Store) Load(ctx context.Context, dataset string) ([]records.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM records WHERE dataset = ? ORDER BY id`, dataset)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []records.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var r records.Record
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", dataset, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Import stores rows under dataset in one transaction. With replace set the
// dataset's previous rows are removed first.
func (s *Store) Import(ctx context.Context, dataset string, rows []records.Record, replace bool) (retErr error) {
	if dataset == "" {
		return fmt.Errorf("dataset required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE dataset = ?`, dataset); err != nil {
			return fmt.Errorf("clear %s: %w", dataset, err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records(dataset, payload) VALUES(?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for i, r := range rows {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, dataset, payload); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Datasets lists stored datasets with their row counts.
func (s *Store) Datasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dataset, COUNT(*) FROM records GROUP BY dataset ORDER BY dataset`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []DatasetInfo
	for rows.Next() {
		var d DatasetInfo
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
