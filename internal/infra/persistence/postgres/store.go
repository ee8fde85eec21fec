// Package postgres keeps survey and measurement records in Postgres, one JSONB
// payload per row keyed by dataset.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ecoresiduos/internal/records"
)

const defaultDSN = "postgres://localhost/ecoresiduos?sslmode=disable"

var newPool = pgxpool.New

const schema = `CREATE TABLE IF NOT EXISTS records (
	id BIGSERIAL PRIMARY KEY,
	dataset TEXT NOT NULL,
	payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS records_dataset_idx ON records(dataset)`

// Store implements records.Source on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// DatasetInfo summarises one stored dataset.
type DatasetInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Open connects using dsn (falls back to a local default), pings the server
// and ensures the records table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Load returns the records of dataset in insertion order.
func (s *Store) Load(ctx context.Context, dataset string) ([]records.Record, error) {
	rows, err := s.pool.Query(ctx, `select payload from records where dataset = $1 order by id`, dataset)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	payloads, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return decodePayloads(dataset, payloads)
}

// Import copies rows under dataset in one transaction. With replace set the
// dataset's previous rows are removed first.
func (s *Store) Import(ctx context.Context, dataset string, rows []records.Record, replace bool) error {
	if dataset == "" {
		return fmt.Errorf("dataset required")
	}
	src, err := copyRows(dataset, rows)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if replace {
			if _, err := tx.Exec(ctx, `delete from records where dataset = $1`, dataset); err != nil {
				return fmt.Errorf("clear %s: %w", dataset, err)
			}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"records"}, []string{"dataset", "payload"}, pgx.CopyFromRows(src)); err != nil {
			return fmt.Errorf("copy records: %w", err)
		}
		return nil
	})
}

// Datasets lists stored datasets with their row counts.
func (s *Store) Datasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.pool.Query(ctx, `select dataset, count(*)::int from records group by dataset order by dataset`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DatasetInfo, error) {
		var d DatasetInfo
		err := row.Scan(&d.Name, &d.Count)
		return d, err
	})
}

func copyRows(dataset string, rows []records.Record) ([][]any, error) {
	out := make([][]any, len(rows))
	for i, r := range rows {
		payload, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		out[i] = []any{dataset, json.RawMessage(payload)}
	}
	return out, nil
}

func decodePayloads(dataset string, payloads [][]byte) ([]records.Record, error) {
	out := make([]records.Record, 0, len(payloads))
	for _, p := range payloads {
		var r records.Record
		if err := json.Unmarshal(p, &r); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", dataset, err)
		}
		out = append(out, r)
	}
	return out, nil
}
