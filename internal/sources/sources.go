// Package sources selects the record backend named by configuration.
package sources

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"ecoresiduos/internal/config"
	"ecoresiduos/internal/infra/persistence/postgres"
	"ecoresiduos/internal/infra/persistence/sqlite"
	"ecoresiduos/internal/records"
)

// Driver identifies a concrete record backend.
type Driver string

const (
	DriverFile     Driver = "file"     // JSON/CSV files under a directory
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverMemory   Driver = "memory"   // in-process only (tests / ephemeral)
)

// Store is a record source that owns resources.
type Store interface {
	records.Source
	Close() error
}

// Importer is implemented by stores that accept imported rows.
type Importer interface {
	Import(ctx context.Context, dataset string, rows []records.Record, replace bool) error
}

var (
	_ Importer = (*sqlite.Store)(nil)
	_ Importer = (*postgres.Store)(nil)
	_ Importer = (*memoryStore)(nil)
)

// Open returns the store for cfg.Driver. An empty driver means file.
func Open(ctx context.Context, cfg config.RecordsConfig) (Store, error) {
	return OpenFs(ctx, afero.NewOsFs(), cfg)
}

// OpenFs is Open with the filesystem used by the file driver.
func OpenFs(ctx context.Context, fs afero.Fs, cfg config.RecordsConfig) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFile
	}
	switch driver {
	case DriverFile:
		return nopCloser{records.NewFileSource(fs, cfg.Path)}, nil
	case DriverMemory:
		return &memoryStore{records.NewMemorySource()}, nil
	case DriverSQLite:
		return sqlite.Open(ctx, cfg.Path)
	case DriverPostgres:
		return postgres.Open(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown records driver %s", cfg.Driver)
	}
}

type nopCloser struct{ records.Source }

func (nopCloser) Close() error { return nil }

type memoryStore struct{ *records.MemorySource }

func (*memoryStore) Close() error { return nil }

func (m *memoryStore) Import(_ context.Context, dataset string, rows []records.Record, replace bool) error {
	if !replace {
		existing, _ := m.Load(context.Background(), dataset)
		rows = append(existing, rows...)
	}
	m.Put(dataset, rows)
	return nil
}
