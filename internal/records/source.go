package records

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Source loads the full record collection of a dataset.
type Source interface {
	Load(ctx context.Context, dataset string) ([]Record, error)
}

// MemorySource serves records held in process memory. Intended for tests and
// for callers that already fetched rows elsewhere.
type MemorySource struct {
	mu       sync.RWMutex
	datasets map[string][]Record
}

// NewMemorySource returns an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{datasets: make(map[string][]Record)}
}

// Put replaces the rows of a dataset.
func (s *MemorySource) Put(dataset string, rows []Record) {
	s.mu.Lock()
	s.datasets[dataset] = append([]Record(nil), rows...)
	s.mu.Unlock()
}

// Load returns a copy of the dataset slice. Unknown datasets are empty.
func (s *MemorySource) Load(_ context.Context, dataset string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.datasets[dataset]...), nil
}

// FileSource reads `<dir>/<dataset>.json` or `<dir>/<dataset>.csv`.
type FileSource struct {
	fs  afero.Fs
	dir string
}

// NewFileSource returns a source reading from dir on the given filesystem.
func NewFileSource(fs afero.Fs, dir string) *FileSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSource{fs: fs, dir: dir}
}

// Load reads the dataset file, preferring JSON when both exist.
func (s *FileSource) Load(_ context.Context, dataset string) ([]Record, error) {
	if strings.ContainsAny(dataset, `/\`) || strings.Contains(dataset, "..") {
		return nil, fmt.Errorf("invalid dataset name %q", dataset)
	}
	for _, ext := range []string{".json", ".csv"} {
		path := filepath.Join(s.dir, dataset+ext)
		ok, err := afero.Exists(s.fs, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		data, err := afero.ReadFile(s.fs, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if ext == ".json" {
			return DecodeJSON(bytes.NewReader(data))
		}
		return DecodeCSV(bytes.NewReader(data))
	}
	return nil, fmt.Errorf("dataset %s not found in %s", dataset, s.dir)
}

// DecodeJSON parses a JSON array of objects.
func DecodeJSON(r io.Reader) ([]Record, error) {
	var rows []Record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return rows, nil
}

// DecodeCSV parses a CSV document whose first row names the fields. A leading
// byte-order mark is ignored. Values stay strings; Record.Number converts on read.
func DecodeCSV(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[strings.TrimSpace(name)] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
