package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

const (
	metadataFile = "metadata.json"
	logFile      = "log.csv"
)

// Store keeps one directory per run holding metadata.json and log.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Name() string { return "csv" }

// Dir is the directory a run is written to.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func (s *Store) Write(_ context.Context, meta RunMetadata, t Table) error {
	runDir := s.Dir(meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(runDir, logFile))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(t.Columns); err != nil {
		return err
	}

	record := make([]string, len(t.Columns))
	for i := 0; i < t.Rows; i++ {
		for j, c := range t.Columns {
			v := t.Data[c][i]
			if math.IsNaN(v) {
				record[j] = ""
				continue
			}
			record[j] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every stored run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTable reads a run's log back. Empty cells load as NaN.
func (s *Store) LoadTable(runID string) (Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, logFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Table{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return Table{}, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, err
	}
	if len(records) == 0 {
		return Table{Data: map[string][]float64{}}, nil
	}

	t := Table{
		Columns: records[0],
		Data:    make(map[string][]float64, len(records[0])),
		Rows:    len(records) - 1,
	}
	for _, c := range t.Columns {
		t.Data[c] = make([]float64, 0, t.Rows)
	}
	for _, record := range records[1:] {
		for j, c := range t.Columns {
			v := math.NaN()
			if record[j] != "" {
				if v, err = strconv.ParseFloat(record[j], 64); err != nil {
					return Table{}, fmt.Errorf("row %d column %s: %w", len(t.Data[c])+1, c, err)
				}
			}
			t.Data[c] = append(t.Data[c], v)
		}
	}
	return t, nil
}
