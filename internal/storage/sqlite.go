package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RunRecord is the runs table.
type RunRecord struct {
	ID        string `gorm:"primaryKey"`
	Mode      string
	Mission   string
	Platforms string
	StartedAt time.Time
	Duration  float64
	Rows      int
	Metadata  string
}

// SampleRecord is one cell of a run log in long format.
type SampleRecord struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    string `gorm:"index:idx_run_column"`
	Name     string `gorm:"index:idx_run_column"`
	RowIndex int
	Value    float64
}

// SQLite writes runs into a single database file through gorm.
type SQLite struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// OpenSQLite opens or creates the database at path. An empty path uses a
// shared in-memory database.
func OpenSQLite(path string, log zerolog.Logger) (*SQLite, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", path, err)
	}
	if err := db.AutoMigrate(&RunRecord{}, &SampleRecord{}); err != nil {
		return nil, fmt.Errorf("migrating sqlite schema: %w", err)
	}
	log = log.With().Str("component", "sqlite").Logger()
	log.Debug().Str("path", dsn).Msg("sqlite log backend ready")
	return &SQLite{db: db, logger: log}, nil
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Write(ctx context.Context, meta RunMetadata, t Table) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	run := RunRecord{
		ID:        meta.ID,
		Mode:      meta.Mode,
		Mission:   meta.Mission,
		Platforms: strings.Join(meta.Platforms, ","),
		StartedAt: meta.Timestamp,
		Duration:  meta.Duration,
		Rows:      t.Rows,
		Metadata:  string(raw),
	}

	samples := make([]SampleRecord, 0, t.Rows*len(t.Columns))
	for _, c := range t.Columns {
		for i, v := range t.Data[c] {
			if math.IsNaN(v) {
				continue
			}
			samples = append(samples, SampleRecord{RunID: meta.ID, Name: c, RowIndex: i, Value: v})
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(samples) == 0 {
			return nil
		}
		return tx.CreateInBatches(samples, 2000).Error
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("run", meta.ID).Int("cells", len(samples)).Msg("run written to sqlite")
	return nil
}

// Runs lists stored runs, newest first.
func (s *SQLite) Runs(ctx context.Context) ([]RunRecord, error) {
	var runs []RunRecord
	err := s.db.WithContext(ctx).Order("started_at desc").Find(&runs).Error
	return runs, err
}

// Column reads one column of a stored run in row order.
func (s *SQLite) Column(ctx context.Context, runID, column string) ([]float64, error) {
	var samples []SampleRecord
	err := s.db.WithContext(ctx).
		Where("run_id = ? AND name = ?", runID, column).
		Order("row_index").
		Find(&samples).Error
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(samples))
	for i, smp := range samples {
		out[i] = smp.Value
	}
	return out, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
