package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RunMetadata describes a stored run.
type RunMetadata struct {
	ID         string             `json:"id"`
	Mode       string             `json:"mode"`
	Mission    string             `json:"mission"`
	Platforms  []string           `json:"platforms"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Phases     []float64          `json:"phases"`
	Integrator string             `json:"integrator"`
	Allocator  string             `json:"allocator"`
	Rows       int                `json:"rows"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Sink persists a finished run.
type Sink interface {
	Name() string
	Write(ctx context.Context, meta RunMetadata, t Table) error
}

// NewRunID builds a sortable, unique run id.
func NewRunID(mode string, start time.Time) string {
	id := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s_%s_%s", mode, start.Format("20060102_150405"), id)
}

// FlushAll writes the table to every sink concurrently. A failing sink does
// not cancel the others; all failures are joined, each wrapped with the
// sink's name.
func FlushAll(ctx context.Context, meta RunMetadata, t Table, sinks ...Sink) error {
	var g errgroup.Group
	errs := make([]error, len(sinks))
	for i, s := range sinks {
		g.Go(func() error {
			if err := s.Write(ctx, meta, t); err != nil {
				errs[i] = fmt.Errorf("flushing to %s: %w", s.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
