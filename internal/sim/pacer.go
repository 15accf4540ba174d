package sim

import (
	"context"
	"time"
)

// Pacer decides when the next tick starts.
type Pacer interface {
	Wait(ctx context.Context, tickStart time.Time) error
}

// FreeRun starts the next tick immediately.
type FreeRun struct{}

func (FreeRun) Wait(ctx context.Context, _ time.Time) error { return ctx.Err() }

// Periodic sleeps out the remainder of each period.
type Periodic struct {
	Period time.Duration
}

func (p Periodic) Wait(ctx context.Context, tickStart time.Time) error {
	d := time.Until(tickStart.Add(p.Period))
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Acquisition waits for the next sensor update, or at most Timeout.
type Acquisition struct {
	Updated <-chan struct{}
	Timeout time.Duration
}

func (a Acquisition) Wait(ctx context.Context, _ time.Time) error {
	timer := time.NewTimer(a.Timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.Updated:
		return nil
	case <-timer.C:
		return nil
	}
}
