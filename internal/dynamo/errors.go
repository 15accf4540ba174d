package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors shared across the control stack.
var (
	// ErrInvalidState indicates a state with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a physical parameter outside its valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates a vector with the wrong number of entries.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")
)

// TickError wraps an error with control-loop context.
type TickError struct {
	Tick     int
	Time     float64
	Platform string
	Wrapped  error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d (t=%.4f) %s: %v", e.Tick, e.Time, e.Platform, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
