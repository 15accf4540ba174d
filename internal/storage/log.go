// Package storage holds the per-run columnar log and the backends it is
// flushed to at shutdown.
package storage

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/spotlab/internal/dynamo"
)

// DefaultCapacity is the number of rows pre-allocated per column.
const DefaultCapacity = 1000

var (
	ErrUnknownPlatform = errors.New("storage: platform has no columns in this log")
	ErrNoColumns       = errors.New("storage: log needs at least one platform")
	ErrRunNotFound     = errors.New("storage: run not found")
)

// Entry is one platform's values for one tick.
type Entry struct {
	Platform dynamo.Platform
	State    dynamo.State
	Duty     dynamo.Duty
	Channels dynamo.Channels
	Inertial *[6]float64
}

// Table is a by-value snapshot of a log, truncated to the rows written.
type Table struct {
	Columns []string
	Data    map[string][]float64
	Rows    int
}

// Column returns the named column or nil.
func (t Table) Column(name string) []float64 { return t.Data[name] }

// Row returns row i in column order.
func (t Table) Row(i int) []float64 {
	row := make([]float64, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = t.Data[c][i]
	}
	return row
}

var stateColumns = [...]string{"x", "y", "yaw", "vx", "vy", "yaw_rate"}
var inertialColumns = [...]string{"gyro_x", "gyro_y", "gyro_z", "accel_x", "accel_y", "accel_z"}

// Log is a growable columnar store with one float64 slice per column.
// It is owned by the control loop and is not safe for concurrent use.
type Log struct {
	columns []string
	index   map[string]int
	data    [][]float64
	rows    int
	base    map[dynamo.Platform]int
	imu     bool
}

// NewLog lays out columns for the given platforms. Inertial columns are
// added when withIMU is set.
func NewLog(platforms []dynamo.Platform, withIMU bool, capacity int) (*Log, error) {
	if len(platforms) == 0 {
		return nil, ErrNoColumns
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{
		index: make(map[string]int),
		base:  make(map[dynamo.Platform]int),
		imu:   withIMU,
	}
	l.add("time")
	l.add("phase")
	for _, p := range platforms {
		if _, dup := l.base[p]; dup {
			continue
		}
		l.base[p] = len(l.columns)
		for _, c := range stateColumns {
			l.add(fmt.Sprintf("%s_%s", p, c))
		}
		for i := 1; i <= dynamo.NumThrusters; i++ {
			l.add(fmt.Sprintf("%s_duty_%d", p, i))
		}
		for i := 1; i <= dynamo.NumThrusters; i++ {
			l.add(fmt.Sprintf("%s_pwm_%d", p, i))
		}
		if withIMU {
			for _, c := range inertialColumns {
				l.add(fmt.Sprintf("%s_%s", p, c))
			}
		}
	}
	l.data = make([][]float64, len(l.columns))
	for i := range l.data {
		l.data[i] = make([]float64, capacity)
	}
	return l, nil
}

func (l *Log) add(name string) {
	l.index[name] = len(l.columns)
	l.columns = append(l.columns, name)
}

// Columns returns the column names in layout order.
func (l *Log) Columns() []string { return append([]string(nil), l.columns...) }

// Len is the number of rows written.
func (l *Log) Len() int { return l.rows }

// Cap is the currently allocated row capacity.
func (l *Log) Cap() int { return len(l.data[0]) }

// Append writes one row. Platforms without an entry are recorded as NaN.
func (l *Log) Append(t float64, phase int, entries ...Entry) error {
	for _, e := range entries {
		if _, ok := l.base[e.Platform]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPlatform, e.Platform)
		}
	}
	if l.rows == l.Cap() {
		l.grow()
	}
	r := l.rows
	for i := range l.data {
		l.data[i][r] = math.NaN()
	}
	l.data[0][r] = t
	l.data[1][r] = float64(phase)
	for _, e := range entries {
		col := l.base[e.Platform]
		for i, v := range e.State.Vec() {
			l.data[col+i][r] = v
		}
		col += len(stateColumns)
		for i, d := range e.Duty {
			l.data[col+i][r] = d
		}
		col += dynamo.NumThrusters
		for i, on := range e.Channels {
			if on {
				l.data[col+i][r] = 1
			} else {
				l.data[col+i][r] = 0
			}
		}
		col += dynamo.NumThrusters
		if l.imu && e.Inertial != nil {
			for i, v := range e.Inertial {
				l.data[col+i][r] = v
			}
		}
	}
	l.rows++
	return nil
}

// grow doubles every column.
func (l *Log) grow() {
	n := 2 * l.Cap()
	for i, col := range l.data {
		next := make([]float64, n)
		copy(next, col[:l.rows])
		l.data[i] = next
	}
}

// Table copies the written rows out of the log.
func (l *Log) Table() Table {
	t := Table{
		Columns: l.Columns(),
		Data:    make(map[string][]float64, len(l.columns)),
		Rows:    l.rows,
	}
	for i, name := range l.columns {
		t.Data[name] = append([]float64(nil), l.data[i][:l.rows]...)
	}
	return t
}
