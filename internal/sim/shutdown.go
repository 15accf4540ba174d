package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/spotlab/internal/actuator"
	"github.com/san-kum/spotlab/internal/sensor"
	"github.com/san-kum/spotlab/internal/storage"
)

// shutdown stops actuators, stops sensors and flushes the log. Every step
// runs even when an earlier one fails or panics. Join timeouts are logged
// and not returned.
func (l *Loop) shutdown(res *Result) error {
	return errors.Join(
		guard("stop actuators", l.stopActuators),
		guard("stop sensors", l.stopSensors),
		guard("flush log", func() error { return l.flush(res) }),
	)
}

func guard(step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", step, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

func (l *Loop) stopActuators() error {
	var errs []error
	for _, p := range l.cfg.Platforms {
		if p.Actuator == nil {
			continue
		}
		err := guard(string(p.Name), p.Actuator.Stop)
		switch {
		case err == nil:
		case errors.Is(err, actuator.ErrJoinTimeout):
			l.log.Warn().Err(err).Str("platform", string(p.Name)).Msg("actuator worker abandoned")
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Loop) stopSensors() error {
	var errs []error
	for i, s := range l.cfg.Sensors {
		err := guard(fmt.Sprintf("sensor %d", i), func() error { return s.Stop(l.cfg.SensorJoinTimeout) })
		switch {
		case err == nil:
		case errors.Is(err, sensor.ErrJoinTimeout):
			l.log.Warn().Err(err).Int("sensor", i).Msg("sensor worker did not exit")
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Loop) flush(res *Result) error {
	if l.cfg.Log == nil || len(l.cfg.Sinks) == 0 {
		return nil
	}
	meta := l.cfg.Meta
	meta.Dt = l.cfg.Dt
	meta.Duration = res.Elapsed
	meta.Phases = l.cfg.Mission.Durations()
	meta.Rows = l.cfg.Log.Len()
	meta.Metrics = res.Metrics
	if meta.Mode == "" {
		meta.Mode = l.cfg.Mode
	}

	table := l.cfg.Log.Table()
	if err := storage.FlushAll(context.Background(), meta, table, l.cfg.Sinks...); err != nil {
		l.log.Error().Err(err).Msg("log flush failed")
		return err
	}
	l.log.Info().Str("run", meta.ID).Int("rows", table.Rows).Msg("log flushed")
	return nil
}
