package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/san-kum/spotlab/internal/actuator"
	"github.com/san-kum/spotlab/internal/config"
	"github.com/san-kum/spotlab/internal/control"
	"github.com/san-kum/spotlab/internal/dynamo"
	"github.com/san-kum/spotlab/internal/gpio"
	"github.com/san-kum/spotlab/internal/integrators"
	"github.com/san-kum/spotlab/internal/logging"
	"github.com/san-kum/spotlab/internal/metrics"
	"github.com/san-kum/spotlab/internal/mission"
	"github.com/san-kum/spotlab/internal/physics"
	"github.com/san-kum/spotlab/internal/sensor"
	"github.com/san-kum/spotlab/internal/sim"
	"github.com/san-kum/spotlab/internal/storage"
	"github.com/san-kum/spotlab/internal/viz"
	"github.com/spf13/cobra"
)

// loadRun resolves settings from file, preset and flags.
func loadRun(cmd *cobra.Command) (*config.Run, error) {
	run, err := config.LoadRun(configFile)
	if err != nil {
		return nil, err
	}
	if preset != "" && !config.ApplyPreset(run, preset) {
		return nil, fmt.Errorf("unknown preset %q (have %v)", preset, config.ListPresets())
	}
	flags := cmd.Flags()
	if flags.Changed("mission") {
		run.Mission = missionName
	}
	if flags.Changed("mode") {
		run.Mode = mode
	}
	if flags.Changed("realtime") {
		run.Realtime = realtime
	}
	if flags.Changed("platforms") {
		run.Platforms = platforms
	}
	if dataDir != "" {
		run.DataDir = dataDir
	}
	return run, run.Validate()
}

// closers collects hardware handles released after the loop has shut down.
type closers []io.Closer

func (c closers) Close(log zerolog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func runMission(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	log, logFile, err := logging.Setup(run.LogLevel, os.Stderr, run.LogDir, start)
	if err != nil {
		return err
	}
	defer logFile.Close()

	m, err := mission.Resolve(run.Mission)
	if err != nil {
		return err
	}

	active := run.ActivePlatforms()
	if !run.Simulated() {
		p, user, ok := config.HostPlatform()
		if !ok {
			log.Warn().Str("user", user).Msg("unknown lab account, flying the chaser")
		}
		active = []dynamo.Platform{p}
	}

	integ, err := integrators.New(run.Integrator)
	if err != nil {
		return err
	}
	period := time.Duration(run.Dt() * float64(time.Second))
	instruments, err := metrics.NewInstruments(nil, period)
	if err != nil {
		return err
	}

	var hw closers
	defer func() { hw.Close(log) }()

	var writer gpio.Writer
	if !run.Simulated() {
		pins := run.Pins()
		rp, err := gpio.OpenRPIO(pins[:])
		if err != nil {
			return err
		}
		hw = append(hw, rp)
		writer = rp
	}

	cfg := sim.Config{
		Mode:        run.Mode,
		Dt:          run.Dt(),
		Mission:     m,
		Instruments: instruments,
		Logger:      log,
		Observers:   []sim.Observer{&progress{out: os.Stdout, mission: m}},
	}

	for _, name := range active {
		plat, err := config.LoadPlatform(run.PlatformDir, name)
		if err != nil {
			return err
		}
		ctrl, err := control.New(plat.ControlParams(run))
		if err != nil {
			return err
		}
		if err := ctrl.Solve(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		pwm, err := actuator.New(actuator.Config{
			Frequency: run.PWMFrequency,
			Pins:      run.Pins(),
			Writer:    writer,
			Priority:  run.Actuator.Priority,
			StopGrace: run.Actuator.StopGrace,
			Logger:    log.With().Str("platform", string(name)).Logger(),
		})
		if err != nil {
			return err
		}
		p := &sim.Platform{
			Name:       name,
			Controller: ctrl,
			Actuator:   pwm,
			Poses:      plat.Poses(),
			Metrics:    metrics.Standard(plat.Mass, plat.Inertia),
		}
		if run.Simulated() {
			p.Body, err = physics.NewSpacecraft(plat.Mass, plat.Inertia, dynamo.StateFromPose(plat.Start), integ)
			if err != nil {
				return err
			}
		}
		cfg.Platforms = append(cfg.Platforms, p)
	}

	switch {
	case !run.Simulated():
		src, err := sensor.ListenUDP(run.Pose.Address)
		if err != nil {
			return err
		}
		hw = append(hw, src)
		tracker := sensor.NewTracker(src, sensor.TrackerConfig{
			IDs:         run.TrackerIDs(),
			PollTimeout: run.Pose.PollTimeout,
			Logger:      log,
		})
		cfg.Poses = tracker
		cfg.Sensors = append(cfg.Sensors, tracker)
		cfg.Pacer = sim.Acquisition{Updated: tracker.Updated(), Timeout: run.Pose.PollTimeout}
		cfg.SensorJoinTimeout = run.Pose.PollTimeout + time.Second
	case run.Realtime:
		cfg.Pacer = sim.Periodic{Period: period}
	default:
		cfg.Pacer = sim.FreeRun{}
	}

	if run.IMU.Enabled {
		dev, err := sensor.OpenBMI160(fmt.Sprintf("/dev/i2c-%d", run.IMU.Bus), run.IMU.Address)
		if err != nil {
			return err
		}
		hw = append(hw, dev)
		imu := sensor.NewIMU(dev, sensor.IMUConfig{
			Rate:           run.IMU.Rate,
			MaxZeroReads:   run.IMU.MaxZeroReads,
			ReinitAttempts: run.IMU.ReinitAttempts,
			ReinitBackoff:  run.IMU.ReinitBackoff,
			Logger:         log,
		})
		cfg.Inertial = imu
		cfg.Sensors = append(cfg.Sensors, imu)
	}

	cfg.Log, err = storage.NewLog(active, run.IMU.Enabled, 0)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Sinks, err = openSinks(ctx, run, log, &hw)
	if err != nil {
		return err
	}
	names := make([]string, len(active))
	for i, p := range active {
		names[i] = string(p)
	}
	cfg.Meta = storage.RunMetadata{
		ID:         storage.NewRunID(run.Mode, start),
		Mode:       run.Mode,
		Mission:    m.Name,
		Platforms:  names,
		Timestamp:  start,
		Integrator: run.Integrator,
		Allocator:  run.Allocator,
	}

	loop, err := sim.New(cfg)
	if err != nil {
		return err
	}
	res, err := loop.Run(ctx)
	if res != nil {
		printSummary(cfg.Meta.ID, run, res)
	}
	return err
}

func openSinks(ctx context.Context, run *config.Run, log zerolog.Logger, hw *closers) ([]storage.Sink, error) {
	var sinks []storage.Sink
	var errs []error
	for _, name := range run.Storage {
		switch name {
		case "csv":
			st := storage.New(run.DataDir)
			if err := st.Init(); err != nil {
				return nil, err
			}
			sinks = append(sinks, st)
		case "sqlite":
			path := run.SQLitePath
			if path == "" {
				path = filepath.Join(run.DataDir, "spot.db")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, err
			}
			db, err := storage.OpenSQLite(path, log)
			if err != nil {
				return nil, err
			}
			*hw = append(*hw, db)
			sinks = append(sinks, db)
		case "influx":
			x, err := storage.OpenInflux(ctx, storage.InfluxConfig{
				URL:    run.Influx.URL,
				Token:  run.Influx.Token,
				Org:    run.Influx.Org,
				Bucket: run.Influx.Bucket,
			}, log)
			if err != nil {
				// a missing time-series server should not stop the run
				log.Warn().Err(err).Msg("influx backend disabled")
				errs = append(errs, err)
				continue
			}
			*hw = append(*hw, influxCloser{x})
			sinks = append(sinks, x)
		}
	}
	if len(sinks) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return sinks, nil
}

type influxCloser struct{ *storage.Influx }

func (c influxCloser) Close() error {
	c.Influx.Close()
	return nil
}

func printSummary(runID string, run *config.Run, res *sim.Result) {
	status := viz.StatusOK.Render("complete")
	if res.Interrupted {
		status = viz.StatusWarn.Render("interrupted")
	}
	lines := []string{
		fmt.Sprintf("%s %s", viz.MetricLabel.Render("status "), status),
		fmt.Sprintf("%s %s", viz.MetricLabel.Render("mode   "), run.Mode),
		fmt.Sprintf("%s %d (%d skipped, %d overruns)", viz.MetricLabel.Render("ticks  "), res.Ticks, res.Skipped, res.Overruns),
		fmt.Sprintf("%s %.2fs", viz.MetricLabel.Render("elapsed"), res.Elapsed),
		fmt.Sprintf("%s %s", viz.MetricLabel.Render("data   "), run.DataDir),
		"",
		viz.MetricLines(res.Metrics),
	}
	fmt.Println(viz.Summary("run "+runID, lines...))
}

// progress prints phase transitions.
type progress struct {
	out     io.Writer
	mission *mission.Mission
}

func (p *progress) OnTick(sim.Tick) {}

func (p *progress) OnPhase(phase int, name string, at float64) {
	ctl := viz.Subtle.Render("control off")
	if p.mission.ControlEnabled(phase) {
		ctl = viz.StatusOK.Render("control on")
	}
	fmt.Fprintf(p.out, "%s %s  %s\n", viz.Title.Render(fmt.Sprintf("[%6.2fs] phase %d", at, phase)), name, ctl)
}
