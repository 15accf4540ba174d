package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/spotlab/internal/config"
	"github.com/san-kum/spotlab/internal/control"
	"github.com/san-kum/spotlab/internal/dynamo"
	"github.com/san-kum/spotlab/internal/mission"
	"github.com/san-kum/spotlab/internal/storage"
	"github.com/san-kum/spotlab/internal/viz"
	"github.com/spf13/cobra"
)

func runStore() (*storage.Store, error) {
	run, err := config.LoadRun(configFile)
	if err != nil {
		return nil, err
	}
	dir := run.DataDir
	if dataDir != "" {
		dir = dataDir
	}
	return storage.New(dir), nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := runStore()
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tMISSION\tTIME\tDURATION\tDT\tPLATFORMS\tROWS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%d\n",
			run.ID,
			run.Mode,
			run.Mission,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			strings.Join(run.Platforms, ","),
			run.Rows,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := runStore()
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	table, err := st.LoadTable(runID)
	if err != nil {
		return err
	}
	if table.Rows == 0 {
		return viz.ErrNoData
	}

	names := columns
	if len(names) == 0 {
		p := string(dynamo.Chaser)
		if len(meta.Platforms) > 0 {
			p = meta.Platforms[0]
		}
		names = []string{p + "_x", p + "_y", p + "_yaw"}
	}

	times := table.Column("time")
	series := make([]viz.Series, 0, len(names))
	for _, name := range names {
		col := table.Column(name)
		if col == nil {
			return fmt.Errorf("run %s has no column %q", runID, name)
		}
		series = append(series, viz.Series{Name: name, Times: times, Values: col})
	}

	if pngOut != "" {
		if err := viz.PNG(pngOut, meta.ID, series...); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", pngOut)
		return nil
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("mission: %s (%s)\n", meta.Mission, meta.Mode)
	fmt.Printf("samples: %d\n\n", table.Rows)

	for _, s := range series {
		graph, err := viz.ASCII(s, 80, 10)
		if err != nil {
			fmt.Println(viz.Subtle.Render(err.Error()))
			continue
		}
		fmt.Println(graph)
		fmt.Println()
	}

	if len(meta.Metrics) > 0 {
		fmt.Println(viz.Summary("metrics", viz.MetricLines(meta.Metrics)))
	}
	return nil
}

func showGains(cmd *cobra.Command, args []string) error {
	run, err := config.LoadRun(configFile)
	if err != nil {
		return err
	}
	p := dynamo.Platform(platformArg)
	var plat config.Platform
	if len(args) == 1 {
		plat, err = config.LoadPlatformFile(args[0], p)
	} else {
		plat, err = config.LoadPlatform(run.PlatformDir, p)
	}
	if err != nil {
		return err
	}

	lqr, err := control.NewLQR(plat.Mass, plat.Inertia, run.Dt(), control.DefaultWeights)
	if err != nil {
		return err
	}
	k, err := lqr.Gain()
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("LQR gain  %s  m=%.2fkg  I=%.3fkg·m²  dt=%.3fs", p, plat.Mass, plat.Inertia, run.Dt())))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "\tx\ty\tyaw\tvx\tvy\tyaw_rate\t")
	for i, row := range k {
		fmt.Fprintf(w, "%s\t", []string{"Fx", "Fy", "Tz"}[i])
		for _, v := range row {
			fmt.Fprintf(w, "%.4f\t", v)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func showPhases(cmd *cobra.Command, args []string) error {
	name := mission.DefaultPreset
	if len(args) == 1 {
		name = args[0]
	}
	m, err := mission.Resolve(name)
	if err != nil {
		return err
	}
	seq, err := mission.NewSequencer(m.Durations())
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s  %s", m.Name, viz.Subtle.Render(m.Description))))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPHASE\tSTART\tDURATION\tCONTROL\tSETPOINT")
	for i, start := range seq.Starts() {
		ph := m.Phases[i]
		fmt.Fprintf(w, "%d\t%s\t%.1fs\t%.1fs\t%v\t%s\n", i, ph.Name, start, ph.Duration, ph.Control, ph.Setpoint)
	}
	fmt.Fprintf(w, "\ttotal\t\t%.1fs\t\t\n", seq.Total())
	return w.Flush()
}
