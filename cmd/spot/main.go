package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile  string
	preset      string
	missionName string
	mode        string
	realtime    bool
	platforms   []string
	dataDir     string
	pngOut      string
	columns     []string
	platformArg string
)

// main registers the spot commands and runs the CLI. It exits with status 1
// when a command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:          "spot",
		Short:        "spacecraft proximity operations testbed",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "run settings file (json, yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run data directory (overrides settings)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "fly a mission in simulation or on the testbed",
		Args:  cobra.NoArgs,
		RunE:  runMission,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "run preset (simulation, realtime-sim, experiment)")
	runCmd.Flags().StringVar(&missionName, "mission", "", "mission preset name or yaml path")
	runCmd.Flags().StringVar(&mode, "mode", "", "simulation or experiment")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace the simulation in wall-clock time")
	runCmd.Flags().StringSliceVar(&platforms, "platforms", nil, "active platforms (chaser, target, obstacle)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&pngOut, "png", "", "write a png figure to this path instead of terminal charts")
	plotCmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to plot (default: first platform's pose)")

	gainsCmd := &cobra.Command{
		Use:   "gains [platform.json]",
		Short: "print the LQR gain for a platform",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showGains,
	}
	gainsCmd.Flags().StringVar(&platformArg, "platform", "chaser", "platform the file describes")

	phasesCmd := &cobra.Command{
		Use:   "phases [mission]",
		Short: "print a mission timeline",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPhases,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, gainsCmd, phasesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
