package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ole-kvern/buoysim/internal/config"
	"github.com/ole-kvern/buoysim/internal/engine"
	"github.com/ole-kvern/buoysim/internal/storage"
	"github.com/ole-kvern/buoysim/internal/viz"
)

var (
	dataDir    string
	configFile string
	quiet      bool

	dt       float64
	duration float64
	floaters int
	mode     string
	target   float64
	kp       float64
	ki       float64

	nanobubble bool
	thermal    bool

	exportPath string
	series     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "buoysim",
		Short: "buoyancy power plant simulator",
		Run: func(cmd *cobra.Command, args []string) {
			// Default to the live dashboard when no command given
			if err := runLive(cmd, args); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".buoysim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a batch simulation and store the result",
		RunE:  runBatch,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&quiet, "quiet", false, "suppress engine logs")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the simulation with the live dashboard",
		RunE:  runLive,
	}
	addSimFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportPath, "out", "", "output path (default stdout)")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run series in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&series, "series", "output_power", "series to plot")

	defaultCmd := &cobra.Command{
		Use:   "default-config",
		Short: "print the default configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if path == "" {
				path = "buoysim.yaml"
			}
			return config.Save(path, config.DefaultConfig())
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, exportCmd, plotCmd, defaultCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", 60.0, "duration")
	cmd.Flags().IntVar(&floaters, "floaters", config.DefaultFloaterCount, "floater count")
	cmd.Flags().StringVar(&mode, "mode", "speed", "generator mode (speed|torque)")
	cmd.Flags().Float64Var(&target, "target", config.DefaultTargetSpeed, "regulation setpoint")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "speed loop kp")
	cmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "speed loop ki")
	cmd.Flags().BoolVar(&nanobubble, "nanobubble", false, "enable nanobubble drag reduction")
	cmd.Flags().BoolVar(&thermal, "thermal", false, "enable thermal buoyancy boost")
}

// buildConfig layers the config file over the defaults, then CLI flags over
// the file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Sim.Duration = duration
	}
	if cmd.Flags().Changed("floaters") {
		cfg.Floaters.Count = floaters
	}
	if cmd.Flags().Changed("mode") {
		cfg.Generator.Mode = mode
	}
	if cmd.Flags().Changed("target") {
		if cfg.Generator.Mode == "torque" {
			cfg.Generator.TargetTorque = target
		} else {
			cfg.Generator.TargetSpeed = target
		}
	}
	if cmd.Flags().Changed("kp") {
		cfg.Generator.Kp = kp
	}
	if cmd.Flags().Changed("ki") {
		cfg.Generator.Ki = ki
	}
	if cmd.Flags().Changed("nanobubble") {
		cfg.Effects.NanobubbleEnabled = nanobubble
	}
	if cmd.Flags().Changed("thermal") {
		cfg.Effects.ThermalEnabled = thermal
	}
	return cfg, nil
}

// runBatch steps the engine as fast as it goes, collects the published
// snapshots and stores them.
func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	var log *zap.Logger
	if !quiet {
		log, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync()
	}

	eng, err := engine.New(cfg, log)
	if err != nil {
		return err
	}

	ticks := int(cfg.Sim.Duration / cfg.Sim.Dt)
	snaps := collectRun(eng, ticks, cfg.Sim.Dt)
	if len(snaps) == 0 {
		return fmt.Errorf("duration %gs too short to publish a snapshot", cfg.Sim.Duration)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg.Generator.Mode, snaps)
	if err != nil {
		return err
	}

	final := snaps[len(snaps)-1]
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("simulated: %.2f s (%d ticks)\n", final.Time, final.Tick)
	fmt.Printf("mean power: %.2f W\n", final.Stats.MeanPower)
	fmt.Printf("peak power: %.2f W\n", final.Stats.PeakPower)
	fmt.Printf("injections: %d  vents: %d  conflicts: %d\n",
		final.Diag.Injections, final.Diag.Vents, final.Diag.SchedulingConflicts)
	if final.Diag.SkippedTicks > 0 {
		fmt.Printf("skipped ticks: %d\n", final.Diag.SkippedTicks)
	}
	return nil
}

// collectRun steps the engine and keeps one copy of each published
// snapshot. Between publications Latest keeps returning the same snapshot,
// so collection is keyed on the tick number.
func collectRun(eng *engine.Engine, ticks int, dt float64) []engine.Snapshot {
	snaps := make([]engine.Snapshot, 0, ticks)
	var lastTick uint64
	for i := 0; i < ticks; i++ {
		eng.Step(dt)
		if snap := eng.Latest(); snap.Tick != lastTick {
			snaps = append(snaps, *snap)
			lastTick = snap.Tick
		}
	}
	return snaps
}

// runLive pairs the wall-clock engine loop with the dashboard; either one
// exiting stops the other.
func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := eng.Run(ctx); err != context.Canceled {
			return err
		}
		return nil
	})
	g.Go(func() error {
		p := tea.NewProgram(viz.NewModel(eng), tea.WithAltScreen())
		_, err := p.Run()
		cancel()
		return err
	})
	return g.Wait()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tMODE\tFLOATERS\tDURATION\tMEAN POWER\tPEAK POWER")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1fs\t%.1fW\t%.1fW\n",
			r.ID, r.GeneratorMode, r.Floaters, r.Duration, r.MeanPower, r.PeakPower)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if exportPath != "" {
		return st.ExportJSON(exportPath, args[0])
	}
	return st.ExportJSONStdout(args[0])
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	all, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	values, ok := all[series]
	if !ok || len(values) == 0 {
		return fmt.Errorf("no series %q in run %s", series, args[0])
	}
	fmt.Println(asciigraph.Plot(values,
		asciigraph.Height(15), asciigraph.Width(80), asciigraph.Caption(series)))
	return nil
}
