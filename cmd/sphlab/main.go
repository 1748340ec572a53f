package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/sphlab/internal/config"
	"github.com/san-kum/sphlab/internal/export"
	"github.com/san-kum/sphlab/internal/metrics"
	"github.com/san-kum/sphlab/internal/scenario"
	"github.com/san-kum/sphlab/internal/storage"
	"github.com/san-kum/sphlab/internal/viz"
)

var (
	dataDir    string
	configFile string
	verbose    bool

	scenarioName string
	kernelName   string
	backendName  string
	dt           float64
	duration     float64
	dim          int
	spacing      float64
	symmetrize   bool

	snapEvery int
	snapStep  int
	svgField  string
	svgOut    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sphlab",
		Short: "smoothed-particle hydrodynamics lab",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".sphlab", "data directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log progress to stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store the results",
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().IntVar(&snapEvery, "snap-every", 100, "snapshot interval in steps (0 disables)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with live visualization",
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot snapshot profiles in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&snapStep, "step", -1, "snapshot step (-1 for the latest)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	svgCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a snapshot to svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	svgCmd.Flags().IntVar(&snapStep, "step", -1, "snapshot step (-1 for the latest)")
	svgCmd.Flags().StringVar(&svgField, "field", "rho", "field coloring the particles")
	svgCmd.Flags().StringVar(&svgOut, "out", "", "output path (default <run_id>.svg)")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the interaction pass",
		RunE:  benchScenario,
	}
	addScenarioFlags(benchCmd)

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list available scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			names := scenario.Names()
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, svgCmd, benchCmd, scenariosCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&scenarioName, "scenario", "shocktube", "scenario name")
	cmd.Flags().StringVar(&kernelName, "kernel", "cubic", "smoothing kernel")
	cmd.Flags().StringVar(&backendName, "backend", "auto", "compute backend")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().IntVar(&dim, "dim", 1, "spatial dimensionality")
	cmd.Flags().Float64Var(&spacing, "spacing", config.DefaultSpacing, "initial particle spacing")
	cmd.Flags().BoolVar(&symmetrize, "symmetrize", false, "average kernel gradients at both smoothing lengths")
}

// buildConfig merges defaults, an optional config file, and CLI flags;
// flags win over the file only when explicitly set.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("scenario") || configFile == "" {
		cfg.Scenario = scenarioName
	}
	if cmd.Flags().Changed("kernel") || configFile == "" {
		cfg.Kernel = kernelName
	}
	if cmd.Flags().Changed("backend") || configFile == "" {
		cfg.Backend = backendName
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("dim") {
		cfg.Dim = dim
	}
	if cmd.Flags().Changed("spacing") {
		cfg.Particles.Spacing = spacing
	}
	if cmd.Flags().Changed("symmetrize") {
		cfg.Symmetrize = symmetrize
	}

	// The drop scenario only makes sense in the plane.
	if cfg.Scenario == "drop" && !cmd.Flags().Changed("dim") && cfg.Dim == 1 {
		cfg.Dim = 2
	}

	return cfg, cfg.Validate()
}

func logger() *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	sim, err := scenario.New(cfg, logger())
	if err != nil {
		return err
	}

	runID, err := st.CreateRun(storage.RunMetadata{
		Scenario:  cfg.Scenario,
		Kernel:    cfg.Kernel,
		Backend:   cfg.Backend,
		Dt:        cfg.Dt,
		Duration:  cfg.Duration,
		Particles: sim.Fluid().Len(),
	})
	if err != nil {
		return err
	}

	mets := metrics.Standard()
	observe := func(s *scenario.Sim) error {
		for _, m := range mets {
			m.Observe(s.Fluid(), s.Time())
		}
		if snapEvery > 0 && s.StepCount()%snapEvery == 0 {
			return st.WriteSnapshot(runID, s.StepCount(), s.Fluid())
		}
		return nil
	}

	fmt.Printf("running %s (%d particles)...\n", cfg.Scenario, sim.Fluid().Len())
	start := time.Now()

	if err := st.WriteSnapshot(runID, 0, sim.Fluid()); err != nil {
		return err
	}
	if err := sim.Run(context.Background(), observe); err != nil {
		return err
	}
	if err := st.WriteSnapshot(runID, sim.StepCount(), sim.Fluid()); err != nil {
		return err
	}

	elapsed := time.Since(start)

	final := map[string]float64{}
	for _, m := range mets {
		final[m.Name()] = m.Value()
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	meta.Steps = sim.StepCount()
	meta.Metrics = final
	if err := st.SaveMetadata(runID, *meta); err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", sim.StepCount())
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(final))
	for name := range final {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, final[name])
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	model, err := viz.NewModel(cfg, logger())
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tPARTICLES\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4fs\t%.6fs\t%d\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Particles,
			run.Steps,
		)
	}

	return w.Flush()
}

// pickStep resolves the --step flag against the run's snapshots.
func pickStep(st *storage.Store, runID string) (int, error) {
	steps, err := st.Snapshots(runID)
	if err != nil {
		return 0, err
	}
	if len(steps) == 0 {
		return 0, fmt.Errorf("no snapshots stored for %s", runID)
	}
	if snapStep < 0 {
		return steps[len(steps)-1], nil
	}
	for _, s := range steps {
		if s == snapStep {
			return s, nil
		}
	}
	return 0, fmt.Errorf("no snapshot at step %d (available: %v)", snapStep, steps)
}

// column extracts one named property from snapshot rows.
func column(header []string, rows [][]float64, name string) []float64 {
	for j, h := range header {
		if h != name {
			continue
		}
		vals := make([]float64, len(rows))
		for i, row := range rows {
			vals[i] = row[j]
		}
		return vals
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	step, err := pickStep(st, runID)
	if err != nil {
		return err
	}
	header, rows, err := st.LoadSnapshot(runID, step)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("snapshot: step %d, %d particles\n\n", step, len(rows))

	xs := column(header, rows, "x")
	if xs == nil {
		return fmt.Errorf("snapshot has no x column")
	}
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })

	for _, field := range []string{"rho", "p", "u", "e"} {
		vals := column(header, rows, field)
		if vals == nil {
			continue
		}
		sorted := make([]float64, len(vals))
		for n, i := range order {
			sorted[n] = vals[i]
		}
		fmt.Println(asciigraph.Plot(sorted,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(field+" along x"),
		))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	step, err := pickStep(st, runID)
	if err != nil {
		return err
	}
	header, rows, err := st.LoadSnapshot(runID, step)
	if err != nil {
		return err
	}

	xs := column(header, rows, "x")
	ys := column(header, rows, "y")
	field := column(header, rows, svgField)
	if xs == nil {
		return fmt.Errorf("snapshot has no x column")
	}

	var svg string
	if ys != nil && !allZero(ys) {
		svg = export.ScatterToSVG(xs, ys, field, 800, 800)
	} else if field != nil {
		svg = export.ProfileToSVG(xs, field, 800, 400, "#00ccff")
	} else {
		return fmt.Errorf("snapshot has no %s column", svgField)
	}

	out := svgOut
	if out == "" {
		out = runID + ".svg"
	}
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (step %d)\n", out, step)
	return nil
}

func allZero(vals []float64) bool {
	for _, v := range vals {
		if v != 0 {
			return false
		}
	}
	return true
}

func benchScenario(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	spacings := []float64{cfg.Particles.Spacing, cfg.Particles.Spacing / 2, cfg.Particles.Spacing / 4}
	const steps = 50

	fmt.Printf("benchmarking %s on %s\n\n", cfg.Scenario, cfg.Backend)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPACING\tPARTICLES\tSTEPS\tTIME\tSTEPS/SEC")

	for _, dx := range spacings {
		run := *cfg
		run.Particles.Spacing = dx
		run.Duration = float64(steps+1) * run.Dt

		sim, err := scenario.New(&run, nil)
		if err != nil {
			return err
		}

		ctx := context.Background()
		start := time.Now()
		for i := 0; i < steps; i++ {
			if err := sim.Step(ctx); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%.5f\t%d\t%d\t%v\t%.0f\n",
			dx, sim.Fluid().Len(), steps, elapsed, float64(steps)/elapsed.Seconds())
	}

	return w.Flush()
}
