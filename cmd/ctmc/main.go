package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/san-kum/ctmc/internal/analysis"
	"github.com/san-kum/ctmc/internal/config"
	"github.com/san-kum/ctmc/internal/experiment"
	"github.com/san-kum/ctmc/internal/generators"
	"github.com/san-kum/ctmc/internal/markov"
	"github.com/san-kum/ctmc/internal/optim"
	"github.com/san-kum/ctmc/internal/storage"
	"github.com/san-kum/ctmc/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	generator  string
	states     int
	batch      int
	seed       uint64
	maxRate    float64
	logLevel   string
	params     []string

	// solver flags
	nessDt        float64
	nessMaxIter   int
	forceAnalytic bool
	dt0           float64
	mepsMaxIter   int
	dtIter        int
	diagnostic    bool

	// state command
	mu    []int
	sigma []float64

	// sweep command
	sweepParams []string
	metricName  string

	// ensemble command
	numRuns int

	outFile string
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load(".env")

	rootCmd := &cobra.Command{
		Use:           "ctmc",
		Short:         "entropy production of continuous-time markov chains",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", envOr("CTMC_DATA_DIR", ".ctmc"), "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration for the generator")
	pf.StringVar(&generator, "generator", config.DefaultGenerator, "rate matrix generator")
	pf.IntVar(&states, "states", config.DefaultStates, "number of states")
	pf.IntVar(&batch, "batch", config.DefaultBatch, "number of chains")
	pf.Uint64Var(&seed, "seed", 0, "random seed (0 picks one)")
	pf.Float64Var(&maxRate, "max-rate", config.DefaultMaxRate, "largest rate after scaling")
	pf.StringVar(&logLevel, "log-level", envOr("CTMC_LOG_LEVEL", "info"), "debug, info, warn or error")
	pf.StringSliceVar(&params, "param", nil, "generator parameter as name=value (repeatable)")

	solverFlags := func(cmd *cobra.Command) {
		f := cmd.Flags()
		f.Float64Var(&nessDt, "ness-dt", config.DefaultNESSDt, "numeric NESS time step")
		f.IntVar(&nessMaxIter, "ness-max-iter", config.DefaultNESSMaxIter, "numeric NESS iteration cap")
		f.BoolVar(&forceAnalytic, "analytic", false, "always use the eigenvector NESS")
		f.Float64Var(&dt0, "dt0", config.DefaultMEPSDt0, "initial MEPS step")
		f.IntVar(&mepsMaxIter, "max-iter", config.DefaultMEPSMaxIter, "MEPS iteration cap")
		f.IntVar(&dtIter, "dt-iter", config.DefaultMEPSDtIter, "MEPS iterations per step decay")
		f.BoolVar(&diagnostic, "diagnostic", false, "record the MEPS trajectory")
	}

	nessCmd := &cobra.Command{
		Use:   "ness",
		Short: "compute the non-equilibrium steady state",
		RunE:  runNESS,
	}
	solverFlags(nessCmd)

	mepsCmd := &cobra.Command{
		Use:   "meps",
		Short: "compute the minimum entropy production state",
		RunE:  runMEPS,
	}
	solverFlags(mepsCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run NESS and MEPS, then store the result",
		RunE:  runExperiment,
	}
	solverFlags(runCmd)

	stateCmd := &cobra.Command{
		Use:       "state [uniform|random|local]",
		Short:     "print a distribution and its entropy production",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"uniform", "random", "local"},
		RunE:      runState,
	}
	stateCmd.Flags().IntSliceVar(&mu, "mu", nil, "centre state per chain (local)")
	stateCmd.Flags().Float64SliceVar(&sigma, "sigma", nil, "width per chain (local)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search over parameters minimising a metric",
		RunE:  runSweep,
	}
	solverFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepParams, "grid", nil, "name=v1,v2,... (dt0, max_rate or a generator parameter)")
	sweepCmd.Flags().StringVar(&metricName, "metric", "meps_epr", "metric to minimise")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run one generator config over consecutive seeds in parallel",
		RunE:  runEnsemble,
	}
	solverFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of seeds")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the EPR history of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the EPR history to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return export(args[0], (*storage.Store).WriteCSV)
		},
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return export(args[0], (*storage.Store).WriteJSON)
		},
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	generatorsCmd := &cobra.Command{
		Use:   "generators",
		Short: "list rate matrix generators",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range generators.NewRegistry().Names() {
				fmt.Printf("  %-18s %s\n", name, strings.Join(config.ListPresets(name), ", "))
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [generator]",
		Short: "list available presets for a generator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for generator: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "run MEPS with live visualization",
		RunE:  runWatch,
	}
	solverFlags(watchCmd)

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "pick a generator and preset interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}

	rootCmd.AddCommand(nessCmd, mepsCmd, runCmd, stateCmd, sweepCmd, ensembleCmd, listCmd, showCmd, plotCmd,
		exportCSVCmd, exportJSONCmd, generatorsCmd, presetsCmd, watchCmd, tuiCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// loadConfig layers defaults, the preset, the config file and finally the
// flags the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(generator, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(generator))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("generator") {
		cfg.Generator = generator
	}
	if flags.Changed("states") {
		cfg.States = states
	}
	if flags.Changed("batch") {
		cfg.Batch = batch
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("max-rate") {
		cfg.MaxRate = maxRate
	}
	if len(params) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		for _, p := range params {
			name, val, err := parseParam(p)
			if err != nil {
				return nil, err
			}
			cfg.Params[name] = val
		}
	}

	if flags.Lookup("dt0") != nil {
		if flags.Changed("ness-dt") {
			cfg.NESS.Dt = nessDt
		}
		if flags.Changed("ness-max-iter") {
			cfg.NESS.MaxIter = nessMaxIter
		}
		if flags.Changed("analytic") {
			cfg.NESS.ForceAnalytic = forceAnalytic
		}
		if flags.Changed("dt0") {
			cfg.MEPS.Dt0 = dt0
		}
		if flags.Changed("max-iter") {
			cfg.MEPS.MaxIter = mepsMaxIter
		}
		if flags.Changed("dt-iter") {
			cfg.MEPS.DtIter = dtIter
		}
		if flags.Changed("diagnostic") {
			cfg.MEPS.Diagnostic = diagnostic
		}
	}
	return cfg, nil
}

func parseParam(s string) (string, float64, error) {
	name, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, fmt.Errorf("parameter %q: expected name=value", s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parameter %q: %w", s, err)
	}
	return name, v, nil
}

func buildChain(cmd *cobra.Command) (*config.Config, *markov.Chain, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	chain, err := experiment.New(cfg).Build()
	if err != nil {
		return nil, nil, err
	}
	return cfg, chain, nil
}

func formatState(s markov.State) string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = strconv.FormatFloat(p, 'f', 6, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func printBatch(w io.Writer, b markov.Batch, epr []float64) {
	for k, s := range b {
		fmt.Fprintf(w, "  chain %d  epr %.6g\n    %s\n", k, epr[k], formatState(s))
	}
}

func runNESS(cmd *cobra.Command, args []string) error {
	cfg, chain, err := buildChain(cmd)
	if err != nil {
		return err
	}
	res, err := chain.NESS(experiment.NESSOptions(cfg))
	if err != nil {
		return err
	}
	epr, err := chain.EPR(res.State)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("NESS  %d states × %d chains", chain.States(), chain.Chains())))
	methods := make([]string, len(res.Methods))
	for k, m := range res.Methods {
		methods[k] = m.String()
	}
	fmt.Printf("method: %s\n", strings.Join(methods, ", "))
	fmt.Printf("converged: %v  iterations: %d\n\n", res.Converged, res.Iterations)
	printBatch(os.Stdout, res.State, epr)
	return nil
}

func runMEPS(cmd *cobra.Command, args []string) error {
	cfg, chain, err := buildChain(cmd)
	if err != nil {
		return err
	}
	if _, err := chain.NESS(experiment.NESSOptions(cfg)); err != nil {
		return err
	}
	res, err := chain.MEPS(experiment.MEPSOptions(cfg))
	if err != nil {
		return err
	}
	epr, err := chain.EPR(res.State)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("MEPS  %d states × %d chains", chain.States(), chain.Chains())))
	fmt.Printf("converged: %v  iterations: %d  rejections: %d  final dt: %.4g\n\n",
		res.Converged, res.Iterations, res.Rejections, res.FinalDt)
	printBatch(os.Stdout, res.State, epr)

	if cfg.MEPS.Diagnostic && len(res.Trajectory) > 0 {
		ness, _ := chain.CachedNESS()
		divs, err := analysis.Relaxation(res.Trajectory, ness.State, 0)
		if err == nil {
			fmt.Printf("\nKL(p‖ness) of chain 0: %.4g → %.4g\n", divs[0], divs[len(divs)-1])
		}
	}
	return nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	exp := experiment.New(cfg)
	fmt.Println("running ness and meps...")
	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	runID, err := st.Save(exp.Record(result))
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", result.Duration)
	fmt.Printf("run id: %s\n", runID)
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-18s %.6g\n", name+":", m[name])
	}
}

func runState(cmd *cobra.Command, args []string) error {
	_, chain, err := buildChain(cmd)
	if err != nil {
		return err
	}

	var b markov.Batch
	switch args[0] {
	case "uniform":
		b = chain.Uniform()
	case "random":
		b = chain.RandomState()
	case "local":
		if b, err = chain.LocalState(mu, sigma); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown distribution: %s", args[0])
	}

	epr, err := chain.EPR(b)
	if err != nil {
		return err
	}
	printBatch(os.Stdout, b, epr)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(sweepParams) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}

	names := make([]string, len(sweepParams))
	ranges := make([][]float64, len(sweepParams))
	for i, g := range sweepParams {
		name, raw, ok := strings.Cut(g, "=")
		if !ok {
			return fmt.Errorf("grid %q: expected name=v1,v2,...", g)
		}
		names[i] = name
		for _, f := range strings.Split(raw, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return fmt.Errorf("grid %q: %w", g, err)
			}
			ranges[i] = append(ranges[i], v)
		}
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	build := func(p map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		for name, v := range p {
			switch name {
			case "dt0":
				cfg.MEPS.Dt0 = v
			case "max_rate":
				cfg.MaxRate = v
			default:
				if cfg.Params == nil {
					cfg.Params = make(map[string]float64)
				}
				cfg.Params[name] = v
			}
		}
		return experiment.New(cfg, experiment.WithLogger(quiet)), nil
	}

	g := optim.NewGridSearch(names, ranges)
	best, val, err := g.Search(cmd.Context(), build, metricName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(metricName))
	for _, p := range g.Points() {
		row := make([]string, len(names))
		for i, n := range names {
			row[i] = strconv.FormatFloat(p.Params[n], 'g', 6, 64)
		}
		v := strconv.FormatFloat(p.Value, 'g', 6, 64)
		if p.Err != nil {
			v = "error: " + p.Err.Error()
		}
		fmt.Fprintln(w, strings.Join(row, "\t")+"\t"+v)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest %s = %.6g at %v\n", metricName, val, best)
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Explicit() {
		return fmt.Errorf("ensemble needs a generator, not an explicit rate matrix")
	}
	if numRuns < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", numRuns)
	}
	start := cfg.Seed
	if start == 0 {
		start = 1
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	results, err := experiment.NewEnsemble(cfg, numRuns, start, experiment.WithLogger(quiet)).Run(cmd.Context())
	if err != nil {
		return err
	}

	summary := experiment.Summarize(results)
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s  %d seeds from %d", cfg.Generator, numRuns, start)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6g\t%.3g\n", name, summary[name].Mean, summary[name].Std)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGENERATOR\tSTATES\tCHAINS\tITER\tCONVERGED\tMEPS EPR\tCREATED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%v\t%.4g\t%s\n",
			run.ID,
			run.Generator,
			run.States,
			run.Chains,
			humanize.Comma(int64(run.Iterations)),
			run.NESSConverged && run.MEPSConverged,
			run.Metrics["meps_epr"],
			humanize.Time(run.CreatedAt),
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("run " + run.ID))
	fmt.Printf("created:    %s (%s)\n", run.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(run.CreatedAt))
	fmt.Printf("generator:  %s  seed %d  max rate %g\n", run.Generator, run.Seed, run.MaxRate)
	fmt.Printf("size:       %d states × %d chains\n", run.States, run.Chains)
	fmt.Printf("meps:       %s iterations, converged %v\n", humanize.Comma(int64(run.Iterations)), run.MEPSConverged)
	fmt.Printf("history:    %s EPR values\n", humanize.Comma(int64(len(run.EPR)*run.Chains)))
	if len(run.Params) > 0 {
		fmt.Println("\nparams:")
		printMetrics(run.Params)
	}
	fmt.Println("\nmetrics:")
	printMetrics(run.Metrics)

	fmt.Println("\nness:")
	for k, s := range run.NESS {
		fmt.Printf("  chain %d  %s\n", k, formatState(s))
	}
	fmt.Println("meps:")
	for k, s := range run.MEPS {
		fmt.Printf("  chain %d  %s\n", k, formatState(s))
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if len(run.EPR) < 2 {
		return fmt.Errorf("not enough data to plot")
	}

	fmt.Printf("run: %s\n", run.ID)
	fmt.Printf("generator: %s\n", run.Generator)
	fmt.Printf("iterations: %d\n\n", len(run.EPR))

	fmt.Println(asciigraph.Plot(analysis.MeanEPR(run.EPR),
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("mean EPR"),
	))
	fmt.Println()

	maxPlots := min(run.Chains, 6)
	if run.Chains > 1 {
		series := make([][]float64, maxPlots)
		for k := range series {
			series[k] = analysis.ChainEPR(run.EPR, k)
		}
		fmt.Println(asciigraph.PlotMany(series,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("EPR of chains 0-%d", maxPlots-1)),
		))
		fmt.Println()
	}

	if len(run.MEPS) > 0 && run.States > 1 {
		fmt.Println(asciigraph.PlotMany([][]float64{run.NESS[0], run.MEPS[0]},
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Default, asciigraph.Green),
			asciigraph.Caption("chain 0: NESS (default) and MEPS (green) by state"),
		))
	}
	return nil
}

func export(id string, write func(*storage.Store, string, io.Writer) error) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	var w io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := write(st, id, w); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Fprintf(os.Stderr, "exported to %s\n", outFile)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, chain, err := buildChain(cmd)
	if err != nil {
		return err
	}
	if _, err := chain.NESS(experiment.NESSOptions(cfg)); err != nil {
		return err
	}

	title := cfg.Generator
	if cfg.Explicit() {
		title = "rate matrix"
	}
	m, err := viz.NewModel(chain, experiment.MEPSOptions(cfg), title)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}
