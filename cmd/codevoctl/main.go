package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"codevo/internal/agent"
	"codevo/internal/genetics"
	"codevo/internal/map2rec"
	"codevo/internal/model"
	"codevo/internal/storage"
	"codevo/internal/sweep"
	codevoapi "codevo/pkg/codevo"
)

const (
	runsDir        = "runs"
	resultsCSVPath = "Data.csv"
	defaultDBPath  = "codevo.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "sweep":
		return runSweep(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "measurements":
		return runMeasurements(ctx, args[1:])
	case "population":
		return runPopulation(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional JSON or YAML parameter file")
	defaults := singleRunParams()
	pf := registerParamFlags(fs, defaults)
	hidden := fs.Int("hidden", defaults.NumHiddenNeurons, "hidden layer size")
	lr := fs.Float64("lr", defaults.LearningRate, "learning rate")
	bottleneck := fs.Int("bottleneck", defaults.BottleNeck, "pairs sampled per transmission")
	epochs := fs.Int("epochs", defaults.NumberOfEpochs, "training epochs per transmission")
	transmissions := fs.Int("transmissions", defaults.MaxTransmissions, "transmission events")
	seed := fs.Int64("seed", defaults.RandomSeed, "rng seed (the positional argument wins)")
	csvPath := fs.String("csv", resultsCSVPath, "results CSV path (empty disables)")
	appendCSV := fs.Bool("append", false, "append to the results CSV instead of replacing it")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	outDir := fs.String("out", runsDir, "run artifacts directory")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	jsonOut := fs.Bool("json", false, "emit the run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("run accepts at most one positional seed, got %d arguments", fs.NArg())
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	params := defaults
	if *configPath != "" {
		var err error
		if params, err = loadParams(*configPath); err != nil {
			return err
		}
	}
	overrideAll := *configPath == ""
	pf.apply(&params, setFlags, overrideAll)
	if overrideAll || setFlags["hidden"] {
		params.NumHiddenNeurons = *hidden
	}
	if overrideAll || setFlags["lr"] {
		params.LearningRate = *lr
	}
	if overrideAll || setFlags["bottleneck"] {
		params.BottleNeck = *bottleneck
	}
	if overrideAll || setFlags["epochs"] {
		params.NumberOfEpochs = *epochs
	}
	if overrideAll || setFlags["transmissions"] {
		params.MaxTransmissions = *transmissions
	}
	if overrideAll || setFlags["seed"] {
		params.RandomSeed = *seed
	}
	if fs.NArg() == 1 {
		v, err := strconv.ParseInt(fs.Arg(0), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed %q: %w", fs.Arg(0), err)
		}
		params.RandomSeed = v
	}

	logger, err := newLogger(os.Stderr, *logLevel)
	if err != nil {
		return err
	}
	client, err := codevoapi.New(codevoapi.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPath,
		RunsDir:   *outDir,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Printf("simulation: hidden=%d lr=%g bottleneck=%d epochs=%d transmissions=%d seed=%d pop=%d\n",
		params.NumHiddenNeurons, params.LearningRate, params.BottleNeck, params.NumberOfEpochs,
		params.MaxTransmissions, params.RandomSeed, params.PopSize)

	summary, err := client.Run(ctx, codevoapi.RunRequest{
		Params:    params,
		CSVPath:   *csvPath,
		AppendCSV: *appendCSV,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(struct {
			RunID        string       `json:"run_id"`
			ArtifactsDir string       `json:"artifacts_dir"`
			Params       model.Params `json:"params"`
			model.Scores
			Learners int `json:"learners"`
		}{summary.RunID, summary.ArtifactsDir, params, summary.Scores, summary.Learners})
	}
	fmt.Printf("run completed run_id=%s expressivity=%.4f compositionality=%.4f stability=%.4f learners=%d\n",
		summary.RunID, summary.Expressivity, summary.Compositionality, summary.Stability, summary.Learners)
	fmt.Printf("artifacts=%s\n", summary.ArtifactsDir)
	return nil
}

func runSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional JSON or YAML base parameter file")
	base := map2rec.DefaultParams()
	grid := sweep.DefaultGrid(base)
	pf := registerParamFlags(fs, base)
	seeds := fs.String("seeds", joinInt64s(grid.Seeds), "comma-separated rng seeds")
	hidden := fs.String("hidden", joinInts(grid.Hidden), "comma-separated hidden layer sizes")
	lrs := fs.String("lr", joinFloats(grid.LearningRates), "comma-separated learning rates")
	bottlenecks := fs.String("bottleneck", joinInts(grid.BottleNecks), "comma-separated bottleneck sizes")
	epochs := fs.String("epochs", joinInts(grid.Epochs), "comma-separated epoch counts")
	transmissions := fs.String("transmissions", joinInts(grid.Transmissions), "comma-separated transmission counts")
	workers := fs.Int("workers", 4, "worker count")
	csvPath := fs.String("csv", resultsCSVPath, "results CSV path (empty disables)")
	appendCSV := fs.Bool("append", false, "append to the results CSV instead of replacing it")
	persist := fs.Bool("persist", false, "store every grid point as a run with artifacts")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	outDir := fs.String("out", runsDir, "run artifacts directory")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	jsonOut := fs.Bool("json", false, "emit the sweep cells as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *workers <= 0 {
		return errors.New("workers must be > 0")
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	if *configPath != "" {
		var err error
		if base, err = loadParams(*configPath); err != nil {
			return err
		}
	}
	pf.apply(&base, setFlags, *configPath == "")

	var err error
	grid = sweep.Grid{Base: base}
	if grid.Seeds, err = parseInt64List(*seeds); err != nil {
		return fmt.Errorf("seeds: %w", err)
	}
	if grid.Hidden, err = parseIntList(*hidden); err != nil {
		return fmt.Errorf("hidden: %w", err)
	}
	if grid.LearningRates, err = parseFloatList(*lrs); err != nil {
		return fmt.Errorf("lr: %w", err)
	}
	if grid.BottleNecks, err = parseIntList(*bottlenecks); err != nil {
		return fmt.Errorf("bottleneck: %w", err)
	}
	if grid.Epochs, err = parseIntList(*epochs); err != nil {
		return fmt.Errorf("epochs: %w", err)
	}
	if grid.Transmissions, err = parseIntList(*transmissions); err != nil {
		return fmt.Errorf("transmissions: %w", err)
	}

	logger, err := newLogger(os.Stderr, *logLevel)
	if err != nil {
		return err
	}
	client, err := codevoapi.New(codevoapi.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPath,
		RunsDir:   *outDir,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Printf("sweep: points=%d workers=%d\n", grid.Size(), *workers)
	summary, err := client.Sweep(ctx, codevoapi.SweepRequest{
		Grid:        grid,
		Workers:     *workers,
		CSVPath:     *csvPath,
		AppendCSV:   *appendCSV,
		PersistRuns: *persist,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(summary.Cells)
	}
	for _, cell := range summary.Cells {
		p := cell.Params
		fmt.Printf("hidden=%d lr=%g bottleneck=%d epochs=%d transmissions=%d seeds=%d expressivity=%.4f±%.4f compositionality=%.4f±%.4f stability=%.4f±%.4f\n",
			p.NumHiddenNeurons, p.LearningRate, p.BottleNeck, p.NumberOfEpochs, p.MaxTransmissions, len(cell.Seeds),
			cell.Mean.Expressivity, cell.Std.Expressivity,
			cell.Mean.Compositionality, cell.Std.Compositionality,
			cell.Mean.Stability, cell.Std.Stability)
	}
	fmt.Printf("sweep completed sweep_id=%s runs=%d\n", summary.SweepID, len(summary.Rows))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	outDir := fs.String("out", runsDir, "run artifacts directory")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := codevoapi.New(codevoapi.Options{RunsDir: *outDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, codevoapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		type runsItem struct {
			RunID         string `json:"run_id"`
			CreatedAtUTC  string `json:"created_at_utc"`
			Seed          int64  `json:"seed"`
			Population    int    `json:"population_size"`
			HiddenNeurons int    `json:"hidden_neurons"`
			Transmissions int    `json:"transmissions"`
			model.Scores
		}
		out := make([]runsItem, 0, len(items))
		for _, it := range items {
			out = append(out, runsItem{it.RunID, it.CreatedAtUTC, it.Seed, it.Population, it.HiddenNeurons, it.Transmissions, it.Scores})
		}
		return printJSON(out)
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, it := range items {
		fmt.Printf("run_id=%s created_at=%s seed=%d pop=%d hidden=%d transmissions=%d expressivity=%.4f compositionality=%.4f stability=%.4f\n",
			it.RunID, it.CreatedAtUTC, it.Seed, it.Population, it.HiddenNeurons, it.Transmissions,
			it.Expressivity, it.Compositionality, it.Stability)
	}
	return nil
}

func runMeasurements(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("measurements", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	limit := fs.Int("limit", 0, "max measurements to show (0 shows all)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	outDir := fs.String("out", runsDir, "run artifacts directory")
	jsonOut := fs.Bool("json", false, "emit measurements as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := codevoapi.New(codevoapi.Options{StoreKind: *storeKind, DBPath: *dbPath, RunsDir: *outDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	trace, err := client.Measurements(ctx, codevoapi.MeasurementsRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(trace)
	}
	for _, m := range trace {
		fmt.Printf("transmission=%d expressivity=%.4f compositionality=%.4f stability=%.4f learners=%d\n",
			m.Transmission, m.Expressivity, m.Compositionality, m.Stability, m.Learners)
	}
	return nil
}

func runPopulation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("population", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	weights := fs.Bool("weights", false, "print every agent's weight matrices")
	code := fs.Bool("code", false, "print every agent's decoded codon table")
	codon := fs.String("codon", "", "decode only this codon, e.g. AUG (implies --code)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	outDir := fs.String("out", runsDir, "run artifacts directory")
	jsonOut := fs.Bool("json", false, "emit snapshots as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := codevoapi.New(codevoapi.Options{StoreKind: *storeKind, DBPath: *dbPath, RunsDir: *outDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	var codons []genetics.Codon
	if *codon != "" {
		c, err := genetics.ParseCodon(strings.ToUpper(*codon))
		if err != nil {
			return err
		}
		codons = []genetics.Codon{c}
		*code = true
	}

	population, err := client.Population(ctx, codevoapi.PopulationRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(population)
	}
	for _, snap := range population {
		fmt.Printf("agent=%d first_time_learner=%t learning_episodes=%d\n", snap.Index, snap.FirstTimeLearner, snap.LearningEpisodes)
		if !*weights && !*code {
			continue
		}
		a, err := agent.FromSnapshot(snap, 0)
		if err != nil {
			return fmt.Errorf("agent %d: %w", snap.Index, err)
		}
		if *weights {
			if err := a.WriteNetwork(os.Stdout, fmt.Sprintf("agent %d", snap.Index)); err != nil {
				return err
			}
		}
		if *code {
			line, err := formatCode(a, codons)
			if err != nil {
				return fmt.Errorf("agent %d: %w", snap.Index, err)
			}
			fmt.Printf("code %s\n", line)
		}
	}
	return nil
}

// formatCode decodes codons (all 64 when empty) to amino-acid letters, e.g.
// "AUG=M UGG=W".
func formatCode(a *agent.Agent, codons []genetics.Codon) (string, error) {
	if len(codons) == 0 {
		codons = make([]genetics.Codon, genetics.NumCodons)
		for i := range codons {
			codons[i] = genetics.Codon(i)
		}
	}
	table := genetics.AminoAcids()
	parts := make([]string, 0, len(codons))
	for _, c := range codons {
		out, _, err := a.CalcNetOutput(c.Input(), false)
		if err != nil {
			return "", err
		}
		idx, err := genetics.Decode(out, genetics.NumAminoAcids)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s=%c", c, table[idx].Letter))
	}
	return strings.Join(parts, " "), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: codevoctl <run|sweep|runs|measurements|population> [flags]", msg)
}
