package codevo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"codevo/internal/agent"
	"codevo/internal/model"
	"codevo/internal/simulation"
	"codevo/internal/stats"
	"codevo/internal/storage"
	"codevo/internal/sweep"
)

const (
	defaultRunsDir = "runs"
	defaultDBPath  = "codevo.db"
)

type Options struct {
	StoreKind string
	DBPath    string
	RunsDir   string
	Logger    *slog.Logger
}

type Client struct {
	store   storage.Store
	runsDir string
	logger  *slog.Logger

	mu          sync.Mutex
	initialized bool
}

type RunRequest struct {
	Params model.Params
	// CSVPath receives the Data.csv row when set. AppendCSV keeps existing
	// rows instead of replacing the file.
	CSVPath   string
	AppendCSV bool
	Observer  func(simulation.Round)
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	model.Scores
	Learners int
	Trace    []model.Measurement
}

type SweepRequest struct {
	Grid      sweep.Grid
	Workers   int
	CSVPath   string
	AppendCSV bool
	// PersistRuns stores every grid point as a run with its own artifacts.
	PersistRuns bool
}

type SweepSummary struct {
	SweepID string
	Rows    []stats.ResultRow
	Cells   []stats.SweepCell
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID         string
	CreatedAtUTC  string
	Seed          int64
	Population    int
	HiddenNeurons int
	Transmissions int
	model.Scores
}

type MeasurementsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type PopulationRequest struct {
	RunID  string
	Latest bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		runsDir: runsDir,
		logger:  logger,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Run executes one simulation and records it in the store, the artifacts
// directory and the run index.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	summary, run, err := c.runAndPersist(ctx, req.Params, req.Observer)
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.NewRunIndexEntry(run)); err != nil {
		return RunSummary{}, err
	}

	if req.CSVPath != "" {
		rows := []stats.ResultRow{stats.NewResultRow(req.Params, summary.Scores)}
		if err := writeRows(req.CSVPath, req.AppendCSV, rows); err != nil {
			return RunSummary{}, err
		}
	}
	return summary, nil
}

// Sweep runs every grid point on a worker pool. Rows and cells follow grid
// order.
func (c *Client) Sweep(ctx context.Context, req SweepRequest) (SweepSummary, error) {
	if err := c.Init(ctx); err != nil {
		return SweepSummary{}, err
	}

	points := req.Grid.Expand()
	started := time.Now().UTC()
	sweepID := uuid.New().String()
	c.logger.Info("sweep start", "sweep_id", sweepID, "points", len(points), "workers", req.Workers)

	cfg := sweep.Config{Workers: req.Workers, Logger: c.logger}
	if req.PersistRuns {
		cfg.Run = func(ctx context.Context, p model.Params) (sweep.Outcome, error) {
			summary, _, err := c.runAndPersist(ctx, p, nil)
			if err != nil {
				return sweep.Outcome{}, err
			}
			return sweep.Outcome{
				RunID: summary.RunID,
				Result: simulation.Result{
					Scores:   summary.Scores,
					Trace:    summary.Trace,
					Learners: summary.Learners,
				},
			}, nil
		}
	}
	done := 0
	cfg.OnOutcome = func(o sweep.Outcome) {
		done++
		c.logger.Debug("sweep point done", "sweep_id", sweepID, "index", o.Index, "run_id", o.RunID, "completed", done, "points", len(points))
	}

	outcomes, err := sweep.Run(ctx, points, cfg)
	if err != nil {
		return SweepSummary{}, err
	}
	if req.PersistRuns {
		if err := c.indexRuns(ctx, outcomes); err != nil {
			return SweepSummary{}, err
		}
	}

	summary := SweepSummary{
		SweepID: sweepID,
		Rows:    sweep.Rows(outcomes),
		Cells:   sweep.Summarize(outcomes),
	}
	if req.CSVPath != "" {
		if err := writeRows(req.CSVPath, req.AppendCSV, summary.Rows); err != nil {
			return SweepSummary{}, err
		}
	}
	if err := stats.WriteSweepRecord(c.runsDir, stats.SweepRecord{
		ID:             sweepID,
		StartedAtUTC:   model.FormatTimestamp(started),
		CompletedAtUTC: model.FormatTimestamp(time.Now()),
		Workers:        req.Workers,
		TotalRuns:      len(outcomes),
		Results:        summary.Rows,
		Cells:          summary.Cells,
	}); err != nil {
		return SweepSummary{}, err
	}
	c.logger.Info("sweep done", "sweep_id", sweepID, "points", len(outcomes), "cells", len(summary.Cells))
	return summary, nil
}

// Runs lists runs newest first, merging the run index with the store so runs
// kept only in a database are listed too.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	entries, err := c.listRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:         e.RunID,
			CreatedAtUTC:  e.CreatedAtUTC,
			Seed:          e.Seed,
			Population:    e.PopulationSize,
			HiddenNeurons: e.HiddenNeurons,
			Transmissions: e.Transmissions,
			Scores: model.Scores{
				Expressivity:     e.Expressivity,
				Compositionality: e.Compositionality,
				Stability:        e.Stability,
			},
		})
	}
	return out, nil
}

// Measurements returns a run's convergence trace from the store, falling
// back to the run's artifacts.
func (c *Client) Measurements(ctx context.Context, req MeasurementsRequest) ([]model.Measurement, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "measurements")
	if err != nil {
		return nil, err
	}

	trace, ok, err := c.store.GetMeasurements(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		m, found, err := stats.ReadRunMeasurements(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("measurements not found for run id: %s", runID)
		}
		trace = m.Trace
	}
	if req.Limit > 0 && len(trace) > req.Limit {
		trace = trace[:req.Limit]
	}
	return append([]model.Measurement(nil), trace...), nil
}

// Population returns the final agent snapshots of a run.
func (c *Client) Population(ctx context.Context, req PopulationRequest) ([]model.AgentSnapshot, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "population")
	if err != nil {
		return nil, err
	}

	population, ok, err := c.store.GetPopulation(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return population, nil
	}
	population, ok, err = stats.ReadPopulation(c.runsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("population not found for run id: %s", runID)
	}
	return population, nil
}

func (c *Client) runAndPersist(ctx context.Context, p model.Params, observer func(simulation.Round)) (RunSummary, model.RunRecord, error) {
	sim, err := simulation.New(simulation.Config{Params: p, Logger: c.logger, Observer: observer})
	if err != nil {
		return RunSummary{}, model.RunRecord{}, err
	}
	result, err := sim.Run(ctx)
	if err != nil {
		return RunSummary{}, model.RunRecord{}, err
	}

	runID := uuid.New().String()
	run := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           runID,
		Params:          p,
		Final:           result.Scores,
		Learners:        result.Learners,
		CreatedAtUTC:    model.FormatTimestamp(time.Now()),
	}
	population := snapshotPopulation(sim.Population())

	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, model.RunRecord{}, err
	}
	if err := c.store.SaveMeasurements(ctx, runID, result.Trace); err != nil {
		return RunSummary{}, model.RunRecord{}, err
	}
	if err := c.store.SavePopulation(ctx, runID, population); err != nil {
		return RunSummary{}, model.RunRecord{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:        runID,
			Params:       p,
			CreatedAtUTC: run.CreatedAtUTC,
		},
		Measurements: stats.RunMeasurements{
			Final:    result.Scores,
			Learners: result.Learners,
			Trace:    result.Trace,
		},
		Population: population,
	})
	if err != nil {
		return RunSummary{}, model.RunRecord{}, err
	}

	c.logger.Debug("run persisted", "run_id", runID, "dir", runDir)
	return RunSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Scores:       result.Scores,
		Learners:     result.Learners,
		Trace:        append([]model.Measurement(nil), result.Trace...),
	}, run, nil
}

// indexRuns appends persisted sweep runs to the run index in grid order.
func (c *Client) indexRuns(ctx context.Context, outcomes []sweep.Outcome) error {
	for _, o := range outcomes {
		run, ok, err := c.store.GetRun(ctx, o.RunID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("run %s missing from store", o.RunID)
		}
		if err := stats.AppendRunIndex(c.runsDir, stats.NewRunIndexEntry(run)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) listRuns(ctx context.Context) ([]stats.RunIndexEntry, error) {
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.RunID] = true
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if !seen[runs[i].RunID] {
			entries = append(entries, stats.NewRunIndexEntry(runs[i]))
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return model.CompareTimestamps(entries[i].CreatedAtUTC, entries[j].CreatedAtUTC) > 0
	})
	return entries, nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if latest {
		entries, err := c.listRuns(ctx)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}

func snapshotPopulation(agents []*agent.Agent) []model.AgentSnapshot {
	out := make([]model.AgentSnapshot, len(agents))
	for i, a := range agents {
		out[i] = a.Snapshot(i)
		out[i].VersionedRecord = storage.CurrentVersion()
	}
	return out
}

func writeRows(path string, appendRows bool, rows []stats.ResultRow) error {
	if appendRows {
		return stats.AppendResultsCSV(path, rows)
	}
	return stats.WriteResultsCSV(path, rows)
}
