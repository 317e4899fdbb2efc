package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"codevo/internal/model"
	"codevo/internal/simulation"
)

var ErrNoPoints = errors.New("sweep has no grid points")

// Outcome is one finished simulation of a sweep.
type Outcome struct {
	Index  int
	Params model.Params
	RunID  string
	Result simulation.Result
}

// RunFunc executes one grid point. It must not share state between calls
// that would make results depend on scheduling.
type RunFunc func(ctx context.Context, p model.Params) (Outcome, error)

type Config struct {
	Workers int
	Run     RunFunc
	Logger  *slog.Logger
	// OnOutcome is called from the collecting goroutine in completion order.
	OnOutcome func(Outcome)
}

// Simulate runs a fresh simulation for p.
func Simulate(ctx context.Context, p model.Params) (Outcome, error) {
	sim, err := simulation.New(simulation.Config{Params: p})
	if err != nil {
		return Outcome{}, err
	}
	res, err := sim.Run(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Params: p, Result: res}, nil
}

// Run executes points on a bounded worker pool. Outcomes are returned in
// point order whatever the worker count. The first failing point, in point
// order, is reported after all workers stop.
func Run(ctx context.Context, points []model.Params, cfg Config) ([]Outcome, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	runFn := cfg.Run
	if runFn == nil {
		runFn = Simulate
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	type job struct {
		idx    int
		params model.Params
	}
	type result struct {
		idx     int
		outcome Outcome
		err     error
	}

	jobs := make(chan job)
	results := make(chan result, len(points))

	workerCount := cfg.Workers
	if workerCount <= 0 {
		workerCount = runtime.GOMAXPROCS(0)
	}
	if workerCount > len(points) {
		workerCount = len(points)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				out, err := runFn(ctx, j.params)
				if err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				out.Index = j.idx
				out.Params = j.params
				results <- result{idx: j.idx, outcome: out}
			}
		}()
	}

	go func() {
		for i := range points {
			jobs <- job{idx: i, params: points[i]}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	outcomes := make([]Outcome, len(points))
	errs := make([]error, len(points))
	done := 0
	for res := range results {
		done++
		if res.err != nil {
			errs[res.idx] = res.err
			logger.Warn("sweep point failed", "index", res.idx, "error", res.err)
			continue
		}
		outcomes[res.idx] = res.outcome
		logger.Debug("sweep point done",
			"index", res.idx,
			"completed", done,
			"total", len(points),
			"expressivity", res.outcome.Result.Expressivity,
			"compositionality", res.outcome.Result.Compositionality,
			"stability", res.outcome.Result.Stability,
		)
		if cfg.OnOutcome != nil {
			cfg.OnOutcome(res.outcome)
		}
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("sweep point %d: %w", i, err)
		}
	}
	return outcomes, nil
}
