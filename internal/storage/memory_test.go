package storage

import (
	"context"
	"testing"

	"codevo/internal/model"
)

func sampleRun(id, created string) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: CurrentVersion(),
		RunID:           id,
		Params:          model.Params{PopSize: 10, RandomSeed: 500},
		Final:           model.Scores{Expressivity: 0.4, Compositionality: 0.2, Stability: 0.9},
		Learners:        10,
		CreatedAtUTC:    created,
	}
}

func samplePopulation() []model.AgentSnapshot {
	return []model.AgentSnapshot{{
		VersionedRecord:  CurrentVersion(),
		Index:            0,
		LearningEpisodes: 3,
		InputToHidden:    [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		HiddenToOutput:   [][]float64{{0.5}, {0.6}, {0.7}},
	}}
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := store.SaveRun(ctx, sampleRun("b", "2026-01-02T00:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("a", "2026-01-02T00:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("c", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}

	run, ok, err := store.GetRun(ctx, "a")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || run.Final.Stability != 0.9 {
		t.Fatalf("unexpected run: ok=%t run=%+v", ok, run)
	}
	if _, ok, _ := store.GetRun(ctx, "missing"); ok {
		t.Fatal("expected missing run")
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	order := []string{"c", "a", "b"}
	if len(runs) != len(order) {
		t.Fatalf("expected %d runs, got %d", len(order), len(runs))
	}
	for i, id := range order {
		if runs[i].RunID != id {
			t.Fatalf("run %d: expected %s, got %s", i, id, runs[i].RunID)
		}
	}
}

func TestMemoryStoreListRunsOrdersFractionalSeconds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("newer", "2026-01-01T00:00:00.12Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("older", "2026-01-01T00:00:00.1Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "older" || runs[1].RunID != "newer" {
		t.Fatalf("unexpected order: %+v", runs)
	}
}

func TestMemoryStoreMeasurementsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.Measurement{
		{Transmission: 5, Scores: model.Scores{Expressivity: 0.1}, Learners: 5},
		{Transmission: 10, Scores: model.Scores{Expressivity: 0.2}, Learners: 8},
	}
	if err := store.SaveMeasurements(ctx, "run-1", input); err != nil {
		t.Fatalf("save measurements: %v", err)
	}
	input[0].Transmission = 99

	output, ok, err := store.GetMeasurements(ctx, "run-1")
	if err != nil {
		t.Fatalf("get measurements: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted measurements")
	}
	if len(output) != 2 || output[0].Transmission != 5 || output[1].Expressivity != 0.2 {
		t.Fatalf("unexpected measurements: %+v", output)
	}
}

func TestMemoryStorePopulationIsCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := samplePopulation()
	if err := store.SavePopulation(ctx, "run-1", input); err != nil {
		t.Fatalf("save population: %v", err)
	}
	input[0].InputToHidden[0][0] = 42

	output, ok, err := store.GetPopulation(ctx, "run-1")
	if err != nil {
		t.Fatalf("get population: %v", err)
	}
	if !ok || len(output) != 1 {
		t.Fatalf("unexpected population: ok=%t %+v", ok, output)
	}
	if output[0].InputToHidden[0][0] != 0.1 {
		t.Fatalf("stored weights aliased caller slice: %v", output[0].InputToHidden)
	}
	output[0].HiddenToOutput[2][0] = -1
	again, _, _ := store.GetPopulation(ctx, "run-1")
	if again[0].HiddenToOutput[2][0] != 0.7 {
		t.Fatalf("returned weights aliased stored slice: %v", again[0].HiddenToOutput)
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), sampleRun("a", "")); err == nil {
		t.Fatal("expected error before init")
	}
}
