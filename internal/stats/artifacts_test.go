package stats

import (
	"os"
	"path/filepath"
	"testing"

	"codevo/internal/model"
)

func TestWriteRunArtifactsAndRead(t *testing.T) {
	base := t.TempDir()
	artifacts := RunArtifacts{
		Config: RunConfig{
			RunID:        "run-1",
			Params:       model.Params{PopSize: 4, RandomSeed: 1300},
			Store:        "memory",
			CreatedAtUTC: "2026-01-01T00:00:00Z",
		},
		Measurements: RunMeasurements{
			Final:    model.Scores{Expressivity: 0.5, Compositionality: 0.1, Stability: 0.75},
			Learners: 4,
			Trace: []model.Measurement{
				{Transmission: 10, Scores: model.Scores{Expressivity: 0.4}, Learners: 3},
				{Transmission: 20, Scores: model.Scores{Expressivity: 0.5}, Learners: 4},
			},
		},
		Population: []model.AgentSnapshot{{Index: 0, InputToHidden: [][]float64{{1}}, HiddenToOutput: [][]float64{{2}}}},
	}

	runDir, err := WriteRunArtifacts(base, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, name := range []string{configFile, measurementsFile, populationFile} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	cfg, ok, err := ReadRunConfig(base, "run-1")
	if err != nil || !ok {
		t.Fatalf("read config: ok=%t err=%v", ok, err)
	}
	if cfg.Params.RandomSeed != 1300 || cfg.Store != "memory" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	m, ok, err := ReadRunMeasurements(base, "run-1")
	if err != nil || !ok {
		t.Fatalf("read measurements: ok=%t err=%v", ok, err)
	}
	if len(m.Trace) != 2 || m.Trace[1].Transmission != 20 || m.Final.Stability != 0.75 {
		t.Fatalf("unexpected measurements: %+v", m)
	}

	pop, ok, err := ReadPopulation(base, "run-1")
	if err != nil || !ok {
		t.Fatalf("read population: ok=%t err=%v", ok, err)
	}
	if len(pop) != 1 || pop[0].HiddenToOutput[0][0] != 2 {
		t.Fatalf("unexpected population: %+v", pop)
	}

	if _, ok, err := ReadRunConfig(base, "missing"); err != nil || ok {
		t.Fatalf("expected missing config, ok=%t err=%v", ok, err)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestRunIndexOrderingAndReplace(t *testing.T) {
	base := t.TempDir()
	entries := []RunIndexEntry{
		{RunID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z"},
		{RunID: "b", CreatedAtUTC: "2026-01-02T00:00:00Z"},
		{RunID: "c", CreatedAtUTC: "2026-01-02T00:00:00Z"},
	}
	for _, e := range entries {
		if err := AppendRunIndex(base, e); err != nil {
			t.Fatalf("append %s: %v", e.RunID, err)
		}
	}
	if err := AppendRunIndex(base, RunIndexEntry{RunID: "a", Seed: 7, CreatedAtUTC: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("replace a: %v", err)
	}

	index, err := ListRunIndex(base)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"c", "b", "a"}
	if len(index) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), index)
	}
	for i, id := range want {
		if index[i].RunID != id {
			t.Fatalf("entry %d: expected %s, got %s", i, id, index[i].RunID)
		}
	}
	if index[2].Seed != 7 {
		t.Fatalf("expected replaced entry, got %+v", index[2])
	}
}

func TestRunIndexOrderIsStableAcrossAppends(t *testing.T) {
	base := t.TempDir()
	for _, id := range []string{"x", "y", "z"} {
		if err := AppendRunIndex(base, RunIndexEntry{RunID: id, CreatedAtUTC: "2026-01-02T00:00:00Z"}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
		index, err := ListRunIndex(base)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if index[0].RunID != id {
			t.Fatalf("after appending %s the newest entry is %s", id, index[0].RunID)
		}
	}
	index, err := ListRunIndex(base)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, id := range []string{"z", "y", "x"} {
		if index[i].RunID != id || index[i].Seq != int64(3-i) {
			t.Fatalf("entry %d: got %s seq %d", i, index[i].RunID, index[i].Seq)
		}
	}
}

func TestRunIndexOrdersByInstant(t *testing.T) {
	base := t.TempDir()
	if err := AppendRunIndex(base, RunIndexEntry{RunID: "older", CreatedAtUTC: "2026-01-01T00:00:00.1Z"}); err != nil {
		t.Fatalf("append older: %v", err)
	}
	if err := AppendRunIndex(base, RunIndexEntry{RunID: "newer", CreatedAtUTC: "2026-01-01T00:00:00.12Z"}); err != nil {
		t.Fatalf("append newer: %v", err)
	}
	index, err := ListRunIndex(base)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if index[0].RunID != "newer" {
		t.Fatalf("latest resolved to %q, want newer", index[0].RunID)
	}
}

func TestListRunIndexEmpty(t *testing.T) {
	index, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(index) != 0 {
		t.Fatalf("expected empty index, got %+v", index)
	}
}

func TestNewRunIndexEntry(t *testing.T) {
	run := model.RunRecord{
		RunID:  "r",
		Params: model.Params{RandomSeed: 9, PopSize: 3, NumHiddenNeurons: 5, MaxTransmissions: 11},
		Final:  model.Scores{Expressivity: 0.1, Compositionality: 0.2, Stability: 0.3},
	}
	e := NewRunIndexEntry(run)
	if e.Seed != 9 || e.PopulationSize != 3 || e.HiddenNeurons != 5 || e.Transmissions != 11 || e.Stability != 0.3 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}
