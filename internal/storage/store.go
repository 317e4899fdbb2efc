package storage

import (
	"context"
	"sort"

	"codevo/internal/model"
)

// Store persists finished runs: the run record, its measurement trace and the
// final population of agents.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveMeasurements(ctx context.Context, runID string, trace []model.Measurement) error
	GetMeasurements(ctx context.Context, runID string) ([]model.Measurement, bool, error)
	SavePopulation(ctx context.Context, runID string, population []model.AgentSnapshot) error
	GetPopulation(ctx context.Context, runID string) ([]model.AgentSnapshot, bool, error)
}

// sortRuns orders runs oldest first by creation instant, then by id.
func sortRuns(runs []model.RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if c := model.CompareTimestamps(runs[i].CreatedAtUTC, runs[j].CreatedAtUTC); c != 0 {
			return c < 0
		}
		return runs[i].RunID < runs[j].RunID
	})
}
