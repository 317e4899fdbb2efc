package storage

import (
	"context"
	"errors"
	"sync"

	"codevo/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	runs         map[string]model.RunRecord
	measurements map[string][]model.Measurement
	populations  map[string][]model.AgentSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.measurements = make(map[string][]model.Measurement)
	s.populations = make(map[string][]model.AgentSnapshot)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.RunID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	return run, ok, nil
}

// ListRuns returns runs ordered by creation time, then id.
func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sortRuns(out)
	return out, nil
}

func (s *MemoryStore) SaveMeasurements(_ context.Context, runID string, trace []model.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.measurements[runID] = append([]model.Measurement(nil), trace...)
	return nil
}

func (s *MemoryStore) GetMeasurements(_ context.Context, runID string) ([]model.Measurement, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trace, ok := s.measurements[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.Measurement(nil), trace...), true, nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, runID string, population []model.AgentSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.populations[runID] = cloneSnapshots(population)
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, runID string) ([]model.AgentSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	population, ok := s.populations[runID]
	if !ok {
		return nil, false, nil
	}
	return cloneSnapshots(population), true, nil
}

func cloneSnapshots(in []model.AgentSnapshot) []model.AgentSnapshot {
	out := make([]model.AgentSnapshot, len(in))
	for i, snap := range in {
		out[i] = snap
		out[i].InputToHidden = cloneRows(snap.InputToHidden)
		out[i].HiddenToOutput = cloneRows(snap.HiddenToOutput)
	}
	return out
}

func cloneRows(in [][]float64) [][]float64 {
	if in == nil {
		return nil
	}
	out := make([][]float64, len(in))
	for i, row := range in {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
