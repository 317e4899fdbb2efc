package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"codevo/internal/model"
)

const sweepsDir = "sweeps"

// SweepCell groups the runs of one grid point across seeds.
type SweepCell struct {
	Params model.Params `json:"params"`
	Seeds  []int64      `json:"seeds"`
	RunIDs []string     `json:"run_ids,omitempty"`
	Mean   model.Scores `json:"mean"`
	Std    model.Scores `json:"std"`
	Trace  []TracePoint `json:"trace,omitempty"`
}

type SweepRecord struct {
	ID             string      `json:"id"`
	StartedAtUTC   string      `json:"started_at_utc,omitempty"`
	CompletedAtUTC string      `json:"completed_at_utc,omitempty"`
	Workers        int         `json:"workers"`
	TotalRuns      int         `json:"total_runs"`
	Results        []ResultRow `json:"results,omitempty"`
	Cells          []SweepCell `json:"cells,omitempty"`
}

func WriteSweepRecord(baseDir string, rec SweepRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("sweep id is required")
	}
	path := sweepRecordPath(baseDir, rec.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, rec)
}

func ReadSweepRecord(baseDir, id string) (SweepRecord, bool, error) {
	if id == "" {
		return SweepRecord{}, false, fmt.Errorf("sweep id is required")
	}
	var rec SweepRecord
	ok, err := readJSON(sweepRecordPath(baseDir, id), &rec)
	if err != nil || !ok {
		return SweepRecord{}, ok, err
	}
	return rec, true, nil
}

// ListSweepRecords returns sweeps newest first; undated sweeps sort last.
func ListSweepRecords(baseDir string) ([]SweepRecord, error) {
	root := filepath.Join(baseDir, sweepsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []SweepRecord{}, nil
		}
		return nil, err
	}

	recs := make([]SweepRecord, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, ok, err := ReadSweepRecord(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if c := model.CompareTimestamps(recs[i].StartedAtUTC, recs[j].StartedAtUTC); c != 0 {
			return c > 0
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

func sweepRecordPath(baseDir, id string) string {
	return filepath.Join(baseDir, sweepsDir, id, "sweep.json")
}
