package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codevo/internal/model"
)

const (
	runIndexFile     = "run_index.json"
	configFile       = "config.json"
	measurementsFile = "measurements.json"
	populationFile   = "population.json"
)

type RunConfig struct {
	RunID        string       `json:"run_id"`
	Params       model.Params `json:"params"`
	Store        string       `json:"store,omitempty"`
	CreatedAtUTC string       `json:"created_at_utc"`
}

// RunMeasurements is the content of measurements.json.
type RunMeasurements struct {
	Final    model.Scores        `json:"final"`
	Learners int                 `json:"learners"`
	Trace    []model.Measurement `json:"trace"`
}

type RunArtifacts struct {
	Config       RunConfig             `json:"config"`
	Measurements RunMeasurements       `json:"measurements"`
	Population   []model.AgentSnapshot `json:"population"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Seed             int64   `json:"seed"`
	PopulationSize   int     `json:"population_size"`
	HiddenNeurons    int     `json:"hidden_neurons"`
	Transmissions    int     `json:"transmissions"`
	Expressivity     float64 `json:"expressivity"`
	Compositionality float64 `json:"compositionality"`
	Stability        float64 `json:"stability"`
	CreatedAtUTC     string  `json:"created_at_utc"`
	// Seq is the append order; it breaks ties between equal timestamps.
	Seq int64 `json:"seq"`
}

// NewRunIndexEntry summarizes a run record for the run index.
func NewRunIndexEntry(run model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:            run.RunID,
		Seed:             run.Params.RandomSeed,
		PopulationSize:   run.Params.PopSize,
		HiddenNeurons:    run.Params.NumHiddenNeurons,
		Transmissions:    run.Params.MaxTransmissions,
		Expressivity:     run.Final.Expressivity,
		Compositionality: run.Final.Compositionality,
		Stability:        run.Final.Stability,
		CreatedAtUTC:     run.CreatedAtUTC,
	}
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Config.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, measurementsFile), artifacts.Measurements); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, populationFile), artifacts.Population); err != nil {
		return "", err
	}
	return runDir, nil
}

// AppendRunIndex adds entry to the index, or replaces the entry with the
// same run id in place. The file keeps append order.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	var maxSeq int64
	for i := range index {
		if index[i].Seq > maxSeq {
			maxSeq = index[i].Seq
		}
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			entry.Seq = index[i].Seq
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	entry.Seq = maxSeq + 1
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first. Entries sharing a timestamp
// keep later appends ahead of earlier ones.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	index, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(index, func(i, j int) bool {
		if c := model.CompareTimestamps(index[i].CreatedAtUTC, index[j].CreatedAtUTC); c != 0 {
			return c > 0
		}
		return index[i].Seq > index[j].Seq
	})
	return index, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []RunIndexEntry{}, nil
	}
	return entries, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	if err != nil || !ok {
		return RunConfig{}, ok, err
	}
	return cfg, true, nil
}

func ReadRunMeasurements(baseDir, runID string) (RunMeasurements, bool, error) {
	var m RunMeasurements
	ok, err := readJSON(filepath.Join(baseDir, runID, measurementsFile), &m)
	if err != nil || !ok {
		return RunMeasurements{}, ok, err
	}
	return m, true, nil
}

func ReadPopulation(baseDir, runID string) ([]model.AgentSnapshot, bool, error) {
	var population []model.AgentSnapshot
	ok, err := readJSON(filepath.Join(baseDir, runID, populationFile), &population)
	if err != nil || !ok {
		return nil, ok, err
	}
	return population, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
