package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"codevo/internal/model"
)

const resultColumns = 9

// ResultRow is one Data.csv line.
type ResultRow struct {
	Seed          int64   `json:"seed"`
	HiddenSize    int     `json:"hidden_size"`
	LearningRate  float64 `json:"learning_rate"`
	BottleNeck    int     `json:"bottleneck"`
	Epochs        int     `json:"epochs"`
	Transmissions int     `json:"transmissions"`
	model.Scores
}

func NewResultRow(p model.Params, s model.Scores) ResultRow {
	return ResultRow{
		Seed:          p.RandomSeed,
		HiddenSize:    p.NumHiddenNeurons,
		LearningRate:  p.LearningRate,
		BottleNeck:    p.BottleNeck,
		Epochs:        p.NumberOfEpochs,
		Transmissions: p.MaxTransmissions,
		Scores:        s,
	}
}

// Record formats every column with four decimals, integers included.
func (r ResultRow) Record() []string {
	values := []float64{
		float64(r.Seed),
		float64(r.HiddenSize),
		r.LearningRate,
		float64(r.BottleNeck),
		float64(r.Epochs),
		float64(r.Transmissions),
		r.Expressivity,
		r.Compositionality,
		r.Stability,
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'f', 4, 64)
	}
	return out
}

// WriteResultsCSV replaces path with rows.
func WriteResultsCSV(path string, rows []ResultRow) error {
	return writeResults(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, rows)
}

// AppendResultsCSV adds rows to the end of path, creating it if needed.
func AppendResultsCSV(path string, rows []ResultRow) error {
	return writeResults(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, rows)
}

func writeResults(path string, flag int, rows []ResultRow) error {
	file, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	for _, row := range rows {
		if err := writer.Write(row.Record()); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Sync()
}

func ReadResultsCSV(path string) ([]ResultRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = resultColumns
	rows := make([]ResultRow, 0, 16)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		values := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("results line %d column %d: %w", line, i+1, err)
			}
			values[i] = v
		}
		rows = append(rows, ResultRow{
			Seed:          int64(math.Round(values[0])),
			HiddenSize:    int(math.Round(values[1])),
			LearningRate:  values[2],
			BottleNeck:    int(math.Round(values[3])),
			Epochs:        int(math.Round(values[4])),
			Transmissions: int(math.Round(values[5])),
			Scores: model.Scores{
				Expressivity:     values[6],
				Compositionality: values[7],
				Stability:        values[8],
			},
		})
	}
	return rows, nil
}
