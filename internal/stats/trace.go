package stats

import (
	"gonum.org/v1/gonum/stat"

	"codevo/internal/model"
)

// TracePoint is the position-wise mean of several convergence traces.
type TracePoint struct {
	Transmission int `json:"transmission"`
	model.Scores
	Runs int `json:"runs"`
}

// AverageTraces aligns traces by position and averages each scalar over the
// traces still long enough to contribute. The transmission index comes from
// the first contributing trace.
func AverageTraces(traces [][]model.Measurement) []TracePoint {
	longest := 0
	for _, trace := range traces {
		longest = max(longest, len(trace))
	}

	points := make([]TracePoint, 0, longest)
	for pos := 0; pos < longest; pos++ {
		var expr, comp, stab []float64
		transmission := -1
		for _, trace := range traces {
			if pos >= len(trace) {
				continue
			}
			m := trace[pos]
			if transmission < 0 {
				transmission = m.Transmission
			}
			expr = append(expr, m.Expressivity)
			comp = append(comp, m.Compositionality)
			stab = append(stab, m.Stability)
		}
		points = append(points, TracePoint{
			Transmission: transmission,
			Scores: model.Scores{
				Expressivity:     stat.Mean(expr, nil),
				Compositionality: stat.Mean(comp, nil),
				Stability:        stat.Mean(stab, nil),
			},
			Runs: len(expr),
		})
	}
	return points
}

// ScoreSpread returns the mean and sample standard deviation of each scalar.
// A single sample has zero deviation.
func ScoreSpread(scores []model.Scores) (mean, std model.Scores) {
	if len(scores) == 0 {
		return model.Scores{}, model.Scores{}
	}
	expr := make([]float64, len(scores))
	comp := make([]float64, len(scores))
	stab := make([]float64, len(scores))
	for i, s := range scores {
		expr[i] = s.Expressivity
		comp[i] = s.Compositionality
		stab[i] = s.Stability
	}
	mean.Expressivity, std.Expressivity = meanStd(expr)
	mean.Compositionality, std.Compositionality = meanStd(comp)
	mean.Stability, std.Stability = meanStd(stab)
	return mean, std
}

func meanStd(values []float64) (float64, float64) {
	if len(values) < 2 {
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}
