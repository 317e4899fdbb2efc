package sweep

import (
	"codevo/internal/model"
	"codevo/internal/stats"
)

// Rows converts outcomes to Data.csv rows, keeping their order.
func Rows(outcomes []Outcome) []stats.ResultRow {
	rows := make([]stats.ResultRow, len(outcomes))
	for i, o := range outcomes {
		rows[i] = stats.NewResultRow(o.Params, o.Result.Scores)
	}
	return rows
}

// Summarize groups outcomes that differ only by seed, in order of first
// appearance.
func Summarize(outcomes []Outcome) []stats.SweepCell {
	type group struct {
		cell   stats.SweepCell
		scores []model.Scores
		traces [][]model.Measurement
	}
	order := make([]model.Params, 0)
	groups := make(map[model.Params]*group)
	for _, o := range outcomes {
		key := o.Params
		key.RandomSeed = 0
		g, ok := groups[key]
		if !ok {
			g = &group{cell: stats.SweepCell{Params: key}}
			groups[key] = g
			order = append(order, key)
		}
		g.cell.Seeds = append(g.cell.Seeds, o.Params.RandomSeed)
		if o.RunID != "" {
			g.cell.RunIDs = append(g.cell.RunIDs, o.RunID)
		}
		g.scores = append(g.scores, o.Result.Scores)
		g.traces = append(g.traces, o.Result.Trace)
	}

	cells := make([]stats.SweepCell, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.cell.Mean, g.cell.Std = stats.ScoreSpread(g.scores)
		g.cell.Trace = stats.AverageTraces(g.traces)
		cells = append(cells, g.cell)
	}
	return cells
}
