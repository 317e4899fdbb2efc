package sweep

import "codevo/internal/model"

// Grid is a cartesian product of parameter axes over Base. An empty axis
// keeps Base's value.
type Grid struct {
	Base          model.Params
	Seeds         []int64
	Hidden        []int
	LearningRates []float64
	BottleNecks   []int
	Epochs        []int
	Transmissions []int
}

// DefaultGrid sweeps five seeds over hidden sizes 4..12, learning rates
// 0.1..0.5, bottlenecks 10..20 and 50..500 epochs and transmissions.
func DefaultGrid(base model.Params) Grid {
	return Grid{
		Base:          base,
		Seeds:         []int64{10, 30, 80, 777, 555},
		Hidden:        intRange(4, 12, 1),
		LearningRates: []float64{0.1, 0.2, 0.3, 0.4, 0.5},
		BottleNecks:   intRange(10, 20, 2),
		Epochs:        intRange(50, 500, 50),
		Transmissions: intRange(50, 500, 50),
	}
}

func (g Grid) Size() int {
	return axisLen(len(g.Seeds)) * axisLen(len(g.Hidden)) * axisLen(len(g.LearningRates)) *
		axisLen(len(g.BottleNecks)) * axisLen(len(g.Epochs)) * axisLen(len(g.Transmissions))
}

// Expand lists every grid point. Seeds vary slowest and transmissions
// fastest.
func (g Grid) Expand() []model.Params {
	seeds := g.Seeds
	if len(seeds) == 0 {
		seeds = []int64{g.Base.RandomSeed}
	}
	hidden := orDefault(g.Hidden, g.Base.NumHiddenNeurons)
	rates := orDefault(g.LearningRates, g.Base.LearningRate)
	bottlenecks := orDefault(g.BottleNecks, g.Base.BottleNeck)
	epochs := orDefault(g.Epochs, g.Base.NumberOfEpochs)
	transmissions := orDefault(g.Transmissions, g.Base.MaxTransmissions)

	out := make([]model.Params, 0, g.Size())
	for _, seed := range seeds {
		for _, h := range hidden {
			for _, lr := range rates {
				for _, b := range bottlenecks {
					for _, ep := range epochs {
						for _, tr := range transmissions {
							p := g.Base
							p.RandomSeed = seed
							p.NumHiddenNeurons = h
							p.LearningRate = lr
							p.BottleNeck = b
							p.NumberOfEpochs = ep
							p.MaxTransmissions = tr
							out = append(out, p)
						}
					}
				}
			}
		}
	}
	return out
}

func orDefault[T any](axis []T, base T) []T {
	if len(axis) == 0 {
		return []T{base}
	}
	return axis
}

func axisLen(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

func intRange(from, to, step int) []int {
	out := make([]int, 0, (to-from)/step+1)
	for v := from; v <= to; v += step {
		out = append(out, v)
	}
	return out
}
