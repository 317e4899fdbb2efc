// Package agent implements the learning agent: a two-layer perceptron with a
// bias unit on each layer, trained online one (codon, amino acid) pair at a
// time.
package agent

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"codevo/internal/model"
	"codevo/internal/nn"
)

var ErrDimensionMismatch = errors.New("dimension mismatch")

// DefaultActivation is used when no activation is named.
const DefaultActivation = "sigmoid"

type Agent struct {
	// numInputs counts the bias unit.
	numInputs    int
	numHidden    int
	numOutputs   int
	learningRate float64
	activation   nn.Activation

	// inputToHidden is numInputs x numHidden; the last row carries the bias
	// weights. hiddenToOutput is (numHidden+1) x numOutputs, same layout.
	inputToHidden  *mat.Dense
	hiddenToOutput *mat.Dense

	firstTimeLearner bool
	noOfLE           int
}

// New builds a sigmoid agent whose weights are drawn independently from
// N(0, initWeightSD), input-to-hidden row by row first.
func New(numInputs, numHidden, numOutputs int, initWeightSD, learningRate float64, rng *rand.Rand) (*Agent, error) {
	return NewWithActivation(DefaultActivation, numInputs, numHidden, numOutputs, initWeightSD, learningRate, rng)
}

// NewWithActivation is New with a registered activation applied to both
// layers. An empty name selects DefaultActivation.
func NewWithActivation(activationName string, numInputs, numHidden, numOutputs int, initWeightSD, learningRate float64, rng *rand.Rand) (*Agent, error) {
	if numInputs <= 0 || numHidden <= 0 || numOutputs <= 0 {
		return nil, fmt.Errorf("layer sizes must be > 0: inputs=%d hidden=%d outputs=%d", numInputs, numHidden, numOutputs)
	}
	if initWeightSD < 0 {
		return nil, fmt.Errorf("initial weight sd must be >= 0: %f", initWeightSD)
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	activation, err := resolveActivation(activationName)
	if err != nil {
		return nil, err
	}

	numInputs++
	a := &Agent{
		numInputs:        numInputs,
		numHidden:        numHidden,
		numOutputs:       numOutputs,
		learningRate:     learningRate,
		activation:       activation,
		firstTimeLearner: true,
	}
	a.inputToHidden = mat.NewDense(numInputs, numHidden, normalWeights(rng, numInputs*numHidden, initWeightSD))
	a.hiddenToOutput = mat.NewDense(numHidden+1, numOutputs, normalWeights(rng, (numHidden+1)*numOutputs, initWeightSD))
	return a, nil
}

func resolveActivation(name string) (nn.Activation, error) {
	if name == "" {
		name = DefaultActivation
	}
	return nn.GetActivation(name)
}

func normalWeights(rng *rand.Rand, n int, sd float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * sd
	}
	return out
}

// NumInputs is the caller-visible input length, without the bias unit.
func (a *Agent) NumInputs() int  { return a.numInputs - 1 }
func (a *Agent) NumHidden() int  { return a.numHidden }
func (a *Agent) NumOutputs() int { return a.numOutputs }

func (a *Agent) LearningRate() float64 { return a.learningRate }

func (a *Agent) Activation() string { return a.activation.Name }

// FirstTimeLearner reports whether the agent has never been trained.
func (a *Agent) FirstTimeLearner() bool { return a.firstTimeLearner }

// LearningEpisodes is the number of TrainingEpisode calls performed.
func (a *Agent) LearningEpisodes() int { return a.noOfLE }

// CalcNetOutput runs the forward pass. When wantHiddenLevels is set the
// activated hidden layer is returned as well, with its bias unit appended, so
// it can be handed straight to TrainingEpisode.
func (a *Agent) CalcNetOutput(input []float64, wantHiddenLevels bool) ([]float64, []float64, error) {
	if len(input) != a.NumInputs() {
		return nil, nil, fmt.Errorf("%w: input length %d, want %d", ErrDimensionMismatch, len(input), a.NumInputs())
	}

	x := mat.NewVecDense(a.numInputs, nn.AppendBias(input))
	var pre mat.VecDense
	pre.MulVec(a.inputToHidden.T(), x)

	hidden := make([]float64, a.numHidden, a.numHidden+1)
	for j := range hidden {
		hidden[j] = a.activation.Func(pre.AtVec(j))
	}
	hidden = append(hidden, 1.0)

	var out mat.VecDense
	out.MulVec(a.hiddenToOutput.T(), mat.NewVecDense(a.numHidden+1, hidden))
	output := make([]float64, a.numOutputs)
	for k := range output {
		output[k] = a.activation.Func(out.AtVec(k))
	}

	if !wantHiddenLevels {
		return output, nil, nil
	}
	return output, hidden, nil
}

// TrainingEpisode performs one backpropagation step for a pair whose forward
// pass produced actual and hidden from input. hidden may be passed with or
// without its trailing bias unit.
//
// The hidden-to-output weights are updated first and the hidden error terms
// are then computed from the updated weights. This ordering is part of the
// model and must not be swapped for the textbook variant.
func (a *Agent) TrainingEpisode(target, actual, hidden, input []float64) ([]float64, error) {
	if len(target) != a.numOutputs || len(actual) != a.numOutputs {
		return nil, fmt.Errorf("%w: target=%d actual=%d, want %d outputs", ErrDimensionMismatch, len(target), len(actual), a.numOutputs)
	}
	if len(input) != a.NumInputs() {
		return nil, fmt.Errorf("%w: input length %d, want %d", ErrDimensionMismatch, len(input), a.NumInputs())
	}
	var hiddenWithBias []float64
	switch len(hidden) {
	case a.numHidden:
		hiddenWithBias = nn.AppendBias(hidden)
	case a.numHidden + 1:
		hiddenWithBias = append([]float64(nil), hidden...)
	default:
		return nil, fmt.Errorf("%w: hidden length %d, want %d or %d", ErrDimensionMismatch, len(hidden), a.numHidden, a.numHidden+1)
	}

	deltaK := make([]float64, a.numOutputs)
	for k := range deltaK {
		y := actual[k]
		deltaK[k] = (target[k] - y) * a.activation.Slope(y)
	}
	dK := mat.NewVecDense(a.numOutputs, deltaK)

	a.hiddenToOutput.RankOne(a.hiddenToOutput, a.learningRate, mat.NewVecDense(a.numHidden+1, hiddenWithBias), dK)

	var back mat.VecDense
	back.MulVec(a.hiddenToOutput, dK)
	deltaJ := make([]float64, a.numHidden)
	for j := range deltaJ {
		deltaJ[j] = a.activation.Slope(hiddenWithBias[j]) * back.AtVec(j)
	}

	x := mat.NewVecDense(a.numInputs, nn.AppendBias(input))
	a.inputToHidden.RankOne(a.inputToHidden, a.learningRate, x, mat.NewVecDense(a.numHidden, deltaJ))

	a.firstTimeLearner = false
	a.noOfLE++
	return deltaK, nil
}

// WriteNetwork dumps both weight matrices, one row per line.
func (a *Agent) WriteNetwork(w io.Writer, name string) error {
	if _, err := fmt.Fprintf(w, "%s network weights\n", name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%v\n", mat.Formatted(a.inputToHidden, mat.Squeeze())); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "---------------------------------------"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%v\n", mat.Formatted(a.hiddenToOutput, mat.Squeeze()))
	return err
}

func (a *Agent) Snapshot(index int) model.AgentSnapshot {
	return model.AgentSnapshot{
		Index:            index,
		FirstTimeLearner: a.firstTimeLearner,
		LearningEpisodes: a.noOfLE,
		Activation:       a.activation.Name,
		InputToHidden:    denseRows(a.inputToHidden),
		HiddenToOutput:   denseRows(a.hiddenToOutput),
	}
}

// FromSnapshot rebuilds an agent from persisted weights.
func FromSnapshot(snapshot model.AgentSnapshot, learningRate float64) (*Agent, error) {
	inputs := len(snapshot.InputToHidden)
	hiddenRows := len(snapshot.HiddenToOutput)
	if inputs < 2 || hiddenRows < 2 {
		return nil, fmt.Errorf("%w: snapshot needs at least one unit plus bias per layer", ErrDimensionMismatch)
	}
	numHidden := hiddenRows - 1
	numOutputs := len(snapshot.HiddenToOutput[0])
	if len(snapshot.InputToHidden[0]) != numHidden || numOutputs == 0 {
		return nil, fmt.Errorf("%w: snapshot layer widths disagree", ErrDimensionMismatch)
	}
	inputToHidden, err := rowsDense(snapshot.InputToHidden, numHidden)
	if err != nil {
		return nil, err
	}
	hiddenToOutput, err := rowsDense(snapshot.HiddenToOutput, numOutputs)
	if err != nil {
		return nil, err
	}
	activation, err := resolveActivation(snapshot.Activation)
	if err != nil {
		return nil, err
	}
	return &Agent{
		numInputs:        inputs,
		numHidden:        numHidden,
		numOutputs:       numOutputs,
		learningRate:     learningRate,
		activation:       activation,
		inputToHidden:    inputToHidden,
		hiddenToOutput:   hiddenToOutput,
		firstTimeLearner: snapshot.FirstTimeLearner,
		noOfLE:           snapshot.LearningEpisodes,
	}, nil
}

func denseRows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}

func rowsDense(rows [][]float64, cols int) (*mat.Dense, error) {
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimensionMismatch, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
