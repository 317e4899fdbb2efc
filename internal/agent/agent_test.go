package agent

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"codevo/internal/nn"
)

func newTestAgent(t *testing.T, inputs, hidden, outputs int, sd, lr float64, seed int64) *Agent {
	t.Helper()
	a, err := New(inputs, hidden, outputs, sd, lr, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return a
}

func TestNewAgentDimensionsAndFlags(t *testing.T) {
	a := newTestAgent(t, 3, 6, 11, 0.1, 0.1, 1)
	if a.NumInputs() != 3 || a.NumHidden() != 6 || a.NumOutputs() != 11 {
		t.Fatalf("unexpected dims: in=%d hidden=%d out=%d", a.NumInputs(), a.NumHidden(), a.NumOutputs())
	}
	if r, c := a.inputToHidden.Dims(); r != 4 || c != 6 {
		t.Fatalf("unexpected input-to-hidden shape: %dx%d", r, c)
	}
	if r, c := a.hiddenToOutput.Dims(); r != 7 || c != 11 {
		t.Fatalf("unexpected hidden-to-output shape: %dx%d", r, c)
	}
	if !a.FirstTimeLearner() || a.LearningEpisodes() != 0 {
		t.Fatalf("expected fresh learner, got first=%t episodes=%d", a.FirstTimeLearner(), a.LearningEpisodes())
	}
}

func TestNewAgentValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := New(0, 2, 2, 0.1, 0.1, rng); err == nil {
		t.Fatal("expected zero input error")
	}
	if _, err := New(2, 2, 2, -1, 0.1, rng); err == nil {
		t.Fatal("expected negative sd error")
	}
	if _, err := New(2, 2, 2, 0.1, 0.1, nil); err == nil {
		t.Fatal("expected nil rng error")
	}
}

func TestAgentsDoNotShareWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a, err := New(3, 4, 2, 0.5, 0.1, rng)
	if err != nil {
		t.Fatalf("new agent a: %v", err)
	}
	b, err := New(3, 4, 2, 0.5, 0.1, rng)
	if err != nil {
		t.Fatalf("new agent b: %v", err)
	}
	if a.inputToHidden.At(0, 0) == b.inputToHidden.At(0, 0) {
		t.Fatal("expected independent weight draws")
	}
}

func TestCalcNetOutputRange(t *testing.T) {
	a := newTestAgent(t, 3, 6, 11, 3.0, 0.1, 42)
	inputs := [][]float64{{0, 0, 0}, {1, 1, 1}, {1.0 / 3, 2.0 / 3, 0}, {-50, 50, 1e6}}
	for _, in := range inputs {
		out, hidden, err := a.CalcNetOutput(in, true)
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		if len(out) != 11 {
			t.Fatalf("unexpected output length: %d", len(out))
		}
		for k, y := range out {
			if y <= 0 || y >= 1 {
				t.Fatalf("output %d=%g outside (0,1) for input %v", k, y, in)
			}
		}
		if len(hidden) != 7 || hidden[6] != 1.0 {
			t.Fatalf("expected bias-appended hidden layer, got %v", hidden)
		}
	}
}

func TestCalcNetOutputDoesNotMutateInput(t *testing.T) {
	a := newTestAgent(t, 2, 2, 2, 0.3, 0.1, 3)
	in := []float64{0.25, 0.75}
	if _, _, err := a.CalcNetOutput(in, false); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(in) != 2 || in[0] != 0.25 || in[1] != 0.75 {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestCalcNetOutputWithoutHidden(t *testing.T) {
	a := newTestAgent(t, 2, 2, 2, 0.3, 0.1, 3)
	_, hidden, err := a.CalcNetOutput([]float64{0, 1}, false)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if hidden != nil {
		t.Fatalf("expected no hidden levels, got %v", hidden)
	}
}

func TestZeroWeightsGiveHalf(t *testing.T) {
	a := newTestAgent(t, 3, 2, 2, 0.0, 0.1, 1)
	for _, in := range [][]float64{{0, 0, 0}, {1, 0.5, 0.25}, {-3, 8, 2}} {
		out, _, err := a.CalcNetOutput(in, false)
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		if len(out) != 2 || out[0] != 0.5 || out[1] != 0.5 {
			t.Fatalf("expected [0.5 0.5], got %v", out)
		}
	}
}

func TestSingleTrainingEpisodeScenario(t *testing.T) {
	a := newTestAgent(t, 2, 2, 2, 0.0, 0.5, 1)
	input := []float64{0, 0}
	before, hidden, err := a.CalcNetOutput(input, true)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if before[0] != 0.5 || before[1] != 0.5 {
		t.Fatalf("unexpected baseline output: %v", before)
	}
	if hidden[0] != 0.5 || hidden[1] != 0.5 {
		t.Fatalf("unexpected baseline hidden: %v", hidden)
	}

	deltaK, err := a.TrainingEpisode([]float64{1, 1}, before, hidden[:2], input)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	// (1-0.5) * 0.5 * (1-0.5)
	for k, d := range deltaK {
		if d != 0.125 {
			t.Fatalf("deltaK[%d]=%g want 0.125", k, d)
		}
	}

	after, _, err := a.CalcNetOutput(input, false)
	if err != nil {
		t.Fatalf("forward after train: %v", err)
	}
	for k := range after {
		if math.Abs(1-after[k]) >= math.Abs(1-before[k]) {
			t.Fatalf("output %d did not move toward target: before=%g after=%g", k, before[k], after[k])
		}
	}
	if a.FirstTimeLearner() || a.LearningEpisodes() != 1 {
		t.Fatalf("expected learner bookkeeping, got first=%t episodes=%d", a.FirstTimeLearner(), a.LearningEpisodes())
	}
}

func TestTrainingUsesUpdatedOutputWeightsForHiddenError(t *testing.T) {
	// All weights start at zero, so classical backprop would leave the
	// input-to-hidden layer untouched on the first step. Reading the freshly
	// updated hidden-to-output weights must move it.
	a := newTestAgent(t, 1, 1, 1, 0.0, 1.0, 1)
	out, hidden, err := a.CalcNetOutput([]float64{1}, true)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if _, err := a.TrainingEpisode([]float64{1}, out, hidden, []float64{1}); err != nil {
		t.Fatalf("train: %v", err)
	}
	// deltaK = 0.125, w_ho = 0.125*0.5, deltaJ = 0.5*0.5*(w_ho*deltaK)
	wantDeltaJ := 0.25 * (0.0625 * 0.125)
	if got := a.inputToHidden.At(0, 0); math.Abs(got-wantDeltaJ) > 1e-15 {
		t.Fatalf("unexpected input weight: got=%g want=%g", got, wantDeltaJ)
	}
	if got := a.inputToHidden.At(1, 0); math.Abs(got-wantDeltaJ) > 1e-15 {
		t.Fatalf("unexpected input bias weight: got=%g want=%g", got, wantDeltaJ)
	}
	if got := a.hiddenToOutput.At(1, 0); math.Abs(got-0.125) > 1e-15 {
		t.Fatalf("expected hidden bias row to train, got=%g", got)
	}
}

func TestRepeatedTrainingDecreasesError(t *testing.T) {
	a := newTestAgent(t, 3, 6, 11, 0.1, 0.1, 1300)
	input := []float64{1.0 / 3, 1, 0}
	target := []float64{1, 0, 1, 1, 0, 0, 0, 0, 0, 1, 0}

	prev := math.Inf(1)
	for i := 0; i < 200; i++ {
		out, hidden, err := a.CalcNetOutput(input, true)
		if err != nil {
			t.Fatalf("forward %d: %v", i, err)
		}
		sse, err := nn.SquaredError(target, out)
		if err != nil {
			t.Fatalf("sse %d: %v", i, err)
		}
		if sse >= prev {
			t.Fatalf("error did not decrease at step %d: %g >= %g", i, sse, prev)
		}
		prev = sse
		if _, err := a.TrainingEpisode(target, out, hidden, input); err != nil {
			t.Fatalf("train %d: %v", i, err)
		}
	}
	if a.LearningEpisodes() != 200 {
		t.Fatalf("unexpected episode count: %d", a.LearningEpisodes())
	}
}

func TestTrainingEpisodeDimensionMismatch(t *testing.T) {
	a := newTestAgent(t, 2, 3, 2, 0.2, 0.1, 5)
	good := []float64{0.5, 0.5}
	hidden := []float64{0.5, 0.5, 0.5}
	cases := []struct {
		name                          string
		target, actual, hidden, input []float64
	}{
		{name: "target", target: []float64{1}, actual: good, hidden: hidden, input: good},
		{name: "actual", target: good, actual: []float64{1, 1, 1}, hidden: hidden, input: good},
		{name: "hidden", target: good, actual: good, hidden: []float64{0.5}, input: good},
		{name: "input", target: good, actual: good, hidden: hidden, input: []float64{1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := a.Snapshot(0)
			_, err := a.TrainingEpisode(tc.target, tc.actual, tc.hidden, tc.input)
			if !errors.Is(err, ErrDimensionMismatch) {
				t.Fatalf("expected ErrDimensionMismatch, got %v", err)
			}
			after := a.Snapshot(0)
			if after.InputToHidden[0][0] != before.InputToHidden[0][0] || after.LearningEpisodes != before.LearningEpisodes {
				t.Fatal("weights changed on rejected episode")
			}
		})
	}
	if _, _, err := a.CalcNetOutput([]float64{1, 2, 3}, false); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected forward mismatch error, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	a := newTestAgent(t, 3, 4, 5, 0.4, 0.2, 11)
	out, hidden, err := a.CalcNetOutput([]float64{0, 1, 0}, true)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if _, err := a.TrainingEpisode([]float64{1, 0, 1, 0, 1}, out, hidden, []float64{0, 1, 0}); err != nil {
		t.Fatalf("train: %v", err)
	}

	snap := a.Snapshot(3)
	if snap.Index != 3 || snap.FirstTimeLearner || snap.LearningEpisodes != 1 {
		t.Fatalf("unexpected snapshot header: %+v", snap)
	}
	restored, err := FromSnapshot(snap, a.LearningRate())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	in := []float64{1.0 / 3, 2.0 / 3, 1}
	want, _, _ := a.CalcNetOutput(in, false)
	got, _, err := restored.CalcNetOutput(in, false)
	if err != nil {
		t.Fatalf("restored forward: %v", err)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("restored output %d=%g want %g", k, got[k], want[k])
		}
	}

	snap.InputToHidden[1] = snap.InputToHidden[1][:1]
	if _, err := FromSnapshot(snap, 0.1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ragged snapshot error, got %v", err)
	}
}

func TestWriteNetwork(t *testing.T) {
	a := newTestAgent(t, 1, 1, 1, 0.0, 0.1, 1)
	var buf bytes.Buffer
	if err := a.WriteNetwork(&buf, "speaker"); err != nil {
		t.Fatalf("write network: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "speaker network weights") {
		t.Fatalf("unexpected dump: %q", buf.String())
	}
}

func TestNewWithActivation(t *testing.T) {
	a, err := NewWithActivation("tanh", 3, 4, 5, 0.5, 0.1, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("new tanh agent: %v", err)
	}
	if a.Activation() != "tanh" {
		t.Fatalf("unexpected activation %q", a.Activation())
	}
	in := []float64{0, 1.0 / 3, 1}
	target := []float64{0.5, -0.5, 0.25, -0.25, 0}
	first := math.Inf(1)
	last := 0.0
	for i := 0; i < 50; i++ {
		out, hidden, err := a.CalcNetOutput(in, true)
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		for k, v := range out {
			if v <= -1 || v >= 1 {
				t.Fatalf("tanh output %d out of range: %g", k, v)
			}
		}
		sse, err := nn.SquaredError(target, out)
		if err != nil {
			t.Fatalf("squared error: %v", err)
		}
		if i == 0 {
			first = sse
		}
		last = sse
		if _, err := a.TrainingEpisode(target, out, hidden, in); err != nil {
			t.Fatalf("train: %v", err)
		}
	}
	if !(last < first) {
		t.Fatalf("tanh training did not reduce error: first=%g last=%g", first, last)
	}

	snap := a.Snapshot(0)
	if snap.Activation != "tanh" {
		t.Fatalf("snapshot lost activation: %q", snap.Activation)
	}
	restored, err := FromSnapshot(snap, 0.1)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Activation() != "tanh" {
		t.Fatalf("restored activation %q", restored.Activation())
	}

	def, err := NewWithActivation("", 3, 4, 5, 0.1, 0.1, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("new default agent: %v", err)
	}
	if def.Activation() != DefaultActivation {
		t.Fatalf("expected %s, got %s", DefaultActivation, def.Activation())
	}
	if _, err := NewWithActivation("softsign", 3, 4, 5, 0.1, 0.1, rand.New(rand.NewSource(2))); !errors.Is(err, nn.ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got %v", err)
	}
}
