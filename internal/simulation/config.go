package simulation

import (
	"errors"
	"fmt"
	"log/slog"

	"codevo/internal/genetics"
	"codevo/internal/model"
	"codevo/internal/nn"
)

var (
	ErrInvalidParams = errors.New("invalid simulation params")
	ErrUnknownPolicy = errors.New("unknown policy")
	ErrAlreadyRun    = errors.New("simulation already run")
)

// Config wires a run. Nil policies are resolved from the names carried by
// Params; nil Metrics falls back to ConvergenceMetrics.
type Config struct {
	Params   model.Params
	Pairing  PairingPolicy
	Sampler  BottleneckSampler
	Source   CodeSource
	Metrics  Metrics
	Logger   *slog.Logger
	Observer func(Round)
}

func ValidateParams(p model.Params) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(p.LengthOfInputStrings == genetics.CodonLength, "lengthOfInputStrings must be %d, got %d", genetics.CodonLength, p.LengthOfInputStrings)
	check(p.LengthOfOutputStrings == genetics.NumFeatures, "lengthOfOutputStrings must be %d, got %d", genetics.NumFeatures, p.LengthOfOutputStrings)
	check(p.NumInputNeurons == p.LengthOfInputStrings, "numInputNeurons must equal lengthOfInputStrings, got %d", p.NumInputNeurons)
	check(p.NumOutputNeurons == p.LengthOfOutputStrings, "numOutputNeurons must equal lengthOfOutputStrings, got %d", p.NumOutputNeurons)
	check(p.NumHiddenNeurons > 0, "numHiddenNeurons must be > 0, got %d", p.NumHiddenNeurons)
	check(p.MaxInputStringIndex >= 1 && p.MaxInputStringIndex <= genetics.NumCodons, "maxInputStringIndex must be in [1,%d], got %d", genetics.NumCodons, p.MaxInputStringIndex)
	check(p.MaxOutputStringIndex >= 1 && p.MaxOutputStringIndex <= genetics.NumAminoAcids, "maxOutputStringIndex must be in [1,%d], got %d", genetics.NumAminoAcids, p.MaxOutputStringIndex)
	check(p.PopSize >= 1, "popSize must be >= 1, got %d", p.PopSize)
	check(p.MaxTransmissions >= 0, "maxTransmissions must be >= 0, got %d", p.MaxTransmissions)
	check(p.BottleNeck >= 0, "bottleNeck must be >= 0, got %d", p.BottleNeck)
	check(p.NumberOfEpochs >= 0, "numberOfEpochs must be >= 0, got %d", p.NumberOfEpochs)
	check(p.InitWeightSD >= 0, "initWeightSD must be >= 0, got %f", p.InitWeightSD)
	check(p.LearningRate > 0, "learningRate must be > 0, got %f", p.LearningRate)
	check(p.MeasureEvery >= 0, "measureEvery must be >= 0, got %d", p.MeasureEvery)
	if p.Activation != "" {
		if _, err := nn.GetActivation(p.Activation); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidParams, errors.Join(errs...))
}
