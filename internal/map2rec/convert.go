package map2rec

import (
	"fmt"
	"sort"

	"codevo/internal/model"
)

// DefaultParams is a small standard-code setup: 64 codons, 20 amino acids,
// 30 transmissions over a population of 10.
func DefaultParams() model.Params {
	return model.Params{
		LengthOfInputStrings:  3,
		LengthOfOutputStrings: 11,
		NumInputNeurons:       3,
		NumOutputNeurons:      11,
		NumHiddenNeurons:      6,
		MaxInputStringIndex:   64,
		MaxOutputStringIndex:  20,
		RandomSeed:            500,
		MaxTransmissions:      30,
		PopSize:               10,
		BottleNeck:            10,
		NumberOfEpochs:        100,
		InitWeightSD:          0.1,
		LearningRate:          0.1,
	}
}

// ConvertParams overlays a flat parameter mapping on DefaultParams. When the
// neuron counts are absent they follow the string lengths. Unknown keys and
// values of the wrong type are reported together.
func ConvertParams(in map[string]any) (model.Params, error) {
	out := DefaultParams()
	_, hasInputNeurons := in["numInputNeurons"]
	_, hasOutputNeurons := in["numOutputNeurons"]

	var unknown, invalid []string
	for key, val := range in {
		ok := true
		switch key {
		case "lengthOfInputStrings":
			out.LengthOfInputStrings, ok = asInt(val)
		case "lengthOfOutputStrings":
			out.LengthOfOutputStrings, ok = asInt(val)
		case "numInputNeurons":
			out.NumInputNeurons, ok = asInt(val)
		case "numOutputNeurons":
			out.NumOutputNeurons, ok = asInt(val)
		case "numHiddenNeurons":
			out.NumHiddenNeurons, ok = asInt(val)
		case "maxInputStringIndex":
			out.MaxInputStringIndex, ok = asInt(val)
		case "maxOutputStringIndex":
			out.MaxOutputStringIndex, ok = asInt(val)
		case "randomSeed":
			out.RandomSeed, ok = asInt64(val)
		case "maxTransmissions":
			out.MaxTransmissions, ok = asInt(val)
		case "popSize":
			out.PopSize, ok = asInt(val)
		case "bottleNeck":
			out.BottleNeck, ok = asInt(val)
		case "numberOfEpochs":
			out.NumberOfEpochs, ok = asInt(val)
		case "initWeightSD":
			out.InitWeightSD, ok = asFloat64(val)
		case "learningRate":
			out.LearningRate, ok = asFloat64(val)
		case "pairing":
			out.Pairing, ok = asString(val)
		case "sampler":
			out.Sampler, ok = asString(val)
		case "source":
			out.Source, ok = asString(val)
		case "measureEvery":
			out.MeasureEvery, ok = asInt(val)
		case "activation":
			out.Activation, ok = asString(val)
		default:
			unknown = append(unknown, key)
			continue
		}
		if !ok {
			invalid = append(invalid, fmt.Sprintf("%s=%v", key, val))
		}
	}
	if !hasInputNeurons {
		out.NumInputNeurons = out.LengthOfInputStrings
	}
	if !hasOutputNeurons {
		out.NumOutputNeurons = out.LengthOfOutputStrings
	}

	if len(unknown) > 0 || len(invalid) > 0 {
		sort.Strings(unknown)
		sort.Strings(invalid)
		return model.Params{}, fmt.Errorf("params: unknown keys %v, invalid values %v", unknown, invalid)
	}
	return out, nil
}
