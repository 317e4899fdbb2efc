package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"codevo/internal/map2rec"
	"codevo/internal/model"
	"codevo/internal/nn"
)

// singleRunParams are the defaults of the single-run entry point.
func singleRunParams() model.Params {
	p := map2rec.DefaultParams()
	p.NumHiddenNeurons = 6
	p.LearningRate = 0.1
	p.BottleNeck = 20
	p.NumberOfEpochs = 300
	p.MaxTransmissions = 2000
	p.RandomSeed = 1300
	p.PopSize = 16
	return p
}

func loadParams(path string) (model.Params, error) {
	doc, err := map2rec.LoadDocument(path)
	if err != nil {
		return model.Params{}, err
	}
	p, err := map2rec.ConvertParams(doc)
	if err != nil {
		return model.Params{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// paramFlags are the population and policy flags shared by run and sweep.
type paramFlags struct {
	pop          *int
	measureEvery *int
	pairing      *string
	sampler      *string
	source       *string
	activation   *string
}

func registerParamFlags(fs *flag.FlagSet, defaults model.Params) *paramFlags {
	return &paramFlags{
		pop:          fs.Int("pop", defaults.PopSize, "population size"),
		measureEvery: fs.Int("measure-every", defaults.MeasureEvery, "record a measurement every N transmissions (0 disables)"),
		pairing:      fs.String("pairing", defaults.Pairing, "pairing policy: random|round_robin"),
		sampler:      fs.String("sampler", defaults.Sampler, "bottleneck sampler: without_replacement|with_replacement"),
		source:       fs.String("source", defaults.Source, "code source: speaker|canonical"),
		activation:   fs.String("activation", defaults.Activation, "unit activation: "+strings.Join(nn.ListActivations(), "|")),
	}
}

// apply copies flag values into p. Without all, only flags present in set
// are copied so that config file values survive.
func (f *paramFlags) apply(p *model.Params, set map[string]bool, all bool) {
	if all || set["pop"] {
		p.PopSize = *f.pop
	}
	if all || set["measure-every"] {
		p.MeasureEvery = *f.measureEvery
	}
	if all || set["pairing"] {
		p.Pairing = *f.pairing
	}
	if all || set["sampler"] {
		p.Sampler = *f.sampler
	}
	if all || set["source"] {
		p.Source = *f.source
	}
	if all || set["activation"] {
		p.Activation = *f.activation
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIntList(raw string) ([]int, error) {
	parts := splitList(raw)
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInt64List(raw string) ([]int64, error) {
	parts := splitList(raw)
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloatList(raw string) ([]float64, error) {
	parts := splitList(raw)
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func joinInt64s(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
