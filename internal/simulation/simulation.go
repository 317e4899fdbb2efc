// Package simulation runs iterated learning of the codon code over a fixed
// population of agents.
package simulation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"codevo/internal/agent"
	"codevo/internal/genetics"
	"codevo/internal/model"
	"codevo/internal/nn"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhasePairSelected
	PhaseBottleneckSampled
	PhaseTraining
	PhaseRoundComplete
	PhaseAllTransmissionsDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePairSelected:
		return "pair_selected"
	case PhaseBottleneckSampled:
		return "bottleneck_sampled"
	case PhaseTraining:
		return "training"
	case PhaseRoundComplete:
		return "round_complete"
	case PhaseAllTransmissionsDone:
		return "all_transmissions_done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:              {PhasePairSelected, PhaseAllTransmissionsDone},
	PhasePairSelected:      {PhaseBottleneckSampled},
	PhaseBottleneckSampled: {PhaseTraining},
	PhaseTraining:          {PhaseRoundComplete},
	PhaseRoundComplete:     {PhasePairSelected, PhaseAllTransmissionsDone},
}

// Round describes one completed transmission.
type Round struct {
	Transmission int
	Speaker      int
	Learner      int
	Sample       []genetics.Pair
	Episodes     int
	// FinalError is the mean squared error over the sample in the last epoch,
	// measured before each update.
	FinalError float64
	Phase      Phase
}

type Result struct {
	model.Scores
	Trace    []model.Measurement
	Learners int
}

type Simulation struct {
	params   model.Params
	corpus   Corpus
	rng      *rand.Rand
	pairing  PairingPolicy
	sampler  BottleneckSampler
	source   CodeSource
	metrics  Metrics
	logger   *slog.Logger
	observer func(Round)

	population []*agent.Agent
	phase      Phase
	ran        bool
}

func New(cfg Config) (*Simulation, error) {
	if err := ValidateParams(cfg.Params); err != nil {
		return nil, err
	}
	p := cfg.Params

	s := &Simulation{
		params:   p,
		corpus:   Corpus{Codons: p.MaxInputStringIndex, AminoAcids: p.MaxOutputStringIndex},
		rng:      rand.New(rand.NewSource(p.RandomSeed)),
		pairing:  cfg.Pairing,
		sampler:  cfg.Sampler,
		source:   cfg.Source,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		phase:    PhaseIdle,
	}
	var err error
	if s.pairing == nil {
		if s.pairing, err = pairingFromName(p.Pairing); err != nil {
			return nil, err
		}
	}
	if s.sampler == nil {
		if s.sampler, err = samplerFromName(p.Sampler); err != nil {
			return nil, err
		}
	}
	if s.source == nil {
		if s.source, err = sourceFromName(p.Source); err != nil {
			return nil, err
		}
	}
	if s.metrics == nil {
		s.metrics = ConvergenceMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s.population = make([]*agent.Agent, p.PopSize)
	for i := range s.population {
		a, err := agent.NewWithActivation(p.Activation, p.NumInputNeurons, p.NumHiddenNeurons, p.NumOutputNeurons, p.InitWeightSD, p.LearningRate, s.rng)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
		s.population[i] = a
	}
	return s, nil
}

func (s *Simulation) Params() model.Params { return s.params }

func (s *Simulation) Phase() Phase { return s.phase }

// Population exposes the agents for inspection; callers must not train them.
func (s *Simulation) Population() []*agent.Agent {
	return append([]*agent.Agent(nil), s.population...)
}

// Run performs every transmission and returns the final scores. A Simulation
// runs once.
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	if s.ran {
		return Result{}, ErrAlreadyRun
	}
	s.ran = true

	s.logger.Info("simulation start",
		"seed", s.params.RandomSeed,
		"pop", s.params.PopSize,
		"transmissions", s.params.MaxTransmissions,
		"bottleneck", s.params.BottleNeck,
		"epochs", s.params.NumberOfEpochs,
		"pairing", s.pairing.Name(),
		"sampler", s.sampler.Name(),
		"source", s.source.Name(),
	)

	var trace []model.Measurement
	for t := 0; t < s.params.MaxTransmissions; t++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		round, err := s.transmit(t)
		if err != nil {
			return Result{}, fmt.Errorf("transmission %d: %w", t, err)
		}
		if s.observer != nil {
			s.observer(round)
		}
		if every := s.params.MeasureEvery; every > 0 && (t+1)%every == 0 {
			m, err := s.measure(t + 1)
			if err != nil {
				return Result{}, err
			}
			trace = append(trace, m)
		}
	}
	if err := s.enter(PhaseAllTransmissionsDone); err != nil {
		return Result{}, err
	}

	final, err := s.measure(s.params.MaxTransmissions)
	if err != nil {
		return Result{}, err
	}
	if n := len(trace); n == 0 || trace[n-1].Transmission != final.Transmission {
		trace = append(trace, final)
	}

	s.logger.Info("simulation done",
		"expressivity", final.Expressivity,
		"compositionality", final.Compositionality,
		"stability", final.Stability,
		"learners", final.Learners,
	)
	return Result{Scores: final.Scores, Trace: trace, Learners: final.Learners}, nil
}

func (s *Simulation) transmit(t int) (Round, error) {
	speakerIdx, learnerIdx := s.pairing.Pair(s.rng, t, len(s.population))
	if speakerIdx < 0 || speakerIdx >= len(s.population) || learnerIdx < 0 || learnerIdx >= len(s.population) {
		return Round{}, fmt.Errorf("pairing %s chose out-of-range agents %d,%d", s.pairing.Name(), speakerIdx, learnerIdx)
	}
	if err := s.enter(PhasePairSelected); err != nil {
		return Round{}, err
	}

	lexicon, err := s.source.Lexicon(s.population[speakerIdx], s.corpus)
	if err != nil {
		return Round{}, err
	}
	sample := s.sampler.Sample(s.rng, lexicon, s.params.BottleNeck)
	if err := s.enter(PhaseBottleneckSampled); err != nil {
		return Round{}, err
	}

	inputs := make([][]float64, len(sample))
	targets := make([][]float64, len(sample))
	for i, pair := range sample {
		inputs[i] = pair.Codon.Input()
		if targets[i], err = genetics.Target(pair.AminoAcid); err != nil {
			return Round{}, err
		}
	}

	if err := s.enter(PhaseTraining); err != nil {
		return Round{}, err
	}
	learner := s.population[learnerIdx]
	episodes := 0
	lastError := 0.0
	for epoch := 0; epoch < s.params.NumberOfEpochs; epoch++ {
		sum := 0.0
		for i := range sample {
			out, hidden, err := learner.CalcNetOutput(inputs[i], true)
			if err != nil {
				return Round{}, err
			}
			sse, err := nn.SquaredError(targets[i], out)
			if err != nil {
				return Round{}, err
			}
			sum += sse
			if _, err := learner.TrainingEpisode(targets[i], out, hidden, inputs[i]); err != nil {
				return Round{}, err
			}
			episodes++
		}
		if len(sample) > 0 {
			lastError = sum / float64(len(sample))
		}
	}
	if err := s.enter(PhaseRoundComplete); err != nil {
		return Round{}, err
	}

	return Round{
		Transmission: t,
		Speaker:      speakerIdx,
		Learner:      learnerIdx,
		Sample:       sample,
		Episodes:     episodes,
		FinalError:   lastError,
		Phase:        s.phase,
	}, nil
}

func (s *Simulation) enter(next Phase) error {
	for _, allowed := range phaseTransitions[s.phase] {
		if allowed == next {
			s.phase = next
			return nil
		}
	}
	return fmt.Errorf("illegal phase transition %s -> %s", s.phase, next)
}

func (s *Simulation) measure(transmission int) (model.Measurement, error) {
	codes := make([][]int, len(s.population))
	learners := 0
	for i, a := range s.population {
		code, err := s.corpus.Induce(a)
		if err != nil {
			return model.Measurement{}, fmt.Errorf("induce agent %d: %w", i, err)
		}
		codes[i] = code
		if !a.FirstTimeLearner() {
			learners++
		}
	}
	scores, err := s.metrics.Score(codes, s.corpus)
	if err != nil {
		return model.Measurement{}, err
	}
	m := model.Measurement{Transmission: transmission, Scores: scores, Learners: learners}
	s.logger.Debug("measurement",
		"transmission", transmission,
		"expressivity", scores.Expressivity,
		"compositionality", scores.Compositionality,
		"stability", scores.Stability,
		"learners", learners,
	)
	return m, nil
}
