package simulation

import (
	"fmt"
	"math/rand"

	"codevo/internal/agent"
	"codevo/internal/genetics"
)

const (
	PairingRandom     = "random"
	PairingRoundRobin = "round_robin"

	SamplerWithoutReplacement = "without_replacement"
	SamplerWithReplacement    = "with_replacement"

	SourceSpeaker   = "speaker"
	SourceCanonical = "canonical"
)

// PairingPolicy picks the speaker and learner of a transmission.
type PairingPolicy interface {
	Name() string
	Pair(rng *rand.Rand, transmission, popSize int) (speaker, learner int)
}

// BottleneckSampler reduces a lexicon to the pairs actually transmitted.
type BottleneckSampler interface {
	Name() string
	Sample(rng *rand.Rand, lexicon []genetics.Pair, size int) []genetics.Pair
}

// CodeSource yields the lexicon a speaker transmits.
type CodeSource interface {
	Name() string
	Lexicon(speaker *agent.Agent, corpus Corpus) ([]genetics.Pair, error)
}

// RandomPairing draws the speaker uniformly and the learner uniformly from
// the remaining agents. A single-agent population teaches itself.
type RandomPairing struct{}

func (RandomPairing) Name() string { return PairingRandom }

func (RandomPairing) Pair(rng *rand.Rand, _ int, popSize int) (int, int) {
	if popSize <= 1 {
		return 0, 0
	}
	speaker := rng.Intn(popSize)
	learner := rng.Intn(popSize - 1)
	if learner >= speaker {
		learner++
	}
	return speaker, learner
}

// RoundRobinPairing cycles learners in index order, each taught by its
// predecessor, so learner counts differ by at most one.
type RoundRobinPairing struct{}

func (RoundRobinPairing) Name() string { return PairingRoundRobin }

func (RoundRobinPairing) Pair(_ *rand.Rand, transmission, popSize int) (int, int) {
	if popSize <= 1 {
		return 0, 0
	}
	learner := transmission % popSize
	speaker := (learner + popSize - 1) % popSize
	return speaker, learner
}

type WithoutReplacementSampler struct{}

func (WithoutReplacementSampler) Name() string { return SamplerWithoutReplacement }

func (WithoutReplacementSampler) Sample(rng *rand.Rand, lexicon []genetics.Pair, size int) []genetics.Pair {
	if size <= 0 || len(lexicon) == 0 {
		return nil
	}
	if size >= len(lexicon) {
		return append([]genetics.Pair(nil), lexicon...)
	}
	perm := rng.Perm(len(lexicon))
	out := make([]genetics.Pair, size)
	for i := range out {
		out[i] = lexicon[perm[i]]
	}
	return out
}

type WithReplacementSampler struct{}

func (WithReplacementSampler) Name() string { return SamplerWithReplacement }

func (WithReplacementSampler) Sample(rng *rand.Rand, lexicon []genetics.Pair, size int) []genetics.Pair {
	if size <= 0 || len(lexicon) == 0 {
		return nil
	}
	out := make([]genetics.Pair, size)
	for i := range out {
		out[i] = lexicon[rng.Intn(len(lexicon))]
	}
	return out
}

// SpeakerSource transmits the speaker's current induced code. A speaker that
// has never been taught has no code of its own yet and passes on the
// standard code instead, so the chain starts from a full set of meanings.
type SpeakerSource struct{}

func (SpeakerSource) Name() string { return SourceSpeaker }

func (SpeakerSource) Lexicon(speaker *agent.Agent, corpus Corpus) ([]genetics.Pair, error) {
	if speaker.FirstTimeLearner() {
		return genetics.CanonicalLexicon(corpus.Codons, corpus.AminoAcids), nil
	}
	code, err := corpus.Induce(speaker)
	if err != nil {
		return nil, err
	}
	out := make([]genetics.Pair, len(code))
	for i, a := range code {
		out[i] = genetics.Pair{Codon: genetics.Codon(i), AminoAcid: a}
	}
	return out, nil
}

// CanonicalSource transmits the standard genetic code regardless of speaker.
type CanonicalSource struct{}

func (CanonicalSource) Name() string { return SourceCanonical }

func (CanonicalSource) Lexicon(_ *agent.Agent, corpus Corpus) ([]genetics.Pair, error) {
	return genetics.CanonicalLexicon(corpus.Codons, corpus.AminoAcids), nil
}

func pairingFromName(name string) (PairingPolicy, error) {
	switch name {
	case "", PairingRandom:
		return RandomPairing{}, nil
	case PairingRoundRobin:
		return RoundRobinPairing{}, nil
	default:
		return nil, fmt.Errorf("%w: pairing %q", ErrUnknownPolicy, name)
	}
}

func samplerFromName(name string) (BottleneckSampler, error) {
	switch name {
	case "", SamplerWithoutReplacement:
		return WithoutReplacementSampler{}, nil
	case SamplerWithReplacement:
		return WithReplacementSampler{}, nil
	default:
		return nil, fmt.Errorf("%w: sampler %q", ErrUnknownPolicy, name)
	}
}

func sourceFromName(name string) (CodeSource, error) {
	switch name {
	case "", SourceSpeaker:
		return SpeakerSource{}, nil
	case SourceCanonical:
		return CanonicalSource{}, nil
	default:
		return nil, fmt.Errorf("%w: source %q", ErrUnknownPolicy, name)
	}
}
