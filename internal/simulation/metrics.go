package simulation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"codevo/internal/agent"
	"codevo/internal/genetics"
	"codevo/internal/model"
	"codevo/internal/nn"
)

// Corpus bounds the codons and amino acids a run works with.
type Corpus struct {
	Codons     int
	AminoAcids int
}

// Induce reads an agent's code: the decoded amino acid for every codon.
func (c Corpus) Induce(a *agent.Agent) ([]int, error) {
	code := make([]int, c.Codons)
	for i := range code {
		out, _, err := a.CalcNetOutput(genetics.Codon(i).Input(), false)
		if err != nil {
			return nil, err
		}
		code[i], err = genetics.Decode(out, c.AminoAcids)
		if err != nil {
			return nil, err
		}
	}
	return code, nil
}

// Metrics scores the population's induced codes, one row per agent.
type Metrics interface {
	Score(codes [][]int, corpus Corpus) (model.Scores, error)
}

// ConvergenceMetrics is the default scoring.
//
//   - expressivity: distinct amino acids produced / amino acids available,
//     averaged over agents.
//   - compositionality: Pearson correlation between codon Hamming distance
//     and produced feature-vector distance over all codon pairs, averaged
//     over agents; an undefined correlation counts as 0.
//   - stability: per codon, the share of agents agreeing with the modal amino
//     acid, averaged over codons.
type ConvergenceMetrics struct{}

func (ConvergenceMetrics) Score(codes [][]int, corpus Corpus) (model.Scores, error) {
	if len(codes) == 0 {
		return model.Scores{}, fmt.Errorf("no codes to score")
	}
	for i, code := range codes {
		if len(code) != corpus.Codons {
			return model.Scores{}, fmt.Errorf("code %d covers %d codons, want %d", i, len(code), corpus.Codons)
		}
	}
	comp, err := Compositionality(codes)
	if err != nil {
		return model.Scores{}, err
	}
	return model.Scores{
		Expressivity:     Expressivity(codes, corpus.AminoAcids),
		Compositionality: comp,
		Stability:        Stability(codes, corpus.AminoAcids),
	}, nil
}

func Expressivity(codes [][]int, aminoAcids int) float64 {
	if len(codes) == 0 || aminoAcids <= 0 {
		return 0
	}
	perAgent := make([]float64, len(codes))
	for i, code := range codes {
		seen := make([]bool, aminoAcids)
		distinct := 0
		for _, a := range code {
			if a >= 0 && a < aminoAcids && !seen[a] {
				seen[a] = true
				distinct++
			}
		}
		perAgent[i] = float64(distinct) / float64(aminoAcids)
	}
	mean, _ := nn.Avg(perAgent)
	return mean
}

func Compositionality(codes [][]int) (float64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	perAgent := make([]float64, len(codes))
	for i, code := range codes {
		r, err := codeCorrelation(code)
		if err != nil {
			return 0, fmt.Errorf("agent %d: %w", i, err)
		}
		perAgent[i] = r
	}
	mean, _ := nn.Avg(perAgent)
	return mean, nil
}

func codeCorrelation(code []int) (float64, error) {
	n := len(code)
	if n < 2 {
		return 0, nil
	}
	signal := make([]float64, 0, n*(n-1)/2)
	meaning := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		ai, err := genetics.AminoAcidByIndex(code[i])
		if err != nil {
			return 0, err
		}
		for j := i + 1; j < n; j++ {
			aj, err := genetics.AminoAcidByIndex(code[j])
			if err != nil {
				return 0, err
			}
			d, err := nn.Distance(ai.Features[:], aj.Features[:])
			if err != nil {
				return 0, err
			}
			signal = append(signal, float64(genetics.CodonDistance(genetics.Codon(i), genetics.Codon(j))))
			meaning = append(meaning, d)
		}
	}
	r := stat.Correlation(signal, meaning, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, nil
	}
	return r, nil
}

func Stability(codes [][]int, aminoAcids int) float64 {
	if len(codes) == 0 || len(codes[0]) == 0 || aminoAcids <= 0 {
		return 0
	}
	codons := len(codes[0])
	perCodon := make([]float64, codons)
	counts := make([]int, aminoAcids)
	for c := 0; c < codons; c++ {
		clear(counts)
		for _, code := range codes {
			if a := code[c]; a >= 0 && a < aminoAcids {
				counts[a]++
			}
		}
		modal := 0
		for _, n := range counts {
			if n > modal {
				modal = n
			}
		}
		perCodon[c] = float64(modal) / float64(len(codes))
	}
	mean, _ := nn.Avg(perCodon)
	return mean
}
