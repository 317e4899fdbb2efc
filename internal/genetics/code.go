// Package genetics holds the corpus the agents learn: the 64 codons, the 20
// amino acids with their physico-chemical feature vectors, and the standard
// genetic code.
package genetics

import (
	"fmt"
	"math"

	"codevo/internal/nn"
)

const (
	NumBases       = 4
	CodonLength    = 3
	NumCodons      = NumBases * NumBases * NumBases
	NumAminoAcids  = 20
	NumFeatures    = 11
	NoAminoAcid    = -1
	basesAlphabet  = "UCAG"
	standardByUCAG = "FFLLSSSSYY**CC*WLLLLPPPPHHQQRRRRIIIMTTTTNNKKSSRRVVVVAAAADDEEGGGG"
)

// Feature columns of an amino-acid vector.
const (
	Hydrophobic = iota
	Polar
	Small
	Tiny
	Aliphatic
	Aromatic
	Positive
	Negative
	Charged
	Sulfur
	BetaBranched
)

type AminoAcid struct {
	Index    int
	Letter   byte
	Name     string
	Features [NumFeatures]float64
}

func aa(letter byte, name string, features ...int) AminoAcid {
	out := AminoAcid{Letter: letter, Name: name}
	for _, f := range features {
		out.Features[f] = 1
	}
	return out
}

var aminoAcids = func() []AminoAcid {
	table := []AminoAcid{
		aa('A', "Ala", Hydrophobic, Small, Tiny, Aliphatic),
		aa('R', "Arg", Polar, Positive, Charged),
		aa('N', "Asn", Polar, Small),
		aa('D', "Asp", Polar, Small, Negative, Charged),
		aa('C', "Cys", Hydrophobic, Small, Sulfur),
		aa('Q', "Gln", Polar),
		aa('E', "Glu", Polar, Negative, Charged),
		aa('G', "Gly", Hydrophobic, Small, Tiny),
		aa('H', "His", Polar, Aromatic, Positive, Charged),
		aa('I', "Ile", Hydrophobic, Aliphatic, BetaBranched),
		aa('L', "Leu", Hydrophobic, Aliphatic),
		aa('K', "Lys", Hydrophobic, Polar, Positive, Charged),
		aa('M', "Met", Hydrophobic, Sulfur),
		aa('F', "Phe", Hydrophobic, Aromatic),
		aa('P', "Pro", Small),
		aa('S', "Ser", Polar, Small, Tiny),
		aa('T', "Thr", Hydrophobic, Polar, Small, BetaBranched),
		aa('W', "Trp", Hydrophobic, Polar, Aromatic),
		aa('Y', "Tyr", Polar, Aromatic),
		aa('V', "Val", Hydrophobic, Small, Aliphatic, BetaBranched),
	}
	for i := range table {
		table[i].Index = i
	}
	return table
}()

var letterToAmino = func() map[byte]int {
	out := make(map[byte]int, len(aminoAcids))
	for _, a := range aminoAcids {
		out[a.Letter] = a.Index
	}
	return out
}()

// AminoAcids returns the amino-acid table in index order.
func AminoAcids() []AminoAcid {
	return append([]AminoAcid(nil), aminoAcids...)
}

func AminoAcidByIndex(i int) (AminoAcid, error) {
	if i < 0 || i >= NumAminoAcids {
		return AminoAcid{}, fmt.Errorf("amino acid index out of range: %d", i)
	}
	return aminoAcids[i], nil
}

// Target returns the feature vector the learner is trained toward.
func Target(aminoIndex int) ([]float64, error) {
	a, err := AminoAcidByIndex(aminoIndex)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), a.Features[:]...), nil
}

// Codon is the index 16*b1 + 4*b2 + b3 over the base order U, C, A, G.
type Codon int

func (c Codon) Valid() bool { return c >= 0 && c < NumCodons }

func (c Codon) Bases() [CodonLength]int {
	return [CodonLength]int{int(c) / 16, (int(c) / 4) % 4, int(c) % 4}
}

func (c Codon) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Codon(%d)", int(c))
	}
	b := c.Bases()
	return string([]byte{basesAlphabet[b[0]], basesAlphabet[b[1]], basesAlphabet[b[2]]})
}

// Input encodes each base as index/3, giving one network input per base.
func (c Codon) Input() []float64 {
	b := c.Bases()
	out := make([]float64, CodonLength)
	for i, base := range b {
		out[i] = float64(base) / float64(NumBases-1)
	}
	return out
}

func ParseCodon(s string) (Codon, error) {
	if len(s) != CodonLength {
		return 0, fmt.Errorf("codon must have %d bases: %q", CodonLength, s)
	}
	idx := 0
	for i := 0; i < CodonLength; i++ {
		b := s[i]
		if b == 'T' {
			b = 'U'
		}
		pos := -1
		for j := 0; j < NumBases; j++ {
			if basesAlphabet[j] == b {
				pos = j
				break
			}
		}
		if pos < 0 {
			return 0, fmt.Errorf("unknown base %q in codon %q", s[i], s)
		}
		idx = idx*NumBases + pos
	}
	return Codon(idx), nil
}

// CodonDistance is the number of differing bases.
func CodonDistance(a, b Codon) int {
	ab, bb := a.Bases(), b.Bases()
	d, _ := nn.Hamming(ab[:], bb[:])
	return d
}

// StandardAminoAcid translates a codon with the standard genetic code.
// Stop codons yield NoAminoAcid.
func StandardAminoAcid(c Codon) int {
	if !c.Valid() {
		return NoAminoAcid
	}
	idx, ok := letterToAmino[standardByUCAG[c]]
	if !ok {
		return NoAminoAcid
	}
	return idx
}

// Decode maps a network output to the nearest amino acid among the first
// limit entries of the table. Ties resolve to the lowest index.
func Decode(output []float64, limit int) (int, error) {
	if len(output) != NumFeatures {
		return NoAminoAcid, fmt.Errorf("output length %d, want %d", len(output), NumFeatures)
	}
	if limit <= 0 || limit > NumAminoAcids {
		limit = NumAminoAcids
	}
	best, bestDist := NoAminoAcid, math.Inf(1)
	for i := 0; i < limit; i++ {
		d, err := nn.Distance(output, aminoAcids[i].Features[:])
		if err != nil {
			return NoAminoAcid, err
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// Pair is one codon→amino-acid association.
type Pair struct {
	Codon     Codon
	AminoAcid int
}

// CanonicalLexicon lists the standard-code pairs among the first maxCodons
// codons whose amino acid lies within the first maxAminoAcids.
func CanonicalLexicon(maxCodons, maxAminoAcids int) []Pair {
	out := make([]Pair, 0, maxCodons)
	for c := Codon(0); int(c) < maxCodons && c.Valid(); c++ {
		a := StandardAminoAcid(c)
		if a == NoAminoAcid || a >= maxAminoAcids {
			continue
		}
		out = append(out, Pair{Codon: c, AminoAcid: a})
	}
	return out
}
