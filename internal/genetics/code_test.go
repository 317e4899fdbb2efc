package genetics

import (
	"testing"
)

func TestAminoAcidFeatureVectorsDistinct(t *testing.T) {
	seen := make(map[[NumFeatures]float64]byte)
	for _, a := range AminoAcids() {
		if prev, ok := seen[a.Features]; ok {
			t.Fatalf("amino acids %c and %c share a feature vector", prev, a.Letter)
		}
		seen[a.Features] = a.Letter
	}
	if len(seen) != NumAminoAcids {
		t.Fatalf("expected %d amino acids, got %d", NumAminoAcids, len(seen))
	}
}

func TestCodonEncoding(t *testing.T) {
	c, err := ParseCodon("AUG")
	if err != nil {
		t.Fatalf("parse codon: %v", err)
	}
	if int(c) != 2*16+0*4+3 {
		t.Fatalf("unexpected codon index: %d", c)
	}
	if c.String() != "AUG" {
		t.Fatalf("unexpected codon string: %s", c)
	}
	in := c.Input()
	want := []float64{2.0 / 3, 0, 1}
	for i := range want {
		if in[i] != want[i] {
			t.Fatalf("unexpected input encoding: got=%v want=%v", in, want)
		}
	}
	if _, err := ParseCodon("AXG"); err == nil {
		t.Fatal("expected unknown base error")
	}
	if _, err := ParseCodon("AU"); err == nil {
		t.Fatal("expected length error")
	}
	if dna, _ := ParseCodon("ATG"); dna != c {
		t.Fatalf("expected T to alias U, got %s", dna)
	}
}

func TestStandardCode(t *testing.T) {
	tests := []struct {
		codon  string
		letter byte
	}{
		{"AUG", 'M'},
		{"UUU", 'F'},
		{"UGG", 'W'},
		{"GGC", 'G'},
		{"CAU", 'H'},
		{"AAA", 'K'},
	}
	for _, tc := range tests {
		c, err := ParseCodon(tc.codon)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.codon, err)
		}
		idx := StandardAminoAcid(c)
		a, err := AminoAcidByIndex(idx)
		if err != nil {
			t.Fatalf("%s: %v", tc.codon, err)
		}
		if a.Letter != tc.letter {
			t.Fatalf("%s translated to %c want %c", tc.codon, a.Letter, tc.letter)
		}
	}
	stops := 0
	for c := Codon(0); c < NumCodons; c++ {
		if StandardAminoAcid(c) == NoAminoAcid {
			stops++
		}
	}
	if stops != 3 {
		t.Fatalf("expected 3 stop codons, got %d", stops)
	}
}

func TestCanonicalLexicon(t *testing.T) {
	full := CanonicalLexicon(NumCodons, NumAminoAcids)
	if len(full) != 61 {
		t.Fatalf("expected 61 sense codons, got %d", len(full))
	}
	limited := CanonicalLexicon(16, 5)
	for _, p := range limited {
		if int(p.Codon) >= 16 || p.AminoAcid >= 5 {
			t.Fatalf("pair outside limits: %+v", p)
		}
	}
}

func TestDecodeNearest(t *testing.T) {
	for _, a := range AminoAcids() {
		got, err := Decode(a.Features[:], NumAminoAcids)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != a.Index {
			t.Fatalf("decode of %c features gave %d want %d", a.Letter, got, a.Index)
		}
	}

	half := make([]float64, NumFeatures)
	for i := range half {
		half[i] = 0.5
	}
	got, err := Decode(half, 3)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got < 0 || got >= 3 {
		t.Fatalf("decode ignored limit: %d", got)
	}
	if _, err := Decode([]float64{1}, NumAminoAcids); err == nil {
		t.Fatal("expected length error")
	}
}

func TestCodonDistance(t *testing.T) {
	a, _ := ParseCodon("UUU")
	b, _ := ParseCodon("UCA")
	if d := CodonDistance(a, b); d != 2 {
		t.Fatalf("unexpected codon distance: %d", d)
	}
	if d := CodonDistance(a, a); d != 0 {
		t.Fatalf("expected zero self distance, got %d", d)
	}
}

func TestTarget(t *testing.T) {
	v, err := Target(0)
	if err != nil {
		t.Fatalf("target: %v", err)
	}
	if len(v) != NumFeatures || v[Hydrophobic] != 1 || v[Polar] != 0 {
		t.Fatalf("unexpected alanine target: %v", v)
	}
	v[0] = 5
	again, _ := Target(0)
	if again[0] != 1 {
		t.Fatal("target must return a copy")
	}
	if _, err := Target(NumAminoAcids); err == nil {
		t.Fatal("expected range error")
	}
}
