package genetic

import (
	"math"
	"testing"
)

// sumFitness scores a genome by the sum of its genes. Deterministic and
// cheap, so tests can predict rankings from gene values alone.
func sumFitness(g *Genome) error {
	total := 0.0
	for _, v := range g.Genes {
		total += v
	}
	g.Fitness = total
	return nil
}

// testConfig returns a valid baseline configuration with a fixed seed.
func testConfig() Config {
	return Config{
		PopulationSize: 15,
		GenomeSize:     3,
		MutationRate:   0.1,
		CrossoverRate:  0.7,
		Fitness:        sumFitness,
		RandomSeed:     42,
	}
}

// snapshotGenes deep-copies every individual's gene vector.
func snapshotGenes(p *Population) [][]float64 {
	individuals := p.Individuals()
	genes := make([][]float64, len(individuals))
	for i, g := range individuals {
		genes[i] = append([]float64(nil), g.Genes...)
	}
	return genes
}

// containsGenes reports whether the population holds an individual whose
// gene vector exactly equals want.
func containsGenes(p *Population, want []float64) bool {
	for _, g := range p.Individuals() {
		if equalGenes(g.Genes, want) {
			return true
		}
	}
	return false
}

func equalGenes(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// assertFloat64SlicesEqual checks that two float64 slices are approximately equal.
func assertFloat64SlicesEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}
