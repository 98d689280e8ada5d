package genetic

import (
	"fmt"
	"strings"
)

// FitnessUnevaluated is the sentinel fitness of a genome whose score has not
// been computed yet. Evolve resets every replaced individual to this value.
const FitnessUnevaluated = -1.0

// Genome is one candidate solution: a fixed-length vector of real-valued
// genes, each a normalized parameter in [0, 1), plus a scalar fitness under a
// maximization convention. Genomes are mutable value containers owned by
// their Population and are never shared between populations.
type Genome struct {
	Genes   []float64
	Fitness float64
}

// newGenome allocates a genome with all genes zero and fitness unevaluated.
func newGenome(size int) *Genome {
	return &Genome{
		Genes:   make([]float64, size),
		Fitness: FitnessUnevaluated,
	}
}

// Evaluated reports whether the fitness field holds a computed score.
func (g *Genome) Evaluated() bool {
	return g.Fitness != FitnessUnevaluated
}

// Clone returns a deep copy of the genome.
func (g *Genome) Clone() *Genome {
	return &Genome{
		Genes:   append([]float64(nil), g.Genes...),
		Fitness: g.Fitness,
	}
}

// String renders the genome's fitness and gene values for human inspection.
// It does not mutate the genome.
func (g *Genome) String() string {
	if g == nil {
		return "Genome{<nil>}"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Genome{fitness: %f, genes: [", g.Fitness)
	for i, v := range g.Genes {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%.4f", v)
	}
	b.WriteString("]}")
	return b.String()
}

// FitnessFunc scores a genome. Implementations must set g.Fitness to a
// finite, non-negative value before returning; higher is better. A returned
// error aborts the current operation without modifying any gene vector.
type FitnessFunc func(g *Genome) error

// AcceptanceFunc filters randomly generated genomes during initial seeding.
// A false result discards the candidate and regenerates it in place.
type AcceptanceFunc func(g *Genome) bool
