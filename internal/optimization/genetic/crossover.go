package genetic

// crossover breeds one child from two parents, deciding independently per
// gene position between two recombination strategies.
//
// The rate gate is inverted relative to common GA naming and is kept that
// way as the tested contract: a draw above CrossoverRate blends the parent
// genes (alpha*mother + (1-alpha)*father), a draw at or below it picks one
// parent's value by fair coin. Higher rates therefore mean more discrete
// picks and less blending.
func (p *Population) crossover(mother, father *Genome) *Genome {
	child := newGenome(p.genomeSize)
	for i := 0; i < p.genomeSize; i++ {
		if c := p.rng.Float64(); c > p.crossoverRate {
			alpha := p.rng.Float64()
			child.Genes[i] = alpha*mother.Genes[i] + (1-alpha)*father.Genes[i]
		} else if p.rng.Float64() > 0.5 {
			child.Genes[i] = mother.Genes[i]
		} else {
			child.Genes[i] = father.Genes[i]
		}
	}
	return child
}

// mutate applies reset-style mutation: each gene is independently replaced
// with a fresh uniform value in [0, 1) with probability MutationRate. Genes
// are replaced, not perturbed.
func (p *Population) mutate(g *Genome) {
	for i := range g.Genes {
		if p.rng.Float64() < p.mutationRate {
			g.Genes[i] = p.rng.Float64()
		}
	}
}
