package genetic

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Evolve advances the population by one generation: evaluate fitness, rank,
// select parent pairs by roulette wheel, breed and mutate children, then
// replace the weakest individuals. The single best individual survives
// unmodified. The step is atomic: on any error the gene vectors are left
// exactly as they were and the generation counter does not advance.
func (p *Population) Evolve() error {
	if p == nil || !p.ready {
		return ErrNotReady
	}

	n := len(p.individuals)

	// Score everyone first; the callback owns the fitness field.
	for i, g := range p.individuals {
		if err := p.fitness(g); err != nil {
			return fmt.Errorf("%w: individual %d: %v", ErrEvaluation, i, err)
		}
		if math.IsNaN(g.Fitness) || math.IsInf(g.Fitness, 0) {
			return fmt.Errorf("%w: individual %d has non-finite fitness %v", ErrEvaluation, i, g.Fitness)
		}
		if g.Fitness < 0 {
			return fmt.Errorf("%w: individual %d has negative fitness %v", ErrEvaluation, i, g.Fitness)
		}
	}

	if err := p.Sort(); err != nil {
		return err
	}

	// Everyone but the single best individual is bred over.
	replace := n - 1

	cumulative, err := p.selectionTable()
	if err != nil {
		return err
	}

	pairs, err := p.selectPairs(cumulative, replace)
	if err != nil {
		return err
	}

	// Children live in transient buffers so parents slated for replacement
	// can still breed.
	children := make([]*Genome, replace)
	for i, pair := range pairs {
		mother := p.individuals[pair.mother]
		father := p.individuals[pair.father]
		child := p.crossover(mother, father)
		p.mutate(child)
		children[i] = child

		if p.debug {
			p.logger.Debug("bred child",
				zap.Int("mother", pair.mother),
				zap.Int("father", pair.father),
				zap.String("child", child.String()))
		}
	}

	// Commit: overwrite the worst individuals in place, preserving their
	// pre-allocated gene storage. Nothing above this point has modified the
	// population's gene vectors.
	for i := 0; i < replace; i++ {
		copy(p.individuals[i].Genes, children[i].Genes)
		p.individuals[i].Fitness = FitnessUnevaluated
	}
	p.generation++

	if p.debug {
		p.logger.Debug("generation advanced",
			zap.Int("generation", p.generation),
			zap.Int("replaced", replace),
			zap.Float64("surviving_fitness", p.individuals[n-1].Fitness))
	}

	return nil
}

// selectionTable builds the cumulative roulette distribution over the
// ascending-fitness population: entry k is the running sum of
// fitness[0..k]/total. Sorting beforehand fixes index order only; it does
// not change selection probabilities.
func (p *Population) selectionTable() ([]float64, error) {
	n := len(p.individuals)
	weights := make([]float64, n)
	for i, g := range p.individuals {
		weights[i] = g.Fitness
	}

	total := floats.Sum(weights)
	if total <= 0 {
		return nil, fmt.Errorf("%w: total fitness is %v", ErrSelection, total)
	}
	floats.Scale(1/total, weights)

	return floats.CumSum(make([]float64, n), weights), nil
}

type parentPair struct {
	mother, father int
}

// selectPairs draws count parent pairs by roulette wheel, redrawing any pair
// whose mother and father coincide. Exhausting the retry budget, which
// happens when one individual holds nearly the whole distribution, fails the
// step instead of spinning forever.
func (p *Population) selectPairs(cumulative []float64, count int) ([]parentPair, error) {
	pairs := make([]parentPair, 0, count)
	retries := 0
	for len(pairs) < count {
		mother := p.spin(cumulative)
		father := p.spin(cumulative)
		if mother == father {
			retries++
			if retries > maxSelectionRetries {
				return nil, fmt.Errorf("%w: %d redraws produced identical parents", ErrSelection, retries)
			}
			continue
		}
		pairs = append(pairs, parentPair{mother: mother, father: father})
	}
	return pairs, nil
}

// spin draws one index from the cumulative distribution: the first index k
// with r <= cumulative[k] for a uniform r in [0, 1).
func (p *Population) spin(cumulative []float64) int {
	r := p.rng.Float64()
	for i, c := range cumulative {
		if r <= c {
			return i
		}
	}
	// Rounding can leave cumulative[n-1] a hair below 1.
	return len(cumulative) - 1
}
