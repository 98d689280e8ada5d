// Package genetic implements a micro genetic algorithm: a small, fixed-size
// population of real-valued genomes evolved generation by generation with
// roulette-wheel selection, blend/discrete crossover, reset mutation and
// elitist replacement. Fitness and acceptance are supplied by the caller,
// who also drives the generation loop.
package genetic

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Sentinel errors returned by the engine. Use errors.Is to classify.
var (
	// ErrInvalidConfig indicates a configuration rejected at construction.
	ErrInvalidConfig = errors.New("genetic: invalid configuration")
	// ErrNotReady indicates an operation on a closed or zero-value population.
	ErrNotReady = errors.New("genetic: population is not ready")
	// ErrSeeding indicates the acceptance retry budget was exhausted while
	// building the initial population.
	ErrSeeding = errors.New("genetic: could not seed population")
	// ErrSelection indicates parent selection could not produce distinct
	// pairs within the retry budget.
	ErrSelection = errors.New("genetic: could not select distinct parents")
	// ErrEvaluation indicates the fitness callback failed or produced a
	// score outside the contract.
	ErrEvaluation = errors.New("genetic: fitness evaluation failed")
)

// Retry budgets for the two loops that were unbounded in naive
// implementations. Exhaustion surfaces as ErrSeeding or ErrSelection.
const (
	maxAcceptanceRetries = 10000
	maxSelectionRetries  = 10000
)

// Config is the immutable parameter bundle for a Population.
type Config struct {
	// PopulationSize is the number of individuals. Must be at least 2 so
	// that distinct parent pairs exist.
	PopulationSize int

	// GenomeSize is the gene count shared by every individual.
	GenomeSize int

	// MutationRate is the per-gene probability of a reset mutation, in [0,1].
	MutationRate float64

	// CrossoverRate gates per-gene recombination, in [0,1]. See
	// (*Population).crossover for the exact (inverted) semantics.
	CrossoverRate float64

	// FitnessThreshold is accepted and validated for configuration
	// compatibility but is not consulted by the evolution step.
	FitnessThreshold float64

	// Fitness scores individuals. Required.
	Fitness FitnessFunc

	// Acceptance filters randomly generated genomes during seeding. Optional.
	Acceptance AcceptanceFunc

	// RandomSeed seeds the population's private RNG. Zero selects a
	// time-derived seed; pass a fixed value for reproducible runs.
	RandomSeed int64

	// Debug enables per-generation diagnostic logging.
	Debug bool

	// Logger receives engine diagnostics. Optional; defaults to a no-op
	// logger, or a development logger when Debug is set.
	Logger *zap.Logger
}

func (c *Config) validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("%w: population size must be at least 2, got %d", ErrInvalidConfig, c.PopulationSize)
	}
	if c.GenomeSize < 1 {
		return fmt.Errorf("%w: genome size must be positive, got %d", ErrInvalidConfig, c.GenomeSize)
	}
	if c.Fitness == nil {
		return fmt.Errorf("%w: fitness function is required", ErrInvalidConfig)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate must be in [0,1], got %v", ErrInvalidConfig, c.MutationRate)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("%w: crossover rate must be in [0,1], got %v", ErrInvalidConfig, c.CrossoverRate)
	}
	if c.FitnessThreshold < 0 {
		return fmt.Errorf("%w: fitness threshold must be non-negative, got %v", ErrInvalidConfig, c.FitnessThreshold)
	}
	return nil
}

// Population is a fixed-size ordered collection of genomes plus the evolution
// parameters. It owns its genomes exclusively and must not be shared across
// concurrent callers.
type Population struct {
	individuals []*Genome

	genomeSize       int
	mutationRate     float64
	crossoverRate    float64
	fitnessThreshold float64

	fitness    FitnessFunc
	acceptance AcceptanceFunc

	generation int
	ready      bool
	debug      bool

	rng    *rand.Rand
	logger *zap.Logger
}

// New validates the configuration, allocates the population, seeds it with
// random (optionally acceptance-filtered) genomes and marks it ready.
func New(cfg Config) (*Population, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger := cfg.Logger
	if logger == nil {
		if cfg.Debug {
			logger, _ = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
	}

	p := &Population{
		individuals:      make([]*Genome, cfg.PopulationSize),
		genomeSize:       cfg.GenomeSize,
		mutationRate:     cfg.MutationRate,
		crossoverRate:    cfg.CrossoverRate,
		fitnessThreshold: cfg.FitnessThreshold,
		fitness:          cfg.Fitness,
		acceptance:       cfg.Acceptance,
		debug:            cfg.Debug,
		rng:              rand.New(rand.NewSource(seed)),
		logger:           logger.Named("genetic"),
	}
	for i := range p.individuals {
		p.individuals[i] = newGenome(cfg.GenomeSize)
	}

	if err := p.seed(); err != nil {
		return nil, err
	}

	p.ready = true
	return p, nil
}

// seed fills every genome with uniform random genes in [0, 1). When an
// acceptance function is configured, rejected genomes are regenerated in
// place until accepted or the retry budget runs out.
func (p *Population) seed() error {
	for i, g := range p.individuals {
		accepted := false
		for attempt := 0; attempt <= maxAcceptanceRetries; attempt++ {
			for n := range g.Genes {
				g.Genes[n] = p.rng.Float64()
			}
			if p.acceptance == nil || p.acceptance(g) {
				accepted = true
				break
			}
		}
		if !accepted {
			return fmt.Errorf("%w: acceptance rejected %d candidates for individual %d",
				ErrSeeding, maxAcceptanceRetries+1, i)
		}
		g.Fitness = FitnessUnevaluated
	}
	return nil
}

// Close releases the population and clears the ready flag. Any further
// operation on the population is an error.
func (p *Population) Close() error {
	if p == nil || !p.ready {
		return ErrNotReady
	}
	p.individuals = nil
	p.ready = false
	return nil
}

// Sort orders the population ascending by fitness, stably, so index 0 holds
// the worst individual and the last index the best. Exposed so callers can
// inspect a converged population without another evolution step.
func (p *Population) Sort() error {
	if p == nil || !p.ready {
		return ErrNotReady
	}
	sort.SliceStable(p.individuals, func(i, j int) bool {
		return p.individuals[i].Fitness < p.individuals[j].Fitness
	})
	return nil
}

// Individuals returns the population's genomes in their current order. The
// slice and genomes remain owned by the population.
func (p *Population) Individuals() []*Genome {
	if p == nil || !p.ready {
		return nil
	}
	return p.individuals
}

// Size returns the number of individuals.
func (p *Population) Size() int {
	if p == nil || !p.ready {
		return 0
	}
	return len(p.individuals)
}

// Generation returns the number of completed evolution steps.
func (p *Population) Generation() int {
	return p.generation
}

// Best returns the individual with the highest fitness without reordering
// the population.
func (p *Population) Best() (*Genome, error) {
	if p == nil || !p.ready {
		return nil, ErrNotReady
	}
	best := p.individuals[0]
	for _, g := range p.individuals[1:] {
		if g.Fitness > best.Fitness {
			best = g
		}
	}
	return best, nil
}

// Stats summarizes the population's current fitness values.
type Stats struct {
	Mean   float64
	StdDev float64
	Best   float64
}

// Stats computes summary statistics over the current fitness values.
func (p *Population) Stats() (Stats, error) {
	if p == nil || !p.ready {
		return Stats{}, ErrNotReady
	}
	values := make([]float64, len(p.individuals))
	best := p.individuals[0].Fitness
	for i, g := range p.individuals {
		values[i] = g.Fitness
		if g.Fitness > best {
			best = g.Fitness
		}
	}
	return Stats{
		Mean:   stat.Mean(values, nil),
		StdDev: stat.StdDev(values, nil),
		Best:   best,
	}, nil
}
