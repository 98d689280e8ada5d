package genetic

import (
	"context"

	"go.uber.org/zap"

	"github.com/copyleftdev/HELIX/internal/optimization"
)

// Optimizer drives a Population through a fixed number of generations and
// tracks the best solution seen. It implements optimization.Optimizer.
type Optimizer struct {
	// Configuration
	config optimization.OptimizerConfig

	// Best solution found
	bestSolution *optimization.Solution

	// Per-generation history
	history []optimization.Evaluation

	// For cancellation
	cancel context.CancelFunc

	// Logger for structured logging
	logger *zap.Logger
}

var _ optimization.Optimizer = (*Optimizer)(nil)

// NewOptimizer creates a new genetic Optimizer. Missing population and
// generation counts fall back to micro-GA defaults.
func NewOptimizer(config optimization.OptimizerConfig) (*Optimizer, error) {
	if config.PopulationSize < 1 {
		config.PopulationSize = 15 // Default value
	}
	if config.MaxGenerations < 1 {
		config.MaxGenerations = 50 // Default value
	}

	var logger *zap.Logger
	if config.Verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		logger = zap.NewNop()
	}

	return &Optimizer{
		config:  config,
		history: make([]optimization.Evaluation, 0, config.MaxGenerations),
		logger:  logger.Named("genetic_optimizer"),
	}, nil
}

// SetLogger replaces the optimizer's logger. Must be called before Optimize.
func (o *Optimizer) SetLogger(logger *zap.Logger) {
	if logger != nil {
		o.logger = logger.Named("genetic_optimizer")
	}
}

// Optimize runs the generation loop. The caller bounds the run via
// MaxGenerations and may cancel through the context between generations.
func (o *Optimizer) Optimize(ctx context.Context, config optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	const op = "Optimize"

	// Update config if provided
	if config.Objective != nil {
		o.config = config
	}
	if o.config.Objective == nil {
		return nil, optimization.NewError("objective function is required").
			WithComponent("genetic").WithOperation(op)
	}

	// Create a cancellable context
	ctx, o.cancel = context.WithCancel(ctx)
	defer o.cancel()

	pop, err := New(o.engineConfig())
	if err != nil {
		return nil, optimization.WrapError(err, "failed to build population").
			WithComponent("genetic").WithOperation(op)
	}
	defer pop.Close()

	for gen := 0; gen < o.config.MaxGenerations; gen++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := pop.Evolve(); err != nil {
			return nil, optimization.WrapErrorf(err, "generation %d failed", gen+1).
				WithComponent("genetic").WithOperation(op)
		}

		// Evolve resets the replaced individuals' fitness, so re-score the
		// population before reading off the generation's best.
		best, err := o.scoreAndBest(pop)
		if err != nil {
			return nil, optimization.WrapErrorf(err, "generation %d failed", gen+1).
				WithComponent("genetic").WithOperation(op)
		}

		o.updateBestSolution(best.Genes, best.Fitness)
		o.history = append(o.history, optimization.Evaluation{
			Generation: gen + 1,
			Solution: &optimization.Solution{
				Parameters: append([]float64(nil), best.Genes...),
				Value:      best.Fitness,
			},
		})

		if o.config.Verbose {
			stats, _ := pop.Stats()
			o.logger.Debug("generation complete",
				zap.Int("generation", gen+1),
				zap.Float64("best_fitness", stats.Best),
				zap.Float64("mean_fitness", stats.Mean),
				zap.Float64("stddev_fitness", stats.StdDev))
		}
	}

	return &optimization.OptimizationResult{
		BestSolution: o.bestSolution,
		History:      o.history,
		Generations:  o.config.MaxGenerations,
		Converged:    true,
	}, nil
}

// GetBestSolution returns the best solution found so far
func (o *Optimizer) GetBestSolution() *optimization.Solution {
	return o.bestSolution
}

// GetHistory returns the per-generation history
func (o *Optimizer) GetHistory() []optimization.Evaluation {
	return o.history
}

// Stop stops the optimization process
func (o *Optimizer) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
}

// engineConfig translates the service-level optimizer configuration into the
// engine's parameter bundle, wrapping the objective as a fitness callback.
func (o *Optimizer) engineConfig() Config {
	cfg := Config{
		PopulationSize:   o.config.PopulationSize,
		GenomeSize:       o.config.GenomeSize,
		MutationRate:     o.config.MutationRate,
		CrossoverRate:    o.config.CrossoverRate,
		FitnessThreshold: o.config.FitnessThreshold,
		RandomSeed:       o.config.RandomSeed,
		Debug:            o.config.Verbose,
		Logger:           o.logger,
		Fitness: func(g *Genome) error {
			value, err := o.config.Objective(g.Genes)
			if err != nil {
				return err
			}
			g.Fitness = value
			return nil
		},
	}
	if o.config.Accept != nil {
		accept := o.config.Accept
		cfg.Acceptance = func(g *Genome) bool {
			return accept(g.Genes)
		}
	}
	return cfg
}

// scoreAndBest evaluates every individual and returns the fittest.
func (o *Optimizer) scoreAndBest(pop *Population) (*Genome, error) {
	for _, g := range pop.Individuals() {
		value, err := o.config.Objective(g.Genes)
		if err != nil {
			return nil, err
		}
		g.Fitness = value
	}
	return pop.Best()
}

// updateBestSolution updates the best solution if the new one is fitter
func (o *Optimizer) updateBestSolution(params []float64, value float64) {
	if o.bestSolution == nil || value > o.bestSolution.Value {
		o.bestSolution = &optimization.Solution{
			Parameters: append([]float64(nil), params...),
			Value:      value,
		}
	}
}
