package optimization

import (
	"context"
)

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Optimize runs the optimization process
	Optimize(ctx context.Context, config OptimizerConfig) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns the per-generation history
	GetHistory() []Evaluation

	// Stop gracefully stops the optimization process
	Stop()
}

// OptimizerConfig contains configuration for the optimizer
type OptimizerConfig struct {
	// Objective function to maximize
	Objective ObjectiveFunction

	// Number of parameters per candidate solution
	GenomeSize int

	// Number of candidate solutions evolved together
	PopulationSize int

	// Per-gene probability of a reset mutation, in [0,1]
	MutationRate float64

	// Per-gene recombination gate, in [0,1]
	CrossoverRate float64

	// Carried through to the engine; not consulted during evolution
	FitnessThreshold float64

	// Number of generations to run; the optimizer has no convergence
	// criterion of its own
	MaxGenerations int

	// Optional filter applied to randomly generated candidates during
	// population seeding
	Accept AcceptFunction

	// Random seed for reproducibility; zero means time-derived
	RandomSeed int64

	// Verbose logging
	Verbose bool
}

// ObjectiveFunction scores a parameter vector. Higher is better; values must
// be finite and non-negative.
type ObjectiveFunction func([]float64) (float64, error)

// AcceptFunction reports whether a randomly generated parameter vector may
// enter the initial population.
type AcceptFunction func([]float64) bool

// Solution represents a solution in the optimization space
type Solution struct {
	Parameters []float64
	Value      float64
}

// Evaluation records the best solution observed in one generation
type Evaluation struct {
	Generation int
	Solution   *Solution
	Error      error
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	Generations  int
	Converged    bool
}
