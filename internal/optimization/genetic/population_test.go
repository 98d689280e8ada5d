package genetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "zero population",
			mutate: func(c *Config) { c.PopulationSize = 0 },
		},
		{
			// A single individual can never satisfy the distinct-parent
			// requirement, so it must fail here rather than loop in Evolve.
			name:   "population of one",
			mutate: func(c *Config) { c.PopulationSize = 1 },
		},
		{
			name:   "zero genome size",
			mutate: func(c *Config) { c.GenomeSize = 0 },
		},
		{
			name:   "missing fitness function",
			mutate: func(c *Config) { c.Fitness = nil },
		},
		{
			name:   "negative mutation rate",
			mutate: func(c *Config) { c.MutationRate = -0.1 },
		},
		{
			name:   "mutation rate above one",
			mutate: func(c *Config) { c.MutationRate = 1.5 },
		},
		{
			name:   "negative crossover rate",
			mutate: func(c *Config) { c.CrossoverRate = -0.1 },
		},
		{
			name:   "negative fitness threshold",
			mutate: func(c *Config) { c.FitnessThreshold = -1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			pop, err := New(cfg)
			assert.Nil(t, pop)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewSeedsPopulation(t *testing.T) {
	cfg := testConfig()
	pop, err := New(cfg)
	require.NoError(t, err)
	defer pop.Close()

	individuals := pop.Individuals()
	require.Len(t, individuals, cfg.PopulationSize)
	assert.Equal(t, cfg.PopulationSize, pop.Size())
	assert.Equal(t, 0, pop.Generation())

	for i, g := range individuals {
		assert.Len(t, g.Genes, cfg.GenomeSize, "individual %d", i)
		assert.Equal(t, FitnessUnevaluated, g.Fitness, "individual %d", i)
		assert.False(t, g.Evaluated(), "individual %d", i)
		for n, v := range g.Genes {
			assert.GreaterOrEqual(t, v, 0.0, "individual %d gene %d", i, n)
			assert.Less(t, v, 1.0, "individual %d gene %d", i, n)
		}
	}
}

func TestNewSameSeedReproducesInitialPopulation(t *testing.T) {
	cfg := testConfig()
	cfg.RandomSeed = 1234

	first, err := New(cfg)
	require.NoError(t, err)
	genes := snapshotGenes(first)
	require.NoError(t, first.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	defer second.Close()

	for i, g := range second.Individuals() {
		assert.Equal(t, genes[i], g.Genes, "individual %d", i)
	}
}

func TestNewAcceptanceFiltersSeeding(t *testing.T) {
	cfg := testConfig()
	cfg.Acceptance = func(g *Genome) bool {
		return g.Genes[0] >= 0.5
	}

	pop, err := New(cfg)
	require.NoError(t, err)
	defer pop.Close()

	for i, g := range pop.Individuals() {
		assert.GreaterOrEqual(t, g.Genes[0], 0.5, "individual %d slipped past acceptance", i)
	}
}

func TestNewAcceptanceBudgetExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.Acceptance = func(*Genome) bool { return false }

	pop, err := New(cfg)
	assert.Nil(t, pop)
	assert.ErrorIs(t, err, ErrSeeding)
}

func TestCloseLifecycle(t *testing.T) {
	pop, err := New(testConfig())
	require.NoError(t, err)

	require.NoError(t, pop.Close())

	// Everything after teardown is a precondition violation, not a no-op.
	assert.ErrorIs(t, pop.Close(), ErrNotReady)
	assert.ErrorIs(t, pop.Evolve(), ErrNotReady)
	assert.ErrorIs(t, pop.Sort(), ErrNotReady)
	_, err = pop.Best()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = pop.Stats()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Nil(t, pop.Individuals())
	assert.Equal(t, 0, pop.Size())
}

func TestSortAscendingAndStable(t *testing.T) {
	pop, err := New(testConfig())
	require.NoError(t, err)
	defer pop.Close()

	for _, g := range pop.Individuals() {
		require.NoError(t, sumFitness(g))
	}
	require.NoError(t, pop.Sort())

	individuals := pop.Individuals()
	for i := 1; i < len(individuals); i++ {
		assert.LessOrEqual(t, individuals[i-1].Fitness, individuals[i].Fitness,
			"fitness must be non-decreasing at index %d", i)
	}

	best, err := pop.Best()
	require.NoError(t, err)
	assert.Same(t, individuals[len(individuals)-1], best)
}

func TestStats(t *testing.T) {
	pop, err := New(testConfig())
	require.NoError(t, err)
	defer pop.Close()

	individuals := pop.Individuals()
	for i, g := range individuals {
		g.Fitness = float64(i)
	}

	stats, err := pop.Stats()
	require.NoError(t, err)
	assert.InDelta(t, 7.0, stats.Mean, 1e-12)
	assert.Equal(t, 14.0, stats.Best)
	assert.Greater(t, stats.StdDev, 0.0)
}

func TestGenomeCloneAndString(t *testing.T) {
	g := &Genome{Genes: []float64{0.25, 0.5}, Fitness: 2.0}

	clone := g.Clone()
	clone.Genes[0] = 0.75
	assert.Equal(t, 0.25, g.Genes[0], "clone must not alias the original genes")
	assert.Equal(t, g.Fitness, clone.Fitness)

	assert.Contains(t, g.String(), "0.2500")
	assert.Contains(t, g.String(), "fitness")
}
