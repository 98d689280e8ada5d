// Command loanopt runs the loan-payment optimization demo: a micro GA
// searching for the split of a fixed monthly budget across several loans
// that minimizes the total amount paid.
package main

import (
	"fmt"
	"os"

	"github.com/copyleftdev/HELIX/internal/loan"
	"github.com/copyleftdev/HELIX/internal/logging"
	"github.com/copyleftdev/HELIX/internal/optimization/genetic"
)

// Evolution parameters. A micro GA works best with a small gene pool,
// somewhere between 5 and 100 individuals.
const (
	populationSize = 15
	mutationRate   = 0.1
	crossoverRate  = 0.7
	maxGenerations = 50
	verbose        = false
)

// plan is the demo scenario: three loans paid from a fixed $1250 monthly
// budget. Set MonthlyDeviation non-zero to let the GA vary the budget too.
var plan = loan.Plan{
	Loans: []loan.Loan{
		{InterestRate: 5.00, Principal: 1500.00},
		{InterestRate: 3.50, Principal: 10000.00},
		{InterestRate: 9.50, Principal: 5000.00},
	},
	MonthlyNominal:   1250.00,
	MonthlyDeviation: 0.0,
}

func main() {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  logLevel(),
		Format: "json",
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Loan Payment Optimization")
	fmt.Println("-------------------------")
	fmt.Printf("Minimum possible total payment: $%.2f\n\n", plan.MinimumTotal())

	pop, err := genetic.New(genetic.Config{
		PopulationSize: populationSize,
		GenomeSize:     plan.GenomeSize(),
		MutationRate:   mutationRate,
		CrossoverRate:  crossoverRate,
		Fitness:        fitness,
		Debug:          verbose,
		Logger:         logging.NewZapLogger(logger),
	})
	if err != nil {
		logger.Fatal("Failed to build population", map[string]interface{}{"error": err.Error()})
	}
	defer pop.Close()

	for gen := 0; gen < maxGenerations; gen++ {
		if err := pop.Evolve(); err != nil {
			logger.Fatal("Evolution failed", map[string]interface{}{
				"generation": gen + 1,
				"error":      err.Error(),
			})
		}

		// Re-score so the freshly bred individuals are comparable.
		for _, g := range pop.Individuals() {
			if err := fitness(g); err != nil {
				logger.Fatal("Fitness evaluation failed", map[string]interface{}{"error": err.Error()})
			}
		}

		stats, _ := pop.Stats()
		logger.Debug("Generation complete", map[string]interface{}{
			"generation":   pop.Generation(),
			"best_fitness": stats.Best,
			"mean_fitness": stats.Mean,
		})
	}

	if err := pop.Sort(); err != nil {
		logger.Fatal("Sort failed", map[string]interface{}{"error": err.Error()})
	}
	printSummary(pop)
}

// fitness scores an individual by the inverse of the total paid under its
// payment split.
func fitness(g *genetic.Genome) error {
	value, err := plan.Fitness(g.Genes)
	if err != nil {
		return err
	}
	g.Fitness = value
	return nil
}

func printSummary(pop *genetic.Population) {
	fmt.Println("Summary")
	fmt.Println("-------")

	for i, g := range pop.Individuals() {
		fmt.Printf("Individual %d\n", i)
		fmt.Println("--------------")
		fmt.Print(plan.Summary(g.Genes))
		fmt.Println()
	}
}

func logLevel() string {
	if verbose {
		return "debug"
	}
	return "info"
}
