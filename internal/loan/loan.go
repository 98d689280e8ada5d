// Package loan models fixed-payment loan amortization and scores candidate
// splits of a monthly budget across several loans. It supplies the objective
// for the genetic optimizer: the less paid in total over the life of all
// loans, the fitter the split.
package loan

import (
	"fmt"
	"math"
	"strings"
)

// BadSplitFitness scores a split under which at least one loan can never be
// paid off. It is the smallest acceptable finite fitness; non-finite values
// and negative sentinels are reserved by the engine.
const BadSplitFitness = 1e-10

// Loan is one fixed-rate loan: an annual interest rate in percent and the
// outstanding principal.
type Loan struct {
	InterestRate float64 `json:"interest_rate"`
	Principal    float64 `json:"principal"`
}

// monthlyRate converts the annual percentage rate to a monthly fraction.
func (l Loan) monthlyRate() float64 {
	return l.InterestRate / 12.0 / 100.0
}

// NumPayments returns how many monthly payments of the given amount it takes
// to pay the loan off. The result is NaN when the payment does not cover the
// monthly interest, so the loan would never be repaid.
func (l Loan) NumPayments(monthlyPayment float64) float64 {
	i := l.monthlyRate()
	n := -1 * math.Log10(1-i*l.Principal/monthlyPayment)
	return n / math.Log10(1+i)
}

// TotalPaid returns the total amount paid over the life of the loan at the
// given monthly payment. NaN when the loan cannot be paid off.
func (l Loan) TotalPaid(monthlyPayment float64) float64 {
	return l.NumPayments(monthlyPayment) * monthlyPayment
}

// Plan is a fixed set of loans paid from a shared monthly budget.
type Plan struct {
	// Loans to pay off together. At least two; a single loan has nothing
	// to optimize.
	Loans []Loan

	// MonthlyNominal is the total budget paid across all loans each month.
	MonthlyNominal float64

	// MonthlyDeviation lets the optimizer vary the monthly total: the last
	// gene scales the nominal budget by up to this amount. Zero pins the
	// budget to MonthlyNominal exactly.
	MonthlyDeviation float64
}

// Validate checks that the plan is optimizable.
func (p Plan) Validate() error {
	if len(p.Loans) < 2 {
		return fmt.Errorf("loan: need at least 2 loans, got %d", len(p.Loans))
	}
	if p.MonthlyNominal <= 0 {
		return fmt.Errorf("loan: monthly budget must be positive, got %v", p.MonthlyNominal)
	}
	if p.MonthlyDeviation < 0 {
		return fmt.Errorf("loan: monthly deviation must be non-negative, got %v", p.MonthlyDeviation)
	}
	for i, l := range p.Loans {
		if l.Principal <= 0 {
			return fmt.Errorf("loan: loan %d principal must be positive, got %v", i, l.Principal)
		}
		if l.InterestRate <= 0 {
			return fmt.Errorf("loan: loan %d interest rate must be positive, got %v", i, l.InterestRate)
		}
	}
	return nil
}

// GenomeSize returns the number of genes a candidate split needs: one per
// loan. The last gene doubles as the budget-deviation control when
// MonthlyDeviation is non-zero.
func (p Plan) GenomeSize() int {
	return len(p.Loans)
}

// Monthly returns the total monthly payment encoded by a genome: the nominal
// budget plus the deviation scaled by the last gene.
func (p Plan) Monthly(genes []float64) float64 {
	return p.MonthlyNominal + p.MonthlyDeviation*genes[len(p.Loans)-1]
}

// Payments converts a genome into per-loan monthly payment amounts. Each
// gene takes its fraction of the budget still remaining, and the last loan
// receives whatever is left, so the payments always sum to the monthly total.
//
// For genes {0.75, 0.25, _} and a $1000 budget: $750, $62.50, $187.50.
func (p Plan) Payments(genes []float64) []float64 {
	payments := make([]float64, len(p.Loans))
	remaining := p.Monthly(genes)
	for i := 0; i < len(p.Loans)-1; i++ {
		payments[i] = remaining * genes[i]
		remaining -= payments[i]
	}
	payments[len(p.Loans)-1] = remaining
	return payments
}

// TotalPaid returns the total amount paid across all loans for the given
// per-loan monthly payments. NaN when any loan cannot be paid off.
func (p Plan) TotalPaid(payments []float64) float64 {
	total := 0.0
	for i, l := range p.Loans {
		total += l.TotalPaid(payments[i])
	}
	return total
}

// Fitness scores a genome as 1 / total paid, so cheaper repayment plans are
// fitter. Splits that leave any loan unpayable score BadSplitFitness rather
// than a non-finite value.
func (p Plan) Fitness(genes []float64) (float64, error) {
	payments := p.Payments(genes)
	total := 0.0
	for i, l := range p.Loans {
		paid := l.TotalPaid(payments[i])
		n := l.NumPayments(payments[i])
		if math.IsNaN(paid) || math.IsNaN(n) {
			return BadSplitFitness, nil
		}
		total += paid
	}
	return 1.0 / total, nil
}

// EqualSplitTotal returns the total paid under the naive strategy of
// splitting the nominal budget evenly across all loans. Used as the baseline
// an optimized split has to beat.
func (p Plan) EqualSplitTotal() float64 {
	payments := make([]float64, len(p.Loans))
	each := p.MonthlyNominal / float64(len(p.Loans))
	for i := range payments {
		payments[i] = each
	}
	return p.TotalPaid(payments)
}

// MinimumTotal returns the sum of all principals, the total paid if every
// loan could be settled immediately. A lower bound for any split.
func (p Plan) MinimumTotal() float64 {
	total := 0.0
	for _, l := range p.Loans {
		total += l.Principal
	}
	return total
}

// Summary renders a repayment plan for one genome: per-loan payments and
// durations, the monthly total and the grand total paid.
func (p Plan) Summary(genes []float64) string {
	payments := p.Payments(genes)

	var b strings.Builder
	total := 0.0
	for i, l := range p.Loans {
		total += l.TotalPaid(payments[i])
		years := l.NumPayments(payments[i]) / 12.0
		fmt.Fprintf(&b, " Loan %d:\tPayment: $%.2f\tYears: %.2f\n", i, payments[i], years)
	}
	fmt.Fprintf(&b, "Monthly Payment: $%.2f\n", p.Monthly(genes))
	fmt.Fprintf(&b, "Total Paid:      $%.2f\n", total)
	return b.String()
}
