package problem

import (
	"fmt"
	"math"
	"strings"

	"genomix/internal/evo"
	"genomix/internal/genotype"
)

const (
	MakeChangeName      = "make-change"
	DefaultChangeAmount = 89

	// changeErrorWeight makes any wrong total worse than any coin count.
	changeErrorWeight = 1000
)

var coinValues = []int{25, 10, 5, 1}

var coinNames = []string{"quarters", "dimes", "nickels", "pennies"}

// MakeChange looks for the fewest coins adding up to an amount in cents. It
// is scored as a delta: weighted distance to the amount plus the coin count,
// minimized.
type MakeChange struct {
	Amount int
}

func NewMakeChange(amount int) *MakeChange {
	return &MakeChange{Amount: amount}
}

func (p *MakeChange) Name() string { return MakeChangeName }

func (p *MakeChange) Description() string {
	return fmt.Sprintf("fewest US coins making %d cents (minimizing)", p.Amount)
}

func (p *MakeChange) Sample() (*genotype.Chromosome, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("%w: change amount must be positive", genotype.ErrInvalidGene)
	}
	genes := make([]genotype.Gene, len(coinValues))
	for i, coin := range coinValues {
		gene, err := genotype.NewIntegerGene(0, p.Amount/coin)
		if err != nil {
			return nil, err
		}
		genes[i] = gene
	}
	return genotype.NewChromosome(genes...)
}

func (p *MakeChange) Fitness() evo.FitnessFunction {
	return evo.FitnessFunc(func(c *genotype.Chromosome) float64 {
		total, coins := p.count(c)
		return changeErrorWeight*math.Abs(float64(total-p.Amount)) + float64(coins)
	})
}

func (p *MakeChange) Evaluator() genotype.FitnessEvaluator { return genotype.MinimizingEvaluator{} }

// Goal is the greedy coin count, which is optimal for US denominations.
func (p *MakeChange) Goal() (float64, bool) {
	if p.Amount <= 0 {
		return 0, false
	}
	remaining, coins := p.Amount, 0
	for _, coin := range coinValues {
		coins += remaining / coin
		remaining %= coin
	}
	return float64(coins), true
}

func (p *MakeChange) Decode(c *genotype.Chromosome) string {
	counts := integerAlleles(c)
	parts := make([]string, len(counts))
	for i, n := range counts {
		parts[i] = fmt.Sprintf("%d %s", n, coinNames[i])
	}
	total, _ := p.count(c)
	return fmt.Sprintf("%s = %d cents", strings.Join(parts, ", "), total)
}

func (p *MakeChange) count(c *genotype.Chromosome) (total, coins int) {
	for i, n := range integerAlleles(c) {
		if i >= len(coinValues) {
			break
		}
		total += n * coinValues[i]
		coins += n
	}
	return total, coins
}
