package problem

import (
	"fmt"
	"math"

	"genomix/internal/evo"
	"genomix/internal/genotype"
)

const (
	SumTargetName    = "sum-target"
	DefaultSumTarget = 93
)

// SumTarget searches four bounded integers whose sum hits a target. Fitness
// is the negated distance to the target, so 0 is a perfect answer.
type SumTarget struct {
	Target int
}

func NewSumTarget(target int) *SumTarget {
	return &SumTarget{Target: target}
}

func (p *SumTarget) Name() string { return SumTargetName }

func (p *SumTarget) Description() string {
	return fmt.Sprintf("four integers in 0-30, 0-20, 0-10, 0-40 summing to %d", p.Target)
}

func (p *SumTarget) Sample() (*genotype.Chromosome, error) {
	return genotype.NewChromosome(
		genotype.MustIntegerGene(0, 30),
		genotype.MustIntegerGene(0, 20),
		genotype.MustIntegerGene(0, 10),
		genotype.MustIntegerGene(0, 40),
	)
}

func (p *SumTarget) Fitness() evo.FitnessFunction {
	return evo.FitnessFunc(func(c *genotype.Chromosome) float64 {
		return 0 - math.Abs(float64(p.sum(c) - p.Target))
	})
}

func (p *SumTarget) Evaluator() genotype.FitnessEvaluator { return genotype.MaximizingEvaluator{} }

func (p *SumTarget) Goal() (float64, bool) { return 0, true }

func (p *SumTarget) Decode(c *genotype.Chromosome) string {
	return fmt.Sprintf("%v = %d", integerAlleles(c), p.sum(c))
}

func (p *SumTarget) sum(c *genotype.Chromosome) int {
	total := 0
	for _, v := range integerAlleles(c) {
		total += v
	}
	return total
}
