package evo

import (
	"fmt"
	"math"

	"genomix/internal/genotype"
)

// FitnessFunction scores one chromosome. Implementations used with
// ParallelBulkFitness or island runs must be safe for concurrent use.
type FitnessFunction interface {
	Evaluate(c *genotype.Chromosome) float64
}

// FitnessFunc adapts a plain function to FitnessFunction.
type FitnessFunc func(c *genotype.Chromosome) float64

func (f FitnessFunc) Evaluate(c *genotype.Chromosome) float64 { return f(c) }

// BulkFitnessFunction scores a whole population at once and must leave every
// member evaluated.
type BulkFitnessFunction interface {
	EvaluatePopulation(pop *genotype.Population) error
}

// evaluatePopulation scores every unevaluated member and returns how many
// fitness computations it triggered.
func evaluatePopulation(cfg *Configuration, pop *genotype.Population) (int, error) {
	pending := pop.Unevaluated()
	if len(pending) == 0 {
		return 0, nil
	}
	defer pop.Invalidate()

	if bulk := cfg.BulkFitnessFunction(); bulk != nil {
		if err := bulk.EvaluatePopulation(pop); err != nil {
			return 0, err
		}
		for i := 0; i < pop.Size(); i++ {
			v, ok := pop.At(i).Fitness()
			if !ok {
				return 0, fmt.Errorf("%w: bulk fitness left member %d unevaluated", ErrInvalidFitness, i)
			}
			if err := checkFitness(v); err != nil {
				return 0, err
			}
		}
		return len(pending), nil
	}

	fn := cfg.FitnessFunction()
	for _, c := range pending {
		if c.IsEvaluated() {
			continue
		}
		v := fn.Evaluate(c)
		if err := checkFitness(v); err != nil {
			return 0, err
		}
		c.SetFitness(v)
	}
	return len(pending), nil
}

func checkFitness(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidFitness, v)
	}
	return nil
}
