package problem

import (
	"fmt"

	"genomix/internal/evo"
	"genomix/internal/genotype"
)

const (
	SphereName              = "sphere"
	DefaultSphereDimensions = 5
	SphereBound             = 5.12
	SphereGoal              = 1e-2
)

// Sphere minimizes the sum of squares over real genes in [-5.12, 5.12].
type Sphere struct {
	Dimensions int
}

func NewSphere(dimensions int) *Sphere {
	return &Sphere{Dimensions: dimensions}
}

func (p *Sphere) Name() string { return SphereName }

func (p *Sphere) Description() string {
	return fmt.Sprintf("sphere function in %d dimensions (minimizing)", p.Dimensions)
}

func (p *Sphere) Sample() (*genotype.Chromosome, error) {
	if p.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: sphere dimensions must be positive", genotype.ErrInvalidGene)
	}
	genes := make([]genotype.Gene, p.Dimensions)
	for i := range genes {
		gene, err := genotype.NewDoubleGene(-SphereBound, SphereBound)
		if err != nil {
			return nil, err
		}
		genes[i] = gene
	}
	return genotype.NewChromosome(genes...)
}

func (p *Sphere) Fitness() evo.FitnessFunction {
	return evo.FitnessFunc(func(c *genotype.Chromosome) float64 {
		total := 0.0
		for _, a := range c.Alleles() {
			if x, ok := a.(float64); ok {
				total += x * x
			}
		}
		return total
	})
}

func (p *Sphere) Evaluator() genotype.FitnessEvaluator { return genotype.MinimizingEvaluator{} }

func (p *Sphere) Goal() (float64, bool) { return SphereGoal, true }
