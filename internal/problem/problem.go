package problem

import (
	"genomix/internal/evo"
	"genomix/internal/genotype"
)

// Problem bundles what a client needs to hand to the engine: a sample
// chromosome describing the genome, a fitness function and the evaluator
// that gives fitness values their polarity.
type Problem interface {
	Name() string
	Description() string
	Sample() (*genotype.Chromosome, error)
	Fitness() evo.FitnessFunction
	Evaluator() genotype.FitnessEvaluator
	// Goal reports a fitness at which a run may stop early.
	Goal() (float64, bool)
}

// Decoder is implemented by problems that can render a chromosome in domain
// terms, such as a coin breakdown or a chosen item list.
type Decoder interface {
	Decode(c *genotype.Chromosome) string
}

// Describe renders c with the problem's Decoder, falling back to the
// chromosome's own formatting.
func Describe(p Problem, c *genotype.Chromosome) string {
	if d, ok := p.(Decoder); ok {
		return d.Decode(c)
	}
	return c.String()
}

func integerAlleles(c *genotype.Chromosome) []int {
	out := make([]int, c.Size())
	for i, a := range c.Alleles() {
		if v, ok := a.(int); ok {
			out[i] = v
		}
	}
	return out
}
