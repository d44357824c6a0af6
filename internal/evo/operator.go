package evo

import (
	"fmt"
	"math"
	"sort"

	"genomix/internal/genotype"
	"genomix/internal/rng"
)

const (
	DefaultCrossoverRate           = 0.35
	DefaultMutationRateDenominator = 12
)

// GeneticOperator appends new chromosomes to the working population. It
// never removes or alters the members it was given.
type GeneticOperator interface {
	Name() string
	Operate(cfg *Configuration, pop *genotype.Population) error
}

func shapeError(a, b *genotype.Chromosome) error {
	return fmt.Errorf("%w: %w: %q vs %q", ErrInvalidConfiguration, genotype.ErrShapeMismatch, a.Signature(), b.Signature())
}

// CrossoverOperator performs Rate*len(pop) crossovers, each producing two
// children by swapping alternating segments between CutPoints cut points.
type CrossoverOperator struct {
	// Rate is the number of crossovers as a fraction of the population.
	Rate float64
	// CutPoints defaults to 1.
	CutPoints int
	// Parents picks the two parents of each crossover. Nil picks uniformly.
	Parents NaturalSelector
}

func (*CrossoverOperator) Name() string { return "crossover" }

func (o *CrossoverOperator) Validate() error {
	if o.Rate < 0 || o.Rate > 1 {
		return fmt.Errorf("%w: crossover rate %v not in [0,1]", ErrInvalidConfiguration, o.Rate)
	}
	if o.CutPoints < 0 {
		return fmt.Errorf("%w: crossover cut points must be >= 0", ErrInvalidConfiguration)
	}
	return nil
}

func (o *CrossoverOperator) Operate(cfg *Configuration, pop *genotype.Population) error {
	if err := o.Validate(); err != nil {
		return err
	}
	n := pop.Size()
	if n == 0 {
		return nil
	}
	count := int(float64(n) * o.Rate)
	src := cfg.Random()
	parents := pop.ShallowCopy()
	for i := 0; i < count; i++ {
		a, b, err := o.pickParents(cfg, parents)
		if err != nil {
			return err
		}
		if !a.SameShape(b) {
			return shapeError(a, b)
		}
		childA := cfg.Pool().CloneOf(a)
		childB := cfg.Pool().CloneOf(b)
		childA.ResetFitness()
		childB.ResetFitness()
		if err := crossSegments(childA, childB, cutPoints(src, childA.Size(), o.CutPoints)); err != nil {
			return err
		}
		pop.Add(childA, childB)
	}
	return nil
}

func (o *CrossoverOperator) pickParents(cfg *Configuration, from *genotype.Population) (*genotype.Chromosome, *genotype.Chromosome, error) {
	if o.Parents == nil {
		src := cfg.Random()
		return from.At(src.IntN(from.Size())), from.At(src.IntN(from.Size())), nil
	}
	picked := genotype.NewPopulation(2)
	if err := o.Parents.Select(cfg, 2, from, picked); err != nil {
		return nil, nil, fmt.Errorf("parent selector %s: %w", o.Parents.Name(), err)
	}
	switch picked.Size() {
	case 0:
		return nil, nil, fmt.Errorf("%w: parent selector %s returned no parents", ErrInvalidConfiguration, o.Parents.Name())
	case 1:
		return picked.At(0), picked.At(0), nil
	default:
		return picked.At(0), picked.At(1), nil
	}
}

// cutPoints draws k distinct sorted loci in [0, size).
func cutPoints(src rng.Source, size, k int) []int {
	if k <= 0 {
		k = 1
	}
	if k > size {
		k = size
	}
	points := rng.Perm(src, size)[:k]
	sort.Ints(points)
	return points
}

// crossSegments swaps [p0,p1), [p2,p3), ... with the last segment running to
// the end of the genome.
func crossSegments(a, b *genotype.Chromosome, points []int) error {
	for j := 0; j < len(points); j += 2 {
		from, to := points[j], a.Size()
		if j+1 < len(points) {
			to = points[j+1]
		}
		if err := a.SwapGenes(b, from, to); err != nil {
			return err
		}
	}
	return nil
}

// MutationRateCalculator supplies the mutation rate denominator for a
// generation. A gene mutates with probability 1/denominator; 0 disables it.
type MutationRateCalculator interface {
	Denominator(cfg *Configuration, generation int) int
}

// DefaultMutationRate uses the genome length as denominator, so on average
// one gene per chromosome mutates.
type DefaultMutationRate struct{}

func (DefaultMutationRate) Denominator(cfg *Configuration, _ int) int {
	return cfg.Sample().Size()
}

// LinearMutationRate moves the denominator from From to To over Generations
// generations and holds To afterwards.
type LinearMutationRate struct {
	From, To    int
	Generations int
}

func (r LinearMutationRate) Denominator(_ *Configuration, generation int) int {
	if r.Generations <= 0 || generation >= r.Generations {
		return r.To
	}
	if generation < 0 {
		generation = 0
	}
	t := float64(generation) / float64(r.Generations)
	return int(math.Round(float64(r.From) + t*float64(r.To-r.From)))
}

// MutationOperator visits every gene of every member and mutates it with
// probability 1/denominator. The first mutation of a member clones it; the
// clone collects all of that member's mutations and is appended.
type MutationOperator struct {
	RateDenominator int
	// RateCalculator overrides RateDenominator when set.
	RateCalculator MutationRateCalculator
	// Sigma, when > 0, draws the perturbation percentage from a normal
	// distribution with this standard deviation instead of uniformly.
	Sigma float64
}

func (*MutationOperator) Name() string { return "mutation" }

func (o *MutationOperator) Validate() error {
	if o.RateCalculator == nil && o.RateDenominator < 0 {
		return fmt.Errorf("%w: mutation rate denominator must be >= 0", ErrInvalidConfiguration)
	}
	if o.Sigma < 0 {
		return fmt.Errorf("%w: mutation sigma must be >= 0", ErrInvalidConfiguration)
	}
	return nil
}

func (o *MutationOperator) denominator(cfg *Configuration, generation int) int {
	if o.RateCalculator != nil {
		return o.RateCalculator.Denominator(cfg, generation)
	}
	return o.RateDenominator
}

func (o *MutationOperator) Operate(cfg *Configuration, pop *genotype.Population) error {
	d := o.denominator(cfg, pop.Generation())
	if d <= 0 {
		return nil
	}
	src := cfg.Random()
	n := pop.Size()
	for i := 0; i < n; i++ {
		parent := pop.At(i)
		var mutant *genotype.Chromosome
		for g := 0; g < parent.Size(); g++ {
			if src.IntN(d) != 0 {
				continue
			}
			if mutant == nil {
				mutant = cfg.Pool().CloneOf(parent)
			}
			if err := mutant.MutateGene(g, src, o.percentage(src)); err != nil {
				return err
			}
		}
		if mutant != nil {
			pop.Add(mutant)
		}
	}
	return nil
}

// percentage returns a perturbation in [-1, 1].
func (o *MutationOperator) percentage(src rng.Source) float64 {
	if o.Sigma > 0 {
		return math.Max(-1, math.Min(1, src.NormFloat64()*o.Sigma))
	}
	pct := src.Float64()
	if src.Bool() {
		pct = -pct
	}
	return pct
}

// ReproductionOperator appends unchanged copies of Rate*len(pop) randomly
// chosen members.
type ReproductionOperator struct {
	Rate float64
	// KeepFitness carries the parent's cached fitness over to the copy.
	KeepFitness bool
}

func (*ReproductionOperator) Name() string { return "reproduction" }

func (o *ReproductionOperator) Validate() error {
	if o.Rate < 0 || o.Rate > 1 {
		return fmt.Errorf("%w: reproduction rate %v not in [0,1]", ErrInvalidConfiguration, o.Rate)
	}
	return nil
}

func (o *ReproductionOperator) Operate(cfg *Configuration, pop *genotype.Population) error {
	if err := o.Validate(); err != nil {
		return err
	}
	n := pop.Size()
	count := int(math.Round(float64(n) * o.Rate))
	if count == 0 {
		return nil
	}
	order := rng.Perm(cfg.Random(), n)
	copies := make([]*genotype.Chromosome, 0, count)
	for _, idx := range order[:count] {
		c := cfg.Pool().CloneOf(pop.At(idx))
		if !o.KeepFitness {
			c.ResetFitness()
		}
		copies = append(copies, c)
	}
	pop.Add(copies...)
	return nil
}
