package problem

import (
	"fmt"
	"strings"

	"genomix/internal/evo"
	"genomix/internal/genotype"
)

const (
	KnapsackName            = "knapsack"
	DefaultKnapsackCapacity = 50
)

type Item struct {
	Name   string
	Weight int
	Value  int
}

func DefaultKnapsackItems() []Item {
	return []Item{
		{Name: "tent", Weight: 20, Value: 60},
		{Name: "stove", Weight: 8, Value: 25},
		{Name: "water", Weight: 10, Value: 50},
		{Name: "rope", Weight: 4, Value: 12},
		{Name: "lamp", Weight: 3, Value: 15},
		{Name: "radio", Weight: 6, Value: 14},
		{Name: "camera", Weight: 5, Value: 9},
		{Name: "book", Weight: 2, Value: 3},
		{Name: "food", Weight: 12, Value: 45},
		{Name: "kit", Weight: 4, Value: 20},
	}
}

// Knapsack picks items with one boolean gene each. Overweight selections are
// scored by how far they exceed the capacity, always below any feasible one.
type Knapsack struct {
	Capacity int
	Items    []Item
}

func NewKnapsack(capacity int, items []Item) *Knapsack {
	return &Knapsack{Capacity: capacity, Items: append([]Item(nil), items...)}
}

func (p *Knapsack) Name() string { return KnapsackName }

func (p *Knapsack) Description() string {
	return fmt.Sprintf("0/1 knapsack over %d items with capacity %d", len(p.Items), p.Capacity)
}

func (p *Knapsack) Sample() (*genotype.Chromosome, error) {
	if len(p.Items) == 0 {
		return nil, fmt.Errorf("%w: knapsack needs at least one item", genotype.ErrInvalidGene)
	}
	genes := make([]genotype.Gene, len(p.Items))
	for i := range p.Items {
		genes[i] = genotype.NewBooleanGene()
	}
	return genotype.NewChromosome(genes...)
}

func (p *Knapsack) Fitness() evo.FitnessFunction {
	return evo.FitnessFunc(func(c *genotype.Chromosome) float64 {
		weight, value := p.load(c)
		if weight > p.Capacity {
			return float64(p.Capacity - weight)
		}
		return float64(value)
	})
}

func (p *Knapsack) Evaluator() genotype.FitnessEvaluator { return genotype.MaximizingEvaluator{} }

func (p *Knapsack) Goal() (float64, bool) { return 0, false }

func (p *Knapsack) Decode(c *genotype.Chromosome) string {
	var names []string
	for i, a := range c.Alleles() {
		if picked, _ := a.(bool); picked && i < len(p.Items) {
			names = append(names, p.Items[i].Name)
		}
	}
	weight, value := p.load(c)
	return fmt.Sprintf("[%s] weight=%d value=%d", strings.Join(names, " "), weight, value)
}

func (p *Knapsack) load(c *genotype.Chromosome) (weight, value int) {
	for i, a := range c.Alleles() {
		if picked, _ := a.(bool); picked && i < len(p.Items) {
			weight += p.Items[i].Weight
			value += p.Items[i].Value
		}
	}
	return weight, value
}
