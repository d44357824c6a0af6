package genotype

import (
	"fmt"
	"strings"

	"genomix/internal/rng"
)

// Chromosome is a fixed-length gene sequence with a cached fitness value.
// All allele changes go through Chromosome methods, which reset the cache.
type Chromosome struct {
	genes     []Gene
	fitness   float64
	evaluated bool
}

// NewChromosome copies the given genes; later changes to them do not reach
// the chromosome.
func NewChromosome(genes ...Gene) (*Chromosome, error) {
	if len(genes) == 0 {
		return nil, fmt.Errorf("%w: chromosome needs at least one gene", ErrInvalidGene)
	}
	for i, g := range genes {
		if g == nil {
			return nil, fmt.Errorf("%w: nil gene at index %d", ErrInvalidGene, i)
		}
	}
	return &Chromosome{genes: cloneGenes(genes)}, nil
}

func cloneGenes(genes []Gene) []Gene {
	out := make([]Gene, len(genes))
	for i, g := range genes {
		out[i] = g.Clone()
	}
	return out
}

func (c *Chromosome) Size() int { return len(c.genes) }

func (c *Chromosome) GeneAt(i int) GeneView { return viewOf(c.genes[i]) }

// Alleles returns the allele of every gene in order.
func (c *Chromosome) Alleles() []any {
	out := make([]any, len(c.genes))
	for i, g := range c.genes {
		out[i] = g.Allele()
	}
	return out
}

// Fitness returns the cached value; ok is false while unevaluated.
func (c *Chromosome) Fitness() (value float64, ok bool) {
	return c.fitness, c.evaluated
}

func (c *Chromosome) IsEvaluated() bool { return c.evaluated }

func (c *Chromosome) SetFitness(v float64) {
	c.fitness, c.evaluated = v, true
}

func (c *Chromosome) ResetFitness() {
	c.fitness, c.evaluated = 0, false
}

// Signature identifies the genome shape: gene count plus gene domains.
func (c *Chromosome) Signature() string {
	parts := make([]string, len(c.genes))
	for i, g := range c.genes {
		parts[i] = g.Signature()
	}
	return strings.Join(parts, ",")
}

func (c *Chromosome) SameShape(other *Chromosome) bool {
	if len(c.genes) != len(other.genes) {
		return false
	}
	for i := range c.genes {
		if c.genes[i].Signature() != other.genes[i].Signature() {
			return false
		}
	}
	return true
}

func (c *Chromosome) SetAllele(i int, v any) error {
	if err := c.checkIndex(i); err != nil {
		return err
	}
	if err := c.genes[i].SetAllele(v); err != nil {
		return err
	}
	c.ResetFitness()
	return nil
}

func (c *Chromosome) MutateGene(i int, src rng.Source, percentage float64) error {
	if err := c.checkIndex(i); err != nil {
		return err
	}
	c.genes[i].Mutate(src, percentage)
	c.ResetFitness()
	return nil
}

func (c *Chromosome) RandomizeGene(i int, src rng.Source) error {
	if err := c.checkIndex(i); err != nil {
		return err
	}
	c.genes[i].Randomize(src)
	c.ResetFitness()
	return nil
}

// Randomize assigns a fresh random allele to every gene.
func (c *Chromosome) Randomize(src rng.Source) {
	for _, g := range c.genes {
		g.Randomize(src)
	}
	c.ResetFitness()
}

// SetGenes replaces all genes with copies of the given ones. The replacement
// must match the current shape.
func (c *Chromosome) SetGenes(genes []Gene) error {
	if len(genes) != len(c.genes) {
		return fmt.Errorf("%w: want %d genes, got %d", ErrShapeMismatch, len(c.genes), len(genes))
	}
	for i, g := range genes {
		if g == nil || g.Signature() != c.genes[i].Signature() {
			return fmt.Errorf("%w: gene %d does not match %s", ErrShapeMismatch, i, c.genes[i].Signature())
		}
	}
	copy(c.genes, cloneGenes(genes))
	c.ResetFitness()
	return nil
}

// SwapGenes exchanges the genes in [from, to) with other.
func (c *Chromosome) SwapGenes(other *Chromosome, from, to int) error {
	if !c.SameShape(other) {
		return fmt.Errorf("%w: %q vs %q", ErrShapeMismatch, c.Signature(), other.Signature())
	}
	if from < 0 || to > len(c.genes) || from > to {
		return fmt.Errorf("%w: range [%d,%d) of %d", ErrIndexOutOfRange, from, to, len(c.genes))
	}
	if from == to {
		return nil
	}
	for i := from; i < to; i++ {
		c.genes[i], other.genes[i] = other.genes[i], c.genes[i]
	}
	c.ResetFitness()
	other.ResetFitness()
	return nil
}

// CopyFrom overwrites the receiver's alleles and fitness with src's.
func (c *Chromosome) CopyFrom(src *Chromosome) error {
	if !c.SameShape(src) {
		return fmt.Errorf("%w: %q vs %q", ErrShapeMismatch, c.Signature(), src.Signature())
	}
	for i, g := range src.genes {
		c.genes[i] = g.Clone()
	}
	c.fitness, c.evaluated = src.fitness, src.evaluated
	return nil
}

// Clone is a deep copy that keeps the cached fitness.
func (c *Chromosome) Clone() *Chromosome {
	out := &Chromosome{
		genes:     make([]Gene, len(c.genes)),
		fitness:   c.fitness,
		evaluated: c.evaluated,
	}
	for i, g := range c.genes {
		out.genes[i] = g.Clone()
	}
	return out
}

// CloneStructure returns a same-shape chromosome with freshly randomized genes.
func (c *Chromosome) CloneStructure(src rng.Source) *Chromosome {
	out := &Chromosome{genes: make([]Gene, len(c.genes))}
	for i, g := range c.genes {
		out.genes[i] = g.NewGene()
		out.genes[i].Randomize(src)
	}
	return out
}

// Equal compares allele sequences only; the fitness cache is ignored.
func (c *Chromosome) Equal(other *Chromosome) bool {
	if other == nil || len(c.genes) != len(other.genes) {
		return false
	}
	for i := range c.genes {
		if !c.genes[i].Equal(other.genes[i]) {
			return false
		}
	}
	return true
}

// PersistentStrings renders every gene.
func (c *Chromosome) PersistentStrings() []string {
	out := make([]string, len(c.genes))
	for i, g := range c.genes {
		out[i] = g.PersistentString()
	}
	return out
}

// ParsePersistentStrings restores alleles in place from PersistentStrings
// output of a same-shape chromosome.
func (c *Chromosome) ParsePersistentStrings(values []string) error {
	if len(values) != len(c.genes) {
		return fmt.Errorf("%w: want %d genes, got %d", ErrShapeMismatch, len(c.genes), len(values))
	}
	staged := make([]Gene, len(c.genes))
	for i, g := range c.genes {
		staged[i] = g.NewGene()
		if err := staged[i].ParsePersistentString(values[i]); err != nil {
			return fmt.Errorf("gene %d: %w", i, err)
		}
		if staged[i].Signature() != g.Signature() {
			return fmt.Errorf("%w: gene %d is %s, want %s", ErrShapeMismatch, i, staged[i].Signature(), g.Signature())
		}
	}
	c.genes = staged
	c.ResetFitness()
	return nil
}

func (c *Chromosome) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, g := range c.genes {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%v", g.Allele())
	}
	b.WriteString("]")
	if c.evaluated {
		fmt.Fprintf(&b, " fitness=%g", c.fitness)
	}
	return b.String()
}

func (c *Chromosome) checkIndex(i int) error {
	if i < 0 || i >= len(c.genes) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.genes))
	}
	return nil
}
