package genotype

import (
	"fmt"
	"strings"

	"genomix/internal/rng"
)

// CompositeGene groups a fixed list of sub-genes that travel together
// through crossover.
type CompositeGene struct {
	genes []Gene
}

func NewCompositeGene(genes ...Gene) (*CompositeGene, error) {
	if len(genes) == 0 {
		return nil, fmt.Errorf("%w: composite gene needs at least one sub-gene", ErrInvalidGene)
	}
	for i, g := range genes {
		if g == nil {
			return nil, fmt.Errorf("%w: nil sub-gene at index %d", ErrInvalidGene, i)
		}
	}
	return &CompositeGene{genes: append([]Gene(nil), genes...)}, nil
}

func (g *CompositeGene) Kind() Kind { return KindComposite }

func (g *CompositeGene) Len() int { return len(g.genes) }

// GeneAt exposes a sub-gene read-only.
func (g *CompositeGene) GeneAt(i int) GeneView { return viewOf(g.genes[i]) }

// Allele returns a []any with one entry per sub-gene, or nil when no
// sub-gene is set.
func (g *CompositeGene) Allele() any {
	if !g.IsSet() {
		return nil
	}
	out := make([]any, len(g.genes))
	for i, sub := range g.genes {
		out[i] = sub.Allele()
	}
	return out
}

// IsSet reports whether every sub-gene holds a value.
func (g *CompositeGene) IsSet() bool {
	for _, sub := range g.genes {
		if !sub.IsSet() {
			return false
		}
	}
	return true
}

func (g *CompositeGene) Signature() string {
	parts := make([]string, len(g.genes))
	for i, sub := range g.genes {
		parts[i] = sub.Signature()
	}
	return string(KindComposite) + "{" + strings.Join(parts, ";") + "}"
}

func (g *CompositeGene) SetAllele(v any) error {
	if v == nil {
		for _, sub := range g.genes {
			_ = sub.SetAllele(nil)
		}
		return nil
	}
	values, ok := v.([]any)
	if !ok {
		return fmt.Errorf("%w: composite gene cannot hold %T", ErrInvalidAllele, v)
	}
	if len(values) != len(g.genes) {
		return fmt.Errorf("%w: composite expects %d values, got %d", ErrInvalidAllele, len(g.genes), len(values))
	}
	staged := make([]Gene, len(g.genes))
	for i, sub := range g.genes {
		staged[i] = sub.Clone()
		if err := staged[i].SetAllele(values[i]); err != nil {
			return fmt.Errorf("composite index %d: %w", i, err)
		}
	}
	g.genes = staged
	return nil
}

func (g *CompositeGene) Randomize(src rng.Source) {
	for _, sub := range g.genes {
		sub.Randomize(src)
	}
}

// Mutate perturbs one randomly chosen sub-gene.
func (g *CompositeGene) Mutate(src rng.Source, percentage float64) {
	g.genes[src.IntN(len(g.genes))].Mutate(src, percentage)
}

func (g *CompositeGene) NewGene() Gene {
	out := &CompositeGene{genes: make([]Gene, len(g.genes))}
	for i, sub := range g.genes {
		out.genes[i] = sub.NewGene()
	}
	return out
}

func (g *CompositeGene) Clone() Gene {
	out := &CompositeGene{genes: make([]Gene, len(g.genes))}
	for i, sub := range g.genes {
		out.genes[i] = sub.Clone()
	}
	return out
}

func (g *CompositeGene) Equal(other GeneView) bool {
	o, ok := unwrap(other).(*CompositeGene)
	if !ok || len(o.genes) != len(g.genes) {
		return false
	}
	for i := range g.genes {
		if !g.genes[i].Equal(o.genes[i]) {
			return false
		}
	}
	return true
}

// PersistentString renders "[sub1|sub2|...]"; nested composites keep their
// own brackets so splitting happens at depth zero only.
func (g *CompositeGene) PersistentString() string {
	parts := make([]string, len(g.genes))
	for i, sub := range g.genes {
		parts[i] = sub.PersistentString()
	}
	return "[" + strings.Join(parts, "|") + "]"
}

func (g *CompositeGene) ParsePersistentString(s string) error {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return fmt.Errorf("%w: composite %q", ErrMalformedPersistent, s)
	}
	parts, err := splitTopLevel(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	if len(parts) != len(g.genes) {
		return fmt.Errorf("%w: composite expects %d parts, got %d", ErrMalformedPersistent, len(g.genes), len(parts))
	}
	staged := make([]Gene, len(g.genes))
	for i, sub := range g.genes {
		staged[i] = sub.NewGene()
		if err := staged[i].ParsePersistentString(parts[i]); err != nil {
			return fmt.Errorf("composite index %d: %w", i, err)
		}
	}
	g.genes = staged
	return nil
}

func splitTopLevel(s string) ([]string, error) {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced composite %q", ErrMalformedPersistent, s)
			}
		case '|':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced composite %q", ErrMalformedPersistent, s)
	}
	return append(parts, s[start:]), nil
}
