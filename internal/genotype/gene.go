package genotype

import (
	"golang.org/x/exp/constraints"

	"genomix/internal/rng"
)

// Kind names a gene domain.
type Kind string

const (
	KindBoolean   Kind = "boolean"
	KindInteger   Kind = "integer"
	KindDouble    Kind = "double"
	KindComposite Kind = "composite"
)

// nullAllele is the persistent form of an unset allele.
const nullAllele = "null"

// GeneView is the read-only face of a gene. Chromosome hands out views so
// that every allele change goes through the chromosome and invalidates its
// cached fitness.
type GeneView interface {
	Kind() Kind
	// Allele returns the current value, or nil when unset.
	Allele() any
	IsSet() bool
	// Signature describes the domain, e.g. "integer[0,30]". Two genes with
	// equal signatures can exchange alleles.
	Signature() string
	PersistentString() string
}

// Gene is an atomic bounded value slot.
type Gene interface {
	GeneView
	// SetAllele assigns v or fails with ErrInvalidAllele. A nil v unsets.
	SetAllele(v any) error
	Randomize(src rng.Source)
	// Mutate perturbs the allele by percentage of the domain width,
	// percentage in [-1, 1]. Bounded numeric genes clamp at their bounds.
	Mutate(src rng.Source, percentage float64)
	// NewGene returns a structurally identical gene with an unset allele.
	NewGene() Gene
	Clone() Gene
	Equal(other GeneView) bool
	ParsePersistentString(s string) error
}

// readOnlyGene hides the mutating methods of the wrapped gene, so a view
// cannot be asserted back to a Gene.
type readOnlyGene struct {
	g Gene
}

func viewOf(g Gene) GeneView { return readOnlyGene{g: g} }

// unwrap returns the gene behind a view for comparisons.
func unwrap(v GeneView) GeneView {
	if ro, ok := v.(readOnlyGene); ok {
		return ro.g
	}
	return v
}

func (v readOnlyGene) Kind() Kind               { return v.g.Kind() }
func (v readOnlyGene) Allele() any              { return v.g.Allele() }
func (v readOnlyGene) IsSet() bool              { return v.g.IsSet() }
func (v readOnlyGene) Signature() string        { return v.g.Signature() }
func (v readOnlyGene) PersistentString() string { return v.g.PersistentString() }

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func within[T constraints.Integer | constraints.Float](v, lo, hi T) bool {
	return v >= lo && v <= hi
}
