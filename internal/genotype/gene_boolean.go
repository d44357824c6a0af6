package genotype

import (
	"fmt"
	"strconv"

	"genomix/internal/rng"
)

// BooleanGene holds true/false. Mutation flips it.
type BooleanGene struct {
	value bool
	set   bool
}

func NewBooleanGene() *BooleanGene {
	return &BooleanGene{}
}

func (g *BooleanGene) Kind() Kind { return KindBoolean }

func (g *BooleanGene) Allele() any {
	if !g.set {
		return nil
	}
	return g.value
}

func (g *BooleanGene) Value() bool { return g.value }

func (g *BooleanGene) IsSet() bool { return g.set }

func (g *BooleanGene) Signature() string { return string(KindBoolean) }

func (g *BooleanGene) SetAllele(v any) error {
	switch val := v.(type) {
	case nil:
		g.value, g.set = false, false
	case bool:
		g.value, g.set = val, true
	default:
		return fmt.Errorf("%w: boolean gene cannot hold %T", ErrInvalidAllele, v)
	}
	return nil
}

func (g *BooleanGene) Randomize(src rng.Source) {
	g.value, g.set = src.Bool(), true
}

func (g *BooleanGene) Mutate(src rng.Source, _ float64) {
	if !g.set {
		g.Randomize(src)
		return
	}
	g.value = !g.value
}

func (g *BooleanGene) NewGene() Gene { return NewBooleanGene() }

func (g *BooleanGene) Clone() Gene {
	c := *g
	return &c
}

func (g *BooleanGene) Equal(other GeneView) bool {
	o, ok := unwrap(other).(*BooleanGene)
	return ok && o.set == g.set && o.value == g.value
}

func (g *BooleanGene) PersistentString() string {
	if !g.set {
		return nullAllele
	}
	return strconv.FormatBool(g.value)
}

func (g *BooleanGene) ParsePersistentString(s string) error {
	if s == nullAllele {
		return g.SetAllele(nil)
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("%w: boolean %q", ErrMalformedPersistent, s)
	}
	return g.SetAllele(v)
}
