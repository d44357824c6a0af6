package genotype

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"genomix/internal/rng"
)

// DoubleGene holds a float64 in the closed range [lower, upper].
type DoubleGene struct {
	lower, upper float64
	value        float64
	set          bool
}

func NewDoubleGene(lower, upper float64) (*DoubleGene, error) {
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) || lower > upper {
		return nil, fmt.Errorf("%w: double bounds [%v,%v]", ErrInvalidGene, lower, upper)
	}
	return &DoubleGene{lower: lower, upper: upper}, nil
}

func MustDoubleGene(lower, upper float64) *DoubleGene {
	g, err := NewDoubleGene(lower, upper)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *DoubleGene) Kind() Kind { return KindDouble }

func (g *DoubleGene) Bounds() (float64, float64) { return g.lower, g.upper }

func (g *DoubleGene) Allele() any {
	if !g.set {
		return nil
	}
	return g.value
}

func (g *DoubleGene) Value() float64 { return g.value }

func (g *DoubleGene) IsSet() bool { return g.set }

func (g *DoubleGene) Signature() string {
	return fmt.Sprintf("%s[%s,%s]", KindDouble, formatFloat(g.lower), formatFloat(g.upper))
}

func (g *DoubleGene) SetAllele(v any) error {
	var f float64
	switch val := v.(type) {
	case nil:
		g.value, g.set = 0, false
		return nil
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	default:
		return fmt.Errorf("%w: double gene cannot hold %T", ErrInvalidAllele, v)
	}
	if math.IsNaN(f) || !within(f, g.lower, g.upper) {
		return fmt.Errorf("%w: %v not in [%v,%v]", ErrInvalidAllele, f, g.lower, g.upper)
	}
	g.value, g.set = f, true
	return nil
}

func (g *DoubleGene) Randomize(src rng.Source) {
	g.value = g.lower + src.Float64()*(g.upper-g.lower)
	g.set = true
}

func (g *DoubleGene) Mutate(src rng.Source, percentage float64) {
	if !g.set {
		g.Randomize(src)
		return
	}
	g.value = clamp(g.value+percentage*(g.upper-g.lower), g.lower, g.upper)
}

func (g *DoubleGene) NewGene() Gene {
	return &DoubleGene{lower: g.lower, upper: g.upper}
}

func (g *DoubleGene) Clone() Gene {
	c := *g
	return &c
}

func (g *DoubleGene) Equal(other GeneView) bool {
	o, ok := unwrap(other).(*DoubleGene)
	return ok && o.lower == g.lower && o.upper == g.upper && o.set == g.set && o.value == g.value
}

// PersistentString renders "value:lower:upper" with shortest exact floats.
func (g *DoubleGene) PersistentString() string {
	value := nullAllele
	if g.set {
		value = formatFloat(g.value)
	}
	return value + ":" + formatFloat(g.lower) + ":" + formatFloat(g.upper)
}

func (g *DoubleGene) ParsePersistentString(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return fmt.Errorf("%w: double %q", ErrMalformedPersistent, s)
	}
	lower, errLo := strconv.ParseFloat(parts[1], 64)
	upper, errHi := strconv.ParseFloat(parts[2], 64)
	if errLo != nil || errHi != nil {
		return fmt.Errorf("%w: double bounds %q", ErrMalformedPersistent, s)
	}
	fresh, err := NewDoubleGene(lower, upper)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPersistent, err)
	}
	if parts[0] != nullAllele {
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return fmt.Errorf("%w: double value %q", ErrMalformedPersistent, s)
		}
		if err := fresh.SetAllele(v); err != nil {
			return err
		}
	}
	*g = *fresh
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
