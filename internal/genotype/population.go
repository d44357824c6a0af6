package genotype

import (
	"sort"

	"genomix/internal/rng"
)

// Population is an unordered multiset of chromosomes. The fittest lookup is
// cached until membership changes or Invalidate is called.
type Population struct {
	members    []*Chromosome
	generation int

	fittest      *Chromosome
	fittestValid bool
}

func NewPopulation(capacity int, members ...*Chromosome) *Population {
	if capacity < len(members) {
		capacity = len(members)
	}
	p := &Population{members: make([]*Chromosome, 0, capacity)}
	p.members = append(p.members, members...)
	return p
}

// RandomPopulation builds size chromosomes shaped like sample.
func RandomPopulation(sample *Chromosome, size int, src rng.Source) *Population {
	p := NewPopulation(size)
	for i := 0; i < size; i++ {
		p.members = append(p.members, sample.CloneStructure(src))
	}
	return p
}

func (p *Population) Size() int { return len(p.members) }

func (p *Population) At(i int) *Chromosome { return p.members[i] }

// Members returns a copy of the member slice.
func (p *Population) Members() []*Chromosome {
	return append([]*Chromosome(nil), p.members...)
}

func (p *Population) Generation() int { return p.generation }

func (p *Population) SetGeneration(g int) { p.generation = g }

func (p *Population) Add(cs ...*Chromosome) {
	p.members = append(p.members, cs...)
	p.Invalidate()
}

func (p *Population) RemoveAt(i int) *Chromosome {
	c := p.members[i]
	p.members = append(p.members[:i], p.members[i+1:]...)
	p.Invalidate()
	return c
}

// Replace swaps the member at i for c.
func (p *Population) Replace(i int, c *Chromosome) {
	p.members[i] = c
	p.Invalidate()
}

// Retain keeps only the members for which keep returns true, preserving order.
func (p *Population) Retain(keep func(c *Chromosome) bool) {
	kept := p.members[:0]
	for _, c := range p.members {
		if keep(c) {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(p.members); i++ {
		p.members[i] = nil
	}
	p.members = kept
	p.Invalidate()
}

// Contains reports pointer membership.
func (p *Population) Contains(c *Chromosome) bool {
	for _, m := range p.members {
		if m == c {
			return true
		}
	}
	return false
}

// Invalidate drops the cached fittest member. Call it after fitness values
// change outside Add/Remove.
func (p *Population) Invalidate() {
	p.fittest, p.fittestValid = nil, false
}

// Fittest returns the best evaluated member under ev; ties keep the earliest
// member. ok is false when no member is evaluated.
func (p *Population) Fittest(ev FitnessEvaluator) (*Chromosome, bool) {
	if p.fittestValid && p.fittest != nil && p.fittest.IsEvaluated() {
		return p.fittest, true
	}
	var best *Chromosome
	for _, c := range p.members {
		if !c.IsEvaluated() {
			continue
		}
		if best == nil || IsChromosomeFitter(ev, c, best) {
			best = c
		}
	}
	p.fittest, p.fittestValid = best, best != nil
	return best, best != nil
}

// Ranked returns members ordered fittest first. The sort is stable, so equal
// fitness keeps insertion order; unevaluated members go last.
func (p *Population) Ranked(ev FitnessEvaluator) []*Chromosome {
	out := p.Members()
	sort.SliceStable(out, func(i, j int) bool {
		return IsChromosomeFitter(ev, out[i], out[j])
	})
	return out
}

// Unevaluated lists members without a cached fitness.
func (p *Population) Unevaluated() []*Chromosome {
	var out []*Chromosome
	for _, c := range p.members {
		if !c.IsEvaluated() {
			out = append(out, c)
		}
	}
	return out
}

// ShallowCopy shares members but not the member slice.
func (p *Population) ShallowCopy() *Population {
	out := NewPopulation(len(p.members), p.members...)
	out.generation = p.generation
	return out
}

// Clone deep-copies every member.
func (p *Population) Clone() *Population {
	out := NewPopulation(len(p.members))
	for _, c := range p.members {
		out.members = append(out.members, c.Clone())
	}
	out.generation = p.generation
	return out
}
