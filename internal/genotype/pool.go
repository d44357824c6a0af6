package genotype

// ChromosomePool is a free-list of discarded chromosomes keyed by shape
// signature. It is not safe for concurrent use; it belongs to exactly one
// Configuration.
type ChromosomePool struct {
	limit int
	free  map[string][]*Chromosome
}

// NewChromosomePool keeps at most limit chromosomes per shape; limit <= 0
// means unbounded.
func NewChromosomePool(limit int) *ChromosomePool {
	return &ChromosomePool{limit: limit, free: make(map[string][]*Chromosome)}
}

// Acquire pops a pooled chromosome of the given shape.
func (p *ChromosomePool) Acquire(shape string) (*Chromosome, bool) {
	list := p.free[shape]
	if len(list) == 0 {
		return nil, false
	}
	c := list[len(list)-1]
	list[len(list)-1] = nil
	p.free[shape] = list[:len(list)-1]
	return c, true
}

// Release returns c to the pool. The caller must drop every other reference.
func (p *ChromosomePool) Release(c *Chromosome) {
	if c == nil {
		return
	}
	shape := c.Signature()
	if p.limit > 0 && len(p.free[shape]) >= p.limit {
		return
	}
	c.ResetFitness()
	p.free[shape] = append(p.free[shape], c)
}

func (p *ChromosomePool) Len() int {
	n := 0
	for _, list := range p.free {
		n += len(list)
	}
	return n
}

// CloneOf returns a deep copy of src, reusing a pooled chromosome when one
// of the same shape is available.
func (p *ChromosomePool) CloneOf(src *Chromosome) *Chromosome {
	if p != nil {
		if c, ok := p.Acquire(src.Signature()); ok {
			if err := c.CopyFrom(src); err == nil {
				return c
			}
		}
	}
	return src.Clone()
}
