package evo

import (
	"fmt"
	"sort"

	"genomix/internal/genotype"
)

// NaturalSelector chooses chromosomes from one population to carry into
// another.
type NaturalSelector interface {
	Name() string
	// Select adds up to howMany members of from to to. An empty source adds
	// nothing and is not an error.
	Select(cfg *Configuration, howMany int, from, to *genotype.Population) error
}

// applySelectors splits target between selectors. Each gets target/len
// slots; the last of several receives whatever target-len(to) remains, so
// reordering selectors can change the exact yield.
func applySelectors(cfg *Configuration, selectors []NaturalSelector, from *genotype.Population, target int) (*genotype.Population, error) {
	to := genotype.NewPopulation(target)
	to.SetGeneration(from.Generation())
	share := target / len(selectors)
	for i, s := range selectors {
		howMany := share
		if i == len(selectors)-1 && i > 0 {
			howMany = target - to.Size()
		}
		if howMany <= 0 {
			continue
		}
		if err := s.Select(cfg, howMany, from, to); err != nil {
			return nil, fmt.Errorf("selector %s: %w", s.Name(), err)
		}
	}
	return to, nil
}

// picker adds chosen members to a destination, cloning any chromosome that
// is already present so no pointer appears twice.
type picker struct {
	cfg    *Configuration
	to     *genotype.Population
	placed map[*genotype.Chromosome]struct{}
}

func newPicker(cfg *Configuration, to *genotype.Population) *picker {
	p := &picker{cfg: cfg, to: to, placed: make(map[*genotype.Chromosome]struct{}, to.Size())}
	for i := 0; i < to.Size(); i++ {
		p.placed[to.At(i)] = struct{}{}
	}
	return p
}

func (p *picker) add(c *genotype.Chromosome) {
	if _, dup := p.placed[c]; dup {
		c = p.cfg.Pool().CloneOf(c)
	}
	p.placed[c] = struct{}{}
	p.to.Add(c)
}

// BestChromosomesSelector takes the fittest members in rank order. Ties
// keep insertion order.
type BestChromosomesSelector struct {
	// OriginalRate is the share of howMany filled with distinct ranked
	// members when duplicates are allowed; the rest repeats the ranking
	// from the top. Zero means 1.
	OriginalRate float64
	// AllowDuplicates lets equal genomes be selected more than once.
	AllowDuplicates bool
}

func (*BestChromosomesSelector) Name() string { return "best" }

func (s *BestChromosomesSelector) Validate() error {
	if s.OriginalRate < 0 || s.OriginalRate > 1 {
		return fmt.Errorf("%w: original rate %v not in [0,1]", ErrInvalidConfiguration, s.OriginalRate)
	}
	return nil
}

func (s *BestChromosomesSelector) Select(cfg *Configuration, howMany int, from, to *genotype.Population) error {
	if from.Size() == 0 || howMany <= 0 {
		return nil
	}
	ranked := from.Ranked(cfg.Evaluator())
	pk := newPicker(cfg, to)

	if !s.AllowDuplicates {
		seen := make(map[string]struct{}, howMany)
		added := 0
		for _, c := range ranked {
			if added == howMany {
				break
			}
			fp := genotype.Fingerprint(c)
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			pk.add(c)
			added++
		}
		return nil
	}

	rate := s.OriginalRate
	if rate == 0 {
		rate = 1
	}
	originals := int(float64(howMany)*rate + 0.5)
	if originals > len(ranked) {
		originals = len(ranked)
	}
	if originals == 0 {
		originals = 1
	}
	for i := 0; i < originals; i++ {
		pk.add(ranked[i])
	}
	for i := originals; i < howMany; i++ {
		pk.add(ranked[(i-originals)%originals])
	}
	return nil
}

// WeightedRouletteSelector samples with probability proportional to fitness.
// Under a maximizing evaluator negative scores are shifted up by the
// minimum; under a minimizing one each weight is max-fitness. If every
// weight is zero it samples uniformly.
type WeightedRouletteSelector struct{}

func (*WeightedRouletteSelector) Name() string { return "roulette" }

func (*WeightedRouletteSelector) Select(cfg *Configuration, howMany int, from, to *genotype.Population) error {
	n := from.Size()
	if n == 0 || howMany <= 0 {
		return nil
	}
	weights := rouletteWeights(cfg.Evaluator(), from)
	cumulative := make([]float64, n)
	total := 0.0
	for i, w := range weights {
		total += w
		cumulative[i] = total
	}

	src := cfg.Random()
	pk := newPicker(cfg, to)
	for k := 0; k < howMany; k++ {
		if total <= 0 {
			pk.add(from.At(src.IntN(n)))
			continue
		}
		r := src.Float64() * total
		idx := sort.Search(n, func(i int) bool { return cumulative[i] > r })
		if idx == n {
			idx = n - 1
		}
		pk.add(from.At(idx))
	}
	return nil
}

func rouletteWeights(ev genotype.FitnessEvaluator, pop *genotype.Population) []float64 {
	n := pop.Size()
	weights := make([]float64, n)
	var lo, hi float64
	first := true
	for i := 0; i < n; i++ {
		v, ok := pop.At(i).Fitness()
		if !ok {
			continue
		}
		if first || v < lo {
			lo = v
		}
		if first || v > hi {
			hi = v
		}
		first = false
	}
	higherIsBetter := ev.IsFitter(1, 0)
	for i := 0; i < n; i++ {
		v, ok := pop.At(i).Fitness()
		if !ok {
			continue
		}
		switch {
		case !higherIsBetter:
			weights[i] = hi - v
		case lo < 0:
			weights[i] = v - lo
		default:
			weights[i] = v
		}
	}
	return weights
}

// TournamentSelector draws Size random members per pick and takes the best
// with probability Probability, else the second best with the same
// probability, and so on.
type TournamentSelector struct {
	Size        int
	Probability float64
}

func (*TournamentSelector) Name() string { return "tournament" }

func (s *TournamentSelector) Validate() error {
	if s.Size < 1 {
		return fmt.Errorf("%w: tournament size must be >= 1", ErrInvalidConfiguration)
	}
	if s.Probability <= 0 || s.Probability > 1 {
		return fmt.Errorf("%w: tournament probability %v not in (0,1]", ErrInvalidConfiguration, s.Probability)
	}
	return nil
}

func (s *TournamentSelector) Select(cfg *Configuration, howMany int, from, to *genotype.Population) error {
	if err := s.Validate(); err != nil {
		return err
	}
	n := from.Size()
	if n == 0 || howMany <= 0 {
		return nil
	}
	src := cfg.Random()
	ev := cfg.Evaluator()
	pk := newPicker(cfg, to)
	entrants := make([]*genotype.Chromosome, s.Size)
	for k := 0; k < howMany; k++ {
		for i := range entrants {
			entrants[i] = from.At(src.IntN(n))
		}
		sort.SliceStable(entrants, func(i, j int) bool {
			return genotype.IsChromosomeFitter(ev, entrants[i], entrants[j])
		})
		winner := entrants[len(entrants)-1]
		for _, c := range entrants {
			if src.Float64() < s.Probability {
				winner = c
				break
			}
		}
		pk.add(winner)
	}
	return nil
}
