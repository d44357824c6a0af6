package evo

import (
	"fmt"
	"log/slog"

	"genomix/internal/genotype"
)

// Breeder runs one generation transition per Evolve call. It is
// single-threaded and keeps a running count of fitness evaluations.
type Breeder struct {
	evaluations int
}

func NewBreeder() *Breeder {
	return &Breeder{}
}

// Evaluations returns the number of fitness computations triggered so far.
func (b *Breeder) Evaluations() int { return b.evaluations }

// Evaluate scores every unevaluated member of pop.
func (b *Breeder) Evaluate(cfg *Configuration, pop *genotype.Population) error {
	n, err := evaluatePopulation(cfg, pop)
	b.evaluations += n
	return err
}

// Evolve computes the next generation from pop. With a chromosome pool
// enabled, members of pop that did not survive are recycled, so pop must
// not be read afterwards.
func (b *Breeder) Evolve(pop *genotype.Population, cfg *Configuration) (*genotype.Population, error) {
	if pop == nil || cfg == nil {
		return nil, fmt.Errorf("%w: population and configuration are required", ErrInvalidConfiguration)
	}
	for i := 0; i < pop.Size(); i++ {
		if !pop.At(i).SameShape(cfg.Sample()) {
			return nil, fmt.Errorf("member %d: %w", i, shapeError(pop.At(i), cfg.Sample()))
		}
	}
	ev := cfg.Evaluator()
	target := cfg.PopulationSize()
	log := cfg.Logger().With(slog.Int("generation", pop.Generation()))

	if err := b.Evaluate(cfg, pop); err != nil {
		return nil, err
	}

	var preserved *genotype.Chromosome
	if cfg.PreserveFittest() {
		if best, ok := pop.Fittest(ev); ok {
			preserved = best.Clone()
		}
	}

	working := pop.ShallowCopy()
	if pre := cfg.PreSelectors(); len(pre) > 0 {
		selected, err := applySelectors(cfg, pre, pop, target)
		if err != nil {
			return nil, err
		}
		working = selected
	}
	log.Debug("pre-selection done", slog.Int("size", working.Size()))

	for _, op := range cfg.Operators() {
		if err := op.Operate(cfg, working); err != nil {
			return nil, fmt.Errorf("operator %s: %w", op.Name(), err)
		}
	}
	log.Debug("operators done", slog.Int("size", working.Size()))

	if post := cfg.PostSelectors(); len(post) > 0 {
		// Post selectors rank by fitness, so the offspring are scored first.
		if err := b.Evaluate(cfg, working); err != nil {
			return nil, err
		}
		selected, err := applySelectors(cfg, post, working, target)
		if err != nil {
			return nil, err
		}
		working = selected
		log.Debug("post-selection done", slog.Int("size", working.Size()))
	}

	if err := b.Evaluate(cfg, working); err != nil {
		return nil, err
	}

	if preserved != nil {
		current, ok := working.Fittest(ev)
		if !ok || genotype.IsChromosomeFitter(ev, preserved, current) {
			working.Add(preserved)
			log.Debug("reinserted preserved fittest")
		}
	}

	trimmed, err := b.enforceSize(cfg, working, preserved)
	if err != nil {
		return nil, err
	}

	working.SetGeneration(pop.Generation() + 1)
	recycle(cfg.Pool(), working, pop.Members(), trimmed)
	return working, nil
}

// enforceSize trims the worst-ranked members or pads with fresh random
// chromosomes. Without constant size it only pads up to the minimum
// percentage of the target. It returns the trimmed members.
func (b *Breeder) enforceSize(cfg *Configuration, pop *genotype.Population, preserved *genotype.Chromosome) ([]*genotype.Chromosome, error) {
	target := cfg.PopulationSize()
	floor := 0
	var trimmed []*genotype.Chromosome
	if cfg.KeepPopulationSizeConstant() {
		floor = target
		if pop.Size() > target {
			trimmed = trimWorst(cfg.Evaluator(), pop, target, preserved)
		}
	} else if pct := cfg.MinimumPopSizePercent(); pct > 0 {
		floor = (target*pct + 99) / 100
	}
	if pop.Size() >= floor {
		return trimmed, nil
	}
	fresh := genotype.NewPopulation(floor - pop.Size())
	for pop.Size()+fresh.Size() < floor {
		fresh.Add(cfg.NewChromosome())
	}
	if err := b.Evaluate(cfg, fresh); err != nil {
		return nil, err
	}
	pop.Add(fresh.Members()...)
	return trimmed, nil
}

// trimWorst keeps the size best members, preserving their order, and
// returns the removed ones. keep is never removed.
func trimWorst(ev genotype.FitnessEvaluator, pop *genotype.Population, size int, keep *genotype.Chromosome) []*genotype.Chromosome {
	ranked := pop.Ranked(ev)
	survivors := make(map[*genotype.Chromosome]struct{}, size)
	if keep != nil && pop.Contains(keep) {
		survivors[keep] = struct{}{}
	}
	for _, c := range ranked {
		if len(survivors) == size {
			break
		}
		survivors[c] = struct{}{}
	}
	var removed []*genotype.Chromosome
	pop.Retain(func(c *genotype.Chromosome) bool {
		if _, ok := survivors[c]; ok {
			return true
		}
		removed = append(removed, c)
		return false
	})
	return removed
}

// recycle hands every discarded chromosome that is not part of next to the
// pool, once.
func recycle(pool *genotype.ChromosomePool, next *genotype.Population, discarded ...[]*genotype.Chromosome) {
	if pool == nil {
		return
	}
	seen := make(map[*genotype.Chromosome]struct{}, next.Size())
	for i := 0; i < next.Size(); i++ {
		seen[next.At(i)] = struct{}{}
	}
	for _, list := range discarded {
		for _, c := range list {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			pool.Release(c)
		}
	}
}
