package evo

import (
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"genomix/internal/genotype"
)

// RankBulkFitness replaces raw scores with population-relative ranks. Every
// member is rescored each call, so ranks stay comparable within a
// generation. Equal raw scores share a rank.
type RankBulkFitness struct {
	Fitness   FitnessFunction
	Evaluator genotype.FitnessEvaluator
}

func (r RankBulkFitness) EvaluatePopulation(pop *genotype.Population) error {
	if r.Fitness == nil || r.Evaluator == nil {
		return fmt.Errorf("%w: rank fitness needs a fitness function and an evaluator", ErrInvalidConfiguration)
	}
	n := pop.Size()
	raw := make([]float64, n)
	for i := 0; i < n; i++ {
		raw[i] = r.Fitness.Evaluate(pop.At(i))
		if err := checkFitness(raw[i]); err != nil {
			return err
		}
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return r.Evaluator.IsFitter(raw[order[a]], raw[order[b]])
	})

	// Ranks are emitted in the evaluator's own polarity: the best member
	// is fitter than every other under the same evaluator.
	higherIsBetter := r.Evaluator.IsFitter(1, 0)
	rank := 0
	for pos, idx := range order {
		if pos > 0 && r.Evaluator.IsFitter(raw[order[pos-1]], raw[idx]) {
			rank = pos
		}
		v := float64(rank + 1)
		if higherIsBetter {
			v = float64(n - rank)
		}
		pop.At(idx).SetFitness(v)
	}
	pop.Invalidate()
	return nil
}

// ParallelBulkFitness evaluates pending members on a bounded goroutine pool.
// The wrapped FitnessFunction must be safe for concurrent use.
type ParallelBulkFitness struct {
	Fitness FitnessFunction
	Workers int
}

func (p ParallelBulkFitness) EvaluatePopulation(pop *genotype.Population) error {
	if p.Fitness == nil {
		return fmt.Errorf("%w: parallel fitness needs a fitness function", ErrInvalidConfiguration)
	}
	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}

	seen := make(map[*genotype.Chromosome]struct{}, pop.Size())
	var pending []*genotype.Chromosome
	for _, c := range pop.Unevaluated() {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		pending = append(pending, c)
	}

	scores := make([]float64, len(pending))
	wp := pool.New().WithMaxGoroutines(workers)
	for i, c := range pending {
		wp.Go(func() {
			scores[i] = p.Fitness.Evaluate(c)
		})
	}
	wp.Wait()

	for i, c := range pending {
		if err := checkFitness(scores[i]); err != nil {
			return err
		}
		c.SetFitness(scores[i])
	}
	pop.Invalidate()
	return nil
}
