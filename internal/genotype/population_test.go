package genotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomix/internal/rng"
)

func scoredPopulation(t *testing.T, scores ...float64) *Population {
	t.Helper()
	src := rng.New(21)
	sample := sumSample(t)
	pop := NewPopulation(len(scores))
	for _, s := range scores {
		c := sample.CloneStructure(src)
		c.SetFitness(s)
		pop.Add(c)
	}
	return pop
}

func TestFittestFollowsEvaluator(t *testing.T) {
	pop := scoredPopulation(t, 3, -1, 7, 2)

	best, ok := pop.Fittest(MaximizingEvaluator{})
	require.True(t, ok)
	v, _ := best.Fitness()
	assert.Equal(t, 7.0, v)

	pop.Invalidate()
	best, ok = pop.Fittest(MinimizingEvaluator{})
	require.True(t, ok)
	v, _ = best.Fitness()
	assert.Equal(t, -1.0, v)
}

func TestFittestCacheDropsStaleMember(t *testing.T) {
	pop := scoredPopulation(t, 1, 5)
	best, ok := pop.Fittest(MaximizingEvaluator{})
	require.True(t, ok)

	require.NoError(t, best.SetAllele(0, 0))
	next, ok := pop.Fittest(MaximizingEvaluator{})
	require.True(t, ok)
	v, _ := next.Fitness()
	assert.Equal(t, 1.0, v)
}

func TestFittestWithoutEvaluatedMembers(t *testing.T) {
	pop := RandomPopulation(sumSample(t), 4, rng.New(1))
	_, ok := pop.Fittest(MaximizingEvaluator{})
	assert.False(t, ok)
	assert.Len(t, pop.Unevaluated(), 4)
}

func TestRankedIsStableAndPutsUnevaluatedLast(t *testing.T) {
	pop := scoredPopulation(t, 2, 9, 2, 4)
	first, third := pop.At(0), pop.At(2)
	pending := sumSample(t).CloneStructure(rng.New(3))
	pop.Add(pending)

	ranked := pop.Ranked(MaximizingEvaluator{})
	require.Len(t, ranked, 5)
	assert.Same(t, first, ranked[2])
	assert.Same(t, third, ranked[3])
	assert.Same(t, pending, ranked[4])
}

func TestPopulationMembershipOps(t *testing.T) {
	pop := scoredPopulation(t, 1, 2, 3)
	c := pop.At(1)
	assert.True(t, pop.Contains(c))

	removed := pop.RemoveAt(1)
	assert.Same(t, c, removed)
	assert.False(t, pop.Contains(c))
	assert.Equal(t, 2, pop.Size())

	pop.Retain(func(m *Chromosome) bool {
		v, _ := m.Fitness()
		return v > 1
	})
	require.Equal(t, 1, pop.Size())
	v, _ := pop.At(0).Fitness()
	assert.Equal(t, 3.0, v)
}

func TestPopulationCloneIsDeep(t *testing.T) {
	pop := scoredPopulation(t, 1, 2)
	pop.SetGeneration(6)
	cp := pop.Clone()
	assert.Equal(t, 6, cp.Generation())
	assert.NotSame(t, pop.At(0), cp.At(0))
	assert.True(t, pop.At(0).Equal(cp.At(0)))

	shallow := pop.ShallowCopy()
	assert.Same(t, pop.At(1), shallow.At(1))
}

func TestDiversityCountsDistinctGenomes(t *testing.T) {
	pop := scoredPopulation(t, 1, 2)
	pop.Add(pop.At(0).Clone(), pop.At(0).Clone())
	assert.Equal(t, 2, Diversity(pop))
	assert.Equal(t, Fingerprint(pop.At(0)), Fingerprint(pop.At(2)))
}
