package genotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomix/internal/rng"
)

func TestChromosomePoolReusesByShape(t *testing.T) {
	src := rng.New(4)
	pool := NewChromosomePool(2)
	sample := sumSample(t)

	_, ok := pool.Acquire(sample.Signature())
	assert.False(t, ok)

	a := sample.CloneStructure(src)
	a.SetFitness(3)
	pool.Release(a)
	pool.Release(sample.CloneStructure(src))
	pool.Release(sample.CloneStructure(src))
	assert.Equal(t, 2, pool.Len())

	other, err := NewChromosome(NewBooleanGene())
	require.NoError(t, err)
	_, ok = pool.Acquire(other.Signature())
	assert.False(t, ok)

	got, ok := pool.Acquire(sample.Signature())
	require.True(t, ok)
	assert.False(t, got.IsEvaluated())
	assert.Equal(t, 1, pool.Len())
}

func TestChromosomePoolCloneOf(t *testing.T) {
	src := rng.New(6)
	pool := NewChromosomePool(0)
	sample := sumSample(t)
	recycled := sample.CloneStructure(src)
	pool.Release(recycled)

	parent := sample.CloneStructure(src)
	parent.SetFitness(8)
	child := pool.CloneOf(parent)
	assert.Same(t, recycled, child)
	assert.True(t, child.Equal(parent))
	v, ok := child.Fitness()
	require.True(t, ok)
	assert.Equal(t, 8.0, v)

	var nilPool *ChromosomePool
	fresh := nilPool.CloneOf(parent)
	assert.NotSame(t, parent, fresh)
	assert.True(t, fresh.Equal(parent))
}
