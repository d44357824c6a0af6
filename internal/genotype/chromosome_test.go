package genotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomix/internal/rng"
)

func sumSample(t *testing.T) *Chromosome {
	t.Helper()
	c, err := NewChromosome(
		MustIntegerGene(0, 30),
		MustIntegerGene(0, 20),
		MustIntegerGene(0, 10),
		MustIntegerGene(0, 40),
	)
	require.NoError(t, err)
	return c
}

func TestChromosomeMutationInvalidatesFitness(t *testing.T) {
	src := rng.New(5)
	c := sumSample(t).CloneStructure(src)

	steps := []struct {
		name string
		fn   func() error
	}{
		{name: "set allele", fn: func() error { return c.SetAllele(0, 4) }},
		{name: "mutate gene", fn: func() error { return c.MutateGene(1, src, 0.2) }},
		{name: "randomize gene", fn: func() error { return c.RandomizeGene(2, src) }},
		{name: "randomize", fn: func() error { c.Randomize(src); return nil }},
		{name: "set genes", fn: func() error { return c.SetGenes(sumSample(t).CloneStructure(src).genes) }},
		{name: "parse", fn: func() error { return c.ParsePersistentStrings(c.PersistentStrings()) }},
	}
	for _, step := range steps {
		c.SetFitness(12)
		require.True(t, c.IsEvaluated())
		require.NoError(t, step.fn(), step.name)
		_, ok := c.Fitness()
		assert.False(t, ok, "%s must reset fitness", step.name)
	}
}

func TestChromosomeRejectsBadShapeAndIndex(t *testing.T) {
	c := sumSample(t)
	assert.ErrorIs(t, c.SetAllele(4, 1), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.SetGenes([]Gene{MustIntegerGene(0, 30)}), ErrShapeMismatch)
	assert.ErrorIs(t, c.SetGenes([]Gene{
		MustIntegerGene(0, 30), MustIntegerGene(0, 20), MustIntegerGene(0, 10), NewBooleanGene(),
	}), ErrShapeMismatch)

	other, err := NewChromosome(NewBooleanGene())
	require.NoError(t, err)
	assert.ErrorIs(t, c.SwapGenes(other, 0, 1), ErrShapeMismatch)
	assert.ErrorIs(t, c.SwapGenes(sumSample(t), 2, 9), ErrIndexOutOfRange)

	_, err = NewChromosome()
	assert.ErrorIs(t, err, ErrInvalidGene)
}

func TestChromosomeCopiesGivenGenes(t *testing.T) {
	g := MustIntegerGene(0, 10)
	require.NoError(t, g.SetAllele(3))
	c, err := NewChromosome(g, NewBooleanGene())
	require.NoError(t, err)
	c.SetFitness(42)

	require.NoError(t, g.SetAllele(7))
	assert.Equal(t, 3, c.GeneAt(0).Allele())
	assert.True(t, c.IsEvaluated())

	replacement := []Gene{MustIntegerGene(0, 10), NewBooleanGene()}
	require.NoError(t, replacement[0].SetAllele(5))
	require.NoError(t, c.SetGenes(replacement))
	require.NoError(t, replacement[0].SetAllele(9))
	assert.Equal(t, 5, c.GeneAt(0).Allele())
}

func TestChromosomeGeneViewIsReadOnly(t *testing.T) {
	c := sumSample(t).CloneStructure(rng.New(2))
	c.SetFitness(1)

	view := c.GeneAt(0)
	_, mutable := view.(Gene)
	assert.False(t, mutable)
	assert.True(t, view.IsSet())
	assert.True(t, c.genes[0].Equal(view))
	assert.True(t, c.IsEvaluated())
}

func TestChromosomeEqualityIgnoresFitness(t *testing.T) {
	src := rng.New(9)
	a := sumSample(t).CloneStructure(src)
	b := a.Clone()
	b.SetFitness(3)
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	require.NoError(t, b.SetAllele(0, (a.GeneAt(0).Allele().(int)+1)%31))
	assert.False(t, a.Equal(b))
}

func TestChromosomeCloneIsDeep(t *testing.T) {
	src := rng.New(2)
	a := sumSample(t).CloneStructure(src)
	a.SetFitness(1.5)
	b := a.Clone()

	v, ok := b.Fitness()
	require.True(t, ok)
	assert.Equal(t, 1.5, v)

	require.NoError(t, b.SetAllele(3, 40))
	require.NoError(t, a.SetAllele(3, 0))
	assert.Equal(t, 40, b.GeneAt(3).Allele())
}

func TestSwapGenesExchangesSegment(t *testing.T) {
	a := sumSample(t)
	b := sumSample(t)
	for i, v := range []int{1, 2, 3, 4} {
		require.NoError(t, a.SetAllele(i, v))
		require.NoError(t, b.SetAllele(i, v+5))
	}
	a.SetFitness(1)
	b.SetFitness(1)

	require.NoError(t, a.SwapGenes(b, 1, 3))
	assert.Equal(t, []any{1, 7, 8, 4}, a.Alleles())
	assert.Equal(t, []any{6, 2, 3, 9}, b.Alleles())
	assert.False(t, a.IsEvaluated())
	assert.False(t, b.IsEvaluated())
}

func TestCloneStructureKeepsShape(t *testing.T) {
	sample := sumSample(t)
	c := sample.CloneStructure(rng.New(4))
	assert.True(t, sample.SameShape(c))
	assert.Equal(t, sample.Signature(), c.Signature())
	for i := 0; i < c.Size(); i++ {
		assert.True(t, c.GeneAt(i).IsSet())
	}
	assert.False(t, c.IsEvaluated())
}

func TestParsePersistentStringsIsAtomic(t *testing.T) {
	c := sumSample(t).CloneStructure(rng.New(8))
	before := c.Alleles()
	bad := c.PersistentStrings()
	bad[2] = "3:0:99"
	assert.ErrorIs(t, c.ParsePersistentStrings(bad), ErrShapeMismatch)
	assert.Equal(t, before, c.Alleles())
}

func TestIsChromosomeFitterHonoursPolarity(t *testing.T) {
	a := sumSample(t)
	b := sumSample(t)
	a.SetFitness(1)
	b.SetFitness(2)

	assert.True(t, IsChromosomeFitter(MaximizingEvaluator{}, b, a))
	assert.True(t, IsChromosomeFitter(MinimizingEvaluator{}, a, b))

	b.ResetFitness()
	assert.True(t, IsChromosomeFitter(MinimizingEvaluator{}, a, b))
	assert.False(t, IsChromosomeFitter(MaximizingEvaluator{}, b, a))
}
