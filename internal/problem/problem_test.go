package problem

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomix/internal/evo"
	"genomix/internal/genotype"
)

func chromosomeWith(t *testing.T, p Problem, alleles ...any) *genotype.Chromosome {
	t.Helper()
	c, err := p.Sample()
	require.NoError(t, err)
	require.Equal(t, len(alleles), c.Size())
	for i, a := range alleles {
		require.NoError(t, c.SetAllele(i, a))
	}
	return c
}

func TestSumTargetFitness(t *testing.T) {
	p := NewSumTarget(DefaultSumTarget)
	f := p.Fitness()

	exact := f.Evaluate(chromosomeWith(t, p, 30, 20, 10, 33))
	assert.Equal(t, 0.0, exact)
	assert.False(t, math.Signbit(exact), "exact hit must not be negative zero")
	assert.Equal(t, "0", fmt.Sprint(exact))
	assert.Equal(t, -3.0, f.Evaluate(chromosomeWith(t, p, 30, 20, 10, 30)))
	assert.Equal(t, -3.0, f.Evaluate(chromosomeWith(t, p, 30, 20, 10, 36)))

	goal, ok := p.Goal()
	require.True(t, ok)
	assert.Equal(t, 0.0, goal)
	assert.Equal(t, "[30 20 10 33] = 93", Describe(p, chromosomeWith(t, p, 30, 20, 10, 33)))
}

func TestMakeChangeFitness(t *testing.T) {
	p := NewMakeChange(89)
	f := p.Fitness()
	ev := p.Evaluator()

	optimal := chromosomeWith(t, p, 3, 1, 0, 4)
	exact := chromosomeWith(t, p, 2, 3, 1, 4)
	short := chromosomeWith(t, p, 3, 1, 0, 3)

	assert.Equal(t, 8.0, f.Evaluate(optimal))
	assert.Equal(t, 10.0, f.Evaluate(exact))
	assert.True(t, ev.IsFitter(f.Evaluate(optimal), f.Evaluate(exact)))
	assert.True(t, ev.IsFitter(f.Evaluate(exact), f.Evaluate(short)))

	goal, ok := p.Goal()
	require.True(t, ok)
	assert.Equal(t, 8.0, goal)
	assert.Contains(t, Describe(p, optimal), "= 89 cents")
}

func TestMakeChangeRejectsNonPositiveAmount(t *testing.T) {
	_, err := NewMakeChange(0).Sample()
	require.ErrorIs(t, err, genotype.ErrInvalidGene)
	_, ok := NewMakeChange(0).Goal()
	assert.False(t, ok)
}

func TestKnapsackFitness(t *testing.T) {
	items := []Item{
		{Name: "a", Weight: 5, Value: 10},
		{Name: "b", Weight: 4, Value: 7},
		{Name: "c", Weight: 3, Value: 1},
	}
	p := NewKnapsack(9, items)
	f := p.Fitness()

	assert.Equal(t, 17.0, f.Evaluate(chromosomeWith(t, p, true, true, false)))
	assert.Equal(t, -3.0, f.Evaluate(chromosomeWith(t, p, true, true, true)))
	assert.Equal(t, 0.0, f.Evaluate(chromosomeWith(t, p, false, false, false)))
	assert.Equal(t, "[a b] weight=9 value=17", Describe(p, chromosomeWith(t, p, true, true, false)))

	_, ok := p.Goal()
	assert.False(t, ok)

	_, err := NewKnapsack(10, nil).Sample()
	require.ErrorIs(t, err, genotype.ErrInvalidGene)
}

func TestSphereFitness(t *testing.T) {
	p := NewSphere(3)
	f := p.Fitness()

	assert.InDelta(t, 0.0, f.Evaluate(chromosomeWith(t, p, 0.0, 0.0, 0.0)), 1e-12)
	assert.InDelta(t, 14.0, f.Evaluate(chromosomeWith(t, p, 1.0, -2.0, 3.0)), 1e-12)
	assert.True(t, p.Evaluator().IsFitter(1, 2))

	c, err := p.Sample()
	require.NoError(t, err)
	assert.Equal(t, c.String(), Describe(p, c))

	_, err = NewSphere(0).Sample()
	require.ErrorIs(t, err, genotype.ErrInvalidGene)
}

func TestRegistry(t *testing.T) {
	t.Cleanup(resetRegistryForTests)

	assert.Equal(t, []string{KnapsackName, MakeChangeName, SphereName, SumTargetName}, List())

	p, err := Resolve(SumTargetName)
	require.NoError(t, err)
	assert.Equal(t, SumTargetName, p.Name())

	_, err = Resolve("traveling-salesman")
	require.ErrorIs(t, err, ErrProblemNotFound)

	err = Register(SphereName, func() Problem { return NewSphere(2) })
	require.ErrorIs(t, err, ErrProblemExists)

	require.NoError(t, Register("sphere-2d", func() Problem { return NewSphere(2) }))
	assert.Contains(t, List(), "sphere-2d")

	require.Error(t, Register("", func() Problem { return NewSphere(2) }))
	require.Error(t, Register("nil", nil))
}

func TestResolveReturnsFreshInstances(t *testing.T) {
	a, err := Resolve(KnapsackName)
	require.NoError(t, err)
	b, err := Resolve(KnapsackName)
	require.NoError(t, err)

	a.(*Knapsack).Items[0].Value = 0
	assert.NotEqual(t, 0, b.(*Knapsack).Items[0].Value)
}

func TestBuiltinProblemsEvolve(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			p, err := Resolve(name)
			require.NoError(t, err)
			sample, err := p.Sample()
			require.NoError(t, err)

			cfg, err := evo.NewDefaultBuilder().
				SampleChromosome(sample).
				FitnessFunction(p.Fitness()).
				Evaluator(p.Evaluator()).
				PopulationSize(30).
				Seed(11).
				Build()
			require.NoError(t, err)

			monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{Configuration: cfg, Generations: 15})
			require.NoError(t, err)
			result, err := monitor.Run(t.Context(), nil)
			require.NoError(t, err)

			history := result.BestByGeneration
			require.NotEmpty(t, history)
			for i := 1; i < len(history); i++ {
				assert.False(t, p.Evaluator().IsFitter(history[i-1], history[i]), "generation %d regressed", i)
			}
		})
	}
}
