package evo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"genomix/internal/genotype"
)

const sumTarget = 93

func sumSample(t *testing.T) *genotype.Chromosome {
	t.Helper()
	c, err := genotype.NewChromosome(
		genotype.MustIntegerGene(0, 30),
		genotype.MustIntegerGene(0, 20),
		genotype.MustIntegerGene(0, 10),
		genotype.MustIntegerGene(0, 40),
	)
	require.NoError(t, err)
	return c
}

func alleleSum(c *genotype.Chromosome) int {
	total := 0
	for _, a := range c.Alleles() {
		total += a.(int)
	}
	return total
}

var sumFitness = FitnessFunc(func(c *genotype.Chromosome) float64 {
	return -math.Abs(float64(alleleSum(c) - sumTarget))
})

var distanceFitness = FitnessFunc(func(c *genotype.Chromosome) float64 {
	return math.Abs(float64(alleleSum(c) - sumTarget))
})

func buildConfig(t *testing.T, b *Builder) *Configuration {
	t.Helper()
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

// scored returns a population whose members carry the given fitness values
// and distinct genomes.
func scored(t *testing.T, values ...float64) *genotype.Population {
	t.Helper()
	pop := genotype.NewPopulation(len(values))
	for i, v := range values {
		c := sumSample(t)
		require.NoError(t, c.SetAllele(0, i))
		for g := 1; g < c.Size(); g++ {
			require.NoError(t, c.SetAllele(g, 0))
		}
		c.SetFitness(v)
		pop.Add(c)
	}
	return pop
}

func fitnessOf(t *testing.T, c *genotype.Chromosome) float64 {
	t.Helper()
	v, ok := c.Fitness()
	require.True(t, ok)
	return v
}
