package evo

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"genomix/internal/genotype"
)

type GenerationDiagnostics struct {
	Generation           int     `json:"generation"`
	BestFitness          float64 `json:"best_fitness"`
	MeanFitness          float64 `json:"mean_fitness"`
	WorstFitness         float64 `json:"worst_fitness"`
	StdDevFitness        float64 `json:"stddev_fitness"`
	PopulationSize       int     `json:"population_size"`
	FingerprintDiversity int     `json:"fingerprint_diversity"`
	Evaluations          int     `json:"evaluations"`
	// Elapsed counts the generations run since the previous report.
	Elapsed int `json:"elapsed"`
}

// SummarizeGeneration describes the evaluated members of pop. Best and worst
// follow the evaluator's polarity.
func SummarizeGeneration(pop *genotype.Population, ev genotype.FitnessEvaluator, evaluations int) GenerationDiagnostics {
	d := GenerationDiagnostics{
		Generation:     pop.Generation(),
		PopulationSize: pop.Size(),
		Evaluations:    evaluations,
		Elapsed:        1,
	}
	if pop.Size() == 0 {
		return d
	}
	values := make([]float64, 0, pop.Size())
	for i := 0; i < pop.Size(); i++ {
		if v, ok := pop.At(i).Fitness(); ok {
			values = append(values, v)
		}
	}
	d.FingerprintDiversity = genotype.Diversity(pop)
	if len(values) == 0 {
		return d
	}

	d.MeanFitness, d.StdDevFitness = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		d.StdDevFitness = 0
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if ev.IsFitter(hi, lo) {
		d.BestFitness, d.WorstFitness = hi, lo
	} else {
		d.BestFitness, d.WorstFitness = lo, hi
	}
	if best, ok := pop.Fittest(ev); ok {
		d.BestFitness, _ = best.Fitness()
	}
	return d
}
