// Package metrics exports generation diagnostics as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"genomix/internal/evo"
)

const namespace = "genomix"

// Collector owns the evolution metric vectors, labelled by run id.
type Collector struct {
	generations *prometheus.CounterVec
	best        *prometheus.GaugeVec
	mean        *prometheus.GaugeVec
	stddev      *prometheus.GaugeVec
	size        *prometheus.GaugeVec
	diversity   *prometheus.GaugeVec
	evaluations *prometheus.GaugeVec
}

// NewCollector registers the metric vectors with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	labels := []string{"run_id"}
	c := &Collector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "generations_total", Help: "Generations completed.",
		}, labels),
		best: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "best_fitness", Help: "Fitness of the fittest chromosome.",
		}, labels),
		mean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "mean_fitness", Help: "Mean population fitness.",
		}, labels),
		stddev: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fitness_stddev", Help: "Standard deviation of population fitness.",
		}, labels),
		size: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "population_size", Help: "Chromosomes in the current population.",
		}, labels),
		diversity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "distinct_genomes", Help: "Distinct genomes in the current population.",
		}, labels),
		evaluations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fitness_evaluations", Help: "Fitness evaluations performed so far.",
		}, labels),
	}
	for _, col := range []prometheus.Collector{c.generations, c.best, c.mean, c.stddev, c.size, c.diversity, c.evaluations} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observer returns an evo.Observer that records every generation of runID.
// Series stay registered after the run ends until Forget is called.
func (c *Collector) Observer(runID string) evo.Observer {
	return evo.ObserverFunc(func(d evo.GenerationDiagnostics) {
		l := prometheus.Labels{"run_id": runID}
		c.generations.With(l).Add(float64(max(d.Elapsed, 1)))
		c.best.With(l).Set(d.BestFitness)
		c.mean.With(l).Set(d.MeanFitness)
		c.stddev.With(l).Set(d.StdDevFitness)
		c.size.With(l).Set(float64(d.PopulationSize))
		c.diversity.With(l).Set(float64(d.FingerprintDiversity))
		c.evaluations.With(l).Set(float64(d.Evaluations))
	})
}

// Forget drops the series of a finished run.
func (c *Collector) Forget(runID string) {
	l := prometheus.Labels{"run_id": runID}
	c.generations.Delete(l)
	c.best.Delete(l)
	c.mean.Delete(l)
	c.stddev.Delete(l)
	c.size.Delete(l)
	c.diversity.Delete(l)
	c.evaluations.Delete(l)
}
