package evo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"genomix/internal/genotype"
)

// StopReason tells why a monitored run ended.
type StopReason string

const (
	StopGenerations StopReason = "generations"
	StopGoal        StopReason = "goal"
	StopTimeout     StopReason = "timeout"
)

// Observer is notified after every generation.
type Observer interface {
	ObserveGeneration(d GenerationDiagnostics)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(d GenerationDiagnostics)

func (f ObserverFunc) ObserveGeneration(d GenerationDiagnostics) { f(d) }

type RunResult struct {
	BestByGeneration      []float64
	GenerationDiagnostics []GenerationDiagnostics
	FinalPopulation       *genotype.Population
	Best                  *genotype.Chromosome
	Evaluations           int
	StopReason            StopReason
}

type MonitorConfig struct {
	Configuration *Configuration
	Generations   int
	// StopAtGoal ends the run once the fittest member is at least as fit as
	// FitnessGoal under the configured evaluator.
	StopAtGoal  bool
	FitnessGoal float64
	// Timeout bounds wall time; it is checked between generations.
	Timeout   time.Duration
	Observers []Observer
}

// PopulationMonitor drives a Breeder until a stop condition holds.
type PopulationMonitor struct {
	cfg     MonitorConfig
	breeder *Breeder
	now     func() time.Time
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Configuration == nil {
		return nil, fmt.Errorf("%w: configuration is required", ErrInvalidConfiguration)
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("%w: generations must be > 0", ErrInvalidConfiguration)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must be >= 0", ErrInvalidConfiguration)
	}
	return &PopulationMonitor{
		cfg:     cfg,
		breeder: NewBreeder(),
		now:     time.Now,
	}, nil
}

// Run evolves initial, or a fresh random population when initial is nil.
// The monitor takes ownership of initial. Context cancellation is checked
// between generations and returned as an error.
func (m *PopulationMonitor) Run(ctx context.Context, initial *genotype.Population) (RunResult, error) {
	cfg := m.cfg.Configuration
	ev := cfg.Evaluator()
	log := cfg.Logger()

	population := initial
	if population == nil {
		population = cfg.RandomPopulation()
	}
	if population.Size() != cfg.PopulationSize() {
		return RunResult{}, fmt.Errorf("initial population mismatch: got=%d want=%d", population.Size(), cfg.PopulationSize())
	}

	start := m.now()
	bestHistory := make([]float64, 0, m.cfg.Generations)
	diagnostics := make([]GenerationDiagnostics, 0, m.cfg.Generations)
	reason := StopGenerations

	for gen := 0; gen < m.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		next, err := m.breeder.Evolve(population, cfg)
		if err != nil {
			return RunResult{}, fmt.Errorf("generation %d: %w", population.Generation()+1, err)
		}
		population = next

		summary := SummarizeGeneration(population, ev, m.breeder.Evaluations())
		bestHistory = append(bestHistory, summary.BestFitness)
		diagnostics = append(diagnostics, summary)
		for _, o := range m.cfg.Observers {
			o.ObserveGeneration(summary)
		}
		log.Debug("generation complete",
			slog.Int("generation", summary.Generation),
			slog.Float64("best", summary.BestFitness),
			slog.Float64("mean", summary.MeanFitness),
			slog.Int("size", summary.PopulationSize),
			slog.Int("diversity", summary.FingerprintDiversity),
		)

		if m.cfg.StopAtGoal && !ev.IsFitter(m.cfg.FitnessGoal, summary.BestFitness) {
			reason = StopGoal
			break
		}
		if m.cfg.Timeout > 0 && m.now().Sub(start) >= m.cfg.Timeout {
			reason = StopTimeout
			break
		}
	}

	best, _ := population.Fittest(ev)
	log.Info("evolution stopped",
		slog.String("reason", string(reason)),
		slog.Int("generations", len(bestHistory)),
		slog.Int("evaluations", m.breeder.Evaluations()),
	)
	return RunResult{
		BestByGeneration:      bestHistory,
		GenerationDiagnostics: diagnostics,
		FinalPopulation:       population,
		Best:                  best,
		Evaluations:           m.breeder.Evaluations(),
		StopReason:            reason,
	}, nil
}
