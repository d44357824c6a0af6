package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"genomix/internal/evo"
	"genomix/internal/genotype"
	"genomix/internal/island"
	"genomix/internal/model"
	"genomix/internal/problem"
	"genomix/internal/storage"
)

var (
	ErrNotInitialized = errors.New("polis is not initialized")
	ErrRunActive      = errors.New("run already active")
	ErrRunNotActive   = errors.New("run not active")
)

type Config struct {
	Store  storage.Store
	Logger *slog.Logger
}

// RunConfig describes one evolution. Zero operator and selector lists fall
// back to the classic defaults of evo.NewDefaultBuilder.
type RunConfig struct {
	RunID          string
	Problem        string
	PopulationSize int
	Generations    int
	Seed           int64

	Operators     []evo.GeneticOperator
	PreSelectors  []evo.NaturalSelector
	PostSelectors []evo.NaturalSelector

	DisablePreserveFittest bool
	// VariablePopulationSize lets the population float down to
	// MinimumPopSizePercent of PopulationSize.
	VariablePopulationSize bool
	MinimumPopSizePercent  int
	UsePool                bool
	PoolLimit              int

	// StopAtGoal uses FitnessGoal when set, else the problem's own goal.
	StopAtGoal  bool
	FitnessGoal *float64
	Timeout     time.Duration

	// RankFitness scores members by rank within their population. Otherwise
	// Workers > 1 evaluates pending members concurrently.
	RankFitness bool
	Workers     int

	Islands           int
	MigrationInterval int
	Migrants          int

	// InitialPopulation names a stored population to continue from.
	InitialPopulation string

	Observers []evo.Observer
}

type RunResult struct {
	Run              model.RunRecord
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	Best             *genotype.Chromosome
	BestDescription  string
	FinalPopulation  *genotype.Population
}

type ProblemSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Evaluator   string   `json:"evaluator"`
	Goal        *float64 `json:"goal,omitempty"`
}

// Polis owns the store and runs evolutions against registered problems.
type Polis struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelFunc
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Polis{
		store:  cfg.Store,
		logger: logger,
		now:    time.Now,
		runs:   make(map[string]context.CancelFunc),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

// Stop cancels every active run. The store stays open.
func (p *Polis) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.runs {
		cancel()
	}
	p.runs = make(map[string]context.CancelFunc)
	p.started = false
}

func (p *Polis) Problems() []ProblemSummary {
	names := problem.List()
	out := make([]ProblemSummary, 0, len(names))
	for _, name := range names {
		prob, err := problem.Resolve(name)
		if err != nil {
			continue
		}
		summary := ProblemSummary{
			Name:        name,
			Description: prob.Description(),
			Evaluator:   fmt.Sprint(prob.Evaluator()),
		}
		if goal, ok := prob.Goal(); ok {
			summary.Goal = &goal
		}
		out = append(out, summary)
	}
	return out
}

func (p *Polis) RunEvolution(ctx context.Context, cfg RunConfig) (RunResult, error) {
	if !p.Started() {
		return RunResult{}, ErrNotInitialized
	}
	if cfg.Problem == "" {
		return RunResult{}, fmt.Errorf("problem name is required")
	}
	if cfg.Generations <= 0 {
		return RunResult{}, fmt.Errorf("%w: generations must be > 0", evo.ErrInvalidConfiguration)
	}
	if cfg.Islands > 1 && cfg.InitialPopulation != "" {
		return RunResult{}, fmt.Errorf("%w: island runs cannot continue a stored population", evo.ErrInvalidConfiguration)
	}
	prob, err := problem.Resolve(cfg.Problem)
	if err != nil {
		return RunResult{}, err
	}
	sample, err := prob.Sample()
	if err != nil {
		return RunResult{}, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = fmt.Sprintf("evo:%s:%d", cfg.Problem, cfg.Seed)
	}
	goal, err := resolveGoal(cfg, prob)
	if err != nil {
		return RunResult{}, err
	}

	var initial *genotype.Population
	if cfg.InitialPopulation != "" {
		initial, err = p.restore(ctx, cfg.InitialPopulation, sample)
		if err != nil {
			return RunResult{}, err
		}
		if cfg.PopulationSize <= 0 {
			cfg.PopulationSize = initial.Size()
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.registerRun(runID, cancel); err != nil {
		return RunResult{}, err
	}
	defer p.unregisterRun(runID)

	logger := p.logger.With(slog.String("run_id", runID), slog.String("problem", cfg.Problem))
	econf, err := buildConfiguration(cfg, prob, sample, logger)
	if err != nil {
		return RunResult{}, err
	}

	started := p.now()
	var (
		history     []float64
		diagnostics []evo.GenerationDiagnostics
		final       *genotype.Population
		best        *genotype.Chromosome
		evaluations int
		stopReason  string
	)
	if cfg.Islands > 1 {
		coordinator, err := island.NewCoordinator(island.Config{
			Base:              econf,
			Islands:           cfg.Islands,
			Epochs:            epochs(cfg),
			MigrationInterval: cfg.MigrationInterval,
			Migrants:          cfg.Migrants,
			StopAtGoal:        cfg.StopAtGoal,
			FitnessGoal:       goal,
			Timeout:           cfg.Timeout,
			Observers:         cfg.Observers,
		})
		if err != nil {
			return RunResult{}, err
		}
		res, err := coordinator.Run(runCtx)
		if err != nil {
			return RunResult{}, err
		}
		history, diagnostics, best, evaluations = res.BestByEpoch, res.Diagnostics, res.Best, res.Evaluations
		final = genotype.NewPopulation(cfg.Islands * econf.PopulationSize())
		for _, pop := range res.Populations {
			final.Add(pop.Members()...)
		}
		final.SetGeneration(res.Generations)
		stopReason = string(res.StopReason)
	} else {
		monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
			Configuration: econf,
			Generations:   cfg.Generations,
			StopAtGoal:    cfg.StopAtGoal,
			FitnessGoal:   goal,
			Timeout:       cfg.Timeout,
			Observers:     cfg.Observers,
		})
		if err != nil {
			return RunResult{}, err
		}
		res, err := monitor.Run(runCtx, initial)
		if err != nil {
			return RunResult{}, err
		}
		history, diagnostics, final, best, evaluations = res.BestByGeneration, res.GenerationDiagnostics, res.FinalPopulation, res.Best, res.Evaluations
		stopReason = string(res.StopReason)
	}

	run := model.RunRecord{
		VersionedRecord: storage.Versioned(),
		ID:              runID,
		Problem:         cfg.Problem,
		Evaluator:       fmt.Sprint(econf.Evaluator()),
		Seed:            cfg.Seed,
		PopulationSize:  econf.PopulationSize(),
		Generations:     len(history),
		Evaluations:     evaluations,
		StopReason:      stopReason,
		CreatedAt:       started.UTC(),
		DurationMillis:  p.now().Sub(started).Milliseconds(),
	}
	if cfg.Islands > 1 {
		run.Islands = cfg.Islands
		run.Generations = final.Generation()
	}
	if best != nil {
		run.BestFitness, _ = best.Fitness()
		run.BestGenes = best.PersistentStrings()
	}

	modelDiagnostics := toModelDiagnostics(diagnostics)
	if err := p.persist(ctx, run, history, modelDiagnostics, final); err != nil {
		return RunResult{}, err
	}
	logger.Info("run persisted",
		slog.Float64("best", run.BestFitness),
		slog.Int("generations", run.Generations),
		slog.String("stop_reason", run.StopReason),
	)

	result := RunResult{
		Run:              run,
		BestByGeneration: append([]float64(nil), history...),
		Diagnostics:      modelDiagnostics,
		Best:             best,
		FinalPopulation:  final,
	}
	if best != nil {
		result.BestDescription = problem.Describe(prob, best)
	}
	return result, nil
}

// StopRun cancels an active run; it returns the context error to its caller.
func (p *Polis) StopRun(runID string) error {
	p.mu.RLock()
	cancel, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	cancel()
	return nil
}

func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Polis) registerRun(runID string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("%w: %s", ErrRunActive, runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) unregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}

func (p *Polis) restore(ctx context.Context, populationID string, sample *genotype.Chromosome) (*genotype.Population, error) {
	record, ok, err := p.store.GetPopulation(ctx, populationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("population not found: %s", populationID)
	}
	return storage.RestorePopulation(record, sample)
}

func (p *Polis) persist(ctx context.Context, run model.RunRecord, history []float64, diagnostics []model.GenerationDiagnostics, final *genotype.Population) error {
	if err := p.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	if err := p.store.SaveFitnessHistory(ctx, run.ID, history); err != nil {
		return fmt.Errorf("save fitness history %s: %w", run.ID, err)
	}
	if err := p.store.SaveGenerationDiagnostics(ctx, run.ID, diagnostics); err != nil {
		return fmt.Errorf("save diagnostics %s: %w", run.ID, err)
	}
	if final != nil {
		if err := p.store.SavePopulation(ctx, storage.ExportPopulation(run.ID, run.ID, final)); err != nil {
			return fmt.Errorf("save population %s: %w", run.ID, err)
		}
	}
	return nil
}

func buildConfiguration(cfg RunConfig, prob problem.Problem, sample *genotype.Chromosome, logger *slog.Logger) (*evo.Configuration, error) {
	b := evo.NewDefaultBuilder().
		SampleChromosome(sample).
		Evaluator(prob.Evaluator()).
		PopulationSize(cfg.PopulationSize).
		Seed(cfg.Seed).
		PreserveFittest(!cfg.DisablePreserveFittest).
		KeepPopulationSizeConstant(!cfg.VariablePopulationSize).
		MinimumPopSizePercent(cfg.MinimumPopSizePercent).
		Logger(logger)

	switch {
	case cfg.RankFitness:
		b.BulkFitnessFunction(&evo.RankBulkFitness{Fitness: prob.Fitness(), Evaluator: prob.Evaluator()})
	case cfg.Workers > 1:
		b.BulkFitnessFunction(&evo.ParallelBulkFitness{Fitness: prob.Fitness(), Workers: cfg.Workers})
	default:
		b.FitnessFunction(prob.Fitness())
	}
	if len(cfg.Operators) > 0 {
		b.Operators(cfg.Operators...)
	}
	if len(cfg.PreSelectors) > 0 || len(cfg.PostSelectors) > 0 {
		b.ClearSelectors()
		for _, s := range cfg.PreSelectors {
			b.PreSelector(s)
		}
		for _, s := range cfg.PostSelectors {
			b.PostSelector(s)
		}
	}
	if cfg.UsePool {
		b.ChromosomePool(cfg.PoolLimit)
	}
	return b.Build()
}

func resolveGoal(cfg RunConfig, prob problem.Problem) (float64, error) {
	if cfg.FitnessGoal != nil {
		return *cfg.FitnessGoal, nil
	}
	goal, ok := prob.Goal()
	if cfg.StopAtGoal && !ok {
		return 0, fmt.Errorf("%w: problem %s has no fitness goal", evo.ErrInvalidConfiguration, prob.Name())
	}
	return goal, nil
}

// epochs spreads the generation budget over migration intervals, rounding up.
func epochs(cfg RunConfig) int {
	if cfg.MigrationInterval <= 0 {
		return 0
	}
	return (cfg.Generations + cfg.MigrationInterval - 1) / cfg.MigrationInterval
}

func toModelDiagnostics(diags []evo.GenerationDiagnostics) []model.GenerationDiagnostics {
	out := make([]model.GenerationDiagnostics, 0, len(diags))
	for _, d := range diags {
		out = append(out, model.GenerationDiagnostics{
			Generation:           d.Generation,
			BestFitness:          d.BestFitness,
			MeanFitness:          d.MeanFitness,
			WorstFitness:         d.WorstFitness,
			StdDevFitness:        d.StdDevFitness,
			PopulationSize:       d.PopulationSize,
			FingerprintDiversity: d.FingerprintDiversity,
			Evaluations:          d.Evaluations,
		})
	}
	return out
}
