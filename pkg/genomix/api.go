// Package genomix is the public client for running and inspecting
// evolutionary searches over the built-in problems.
package genomix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"genomix/internal/evo"
	"genomix/internal/metrics"
	"genomix/internal/model"
	"genomix/internal/platform"
	"genomix/internal/problem"
	"genomix/internal/storage"
)

const (
	defaultDBPath            = "genomix.db"
	defaultProblem           = problem.SumTargetName
	defaultPopulation        = 50
	defaultGenerations       = 100
	defaultMigrationInterval = 10
	defaultMigrants          = 2
	defaultRunsLimit         = 20
)

// Mutation schedules accepted by RunRequest.MutationSchedule.
const (
	MutationScheduleFixed  = "fixed"
	MutationScheduleGenome = "genome"
	MutationScheduleLinear = "linear"
)

var defaultOperators = []string{"crossover", "mutation"}

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
	// Registerer enables per-run Prometheus metrics when set.
	Registerer prometheus.Registerer
}

type Client struct {
	store   storage.Store
	polis   *platform.Polis
	logger  *slog.Logger
	metrics *metrics.Collector
}

type RunRequest struct {
	RunID       string
	Problem     string
	Population  int
	Generations int
	Seed        int64

	// Operators, PreSelectors and PostSelectors are registry names. Empty
	// selector lists keep the default pre-selection.
	Operators     []string
	PreSelectors  []string
	PostSelectors []string
	CrossoverRate float64
	// MutationRate is the 1/n denominator; 0 keeps the operator default.
	MutationRate int
	// MutationSchedule is fixed (default), genome (n = genome length) or
	// linear (n moves from MutationRate to MutationRateEnd over the run).
	MutationSchedule string
	MutationRateEnd  int
	// MutationSigma > 0 draws normally distributed gene perturbations.
	MutationSigma float64

	DisablePreserveFittest bool
	VariablePopulation     bool
	MinPopulationPercent   int
	UsePool                bool

	StopAtGoal  bool
	FitnessGoal *float64
	Timeout     time.Duration

	RankFitness bool
	Workers     int

	Islands           int
	MigrationInterval int
	Migrants          int

	// ContinueFrom names a stored run whose final population seeds this one.
	ContinueFrom string
}

type RunSummary struct {
	RunID            string
	Problem          string
	BestByGeneration []float64
	FinalBestFitness float64
	BestGenes        []string
	BestDescription  string
	Generations      int
	Evaluations      int
	StopReason       string
	Duration         time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAt        time.Time
	Problem          string
	Evaluator        string
	Seed             int64
	Population       int
	Generations      int
	Islands          int
	Evaluations      int
	StopReason       string
	FinalBestFitness float64
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type PopulationRequest struct {
	RunID  string
	Latest bool
}

type ProblemItem struct {
	Name        string
	Description string
	Evaluator   string
	Goal        *float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	c := &Client{store: store, logger: logger}
	if opts.Registerer != nil {
		c.metrics, err = metrics.NewCollector(opts.Registerer)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) Close() error {
	if c.polis != nil {
		c.polis.Stop()
	}
	return storage.CloseIfSupported(c.store)
}

// ForgetMetrics drops the Prometheus series of a finished run. Series are
// kept after Run returns so a scrape can still read the final values.
func (c *Client) ForgetMetrics(runID string) {
	if c.metrics != nil {
		c.metrics.Forget(runID)
	}
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Problem == "" {
		req.Problem = defaultProblem
	}
	if req.Population <= 0 && req.ContinueFrom == "" {
		req.Population = defaultPopulation
	}
	if req.Generations <= 0 {
		req.Generations = defaultGenerations
	}
	if len(req.Operators) == 0 {
		req.Operators = defaultOperators
	}
	if req.Islands > 1 {
		if req.MigrationInterval <= 0 {
			req.MigrationInterval = defaultMigrationInterval
		}
		if req.Migrants <= 0 {
			req.Migrants = defaultMigrants
		}
	}
	if req.CrossoverRate < 0 || req.CrossoverRate > 1 {
		return RunSummary{}, errors.New("crossover rate must be in [0, 1]")
	}
	if req.MutationRate < 0 || req.MutationRateEnd < 0 {
		return RunSummary{}, errors.New("mutation rate must be >= 0")
	}
	if req.MutationSigma < 0 {
		return RunSummary{}, errors.New("mutation sigma must be >= 0")
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	operators, err := operatorsFromNames(req)
	if err != nil {
		return RunSummary{}, err
	}
	preSelectors, err := selectorsFromNames(req.PreSelectors)
	if err != nil {
		return RunSummary{}, err
	}
	postSelectors, err := selectorsFromNames(req.PostSelectors)
	if err != nil {
		return RunSummary{}, err
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	var observers []evo.Observer
	if c.metrics != nil {
		observers = append(observers, c.metrics.Observer(req.RunID))
	}

	result, err := p.RunEvolution(ctx, platform.RunConfig{
		RunID:                  req.RunID,
		Problem:                req.Problem,
		PopulationSize:         req.Population,
		Generations:            req.Generations,
		Seed:                   req.Seed,
		Operators:              operators,
		PreSelectors:           preSelectors,
		PostSelectors:          postSelectors,
		DisablePreserveFittest: req.DisablePreserveFittest,
		VariablePopulationSize: req.VariablePopulation,
		MinimumPopSizePercent:  req.MinPopulationPercent,
		UsePool:                req.UsePool,
		StopAtGoal:             req.StopAtGoal,
		FitnessGoal:            req.FitnessGoal,
		Timeout:                req.Timeout,
		RankFitness:            req.RankFitness,
		Workers:                req.Workers,
		Islands:                req.Islands,
		MigrationInterval:      req.MigrationInterval,
		Migrants:               req.Migrants,
		InitialPopulation:      req.ContinueFrom,
		Observers:              observers,
	})
	if err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            result.Run.ID,
		Problem:          result.Run.Problem,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: result.Run.BestFitness,
		BestGenes:        append([]string(nil), result.Run.BestGenes...),
		BestDescription:  result.BestDescription,
		Generations:      result.Run.Generations,
		Evaluations:      result.Run.Evaluations,
		StopReason:       result.Run.StopReason,
		Duration:         time.Duration(result.Run.DurationMillis) * time.Millisecond,
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}

	out := make([]RunItem, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunItem{
			RunID:            r.ID,
			CreatedAt:        r.CreatedAt,
			Problem:          r.Problem,
			Evaluator:        r.Evaluator,
			Seed:             r.Seed,
			Population:       r.PopulationSize,
			Generations:      r.Generations,
			Islands:          r.Islands,
			Evaluations:      r.Evaluations,
			StopReason:       r.StopReason,
			FinalBestFitness: r.BestFitness,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "fitness history")
	if err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "diagnostics")
	if err != nil {
		return nil, err
	}

	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

// Population returns the final population a run persisted.
func (c *Client) Population(ctx context.Context, req PopulationRequest) (model.PopulationRecord, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "population")
	if err != nil {
		return model.PopulationRecord{}, err
	}
	population, ok, err := c.store.GetPopulation(ctx, runID)
	if err != nil {
		return model.PopulationRecord{}, err
	}
	if !ok {
		return model.PopulationRecord{}, fmt.Errorf("population not found for run id: %s", runID)
	}
	return population, nil
}

func (c *Client) Problems(ctx context.Context) ([]ProblemItem, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}
	summaries := p.Problems()
	out := make([]ProblemItem, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, ProblemItem{
			Name:        s.Name,
			Description: s.Description,
			Evaluator:   s.Evaluator,
			Goal:        s.Goal,
		})
	}
	return out, nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return "", err
	}
	if latest {
		runs, err := c.store.ListRuns(ctx)
		if err != nil {
			return "", err
		}
		if len(runs) == 0 {
			return "", errors.New("no runs available")
		}
		return runs[0].ID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store, Logger: c.logger})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}

func operatorsFromNames(req RunRequest) ([]evo.GeneticOperator, error) {
	calculator, err := mutationCalculator(req)
	if err != nil {
		return nil, err
	}
	out := make([]evo.GeneticOperator, 0, len(req.Operators))
	for _, name := range req.Operators {
		op, err := evo.ResolveOperator(name)
		if err != nil {
			return nil, err
		}
		switch typed := op.(type) {
		case *evo.CrossoverOperator:
			if req.CrossoverRate > 0 {
				typed.Rate = req.CrossoverRate
			}
		case *evo.MutationOperator:
			if req.MutationRate > 0 {
				typed.RateDenominator = req.MutationRate
			}
			typed.RateCalculator = calculator
			typed.Sigma = req.MutationSigma
		}
		out = append(out, op)
	}
	return out, nil
}

func mutationCalculator(req RunRequest) (evo.MutationRateCalculator, error) {
	switch req.MutationSchedule {
	case "", MutationScheduleFixed:
		return nil, nil
	case MutationScheduleGenome:
		return evo.DefaultMutationRate{}, nil
	case MutationScheduleLinear:
		if req.MutationRateEnd <= 0 {
			return nil, errors.New("linear mutation schedule needs a mutation rate end > 0")
		}
		from := req.MutationRate
		if from <= 0 {
			from = evo.DefaultMutationRateDenominator
		}
		return evo.LinearMutationRate{From: from, To: req.MutationRateEnd, Generations: req.Generations}, nil
	default:
		return nil, fmt.Errorf("unknown mutation schedule %q", req.MutationSchedule)
	}
}

func selectorsFromNames(names []string) ([]evo.NaturalSelector, error) {
	out := make([]evo.NaturalSelector, 0, len(names))
	for _, name := range names {
		s, err := evo.ResolveSelector(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
