package genomix

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomix/internal/evo"
	"genomix/internal/problem"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.StoreKind == "" {
		opts.StoreKind = "memory"
	}
	client, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientRunAndQueries(t *testing.T) {
	ctx := t.Context()
	client := newTestClient(t, Options{})

	summary, err := client.Run(ctx, RunRequest{
		Problem:     problem.SumTargetName,
		Population:  20,
		Generations: 6,
		Seed:        42,
	})
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)
	assert.Equal(t, problem.SumTargetName, summary.Problem)
	require.Len(t, summary.BestByGeneration, 6)
	assert.Equal(t, summary.BestByGeneration[5], summary.FinalBestFitness)
	assert.Len(t, summary.BestGenes, 4)
	assert.NotEmpty(t, summary.BestDescription)

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
	assert.Equal(t, "maximizing", runs[0].Evaluator)
	assert.Equal(t, 20, runs[0].Population)

	history, err := client.FitnessHistory(ctx, FitnessHistoryRequest{Latest: true, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, summary.BestByGeneration[:3], history)

	diagnostics, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: summary.RunID})
	require.NoError(t, err)
	require.Len(t, diagnostics, 6)
	assert.Equal(t, 6, diagnostics[5].Generation)

	population, err := client.Population(ctx, PopulationRequest{Latest: true})
	require.NoError(t, err)
	assert.Len(t, population.Chromosomes, 20)
}

func TestClientRunDefaults(t *testing.T) {
	client := newTestClient(t, Options{})
	summary, err := client.Run(t.Context(), RunRequest{Generations: 2})
	require.NoError(t, err)
	assert.Equal(t, problem.SumTargetName, summary.Problem)

	runs, err := client.Runs(t.Context(), RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, defaultPopulation, runs[0].Population)
}

func TestClientRunRejectsBadRequests(t *testing.T) {
	ctx := t.Context()
	client := newTestClient(t, Options{})

	_, err := client.Run(ctx, RunRequest{Operators: []string{"inversion"}, Generations: 1})
	require.ErrorIs(t, err, evo.ErrOperatorNotFound)

	_, err = client.Run(ctx, RunRequest{PreSelectors: []string{"lexicase"}, Generations: 1})
	require.ErrorIs(t, err, evo.ErrSelectorNotFound)

	_, err = client.Run(ctx, RunRequest{CrossoverRate: 1.5, Generations: 1})
	require.Error(t, err)

	_, err = client.Run(ctx, RunRequest{MutationRate: -1, Generations: 1})
	require.Error(t, err)

	_, err = client.Run(ctx, RunRequest{Problem: "nope", Generations: 1})
	require.ErrorIs(t, err, problem.ErrProblemNotFound)
}

func TestClientRunWithNamedOperatorsAndIslands(t *testing.T) {
	ctx := t.Context()
	client := newTestClient(t, Options{})

	summary, err := client.Run(ctx, RunRequest{
		RunID:         "islands",
		Problem:       problem.KnapsackName,
		Population:    12,
		Generations:   6,
		Operators:     []string{"crossover", "mutation", "reproduction"},
		PreSelectors:  []string{"tournament"},
		PostSelectors: []string{"best"},
		CrossoverRate: 0.5,
		MutationRate:  4,
		Islands:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, "islands", summary.RunID)
	assert.Equal(t, defaultMigrationInterval, summary.Generations)
	assert.Len(t, summary.BestByGeneration, 1)
}

func TestOperatorsFromNamesAppliesMutationSchedule(t *testing.T) {
	mutation := func(t *testing.T, req RunRequest) *evo.MutationOperator {
		t.Helper()
		req.Operators = []string{"mutation"}
		ops, err := operatorsFromNames(req)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		op, ok := ops[0].(*evo.MutationOperator)
		require.True(t, ok)
		return op
	}

	fixed := mutation(t, RunRequest{MutationRate: 5})
	assert.Equal(t, 5, fixed.RateDenominator)
	assert.Nil(t, fixed.RateCalculator)

	genome := mutation(t, RunRequest{MutationSchedule: MutationScheduleGenome, MutationSigma: 0.2})
	assert.Equal(t, evo.DefaultMutationRate{}, genome.RateCalculator)
	assert.Equal(t, 0.2, genome.Sigma)

	linear := mutation(t, RunRequest{MutationSchedule: MutationScheduleLinear, MutationRateEnd: 30, Generations: 40})
	assert.Equal(t, evo.LinearMutationRate{From: evo.DefaultMutationRateDenominator, To: 30, Generations: 40}, linear.RateCalculator)

	_, err := operatorsFromNames(RunRequest{Operators: []string{"mutation"}, MutationSchedule: MutationScheduleLinear})
	assert.Error(t, err)
	_, err = operatorsFromNames(RunRequest{Operators: []string{"mutation"}, MutationSchedule: "cosine"})
	assert.Error(t, err)
}

func TestClientRunWithLinearMutationSchedule(t *testing.T) {
	client := newTestClient(t, Options{})
	summary, err := client.Run(t.Context(), RunRequest{
		Population:       10,
		Generations:      5,
		MutationSchedule: MutationScheduleLinear,
		MutationRate:     2,
		MutationRateEnd:  20,
		MutationSigma:    0.1,
	})
	require.NoError(t, err)
	assert.Len(t, summary.BestByGeneration, 5)

	_, err = client.Run(t.Context(), RunRequest{Generations: 1, MutationSigma: -1})
	assert.Error(t, err)
}

func TestClientContinueFrom(t *testing.T) {
	ctx := t.Context()
	client := newTestClient(t, Options{})

	first, err := client.Run(ctx, RunRequest{RunID: "first", Problem: problem.SphereName, Population: 10, Generations: 3})
	require.NoError(t, err)
	second, err := client.Run(ctx, RunRequest{Problem: problem.SphereName, Generations: 3, ContinueFrom: first.RunID})
	require.NoError(t, err)
	assert.LessOrEqual(t, second.FinalBestFitness, first.FinalBestFitness)

	population, err := client.Population(ctx, PopulationRequest{RunID: second.RunID})
	require.NoError(t, err)
	assert.Equal(t, 6, population.Generation)
	assert.Len(t, population.Chromosomes, 10)
}

func TestClientQueriesRequireRun(t *testing.T) {
	ctx := t.Context()
	client := newTestClient(t, Options{})

	_, err := client.FitnessHistory(ctx, FitnessHistoryRequest{Latest: true})
	require.Error(t, err)
	_, err = client.FitnessHistory(ctx, FitnessHistoryRequest{})
	require.Error(t, err)
	_, err = client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: "x", Latest: true})
	require.Error(t, err)
	_, err = client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: "x", Limit: -1})
	require.Error(t, err)
	_, err = client.Diagnostics(ctx, DiagnosticsRequest{RunID: "missing"})
	require.Error(t, err)
	_, err = client.Population(ctx, PopulationRequest{RunID: "missing"})
	require.Error(t, err)
}

func TestClientMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := newTestClient(t, Options{Registerer: reg})

	summary, err := client.Run(t.Context(), RunRequest{RunID: "metered", Population: 10, Generations: 4})
	require.NoError(t, err)
	assert.Equal(t, "metered", summary.RunID)

	count, err := testutil.GatherAndCount(reg, "genomix_generations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	client.ForgetMetrics("metered")
	count, err = testutil.GatherAndCount(reg, "genomix_generations_total")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestClientMetricsCountIslandGenerations(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := newTestClient(t, Options{Registerer: reg})

	_, err := client.Run(t.Context(), RunRequest{
		RunID:             "archipelago",
		Population:        8,
		Generations:       6,
		Islands:           2,
		MigrationInterval: 3,
	})
	require.NoError(t, err)

	expected := strings.NewReader(`
# HELP genomix_generations_total Generations completed.
# TYPE genomix_generations_total counter
genomix_generations_total{run_id="archipelago"} 6
`)
	require.NoError(t, testutil.GatherAndCompare(reg, expected, "genomix_generations_total"))
}

func TestClientSQLiteStore(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "genomix.db")

	client := newTestClient(t, Options{StoreKind: "sqlite", DBPath: path})
	summary, err := client.Run(ctx, RunRequest{Population: 8, Generations: 2})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	reopened := newTestClient(t, Options{StoreKind: "sqlite", DBPath: path})
	history, err := reopened.FitnessHistory(ctx, FitnessHistoryRequest{RunID: summary.RunID})
	require.NoError(t, err)
	assert.Equal(t, summary.BestByGeneration, history)
}

func TestClientProblems(t *testing.T) {
	client := newTestClient(t, Options{})
	items, err := client.Problems(t.Context())
	require.NoError(t, err)

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	assert.Equal(t, problem.List(), names)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(Options{StoreKind: "etcd"})
	require.Error(t, err)
}
