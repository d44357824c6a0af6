package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomix/internal/model"
)

func sampleRun(id string, created time.Time) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: Versioned(),
		ID:              id,
		Problem:         "sum-target",
		Evaluator:       "maximizing",
		Seed:            7,
		PopulationSize:  20,
		Generations:     12,
		Evaluations:     240,
		StopReason:      "goal",
		BestFitness:     0,
		BestGenes:       []string{"30", "20", "10", "33"},
		CreatedAt:       created.UTC(),
		DurationMillis:  4,
	}
}

func samplePopulationRecord(id string) model.PopulationRecord {
	fit := -1.5
	return model.PopulationRecord{
		VersionedRecord: Versioned(),
		ID:              id,
		RunID:           "run-1",
		Generation:      3,
		Signature:       "integer[0,5]",
		Chromosomes: []model.ChromosomeRecord{
			{Genes: []string{"1"}, Fitness: &fit},
			{Genes: []string{"4"}},
		},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := t.Context()
	require.NoError(t, store.Init(ctx))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.SaveRun(ctx, sampleRun("older", base)))
	require.NoError(t, store.SaveRun(ctx, sampleRun("newer", base.Add(time.Minute))))

	run, ok, err := store.GetRun(ctx, "older")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleRun("older", base), run)

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].ID)
	assert.Equal(t, "older", runs[1].ID)

	updated := sampleRun("older", base)
	updated.BestFitness = 5
	require.NoError(t, store.SaveRun(ctx, updated))
	run, _, err = store.GetRun(ctx, "older")
	require.NoError(t, err)
	assert.Equal(t, 5.0, run.BestFitness)

	pop := samplePopulationRecord("pop-1")
	require.NoError(t, store.SavePopulation(ctx, pop))
	gotPop, ok, err := store.GetPopulation(ctx, "pop-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pop, gotPop)
	require.NotNil(t, gotPop.Chromosomes[0].Fitness)
	assert.Nil(t, gotPop.Chromosomes[1].Fitness)

	history := []float64{-4, -2, -1, 0}
	require.NoError(t, store.SaveFitnessHistory(ctx, "run-1", history))
	gotHistory, ok, err := store.GetFitnessHistory(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, history, gotHistory)

	_, ok, err = store.GetFitnessHistory(ctx, "run-2")
	require.NoError(t, err)
	assert.False(t, ok)

	diagnostics := []model.GenerationDiagnostics{
		{Generation: 1, BestFitness: -2, MeanFitness: -5, WorstFitness: -9, StdDevFitness: 1.5, PopulationSize: 20, FingerprintDiversity: 17, Evaluations: 40},
	}
	require.NoError(t, store.SaveGenerationDiagnostics(ctx, "run-1", diagnostics))
	gotDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, diagnostics, gotDiagnostics)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	ctx := t.Context()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	history := []float64{1, 2}
	require.NoError(t, store.SaveFitnessHistory(ctx, "r", history))
	history[0] = 99

	got, _, err := store.GetFitnessHistory(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)

	pop := samplePopulationRecord("p")
	require.NoError(t, store.SavePopulation(ctx, pop))
	*pop.Chromosomes[0].Fitness = 42
	pop.Chromosomes[0].Genes[0] = "5"

	gotPop, _, err := store.GetPopulation(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, -1.5, *gotPop.Chromosomes[0].Fitness)
	assert.Equal(t, "1", gotPop.Chromosomes[0].Genes[0])
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	err := store.SaveRun(t.Context(), sampleRun("r", time.Now()))
	require.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "genomix.db"))
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "genomix.db")

	first := NewSQLiteStore(path)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.SaveFitnessHistory(ctx, "run-1", []float64{1, 2, 3}))
	require.NoError(t, first.Close())

	second := NewSQLiteStore(path)
	require.NoError(t, second.Init(ctx))
	t.Cleanup(func() { _ = second.Close() })

	got, ok, err := second.GetFitnessHistory(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	require.Error(t, NewSQLiteStore("").Init(t.Context()))
}

func TestSQLiteStoreBeforeInit(t *testing.T) {
	_, _, err := NewSQLiteStore("unused.db").GetRun(t.Context(), "x")
	require.Error(t, err)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore("", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	require.NoError(t, CloseIfSupported(store))

	store, err = NewStore(KindSQLite, filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, CloseIfSupported(store))

	_, err = NewStore("postgres", "")
	require.Error(t, err)
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	run := sampleRun("r", time.Now())
	run.SchemaVersion = CurrentSchemaVersion + 1
	data, err := EncodeRun(run)
	require.NoError(t, err)

	_, err = DecodeRun(data)
	require.ErrorIs(t, err, ErrVersionMismatch)

	pop := samplePopulationRecord("p")
	pop.CodecVersion = 0
	data, err = EncodePopulation(pop)
	require.NoError(t, err)

	_, err = DecodePopulation(data)
	require.ErrorIs(t, err, ErrVersionMismatch)
}
