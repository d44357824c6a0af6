package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	out, err := captureStdout(func() error {
		return run(context.Background(), args)
	})
	require.NoError(t, err, "output: %s", out)
	return out
}

func TestRunAndQueryCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "genomix.db")
	store := []string{"-store", "sqlite", "-db-path", dbPath}

	out := runCommand(t, append([]string{"run", "-run-id", "cli-1", "-pop", "12", "-gens", "4", "-seed", "7", "-log-level", "error"}, store...)...)
	assert.Contains(t, out, "run_id=cli-1 problem=sum-target generations=4")
	assert.Contains(t, out, "best_fitness=")

	out = runCommand(t, append([]string{"runs"}, store...)...)
	assert.Contains(t, out, "run_id=cli-1")
	assert.Contains(t, out, "evaluator=maximizing")

	out = runCommand(t, append([]string{"fitness", "-latest"}, store...)...)
	assert.Equal(t, 4, strings.Count(out, "generation="))

	out = runCommand(t, append([]string{"diagnostics", "-run-id", "cli-1", "-json"}, store...)...)
	var diagnostics []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &diagnostics))
	assert.Len(t, diagnostics, 4)

	out = runCommand(t, append([]string{"population", "-latest"}, store...)...)
	assert.Contains(t, out, "population=cli-1 generation=4 size=12")
	assert.Equal(t, 12, strings.Count(out, "index="))
}

func TestRunCommandJSONOutput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "genomix.db")
	out := runCommand(t, "run", "-store", "sqlite", "-db-path", dbPath, "-problem", "knapsack",
		"-pop", "10", "-gens", "3", "-operators", "crossover, mutation,reproduction", "-pre-selectors", "tournament",
		"-log-level", "error", "-json")

	var summary struct {
		RunID            string    `json:"run_id"`
		Problem          string    `json:"problem"`
		BestByGeneration []float64 `json:"best_by_generation"`
		BestGenes        []string  `json:"best_genes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "knapsack", summary.Problem)
	assert.Len(t, summary.BestByGeneration, 3)
	assert.Len(t, summary.BestGenes, 10)
}

func TestRunCommandWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "run.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
run_id = "from-config"
problem = "sphere"
population = 8
generations = 50
seed = 3

[stop]
timeout = "1m"
`), 0o644))

	out := runCommand(t, "run", "-config", configPath, "-gens", "2", "-store", "sqlite",
		"-db-path", filepath.Join(dir, "genomix.db"), "-log-level", "error")
	assert.Contains(t, out, "run_id=from-config problem=sphere generations=2")
}

func TestRunCommandIslandsStopAtGoal(t *testing.T) {
	out := runCommand(t, "run", "-store", "memory", "-problem", "sum-target", "-pop", "30", "-gens", "600",
		"-seed", "3", "-islands", "2", "-migration-interval", "5", "-stop-at-goal", "-log-level", "error")
	assert.Contains(t, out, "stop=goal")
	assert.Contains(t, out, "best_fitness=0.000000")
}

func TestRunCommandMutationSchedule(t *testing.T) {
	out := runCommand(t, "run", "-store", "memory", "-pop", "10", "-gens", "3", "-mutation-schedule", "linear",
		"-mutation-rate", "2", "-mutation-rate-end", "10", "-mutation-sigma", "0.2", "-log-level", "error")
	assert.Contains(t, out, "generations=3")
	require.Error(t, run(context.Background(), []string{"run", "-store", "memory", "-mutation-schedule", "cosine", "-log-level", "error"}))
}

func TestRunCommandErrors(t *testing.T) {
	ctx := context.Background()
	require.Error(t, run(ctx, nil))
	require.Error(t, run(ctx, []string{"evolve"}))
	require.Error(t, run(ctx, []string{"fitness", "-store", "memory"}))
	require.Error(t, run(ctx, []string{"fitness", "-store", "memory", "-run-id", "x", "-latest"}))
	require.Error(t, run(ctx, []string{"runs", "-limit", "0"}))
	require.Error(t, run(ctx, []string{"run", "-store", "memory", "-log-level", "loud"}))
	require.Error(t, run(ctx, []string{"run", "-store", "memory", "-problem", "nope", "-log-level", "error"}))
	require.Error(t, run(ctx, []string{"run", "-config", filepath.Join(t.TempDir(), "missing.toml")}))
}

func TestProblemsCommand(t *testing.T) {
	out := runCommand(t, "problems")
	for _, name := range []string{"sum-target", "make-change", "knapsack", "sphere"} {
		assert.Contains(t, out, "name="+name)
	}

	out = runCommand(t, "problems", "-json")
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Len(t, items, 4)
}

func TestRunsCommandEmptyStore(t *testing.T) {
	out := runCommand(t, "runs", "-store", "sqlite", "-db-path", filepath.Join(t.TempDir(), "empty.db"))
	assert.Equal(t, "no runs found\n", out)
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "genomix_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv, addr, err := serveMetrics("127.0.0.1:0", reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "genomix_test_total 1")
}

func TestNewLoggerUsesJSONOffTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	logger, err := newLogger("debug", f)
	require.NoError(t, err)
	logger.Debug("hello", "k", 1)

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "DEBUG", entry["level"])

	_, err = newLogger("verbose", f)
	require.Error(t, err)
}
