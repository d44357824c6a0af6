package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"genomix/internal/storage"
	"genomix/pkg/genomix"
)

const (
	defaultStoreKind = storage.KindSQLite
	defaultDBPath    = "genomix.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "population":
		return runPopulation(ctx, args[1:])
	case "problems":
		return runProblems(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config TOML path; explicit flags override it")
	runID := fs.String("run-id", "", "explicit run id (default: random uuid)")
	problemName := fs.String("problem", "sum-target", "problem name (see: genomixctl problems)")
	population := fs.Int("pop", 50, "population size")
	generations := fs.Int("gens", 100, "generation count")
	seed := fs.Int64("seed", 0, "rng seed (0 uses the fixed default seed)")
	operators := fs.String("operators", "crossover,mutation", "comma separated genetic operators: crossover|mutation|reproduction")
	preSelectors := fs.String("pre-selectors", "", "comma separated selectors run before operators: best|roulette|tournament")
	postSelectors := fs.String("post-selectors", "", "comma separated selectors run after operators")
	crossoverRate := fs.Float64("crossover-rate", 0, "crossover rate in [0,1] (0 keeps the default 0.35)")
	mutationRate := fs.Int("mutation-rate", 0, "mutation rate denominator n for 1/n (0 keeps the default 12)")
	mutationSchedule := fs.String("mutation-schedule", "fixed", "mutation rate schedule: fixed|genome|linear")
	mutationRateEnd := fs.Int("mutation-rate-end", 0, "with -mutation-schedule linear, the denominator reached at the last generation")
	mutationSigma := fs.Float64("mutation-sigma", 0, "draw gene perturbations from a normal distribution with this sigma (0 draws uniformly)")
	noPreserve := fs.Bool("no-preserve-fittest", false, "allow the fittest chromosome to be lost between generations")
	variablePop := fs.Bool("variable-pop", false, "let population size float instead of trimming to -pop")
	minPopPercent := fs.Int("min-pop-percent", 0, "with -variable-pop, pad the population up to this percent of -pop")
	usePool := fs.Bool("pool", false, "recycle chromosomes through a chromosome pool")
	stopAtGoal := fs.Bool("stop-at-goal", false, "stop once the fitness goal is reached")
	fitnessGoal := fs.Float64("fitness-goal", 0, "fitness goal (default: the problem's own goal)")
	timeout := fs.Duration("timeout", 0, "wall time limit checked between generations (0 disables)")
	rankFitness := fs.Bool("rank-fitness", false, "score members by rank within the population")
	workers := fs.Int("workers", 0, "evaluate fitness on this many goroutines (<=1 evaluates serially)")
	islands := fs.Int("islands", 0, "island count (<=1 runs a single population)")
	migrationInterval := fs.Int("migration-interval", 0, "generations between migrations (default 10)")
	migrants := fs.Int("migrants", 0, "chromosomes each island sends per migration (default 2)")
	continueFrom := fs.String("continue-from", "", "continue from the final population of a stored run")
	storeKind := fs.String("store", defaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = genomix.RunRequest{
			Problem:     *problemName,
			Population:  *population,
			Generations: *generations,
			Operators:   splitList(*operators),
		}
	}
	err = overrideFromFlags(&req, setFlags, map[string]any{
		"run-id":              *runID,
		"problem":             *problemName,
		"pop":                 *population,
		"gens":                *generations,
		"seed":                *seed,
		"operators":           *operators,
		"pre-selectors":       *preSelectors,
		"post-selectors":      *postSelectors,
		"crossover-rate":      *crossoverRate,
		"mutation-rate":       *mutationRate,
		"mutation-schedule":   *mutationSchedule,
		"mutation-rate-end":   *mutationRateEnd,
		"mutation-sigma":      *mutationSigma,
		"no-preserve-fittest": *noPreserve,
		"variable-pop":        *variablePop,
		"min-pop-percent":     *minPopPercent,
		"pool":                *usePool,
		"stop-at-goal":        *stopAtGoal,
		"fitness-goal":        *fitnessGoal,
		"timeout":             *timeout,
		"rank-fitness":        *rankFitness,
		"workers":             *workers,
		"islands":             *islands,
		"migration-interval":  *migrationInterval,
		"migrants":            *migrants,
		"continue-from":       *continueFrom,
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(*logLevel, os.Stderr)
	if err != nil {
		return err
	}

	opts := genomix.Options{StoreKind: *storeKind, DBPath: *dbPath, Logger: logger}
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts.Registerer = reg
		srv, addr, err := serveMetrics(*metricsAddr, reg)
		if err != nil {
			return err
		}
		logger.Info("serving metrics", "addr", addr.String())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	client, err := genomix.New(opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	if *jsonOut {
		type runOutput struct {
			RunID            string    `json:"run_id"`
			Problem          string    `json:"problem"`
			Generations      int       `json:"generations"`
			Evaluations      int       `json:"evaluations"`
			StopReason       string    `json:"stop_reason"`
			FinalBestFitness float64   `json:"final_best_fitness"`
			BestGenes        []string  `json:"best_genes"`
			Best             string    `json:"best"`
			BestByGeneration []float64 `json:"best_by_generation"`
			DurationMillis   int64     `json:"duration_ms"`
		}
		return writeJSON(runOutput{
			RunID:            summary.RunID,
			Problem:          summary.Problem,
			Generations:      summary.Generations,
			Evaluations:      summary.Evaluations,
			StopReason:       summary.StopReason,
			FinalBestFitness: summary.FinalBestFitness,
			BestGenes:        summary.BestGenes,
			Best:             summary.BestDescription,
			BestByGeneration: summary.BestByGeneration,
			DurationMillis:   summary.Duration.Milliseconds(),
		})
	}

	fmt.Printf("run_id=%s problem=%s generations=%d evaluations=%s stop=%s duration=%s\n",
		summary.RunID,
		summary.Problem,
		summary.Generations,
		humanize.Comma(int64(summary.Evaluations)),
		summary.StopReason,
		summary.Duration,
	)
	fmt.Printf("best_fitness=%.6f best=%s\n", summary.FinalBestFitness, summary.BestDescription)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", defaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := genomix.New(genomix.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, genomix.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if *jsonOut {
		type runsItem struct {
			RunID            string    `json:"run_id"`
			CreatedAt        time.Time `json:"created_at"`
			Problem          string    `json:"problem"`
			Evaluator        string    `json:"evaluator"`
			Seed             int64     `json:"seed"`
			PopulationSize   int       `json:"population_size"`
			Generations      int       `json:"generations"`
			Islands          int       `json:"islands,omitempty"`
			Evaluations      int       `json:"evaluations"`
			StopReason       string    `json:"stop_reason"`
			FinalBestFitness float64   `json:"final_best_fitness"`
		}
		out := make([]runsItem, 0, len(items))
		for _, item := range items {
			out = append(out, runsItem{
				RunID:            item.RunID,
				CreatedAt:        item.CreatedAt,
				Problem:          item.Problem,
				Evaluator:        item.Evaluator,
				Seed:             item.Seed,
				PopulationSize:   item.Population,
				Generations:      item.Generations,
				Islands:          item.Islands,
				Evaluations:      item.Evaluations,
				StopReason:       item.StopReason,
				FinalBestFitness: item.FinalBestFitness,
			})
		}
		return writeJSON(out)
	}

	for _, item := range items {
		fmt.Printf("run_id=%s created=%q problem=%s evaluator=%s seed=%d pop=%d gens=%d evaluations=%s stop=%s final_best_fitness=%.6f\n",
			item.RunID,
			humanize.Time(item.CreatedAt),
			item.Problem,
			item.Evaluator,
			item.Seed,
			item.Population,
			item.Generations,
			humanize.Comma(int64(item.Evaluations)),
			item.StopReason,
			item.FinalBestFitness,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", defaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "fitness"); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := genomix.New(genomix.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, genomix.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		return writeJSON(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i+1, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", defaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "diagnostics"); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := genomix.New(genomix.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, genomix.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		return writeJSON(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f worst=%.6f stddev=%.6f size=%d distinct=%d evaluations=%d\n",
			d.Generation,
			d.BestFitness,
			d.MeanFitness,
			d.WorstFitness,
			d.StdDevFitness,
			d.PopulationSize,
			d.FingerprintDiversity,
			d.Evaluations,
		)
	}
	return nil
}

func runPopulation(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("population", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the final population of the most recent run")
	jsonOut := fs.Bool("json", false, "emit population as JSON")
	storeKind := fs.String("store", defaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "population"); err != nil {
		return err
	}

	client, err := genomix.New(genomix.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	population, err := client.Population(ctx, genomix.PopulationRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(population)
	}

	fmt.Printf("population=%s generation=%d size=%d signature=%s\n",
		population.ID,
		population.Generation,
		len(population.Chromosomes),
		population.Signature,
	)
	for i, c := range population.Chromosomes {
		fitness := "unevaluated"
		if c.Fitness != nil {
			fitness = fmt.Sprintf("%.6f", *c.Fitness)
		}
		fmt.Printf("index=%d fitness=%s genes=%s\n", i, fitness, strings.Join(c.Genes, ","))
	}
	return nil
}

func runProblems(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("problems", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit problems as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := genomix.New(genomix.Options{StoreKind: storage.KindMemory})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Problems(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		type problemItem struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Evaluator   string   `json:"evaluator"`
			Goal        *float64 `json:"goal,omitempty"`
		}
		out := make([]problemItem, 0, len(items))
		for _, item := range items {
			out = append(out, problemItem(item))
		}
		return writeJSON(out)
	}

	for _, item := range items {
		goal := "none"
		if item.Goal != nil {
			goal = fmt.Sprintf("%g", *item.Goal)
		}
		fmt.Printf("name=%s evaluator=%s goal=%s description=%q\n", item.Name, item.Evaluator, goal, item.Description)
	}
	return nil
}

func checkRunSelector(runID string, latest bool, command string) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: genomixctl <run|runs|fitness|diagnostics|population|problems> [flags]", msg)
}
