// Package island runs several independent evolutions side by side and
// periodically migrates their best chromosomes around a ring.
package island

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"genomix/internal/evo"
	"genomix/internal/genotype"
)

// Island owns one Configuration and its Population. Only Merge and the
// accessors lock; evolution of one island never runs concurrently with
// itself.
type Island struct {
	ID      int
	mu      sync.Mutex
	cfg     *evo.Configuration
	pop     *genotype.Population
	breeder *evo.Breeder
}

func newIsland(id int, cfg *evo.Configuration) *Island {
	return &Island{
		ID:      id,
		cfg:     cfg,
		pop:     cfg.RandomPopulation(),
		breeder: evo.NewBreeder(),
	}
}

func (isl *Island) evolve(ctx context.Context, generations int) error {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	for g := 0; g < generations; g++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := isl.breeder.Evolve(isl.pop, isl.cfg)
		if err != nil {
			return fmt.Errorf("island %d: %w", isl.ID, err)
		}
		isl.pop = next
	}
	return nil
}

// Emigrants returns clones of the n fittest members.
func (isl *Island) Emigrants(n int) ([]*genotype.Chromosome, error) {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	if err := isl.breeder.Evaluate(isl.cfg, isl.pop); err != nil {
		return nil, fmt.Errorf("island %d: %w", isl.ID, err)
	}
	ranked := isl.pop.Ranked(isl.cfg.Evaluator())
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]*genotype.Chromosome, n)
	for i := range out {
		out[i] = ranked[i].Clone()
	}
	return out, nil
}

// Merge replaces the worst members with migrants. Migrants of a different
// shape are rejected before anything changes.
func (isl *Island) Merge(migrants []*genotype.Chromosome) error {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	sample := isl.cfg.Sample()
	for _, m := range migrants {
		if !m.SameShape(sample) {
			return fmt.Errorf("island %d: %w: migrant %q", isl.ID, genotype.ErrShapeMismatch, m.Signature())
		}
	}
	if err := isl.breeder.Evaluate(isl.cfg, isl.pop); err != nil {
		return err
	}

	index := make(map[*genotype.Chromosome]int, isl.pop.Size())
	for i := 0; i < isl.pop.Size(); i++ {
		index[isl.pop.At(i)] = i
	}
	ranked := isl.pop.Ranked(isl.cfg.Evaluator())
	for k, m := range migrants {
		if k >= len(ranked) {
			break
		}
		worst := ranked[len(ranked)-1-k]
		isl.pop.Replace(index[worst], m)
	}
	return isl.breeder.Evaluate(isl.cfg, isl.pop)
}

// Fittest returns the island's best member and its fitness.
func (isl *Island) Fittest() (*genotype.Chromosome, bool) {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	return isl.pop.Fittest(isl.cfg.Evaluator())
}

func (isl *Island) Population() *genotype.Population {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	return isl.pop.Clone()
}

func (isl *Island) Evaluations() int {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	return isl.breeder.Evaluations()
}

type Config struct {
	// Base is derived once per island with a distinct random stream.
	Base              *evo.Configuration
	Islands           int
	Epochs            int
	MigrationInterval int
	Migrants          int
	// StopAtGoal ends the run after the first epoch whose fittest member is
	// at least as fit as FitnessGoal.
	StopAtGoal  bool
	FitnessGoal float64
	// Timeout bounds wall time; it is checked between epochs.
	Timeout time.Duration
	// Observers receive a summary of all islands combined after every epoch.
	Observers []evo.Observer
}

type Result struct {
	Best        *genotype.Chromosome
	BestByEpoch []float64
	// Diagnostics summarizes the union of every island after each epoch.
	Diagnostics []evo.GenerationDiagnostics
	IslandBest  []float64
	Generations int
	Evaluations int
	Populations []*genotype.Population
	StopReason  evo.StopReason
}

// Coordinator evolves every island concurrently for MigrationInterval
// generations per epoch, then passes Migrants clones of each island's best
// to the next island in the ring.
type Coordinator struct {
	cfg     Config
	islands []*Island
	logger  *slog.Logger
	now     func() time.Time
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Base == nil {
		return nil, fmt.Errorf("%w: base configuration is required", evo.ErrInvalidConfiguration)
	}
	if cfg.Islands <= 0 {
		return nil, fmt.Errorf("%w: islands must be > 0", evo.ErrInvalidConfiguration)
	}
	if cfg.Epochs <= 0 || cfg.MigrationInterval <= 0 {
		return nil, fmt.Errorf("%w: epochs and migration interval must be > 0", evo.ErrInvalidConfiguration)
	}
	if cfg.Migrants < 0 || cfg.Migrants > cfg.Base.PopulationSize() {
		return nil, fmt.Errorf("%w: migrants must be in [0, population size]", evo.ErrInvalidConfiguration)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must be >= 0", evo.ErrInvalidConfiguration)
	}
	c := &Coordinator{cfg: cfg, logger: cfg.Base.Logger(), now: time.Now}
	for i := 0; i < cfg.Islands; i++ {
		c.islands = append(c.islands, newIsland(i, cfg.Base.Derive(uint64(i+1))))
	}
	return c, nil
}

func (c *Coordinator) Islands() []*Island {
	return append([]*Island(nil), c.islands...)
}

func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	ev := c.cfg.Base.Evaluator()
	start := c.now()
	history := make([]float64, 0, c.cfg.Epochs)
	diagnostics := make([]evo.GenerationDiagnostics, 0, c.cfg.Epochs)
	reason := evo.StopGenerations
	for epoch := 0; epoch < c.cfg.Epochs; epoch++ {
		if err := c.evolveAll(ctx); err != nil {
			return Result{}, err
		}
		if len(c.islands) > 1 && c.cfg.Migrants > 0 {
			if err := c.migrate(ctx); err != nil {
				return Result{}, err
			}
		}
		summary := c.summarize(epoch + 1)
		diagnostics = append(diagnostics, summary)
		for _, o := range c.cfg.Observers {
			o.ObserveGeneration(summary)
		}
		best, _ := c.best()
		if best != nil {
			v, _ := best.Fitness()
			history = append(history, v)
			c.logger.Debug("island epoch complete", slog.Int("epoch", epoch+1), slog.Float64("best", v))
		}

		if c.cfg.StopAtGoal && !ev.IsFitter(c.cfg.FitnessGoal, summary.BestFitness) {
			reason = evo.StopGoal
			break
		}
		if c.cfg.Timeout > 0 && c.now().Sub(start) >= c.cfg.Timeout {
			reason = evo.StopTimeout
			break
		}
	}

	res := Result{
		BestByEpoch: history,
		Diagnostics: diagnostics,
		Generations: len(diagnostics) * c.cfg.MigrationInterval,
		StopReason:  reason,
	}
	res.Best, _ = c.best()
	for _, isl := range c.islands {
		v := 0.0
		if b, ok := isl.Fittest(); ok {
			v, _ = b.Fitness()
		}
		res.IslandBest = append(res.IslandBest, v)
		res.Evaluations += isl.Evaluations()
		res.Populations = append(res.Populations, isl.Population())
	}
	if res.Best != nil {
		res.Best = res.Best.Clone()
	}
	return res, nil
}

func (c *Coordinator) evolveAll(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, isl := range c.islands {
		p.Go(func(ctx context.Context) error {
			return isl.evolve(ctx, c.cfg.MigrationInterval)
		})
	}
	return p.Wait()
}

// migrate sends each island's emigrants to its ring successor over a
// buffered channel; every island then merges what it received.
func (c *Coordinator) migrate(ctx context.Context) error {
	n := len(c.islands)
	inbox := make([]chan []*genotype.Chromosome, n)
	for i := range inbox {
		inbox[i] = make(chan []*genotype.Chromosome, 1)
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	for i, isl := range c.islands {
		p.Go(func(ctx context.Context) error {
			emigrants, err := isl.Emigrants(c.cfg.Migrants)
			if err != nil {
				return err
			}
			inbox[(i+1)%n] <- emigrants
			select {
			case migrants := <-inbox[i]:
				c.logger.Debug("migrants arrived", slog.Int("island", isl.ID), slog.Int("count", len(migrants)))
				return isl.Merge(migrants)
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return p.Wait()
}

// summarize reports every island as one population; Generation counts the
// generations each island has run so far.
func (c *Coordinator) summarize(epoch int) evo.GenerationDiagnostics {
	union := genotype.NewPopulation(len(c.islands) * c.cfg.Base.PopulationSize())
	evaluations := 0
	for _, isl := range c.islands {
		isl.mu.Lock()
		union.Add(isl.pop.Members()...)
		evaluations += isl.breeder.Evaluations()
		isl.mu.Unlock()
	}
	union.SetGeneration(epoch * c.cfg.MigrationInterval)
	d := evo.SummarizeGeneration(union, c.cfg.Base.Evaluator(), evaluations)
	d.Elapsed = c.cfg.MigrationInterval
	return d
}

func (c *Coordinator) best() (*genotype.Chromosome, bool) {
	ev := c.cfg.Base.Evaluator()
	var best *genotype.Chromosome
	for _, isl := range c.islands {
		b, ok := isl.Fittest()
		if !ok {
			continue
		}
		if best == nil || genotype.IsChromosomeFitter(ev, b, best) {
			best = b
		}
	}
	return best, best != nil
}
