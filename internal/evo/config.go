package evo

import (
	"fmt"
	"log/slog"

	"genomix/internal/genotype"
	"genomix/internal/rng"
)

// Configuration binds the collaborators of one evolution run. It is built
// once by a Builder and never changes afterwards. A Configuration owns a
// random source and an optional chromosome pool, so it must be used by one
// goroutine at a time.
type Configuration struct {
	sample        *genotype.Chromosome
	fitness       FitnessFunction
	bulk          BulkFitnessFunction
	evaluator     genotype.FitnessEvaluator
	seed          int64
	src           rng.Source
	operators     []GeneticOperator
	preSelectors  []NaturalSelector
	postSelectors []NaturalSelector

	populationSize    int
	preserveFittest   bool
	keepSizeConstant  bool
	minPopSizePercent int
	poolLimit         int
	pool              *genotype.ChromosomePool
	logger            *slog.Logger
}

func (c *Configuration) Sample() *genotype.Chromosome { return c.sample }

func (c *Configuration) FitnessFunction() FitnessFunction { return c.fitness }

func (c *Configuration) BulkFitnessFunction() BulkFitnessFunction { return c.bulk }

func (c *Configuration) Evaluator() genotype.FitnessEvaluator { return c.evaluator }

func (c *Configuration) Random() rng.Source { return c.src }

func (c *Configuration) Seed() int64 { return c.seed }

func (c *Configuration) Operators() []GeneticOperator {
	return append([]GeneticOperator(nil), c.operators...)
}

func (c *Configuration) PreSelectors() []NaturalSelector {
	return append([]NaturalSelector(nil), c.preSelectors...)
}

func (c *Configuration) PostSelectors() []NaturalSelector {
	return append([]NaturalSelector(nil), c.postSelectors...)
}

func (c *Configuration) PopulationSize() int { return c.populationSize }

func (c *Configuration) PreserveFittest() bool { return c.preserveFittest }

func (c *Configuration) KeepPopulationSizeConstant() bool { return c.keepSizeConstant }

func (c *Configuration) MinimumPopSizePercent() int { return c.minPopSizePercent }

// Pool returns the chromosome pool, or nil when pooling is disabled.
func (c *Configuration) Pool() *genotype.ChromosomePool { return c.pool }

func (c *Configuration) Logger() *slog.Logger { return c.logger }

// NewChromosome returns a randomly initialized chromosome shaped like the
// sample, reusing a pooled instance when one is available.
func (c *Configuration) NewChromosome() *genotype.Chromosome {
	if c.pool != nil {
		if reused, ok := c.pool.Acquire(c.sample.Signature()); ok {
			reused.Randomize(c.src)
			return reused
		}
	}
	return c.sample.CloneStructure(c.src)
}

// RandomPopulation returns PopulationSize fresh chromosomes.
func (c *Configuration) RandomPopulation() *genotype.Population {
	pop := genotype.NewPopulation(c.populationSize)
	for i := 0; i < c.populationSize; i++ {
		pop.Add(c.NewChromosome())
	}
	return pop
}

// Derive returns a copy with its own random stream and pool. Islands use it
// to run one setup several times in parallel.
func (c *Configuration) Derive(stream uint64) *Configuration {
	out := *c
	out.seed = rng.Derive(c.seed, stream)
	out.src = rng.New(out.seed)
	out.operators = c.Operators()
	out.preSelectors = c.PreSelectors()
	out.postSelectors = c.PostSelectors()
	if c.pool != nil {
		out.pool = genotype.NewChromosomePool(c.poolLimit)
	}
	return &out
}

// Builder assembles a Configuration. The first Build locks the builder:
// later setters record ErrConfigurationLocked and Build returns it.
type Builder struct {
	cfg     Configuration
	src     rng.Source
	usePool bool
	built   *Configuration
	err     error
}

// NewBuilder starts from an empty strategy bundle with a maximizing
// evaluator and seed policy 0.
func NewBuilder() *Builder {
	return &Builder{cfg: Configuration{evaluator: genotype.MaximizingEvaluator{}}}
}

// NewDefaultBuilder preloads the classic strategy: best-chromosomes
// pre-selection, crossover then mutation, preserve fittest and constant
// population size.
func NewDefaultBuilder() *Builder {
	return NewBuilder().
		PreSelector(&BestChromosomesSelector{OriginalRate: 0.90}).
		Operators(
			&CrossoverOperator{Rate: DefaultCrossoverRate},
			&MutationOperator{RateDenominator: DefaultMutationRateDenominator},
		).
		PreserveFittest(true).
		KeepPopulationSizeConstant(true).
		MinimumPopSizePercent(0)
}

func (b *Builder) locked(setter string) bool {
	if b.built == nil {
		return false
	}
	if b.err == nil {
		b.err = fmt.Errorf("%w: %s after Build", ErrConfigurationLocked, setter)
	}
	return true
}

func (b *Builder) SampleChromosome(c *genotype.Chromosome) *Builder {
	if !b.locked("SampleChromosome") {
		b.cfg.sample = c
	}
	return b
}

func (b *Builder) FitnessFunction(f FitnessFunction) *Builder {
	if !b.locked("FitnessFunction") {
		b.cfg.fitness = f
	}
	return b
}

func (b *Builder) BulkFitnessFunction(f BulkFitnessFunction) *Builder {
	if !b.locked("BulkFitnessFunction") {
		b.cfg.bulk = f
	}
	return b
}

func (b *Builder) Evaluator(ev genotype.FitnessEvaluator) *Builder {
	if !b.locked("Evaluator") {
		b.cfg.evaluator = ev
	}
	return b
}

// Seed selects the deterministic PCG stream. Seed 0 maps to rng.DefaultSeed.
func (b *Builder) Seed(seed int64) *Builder {
	if !b.locked("Seed") {
		b.cfg.seed = seed
		b.src = nil
	}
	return b
}

// RandomSource overrides the seeded source.
func (b *Builder) RandomSource(src rng.Source) *Builder {
	if !b.locked("RandomSource") {
		b.src = src
	}
	return b
}

// Operators replaces the operator list; operators run in the given order.
func (b *Builder) Operators(ops ...GeneticOperator) *Builder {
	if !b.locked("Operators") {
		b.cfg.operators = append([]GeneticOperator(nil), ops...)
	}
	return b
}

func (b *Builder) AddOperator(op GeneticOperator) *Builder {
	if !b.locked("AddOperator") {
		b.cfg.operators = append(b.cfg.operators, op)
	}
	return b
}

// PreSelector appends a selector that runs before the operators.
func (b *Builder) PreSelector(s NaturalSelector) *Builder {
	if !b.locked("PreSelector") {
		b.cfg.preSelectors = append(b.cfg.preSelectors, s)
	}
	return b
}

// PostSelector appends a selector that runs after the operators.
func (b *Builder) PostSelector(s NaturalSelector) *Builder {
	if !b.locked("PostSelector") {
		b.cfg.postSelectors = append(b.cfg.postSelectors, s)
	}
	return b
}

// ClearSelectors drops pre and post selectors, e.g. after NewDefaultBuilder.
func (b *Builder) ClearSelectors() *Builder {
	if !b.locked("ClearSelectors") {
		b.cfg.preSelectors, b.cfg.postSelectors = nil, nil
	}
	return b
}

func (b *Builder) PopulationSize(n int) *Builder {
	if !b.locked("PopulationSize") {
		b.cfg.populationSize = n
	}
	return b
}

func (b *Builder) PreserveFittest(on bool) *Builder {
	if !b.locked("PreserveFittest") {
		b.cfg.preserveFittest = on
	}
	return b
}

func (b *Builder) KeepPopulationSizeConstant(on bool) *Builder {
	if !b.locked("KeepPopulationSizeConstant") {
		b.cfg.keepSizeConstant = on
	}
	return b
}

// MinimumPopSizePercent pads drifting populations up to pct% of the target.
// It only applies when the size is not kept constant.
func (b *Builder) MinimumPopSizePercent(pct int) *Builder {
	if !b.locked("MinimumPopSizePercent") {
		b.cfg.minPopSizePercent = pct
	}
	return b
}

// ChromosomePool enables chromosome reuse, keeping at most limitPerShape
// instances per genome shape (0 means unbounded). With a pool enabled a
// superseded population must not be read after Breeder.Evolve returns.
func (b *Builder) ChromosomePool(limitPerShape int) *Builder {
	if !b.locked("ChromosomePool") {
		b.usePool = true
		b.cfg.poolLimit = limitPerShape
	}
	return b
}

func (b *Builder) Logger(l *slog.Logger) *Builder {
	if !b.locked("Logger") {
		b.cfg.logger = l
	}
	return b
}

// Err reports the first recorded builder error.
func (b *Builder) Err() error { return b.err }

// Build validates the bundle and returns the immutable Configuration. Later
// calls return the same Configuration, or the first setter error recorded
// since.
func (b *Builder) Build() (*Configuration, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.built != nil {
		return b.built, nil
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	cfg := b.cfg
	cfg.operators = append([]GeneticOperator(nil), b.cfg.operators...)
	cfg.preSelectors = append([]NaturalSelector(nil), b.cfg.preSelectors...)
	cfg.postSelectors = append([]NaturalSelector(nil), b.cfg.postSelectors...)
	if cfg.seed == 0 {
		cfg.seed = rng.DefaultSeed
	}
	cfg.src = b.src
	if cfg.src == nil {
		cfg.src = rng.New(cfg.seed)
	}
	if b.usePool {
		cfg.pool = genotype.NewChromosomePool(cfg.poolLimit)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	b.built = &cfg
	return b.built, nil
}

type validator interface {
	Validate() error
}

func (b *Builder) validate() error {
	c := &b.cfg
	if c.sample == nil {
		return fmt.Errorf("%w: sample chromosome is required", ErrInvalidConfiguration)
	}
	if c.fitness == nil && c.bulk == nil {
		return fmt.Errorf("%w: fitness function is required", ErrInvalidConfiguration)
	}
	if c.evaluator == nil {
		return fmt.Errorf("%w: fitness evaluator is required", ErrInvalidConfiguration)
	}
	if c.populationSize <= 0 {
		return fmt.Errorf("%w: population size must be > 0", ErrInvalidConfiguration)
	}
	if c.minPopSizePercent < 0 || c.minPopSizePercent > 100 {
		return fmt.Errorf("%w: minimum population size percent must be in [0,100]", ErrInvalidConfiguration)
	}
	if len(c.operators) == 0 {
		return fmt.Errorf("%w: at least one genetic operator is required", ErrInvalidConfiguration)
	}
	for i, op := range c.operators {
		if op == nil {
			return fmt.Errorf("%w: nil operator at index %d", ErrInvalidConfiguration, i)
		}
		if v, ok := op.(validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("operator %s: %w", op.Name(), err)
			}
		}
	}
	for _, list := range [][]NaturalSelector{c.preSelectors, c.postSelectors} {
		for i, s := range list {
			if s == nil {
				return fmt.Errorf("%w: nil selector at index %d", ErrInvalidConfiguration, i)
			}
			if v, ok := s.(validator); ok {
				if err := v.Validate(); err != nil {
					return fmt.Errorf("selector %s: %w", s.Name(), err)
				}
			}
		}
	}
	return nil
}
