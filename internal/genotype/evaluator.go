package genotype

// FitnessEvaluator decides which of two fitness values is fitter. Every
// comparison the engine makes goes through an evaluator, never through ">".
type FitnessEvaluator interface {
	IsFitter(a, b float64) bool
}

// MaximizingEvaluator treats larger fitness as better.
type MaximizingEvaluator struct{}

func (MaximizingEvaluator) IsFitter(a, b float64) bool { return a > b }

func (MaximizingEvaluator) String() string { return "maximizing" }

// MinimizingEvaluator treats smaller fitness (a delta to a goal) as better.
type MinimizingEvaluator struct{}

func (MinimizingEvaluator) IsFitter(a, b float64) bool { return a < b }

func (MinimizingEvaluator) String() string { return "minimizing" }

// IsChromosomeFitter compares cached fitness values. An evaluated chromosome
// is fitter than an unevaluated one.
func IsChromosomeFitter(ev FitnessEvaluator, a, b *Chromosome) bool {
	fa, okA := a.Fitness()
	fb, okB := b.Fitness()
	switch {
	case okA && okB:
		return ev.IsFitter(fa, fb)
	case okA:
		return true
	default:
		return false
	}
}
