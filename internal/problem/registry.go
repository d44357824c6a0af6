package problem

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrProblemExists   = errors.New("problem already registered")
	ErrProblemNotFound = errors.New("problem not found")
)

// Factory returns a problem with its default parameters.
type Factory func() Problem

var registry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	registerBuiltins()
}

func registerBuiltins() {
	builtins := map[string]Factory{
		SumTargetName:  func() Problem { return NewSumTarget(DefaultSumTarget) },
		MakeChangeName: func() Problem { return NewMakeChange(DefaultChangeAmount) },
		KnapsackName:   func() Problem { return NewKnapsack(DefaultKnapsackCapacity, DefaultKnapsackItems()) },
		SphereName:     func() Problem { return NewSphere(DefaultSphereDimensions) },
	}
	for name, f := range builtins {
		if err := Register(name, f); err != nil {
			panic(err)
		}
	}
}

func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("problem name is required")
	}
	if factory == nil {
		return errors.New("problem factory is required")
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrProblemExists, name)
	}
	registry.m[name] = factory
	return nil
}

func Resolve(name string) (Problem, error) {
	registry.mu.RLock()
	factory, ok := registry.m[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProblemNotFound, name)
	}
	return factory(), nil
}

func List() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.m))
	for name := range registry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	registry.mu.Lock()
	registry.m = make(map[string]Factory)
	registry.mu.Unlock()
	registerBuiltins()
}
