package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrOperatorExists   = errors.New("operator already registered")
	ErrOperatorNotFound = errors.New("operator not found")
	ErrSelectorExists   = errors.New("selector already registered")
	ErrSelectorNotFound = errors.New("selector not found")
)

// OperatorFactory returns a fresh operator with its default parameters.
type OperatorFactory func() GeneticOperator

// SelectorFactory returns a fresh selector with its default parameters.
type SelectorFactory func() NaturalSelector

var operatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]OperatorFactory
}{
	m: make(map[string]OperatorFactory),
}

var selectorRegistry = struct {
	mu sync.RWMutex
	m  map[string]SelectorFactory
}{
	m: make(map[string]SelectorFactory),
}

func init() {
	registerBuiltins()
}

func registerBuiltins() {
	builtinOperators := map[string]OperatorFactory{
		"crossover":    func() GeneticOperator { return &CrossoverOperator{Rate: DefaultCrossoverRate} },
		"mutation":     func() GeneticOperator { return &MutationOperator{RateDenominator: DefaultMutationRateDenominator} },
		"reproduction": func() GeneticOperator { return &ReproductionOperator{Rate: 1} },
	}
	for name, f := range builtinOperators {
		if err := RegisterOperator(name, f); err != nil {
			panic(err)
		}
	}
	builtinSelectors := map[string]SelectorFactory{
		"best":       func() NaturalSelector { return &BestChromosomesSelector{OriginalRate: 0.90} },
		"roulette":   func() NaturalSelector { return &WeightedRouletteSelector{} },
		"tournament": func() NaturalSelector { return &TournamentSelector{Size: 3, Probability: 0.8} },
	}
	for name, f := range builtinSelectors {
		if err := RegisterSelector(name, f); err != nil {
			panic(err)
		}
	}
}

// RegisterOperator makes an operator available to ResolveOperator.
func RegisterOperator(name string, factory OperatorFactory) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if factory == nil {
		return errors.New("operator factory is required")
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, name)
	}
	operatorRegistry.m[name] = factory
	return nil
}

// ResolveOperator returns a new instance of a registered operator.
func ResolveOperator(name string) (GeneticOperator, error) {
	operatorRegistry.mu.RLock()
	factory, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	return factory(), nil
}

func ListOperators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.m))
	for name := range operatorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterSelector makes a selector available to ResolveSelector.
func RegisterSelector(name string, factory SelectorFactory) error {
	if name == "" {
		return errors.New("selector name is required")
	}
	if factory == nil {
		return errors.New("selector factory is required")
	}

	selectorRegistry.mu.Lock()
	defer selectorRegistry.mu.Unlock()

	if _, exists := selectorRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrSelectorExists, name)
	}
	selectorRegistry.m[name] = factory
	return nil
}

// ResolveSelector returns a new instance of a registered selector.
func ResolveSelector(name string) (NaturalSelector, error) {
	selectorRegistry.mu.RLock()
	factory, ok := selectorRegistry.m[name]
	selectorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSelectorNotFound, name)
	}
	return factory(), nil
}

func ListSelectors() []string {
	selectorRegistry.mu.RLock()
	defer selectorRegistry.mu.RUnlock()

	names := make([]string, 0, len(selectorRegistry.m))
	for name := range selectorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	operatorRegistry.mu.Lock()
	operatorRegistry.m = make(map[string]OperatorFactory)
	operatorRegistry.mu.Unlock()

	selectorRegistry.mu.Lock()
	selectorRegistry.m = make(map[string]SelectorFactory)
	selectorRegistry.mu.Unlock()

	registerBuiltins()
}
