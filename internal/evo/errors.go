package evo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("evo: invalid configuration")
	// ErrConfigurationLocked is returned for setters called after Build. It
	// matches ErrInvalidConfiguration as well.
	ErrConfigurationLocked = fmt.Errorf("%w: configuration locked", ErrInvalidConfiguration)
	ErrInvalidFitness      = errors.New("evo: invalid fitness value")
)
