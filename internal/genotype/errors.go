package genotype

import "errors"

var (
	ErrInvalidAllele       = errors.New("genotype: allele outside gene domain")
	ErrInvalidGene         = errors.New("genotype: invalid gene definition")
	ErrShapeMismatch       = errors.New("genotype: chromosome shape mismatch")
	ErrIndexOutOfRange     = errors.New("genotype: gene index out of range")
	ErrMalformedPersistent = errors.New("genotype: malformed persistent representation")
)
