package genotype

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes the allele sequence; equal chromosomes share it.
func Fingerprint(c *Chromosome) string {
	sum := sha1.Sum([]byte(strings.Join(c.PersistentStrings(), "\x1f")))
	return hex.EncodeToString(sum[:8])
}

// Diversity counts distinct fingerprints in the population.
func Diversity(p *Population) int {
	seen := make(map[string]struct{}, p.Size())
	for _, c := range p.members {
		seen[Fingerprint(c)] = struct{}{}
	}
	return len(seen)
}
