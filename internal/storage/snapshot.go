package storage

import (
	"fmt"

	"genomix/internal/genotype"
	"genomix/internal/model"
)

// ExportPopulation captures every member as persistent strings together with
// its fitness, if evaluated.
func ExportPopulation(id, runID string, pop *genotype.Population) model.PopulationRecord {
	record := model.PopulationRecord{
		VersionedRecord: Versioned(),
		ID:              id,
		RunID:           runID,
		Generation:      pop.Generation(),
		Chromosomes:     make([]model.ChromosomeRecord, 0, pop.Size()),
	}
	for i := 0; i < pop.Size(); i++ {
		c := pop.At(i)
		if record.Signature == "" {
			record.Signature = c.Signature()
		}
		entry := model.ChromosomeRecord{Genes: c.PersistentStrings()}
		if v, ok := c.Fitness(); ok {
			entry.Fitness = &v
		}
		record.Chromosomes = append(record.Chromosomes, entry)
	}
	return record
}

// RestorePopulation rebuilds a population from a record using sample as the
// gene template. The record must have been exported from chromosomes of the
// same shape.
func RestorePopulation(record model.PopulationRecord, sample *genotype.Chromosome) (*genotype.Population, error) {
	if sample == nil {
		return nil, fmt.Errorf("restore population %s: sample chromosome is required", record.ID)
	}
	if record.Signature != "" && record.Signature != sample.Signature() {
		return nil, fmt.Errorf("restore population %s: %w: record %s, sample %s",
			record.ID, genotype.ErrShapeMismatch, record.Signature, sample.Signature())
	}

	pop := genotype.NewPopulation(len(record.Chromosomes))
	for i, entry := range record.Chromosomes {
		c := sample.Clone()
		if err := c.ParsePersistentStrings(entry.Genes); err != nil {
			return nil, fmt.Errorf("restore population %s: chromosome %d: %w", record.ID, i, err)
		}
		if entry.Fitness != nil {
			c.SetFitness(*entry.Fitness)
		}
		pop.Add(c)
	}
	pop.SetGeneration(record.Generation)
	return pop, nil
}
