package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ChromosomeRecord stores one chromosome as gene persistent strings. Fitness
// is nil for unevaluated chromosomes.
type ChromosomeRecord struct {
	Genes   []string `json:"genes"`
	Fitness *float64 `json:"fitness,omitempty"`
}

type PopulationRecord struct {
	VersionedRecord
	ID          string             `json:"id"`
	RunID       string             `json:"run_id,omitempty"`
	Generation  int                `json:"generation"`
	Signature   string             `json:"signature"`
	Chromosomes []ChromosomeRecord `json:"chromosomes"`
}

type RunRecord struct {
	VersionedRecord
	ID             string    `json:"id"`
	Problem        string    `json:"problem"`
	Evaluator      string    `json:"evaluator"`
	Seed           int64     `json:"seed"`
	PopulationSize int       `json:"population_size"`
	Generations    int       `json:"generations"`
	Islands        int       `json:"islands,omitempty"`
	Evaluations    int       `json:"evaluations"`
	StopReason     string    `json:"stop_reason"`
	BestFitness    float64   `json:"best_fitness"`
	BestGenes      []string  `json:"best_genes"`
	CreatedAt      time.Time `json:"created_at"`
	DurationMillis int64     `json:"duration_ms"`
}

type GenerationDiagnostics struct {
	Generation           int     `json:"generation"`
	BestFitness          float64 `json:"best_fitness"`
	MeanFitness          float64 `json:"mean_fitness"`
	WorstFitness         float64 `json:"worst_fitness"`
	StdDevFitness        float64 `json:"stddev_fitness"`
	PopulationSize       int     `json:"population_size"`
	FingerprintDiversity int     `json:"fingerprint_diversity"`
	Evaluations          int     `json:"evaluations"`
}
