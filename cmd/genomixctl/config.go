package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"genomix/pkg/genomix"
)

// runFile is the TOML layout accepted by "run -config".
type runFile struct {
	RunID         string   `toml:"run_id"`
	Problem       string   `toml:"problem"`
	Population    int      `toml:"population"`
	Generations   int      `toml:"generations"`
	Seed          int64    `toml:"seed"`
	Operators     []string `toml:"operators"`
	PreSelectors  []string `toml:"pre_selectors"`
	PostSelectors []string `toml:"post_selectors"`
	CrossoverRate float64  `toml:"crossover_rate"`
	MutationRate  int      `toml:"mutation_rate"`
	ContinueFrom  string   `toml:"continue_from"`

	Mutation struct {
		Schedule string  `toml:"schedule"`
		RateEnd  int     `toml:"rate_end"`
		Sigma    float64 `toml:"sigma"`
	} `toml:"mutation"`

	Policy struct {
		PreserveFittest *bool `toml:"preserve_fittest"`
		Variable        bool  `toml:"variable"`
		MinPercent      int   `toml:"min_percent"`
		Pool            bool  `toml:"pool"`
	} `toml:"population_policy"`

	Stop struct {
		AtGoal      bool     `toml:"at_goal"`
		FitnessGoal *float64 `toml:"fitness_goal"`
		Timeout     string   `toml:"timeout"`
	} `toml:"stop"`

	Fitness struct {
		Rank    bool `toml:"rank"`
		Workers int  `toml:"workers"`
	} `toml:"fitness"`

	Islands struct {
		Count             int `toml:"count"`
		MigrationInterval int `toml:"migration_interval"`
		Migrants          int `toml:"migrants"`
	} `toml:"islands"`
}

func loadRunRequestFromConfig(path string) (genomix.RunRequest, error) {
	var raw runFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return genomix.RunRequest{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return genomix.RunRequest{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	req := genomix.RunRequest{
		RunID:                raw.RunID,
		Problem:              raw.Problem,
		Population:           raw.Population,
		Generations:          raw.Generations,
		Seed:                 raw.Seed,
		Operators:            raw.Operators,
		PreSelectors:         raw.PreSelectors,
		PostSelectors:        raw.PostSelectors,
		CrossoverRate:        raw.CrossoverRate,
		MutationRate:         raw.MutationRate,
		MutationSchedule:     raw.Mutation.Schedule,
		MutationRateEnd:      raw.Mutation.RateEnd,
		MutationSigma:        raw.Mutation.Sigma,
		VariablePopulation:   raw.Policy.Variable,
		MinPopulationPercent: raw.Policy.MinPercent,
		UsePool:              raw.Policy.Pool,
		StopAtGoal:           raw.Stop.AtGoal,
		FitnessGoal:          raw.Stop.FitnessGoal,
		RankFitness:          raw.Fitness.Rank,
		Workers:              raw.Fitness.Workers,
		Islands:              raw.Islands.Count,
		MigrationInterval:    raw.Islands.MigrationInterval,
		Migrants:             raw.Islands.Migrants,
		ContinueFrom:         raw.ContinueFrom,
	}
	if raw.Policy.PreserveFittest != nil {
		req.DisablePreserveFittest = !*raw.Policy.PreserveFittest
	}
	if raw.Stop.Timeout != "" {
		req.Timeout, err = time.ParseDuration(raw.Stop.Timeout)
		if err != nil {
			return genomix.RunRequest{}, fmt.Errorf("stop.timeout: %w", err)
		}
	}
	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (genomix.RunRequest, error) {
	if configPath == "" {
		return genomix.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return genomix.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// overrideFromFlags applies only the flags given on the command line.
func overrideFromFlags(req *genomix.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "problem":
			req.Problem = v.(string)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "operators":
			req.Operators = splitList(v.(string))
		case "pre-selectors":
			req.PreSelectors = splitList(v.(string))
		case "post-selectors":
			req.PostSelectors = splitList(v.(string))
		case "crossover-rate":
			req.CrossoverRate = v.(float64)
		case "mutation-rate":
			req.MutationRate = v.(int)
		case "mutation-schedule":
			req.MutationSchedule = v.(string)
		case "mutation-rate-end":
			req.MutationRateEnd = v.(int)
		case "mutation-sigma":
			req.MutationSigma = v.(float64)
		case "no-preserve-fittest":
			req.DisablePreserveFittest = v.(bool)
		case "variable-pop":
			req.VariablePopulation = v.(bool)
		case "min-pop-percent":
			req.MinPopulationPercent = v.(int)
		case "pool":
			req.UsePool = v.(bool)
		case "stop-at-goal":
			req.StopAtGoal = v.(bool)
		case "fitness-goal":
			goal := v.(float64)
			req.FitnessGoal = &goal
		case "timeout":
			req.Timeout = v.(time.Duration)
		case "rank-fitness":
			req.RankFitness = v.(bool)
		case "workers":
			req.Workers = v.(int)
		case "islands":
			req.Islands = v.(int)
		case "migration-interval":
			req.MigrationInterval = v.(int)
		case "migrants":
			req.Migrants = v.(int)
		case "continue-from":
			req.ContinueFrom = v.(string)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}
