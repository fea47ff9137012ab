package main

import (
	"log"

	"roadevo/config"
	"roadevo/sim"
	"roadevo/telemetry"
)

// FitnessEvaluator scores a parameter vector by running short headless
// evolution runs and measuring how good the population gets.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	seeds       []int64
	configPath  string

	lastFinishers int
}

// NewFitnessEvaluator creates an evaluator running the given number of
// generations per seed.
func NewFitnessEvaluator(params *ParamVector, generations int, seeds []int64, configPath string) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		seeds:       seeds,
		configPath:  configPath,
	}
}

// Evaluate runs the simulation for each seed with the given raw parameter
// values and returns a value to minimize: the negated mean of the best
// fitness reached, with a bonus for finishers.
func (fe *FitnessEvaluator) Evaluate(raw []float64) float64 {
	var totalBest float64
	totalFinishers := 0

	for _, seed := range fe.seeds {
		cfg, err := config.Load(fe.configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		fe.params.ApplyToConfig(cfg, raw)

		engine, err := sim.New(cfg, seed)
		if err != nil {
			log.Fatalf("failed to create simulation: %v", err)
		}
		collector := telemetry.NewCollector(nil)
		engine.SetCollector(collector)

		for engine.Generation() <= fe.generations {
			engine.Step()
		}

		if stats, ok := collector.Latest(); ok {
			totalBest += stats.FitnessMax
		}
		totalFinishers += engine.TotalFinishers()
	}

	fe.lastFinishers = totalFinishers

	meanBest := totalBest / float64(len(fe.seeds))
	// Each finisher is worth a flat bonus so parameter sets that actually
	// complete laps dominate ones that only farm progress score.
	return -(meanBest + 500*float64(totalFinishers))
}

// LastFinishers returns the finisher count from the most recent evaluation.
func (fe *FitnessEvaluator) LastFinishers() int {
	return fe.lastFinishers
}
