// Package telemetry collects per-generation statistics and writes them to
// structured experiment output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats holds the aggregated record for one completed generation,
// ready for CSV output.
type GenerationStats struct {
	Generation     int     `csv:"generation"`
	Frames         int     `csv:"frames"`
	Alive          int     `csv:"alive"`
	Finishers      int     `csv:"finishers"`
	TotalFinishers int     `csv:"total_finishers"`
	LeaderScore    float64 `csv:"leader_score"`
	AllTimeBest    float64 `csv:"all_time_best"`

	// Fitness distribution across the population
	FitnessMean float64 `csv:"fitness_mean"`
	FitnessStd  float64 `csv:"fitness_std"`
	FitnessP10  float64 `csv:"fitness_p10"`
	FitnessP50  float64 `csv:"fitness_p50"`
	FitnessP90  float64 `csv:"fitness_p90"`
	FitnessMax  float64 `csv:"fitness_max"`

	WallMillis float64 `csv:"wall_ms"` // wall-clock time spent on this generation
}

// ComputeFitnessStats calculates mean, std, percentiles, and max from raw
// fitness values. The input slice is not modified.
func ComputeFitnessStats(values []float64) (mean, std, p10, p50, p90, max float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	if n > 1 {
		std = stat.StdDev(sorted, nil)
	}
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	max = sorted[n-1]

	return mean, std, p10, p50, p90, max
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("frames", s.Frames),
		slog.Int("alive", s.Alive),
		slog.Int("finishers", s.Finishers),
		slog.Int("total_finishers", s.TotalFinishers),
		slog.Float64("leader_score", s.LeaderScore),
		slog.Float64("all_time_best", s.AllTimeBest),
		slog.Float64("fitness_mean", s.FitnessMean),
		slog.Float64("fitness_std", s.FitnessStd),
		slog.Float64("fitness_p10", s.FitnessP10),
		slog.Float64("fitness_p50", s.FitnessP50),
		slog.Float64("fitness_p90", s.FitnessP90),
		slog.Float64("fitness_max", s.FitnessMax),
		slog.Float64("wall_ms", s.WallMillis),
	)
}
