package telemetry

import (
	"log/slog"
	"time"
)

// GenerationRecord is the raw bookkeeping handed over by the simulation at a
// generation transition. The collector derives the fitness distribution and
// timing on top of it.
type GenerationRecord struct {
	Generation     int
	Frames         int
	Alive          int
	Finishers      int
	TotalFinishers int
	LeaderScore    float64
	AllTimeBest    float64
}

// Collector turns generation records into stats rows and milestone entries
// and forwards them to the output manager.
type Collector struct {
	output *OutputManager

	lastFlush   time.Time
	bestSoFar   float64
	sawFinisher bool

	history []GenerationStats
}

// NewCollector creates a collector writing through the given output manager.
// The manager may be nil, in which case stats are only kept in memory.
func NewCollector(output *OutputManager) *Collector {
	return &Collector{
		output:    output,
		lastFlush: time.Now(),
	}
}

// RecordGeneration ingests one completed generation. fitnesses holds the raw
// per-agent fitness values used for selection.
func (c *Collector) RecordGeneration(rec GenerationRecord, fitnesses []float64) {
	now := time.Now()
	wallMillis := float64(now.Sub(c.lastFlush)) / float64(time.Millisecond)
	c.lastFlush = now

	mean, std, p10, p50, p90, max := ComputeFitnessStats(fitnesses)

	stats := GenerationStats{
		Generation:     rec.Generation,
		Frames:         rec.Frames,
		Alive:          rec.Alive,
		Finishers:      rec.Finishers,
		TotalFinishers: rec.TotalFinishers,
		LeaderScore:    rec.LeaderScore,
		AllTimeBest:    rec.AllTimeBest,
		FitnessMean:    mean,
		FitnessStd:     std,
		FitnessP10:     p10,
		FitnessP50:     p50,
		FitnessP90:     p90,
		FitnessMax:     max,
		WallMillis:     wallMillis,
	}
	c.history = append(c.history, stats)

	if err := c.output.WriteGeneration(stats); err != nil {
		slog.Error("writing generation stats", "error", err)
	}

	if rec.Finishers > 0 && !c.sawFinisher {
		c.sawFinisher = true
		c.milestone(rec.Generation, MilestoneFirstFinisher, float64(rec.Finishers))
	}
	if rec.AllTimeBest > c.bestSoFar {
		c.bestSoFar = rec.AllTimeBest
		c.milestone(rec.Generation, MilestoneNewBest, rec.AllTimeBest)
	}
}

func (c *Collector) milestone(generation int, kind string, value float64) {
	m := Milestone{
		Generation: generation,
		Kind:       kind,
		Value:      value,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := c.output.WriteMilestone(m); err != nil {
		slog.Error("writing milestone", "error", err)
	}
}

// History returns all recorded generation stats in order.
func (c *Collector) History() []GenerationStats {
	return c.history
}

// Latest returns the most recent generation stats and whether any exist.
func (c *Collector) Latest() (GenerationStats, bool) {
	if len(c.history) == 0 {
		return GenerationStats{}, false
	}
	return c.history[len(c.history)-1], true
}
