// Package sim runs the generational driving simulation: it owns the
// population, steps agents tick by tick, and evolves policies across
// generations.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"roadevo/components"
	"roadevo/config"
	"roadevo/neural"
	"roadevo/systems"
	"roadevo/telemetry"
	"roadevo/track"
)

// Engine holds the complete simulation state.
type Engine struct {
	world *ecs.World
	rng   *rand.Rand
	cfg   *config.Config

	tiles  *track.TileMap
	oracle *track.DistanceOracle
	rays   *systems.RayCaster

	// Entity mappers - the 6 components every agent carries
	carMapper *ecs.Map6[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Car,
		components.Score,
		components.SensorState,
	]
	carFilter *ecs.Filter6[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Car,
		components.Score,
		components.SensorState,
	]

	// Policy storage (per agent by ID)
	policies map[uint32]*neural.Policy
	nextID   uint32

	// Elite policies carried into the next generation, plus an externally
	// loaded policy that seeds agent 0 unmutated when no elites exist.
	elites []*neural.Policy
	seeded *neural.Policy

	// Generation state
	generation  int
	frame       int
	aliveCount  int
	leaderID    uint32
	leaderScore float32

	// All-time bookkeeping
	allTimeBest    float32
	totalFinishers int

	collector *telemetry.Collector
}

// New creates an engine from the given configuration and RNG seed. The same
// seed and configuration always produce an identical run.
func New(cfg *config.Config, seed int64) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Sensors.AnglesDeg) != neural.NumInputs {
		return nil, fmt.Errorf("%w: %d sensor angles, policy expects %d",
			config.ErrInvalidConfiguration, len(cfg.Sensors.AnglesDeg), neural.NumInputs)
	}

	tiles, err := track.Parse(cfg.Track.Rows, cfg.Track.CellSize)
	if err != nil {
		return nil, err
	}

	world := ecs.NewWorld()

	e := &Engine{
		world:  world,
		rng:    rand.New(rand.NewSource(seed)),
		cfg:    cfg,
		tiles:  tiles,
		oracle: track.NewDistanceOracle(tiles, cfg.Oracle.CacheSize, cfg.Oracle.SentinelPx),
		rays:   systems.NewRayCaster(cfg.Sensors.AnglesDeg, cfg.Sensors.StepPx, cfg.Sensors.MaxRangePx),
		carMapper: ecs.NewMap6[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Car,
			components.Score,
			components.SensorState,
		](world),
		carFilter: ecs.NewFilter6[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Car,
			components.Score,
			components.SensorState,
		](world),
		policies:   make(map[uint32]*neural.Policy),
		generation: 1,
	}

	e.spawnGeneration()

	return e, nil
}

// SetCollector attaches a telemetry collector. Generation summaries are
// recorded into it at every transition. May be nil.
func (e *Engine) SetCollector(c *telemetry.Collector) {
	e.collector = c
}

// Tiles returns the track the simulation runs on.
func (e *Engine) Tiles() *track.TileMap { return e.tiles }

// Generation returns the current generation number, starting at 1.
func (e *Engine) Generation() int { return e.generation }

// Frame returns the frame counter within the current generation.
func (e *Engine) Frame() int { return e.frame }

// AliveCount returns the number of agents still alive this generation.
func (e *Engine) AliveCount() int { return e.aliveCount }

// LeaderScore returns the current generation leader's score.
func (e *Engine) LeaderScore() float32 { return e.leaderScore }

// AllTimeBest returns the highest leader score ever observed.
func (e *Engine) AllTimeBest() float32 { return e.allTimeBest }

// TotalFinishers returns the all-time count of agents that reached a finish
// tile.
func (e *Engine) TotalFinishers() int { return e.totalFinishers }

// Step advances the simulation by one tick. All living agents are updated
// sequentially in population order; when the generation terminates (no agent
// alive, or the frame counter exceeds the budget) selection runs and the
// next generation is spawned synchronously. Returns true when a generation
// ended on this tick.
func (e *Engine) Step() bool {
	e.stepAgents()
	e.frame++
	e.updateLeader()

	if e.aliveCount == 0 || e.frame > e.cfg.Population.MaxFrames {
		e.advanceGeneration()
		return true
	}
	return false
}

// updateLeader tracks the highest-scoring living agent. Ties keep the first
// encountered agent in population order, which makes the leader stable and
// deterministic.
func (e *Engine) updateLeader() {
	best := float32(0)
	bestID := uint32(0)
	found := false

	query := e.carFilter.Query()
	for query.Next() {
		_, _, _, car, score, _ := query.Get()
		if !car.Alive {
			continue
		}
		if !found || score.Value > best {
			best = score.Value
			bestID = car.ID
			found = true
		}
	}

	if found {
		e.leaderID = bestID
		e.leaderScore = best
		if best > e.allTimeBest {
			e.allTimeBest = best
		}
	}
}
