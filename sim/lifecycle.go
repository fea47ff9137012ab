package sim

import (
	"log/slog"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"roadevo/components"
	"roadevo/neural"
	"roadevo/telemetry"
)

// spawnGeneration replaces the whole population with a fresh one at the
// spawn point. Policy source per agent: elite clones (round-robin, mutated)
// when elites exist; otherwise an externally seeded policy (agent 0
// unmutated) or fresh random policies.
func (e *Engine) spawnGeneration() {
	e.clearPopulation()

	e.frame = 0
	e.leaderID = 0
	e.leaderScore = 0

	spawnX, spawnY := e.tiles.SpawnPoint()
	spawnDist := e.oracle.DistanceFromWorld(spawnX, spawnY)
	popCfg := &e.cfg.Population

	for i := 0; i < popCfg.Size; i++ {
		var policy *neural.Policy
		switch {
		case len(e.elites) > 0:
			policy = e.elites[i%len(e.elites)].Clone()
			policy.Mutate(e.rng, float32(popCfg.MutationRate), float32(popCfg.MutationSigma))
		case e.seeded != nil:
			policy = e.seeded.Clone()
			if i > 0 {
				policy.Mutate(e.rng, float32(popCfg.MutationRate), float32(popCfg.MutationSigma))
			}
		default:
			policy = neural.NewPolicy(e.rng)
		}

		id := e.nextID
		e.nextID++
		e.policies[id] = policy

		pos := components.Position{X: spawnX, Y: spawnY}
		vel := components.Velocity{}
		rot := components.Rotation{Heading: 0}
		car := components.Car{ID: id, Alive: true}
		score := components.Score{
			DistToFinish:     spawnDist,
			BestDistToFinish: spawnDist,
			PrevX:            spawnX,
			PrevY:            spawnY,
		}
		sensors := components.SensorState{}

		e.carMapper.NewEntity(&pos, &vel, &rot, &car, &score, &sensors)
	}

	e.aliveCount = popCfg.Size
}

// clearPopulation removes every agent entity and its policy. Entities are
// removed from the world entirely so long runs do not accumulate empty ones.
func (e *Engine) clearPopulation() {
	var toRemove []ecs.Entity

	query := e.carFilter.Query()
	for query.Next() {
		toRemove = append(toRemove, query.Entity())
	}

	for _, entity := range toRemove {
		e.world.RemoveEntity(entity)
	}
	e.policies = make(map[uint32]*neural.Policy)
}

// advanceGeneration runs selection over the finished generation, records
// bookkeeping, and spawns the next one.
func (e *Engine) advanceGeneration() {
	type ranked struct {
		id       uint32
		fitness  float32
		finished bool
	}
	var agents []ranked
	var fitnesses []float64
	finishers := 0

	query := e.carFilter.Query()
	for query.Next() {
		_, _, _, car, score, _ := query.Get()
		f := e.fitness(car, score)
		agents = append(agents, ranked{id: car.ID, fitness: f, finished: car.Finished})
		fitnesses = append(fitnesses, float64(f))
		if car.Finished {
			finishers++
		}
	}

	// Stable descending sort: ties keep original population order.
	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].fitness > agents[j].fitness
	})

	eliteCount := e.cfg.Population.Elites
	if eliteCount > len(agents) {
		eliteCount = len(agents)
	}
	elites := make([]*neural.Policy, 0, eliteCount)
	for _, a := range agents[:eliteCount] {
		if policy, ok := e.policies[a.id]; ok {
			elites = append(elites, policy.Clone())
		}
	}
	e.elites = elites

	e.totalFinishers += finishers

	bestFitness := float32(0)
	if len(agents) > 0 {
		bestFitness = agents[0].fitness
	}

	slog.Info("generation complete",
		"generation", e.generation,
		"frames", e.frame,
		"alive", e.aliveCount,
		"finishers", finishers,
		"best_fitness", bestFitness,
		"leader_score", e.leaderScore,
		"all_time_best", e.allTimeBest,
	)

	if e.collector != nil {
		e.collector.RecordGeneration(telemetry.GenerationRecord{
			Generation:     e.generation,
			Frames:         e.frame,
			Alive:          e.aliveCount,
			Finishers:      finishers,
			TotalFinishers: e.totalFinishers,
			LeaderScore:    float64(e.leaderScore),
			AllTimeBest:    float64(e.allTimeBest),
		}, fitnesses)
	}

	e.generation++
	e.spawnGeneration()
}

// fitness derives the ranking scalar for one agent. Computed on demand at
// generation end, never during stepping.
func (e *Engine) fitness(car *components.Car, score *components.Score) float32 {
	sc := &e.cfg.Scoring

	f := score.Value
	if !car.Finished && !car.Alive {
		// Dying unfinished discounts the whole accumulated score; finishing
		// always escapes the penalty.
		f *= float32(sc.DeathFactor)
	}

	frames := score.FramesAlive
	if frames < 1 {
		frames = 1
	}
	avgSpeed := score.SpeedSum / float32(frames)
	f += float32(score.FramesAlive)*float32(sc.FrameWeight) + avgSpeed*float32(sc.SpeedWeight)

	proximity := (float32(sc.ProximityBase) - score.BestDistToFinish) * float32(sc.ProximityRate)
	if proximity > 0 {
		f += proximity
	}

	if f < 0 {
		f = 0
	}
	return f
}
