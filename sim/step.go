package sim

import (
	"math"

	"roadevo/components"
	"roadevo/neural"
	"roadevo/track"
)

// stepAgents advances every living agent by one tick. Agents only read
// shared state (tiles, oracle) and their own components, so population order
// is the only ordering that matters.
func (e *Engine) stepAgents() {
	query := e.carFilter.Query()
	for query.Next() {
		pos, vel, rot, car, score, sensors := query.Get()
		if !car.Alive {
			continue
		}
		e.stepCar(pos, vel, rot, car, score, sensors)
	}
}

// stepCar runs one simulation step for a single agent: sense, infer,
// integrate, then score. Idle death returns early and skips all scoring for
// the tick.
func (e *Engine) stepCar(
	pos *components.Position,
	vel *components.Velocity,
	rot *components.Rotation,
	car *components.Car,
	score *components.Score,
	sensors *components.SensorState,
) {
	sc := &e.cfg.Scoring
	ph := &e.cfg.Physics

	// 1. Distance travelled since the last tick.
	dx := pos.X - score.PrevX
	dy := pos.Y - score.PrevY
	score.Distance += float32(math.Sqrt(float64(dx*dx + dy*dy)))
	score.PrevX, score.PrevY = pos.X, pos.Y

	// 2. Sense and normalize (1 = clear, 0 = wall).
	var raw [neural.NumInputs]float32
	e.rays.Cast(e.tiles, pos.X, pos.Y, rot.Heading, raw[:])
	for i, r := range raw {
		sensors.Readings[i] = e.rays.Normalize(r)
	}

	// 3. Infer. A missing policy kills this agent, never the whole step.
	policy, ok := e.policies[car.ID]
	if !ok {
		e.kill(car)
		return
	}
	rotation, throttle := policy.Infer(sensors.Readings[:])

	// 4. Integrate.
	rot.Heading += rotation * float32(ph.TurnScale)
	vel.X += float32(math.Cos(float64(rot.Heading))) * throttle * float32(ph.AccelScale)
	vel.Y += float32(math.Sin(float64(rot.Heading))) * throttle * float32(ph.AccelScale)
	vel.X *= float32(ph.Friction)
	vel.Y *= float32(ph.Friction)
	pos.X += vel.X
	pos.Y += vel.Y

	speed := float32(math.Sqrt(float64(vel.X*vel.X + vel.Y*vel.Y)))
	score.FramesAlive++
	score.SpeedSum += speed

	// 5. Idle detection.
	if speed < float32(sc.IdleSpeed) {
		car.IdleFrames++
	} else {
		car.IdleFrames = 0
	}
	if car.IdleFrames > int32(sc.IdleLimit) {
		score.Value -= float32(sc.IdlePenalty)
		e.kill(car)
		return
	}

	// 6. Speed-based score accrual.
	if speed > float32(sc.FastThreshold) {
		score.Value += speed * float32(sc.FastRate)
	} else if speed > float32(sc.SlowThreshold) {
		score.Value += speed * float32(sc.SlowRate)
	}

	// 7. Progress toward the finish. The sentinel means "no measurable
	// progress possible" and never enters the bookkeeping.
	dist := e.oracle.DistanceFromWorld(pos.X, pos.Y)
	if dist < e.oracle.Sentinel() {
		if dist < score.DistToFinish {
			score.Value += (score.DistToFinish - dist) * float32(sc.ProgressRate)
		}
		score.DistToFinish = dist
		if dist < score.BestDistToFinish {
			score.BestDistToFinish = dist
		}
	}

	// 8. Finish detection. Finishing halts the agent.
	kind := e.tiles.KindAtWorld(pos.X, pos.Y)
	if kind == track.Finish && !car.Finished {
		car.Finished = true
		score.Value += float32(sc.FinishBonus)
		e.kill(car)
		return
	}

	// 9. Collision detection. Out of bounds counts as wall.
	if kind == track.Wall {
		car.Collisions++
		score.Value -= float32(sc.CollisionPenalty) * float32(car.Collisions)
		if car.Collisions > int32(sc.MaxCollisions) {
			e.kill(car)
		}
	}
}

// kill marks an agent not-alive. Terminal within the generation.
func (e *Engine) kill(car *components.Car) {
	if car.Alive {
		car.Alive = false
		e.aliveCount--
	}
}
