package sim

import (
	"roadevo/neural"
)

// AgentSnapshot is the per-agent slice of a Snapshot.
type AgentSnapshot struct {
	ID         uint32                    `json:"id"`
	X          float32                   `json:"x"`
	Y          float32                   `json:"y"`
	Heading    float32                   `json:"heading"`
	Alive      bool                      `json:"alive"`
	Finished   bool                      `json:"finished"`
	Collisions int32                     `json:"collisions"`
	Score      float32                   `json:"score"`
	Readings   [neural.NumInputs]float32 `json:"readings"`
}

// Snapshot is a read-only copy of the simulation state at one tick, safe to
// hand to viewers and network clients while the engine keeps stepping.
type Snapshot struct {
	Generation     int             `json:"generation"`
	Frame          int             `json:"frame"`
	Alive          int             `json:"alive"`
	Total          int             `json:"total"`
	LeaderID       uint32          `json:"leader_id"`
	LeaderScore    float32         `json:"leader_score"`
	AllTimeBest    float32         `json:"all_time_best"`
	TotalFinishers int             `json:"total_finishers"`
	Agents         []AgentSnapshot `json:"agents"`
}

// Snapshot copies the current simulation state. Agents appear in population
// order.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Generation:     e.generation,
		Frame:          e.frame,
		Alive:          e.aliveCount,
		Total:          e.cfg.Population.Size,
		LeaderID:       e.leaderID,
		LeaderScore:    e.leaderScore,
		AllTimeBest:    e.allTimeBest,
		TotalFinishers: e.totalFinishers,
		Agents:         make([]AgentSnapshot, 0, e.cfg.Population.Size),
	}

	query := e.carFilter.Query()
	for query.Next() {
		pos, _, rot, car, score, sensors := query.Get()
		snap.Agents = append(snap.Agents, AgentSnapshot{
			ID:         car.ID,
			X:          pos.X,
			Y:          pos.Y,
			Heading:    rot.Heading,
			Alive:      car.Alive,
			Finished:   car.Finished,
			Collisions: car.Collisions,
			Score:      score.Value,
			Readings:   sensors.Readings,
		})
	}

	return snap
}
