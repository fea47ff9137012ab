package sim

import (
	"encoding/json"
	"fmt"
	"os"

	"roadevo/neural"
)

// SavedPolicy is the on-disk format for an exported policy.
type SavedPolicy struct {
	Generation int               `json:"generation"`
	Score      float32           `json:"score"`
	Params     neural.Parameters `json:"params"`
}

// SaveBest exports the policy of the highest-scoring agent in the current
// generation as JSON. Dead agents are eligible; the export reflects the
// population as it stands, not only the living part.
func (e *Engine) SaveBest(path string) error {
	var bestID uint32
	bestScore := float32(0)
	found := false

	query := e.carFilter.Query()
	for query.Next() {
		_, _, _, car, score, _ := query.Get()
		if !found || score.Value > bestScore {
			bestScore = score.Value
			bestID = car.ID
			found = true
		}
	}
	if !found {
		return fmt.Errorf("no agents to export")
	}

	policy, ok := e.policies[bestID]
	if !ok {
		return fmt.Errorf("no policy for agent %d", bestID)
	}

	saved := SavedPolicy{
		Generation: e.generation,
		Score:      bestScore,
		Params:     policy.Export(),
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling policy: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing policy: %w", err)
	}
	return nil
}

// LoadPolicy seeds the simulation from an exported policy. The current
// population is discarded and a new run starts: agent 0 carries the loaded
// policy verbatim, the rest carry mutated copies.
func (e *Engine) LoadPolicy(saved SavedPolicy) error {
	// A zero policy draws nothing from the engine RNG, so loading keeps the
	// deterministic stream identical to a run that never loads.
	policy := neural.NewZeroPolicy()
	if err := policy.Import(saved.Params); err != nil {
		return err
	}

	e.seeded = policy
	e.elites = nil
	e.generation = 1
	e.allTimeBest = 0
	e.totalFinishers = 0
	e.spawnGeneration()
	return nil
}

// LoadPolicyFile reads an exported policy from disk and seeds the simulation
// with it.
func (e *Engine) LoadPolicyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading policy: %w", err)
	}
	var saved SavedPolicy
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("parsing policy: %w", err)
	}
	return e.LoadPolicy(saved)
}

// ResetAll discards all evolved state and restarts from generation 1 with
// random policies.
func (e *Engine) ResetAll() {
	e.seeded = nil
	e.elites = nil
	e.generation = 1
	e.allTimeBest = 0
	e.totalFinishers = 0
	e.spawnGeneration()
}
