package sim

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"roadevo/components"
	"roadevo/config"
	"roadevo/neural"
	"roadevo/track"
)

func testConfig(rows []string) *config.Config {
	return &config.Config{
		Track: config.TrackConfig{CellSize: 40, Rows: rows},
		Sensors: config.SensorsConfig{
			AnglesDeg:  []float64{-90, -60, -40, -20, 0, 20, 40, 60, 90},
			StepPx:     5,
			MaxRangePx: 200,
		},
		Physics: config.PhysicsConfig{TurnScale: 0.1, AccelScale: 0.3, Friction: 0.95},
		Scoring: config.ScoringConfig{
			IdleSpeed:        0.1,
			IdleLimit:        300,
			IdlePenalty:      100,
			FastThreshold:    1.5,
			FastRate:         0.2,
			SlowThreshold:    0.5,
			SlowRate:         0.15,
			ProgressRate:     0.3,
			FinishBonus:      2000,
			CollisionPenalty: 40,
			MaxCollisions:    2,
			DeathFactor:      0.7,
			FrameWeight:      0.1,
			SpeedWeight:      50,
			ProximityBase:    1000,
			ProximityRate:    0.2,
		},
		Population: config.PopulationConfig{
			Size: 4, Elites: 2, MaxFrames: 50,
			MutationRate: 0.1, MutationSigma: 0.1,
		},
		Oracle: config.OracleConfig{CacheSize: 100, SentinelPx: 9999},
	}
}

func corridorRows() []string {
	return []string{
		"111111111111",
		"130000000021",
		"111111111111",
	}
}

// zeroParams builds an all-zero parameter set matching the policy topology.
// A zero policy outputs tanh(0) = 0 for both rotation and throttle.
func zeroParams() neural.Parameters {
	return neural.Parameters{
		Shapes: [][]int{
			{neural.NumHidden, neural.NumInputs},
			{neural.NumHidden},
			{neural.NumOutputs, neural.NumHidden},
			{neural.NumOutputs},
		},
		Values: [][]float32{
			make([]float32, neural.NumHidden*neural.NumInputs),
			make([]float32, neural.NumHidden),
			make([]float32, neural.NumOutputs*neural.NumHidden),
			make([]float32, neural.NumOutputs),
		},
	}
}

// forwardParams builds a policy that always drives straight ahead at full
// throttle: zero weights, a large positive throttle bias.
func forwardParams() neural.Parameters {
	p := zeroParams()
	p.Values[3][1] = 5 // throttle bias, tanh(5) is close to 1
	return p
}

// seedUniform replaces the population with identical copies of the given
// parameter set. Mutation rate 0 keeps every agent byte-identical.
func seedUniform(t *testing.T, e *Engine, params neural.Parameters) {
	t.Helper()
	e.cfg.Population.MutationRate = 0
	if err := e.LoadPolicy(SavedPolicy{Params: params}); err != nil {
		t.Fatalf("seeding population: %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := testConfig(corridorRows())
	cfg.Population.Size = 0
	if _, err := New(cfg, 42); !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for zero population, got %v", err)
	}

	cfg = testConfig(corridorRows())
	cfg.Sensors.AnglesDeg = []float64{-90, 0, 90}
	if _, err := New(cfg, 42); !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for wrong ray count, got %v", err)
	}

	cfg = testConfig([]string{"111", "101", "111"})
	if _, err := New(cfg, 42); !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for spawnless track, got %v", err)
	}
}

func TestSpawnState(t *testing.T) {
	cfg := testConfig(corridorRows())
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	if e.Generation() != 1 {
		t.Errorf("expected generation 1, got %d", e.Generation())
	}
	if e.Frame() != 0 {
		t.Errorf("expected frame 0, got %d", e.Frame())
	}
	if e.AliveCount() != cfg.Population.Size {
		t.Errorf("expected %d alive, got %d", cfg.Population.Size, e.AliveCount())
	}

	snap := e.Snapshot()
	if len(snap.Agents) != cfg.Population.Size {
		t.Fatalf("expected %d agents, got %d", cfg.Population.Size, len(snap.Agents))
	}
	sx, sy := e.Tiles().SpawnPoint()
	for _, a := range snap.Agents {
		if a.X != sx || a.Y != sy {
			t.Errorf("agent %d spawned at (%f, %f), want (%f, %f)", a.ID, a.X, a.Y, sx, sy)
		}
		if a.Heading != 0 {
			t.Errorf("agent %d heading %f, want 0", a.ID, a.Heading)
		}
		if !a.Alive || a.Finished {
			t.Errorf("agent %d has wrong initial flags", a.ID)
		}
	}
}

func TestIdleDeathOneTickPastLimit(t *testing.T) {
	cfg := testConfig(corridorRows())
	cfg.Scoring.IdleLimit = 5
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	seedUniform(t, e, zeroParams())

	// Survives exactly IdleLimit ticks, dies on the next one.
	for i := 0; i < 5; i++ {
		if e.Step() {
			t.Fatalf("generation ended early at tick %d", i+1)
		}
	}
	if e.AliveCount() != cfg.Population.Size {
		t.Fatalf("expected all alive after %d idle ticks, got %d", 5, e.AliveCount())
	}

	// Keep one agent alive so the death tick is observable before the
	// generation transition.
	query := e.carFilter.Query()
	first := true
	for query.Next() {
		_, _, _, car, _, _ := query.Get()
		if first {
			car.IdleFrames = -100
			first = false
		}
	}

	if e.Step() {
		t.Fatal("generation should not end while one agent survives")
	}
	if e.AliveCount() != 1 {
		t.Fatalf("expected 1 survivor, got %d", e.AliveCount())
	}

	snap := e.Snapshot()
	for _, a := range snap.Agents {
		if a.Alive {
			continue
		}
		// Idle death skips all scoring for the tick; with a zero policy no
		// other accrual ever happened.
		if a.Score != -float32(cfg.Scoring.IdlePenalty) {
			t.Errorf("dead agent %d score %f, want %f", a.ID, a.Score, -cfg.Scoring.IdlePenalty)
		}
	}
}

func TestGenerationEndsPastFrameBudget(t *testing.T) {
	cfg := testConfig(corridorRows())
	cfg.Population.MaxFrames = 10
	cfg.Scoring.IdleLimit = 1000
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	seedUniform(t, e, zeroParams())

	// The generation runs while frame <= MaxFrames; the transition happens
	// on the tick that pushes the counter past the budget.
	for i := 0; i < 10; i++ {
		if e.Step() {
			t.Fatalf("generation ended early at frame %d", e.Frame())
		}
	}
	if !e.Step() {
		t.Fatal("expected generation transition one tick past the budget")
	}
	if e.Generation() != 2 {
		t.Errorf("expected generation 2, got %d", e.Generation())
	}
	if e.Frame() != 0 {
		t.Errorf("expected frame reset to 0, got %d", e.Frame())
	}
	if e.AliveCount() != cfg.Population.Size {
		t.Errorf("expected full respawn, got %d alive", e.AliveCount())
	}
}

func TestFinishEndsRunAndCounts(t *testing.T) {
	cfg := testConfig([]string{
		"11111",
		"13021",
		"11111",
	})
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	seedUniform(t, e, forwardParams())

	ended := false
	for i := 0; i < 200; i++ {
		if e.Step() {
			ended = true
			break
		}
	}
	if !ended {
		t.Fatal("expected the generation to end once every agent finished")
	}
	if e.TotalFinishers() != cfg.Population.Size {
		t.Errorf("expected %d finishers, got %d", cfg.Population.Size, e.TotalFinishers())
	}
	if e.Generation() != 2 {
		t.Errorf("expected generation 2, got %d", e.Generation())
	}
}

func TestCollisionsAccumulateThenKill(t *testing.T) {
	cfg := testConfig([]string{
		"111111",
		"130001",
		"111111",
	})
	cfg.Scoring.IdleLimit = 1000
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	seedUniform(t, e, forwardParams())

	maxCollisions := int32(0)
	ended := false
	for i := 0; i < 200; i++ {
		done := e.Step()
		if done {
			ended = true
			break
		}
		for _, a := range e.Snapshot().Agents {
			if a.Collisions > maxCollisions {
				maxCollisions = a.Collisions
			}
		}
	}

	if !ended {
		t.Fatal("expected all agents to die on the wall")
	}
	// Two collisions are survivable, the third is fatal. The fatal tick is
	// swallowed by the generation transition, so the last visible count is 2.
	if maxCollisions != 2 {
		t.Errorf("expected to observe 2 survivable collisions, saw %d", maxCollisions)
	}
	if e.TotalFinishers() != 0 {
		t.Errorf("expected no finishers, got %d", e.TotalFinishers())
	}
}

func TestDeterministicRuns(t *testing.T) {
	run := func(seed int64) Snapshot {
		cfg := testConfig(corridorRows())
		e, err := New(cfg, seed)
		if err != nil {
			t.Fatalf("creating engine: %v", err)
		}
		for i := 0; i < 150; i++ {
			e.Step()
		}
		return e.Snapshot()
	}

	a := run(42)
	b := run(42)

	if a.Generation != b.Generation || a.Frame != b.Frame || a.Alive != b.Alive {
		t.Fatalf("run state diverged: %+v vs %+v", a, b)
	}
	if a.LeaderID != b.LeaderID || a.LeaderScore != b.LeaderScore || a.AllTimeBest != b.AllTimeBest {
		t.Fatal("leader bookkeeping diverged between identical seeds")
	}
	for i := range a.Agents {
		if a.Agents[i] != b.Agents[i] {
			t.Fatalf("agent %d diverged: %+v vs %+v", i, a.Agents[i], b.Agents[i])
		}
	}
}

func TestSelectionFillsElites(t *testing.T) {
	cfg := testConfig(corridorRows())
	cfg.Population.MaxFrames = 5
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	for !e.Step() {
	}

	if len(e.elites) != cfg.Population.Elites {
		t.Errorf("expected %d elites after selection, got %d", cfg.Population.Elites, len(e.elites))
	}
}

func TestSelectionRanksElites(t *testing.T) {
	cfg := testConfig(corridorRows())
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	// Distinct known scores in population order. Every other fitness term is
	// identical across agents, so ranking follows the raw score.
	exports := make(map[uint32]neural.Parameters)
	var ids []uint32
	query := e.carFilter.Query()
	i := 0
	for query.Next() {
		_, _, _, car, score, _ := query.Get()
		score.Value = float32(100 * i)
		exports[car.ID] = e.policies[car.ID].Export()
		ids = append(ids, car.ID)
		i++
	}

	e.advanceGeneration()

	if len(e.elites) != cfg.Population.Elites {
		t.Fatalf("expected %d elites, got %d", cfg.Population.Elites, len(e.elites))
	}
	// Descending fitness: the later-spawned agents scored highest.
	want := []uint32{ids[3], ids[2]}
	for j, id := range want {
		if !reflect.DeepEqual(e.elites[j].Export(), exports[id]) {
			t.Errorf("elite %d is not a clone of agent %d's policy", j, id)
		}
	}
}

func TestFinishAwardsExactBonus(t *testing.T) {
	cfg := testConfig(corridorRows())
	cfg.Scoring.IdleLimit = 1000
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	seedUniform(t, e, zeroParams())

	// Teleport all but the first agent onto the finish tile with their
	// progress bookkeeping already settled there, so the only score delta on
	// the next tick is the finish bonus. The first agent stays at the spawn
	// so the generation keeps running.
	fx, fy := e.tiles.CellCenter(track.Cell{Row: 1, Col: 10})
	query := e.carFilter.Query()
	first := true
	for query.Next() {
		pos, _, _, _, score, _ := query.Get()
		if first {
			first = false
			continue
		}
		pos.X, pos.Y = fx, fy
		score.PrevX, score.PrevY = fx, fy
		score.DistToFinish = 0
		score.BestDistToFinish = 0
	}

	if e.Step() {
		t.Fatal("generation should not end while one agent survives")
	}
	if e.AliveCount() != 1 {
		t.Fatalf("expected 1 survivor, got %d", e.AliveCount())
	}

	finished := 0
	for _, a := range e.Snapshot().Agents {
		if !a.Finished {
			continue
		}
		finished++
		if a.Alive {
			t.Errorf("agent %d finished but is still alive", a.ID)
		}
		if a.Score != float32(cfg.Scoring.FinishBonus) {
			t.Errorf("agent %d score %f, want exactly %f", a.ID, a.Score, cfg.Scoring.FinishBonus)
		}
	}
	if finished != cfg.Population.Size-1 {
		t.Errorf("expected %d finishers, got %d", cfg.Population.Size-1, finished)
	}
}

func TestCollisionPenaltyAccumulatesExactly(t *testing.T) {
	cfg := testConfig(corridorRows())
	cfg.Scoring.IdleLimit = 1000
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	seedUniform(t, e, zeroParams())

	// Plant one stationary agent inside a wall; the rest idle at the spawn
	// and keep the generation alive.
	wx, wy := e.tiles.CellCenter(track.Cell{Row: 0, Col: 1})
	var walledID uint32
	query := e.carFilter.Query()
	i := 0
	for query.Next() {
		pos, _, _, car, score, _ := query.Get()
		if i == 1 {
			pos.X, pos.Y = wx, wy
			score.PrevX, score.PrevY = wx, wy
			walledID = car.ID
		}
		i++
	}

	// Penalty scales with the running count: -40, then -80, then -120, and
	// the third collision is fatal.
	wantScores := []float32{-40, -120, -240}
	for tick, want := range wantScores {
		if e.Step() {
			t.Fatalf("generation ended early at tick %d", tick+1)
		}
		found := false
		for _, a := range e.Snapshot().Agents {
			if a.ID != walledID {
				continue
			}
			found = true
			if a.Score != want {
				t.Errorf("tick %d: score %f, want %f", tick+1, a.Score, want)
			}
			if a.Collisions != int32(tick+1) {
				t.Errorf("tick %d: collision count %d, want %d", tick+1, a.Collisions, tick+1)
			}
			wantAlive := tick < 2
			if a.Alive != wantAlive {
				t.Errorf("tick %d: alive = %v, want %v", tick+1, a.Alive, wantAlive)
			}
		}
		if !found {
			t.Fatalf("tick %d: walled agent missing from snapshot", tick+1)
		}
	}
}

func TestGenerationTurnoverFreesEntities(t *testing.T) {
	cfg := testConfig(corridorRows())
	cfg.Population.MaxFrames = 5
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	var old []ecs.Entity
	query := e.carFilter.Query()
	for query.Next() {
		old = append(old, query.Entity())
	}

	for !e.Step() {
	}

	// Respawn must not leak the previous generation's entities.
	for _, entity := range old {
		if e.world.Alive(entity) {
			t.Errorf("entity %v from the previous generation still in the world", entity)
		}
	}
	if e.AliveCount() != cfg.Population.Size {
		t.Errorf("expected full respawn, got %d alive", e.AliveCount())
	}
}

func TestLoadPolicyKeepsRunsComparable(t *testing.T) {
	// Loading a policy and then resetting must leave the engine in exactly
	// the state of a run that never loaded: loading may not consume the
	// deterministic stream.
	run := func(load bool) Snapshot {
		cfg := testConfig(corridorRows())
		cfg.Population.MutationRate = 0
		e, err := New(cfg, 7)
		if err != nil {
			t.Fatalf("creating engine: %v", err)
		}
		if load {
			if err := e.LoadPolicy(SavedPolicy{Params: forwardParams()}); err != nil {
				t.Fatalf("loading policy: %v", err)
			}
		}
		e.ResetAll()
		for i := 0; i < 100; i++ {
			e.Step()
		}
		return e.Snapshot()
	}

	a := run(true)
	b := run(false)

	if a.Generation != b.Generation || a.Frame != b.Frame || a.Alive != b.Alive {
		t.Fatalf("run state diverged after load+reset: %+v vs %+v", a, b)
	}
	for i := range a.Agents {
		if a.Agents[i] != b.Agents[i] {
			t.Fatalf("agent %d diverged after load+reset: %+v vs %+v", i, a.Agents[i], b.Agents[i])
		}
	}
}

func TestFitness(t *testing.T) {
	cfg := testConfig(corridorRows())
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	closeTo := func(got, want float32) bool {
		d := got - want
		return d > -0.01 && d < 0.01
	}

	base := components.Score{
		Value:            100,
		FramesAlive:      50,
		SpeedSum:         100, // average speed 2
		BestDistToFinish: 400,
	}
	// 100 + 50*0.1 + 2*50 + (1000-400)*0.2 = 100 + 5 + 100 + 120
	alive := components.Car{Alive: true}
	if got := e.fitness(&alive, &base); !closeTo(got, 325) {
		t.Errorf("living agent fitness = %f, want 325", got)
	}

	// Dying unfinished discounts the raw score before the additive terms.
	dead := components.Car{Alive: false}
	if got := e.fitness(&dead, &base); !closeTo(got, 0.7*100+5+100+120) {
		t.Errorf("dead agent fitness = %f, want 295", got)
	}

	// Finishing always escapes the death discount.
	finished := components.Car{Alive: false, Finished: true}
	if got := e.fitness(&finished, &base); !closeTo(got, 325) {
		t.Errorf("finished agent fitness = %f, want 325", got)
	}

	// Fitness never goes negative.
	awful := components.Score{Value: -10000, FramesAlive: 1, BestDistToFinish: 9999}
	if got := e.fitness(&dead, &awful); got != 0 {
		t.Errorf("expected fitness floor at 0, got %f", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := testConfig(corridorRows())
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	for i := 0; i < 20; i++ {
		e.Step()
	}

	path := filepath.Join(t.TempDir(), "policy.json")
	if err := e.SaveBest(path); err != nil {
		t.Fatalf("saving policy: %v", err)
	}

	if err := e.LoadPolicyFile(path); err != nil {
		t.Fatalf("loading policy: %v", err)
	}
	if e.Generation() != 1 {
		t.Errorf("expected restart at generation 1, got %d", e.Generation())
	}
	if e.AllTimeBest() != 0 {
		t.Errorf("expected all-time best reset, got %f", e.AllTimeBest())
	}
	if e.AliveCount() != cfg.Population.Size {
		t.Errorf("expected full population, got %d", e.AliveCount())
	}
}

func TestLoadPolicyShapeMismatch(t *testing.T) {
	cfg := testConfig(corridorRows())
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	bad := zeroParams()
	bad.Shapes[0] = []int{neural.NumHidden, neural.NumInputs + 1}
	if err := e.LoadPolicy(SavedPolicy{Params: bad}); !errors.Is(err, neural.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestResetAll(t *testing.T) {
	cfg := testConfig(corridorRows())
	cfg.Population.MaxFrames = 5
	e, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	for e.Generation() < 3 {
		e.Step()
	}

	e.ResetAll()
	if e.Generation() != 1 {
		t.Errorf("expected generation 1 after reset, got %d", e.Generation())
	}
	if len(e.elites) != 0 || e.seeded != nil {
		t.Error("expected evolved state discarded on reset")
	}
	if e.AliveCount() != cfg.Population.Size {
		t.Errorf("expected full population after reset, got %d", e.AliveCount())
	}
}
