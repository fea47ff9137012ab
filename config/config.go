// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfiguration marks setup errors that must abort before any
// generation runs: bad population sizing, degenerate track grids, and the
// like. Callers test for it with errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Track      TrackConfig      `yaml:"track"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Population PopulationConfig `yaml:"population"`
	Oracle     OracleConfig     `yaml:"oracle"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// TrackConfig holds the tile grid as rows of digit codes plus the cell size.
// Tile codes: 0 = road, 1 = wall, 2 = finish, 3 = spawn.
type TrackConfig struct {
	CellSize float64  `yaml:"cell_size"`
	Rows     []string `yaml:"rows"`
}

// SensorsConfig holds ray casting parameters.
// len(AnglesDeg) must match neural.NumInputs.
type SensorsConfig struct {
	AnglesDeg  []float64 `yaml:"angles_deg"`
	StepPx     float64   `yaml:"step_px"`
	MaxRangePx float64   `yaml:"max_range_px"`
}

// PhysicsConfig holds the kinematics constants applied each tick.
type PhysicsConfig struct {
	TurnScale  float64 `yaml:"turn_scale"`  // heading delta per unit rotation output
	AccelScale float64 `yaml:"accel_scale"` // velocity delta per unit throttle output
	Friction   float64 `yaml:"friction"`    // velocity retained per tick
}

// ScoringConfig holds the in-tick score accrual and fitness weights.
type ScoringConfig struct {
	IdleSpeed        float64 `yaml:"idle_speed"`        // below this speed a frame counts as idle
	IdleLimit        int     `yaml:"idle_limit"`        // idle frames tolerated before death
	IdlePenalty      float64 `yaml:"idle_penalty"`      // flat score penalty on idle death
	FastThreshold    float64 `yaml:"fast_threshold"`
	FastRate         float64 `yaml:"fast_rate"`
	SlowThreshold    float64 `yaml:"slow_threshold"`
	SlowRate         float64 `yaml:"slow_rate"`
	ProgressRate     float64 `yaml:"progress_rate"`     // score per pixel of oracle progress
	FinishBonus      float64 `yaml:"finish_bonus"`
	CollisionPenalty float64 `yaml:"collision_penalty"` // scaled by the running collision count
	MaxCollisions    int     `yaml:"max_collisions"`    // collisions tolerated before death
	DeathFactor      float64 `yaml:"death_factor"`      // fitness multiplier for dying unfinished
	FrameWeight      float64 `yaml:"frame_weight"`
	SpeedWeight      float64 `yaml:"speed_weight"`
	ProximityBase    float64 `yaml:"proximity_base"`
	ProximityRate    float64 `yaml:"proximity_rate"`
}

// PopulationConfig holds generation lifecycle parameters.
type PopulationConfig struct {
	Size          int     `yaml:"size"`
	Elites        int     `yaml:"elites"`
	MaxFrames     int     `yaml:"max_frames"`
	MutationRate  float64 `yaml:"mutation_rate"`
	MutationSigma float64 `yaml:"mutation_sigma"`
}

// OracleConfig holds finish-distance oracle parameters.
type OracleConfig struct {
	CacheSize  int     `yaml:"cache_size"`
	SentinelPx float64 `yaml:"sentinel_px"` // distance reported when no finish is reachable
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The result is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values that would make a run
// meaningless. It fails fast, before any generation is spawned.
func (c *Config) Validate() error {
	if c.Population.Size <= 0 {
		return fmt.Errorf("%w: population size %d, must be positive", ErrInvalidConfiguration, c.Population.Size)
	}
	if c.Population.Elites <= 0 || c.Population.Elites > c.Population.Size {
		return fmt.Errorf("%w: elite count %d outside 1..%d", ErrInvalidConfiguration, c.Population.Elites, c.Population.Size)
	}
	if c.Population.MaxFrames <= 0 {
		return fmt.Errorf("%w: max frames %d, must be positive", ErrInvalidConfiguration, c.Population.MaxFrames)
	}
	if c.Population.MutationRate < 0 || c.Population.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate %g outside [0,1]", ErrInvalidConfiguration, c.Population.MutationRate)
	}
	if c.Track.CellSize <= 0 {
		return fmt.Errorf("%w: track cell size %g, must be positive", ErrInvalidConfiguration, c.Track.CellSize)
	}
	if len(c.Track.Rows) == 0 || len(c.Track.Rows[0]) == 0 {
		return fmt.Errorf("%w: track grid has zero dimensions", ErrInvalidConfiguration)
	}
	if len(c.Sensors.AnglesDeg) == 0 {
		return fmt.Errorf("%w: no sensor angles configured", ErrInvalidConfiguration)
	}
	if c.Sensors.StepPx <= 0 || c.Sensors.MaxRangePx <= 0 {
		return fmt.Errorf("%w: sensor step/range must be positive", ErrInvalidConfiguration)
	}
	if c.Oracle.CacheSize <= 0 {
		return fmt.Errorf("%w: oracle cache size %d, must be positive", ErrInvalidConfiguration, c.Oracle.CacheSize)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
