// Package main provides CMA-ES optimization for evolution and physics
// parameters that produce fast-learning driving populations.
package main

import (
	"roadevo/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Evolution
			{Name: "mutation_rate", Path: "population.mutation_rate", Min: 0.01, Max: 0.5, Default: 0.1},
			{Name: "mutation_sigma", Path: "population.mutation_sigma", Min: 0.01, Max: 0.5, Default: 0.1},
			// Physics
			{Name: "turn_scale", Path: "physics.turn_scale", Min: 0.02, Max: 0.3, Default: 0.1},
			{Name: "accel_scale", Path: "physics.accel_scale", Min: 0.1, Max: 1.0, Default: 0.3},
			{Name: "friction", Path: "physics.friction", Min: 0.85, Max: 0.99, Default: 0.95},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies clamped parameter values to a Config struct. Order
// must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Population.MutationRate = clamped[0]
	cfg.Population.MutationSigma = clamped[1]
	cfg.Physics.TurnScale = clamped[2]
	cfg.Physics.AccelScale = clamped[3]
	cfg.Physics.Friction = clamped[4]
}
