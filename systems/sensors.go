// Package systems provides the sensing and stepping helpers shared by the
// simulation engine.
package systems

import (
	"math"

	"roadevo/track"
)

// RayCaster casts fixed-angle rays against the tile map and reports the
// distance to the first wall along each ray.
type RayCaster struct {
	angles   []float32 // offsets relative to heading, radians
	step     float32   // sample spacing, pixels
	maxRange float32   // pixels
}

// NewRayCaster creates a caster with the given angular offsets in degrees.
func NewRayCaster(anglesDeg []float64, stepPx, maxRangePx float64) *RayCaster {
	angles := make([]float32, len(anglesDeg))
	for i, deg := range anglesDeg {
		angles[i] = float32(deg * math.Pi / 180.0)
	}
	return &RayCaster{
		angles:   angles,
		step:     float32(stepPx),
		maxRange: float32(maxRangePx),
	}
}

// NumRays returns the number of configured rays.
func (rc *RayCaster) NumRays() int { return len(rc.angles) }

// MaxRange returns the casting range in pixels.
func (rc *RayCaster) MaxRange() float32 { return rc.maxRange }

// Cast fills out with one raw distance per ray, each in [0, maxRange].
// A ray stops at the first sampled point on a wall tile (out of bounds
// counts as wall); a clear ray reports the maximum range. out must hold
// NumRays values.
func (rc *RayCaster) Cast(tiles *track.TileMap, x, y, heading float32, out []float32) {
	for i, offset := range rc.angles {
		angle := heading + offset
		dirX := float32(math.Cos(float64(angle)))
		dirY := float32(math.Sin(float64(angle)))

		dist := rc.maxRange
		for d := float32(0); d <= rc.maxRange; d += rc.step {
			if tiles.KindAtWorld(x+dirX*d, y+dirY*d) == track.Wall {
				dist = d
				break
			}
		}
		out[i] = dist
	}
}

// Normalize maps a raw distance to a [0,1] reading: 1 = clear, 0 = wall.
func (rc *RayCaster) Normalize(raw float32) float32 {
	n := raw / rc.maxRange
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
