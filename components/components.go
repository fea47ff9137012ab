// Package components defines ECS components for the simulation.
package components

import (
	"roadevo/neural"
)

// Position represents an agent's world position in pixels.
type Position struct {
	X, Y float32
}

// Velocity represents an agent's velocity in pixels per tick.
type Velocity struct {
	X, Y float32
}

// Rotation represents an agent's heading in radians.
type Rotation struct {
	Heading float32
}

// Car holds per-agent lifecycle state. Finished and not-Alive are terminal
// within a generation; no step transitions out of them.
type Car struct {
	ID         uint32
	Alive      bool
	Finished   bool
	IdleFrames int32
	Collisions int32
}

// Score holds the running score and the bookkeeping that feeds fitness.
type Score struct {
	Value       float32
	Distance    float32 // total distance travelled, pixels
	FramesAlive int32
	SpeedSum    float32 // accumulated per-tick speed, for average speed

	DistToFinish     float32 // oracle distance at the last tick
	BestDistToFinish float32 // minimum oracle distance ever seen

	PrevX, PrevY float32 // position at the previous tick
}

// SensorState holds the latest normalized sensor readings, kept for the
// presentation snapshot so viewers can draw rays without re-casting.
type SensorState struct {
	Readings [neural.NumInputs]float32
}
