package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Action is what the user asked for through the control panel this frame.
type Action int

const (
	ActionNone Action = iota
	ActionTogglePause
	ActionSpeedDown
	ActionSpeedUp
	ActionSaveBest
	ActionLoadPolicy
	ActionReset
)

// ControlsPanel renders the clickable control buttons along the bottom edge.
type ControlsPanel struct {
	renderer *Renderer
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel() *ControlsPanel {
	return &ControlsPanel{renderer: NewRenderer()}
}

// Draw renders the buttons and returns the action clicked this frame, if any.
// Only one action is reported per frame.
func (c *ControlsPanel) Draw(screenWidth, screenHeight int32, paused bool) Action {
	buttonW := float32(90)
	buttonH := float32(26)
	gap := float32(8)
	y := float32(screenHeight) - buttonH - 34

	x := float32(10)

	pauseLabel := "Pause"
	if paused {
		pauseLabel = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: buttonW, Height: buttonH}, pauseLabel) {
		return ActionTogglePause
	}
	x += buttonW + gap

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: buttonW / 2, Height: buttonH}, "-") {
		return ActionSpeedDown
	}
	x += buttonW/2 + gap

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: buttonW / 2, Height: buttonH}, "+") {
		return ActionSpeedUp
	}
	x += buttonW/2 + gap

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: buttonW, Height: buttonH}, "Save Best") {
		return ActionSaveBest
	}
	x += buttonW + gap

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: buttonW, Height: buttonH}, "Load") {
		return ActionLoadPolicy
	}
	x += buttonW + gap

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: buttonW, Height: buttonH}, "Reset") {
		return ActionReset
	}

	return ActionNone
}
