package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title          string
	Generation     int
	Frame          int
	MaxFrames      int
	Alive          int
	Total          int
	LeaderScore    float32
	AllTimeBest    float32
	TotalFinishers int
	Speed          int
	FPS            int32
	Paused         bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	width := int32(280)
	height := r.Theme.LineHeight*7 + r.Theme.Padding*2 + 30

	r.DrawPanel(5, 5, width, height)

	x := int32(5) + r.Theme.Padding
	y := int32(5) + r.Theme.Padding

	rl.DrawText(data.Title, x, y, 18, rl.White)
	y += 24

	y = r.DrawLabelValue(x, y, "Generation", fmt.Sprintf("%d", data.Generation))
	y = r.DrawLabelValue(x, y, "Alive", fmt.Sprintf("%d / %d", data.Alive, data.Total))
	y = r.DrawLabelValue(x, y, "Leader", fmt.Sprintf("%.1f", data.LeaderScore))
	y = r.DrawLabelValue(x, y, "Best ever", fmt.Sprintf("%.1f", data.AllTimeBest))
	y = r.DrawLabelValue(x, y, "Finishers", fmt.Sprintf("%d", data.TotalFinishers))
	y = r.DrawLabelValue(x, y, "Speed", fmt.Sprintf("%dx | FPS %d", data.Speed, data.FPS))

	progress := float32(0)
	if data.MaxFrames > 0 {
		progress = float32(data.Frame) / float32(data.MaxFrames)
	}
	r.DrawBar(x, y, "Frame", progress, width-r.Theme.Padding*2)

	if data.Paused {
		rl.DrawText("PAUSED", x+width-70, int32(5)+r.Theme.Padding, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
