// Package viewer runs the interactive raylib front end for the simulation.
package viewer

import (
	"log/slog"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"roadevo/camera"
	"roadevo/config"
	"roadevo/server"
	"roadevo/sim"
	"roadevo/track"
	"roadevo/ui"
)

// Options configures the viewer.
type Options struct {
	PolicyPath string // file used by the save and load buttons
	Hub        *server.Hub
}

// Viewer owns the window loop: input, simulation stepping, and drawing.
type Viewer struct {
	engine *sim.Engine
	cfg    *config.Config
	cam    *camera.Camera
	hud    *ui.HUD
	panel  *ui.ControlsPanel

	hub        *server.Hub
	policyPath string

	speed  int // simulation ticks per rendered frame
	paused bool
}

// New creates a viewer for the given engine. The raylib window must already
// be open.
func New(engine *sim.Engine, cfg *config.Config, opts Options) *Viewer {
	tiles := engine.Tiles()
	worldW := float32(tiles.Cols()) * tiles.CellSize()
	worldH := float32(tiles.Rows()) * tiles.CellSize()

	policyPath := opts.PolicyPath
	if policyPath == "" {
		policyPath = "best_policy.json"
	}

	return &Viewer{
		engine:     engine,
		cfg:        cfg,
		cam:        camera.New(float32(cfg.Screen.Width), float32(cfg.Screen.Height), worldW, worldH),
		hud:        ui.NewHUD(),
		panel:      ui.NewControlsPanel(),
		hub:        opts.Hub,
		policyPath: policyPath,
		speed:      1,
	}
}

// Run loops until the window is closed.
func (v *Viewer) Run() {
	for !rl.WindowShouldClose() {
		v.handleInput()
		v.update()
		v.draw()
	}
}

func (v *Viewer) handleInput() {
	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}
	if rl.IsKeyPressed(rl.KeyComma) && v.speed > 1 {
		v.speed--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && v.speed < 32 {
		v.speed *= 2
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		delta := rl.GetMouseDelta()
		v.cam.Pan(-delta.X, -delta.Y)
	}
}

func (v *Viewer) update() {
	if v.paused {
		return
	}
	for i := 0; i < v.speed; i++ {
		v.engine.Step()
	}
	if v.hub != nil {
		v.hub.Broadcast(v.engine.Snapshot())
	}
}

func (v *Viewer) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 12, G: 14, B: 18, A: 255})

	v.drawTrack()
	v.drawAgents()

	v.hud.Draw(ui.HUDData{
		Title:          "Road Evolution",
		Generation:     v.engine.Generation(),
		Frame:          v.engine.Frame(),
		MaxFrames:      v.cfg.Population.MaxFrames,
		Alive:          v.engine.AliveCount(),
		Total:          v.cfg.Population.Size,
		LeaderScore:    v.engine.LeaderScore(),
		AllTimeBest:    v.engine.AllTimeBest(),
		TotalFinishers: v.engine.TotalFinishers(),
		Speed:          v.speed,
		FPS:            rl.GetFPS(),
		Paused:         v.paused,
	})
	v.hud.DrawControls(int32(v.cfg.Screen.Height),
		"Space: pause | , . : speed | Wheel: zoom | Right drag: pan | Home: reset view")

	switch v.panel.Draw(int32(v.cfg.Screen.Width), int32(v.cfg.Screen.Height), v.paused) {
	case ui.ActionTogglePause:
		v.paused = !v.paused
	case ui.ActionSpeedDown:
		if v.speed > 1 {
			v.speed--
		}
	case ui.ActionSpeedUp:
		if v.speed < 32 {
			v.speed *= 2
		}
	case ui.ActionSaveBest:
		if err := v.engine.SaveBest(v.policyPath); err != nil {
			slog.Error("saving policy", "path", v.policyPath, "error", err)
		} else {
			slog.Info("policy saved", "path", v.policyPath)
		}
	case ui.ActionLoadPolicy:
		if err := v.engine.LoadPolicyFile(v.policyPath); err != nil {
			slog.Error("loading policy", "path", v.policyPath, "error", err)
		} else {
			slog.Info("policy loaded", "path", v.policyPath)
		}
	case ui.ActionReset:
		v.engine.ResetAll()
	}

	rl.EndDrawing()
}

var tileColors = map[track.TileKind]rl.Color{
	track.Road:   {R: 48, G: 52, B: 58, A: 255},
	track.Wall:   {R: 22, G: 24, B: 28, A: 255},
	track.Finish: {R: 60, G: 140, B: 70, A: 255},
	track.Spawn:  {R: 60, G: 90, B: 150, A: 255},
}

func (v *Viewer) drawTrack() {
	tiles := v.engine.Tiles()
	cell := tiles.CellSize()
	size := cell * v.cam.Zoom

	for r := 0; r < tiles.Rows(); r++ {
		for c := 0; c < tiles.Cols(); c++ {
			wx := float32(c) * cell
			wy := float32(r) * cell
			if !v.cam.IsVisible(wx+cell/2, wy+cell/2, cell) {
				continue
			}
			sx, sy := v.cam.WorldToScreen(wx, wy)
			color := tileColors[tiles.KindAt(r, c)]
			rl.DrawRectangle(int32(sx), int32(sy), int32(size)+1, int32(size)+1, color)
		}
	}
}

func (v *Viewer) drawAgents() {
	snap := v.engine.Snapshot()
	maxRange := float32(v.cfg.Sensors.MaxRangePx)

	for _, a := range snap.Agents {
		if !v.cam.IsVisible(a.X, a.Y, 20) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(a.X, a.Y)

		color := rl.Color{R: 200, G: 200, B: 210, A: 255}
		switch {
		case a.Finished:
			color = rl.Green
		case !a.Alive:
			color = rl.Color{R: 90, G: 60, B: 60, A: 160}
		case a.ID == snap.LeaderID:
			color = rl.Yellow
		}

		// Leader rays, scaled back to world length from the normalized
		// readings.
		if a.Alive && a.ID == snap.LeaderID {
			for i, angleDeg := range v.cfg.Sensors.AnglesDeg {
				angle := a.Heading + float32(angleDeg)*math.Pi/180
				length := a.Readings[i] * maxRange * v.cam.Zoom
				ex := sx + float32(math.Cos(float64(angle)))*length
				ey := sy + float32(math.Sin(float64(angle)))*length
				rl.DrawLine(int32(sx), int32(sy), int32(ex), int32(ey),
					rl.Color{R: 120, G: 120, B: 60, A: 120})
			}
		}

		drawCar(sx, sy, a.Heading, v.cam.Zoom, color)
	}
}

// drawCar draws a heading-oriented triangle.
func drawCar(sx, sy, heading, zoom float32, color rl.Color) {
	size := 7 * zoom
	cos := float32(math.Cos(float64(heading)))
	sin := float32(math.Sin(float64(heading)))

	nose := rl.Vector2{X: sx + cos*size, Y: sy + sin*size}
	left := rl.Vector2{X: sx - sin*size*0.5 - cos*size*0.6, Y: sy + cos*size*0.5 - sin*size*0.6}
	right := rl.Vector2{X: sx + sin*size*0.5 - cos*size*0.6, Y: sy - cos*size*0.5 - sin*size*0.6}

	rl.DrawTriangle(nose, left, right, color)
}
