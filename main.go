package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"roadevo/config"
	"roadevo/server"
	"roadevo/sim"
	"roadevo/telemetry"
	"roadevo/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxGenerations := flag.Int("max-generations", 0, "Stop after N generations (0 = unlimited)")
	listenAddr := flag.String("listen", "", "Address for the websocket snapshot server (empty = disabled)")
	policyPath := flag.String("policy", "best_policy.json", "Path used when saving or loading a policy")
	loadPolicy := flag.Bool("load-policy", false, "Seed the first generation from the policy file")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	engine, err := sim.New(cfg, rngSeed)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}
	engine.SetCollector(telemetry.NewCollector(output))

	if *loadPolicy {
		if err := engine.LoadPolicyFile(*policyPath); err != nil {
			slog.Error("failed to load policy", "path", *policyPath, "error", err)
			os.Exit(1)
		}
		slog.Info("seeded from policy", "path", *policyPath)
	}

	var hub *server.Hub
	if *listenAddr != "" {
		hub = server.NewHub(engine.Tiles())
		go hub.Run()
		go func() {
			if err := hub.Serve(*listenAddr); err != nil {
				slog.Error("snapshot server failed", "error", err)
			}
		}()
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"headless", *headless,
		"max_generations", *maxGenerations,
		"population", cfg.Population.Size,
	)

	if *headless {
		runHeadless(engine, hub, *maxGenerations)
		return
	}

	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Road Evolution")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v := viewer.New(engine, cfg, viewer.Options{PolicyPath: *policyPath, Hub: hub})
	v.Run()
}

// runHeadless steps the simulation as fast as possible, broadcasting only at
// generation transitions to keep remote watching cheap.
func runHeadless(engine *sim.Engine, hub *server.Hub, maxGenerations int) {
	for {
		if engine.Step() {
			if hub != nil {
				hub.Broadcast(engine.Snapshot())
			}
			if maxGenerations > 0 && engine.Generation() > maxGenerations {
				slog.Info("max generations reached", "generation", engine.Generation()-1)
				return
			}
		}
	}
}
