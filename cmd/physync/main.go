package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l1jgo/physync/internal/config"
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/core/event"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/data"
	"github.com/l1jgo/physync/internal/engine"
	gonet "github.com/l1jgo/physync/internal/net"
	"github.com/l1jgo/physync/internal/persist"
	"github.com/l1jgo/physync/internal/physics"
	"github.com/l1jgo/physync/internal/scripting"
	"github.com/l1jgo/physync/internal/system"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := config.Path("config/physync.toml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	stopProfile, err := startProfile(cfg.Profile)
	if err != nil {
		return err
	}
	defer stopProfile()

	// 3. Load data
	mats, err := data.LoadMaterialTable(cfg.Data.Materials)
	if err != nil {
		return fmt.Errorf("load materials: %w", err)
	}
	log.Info("materials loaded", zap.Int("materials", mats.Count()), zap.Int("groups", mats.GroupCount()))

	var scene *data.Scene
	if cfg.Data.Scene != "" {
		if scene, err = data.LoadScene(cfg.Data.Scene); err != nil {
			return fmt.Errorf("load scene: %w", err)
		}
	}

	// 4. Lua force scripts
	lua, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer lua.Close()

	// 5. Physics world
	ts, err := newTimestep(cfg.Simulation)
	if err != nil {
		return fmt.Errorf("timestep: %w", err)
	}
	params := newParameters(cfg)
	pw := physics.NewWorld(ecs.NewWorld(), event.NewBus(), engine.NewSimple(), nil)

	if scene != nil {
		if _, err := spawnScene(pw, scene, mats); err != nil {
			return err
		}
		log.Info("scene spawned",
			zap.String("file", cfg.Data.Scene),
			zap.Int("scene_entities", scene.Count()),
			zap.Int("entities", pw.ECS.Pool().Len()),
		)
	}

	runner := coresys.NewRunner()
	bundle := system.NewPhysicsBundle(*params.Gravity).
		WithStepper(ts).
		WithParameters(params).
		WithScripts(lua)
	if err := bundle.Register(runner, pw, log); err != nil {
		return err
	}

	// 6. Optional telemetry database
	var telemetry *system.TelemetrySystem
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()

		if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}

		runID := time.Now().UTC().Format("20060102T150405Z")
		repo := persist.NewTelemetryRepo(db, runID)
		telemetry = system.NewTelemetrySystem(pw, repo, cfg.Telemetry.FlushEvery, cfg.Telemetry.FlushTimeout, log.Named("telemetry"))
		if err := runner.Register("telemetry", telemetry); err != nil {
			return err
		}
		log.Info("telemetry enabled", zap.String("run", repo.RunID()))
	}

	// 7. Optional websocket stream
	var stream *gonet.Server
	if cfg.Stream.Enabled {
		stream, err = gonet.NewServer(cfg.Stream.BindAddress, cfg.Stream.OutQueueSize, cfg.Stream.WriteTimeout, log.Named("stream"))
		if err != nil {
			return fmt.Errorf("stream server: %w", err)
		}
		go stream.Serve()

		sys := system.NewStreamSystem(pw, stream, cfg.Stream.EveryNFrames, log.Named("stream"))
		if err := runner.Register("stream", sys); err != nil {
			return err
		}
		log.Info("stream listening", zap.String("addr", stream.Addr().String()+gonet.StreamPath))
	}

	if err := runner.Setup(); err != nil {
		return fmt.Errorf("systems: %w", err)
	}
	log.Debug("system order", zap.Strings("order", runner.Order()))

	// 8. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	frame := cfg.Simulation.FrameDuration()
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	log.Info("simulation started",
		zap.Duration("frame", frame),
		zap.String("timestep", ts.Mode().String()),
		zap.Duration("step", ts.Target()),
	)

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			if telemetry != nil {
				telemetry.Flush()
			}
			if stream != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := stream.Shutdown(ctx); err != nil {
					log.Warn("stream shutdown", zap.Error(err))
				}
				cancel()
			}
			snap := ts.Snapshot()
			log.Info("simulation stopped", zap.Uint64("steps", snap.GlobalSteps))
			return nil
		}
	}
}
