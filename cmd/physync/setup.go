package main

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/config"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/physics"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newTimestep builds the stepper described by the [simulation] section.
func newTimestep(cfg config.SimulationConfig) (*physics.Timestep, error) {
	var (
		ts  *physics.Timestep
		err error
	)
	switch cfg.Timestep {
	case "fixed":
		ts, err = physics.NewFixed(physics.HzToDuration(cfg.FixedHz))
	case "semi_fixed":
		ladder := make([]time.Duration, len(cfg.LadderHz))
		for i, hz := range cfg.LadderHz {
			ladder[i] = physics.HzToDuration(hz)
		}
		ts, err = physics.NewSemiFixed(ladder, cfg.MaxPhysicsTimeFraction,
			cfg.MinimumTimeRunningSlow, cfg.MinimumTimeRunningFast)
		if err == nil && cfg.Hysteresis > 0 {
			ts.WithHysteresis(cfg.Hysteresis)
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", physics.ErrInvalidTimestep, cfg.Timestep)
	}
	if err != nil {
		return nil, err
	}
	if cfg.IterLimit > 0 {
		ts.WithIterLimit(cfg.IterLimit)
	}
	if cfg.TimeScale > 0 {
		ts.WithTimeScale(cfg.TimeScale)
	}
	return ts.WithFrameTimeLimit(cfg.FrameTimeLimit), nil
}

// newParameters maps the config onto the engine parameters the
// parameter stage keeps in sync.
func newParameters(cfg *config.Config) physics.Parameters {
	var p physics.Parameters
	p.SetGravity(mgl64.Vec3(cfg.Simulation.Gravity))
	if ic := cfg.Integration; ic.Enabled {
		p.SetIntegration(engine.IntegrationParameters{
			ErrorReduction:               ic.ErrorReduction,
			Warmstart:                    ic.Warmstart,
			RestitutionVelocityThreshold: ic.RestitutionVelocityThreshold,
			AllowedLinearError:           ic.AllowedLinearError,
			AllowedAngularError:          ic.AllowedAngularError,
			MaxLinearCorrection:          ic.MaxLinearCorrection,
			MaxAngularCorrection:         ic.MaxAngularCorrection,
			MaxStabilizationMultiplier:   ic.MaxStabilizationMultiplier,
			MaxVelocityIterations:        ic.MaxVelocityIterations,
			MaxPositionIterations:        ic.MaxPositionIterations,
		})
	}
	p.SetProfiling(cfg.Integration.Profiling)
	return p
}

// startProfile starts pkg/profile in the configured mode. The returned
// stop func is a no-op when profiling is off.
func startProfile(cfg config.ProfileConfig) (func(), error) {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "":
		return func() {}, nil
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	case "block":
		mode = profile.BlockProfile
	case "mutex":
		mode = profile.MutexProfile
	case "trace":
		mode = profile.TraceProfile
	default:
		return nil, fmt.Errorf("profile.mode %q: want cpu, mem, block, mutex or trace", cfg.Mode)
	}
	p := profile.Start(mode, profile.ProfilePath(cfg.Path), profile.NoShutdownHook, profile.Quiet)
	return p.Stop, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
