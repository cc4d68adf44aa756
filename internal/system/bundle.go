package system

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

// Stage names registered by PhysicsBundle. Application systems use them in
// their runs-after lists.
const (
	StageEventDispatch = "event_dispatch"
	StageForces        = "forces"
	StageBodies        = "sync_bodies"
	StageColliders     = "sync_colliders"
	StageJoints        = "sync_joints"
	StageParameters    = "sync_parameters"
	StageStepper       = "stepper"
	StagePose          = "pose_readback"
	StageEvents        = "event_translation"
	StageCleanup       = "cleanup"
)

const defaultStepperHz = 60

// PhysicsBundle wires the physics stages into a runner with their ordering:
// forces → bodies → colliders → joints → parameters → stepper → pose → events.
type PhysicsBundle struct {
	gravity   mgl64.Vec3
	bodyDeps  []string
	timestep  *physics.Timestep
	params    *physics.Parameters
	scripts   ForceScripts
	stepperHz float64
}

// NewPhysicsBundle creates a bundle with the given gravity. bodyDeps name
// systems the body stage must run after.
func NewPhysicsBundle(gravity mgl64.Vec3, bodyDeps ...string) *PhysicsBundle {
	return &PhysicsBundle{gravity: gravity, bodyDeps: bodyDeps}
}

// WithFixedStepper steps at a fixed rate in Hz.
func (b *PhysicsBundle) WithFixedStepper(hz float64) *PhysicsBundle {
	b.stepperHz = hz
	b.timestep = nil
	return b
}

// WithStepper uses a caller-built timestep (fixed or semi-fixed).
func (b *PhysicsBundle) WithStepper(ts *physics.Timestep) *PhysicsBundle {
	b.timestep = ts
	return b
}

// WithDeps adds systems the body stage must run after.
func (b *PhysicsBundle) WithDeps(deps ...string) *PhysicsBundle {
	b.bodyDeps = append(b.bodyDeps, deps...)
	return b
}

// WithParameters sets the initial desired parameters. The bundle's gravity
// is used when p has none.
func (b *PhysicsBundle) WithParameters(p physics.Parameters) *PhysicsBundle {
	b.params = &p
	return b
}

func (b *PhysicsBundle) WithScripts(s ForceScripts) *PhysicsBundle {
	b.scripts = s
	return b
}

func (b *PhysicsBundle) stepper() (*physics.Timestep, error) {
	if b.timestep != nil {
		return b.timestep, nil
	}
	hz := b.stepperHz
	if hz == 0 {
		hz = defaultStepperHz
	}
	if hz < 0 {
		return nil, fmt.Errorf("%w: stepper rate %v Hz", physics.ErrInvalidTimestep, hz)
	}
	return physics.NewFixed(physics.HzToDuration(hz))
}

// Register installs the timestep and parameters into w and adds every
// stage to r. Ordering problems surface from r.Setup.
func (b *PhysicsBundle) Register(r *coresys.Runner, w *physics.World, log *zap.Logger) error {
	if w == nil || w.Engine == nil {
		return fmt.Errorf("physics bundle: nil world or engine")
	}
	ts, err := b.stepper()
	if err != nil {
		return fmt.Errorf("physics bundle: %w", err)
	}
	w.Timestep = ts

	params := physics.Parameters{}
	if b.params != nil {
		params = *b.params
	}
	if params.Gravity == nil {
		params.SetGravity(b.gravity)
	}
	w.Parameters = &params

	bodyDeps := append([]string{StageForces}, b.bodyDeps...)
	stages := []struct {
		name  string
		sys   coresys.System
		after []string
	}{
		{StageEventDispatch, NewEventDispatchSystem(w.Bus), nil},
		{StageForces, NewForceSystem(w, b.scripts, log.Named("forces")), nil},
		{StageBodies, NewBodySyncSystem(w, log.Named("bodies")), bodyDeps},
		{StageColliders, NewColliderSyncSystem(w, log.Named("colliders")), []string{StageBodies}},
		{StageJoints, NewJointSyncSystem(w, log.Named("joints")), []string{StageBodies, StageColliders}},
		{StageParameters, NewParameterSyncSystem(w, log.Named("parameters")), []string{StageJoints}},
		{StageStepper, NewStepperSystem(w, log.Named("stepper")), []string{StageParameters}},
		{StagePose, NewPoseSystem(w), []string{StageStepper}},
		{StageEvents, NewEventTranslationSystem(w, log.Named("events")), []string{StageStepper, StagePose}},
		{StageCleanup, NewCleanupSystem(w.ECS, log.Named("cleanup")), []string{StageEvents}},
	}
	for _, st := range stages {
		if err := r.Register(st.name, st.sys, st.after...); err != nil {
			return fmt.Errorf("physics bundle: %w", err)
		}
	}
	return nil
}
