// Package engine defines the physics engine collaborator the sync layer
// drives, and Simple, a small reference implementation of it.
package engine

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/geom"
)

type (
	BodyHandle     uint32
	ColliderHandle uint32
	JointHandle    uint32
)

// Ground is the static body every engine owns. It is never removed and
// never read back.
const Ground BodyHandle = 0

// BodyPartHandle addresses one part of a (possibly multibody) body.
type BodyPartHandle struct {
	Body BodyHandle
	Part int
}

func GroundPart() BodyPartHandle { return BodyPartHandle{Body: Ground} }

func (h BodyPartHandle) IsGround() bool { return h.Body == Ground }

// Removal lists the handles an engine dropped as a consequence of removing
// bodies: colliders attached to them and joints referencing them.
type Removal struct {
	Colliders []ColliderHandle
	Joints    []RemovedJoint
}

// RemovedJoint is a cascaded joint with the body parts it was bound to.
type RemovedJoint struct {
	Handle       JointHandle
	Body1, Body2 BodyPartHandle
}

// Engine is everything the sync layer needs from a physics engine.
// Implementations are not safe for concurrent use.
type Engine interface {
	AddBody(desc BodyDesc) BodyHandle
	RemoveBodies(handles []BodyHandle) Removal
	Body(h BodyHandle) (*Body, bool)

	AddCollider(desc ColliderDesc) ColliderHandle
	RemoveColliders(handles []ColliderHandle)
	SetCollisionGroups(h ColliderHandle, g CollisionGroups)
	SetQueryType(h ColliderHandle, q QueryType)
	SetColliderShape(h ColliderHandle, s geom.Shape)
	SetColliderPosition(h ColliderHandle, pos geom.Isometry)
	SetColliderMaterial(h ColliderHandle, m Material)
	ColliderUserData(h ColliderHandle) (uint64, bool)

	AddJoint(desc JointDesc) JointHandle
	RemoveJoints(handles []JointHandle)
	JointAnchors(h JointHandle) (BodyPartHandle, BodyPartHandle, bool)

	Timestep() time.Duration
	SetTimestep(dt time.Duration)
	Gravity() mgl64.Vec3
	SetGravity(g mgl64.Vec3)
	IntegrationParameters() IntegrationParameters
	SetIntegrationParameters(p IntegrationParameters)
	ProfilingEnabled() bool
	SetProfilingEnabled(on bool)

	// Prediction is the engine's linear contact prediction distance;
	// AngularPrediction its angular counterpart in radians.
	Prediction() float64
	AngularPrediction() float64

	// Step advances the simulation by Timestep(). Events produced by the
	// step are available from ContactEvents and ProximityEvents until the
	// next Step.
	Step()
	ContactEvents() []ContactEvent
	ProximityEvents() []ProximityEvent
}

// IntegrationParameters tune the engine's solver.
type IntegrationParameters struct {
	ErrorReduction               float64
	Warmstart                    float64
	RestitutionVelocityThreshold float64
	AllowedLinearError           float64
	AllowedAngularError          float64
	MaxLinearCorrection          float64
	MaxAngularCorrection         float64
	MaxStabilizationMultiplier   float64
	MaxVelocityIterations        int
	MaxPositionIterations        int
}

func DefaultIntegrationParameters() IntegrationParameters {
	return IntegrationParameters{
		ErrorReduction:               0.2,
		Warmstart:                    1.0,
		RestitutionVelocityThreshold: 1.0,
		AllowedLinearError:           0.001,
		AllowedAngularError:          0.001,
		MaxLinearCorrection:          100.0,
		MaxAngularCorrection:         0.2,
		MaxStabilizationMultiplier:   0.2,
		MaxVelocityIterations:        8,
		MaxPositionIterations:        3,
	}
}
