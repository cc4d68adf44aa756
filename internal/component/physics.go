package component

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/geom"
)

// Pose is the world transform of an entity. Scale is kept apart from the
// rigid part because the engine only simulates rigid motion.
// Written by PoseSystem, read by the application.
type Pose struct {
	Isometry geom.Isometry
	Scale    mgl64.Vec3
}

func NewPose(iso geom.Isometry) *Pose {
	return &Pose{Isometry: iso, Scale: mgl64.Vec3{1, 1, 1}}
}

// Body describes the rigid body of an entity.
// ExternalForce and ExternalTorque accumulate over a frame and are cleared
// once BodySyncSystem hands them to the engine.
type Body struct {
	Status            engine.BodyStatus
	LinearVelocity    mgl64.Vec3
	AngularVelocity   mgl64.Vec3
	Mass              float64
	AngularInertia    mgl64.Mat3
	LocalCenterOfMass mgl64.Vec3
	GravityEnabled    bool

	ExternalForce  mgl64.Vec3
	ExternalTorque mgl64.Vec3
}

// Collider describes a collision shape attached to the entity's own body,
// to its Parent's body, or to the ground.
// Margin only takes effect at insertion.
type Collider struct {
	Shape             geom.Shape
	OffsetFromParent  geom.Isometry
	Margin            float64
	Density           float64
	Material          engine.Material
	Groups            engine.CollisionGroups
	Sensor            bool
	LinearPrediction  float64
	AngularPrediction float64
}

// Parent is a weak reference to the entity whose body a collider attaches
// to. A dead or bodiless parent means the ground.
type Parent struct {
	Entity ecs.EntityID
}

// BodyPartRef names a part of the body owned by Entity.
type BodyPartRef struct {
	Entity ecs.EntityID
	Part   int
}

// Joint constrains two body parts. Anchors are local to each part.
type Joint struct {
	Kind    engine.JointKind
	Body1   BodyPartRef
	Body2   BodyPartRef
	Anchor1 mgl64.Vec3
	Anchor2 mgl64.Vec3
	Axis    mgl64.Vec3
}

type ForceKind uint8

const (
	ForceConstantAcceleration ForceKind = iota
	ForceSpring
	ForceScript
)

// ForceGenerator produces a force on the entity's body every frame.
//
//   - ConstantAcceleration: Acceleration × mass.
//   - Spring: Hooke force towards Other, equal and opposite on both bodies.
//   - Script: the Lua global named Script computes the force.
type ForceGenerator struct {
	Kind         ForceKind
	Acceleration mgl64.Vec3

	Other      ecs.EntityID
	Stiffness  float64
	RestLength float64
	Damping    float64

	Script string
}
