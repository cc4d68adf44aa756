package engine

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/geom"
)

type BodyStatus uint8

const (
	StatusDynamic BodyStatus = iota
	StatusStatic
	StatusKinematic
	StatusDisabled
)

func (s BodyStatus) String() string {
	switch s {
	case StatusDynamic:
		return "dynamic"
	case StatusStatic:
		return "static"
	case StatusKinematic:
		return "kinematic"
	case StatusDisabled:
		return "disabled"
	}
	return "unknown"
}

// BodyDesc describes a body to create.
type BodyDesc struct {
	Status            BodyStatus
	Position          geom.Isometry
	LinearVelocity    mgl64.Vec3
	AngularVelocity   mgl64.Vec3
	Mass              float64
	AngularInertia    mgl64.Mat3
	LocalCenterOfMass mgl64.Vec3
	GravityEnabled    bool
}

// Body is the engine-owned state of a rigid body. Callers may mutate the
// exported fields between steps.
type Body struct {
	Status            BodyStatus
	Position          geom.Isometry
	LinearVelocity    mgl64.Vec3
	AngularVelocity   mgl64.Vec3
	Mass              float64
	AngularInertia    mgl64.Mat3
	LocalCenterOfMass mgl64.Vec3
	GravityEnabled    bool
	Sleeping          bool

	force  mgl64.Vec3
	torque mgl64.Vec3
}

func newBody(d BodyDesc) *Body {
	return &Body{
		Status:            d.Status,
		Position:          d.Position,
		LinearVelocity:    d.LinearVelocity,
		AngularVelocity:   d.AngularVelocity,
		Mass:              d.Mass,
		AngularInertia:    d.AngularInertia,
		LocalCenterOfMass: d.LocalCenterOfMass,
		GravityEnabled:    d.GravityEnabled,
	}
}

// ApplyForce accumulates a force and torque for the next step and wakes
// the body.
func (b *Body) ApplyForce(force, torque mgl64.Vec3) {
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(torque)
	if force.Len() > 0 || torque.Len() > 0 {
		b.Sleeping = false
	}
}

// PendingForce returns the force and torque accumulated since the last step.
func (b *Body) PendingForce() (mgl64.Vec3, mgl64.Vec3) { return b.force, b.torque }

func (b *Body) IsDynamic() bool { return b.Status == StatusDynamic }

func (b *Body) IsActive() bool { return !b.Sleeping && b.Status != StatusDisabled }

func (b *Body) clearForces() {
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}
