package component

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/geom"
)

const (
	DefaultMass              = 1.2
	DefaultMargin            = 0.01
	DefaultDensity           = 1.3
	DefaultFriction          = 0.5
	DefaultLinearPrediction  = 0.002
	DefaultAngularPrediction = math.Pi / 180 * 5
)

type BodyBuilder struct {
	b Body
}

func NewBodyBuilder(status engine.BodyStatus) *BodyBuilder {
	return &BodyBuilder{b: Body{
		Status:         status,
		Mass:           DefaultMass,
		AngularInertia: mgl64.Ident3(),
		GravityEnabled: true,
	}}
}

func (bb *BodyBuilder) Mass(m float64) *BodyBuilder            { bb.b.Mass = m; return bb }
func (bb *BodyBuilder) Inertia(i mgl64.Mat3) *BodyBuilder      { bb.b.AngularInertia = i; return bb }
func (bb *BodyBuilder) CenterOfMass(c mgl64.Vec3) *BodyBuilder { bb.b.LocalCenterOfMass = c; return bb }
func (bb *BodyBuilder) Gravity(on bool) *BodyBuilder           { bb.b.GravityEnabled = on; return bb }

func (bb *BodyBuilder) Velocity(linear, angular mgl64.Vec3) *BodyBuilder {
	bb.b.LinearVelocity = linear
	bb.b.AngularVelocity = angular
	return bb
}

func (bb *BodyBuilder) Build() *Body {
	b := bb.b
	return &b
}

type ColliderBuilder struct {
	c Collider
}

func NewColliderBuilder(shape geom.Shape) *ColliderBuilder {
	return &ColliderBuilder{c: Collider{
		Shape:             shape,
		OffsetFromParent:  geom.Identity(),
		Margin:            DefaultMargin,
		Density:           DefaultDensity,
		Material:          engine.Material{Friction: DefaultFriction},
		Groups:            engine.AllGroups(),
		LinearPrediction:  DefaultLinearPrediction,
		AngularPrediction: DefaultAngularPrediction,
	}}
}

func (cb *ColliderBuilder) Offset(iso geom.Isometry) *ColliderBuilder {
	cb.c.OffsetFromParent = iso
	return cb
}
func (cb *ColliderBuilder) Margin(m float64) *ColliderBuilder           { cb.c.Margin = m; return cb }
func (cb *ColliderBuilder) Density(d float64) *ColliderBuilder          { cb.c.Density = d; return cb }
func (cb *ColliderBuilder) Material(m engine.Material) *ColliderBuilder { cb.c.Material = m; return cb }
func (cb *ColliderBuilder) Sensor(on bool) *ColliderBuilder             { cb.c.Sensor = on; return cb }

func (cb *ColliderBuilder) Groups(g engine.CollisionGroups) *ColliderBuilder {
	cb.c.Groups = g
	return cb
}

func (cb *ColliderBuilder) Prediction(linear, angular float64) *ColliderBuilder {
	cb.c.LinearPrediction = linear
	cb.c.AngularPrediction = angular
	return cb
}

func (cb *ColliderBuilder) Build() *Collider {
	c := cb.c
	return &c
}
