// Package geom holds the rigid transforms shared by ECS components and the
// physics engine.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Isometry is a rigid transform: rotate by Rotation, then translate.
type Isometry struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

func Identity() Isometry {
	return Isometry{Rotation: mgl64.QuatIdent()}
}

func Translation(v mgl64.Vec3) Isometry {
	return Isometry{Translation: v, Rotation: mgl64.QuatIdent()}
}

func New(t mgl64.Vec3, r mgl64.Quat) Isometry {
	return Isometry{Translation: t, Rotation: r.Normalize()}
}

// Mul composes a ∘ b: the result applies b first, then a.
func (a Isometry) Mul(b Isometry) Isometry {
	return Isometry{
		Translation: a.Translation.Add(a.Rotation.Rotate(b.Translation)),
		Rotation:    a.Rotation.Mul(b.Rotation).Normalize(),
	}
}

func (a Isometry) Inverse() Isometry {
	inv := a.Rotation.Inverse()
	return Isometry{
		Translation: inv.Rotate(a.Translation.Mul(-1)),
		Rotation:    inv,
	}
}

// TransformPoint maps a point from local to parent space.
func (a Isometry) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return a.Translation.Add(a.Rotation.Rotate(p))
}

// TransformVector rotates a direction without translating it.
func (a Isometry) TransformVector(v mgl64.Vec3) mgl64.Vec3 {
	return a.Rotation.Rotate(v)
}

// ApproxEqual compares translations and rotations component-wise within
// the absolute tolerance eps.
func (a Isometry) ApproxEqual(b Isometry, eps float64) bool {
	if !NearVec(a.Translation, b.Translation, eps) {
		return false
	}
	// q and -q describe the same rotation.
	return nearQuat(a.Rotation, b.Rotation, eps) || nearQuat(a.Rotation, b.Rotation.Scale(-1), eps)
}

// NearVec reports whether every component of a and b differs by at most eps.
// mgl64's ApproxEqualThreshold is relative and fails against exact zeros.
func NearVec(a, b mgl64.Vec3, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func nearQuat(a, b mgl64.Quat, eps float64) bool {
	return math.Abs(a.W-b.W) <= eps && NearVec(a.V, b.V, eps)
}
