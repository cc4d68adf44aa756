package engine

import "github.com/go-gl/mathgl/mgl64"

// JointDesc connects two body parts. Anchors are in each part's local frame;
// Axis is used by revolute and prismatic joints.
type JointDesc struct {
	Kind    JointKind
	Body1   BodyPartHandle
	Body2   BodyPartHandle
	Anchor1 mgl64.Vec3
	Anchor2 mgl64.Vec3
	Axis    mgl64.Vec3
}

type JointKind uint8

const (
	JointFixed JointKind = iota
	JointBall
	JointRevolute
	JointPrismatic
)

func (k JointKind) String() string {
	switch k {
	case JointFixed:
		return "fixed"
	case JointBall:
		return "ball"
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	}
	return "unknown"
}
