package data

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/geom"
	"gopkg.in/yaml.v3"
)

// Scene is a startup entity list: bodies, colliders, joints and force
// generators referenced by entity name.
type Scene struct {
	Entities []SceneEntity
	Joints   []SceneJoint
	Forces   []SceneForce
}

type SceneEntity struct {
	Name     string
	Pose     geom.Isometry
	Parent   string // entity name; empty for none
	Body     *SceneBody
	Collider *SceneCollider
}

type SceneBody struct {
	Status         engine.BodyStatus
	Mass           float64 // 0 keeps the builder default
	Velocity       mgl64.Vec3
	Spin           mgl64.Vec3
	GravityEnabled bool
}

type SceneCollider struct {
	Shape    geom.Shape
	Offset   geom.Isometry
	Material string // MaterialTable name; empty for the default
	Groups   string // MaterialTable preset; empty for all groups
	Sensor   bool
	Margin   float64 // 0 keeps the builder default
}

type SceneJoint struct {
	Name    string
	Kind    engine.JointKind
	Body1   string
	Body2   string
	Anchor1 mgl64.Vec3
	Anchor2 mgl64.Vec3
	Axis    mgl64.Vec3
}

type SceneForce struct {
	Entity       string
	Kind         string // "constant", "spring", "script"
	Acceleration mgl64.Vec3
	Other        string
	Stiffness    float64
	RestLength   float64
	Damping      float64
	Script       string
}

// Count returns the number of entities in the scene.
func (s *Scene) Count() int { return len(s.Entities) }

type rotationYAML struct {
	Axis  [3]float64 `yaml:"axis"`
	Angle float64    `yaml:"angle"` // degrees
}

type shapeYAML struct {
	Kind        string       `yaml:"kind"`
	Radius      float64      `yaml:"radius"`
	HalfHeight  float64      `yaml:"half_height"`
	HalfExtents [3]float64   `yaml:"half_extents"`
	Normal      [3]float64   `yaml:"normal"`
	Points      [][3]float64 `yaml:"points"`
}

type bodyYAML struct {
	Status   string     `yaml:"status"`
	Mass     float64    `yaml:"mass"`
	Velocity [3]float64 `yaml:"velocity"`
	Spin     [3]float64 `yaml:"spin"`
	Gravity  *bool      `yaml:"gravity"`
}

type colliderYAML struct {
	Shape    shapeYAML  `yaml:"shape"`
	Offset   [3]float64 `yaml:"offset"`
	Material string     `yaml:"material"`
	Groups   string     `yaml:"groups"`
	Sensor   bool       `yaml:"sensor"`
	Margin   float64    `yaml:"margin"`
}

type entityYAML struct {
	Name     string        `yaml:"name"`
	Position [3]float64    `yaml:"position"`
	Rotation *rotationYAML `yaml:"rotation"`
	Parent   string        `yaml:"parent"`
	Body     *bodyYAML     `yaml:"body"`
	Collider *colliderYAML `yaml:"collider"`
}

type jointYAML struct {
	Name    string     `yaml:"name"`
	Kind    string     `yaml:"kind"`
	Body1   string     `yaml:"body1"`
	Body2   string     `yaml:"body2"`
	Anchor1 [3]float64 `yaml:"anchor1"`
	Anchor2 [3]float64 `yaml:"anchor2"`
	Axis    [3]float64 `yaml:"axis"`
}

type forceYAML struct {
	Entity       string     `yaml:"entity"`
	Kind         string     `yaml:"kind"`
	Acceleration [3]float64 `yaml:"acceleration"`
	Other        string     `yaml:"other"`
	Stiffness    float64    `yaml:"stiffness"`
	RestLength   float64    `yaml:"rest_length"`
	Damping      float64    `yaml:"damping"`
	Script       string     `yaml:"script"`
}

type sceneFile struct {
	Entities []entityYAML `yaml:"entities"`
	Joints   []jointYAML  `yaml:"joints"`
	Forces   []forceYAML  `yaml:"forces"`
}

// LoadScene loads a scene from a YAML file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(raw)
}

// ParseScene decodes a scene and checks that every name it references is
// defined.
func ParseScene(raw []byte) (*Scene, error) {
	var f sceneFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}

	s := &Scene{}
	names := make(map[string]bool, len(f.Entities))
	for _, e := range f.Entities {
		if e.Name == "" {
			return nil, fmt.Errorf("scene entity without a name")
		}
		if names[e.Name] {
			return nil, fmt.Errorf("duplicate scene entity %q", e.Name)
		}
		names[e.Name] = true

		ent := SceneEntity{Name: e.Name, Parent: e.Parent, Pose: geom.Translation(vec(e.Position))}
		if e.Rotation != nil {
			axis := vec(e.Rotation.Axis)
			if axis.Len() == 0 {
				return nil, fmt.Errorf("entity %q: zero rotation axis", e.Name)
			}
			ent.Pose.Rotation = mgl64.QuatRotate(mgl64.DegToRad(e.Rotation.Angle), axis.Normalize())
		}
		if e.Body != nil {
			b, err := e.Body.toBody()
			if err != nil {
				return nil, fmt.Errorf("entity %q: %w", e.Name, err)
			}
			ent.Body = b
		}
		if e.Collider != nil {
			shape, err := e.Collider.Shape.toShape()
			if err != nil {
				return nil, fmt.Errorf("entity %q: %w", e.Name, err)
			}
			ent.Collider = &SceneCollider{
				Shape:    shape,
				Offset:   geom.Translation(vec(e.Collider.Offset)),
				Material: e.Collider.Material,
				Groups:   e.Collider.Groups,
				Sensor:   e.Collider.Sensor,
				Margin:   e.Collider.Margin,
			}
		}
		s.Entities = append(s.Entities, ent)
	}

	for _, e := range s.Entities {
		if e.Parent != "" && !names[e.Parent] {
			return nil, fmt.Errorf("entity %q: unknown parent %q", e.Name, e.Parent)
		}
	}

	for _, j := range f.Joints {
		kind, ok := parseJointKind(j.Kind)
		if !ok {
			return nil, fmt.Errorf("joint %q: unknown kind %q", j.Name, j.Kind)
		}
		if !names[j.Body1] || !names[j.Body2] {
			return nil, fmt.Errorf("joint %q: unknown body %q or %q", j.Name, j.Body1, j.Body2)
		}
		s.Joints = append(s.Joints, SceneJoint{
			Name: j.Name, Kind: kind, Body1: j.Body1, Body2: j.Body2,
			Anchor1: vec(j.Anchor1), Anchor2: vec(j.Anchor2), Axis: vec(j.Axis),
		})
	}

	for _, fg := range f.Forces {
		if !names[fg.Entity] {
			return nil, fmt.Errorf("force on unknown entity %q", fg.Entity)
		}
		switch fg.Kind {
		case "constant":
		case "spring":
			if !names[fg.Other] {
				return nil, fmt.Errorf("spring on %q: unknown other %q", fg.Entity, fg.Other)
			}
		case "script":
			if fg.Script == "" {
				return nil, fmt.Errorf("script force on %q without a script", fg.Entity)
			}
		default:
			return nil, fmt.Errorf("force on %q: unknown kind %q", fg.Entity, fg.Kind)
		}
		s.Forces = append(s.Forces, SceneForce{
			Entity: fg.Entity, Kind: fg.Kind, Acceleration: vec(fg.Acceleration),
			Other: fg.Other, Stiffness: fg.Stiffness, RestLength: fg.RestLength,
			Damping: fg.Damping, Script: fg.Script,
		})
	}
	return s, nil
}

func (b *bodyYAML) toBody() (*SceneBody, error) {
	status, ok := parseStatus(b.Status)
	if !ok {
		return nil, fmt.Errorf("unknown body status %q", b.Status)
	}
	if b.Mass < 0 {
		return nil, fmt.Errorf("negative mass %v", b.Mass)
	}
	gravity := true
	if b.Gravity != nil {
		gravity = *b.Gravity
	}
	return &SceneBody{
		Status:         status,
		Mass:           b.Mass,
		Velocity:       vec(b.Velocity),
		Spin:           vec(b.Spin),
		GravityEnabled: gravity,
	}, nil
}

func (s shapeYAML) toShape() (geom.Shape, error) {
	kind, ok := geom.ParseShapeKind(s.Kind)
	if !ok {
		return geom.Shape{}, fmt.Errorf("unknown shape %q", s.Kind)
	}
	switch kind {
	case geom.ShapeBall:
		if s.Radius <= 0 {
			return geom.Shape{}, fmt.Errorf("ball radius must be positive")
		}
		return geom.Ball(s.Radius), nil
	case geom.ShapeCuboid:
		return geom.Cuboid(vec(s.HalfExtents)), nil
	case geom.ShapeCapsule:
		return geom.Capsule(s.HalfHeight, s.Radius), nil
	case geom.ShapePlane:
		n := vec(s.Normal)
		if n.Len() == 0 {
			return geom.Shape{}, fmt.Errorf("plane normal is zero")
		}
		return geom.Plane(n.Normalize()), nil
	case geom.ShapeConvexHull:
		if len(s.Points) < 4 {
			return geom.Shape{}, fmt.Errorf("convex hull needs at least 4 points")
		}
		return geom.ConvexHull(vecs(s.Points)), nil
	case geom.ShapePolyline:
		return geom.Polyline(vecs(s.Points)), nil
	}
	return geom.Shape{}, fmt.Errorf("shape %q cannot be declared in a scene", s.Kind)
}

func parseStatus(name string) (engine.BodyStatus, bool) {
	for _, st := range []engine.BodyStatus{engine.StatusDynamic, engine.StatusStatic, engine.StatusKinematic, engine.StatusDisabled} {
		if st.String() == name {
			return st, true
		}
	}
	if name == "" {
		return engine.StatusDynamic, true
	}
	return 0, false
}

func parseJointKind(name string) (engine.JointKind, bool) {
	for _, k := range []engine.JointKind{engine.JointFixed, engine.JointBall, engine.JointRevolute, engine.JointPrismatic} {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

func vec(a [3]float64) mgl64.Vec3 { return mgl64.Vec3(a) }

func vecs(in [][3]float64) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(in))
	for i, p := range in {
		out[i] = vec(p)
	}
	return out
}
