package data

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/geom"
)

const materialsYAML = `
materials:
  - name: rubber
    friction: 0.9
    restitution: 0.8
  - name: ice
    friction: 0.02
groups:
  - name: debris
    membership: [3]
    blacklist: [3]
  - name: sensors
    membership: [5]
    whitelist: [0, 1]
`

func TestParseMaterialTable(t *testing.T) {
	tbl, err := ParseMaterialTable([]byte(materialsYAML))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Count() != 2 || tbl.GroupCount() != 2 {
		t.Fatalf("counts %d/%d, want 2/2", tbl.Count(), tbl.GroupCount())
	}
	if m, ok := tbl.Material("rubber"); !ok || m.Restitution != 0.8 || m.Friction != 0.9 {
		t.Fatalf("rubber = %+v, %v", m, ok)
	}
	if _, ok := tbl.Material("steel"); ok {
		t.Fatal("unknown material found")
	}

	debris, _ := tbl.Groups("debris")
	if debris.Membership != 1<<3 || debris.Whitelist != engine.AllGroups().Whitelist || debris.Blacklist != 1<<3 {
		t.Fatalf("debris = %+v", debris)
	}
	// Debris ignores anything in the debris group, which includes the
	// default groups, but still meets colliders outside it.
	props := engine.CollisionGroups{Membership: 1 << 1, Whitelist: engine.AllGroups().Whitelist}
	tests := []struct {
		name  string
		other engine.CollisionGroups
		want  bool
	}{
		{"debris", debris, false},
		{"defaults", engine.AllGroups(), false},
		{"props", props, true},
	}
	for _, tc := range tests {
		if got := debris.CanInteractWith(tc.other); got != tc.want {
			t.Errorf("debris with %s = %v, want %v", tc.name, got, tc.want)
		}
	}

	sensors, _ := tbl.Groups("sensors")
	if sensors.Whitelist != 0b11 {
		t.Fatalf("sensors whitelist %b", sensors.Whitelist)
	}
}

func TestParseMaterialTableErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"duplicate", "materials:\n  - name: a\n  - name: a\n", "duplicate material"},
		{"unnamed", "materials:\n  - friction: 1\n", "without a name"},
		{"negative", "materials:\n  - name: a\n    friction: -1\n", "negative"},
		{"group range", "groups:\n  - name: g\n    membership: [30]\n", "out of range"},
		{"yaml", "materials: [", "parse materials"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMaterialTable([]byte(tc.src))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %v, want mention of %q", err, tc.want)
			}
		})
	}
}

const sceneYAML = `
entities:
  - name: floor
    collider:
      shape: {kind: plane, normal: [0, 2, 0]}
      material: ice
  - name: ball
    position: [0, 5, 0]
    body: {status: dynamic, mass: 2, velocity: [1, 0, 0]}
    collider:
      shape: {kind: ball, radius: 0.5}
  - name: lamp
    position: [0, 8, 0]
    rotation: {axis: [0, 0, 1], angle: 90}
    body: {status: kinematic, gravity: false}
  - name: shade
    parent: lamp
    collider:
      shape: {kind: cuboid, half_extents: [0.2, 0.1, 0.2]}
      offset: [0, -0.5, 0]
joints:
  - name: cord
    kind: ball
    body1: lamp
    body2: ball
    anchor1: [0, -1, 0]
forces:
  - entity: ball
    kind: spring
    other: lamp
    stiffness: 4
    rest_length: 2
`

func TestParseScene(t *testing.T) {
	s, err := ParseScene([]byte(sceneYAML))
	if err != nil {
		t.Fatal(err)
	}
	if s.Count() != 4 || len(s.Joints) != 1 || len(s.Forces) != 1 {
		t.Fatalf("scene sizes %d/%d/%d", s.Count(), len(s.Joints), len(s.Forces))
	}

	floor := s.Entities[0]
	if floor.Body != nil || floor.Collider.Shape.Kind != geom.ShapePlane {
		t.Fatalf("floor %+v", floor)
	}
	if floor.Collider.Shape.Normal != (mgl64.Vec3{0, 1, 0}) {
		t.Fatalf("plane normal not normalized: %v", floor.Collider.Shape.Normal)
	}

	ball := s.Entities[1]
	if ball.Body.Mass != 2 || !ball.Body.GravityEnabled || ball.Body.Velocity != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("ball body %+v", ball.Body)
	}

	lamp := s.Entities[2]
	if lamp.Body.Status != engine.StatusKinematic || lamp.Body.GravityEnabled {
		t.Fatalf("lamp body %+v", lamp.Body)
	}
	// 90° about Z takes +X to +Y.
	if got := lamp.Pose.TransformVector(mgl64.Vec3{1, 0, 0}); !geom.NearVec(got, mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Fatalf("lamp rotation maps x to %v", got)
	}

	if shade := s.Entities[3]; shade.Parent != "lamp" || shade.Collider.Offset.Translation != (mgl64.Vec3{0, -0.5, 0}) {
		t.Fatalf("shade %+v", shade)
	}
	if j := s.Joints[0]; j.Kind != engine.JointBall || j.Body1 != "lamp" || j.Body2 != "ball" {
		t.Fatalf("joint %+v", j)
	}
}

func TestParseSceneErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"duplicate", "entities:\n  - name: a\n  - name: a\n", "duplicate scene entity"},
		{"parent", "entities:\n  - name: a\n    parent: b\n", "unknown parent"},
		{"status", "entities:\n  - name: a\n    body: {status: floating}\n", "unknown body status"},
		{"shape", "entities:\n  - name: a\n    collider:\n      shape: {kind: torus}\n", "unknown shape"},
		{"trimesh", "entities:\n  - name: a\n    collider:\n      shape: {kind: trimesh}\n", "cannot be declared"},
		{"joint body", "entities:\n  - name: a\njoints:\n  - {name: j, kind: fixed, body1: a, body2: z}\n", "unknown body"},
		{"joint kind", "entities:\n  - name: a\njoints:\n  - {name: j, kind: weld, body1: a, body2: a}\n", "unknown kind"},
		{"force kind", "entities:\n  - name: a\nforces:\n  - {entity: a, kind: magnet}\n", "unknown kind"},
		{"script", "entities:\n  - name: a\nforces:\n  - {entity: a, kind: script}\n", "without a script"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScene([]byte(tc.src))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %v, want mention of %q", err, tc.want)
			}
		})
	}
}
