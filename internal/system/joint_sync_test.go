package system

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/component"
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/core/event"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/physics"
)

func spawnJoint(h *harness, a, b ecs.EntityID) ecs.EntityID {
	id := h.w.ECS.CreateEntity()
	h.w.Joints.Insert(id, &component.Joint{
		Kind:    engine.JointBall,
		Body1:   component.BodyPartRef{Entity: a},
		Body2:   component.BodyPartRef{Entity: b},
		Anchor1: mgl64.Vec3{0.5, 0, 0},
		Anchor2: mgl64.Vec3{-0.5, 0, 0},
	})
	return id
}

func TestJointSync_InsertPublishesAnchors(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Gravity(false).Build())
	b := h.spawnBody(mgl64.Vec3{1, 0, 0}, component.NewBodyBuilder(engine.StatusDynamic).Gravity(false).Build())
	j := spawnJoint(h, a, b)

	h.tick(1)
	h.flip()

	evs := event.Read[physics.JointEvent](h.w.Bus)
	if len(evs) != 1 {
		t.Fatalf("got %d joint events, want 1", len(evs))
	}
	ha, _ := h.w.Registry.Body(a)
	hb, _ := h.w.Registry.Body(b)
	ev := evs[0]
	if ev.Type != physics.JointInserted || ev.Entity != j {
		t.Fatalf("event %+v, want insertion for %v", ev, j)
	}
	if ev.Body1.Body != ha || ev.Body2.Body != hb {
		t.Fatalf("anchors %+v/%+v, want bodies %d/%d", ev.Body1, ev.Body2, ha, hb)
	}
	if jh, ok := h.w.Registry.Joint(j); !ok || jh != ev.Handle {
		t.Fatalf("registry handle %d (ok=%v), event handle %d", jh, ok, ev.Handle)
	}
}

func TestJointSync_ModifyReplaces(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Gravity(false).Build())
	b := h.spawnBody(mgl64.Vec3{1, 0, 0}, component.NewBodyBuilder(engine.StatusDynamic).Gravity(false).Build())
	j := spawnJoint(h, a, b)
	h.tick(1)
	first, _ := h.w.Registry.Joint(j)

	h.w.Joints.Update(j, func(jt *component.Joint) { jt.Kind = engine.JointFixed })
	h.tick(1)
	h.flip()

	evs := event.Read[physics.JointEvent](h.w.Bus)
	if len(evs) != 2 {
		t.Fatalf("got %d joint events, want removal then insertion", len(evs))
	}
	if evs[0].Type != physics.JointRemoved || evs[0].Handle != first {
		t.Errorf("first event %+v, want removal of %d", evs[0], first)
	}
	if evs[1].Type != physics.JointInserted || evs[1].Handle == first {
		t.Errorf("second event %+v, want insertion of a new handle", evs[1])
	}
	if h.eng.NumJoints() != 1 {
		t.Fatalf("engine joints %d, want 1", h.eng.NumJoints())
	}
}

func TestJointSync_MissingTargetIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Build())
	bare := h.w.ECS.CreateEntity()
	j := spawnJoint(h, a, bare)

	h.tick(1)

	if _, ok := h.w.Registry.Joint(j); ok {
		t.Fatal("joint to an entity without a body must not register")
	}
	if h.eng.NumJoints() != 0 {
		t.Fatalf("engine joints %d, want 0", h.eng.NumJoints())
	}
}

func TestJointSync_BodyRemovalCascades(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Gravity(false).Build())
	b := h.spawnBody(mgl64.Vec3{1, 0, 0}, component.NewBodyBuilder(engine.StatusDynamic).Gravity(false).Build())
	j := spawnJoint(h, a, b)
	h.tick(1)
	first, _ := h.w.Registry.Joint(j)
	ha, _ := h.w.Registry.Body(a)
	hb, _ := h.w.Registry.Body(b)

	h.w.Bodies.Remove(b)
	h.tick(1)
	h.flip()

	if _, ok := h.w.Registry.Joint(j); ok {
		t.Fatal("joint survived the removal of its body")
	}
	if h.eng.NumJoints() != 0 {
		t.Fatalf("engine joints %d, want 0", h.eng.NumJoints())
	}
	// Every insertion is balanced by a removal, even when the engine
	// dropped the joint on its own.
	evs := event.Read[physics.JointEvent](h.w.Bus)
	if len(evs) != 1 {
		t.Fatalf("got %d joint events after body removal, want 1: %+v", len(evs), evs)
	}
	if ev := evs[0]; ev.Type != physics.JointRemoved || ev.Entity != j || ev.Handle != first ||
		ev.Body1.Body != ha || ev.Body2.Body != hb {
		t.Fatalf("event %+v, want removal of %d between %d and %d", ev, first, ha, hb)
	}

	// The joint component is still there; it binds again once b has a body.
	h.w.Bodies.Insert(b, component.NewBodyBuilder(engine.StatusDynamic).Gravity(false).Build())
	h.w.Joints.Update(j, func(*component.Joint) {})
	h.tick(1)
	if _, ok := h.w.Registry.Joint(j); !ok {
		t.Fatal("joint not rebound after its body returned")
	}
}

func TestJointSync_Remove(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Build())
	b := h.spawnBody(mgl64.Vec3{1, 0, 0}, component.NewBodyBuilder(engine.StatusDynamic).Build())
	j := spawnJoint(h, a, b)
	h.tick(1)

	h.w.Joints.Remove(j)
	h.tick(1)
	h.flip()

	evs := event.Read[physics.JointEvent](h.w.Bus)
	if len(evs) != 1 || evs[0].Type != physics.JointRemoved {
		t.Fatalf("events %+v, want a single removal", evs)
	}
	if h.eng.NumJoints() != 0 || h.w.Registry.NumJoints() != 0 {
		t.Fatalf("engine=%d registry=%d joints, want 0", h.eng.NumJoints(), h.w.Registry.NumJoints())
	}
}
