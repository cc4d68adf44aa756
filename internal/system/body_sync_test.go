package system

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/component"
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/geom"
)

func TestBodySync_ScenarioInsertThenRemove(t *testing.T) {
	h := newHarness(t, nil)
	id := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).
		Mass(10).Velocity(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}).Gravity(false).Build())

	h.tick(1)
	if _, ok := h.w.Registry.Body(id); !ok {
		t.Fatal("registry should hold a handle after one frame")
	}
	if b := h.bodyOf(id); b.Mass != 10 || !almostEqual(b.LinearVelocity.Y(), 1, 1e-12) {
		t.Fatalf("engine body mass=%v velocity=%v", b.Mass, b.LinearVelocity)
	}
	before := h.eng.NumBodies()

	h.w.Bodies.Remove(id)
	h.tick(1)

	if _, ok := h.w.Registry.Body(id); ok {
		t.Fatal("registry still holds the removed body")
	}
	if h.eng.NumBodies() != before-1 {
		t.Fatalf("engine bodies %d, want %d", h.eng.NumBodies(), before-1)
	}
}

func TestBodySync_ReplacementLeavesOneEngineBody(t *testing.T) {
	h := newHarness(t, nil)
	id := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Build())
	h.tick(1)
	first, _ := h.w.Registry.Body(id)

	// Inserting over an existing component is reported as Inserted again,
	// twice in the same frame here.
	h.w.Bodies.Insert(id, component.NewBodyBuilder(engine.StatusDynamic).Mass(2).Build())
	h.w.Bodies.Insert(id, component.NewBodyBuilder(engine.StatusDynamic).Mass(3).Build())
	h.tick(1)

	second, ok := h.w.Registry.Body(id)
	if !ok || second == first {
		t.Fatalf("expected a fresh handle, got %d (first %d)", second, first)
	}
	if _, ok := h.eng.Body(first); ok {
		t.Fatal("stale engine body was not removed")
	}
	if h.eng.NumBodies() != 1 || h.w.Registry.NumBodies() != 1 {
		t.Fatalf("engine=%d registry=%d, want 1 each", h.eng.NumBodies(), h.w.Registry.NumBodies())
	}
	if h.bodyOf(id).Mass != 3 {
		t.Fatalf("latest component not used: mass %v", h.bodyOf(id).Mass)
	}
}

func TestBodySync_PoseModificationTeleports(t *testing.T) {
	h := newHarness(t, nil)
	id := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Gravity(false).Build())
	h.tick(1)

	h.w.Poses.Update(id, func(p *component.Pose) {
		p.Isometry = geom.Translation(mgl64.Vec3{5, 0, 0})
	})
	h.tick(1)

	if x := h.bodyOf(id).Position.Translation.X(); !almostEqual(x, 5, 1e-12) {
		t.Fatalf("body at x=%v, want 5", x)
	}
	if h.eng.NumBodies() != 1 {
		t.Fatal("teleport must not recreate the body")
	}
}

func TestBodySync_ForceIsOneShot(t *testing.T) {
	h := newHarness(t, nil)
	id := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Mass(1).Gravity(false).Build())
	h.tick(1)

	h.w.Bodies.Update(id, func(b *component.Body) {
		b.ExternalForce = mgl64.Vec3{60, 0, 0}
	})
	h.tick(1)

	body, _ := h.w.Bodies.Get(id)
	if body.ExternalForce.Len() != 0 {
		t.Fatalf("pending force not cleared: %v", body.ExternalForce)
	}
	// 60 N on 1 kg for one step; the step is 1/60 s truncated to whole nanoseconds.
	if v := h.bodyOf(id).LinearVelocity.X(); !almostEqual(v, 1, 1e-6) {
		t.Fatalf("velocity %v, want 1", v)
	}
	h.tick(1)
	if v := h.bodyOf(id).LinearVelocity.X(); !almostEqual(v, 1, 1e-6) {
		t.Fatalf("force applied twice: velocity %v", v)
	}
}

func TestBodySync_DestroyedEntityRemovesBody(t *testing.T) {
	h := newHarness(t, nil)
	id := h.spawnBody(mgl64.Vec3{}, component.NewBodyBuilder(engine.StatusDynamic).Build())
	h.tick(1)

	h.w.ECS.MarkForDestruction(id)
	h.tick(2) // cleanup runs last; the next frame syncs the removal

	if h.w.Registry.NumBodies() != 0 || h.eng.NumBodies() != 0 {
		t.Fatalf("registry=%d engine=%d after destroy", h.w.Registry.NumBodies(), h.eng.NumBodies())
	}
}

func TestBodySync_HandleUniquenessUnderChurn(t *testing.T) {
	h := newHarness(t, nil)
	var ids []ecs.EntityID
	for _, at := range []mgl64.Vec3{{0, 0, 0}, {3, 0, 0}, {6, 0, 0}} {
		ids = append(ids, h.spawnBody(at, component.NewBodyBuilder(engine.StatusDynamic).Build()))
	}
	for round := 0; round < 6; round++ {
		for i, id := range ids {
			switch (round + i) % 3 {
			case 0:
				h.w.Bodies.Insert(id, component.NewBodyBuilder(engine.StatusDynamic).Build())
			case 1:
				h.w.Bodies.Remove(id)
			case 2:
				h.w.Bodies.Update(id, func(b *component.Body) { b.Mass = 2 })
			}
		}
		h.tick(1)

		live := 0
		for _, id := range ids {
			_, registered := h.w.Registry.Body(id)
			if registered != h.w.Bodies.Has(id) {
				t.Fatalf("round %d: entity %v registered=%v has body=%v", round, id, registered, h.w.Bodies.Has(id))
			}
			if registered {
				live++
			}
		}
		if h.eng.NumBodies() != live {
			t.Fatalf("round %d: engine bodies %d, registered %d", round, h.eng.NumBodies(), live)
		}
	}
}
