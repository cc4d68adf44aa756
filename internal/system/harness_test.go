package system

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/component"
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/core/event"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/engine"
	"github.com/l1jgo/physync/internal/geom"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

const frame = time.Second / 60

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// countingEngine records writes and steps and can replace the engine's
// raw events with scripted ones.
type countingEngine struct {
	*engine.Simple

	steps             int
	gravityWrites     int
	integrationWrites int
	profilingWrites   int
	timestepWrites    int

	scriptedContacts  []engine.ContactEvent
	scriptedProximity []engine.ProximityEvent
}

func newCountingEngine() *countingEngine {
	return &countingEngine{Simple: engine.NewSimple()}
}

func (c *countingEngine) Step() {
	c.steps++
	c.Simple.Step()
}

func (c *countingEngine) SetGravity(g mgl64.Vec3) {
	c.gravityWrites++
	c.Simple.SetGravity(g)
}

func (c *countingEngine) SetIntegrationParameters(p engine.IntegrationParameters) {
	c.integrationWrites++
	c.Simple.SetIntegrationParameters(p)
}

func (c *countingEngine) SetProfilingEnabled(on bool) {
	c.profilingWrites++
	c.Simple.SetProfilingEnabled(on)
}

func (c *countingEngine) SetTimestep(dt time.Duration) {
	c.timestepWrites++
	c.Simple.SetTimestep(dt)
}

func (c *countingEngine) ContactEvents() []engine.ContactEvent {
	if c.scriptedContacts != nil {
		return c.scriptedContacts
	}
	return c.Simple.ContactEvents()
}

func (c *countingEngine) ProximityEvents() []engine.ProximityEvent {
	if c.scriptedProximity != nil {
		return c.scriptedProximity
	}
	return c.Simple.ProximityEvents()
}

type harness struct {
	t      *testing.T
	w      *physics.World
	eng    *countingEngine
	runner *coresys.Runner
}

// extraSystem adds an application system to a harness runner.
type extraSystem func(w *physics.World) (name string, sys coresys.System)

// newHarness builds a world with every physics stage, plus extras,
// registered and set up.
func newHarness(t *testing.T, bundle *PhysicsBundle, extras ...extraSystem) *harness {
	t.Helper()
	eng := newCountingEngine()
	w := physics.NewWorld(ecs.NewWorld(), event.NewBus(), eng, nil)
	r := coresys.NewRunner()
	if bundle == nil {
		bundle = NewPhysicsBundle(mgl64.Vec3{})
	}
	if err := bundle.Register(r, w, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	for _, extra := range extras {
		name, sys := extra(w)
		if err := r.Register(name, sys); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Setup(); err != nil {
		t.Fatal(err)
	}
	return &harness{t: t, w: w, eng: eng, runner: r}
}

func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.runner.Tick(frame)
	}
}

func (h *harness) spawnBody(at mgl64.Vec3, body *component.Body) ecs.EntityID {
	id := h.w.ECS.CreateEntity()
	h.w.Poses.Insert(id, component.NewPose(geom.Translation(at)))
	h.w.Bodies.Insert(id, body)
	return id
}

func (h *harness) bodyOf(id ecs.EntityID) *engine.Body {
	h.t.Helper()
	bh, ok := h.w.Registry.Body(id)
	if !ok {
		h.t.Fatalf("entity %v has no body handle", id)
	}
	b, ok := h.eng.Body(bh)
	if !ok {
		h.t.Fatalf("handle %d not live in engine", bh)
	}
	return b
}

func (h *harness) colliderOf(id ecs.EntityID) engine.ColliderState {
	h.t.Helper()
	ch, ok := h.w.Registry.Collider(id)
	if !ok {
		h.t.Fatalf("entity %v has no collider handle", id)
	}
	c, ok := h.eng.Collider(ch)
	if !ok {
		h.t.Fatalf("collider handle %d not live in engine", ch)
	}
	return c
}

// flip makes the events emitted during the last frame readable with
// event.Read, as the next frame's dispatch stage would.
func (h *harness) flip() {
	h.w.Bus.SwapBuffers()
}
