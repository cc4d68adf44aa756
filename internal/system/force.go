package system

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/component"
	"github.com/l1jgo/physync/internal/core/ecs"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/physics"
	"github.com/l1jgo/physync/internal/scripting"
	"go.uber.org/zap"
)

// ForceScripts evaluates scripted force generators.
type ForceScripts interface {
	Force(name string, ctx scripting.ForceContext) (mgl64.Vec3, error)
}

// ForceSystem evaluates every ForceGenerator and accumulates the result into
// the target Body's external force, flagging the Body as modified so
// BodySyncSystem hands the force to the engine this frame.
// Phase 2 (Update).
type ForceSystem struct {
	w       *physics.World
	scripts ForceScripts
	log     *zap.Logger

	elapsed time.Duration
	failing map[string]bool // scripts already reported as failing
}

// NewForceSystem creates the system. scripts may be nil when no Lua
// engine is configured; script generators are then skipped.
func NewForceSystem(w *physics.World, scripts ForceScripts, log *zap.Logger) *ForceSystem {
	return &ForceSystem{w: w, scripts: scripts, log: log, failing: make(map[string]bool)}
}

func (s *ForceSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ForceSystem) Update(dt time.Duration) {
	s.elapsed += dt
	for _, id := range ecs.SortedIDs[component.ForceGenerator](s.w.Forces) {
		fg, _ := s.w.Forces.Get(id)
		switch fg.Kind {
		case component.ForceConstantAcceleration:
			if body, ok := s.w.Bodies.Get(id); ok {
				s.addForce(id, fg.Acceleration.Mul(body.Mass))
			}
		case component.ForceSpring:
			s.spring(id, fg)
		case component.ForceScript:
			s.script(id, fg, dt)
		}
	}
}

// spring applies Hooke's law along the line between the two poses, with
// optional damping on the relative velocity along that line. The pair
// receives equal and opposite forces.
func (s *ForceSystem) spring(id ecs.EntityID, fg *component.ForceGenerator) {
	if !s.w.ECS.Alive(fg.Other) {
		return
	}
	p1, ok1 := s.w.Poses.Get(id)
	p2, ok2 := s.w.Poses.Get(fg.Other)
	if !ok1 || !ok2 {
		return
	}
	d := p2.Isometry.Translation.Sub(p1.Isometry.Translation)
	length := d.Len()
	if length == 0 {
		return
	}
	dir := d.Mul(1 / length)
	magnitude := fg.Stiffness * (length - fg.RestLength)

	if fg.Damping != 0 {
		var v1, v2 mgl64.Vec3
		if b, ok := s.w.Bodies.Get(id); ok {
			v1 = b.LinearVelocity
		}
		if b, ok := s.w.Bodies.Get(fg.Other); ok {
			v2 = b.LinearVelocity
		}
		magnitude += fg.Damping * v2.Sub(v1).Dot(dir)
	}

	f := dir.Mul(magnitude)
	s.addForce(id, f)
	s.addForce(fg.Other, f.Mul(-1))
}

func (s *ForceSystem) script(id ecs.EntityID, fg *component.ForceGenerator, dt time.Duration) {
	if s.scripts == nil {
		if !s.failing[fg.Script] {
			s.failing[fg.Script] = true
			s.log.Warn("script force generator without scripting engine", zap.String("script", fg.Script))
		}
		return
	}
	ctx := scripting.ForceContext{
		Entity: uint64(id),
		DT:     dt.Seconds(),
		Time:   s.elapsed.Seconds(),
	}
	if pose, ok := s.w.Poses.Get(id); ok {
		ctx.Position = pose.Isometry.Translation
	}
	if body, ok := s.w.Bodies.Get(id); ok {
		ctx.Velocity = body.LinearVelocity
		ctx.Mass = body.Mass
	}
	f, err := s.scripts.Force(fg.Script, ctx)
	if err != nil {
		if !s.failing[fg.Script] {
			s.failing[fg.Script] = true
			s.log.Error("force script failed", zap.String("script", fg.Script), zap.Error(err))
		}
		return
	}
	delete(s.failing, fg.Script)
	s.addForce(id, f)
}

func (s *ForceSystem) addForce(id ecs.EntityID, f mgl64.Vec3) {
	s.w.Bodies.Update(id, func(b *component.Body) {
		b.ExternalForce = b.ExternalForce.Add(f)
	})
}
