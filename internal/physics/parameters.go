package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/engine"
)

// Parameters are the simulation-wide settings the application wants the
// engine to use. Nil fields are left as the engine has them.
type Parameters struct {
	Gravity     *mgl64.Vec3
	Integration *engine.IntegrationParameters
	Profiling   *bool
}

func (p *Parameters) SetGravity(g mgl64.Vec3) { p.Gravity = &g }

func (p *Parameters) SetIntegration(ip engine.IntegrationParameters) { p.Integration = &ip }

func (p *Parameters) SetProfiling(on bool) { p.Profiling = &on }
