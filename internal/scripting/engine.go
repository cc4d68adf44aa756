package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

var ErrScriptNotFound = errors.New("lua function not found")

// Engine wraps a single gopher-lua VM running force-generator scripts.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory, then from its forces/ subdirectory. Missing directories are
// skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "forces")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Has reports whether a global function with the given name is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// ForceContext is the body state handed to a force script.
type ForceContext struct {
	Entity   uint64
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Mass     float64
	DT       float64 // seconds
	Time     float64 // seconds since start
}

// Force calls the Lua function name(ctx) and returns the force it computes.
// The function receives a table {entity, x, y, z, vx, vy, vz, mass, dt, time}
// and returns a table {fx, fy, fz}; missing components read as zero.
func (e *Engine) Force(name string, ctx ForceContext) (mgl64.Vec3, error) {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return mgl64.Vec3{}, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}

	t := e.vm.NewTable()
	t.RawSetString("entity", lua.LNumber(ctx.Entity))
	t.RawSetString("x", lua.LNumber(ctx.Position.X()))
	t.RawSetString("y", lua.LNumber(ctx.Position.Y()))
	t.RawSetString("z", lua.LNumber(ctx.Position.Z()))
	t.RawSetString("vx", lua.LNumber(ctx.Velocity.X()))
	t.RawSetString("vy", lua.LNumber(ctx.Velocity.Y()))
	t.RawSetString("vz", lua.LNumber(ctx.Velocity.Z()))
	t.RawSetString("mass", lua.LNumber(ctx.Mass))
	t.RawSetString("dt", lua.LNumber(ctx.DT))
	t.RawSetString("time", lua.LNumber(ctx.Time))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return mgl64.Vec3{}, fmt.Errorf("lua %s: %w", name, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return mgl64.Vec3{}, fmt.Errorf("lua %s returned %s, want table", name, result.Type())
	}
	return mgl64.Vec3{lFloat(rt, "fx"), lFloat(rt, "fy"), lFloat(rt, "fz")}, nil
}

func lFloat(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// Close releases the Lua VM resources.
func (e *Engine) Close() {
	e.vm.Close()
}
