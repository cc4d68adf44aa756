package scripting

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

func writeScript(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEngine_Force(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, filepath.Join(dir, "forces"), "drag.lua", `
function drag(ctx)
  return { fx = -ctx.vx * ctx.mass, fy = -ctx.vy * ctx.mass }
end
`)
	writeScript(t, dir, "notes.txt", "not lua")

	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if !e.Has("drag") || e.Has("missing") {
		t.Fatal("Has() mismatch")
	}
	f, err := e.Force("drag", ForceContext{Velocity: mgl64.Vec3{2, -1, 5}, Mass: 3})
	if err != nil {
		t.Fatal(err)
	}
	want := mgl64.Vec3{-6, 3, 0}
	if !f.ApproxEqual(want) {
		t.Fatalf("force %v, want %v", f, want)
	}
}

func TestEngine_ForceErrors(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "bad.lua", `
function not_a_table(ctx) return 42 end
function explode(ctx) error("boom") end
`)
	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if _, err := e.Force("nope", ForceContext{}); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("expected ErrScriptNotFound, got %v", err)
	}
	if _, err := e.Force("not_a_table", ForceContext{}); err == nil {
		t.Error("expected error for non-table result")
	}
	if _, err := e.Force("explode", ForceContext{}); err == nil {
		t.Error("expected error for lua runtime error")
	}
}

func TestNewEngine_SyntaxErrorFails(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.lua", "function (")
	if _, err := NewEngine(dir, zap.NewNop()); err == nil {
		t.Fatal("expected load error")
	}
}

func TestNewEngine_MissingDirIsEmpty(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	e.Close()
}
