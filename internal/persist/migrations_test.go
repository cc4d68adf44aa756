package persist

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrations(t *testing.T) {
	fsys, err := migrationFS()
	if err != nil {
		t.Fatal(err)
	}
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations embedded")
	}
	for _, name := range files {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatal(err)
		}
		src := string(raw)
		if !strings.Contains(src, "-- +goose Up") || !strings.Contains(src, "-- +goose Down") {
			t.Errorf("%s lacks goose Up/Down annotations", name)
		}
	}
}

func TestTelemetryTablesDeclared(t *testing.T) {
	fsys, _ := migrationFS()
	raw, err := fs.ReadFile(fsys, "00001_telemetry.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"stepper_samples", "timestep_changes"} {
		if !strings.Contains(string(raw), "CREATE TABLE "+table) {
			t.Errorf("migration does not create %s", table)
		}
	}
}
