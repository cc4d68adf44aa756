package system

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
	err   error
	setup bool
}

func (s *recorder) Phase() Phase { return s.phase }

func (s *recorder) Update(time.Duration) { *s.log = append(*s.log, s.name) }

func (s *recorder) Setup() error {
	s.setup = true
	return s.err
}

func TestRunner_OrdersByPhaseThenDependencies(t *testing.T) {
	var log []string
	r := NewRunner()
	mk := func(name string, p Phase) *recorder { return &recorder{name: name, phase: p, log: &log} }

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(r.Register("cleanup", mk("cleanup", PhaseCleanup)))
	must(r.Register("stepper", mk("stepper", PhasePhysics), "parameters"))
	must(r.Register("parameters", mk("parameters", PhasePhysics), "bodies"))
	must(r.Register("bodies", mk("bodies", PhasePhysics), "dispatch"))
	must(r.Register("dispatch", mk("dispatch", PhaseInput)))
	must(r.Register("pose", mk("pose", PhasePostPhysics), "stepper"))

	must(r.Setup())
	r.Tick(time.Millisecond)

	want := []string{"dispatch", "bodies", "parameters", "stepper", "pose", "cleanup"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("run order %v, want %v", log, want)
	}
	if !reflect.DeepEqual(r.Order(), want) {
		t.Fatalf("Order() %v, want %v", r.Order(), want)
	}
}

func TestRunner_SetupErrors(t *testing.T) {
	var log []string
	tests := []struct {
		name  string
		build func(r *Runner)
		want  error
	}{
		{
			name: "unknown dependency",
			build: func(r *Runner) {
				_ = r.Register("a", &recorder{phase: PhaseUpdate, log: &log}, "ghost")
			},
			want: ErrUnknownDependency,
		},
		{
			name: "cycle",
			build: func(r *Runner) {
				_ = r.Register("a", &recorder{phase: PhaseUpdate, log: &log}, "b")
				_ = r.Register("b", &recorder{phase: PhaseUpdate, log: &log}, "a")
			},
			want: ErrDependencyCycle,
		},
		{
			name: "later phase",
			build: func(r *Runner) {
				_ = r.Register("a", &recorder{phase: PhaseInput, log: &log}, "b")
				_ = r.Register("b", &recorder{phase: PhaseCleanup, log: &log})
			},
			want: ErrPhaseOrder,
		},
		{
			name: "system setup failure",
			build: func(r *Runner) {
				_ = r.Register("a", &recorder{phase: PhaseInput, log: &log, err: errors.New("boom")})
			},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner()
			tt.build(r)
			err := r.Setup()
			if err == nil {
				t.Fatal("expected setup error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("error %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunner_DuplicateName(t *testing.T) {
	var log []string
	r := NewRunner()
	if err := r.Register("a", &recorder{log: &log}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("a", &recorder{log: &log}); !errors.Is(err, ErrDuplicateSystem) {
		t.Fatalf("expected ErrDuplicateSystem, got %v", err)
	}
}

func TestRunner_CallsSetupAndTickPhase(t *testing.T) {
	var log []string
	a := &recorder{name: "a", phase: PhaseInput, log: &log}
	b := &recorder{name: "b", phase: PhaseOutput, log: &log}
	r := NewRunner()
	_ = r.Register("a", a)
	_ = r.Register("b", b)
	if err := r.Setup(); err != nil {
		t.Fatal(err)
	}
	if !a.setup || !b.setup {
		t.Fatal("Setup not called on every system")
	}
	r.TickPhase(PhaseOutput, 0)
	if !reflect.DeepEqual(log, []string{"b"}) {
		t.Fatalf("TickPhase ran %v", log)
	}
}

func TestRunner_TickBeforeSetupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewRunner().Tick(0)
}
