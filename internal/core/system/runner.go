package system

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrDuplicateSystem   = errors.New("system already registered")
	ErrUnknownDependency = errors.New("unknown system dependency")
	ErrDependencyCycle   = errors.New("system dependency cycle")
	ErrPhaseOrder        = errors.New("system depends on a later phase")
	ErrNotSetup          = errors.New("runner not set up")
)

type entry struct {
	name  string
	sys   System
	after []string
	order int
}

// Runner executes systems in phase order each frame. Within a phase,
// systems run after the systems they name as dependencies; registration
// order breaks ties.
type Runner struct {
	entries []*entry
	byName  map[string]*entry
	sorted  []*entry
	ready   bool
}

func NewRunner() *Runner {
	return &Runner{
		entries: make([]*entry, 0, 16),
		byName:  make(map[string]*entry, 16),
	}
}

// Register adds a named system that runs after every system in after.
// Dependencies are resolved in Setup, so they may be registered later.
func (r *Runner) Register(name string, s System, after ...string) error {
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateSystem, name)
	}
	e := &entry{name: name, sys: s, after: after, order: len(r.entries)}
	r.entries = append(r.entries, e)
	r.byName[name] = e
	r.ready = false
	return nil
}

// Has reports whether a system with the given name is registered.
func (r *Runner) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Setup resolves the execution order and calls Setup on every system that
// implements Setupper. It must succeed before the first Tick.
func (r *Runner) Setup() error {
	order, err := r.resolve()
	if err != nil {
		return err
	}
	for _, e := range order {
		if s, ok := e.sys.(Setupper); ok {
			if err := s.Setup(); err != nil {
				return fmt.Errorf("setup %s: %w", e.name, err)
			}
		}
	}
	r.sorted = order
	r.ready = true
	return nil
}

// Order returns the resolved system names in execution order.
func (r *Runner) Order() []string {
	names := make([]string, len(r.sorted))
	for i, e := range r.sorted {
		names[i] = e.name
	}
	return names
}

func (r *Runner) Tick(dt time.Duration) {
	if !r.ready {
		panic(ErrNotSetup)
	}
	for _, e := range r.sorted {
		e.sys.Update(dt)
	}
}

// TickPhase runs only the systems of the given phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	if !r.ready {
		panic(ErrNotSetup)
	}
	for _, e := range r.sorted {
		if e.sys.Phase() == phase {
			e.sys.Update(dt)
		}
	}
}

func (r *Runner) resolve() ([]*entry, error) {
	for _, e := range r.entries {
		for _, dep := range e.after {
			d, ok := r.byName[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s runs after %q", ErrUnknownDependency, e.name, dep)
			}
			if d.sys.Phase() > e.sys.Phase() {
				return nil, fmt.Errorf("%w: %s (%s) after %s (%s)",
					ErrPhaseOrder, e.name, e.sys.Phase(), d.name, d.sys.Phase())
			}
		}
	}

	byPhase := make(map[Phase][]*entry)
	phases := make([]Phase, 0, 8)
	for _, e := range r.entries {
		p := e.sys.Phase()
		if _, seen := byPhase[p]; !seen {
			phases = append(phases, p)
		}
		byPhase[p] = append(byPhase[p], e)
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i] < phases[j] })

	out := make([]*entry, 0, len(r.entries))
	for _, p := range phases {
		group, err := r.topoSort(byPhase[p])
		if err != nil {
			return nil, err
		}
		out = append(out, group...)
	}
	return out, nil
}

// topoSort orders one phase's systems. Each round emits the lowest
// registration index whose same-phase dependencies are all emitted.
func (r *Runner) topoSort(group []*entry) ([]*entry, error) {
	inGroup := make(map[string]bool, len(group))
	for _, e := range group {
		inGroup[e.name] = true
	}
	done := make(map[string]bool, len(group))
	out := make([]*entry, 0, len(group))

	for len(out) < len(group) {
		progressed := false
		for _, e := range group {
			if done[e.name] || !r.depsDone(e, inGroup, done) {
				continue
			}
			done[e.name] = true
			out = append(out, e)
			progressed = true
			break
		}
		if !progressed {
			var stuck []string
			for _, e := range group {
				if !done[e.name] {
					stuck = append(stuck, e.name)
				}
			}
			return nil, fmt.Errorf("%w: %v", ErrDependencyCycle, stuck)
		}
	}
	return out, nil
}

func (r *Runner) depsDone(e *entry, inGroup, done map[string]bool) bool {
	for _, dep := range e.after {
		if inGroup[dep] && !done[dep] {
			return false
		}
	}
	return true
}
