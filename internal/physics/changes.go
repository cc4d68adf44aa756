package physics

import (
	"sort"

	"github.com/l1jgo/physync/internal/core/ecs"
)

// EntitySet is a set of entity ids.
type EntitySet map[ecs.EntityID]struct{}

func (s EntitySet) Has(id ecs.EntityID) bool {
	_, ok := s[id]
	return ok
}

// ChangeSet is one frame's worth of change events for a component type,
// split by kind. An entity may appear in more than one set.
type ChangeSet struct {
	Inserted EntitySet
	Modified EntitySet
	Removed  EntitySet
}

func NewChangeSet() ChangeSet {
	return ChangeSet{
		Inserted: make(EntitySet),
		Modified: make(EntitySet),
		Removed:  make(EntitySet),
	}
}

// Drain reads every event since the reader's last drain.
// It panics with ecs.ErrReaderNotSetup when r was not registered on s.
func Drain[T any](s *ecs.TrackedStore[T], r *ecs.ReaderID) ChangeSet {
	cs := NewChangeSet()
	cs.Add(s.Read(r))
	return cs
}

func (c ChangeSet) Add(events []ecs.ComponentEvent) {
	for _, ev := range events {
		switch ev.Kind {
		case ecs.Inserted:
			c.Inserted[ev.Entity] = struct{}{}
		case ecs.Modified:
			c.Modified[ev.Entity] = struct{}{}
		case ecs.Removed:
			c.Removed[ev.Entity] = struct{}{}
		}
	}
}

// Merge folds other into c.
func (c ChangeSet) Merge(other ChangeSet) {
	for id := range other.Inserted {
		c.Inserted[id] = struct{}{}
	}
	for id := range other.Modified {
		c.Modified[id] = struct{}{}
	}
	for id := range other.Removed {
		c.Removed[id] = struct{}{}
	}
}

func (c ChangeSet) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Entities returns every entity in the set, sorted, so stages process
// changes in a reproducible order.
func (c ChangeSet) Entities() []ecs.EntityID {
	seen := make(EntitySet, len(c.Inserted)+len(c.Modified)+len(c.Removed))
	for _, set := range []EntitySet{c.Inserted, c.Modified, c.Removed} {
		for id := range set {
			seen[id] = struct{}{}
		}
	}
	return seen.Sorted()
}

func (s EntitySet) Sorted() []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
