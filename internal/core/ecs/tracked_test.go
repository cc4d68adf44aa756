package ecs

import (
	"errors"
	"testing"
)

type testComp struct{ V int }

func kinds(events []ComponentEvent) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestTrackedStore_EventsInOrder(t *testing.T) {
	s := NewTrackedStore[testComp]()
	r := s.RegisterReader()

	id := NewEntityID(1, 0)
	s.Insert(id, &testComp{V: 1})
	if c, ok := s.Modify(id); ok {
		c.V = 2
	}
	s.Remove(id)

	events := s.Read(r)
	want := []EventKind{Inserted, Modified, Removed}
	got := kinds(events)
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %v, want %v", i, got[i], want[i])
		}
		if events[i].Entity != id {
			t.Errorf("event %d: entity %v, want %v", i, events[i].Entity, id)
		}
	}

	if again := s.Read(r); len(again) != 0 {
		t.Errorf("second read should be empty, got %v", again)
	}
}

func TestTrackedStore_GetIsUnflagged(t *testing.T) {
	s := NewTrackedStore[testComp]()
	id := NewEntityID(1, 0)
	s.Insert(id, &testComp{})
	r := s.RegisterReader()

	c, _ := s.Get(id)
	c.V = 42

	if events := s.Read(r); len(events) != 0 {
		t.Fatalf("Get must not emit events, got %v", events)
	}
	if got, _ := s.Get(id); got.V != 42 {
		t.Errorf("value not written: %d", got.V)
	}
}

func TestTrackedStore_ReplaceEmitsInserted(t *testing.T) {
	s := NewTrackedStore[testComp]()
	r := s.RegisterReader()
	id := NewEntityID(3, 0)
	s.Insert(id, &testComp{V: 1})
	s.Insert(id, &testComp{V: 2})

	got := kinds(s.Read(r))
	if len(got) != 2 || got[0] != Inserted || got[1] != Inserted {
		t.Fatalf("expected two Inserted events, got %v", got)
	}
}

func TestTrackedStore_IndependentReaders(t *testing.T) {
	s := NewTrackedStore[testComp]()
	r1 := s.RegisterReader()
	r2 := s.RegisterReader()

	s.Insert(NewEntityID(1, 0), &testComp{})
	if n := len(s.Read(r1)); n != 1 {
		t.Fatalf("r1: expected 1 event, got %d", n)
	}

	s.Insert(NewEntityID(2, 0), &testComp{})
	if n := len(s.Read(r2)); n != 2 {
		t.Fatalf("r2: expected 2 events, got %d", n)
	}
	if n := len(s.Read(r1)); n != 1 {
		t.Fatalf("r1: expected 1 new event, got %d", n)
	}
	if s.Pending() != 0 {
		t.Errorf("log should be compacted once both readers caught up, pending=%d", s.Pending())
	}
}

func TestTrackedStore_LateReaderSeesOnlyNewEvents(t *testing.T) {
	s := NewTrackedStore[testComp]()
	s.Insert(NewEntityID(1, 0), &testComp{})
	r := s.RegisterReader()
	s.Remove(NewEntityID(1, 0))

	got := kinds(s.Read(r))
	if len(got) != 1 || got[0] != Removed {
		t.Fatalf("expected only the Removed event, got %v", got)
	}
}

func TestTrackedStore_RemoveMissingIsSilent(t *testing.T) {
	s := NewTrackedStore[testComp]()
	r := s.RegisterReader()
	s.Remove(NewEntityID(9, 0))
	if _, ok := s.Modify(NewEntityID(9, 0)); ok {
		t.Fatal("Modify on a missing component should report false")
	}
	if events := s.Read(r); len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
}

func TestTrackedStore_ForeignReaderPanics(t *testing.T) {
	a := NewTrackedStore[testComp]()
	b := NewTrackedStore[testComp]()
	foreign := b.RegisterReader()

	for name, r := range map[string]*ReaderID{"nil": nil, "foreign": foreign} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				rec := recover()
				err, ok := rec.(error)
				if !ok || !errors.Is(err, ErrReaderNotSetup) {
					t.Fatalf("expected ErrReaderNotSetup panic, got %v", rec)
				}
			}()
			a.Read(r)
		})
	}
}

func TestWorld_DestroyEmitsRemoved(t *testing.T) {
	w := NewWorld()
	s := NewTrackedStore[testComp]()
	w.Registry().Register("test", s)
	r := s.RegisterReader()

	id := w.CreateEntity()
	s.Insert(id, &testComp{})
	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	if w.Doomed() != 2 {
		t.Fatalf("queued %d, want 2", w.Doomed())
	}
	if n := w.FlushDestroyQueue(); n != 1 {
		t.Fatalf("destroyed %d entities, want 1", n)
	}

	got := kinds(s.Read(r))
	if len(got) != 2 || got[1] != Removed {
		t.Fatalf("expected Inserted then Removed, got %v", got)
	}
	if w.Alive(id) {
		t.Error("entity should be dead after flush")
	}
}

func TestEntityPool_GenerationInvalidatesStaleIDs(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	if a.IsZero() {
		t.Fatal("pool must never hand out the zero id")
	}
	p.Destroy(a)
	b := p.Create()
	if a.Index() != b.Index() {
		t.Fatalf("expected index reuse, got %v and %v", a, b)
	}
	if p.Alive(a) {
		t.Error("stale id reported alive")
	}
	if !p.Alive(b) {
		t.Error("fresh id reported dead")
	}
	if p.Len() != 1 {
		t.Errorf("Len = %d, want 1", p.Len())
	}
}

func TestRegistry_RemoveAllInOrder(t *testing.T) {
	w := NewWorld()
	a := NewTrackedStore[testComp]()
	b := NewPlainStore[testComp]()
	w.Registry().Register("a", a)
	w.Registry().Register("b", b)
	if got := w.Registry().Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("names %v", got)
	}

	id := w.CreateEntity()
	b.Set(id, &testComp{})
	if n := w.Registry().RemoveAll(id); n != 1 {
		t.Fatalf("removed from %d stores, want 1", n)
	}
	if b.Has(id) {
		t.Fatal("plain store still holds the entity")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("duplicate store name should panic")
		}
	}()
	w.Registry().Register("a", a)
}

func TestTrackedStore_UnregisteredReaderReleasesLog(t *testing.T) {
	s := NewTrackedStore[testComp]()
	fast := s.RegisterReader()
	slow := s.RegisterReader()

	s.Insert(1, &testComp{})
	s.Insert(2, &testComp{})
	s.Read(fast)
	if s.Pending() != 2 {
		t.Fatalf("pending %d, want 2 held back by the slow reader", s.Pending())
	}
	s.UnregisterReader(slow)
	if s.Pending() != 0 {
		t.Fatalf("pending %d after unregistering the slow reader", s.Pending())
	}
}
