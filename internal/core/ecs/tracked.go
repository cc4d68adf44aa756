package ecs

import (
	"errors"
	"fmt"
)

// ErrReaderNotSetup is the panic value (wrapped) raised when a tracked store is
// read through a reader it never issued. Readers must be registered once at
// system setup; silently skipping would leave engine state stale.
var ErrReaderNotSetup = errors.New("component event reader not set up")

// EventKind classifies a change to a tracked component.
type EventKind uint8

const (
	Inserted EventKind = iota + 1
	Modified
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// ComponentEvent is one entry of a tracked store's ordered change log.
type ComponentEvent struct {
	Kind   EventKind
	Entity EntityID
}

// ReaderID is a persistent cursor into a tracked store's change log.
type ReaderID struct {
	cursor uint64
}

// TrackedStore is a component store that records Inserted / Modified / Removed
// events. Each registered reader sees every event exactly once, independently
// of other readers. Get is unflagged: writes through the returned pointer do
// not produce events, which is what readback stages rely on. Authoring code
// must use Modify so the sync stages notice the change.
type TrackedStore[T any] struct {
	data    map[EntityID]*T
	log     []ComponentEvent
	base    uint64 // absolute index of log[0]
	readers map[*ReaderID]struct{}
}

func NewTrackedStore[T any]() *TrackedStore[T] {
	return &TrackedStore[T]{
		data:    make(map[EntityID]*T, 256),
		log:     make([]ComponentEvent, 0, 256),
		readers: make(map[*ReaderID]struct{}, 4),
	}
}

// RegisterReader returns a cursor positioned at the end of the log. Events
// emitted before registration are not visible to it.
func (s *TrackedStore[T]) RegisterReader() *ReaderID {
	r := &ReaderID{cursor: s.base + uint64(len(s.log))}
	s.readers[r] = struct{}{}
	return r
}

// UnregisterReader drops a cursor so it no longer holds back compaction.
func (s *TrackedStore[T]) UnregisterReader(r *ReaderID) {
	delete(s.readers, r)
	s.compact()
}

// Read returns all events emitted since the reader's last read and advances it.
// Panics with ErrReaderNotSetup if r was not issued by this store.
func (s *TrackedStore[T]) Read(r *ReaderID) []ComponentEvent {
	if r == nil {
		panic(fmt.Errorf("%w: nil reader", ErrReaderNotSetup))
	}
	if _, ok := s.readers[r]; !ok {
		panic(fmt.Errorf("%w: reader not registered with this store", ErrReaderNotSetup))
	}
	start := int(r.cursor - s.base)
	out := make([]ComponentEvent, len(s.log)-start)
	copy(out, s.log[start:])
	r.cursor = s.base + uint64(len(s.log))
	s.compact()
	return out
}

// compact drops the log prefix every reader has already consumed.
func (s *TrackedStore[T]) compact() {
	if len(s.readers) == 0 {
		s.base += uint64(len(s.log))
		s.log = s.log[:0]
		return
	}
	low := s.base + uint64(len(s.log))
	for r := range s.readers {
		if r.cursor < low {
			low = r.cursor
		}
	}
	drop := int(low - s.base)
	if drop == 0 {
		return
	}
	n := copy(s.log, s.log[drop:])
	s.log = s.log[:n]
	s.base = low
}

func (s *TrackedStore[T]) emit(kind EventKind, id EntityID) {
	if len(s.readers) == 0 {
		s.base++
		return
	}
	s.log = append(s.log, ComponentEvent{Kind: kind, Entity: id})
}

// Insert stores c for id and emits Inserted, also when replacing a value.
func (s *TrackedStore[T]) Insert(id EntityID, c *T) {
	s.data[id] = c
	s.emit(Inserted, id)
}

// Modify returns the component for mutation and emits Modified.
func (s *TrackedStore[T]) Modify(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	if ok {
		s.emit(Modified, id)
	}
	return c, ok
}

// Update applies fn to the component and emits Modified.
func (s *TrackedStore[T]) Update(id EntityID, fn func(*T)) bool {
	c, ok := s.Modify(id)
	if ok {
		fn(c)
	}
	return ok
}

// Remove deletes the component and emits Removed if it was present.
func (s *TrackedStore[T]) Remove(id EntityID) bool {
	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	s.emit(Removed, id)
	return true
}

func (s *TrackedStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *TrackedStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *TrackedStore[T]) Len() int {
	return len(s.data)
}

func (s *TrackedStore[T]) Each(fn func(EntityID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}

// Pending reports how many events are retained for the slowest reader.
func (s *TrackedStore[T]) Pending() int {
	return len(s.log)
}
