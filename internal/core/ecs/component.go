package ecs

// Removable is implemented by every component store. Remove reports
// whether a component was present.
type Removable interface {
	Remove(id EntityID) bool
}

// Store is the read side shared by PlainStore and TrackedStore.
type Store[T any] interface {
	Get(id EntityID) (*T, bool)
	Has(id EntityID) bool
	Len() int
	Each(fn func(EntityID, *T))
}

// PlainStore holds components that nothing needs change events for,
// such as weak references and per-frame inputs.
type PlainStore[T any] struct {
	data map[EntityID]*T
}

func NewPlainStore[T any]() *PlainStore[T] {
	return &PlainStore[T]{data: make(map[EntityID]*T)}
}

func (s *PlainStore[T]) Set(id EntityID, c *T) { s.data[id] = c }

func (s *PlainStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *PlainStore[T]) Remove(id EntityID) bool {
	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	return true
}

func (s *PlainStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *PlainStore[T]) Len() int { return len(s.data) }

// Each visits components in unspecified order; see SortedIDs.
func (s *PlainStore[T]) Each(fn func(EntityID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}
