package ecs

import "fmt"

// Registry lists a World's component stores in registration order.
// Destroying an entity removes its components store by store in that
// order, so tracked stores see Removed events in a fixed sequence.
type Registry struct {
	names  []string
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a store under name. Registering the same name twice is a
// programming error and panics.
func (r *Registry) Register(name string, store Removable) {
	for _, n := range r.names {
		if n == name {
			panic(fmt.Sprintf("ecs: store %q registered twice", name))
		}
	}
	r.names = append(r.names, name)
	r.stores = append(r.stores, store)
}

// Names returns the registered store names in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// RemoveAll drops id from every store and returns how many held a
// component for it.
func (r *Registry) RemoveAll(id EntityID) int {
	n := 0
	for _, s := range r.stores {
		if s.Remove(id) {
			n++
		}
	}
	return n
}
