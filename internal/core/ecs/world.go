package ecs

// World owns the entity pool and the component stores. Destruction is
// either immediate (DestroyEntity) or deferred to the end of the frame
// (MarkForDestruction), which keeps entities valid for every stage that
// runs after the mark.
type World struct {
	pool     *EntityPool
	registry *Registry
	doomed   []EntityID
}

func NewWorld() *World {
	return &World{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID { return w.pool.Create() }

func (w *World) Alive(id EntityID) bool { return w.pool.Alive(id) }

// DestroyEntity removes the entity's components and frees its id.
// Reports false for dead or stale ids.
func (w *World) DestroyEntity(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
	return true
}

// MarkForDestruction queues id for FlushDestroyQueue. Marking twice is
// harmless.
func (w *World) MarkForDestruction(id EntityID) {
	w.doomed = append(w.doomed, id)
}

// Doomed reports how many destructions are queued.
func (w *World) Doomed() int { return len(w.doomed) }

// FlushDestroyQueue destroys every queued entity and returns how many were
// still alive. The Removed events it produces are read by the sync stages
// on the next frame.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, id := range w.doomed {
		if w.DestroyEntity(id) {
			n++
		}
	}
	w.doomed = w.doomed[:0]
	return n
}
