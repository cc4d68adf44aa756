package ecs

import "sort"

// SortedIDs returns the entities of a store in ascending ID order. Map
// iteration order is random; callers that hand out engine handles use this
// to keep runs reproducible.
func SortedIDs[T any](s Store[T]) []EntityID {
	ids := make([]EntityID, 0, s.Len())
	s.Each(func(id EntityID, _ *T) {
		ids = append(ids, id)
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
