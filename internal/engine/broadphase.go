package engine

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Cells never shrink below this edge length.
const minCellSize = 1.0

type cellKey struct {
	cx, cy, cz int32
}

func toCellCoord(v, size float64) int32 {
	return int32(math.Floor(v / size))
}

// bounds is a collider's world bounding sphere.
type bounds struct {
	h      ColliderHandle
	center mgl64.Vec3
	radius float64
}

// grid is the broad phase: colliders are bucketed by the cell of their
// bounding-sphere center, and candidate pairs come from a 3x3x3
// neighbourhood of cells. Cell size is chosen per rebuild so that the
// neighbourhood covers any two spheres within margin of each other.
// Unbounded shapes (planes) pair with everything.
// Accessed only from Step.
type grid struct {
	size      float64
	cells     map[cellKey][]ColliderHandle
	unbounded []ColliderHandle
}

func newGrid() *grid {
	return &grid{cells: make(map[cellKey][]ColliderHandle)}
}

func (g *grid) key(p mgl64.Vec3) cellKey {
	return cellKey{
		cx: toCellCoord(p.X(), g.size),
		cy: toCellCoord(p.Y(), g.size),
		cz: toCellCoord(p.Z(), g.size),
	}
}

// rebuild clears the grid and inserts every collider.
func (g *grid) rebuild(all []bounds, margin float64) {
	clear(g.cells)
	g.unbounded = g.unbounded[:0]

	g.size = minCellSize
	for _, b := range all {
		if !math.IsInf(b.radius, 1) {
			g.size = math.Max(g.size, 2*(b.radius+margin))
		}
	}
	for _, b := range all {
		if math.IsInf(b.radius, 1) {
			g.unbounded = append(g.unbounded, b.h)
			continue
		}
		k := g.key(b.center)
		g.cells[k] = append(g.cells[k], b.h)
	}
}

// pairs returns every candidate pair once, ordered by (a, b).
func (g *grid) pairs() []pairKey {
	seen := make(map[pairKey]struct{})
	add := func(a, b ColliderHandle) {
		if a == b {
			return
		}
		if b < a {
			a, b = b, a
		}
		seen[pairKey{a, b}] = struct{}{}
	}

	for k, cell := range g.cells {
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					for _, b := range g.cells[cellKey{k.cx + dx, k.cy + dy, k.cz + dz}] {
						for _, a := range cell {
							add(a, b)
						}
					}
				}
			}
		}
	}
	for i, u := range g.unbounded {
		for _, other := range g.unbounded[i+1:] {
			add(u, other)
		}
		for _, cell := range g.cells {
			for _, h := range cell {
				add(u, h)
			}
		}
	}

	return sortedPairs(seen)
}

func sortedPairs(set map[pairKey]struct{}) []pairKey {
	out := make([]pairKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}
