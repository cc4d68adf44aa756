package engine

import "github.com/l1jgo/physync/internal/geom"

type Material struct {
	Friction    float64
	Restitution float64
}

// CollisionGroups filters which collider pairs are tested. Bit i of a
// mask refers to group i; only the low 30 groups are usable.
type CollisionGroups struct {
	Membership uint32
	Whitelist  uint32
	Blacklist  uint32
}

const allGroupsMask = 1<<30 - 1

func AllGroups() CollisionGroups {
	return CollisionGroups{Membership: allGroupsMask, Whitelist: allGroupsMask}
}

// CanInteractWith reports whether both sides accept each other.
func (g CollisionGroups) CanInteractWith(o CollisionGroups) bool {
	return g.accepts(o) && o.accepts(g)
}

func (g CollisionGroups) accepts(o CollisionGroups) bool {
	return g.Whitelist&o.Membership != 0 && g.Blacklist&o.Membership == 0
}

type QueryKind uint8

const (
	QueryContacts QueryKind = iota
	QueryProximity
)

// QueryType selects contact generation or proximity detection for a
// collider, with the margins used by each.
type QueryType struct {
	Kind          QueryKind
	LinearMargin  float64
	AngularMargin float64
}

func Contacts(linear, angular float64) QueryType {
	return QueryType{Kind: QueryContacts, LinearMargin: linear, AngularMargin: angular}
}

func ProximityQuery(linear float64) QueryType {
	return QueryType{Kind: QueryProximity, LinearMargin: linear}
}

// ColliderDesc describes a collider to attach. Position is relative to
// Parent, or world space when Parent is the ground.
type ColliderDesc struct {
	Shape    geom.Shape
	Parent   BodyPartHandle
	Position geom.Isometry
	Margin   float64
	Density  float64
	Material Material
	Sensor   bool
	UserData uint64
}
