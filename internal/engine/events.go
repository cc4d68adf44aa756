package engine

type ContactEventType uint8

const (
	ContactStarted ContactEventType = iota
	ContactStopped
)

func (t ContactEventType) String() string {
	if t == ContactStarted {
		return "started"
	}
	return "stopped"
}

type ContactEvent struct {
	Collider1 ColliderHandle
	Collider2 ColliderHandle
	Type      ContactEventType
}

type Proximity uint8

const (
	Disjoint Proximity = iota
	WithinMargin
	Intersecting
)

func (p Proximity) String() string {
	switch p {
	case Disjoint:
		return "disjoint"
	case WithinMargin:
		return "within_margin"
	case Intersecting:
		return "intersecting"
	}
	return "unknown"
}

type ProximityEvent struct {
	Collider1 ColliderHandle
	Collider2 ColliderHandle
	Prev      Proximity
	New       Proximity
}
