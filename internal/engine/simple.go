package engine

import (
	"math"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/physync/internal/geom"
)

// ColliderState is the engine-side view of an attached collider.
type ColliderState struct {
	ColliderDesc
	Groups CollisionGroups
	Query  QueryType
}

type pairKey struct{ a, b ColliderHandle }

// Simple is a reference engine: semi-implicit Euler integration and
// bounding-sphere overlap tests (planes are half-spaces). Joints are
// tracked for bookkeeping but not solved. It exists so the sync pipeline
// can run end to end without a real physics backend.
type Simple struct {
	bodies    map[BodyHandle]*Body
	colliders map[ColliderHandle]*ColliderState
	joints    map[JointHandle]JointDesc

	nextBody     BodyHandle
	nextCollider ColliderHandle
	nextJoint    JointHandle

	timestep          time.Duration
	gravity           mgl64.Vec3
	params            IntegrationParameters
	profiling         bool
	lastStep          time.Duration
	prediction        float64
	angularPrediction float64

	grid        *grid
	contacts    map[pairKey]bool
	proximities map[pairKey]Proximity

	contactEvents   []ContactEvent
	proximityEvents []ProximityEvent
}

var _ Engine = (*Simple)(nil)

func NewSimple() *Simple {
	s := &Simple{
		bodies:            make(map[BodyHandle]*Body),
		colliders:         make(map[ColliderHandle]*ColliderState),
		joints:            make(map[JointHandle]JointDesc),
		nextBody:          Ground + 1,
		nextCollider:      1,
		nextJoint:         1,
		timestep:          time.Second / 60,
		params:            DefaultIntegrationParameters(),
		prediction:        0.002,
		angularPrediction: math.Pi / 180 * 5,
		grid:              newGrid(),
		contacts:          make(map[pairKey]bool),
		proximities:       make(map[pairKey]Proximity),
	}
	s.bodies[Ground] = &Body{Status: StatusStatic, Position: geom.Identity()}
	return s
}

// ---------- bodies ----------

func (s *Simple) AddBody(desc BodyDesc) BodyHandle {
	h := s.nextBody
	s.nextBody++
	s.bodies[h] = newBody(desc)
	return h
}

func (s *Simple) RemoveBodies(handles []BodyHandle) Removal {
	gone := make(map[BodyHandle]bool, len(handles))
	for _, h := range handles {
		if h == Ground {
			continue
		}
		if _, ok := s.bodies[h]; ok {
			delete(s.bodies, h)
			gone[h] = true
		}
	}
	var out Removal
	if len(gone) == 0 {
		return out
	}
	for _, ch := range s.sortedColliders() {
		if gone[s.colliders[ch].Parent.Body] {
			out.Colliders = append(out.Colliders, ch)
		}
	}
	s.RemoveColliders(out.Colliders)

	var joints []JointHandle
	for jh, j := range s.joints {
		if gone[j.Body1.Body] || gone[j.Body2.Body] {
			joints = append(joints, jh)
		}
	}
	sort.Slice(joints, func(i, k int) bool { return joints[i] < joints[k] })
	for _, jh := range joints {
		j := s.joints[jh]
		out.Joints = append(out.Joints, RemovedJoint{Handle: jh, Body1: j.Body1, Body2: j.Body2})
	}
	s.RemoveJoints(joints)
	return out
}

func (s *Simple) Body(h BodyHandle) (*Body, bool) {
	b, ok := s.bodies[h]
	return b, ok
}

// NumBodies returns the number of bodies, not counting the ground.
func (s *Simple) NumBodies() int { return len(s.bodies) - 1 }

// ---------- colliders ----------

func (s *Simple) AddCollider(desc ColliderDesc) ColliderHandle {
	h := s.nextCollider
	s.nextCollider++
	s.colliders[h] = &ColliderState{
		ColliderDesc: desc,
		Groups:       AllGroups(),
		Query:        Contacts(desc.Margin+s.prediction, s.angularPrediction),
	}
	return h
}

func (s *Simple) RemoveColliders(handles []ColliderHandle) {
	for _, h := range handles {
		delete(s.colliders, h)
		for k := range s.contacts {
			if k.a == h || k.b == h {
				delete(s.contacts, k)
			}
		}
		for k := range s.proximities {
			if k.a == h || k.b == h {
				delete(s.proximities, k)
			}
		}
	}
}

func (s *Simple) SetCollisionGroups(h ColliderHandle, g CollisionGroups) {
	if c, ok := s.colliders[h]; ok {
		c.Groups = g
	}
}

func (s *Simple) SetQueryType(h ColliderHandle, q QueryType) {
	if c, ok := s.colliders[h]; ok {
		c.Query = q
	}
}

func (s *Simple) SetColliderShape(h ColliderHandle, shape geom.Shape) {
	if c, ok := s.colliders[h]; ok {
		c.Shape = shape
	}
}

func (s *Simple) SetColliderPosition(h ColliderHandle, pos geom.Isometry) {
	if c, ok := s.colliders[h]; ok {
		c.Position = pos
	}
}

func (s *Simple) SetColliderMaterial(h ColliderHandle, m Material) {
	if c, ok := s.colliders[h]; ok {
		c.Material = m
	}
}

func (s *Simple) ColliderUserData(h ColliderHandle) (uint64, bool) {
	c, ok := s.colliders[h]
	if !ok {
		return 0, false
	}
	return c.UserData, true
}

// Collider returns a copy of the collider's engine state.
func (s *Simple) Collider(h ColliderHandle) (ColliderState, bool) {
	c, ok := s.colliders[h]
	if !ok {
		return ColliderState{}, false
	}
	return *c, true
}

func (s *Simple) NumColliders() int { return len(s.colliders) }

func (s *Simple) sortedColliders() []ColliderHandle {
	hs := make([]ColliderHandle, 0, len(s.colliders))
	for h := range s.colliders {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// ---------- joints ----------

func (s *Simple) AddJoint(desc JointDesc) JointHandle {
	h := s.nextJoint
	s.nextJoint++
	s.joints[h] = desc
	return h
}

func (s *Simple) RemoveJoints(handles []JointHandle) {
	for _, h := range handles {
		delete(s.joints, h)
	}
}

func (s *Simple) JointAnchors(h JointHandle) (BodyPartHandle, BodyPartHandle, bool) {
	j, ok := s.joints[h]
	if !ok {
		return BodyPartHandle{}, BodyPartHandle{}, false
	}
	return j.Body1, j.Body2, true
}

func (s *Simple) NumJoints() int { return len(s.joints) }

// ---------- parameters ----------

func (s *Simple) Timestep() time.Duration      { return s.timestep }
func (s *Simple) SetTimestep(dt time.Duration) { s.timestep = dt }
func (s *Simple) Gravity() mgl64.Vec3          { return s.gravity }
func (s *Simple) SetGravity(g mgl64.Vec3)      { s.gravity = g }

func (s *Simple) IntegrationParameters() IntegrationParameters { return s.params }

func (s *Simple) SetIntegrationParameters(p IntegrationParameters) { s.params = p }

func (s *Simple) ProfilingEnabled() bool      { return s.profiling }
func (s *Simple) SetProfilingEnabled(on bool) { s.profiling = on }

// LastStepDuration is the wall time of the previous Step, recorded only
// while profiling is enabled.
func (s *Simple) LastStepDuration() time.Duration { return s.lastStep }

func (s *Simple) Prediction() float64        { return s.prediction }
func (s *Simple) AngularPrediction() float64 { return s.angularPrediction }

// ---------- stepping ----------

func (s *Simple) ContactEvents() []ContactEvent     { return s.contactEvents }
func (s *Simple) ProximityEvents() []ProximityEvent { return s.proximityEvents }

func (s *Simple) Step() {
	var start time.Time
	if s.profiling {
		start = time.Now()
	}
	s.contactEvents = s.contactEvents[:0]
	s.proximityEvents = s.proximityEvents[:0]

	dt := s.timestep.Seconds()
	for _, b := range s.bodies {
		s.integrate(b, dt)
	}
	s.detect()

	if s.profiling {
		s.lastStep = time.Since(start)
	}
}

func (s *Simple) integrate(b *Body, dt float64) {
	defer b.clearForces()
	if !b.IsActive() {
		return
	}
	switch b.Status {
	case StatusDynamic:
		acc := mgl64.Vec3{}
		if b.Mass > 0 {
			acc = b.force.Mul(1 / b.Mass)
		}
		if b.GravityEnabled {
			acc = acc.Add(s.gravity)
		}
		b.LinearVelocity = b.LinearVelocity.Add(acc.Mul(dt))
		if b.AngularInertia.Det() != 0 {
			alpha := b.AngularInertia.Inv().Mul3x1(b.torque)
			b.AngularVelocity = b.AngularVelocity.Add(alpha.Mul(dt))
		}
	case StatusKinematic:
	default:
		return
	}
	b.Position.Translation = b.Position.Translation.Add(b.LinearVelocity.Mul(dt))
	if w := b.AngularVelocity.Len(); w > 0 {
		dq := mgl64.QuatRotate(w*dt, b.AngularVelocity.Mul(1/w))
		b.Position.Rotation = dq.Mul(b.Position.Rotation).Normalize()
	}
}

func (s *Simple) worldPosition(c *ColliderState) (geom.Isometry, bool) {
	parent, ok := s.bodies[c.Parent.Body]
	if !ok {
		return geom.Isometry{}, false
	}
	return parent.Position.Mul(c.Position), true
}

func (s *Simple) invMass(h BodyHandle) float64 {
	b := s.bodies[h]
	if b == nil || !b.IsDynamic() || b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}

// candidatePairs runs the broad phase. Pairs already touching or in
// proximity are always included so they can report separation.
func (s *Simple) candidatePairs() []pairKey {
	all := make([]bounds, 0, len(s.colliders))
	margin := 0.0
	for _, h := range s.sortedColliders() {
		c := s.colliders[h]
		pos, ok := s.worldPosition(c)
		if !ok {
			continue
		}
		all = append(all, bounds{h: h, center: pos.Translation, radius: c.Shape.BoundingRadius()})
		margin = math.Max(margin, c.Query.LinearMargin)
	}
	s.grid.rebuild(all, margin)

	pairs := s.grid.pairs()
	if len(s.contacts) == 0 && len(s.proximities) == 0 {
		return pairs
	}
	set := make(map[pairKey]struct{}, len(pairs)+len(s.contacts)+len(s.proximities))
	for _, p := range pairs {
		set[p] = struct{}{}
	}
	for k := range s.contacts {
		set[k] = struct{}{}
	}
	for k := range s.proximities {
		set[k] = struct{}{}
	}
	return sortedPairs(set)
}

func (s *Simple) detect() {
	for _, key := range s.candidatePairs() {
		c1, c2 := s.colliders[key.a], s.colliders[key.b]
		if c1 == nil || c2 == nil {
			continue
		}
		if c1.Parent.Body == c2.Parent.Body {
			continue
		}
		if s.invMass(c1.Parent.Body) == 0 && s.invMass(c2.Parent.Body) == 0 {
			continue
		}
		if !c1.Groups.CanInteractWith(c2.Groups) {
			continue
		}
		p1, ok1 := s.worldPosition(c1)
		p2, ok2 := s.worldPosition(c2)
		if !ok1 || !ok2 {
			continue
		}
		gap, normal, ok := separation(c1.Shape, p1, c2.Shape, p2)
		if !ok {
			continue
		}
		margin := math.Max(c1.Query.LinearMargin, c2.Query.LinearMargin)
		if c1.Sensor || c2.Sensor || c1.Query.Kind == QueryProximity || c2.Query.Kind == QueryProximity {
			s.updateProximity(key, gap, margin)
			continue
		}
		s.updateContact(key, gap <= margin)
		if gap < 0 {
			s.resolve(c1, c2, gap, normal)
		}
	}
}

func (s *Simple) updateContact(key pairKey, touching bool) {
	was := s.contacts[key]
	switch {
	case touching && !was:
		s.contacts[key] = true
		s.contactEvents = append(s.contactEvents, ContactEvent{key.a, key.b, ContactStarted})
	case !touching && was:
		delete(s.contacts, key)
		s.contactEvents = append(s.contactEvents, ContactEvent{key.a, key.b, ContactStopped})
	}
}

func (s *Simple) updateProximity(key pairKey, gap, margin float64) {
	next := Disjoint
	switch {
	case gap < 0:
		next = Intersecting
	case gap <= margin:
		next = WithinMargin
	}
	prev := s.proximities[key]
	if prev == next {
		return
	}
	if next == Disjoint {
		delete(s.proximities, key)
	} else {
		s.proximities[key] = next
	}
	s.proximityEvents = append(s.proximityEvents, ProximityEvent{key.a, key.b, prev, next})
}

// resolve pushes penetrating bodies apart along normal (pointing from c1
// to c2) and removes their approaching relative velocity.
func (s *Simple) resolve(c1, c2 *ColliderState, gap float64, normal mgl64.Vec3) {
	im1, im2 := s.invMass(c1.Parent.Body), s.invMass(c2.Parent.Body)
	total := im1 + im2
	if total == 0 {
		return
	}
	b1, b2 := s.bodies[c1.Parent.Body], s.bodies[c2.Parent.Body]

	depth := -gap
	b1.Position.Translation = b1.Position.Translation.Sub(normal.Mul(depth * im1 / total))
	b2.Position.Translation = b2.Position.Translation.Add(normal.Mul(depth * im2 / total))

	vn := b2.LinearVelocity.Sub(b1.LinearVelocity).Dot(normal)
	if vn >= 0 {
		return
	}
	e := math.Max(c1.Material.Restitution, c2.Material.Restitution)
	if -vn < s.params.RestitutionVelocityThreshold {
		e = 0
	}
	j := -(1 + e) * vn / total
	b1.LinearVelocity = b1.LinearVelocity.Sub(normal.Mul(j * im1))
	b2.LinearVelocity = b2.LinearVelocity.Add(normal.Mul(j * im2))
}

// separation returns the signed gap between two shapes (negative when
// penetrating) and the unit normal from the first to the second.
func separation(s1 geom.Shape, p1 geom.Isometry, s2 geom.Shape, p2 geom.Isometry) (float64, mgl64.Vec3, bool) {
	plane1, plane2 := s1.Kind == geom.ShapePlane, s2.Kind == geom.ShapePlane
	switch {
	case plane1 && plane2:
		return 0, mgl64.Vec3{}, false
	case plane1:
		n := p1.TransformVector(s1.Normal)
		return p2.Translation.Sub(p1.Translation).Dot(n) - s2.BoundingRadius(), n, true
	case plane2:
		n := p2.TransformVector(s2.Normal)
		return p1.Translation.Sub(p2.Translation).Dot(n) - s1.BoundingRadius(), n.Mul(-1), true
	}
	d := p2.Translation.Sub(p1.Translation)
	dist := d.Len()
	normal := mgl64.Vec3{0, 1, 0}
	if dist > 0 {
		normal = d.Mul(1 / dist)
	}
	return dist - s1.BoundingRadius() - s2.BoundingRadius(), normal, true
}
