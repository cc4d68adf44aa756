package system

import (
	"sort"
	"time"

	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/core/event"
	coresys "github.com/l1jgo/physync/internal/core/system"
	"github.com/l1jgo/physync/internal/engine"
	gonet "github.com/l1jgo/physync/internal/net"
	"github.com/l1jgo/physync/internal/physics"
	"go.uber.org/zap"
)

// Broadcaster fans an encoded stream message out to subscribers.
type Broadcaster interface {
	Broadcast(data []byte) (int, error)
}

// StreamSystem publishes body poses and contact changes to pose-stream
// subscribers every N frames, and timestep changes as they happen.
// Phase 5 (Output).
type StreamSystem struct {
	w     *physics.World
	out   Broadcaster
	every uint64
	log   *zap.Logger

	frame   uint64
	simTime time.Duration

	contacts  []gonet.Contact
	timesteps []physics.TimestepChanged
}

func NewStreamSystem(w *physics.World, out Broadcaster, everyNFrames int, log *zap.Logger) *StreamSystem {
	if everyNFrames < 1 {
		everyNFrames = 1
	}
	return &StreamSystem{w: w, out: out, every: uint64(everyNFrames), log: log}
}

func (s *StreamSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *StreamSystem) Setup() error {
	event.Subscribe(s.w.Bus, func(ev physics.ContactEvent) {
		s.contacts = append(s.contacts, gonet.Contact{
			Entity1: uint64(ev.Entity1), Entity2: uint64(ev.Entity2), Kind: ev.Type.String(),
		})
	})
	event.Subscribe(s.w.Bus, func(ev physics.ProximityEvent) {
		s.contacts = append(s.contacts, gonet.Contact{
			Entity1: uint64(ev.Entity1), Entity2: uint64(ev.Entity2), Kind: ev.New.String(),
		})
	})
	event.Subscribe(s.w.Bus, func(ev physics.TimestepChanged) {
		s.timesteps = append(s.timesteps, ev)
	})
	return nil
}

func (s *StreamSystem) Update(dt time.Duration) {
	s.frame++
	s.simTime += dt

	for _, ev := range s.timesteps {
		s.send(&gonet.TimestepMessage{
			Frame: s.frame, FromNS: ev.From.Nanoseconds(), ToNS: ev.To.Nanoseconds(), Index: ev.Index,
		})
	}
	s.timesteps = s.timesteps[:0]

	if s.frame%s.every != 0 {
		return
	}
	s.send(&gonet.FrameMessage{
		Frame:    s.frame,
		SimTime:  s.simTime.Seconds(),
		Bodies:   s.poses(),
		Contacts: s.contacts,
	})
	s.contacts = s.contacts[:0]
}

func (s *StreamSystem) poses() []gonet.BodyPose {
	ids := make([]ecs.EntityID, 0, s.w.Registry.NumBodies())
	s.w.Registry.EachBody(func(id ecs.EntityID, h engine.BodyHandle) {
		if h != engine.Ground {
			ids = append(ids, id)
		}
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]gonet.BodyPose, 0, len(ids))
	for _, id := range ids {
		pose, ok := s.w.Poses.Get(id)
		if !ok {
			continue
		}
		q := pose.Isometry.Rotation
		bp := gonet.BodyPose{
			Entity:   uint64(id),
			Position: pose.Isometry.Translation,
			Rotation: [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
		}
		if body, ok := s.w.Bodies.Get(id); ok {
			bp.Velocity = body.LinearVelocity
		}
		out = append(out, bp)
	}
	return out
}

func (s *StreamSystem) send(msg any) {
	data, err := gonet.Encode(msg)
	if err != nil {
		s.log.Error("encode stream message", zap.Error(err))
		return
	}
	if _, err := s.out.Broadcast(data); err != nil {
		s.log.Warn("broadcast stream message", zap.Error(err))
	}
}
