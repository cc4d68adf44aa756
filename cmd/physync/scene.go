package main

import (
	"fmt"

	"github.com/l1jgo/physync/internal/component"
	"github.com/l1jgo/physync/internal/core/ecs"
	"github.com/l1jgo/physync/internal/data"
	"github.com/l1jgo/physync/internal/physics"
)

// spawnScene creates the scene's entities in w. Entities are created in
// file order so parents, joints and forces can refer to any entity by
// name. Returns the entity IDs by name.
func spawnScene(w *physics.World, scene *data.Scene, mats *data.MaterialTable) (map[string]ecs.EntityID, error) {
	ids := make(map[string]ecs.EntityID, len(scene.Entities))
	for _, se := range scene.Entities {
		if _, dup := ids[se.Name]; dup {
			return nil, fmt.Errorf("scene: duplicate entity %q", se.Name)
		}
		ids[se.Name] = w.ECS.CreateEntity()
	}
	lookup := func(what, name string) (ecs.EntityID, error) {
		id, ok := ids[name]
		if !ok {
			return 0, fmt.Errorf("scene: %s refers to unknown entity %q", what, name)
		}
		return id, nil
	}

	for _, se := range scene.Entities {
		id := ids[se.Name]
		w.Poses.Insert(id, component.NewPose(se.Pose))

		if se.Parent != "" {
			parent, err := lookup("parent of "+se.Name, se.Parent)
			if err != nil {
				return nil, err
			}
			w.Parents.Set(id, &component.Parent{Entity: parent})
		}

		if sb := se.Body; sb != nil {
			bb := component.NewBodyBuilder(sb.Status).
				Gravity(sb.GravityEnabled).
				Velocity(sb.Velocity, sb.Spin)
			if sb.Mass > 0 {
				bb.Mass(sb.Mass)
			}
			w.Bodies.Insert(id, bb.Build())
		}

		if sc := se.Collider; sc != nil {
			cb := component.NewColliderBuilder(sc.Shape).
				Offset(sc.Offset).
				Sensor(sc.Sensor)
			if sc.Margin > 0 {
				cb.Margin(sc.Margin)
			}
			if sc.Material != "" {
				m, ok := mats.Material(sc.Material)
				if !ok {
					return nil, fmt.Errorf("scene: entity %q: unknown material %q", se.Name, sc.Material)
				}
				cb.Material(m)
			}
			if sc.Groups != "" {
				g, ok := mats.Groups(sc.Groups)
				if !ok {
					return nil, fmt.Errorf("scene: entity %q: unknown collision groups %q", se.Name, sc.Groups)
				}
				cb.Groups(g)
			}
			w.Colliders.Insert(id, cb.Build())
		}
	}

	for _, sj := range scene.Joints {
		b1, err := lookup("joint "+sj.Name, sj.Body1)
		if err != nil {
			return nil, err
		}
		b2, err := lookup("joint "+sj.Name, sj.Body2)
		if err != nil {
			return nil, err
		}
		jid := w.ECS.CreateEntity()
		w.Joints.Insert(jid, &component.Joint{
			Kind:    sj.Kind,
			Body1:   component.BodyPartRef{Entity: b1},
			Body2:   component.BodyPartRef{Entity: b2},
			Anchor1: sj.Anchor1,
			Anchor2: sj.Anchor2,
			Axis:    sj.Axis,
		})
	}

	for _, sf := range scene.Forces {
		target, err := lookup("force", sf.Entity)
		if err != nil {
			return nil, err
		}
		gen := &component.ForceGenerator{
			Acceleration: sf.Acceleration,
			Stiffness:    sf.Stiffness,
			RestLength:   sf.RestLength,
			Damping:      sf.Damping,
			Script:       sf.Script,
		}
		switch sf.Kind {
		case "constant":
			gen.Kind = component.ForceConstantAcceleration
		case "spring":
			gen.Kind = component.ForceSpring
			if gen.Other, err = lookup("spring on "+sf.Entity, sf.Other); err != nil {
				return nil, err
			}
		case "script":
			gen.Kind = component.ForceScript
		default:
			return nil, fmt.Errorf("scene: force on %q: unknown kind %q", sf.Entity, sf.Kind)
		}
		w.Forces.Set(target, gen)
	}
	return ids, nil
}
