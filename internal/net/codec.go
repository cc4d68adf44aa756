package net

import (
	"encoding/json"
	"fmt"
)

// Message types sent on the pose stream.
const (
	TypeFrame    = "frame"
	TypeTimestep = "timestep"
)

// BodyPose is one body's world pose. Rotation is (w, x, y, z).
type BodyPose struct {
	Entity   uint64     `json:"entity"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Velocity [3]float64 `json:"velocity"`
}

// Contact is a contact or proximity change between two entities.
type Contact struct {
	Entity1 uint64 `json:"entity1"`
	Entity2 uint64 `json:"entity2"`
	Kind    string `json:"kind"` // "started", "stopped", or a proximity name
}

// FrameMessage carries the poses of all simulated bodies and the contact
// changes since the previous message.
type FrameMessage struct {
	Type     string     `json:"type"`
	Frame    uint64     `json:"frame"`
	SimTime  float64    `json:"sim_time"` // seconds
	Bodies   []BodyPose `json:"bodies"`
	Contacts []Contact  `json:"contacts,omitempty"`
}

// TimestepMessage announces a change of the physics timestep.
type TimestepMessage struct {
	Type   string `json:"type"`
	Frame  uint64 `json:"frame"`
	FromNS int64  `json:"from_ns"`
	ToNS   int64  `json:"to_ns"`
	Index  int    `json:"index"`
}

// Encode serializes a stream message, filling in its type tag.
func Encode(msg any) ([]byte, error) {
	switch m := msg.(type) {
	case *FrameMessage:
		m.Type = TypeFrame
	case *TimestepMessage:
		m.Type = TypeTimestep
	default:
		return nil, fmt.Errorf("encode: unsupported message %T", msg)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", msg, err)
	}
	return data, nil
}

// Decode reads a stream message back into its typed form.
func Decode(data []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	var msg any
	switch head.Type {
	case TypeFrame:
		msg = &FrameMessage{}
	case TypeTimestep:
		msg = &TimestepMessage{}
	default:
		return nil, fmt.Errorf("decode: unknown message type %q", head.Type)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return msg, nil
}
