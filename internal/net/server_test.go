package net

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestEncodeTagsType(t *testing.T) {
	data, err := Encode(&TimestepMessage{Frame: 7, FromNS: 16_666_666, ToNS: 33_333_333, Index: 1})
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	ts, ok := msg.(*TimestepMessage)
	if !ok || ts.Type != TypeTimestep || ts.Index != 1 || ts.ToNS != 33_333_333 {
		t.Fatalf("decoded %#v", msg)
	}

	if _, err := Encode(struct{}{}); err == nil {
		t.Fatal("encoding an unknown message should fail")
	}
	if _, err := Decode([]byte(`{"type":"bogus"}`)); err == nil {
		t.Fatal("decoding an unknown type should fail")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServerBroadcast(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", 8, time.Second, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve()
	defer srv.Shutdown(context.Background())

	url := "ws://" + srv.Addr().String() + StreamPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return srv.NumSessions() == 1 })

	data, err := Encode(&FrameMessage{
		Frame:  3,
		Bodies: []BodyPose{{Entity: 42, Position: [3]float64{1, 2, 3}, Rotation: [4]float64{1, 0, 0, 0}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n, err := srv.Broadcast(data); err != nil || n != 1 {
		t.Fatalf("Broadcast = %d, %v; want 1 subscriber", n, err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	frame, ok := msg.(*FrameMessage)
	if !ok || frame.Frame != 3 || len(frame.Bodies) != 1 || frame.Bodies[0].Entity != 42 {
		t.Fatalf("received %#v", msg)
	}

	conn.Close()
	waitFor(t, func() bool { return srv.NumSessions() == 0 })
}
