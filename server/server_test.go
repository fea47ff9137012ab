package server

import (
	"encoding/json"
	"testing"

	"roadevo/sim"
	"roadevo/track"
)

func testTiles(t *testing.T) *track.TileMap {
	t.Helper()
	tiles, err := track.Parse([]string{
		"111",
		"302",
		"111",
	}, 40)
	if err != nil {
		t.Fatalf("parsing track: %v", err)
	}
	return tiles
}

func TestEncodeTrack(t *testing.T) {
	msg := encodeTrack(testTiles(t))
	if msg == nil {
		t.Fatal("expected a track message")
	}

	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("unmarshaling envelope: %v", err)
	}
	if env.Type != EventTrack {
		t.Errorf("expected type %q, got %q", EventTrack, env.Type)
	}

	var payload TrackPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	if payload.Rows != 3 || payload.Cols != 3 {
		t.Errorf("expected 3x3, got %dx%d", payload.Rows, payload.Cols)
	}
	if payload.CellSize != 40 {
		t.Errorf("expected cell size 40, got %f", payload.CellSize)
	}
	if payload.Tiles[1][0] != int(track.Spawn) || payload.Tiles[1][2] != int(track.Finish) {
		t.Errorf("tile kinds wrong: %v", payload.Tiles)
	}
	if payload.Tiles[0][0] != int(track.Wall) || payload.Tiles[1][1] != int(track.Road) {
		t.Errorf("tile kinds wrong: %v", payload.Tiles)
	}
}

func TestBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(testTiles(t))

	// No Run loop draining the channel; the buffered channel fills and
	// further frames must be dropped silently.
	for i := 0; i < 1000; i++ {
		hub.Broadcast(sim.Snapshot{Generation: 1, Frame: i})
	}
}

func TestSnapshotEnvelope(t *testing.T) {
	snap := sim.Snapshot{Generation: 3, Frame: 17, Alive: 5, Total: 30}
	msg := envelope(EventSnapshot, snap)
	if msg == nil {
		t.Fatal("expected a snapshot message")
	}

	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("unmarshaling envelope: %v", err)
	}
	var got sim.Snapshot
	if err := json.Unmarshal(env.Payload, &got); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	if got.Generation != 3 || got.Frame != 17 || got.Alive != 5 || got.Total != 30 {
		t.Errorf("snapshot round trip wrong: %+v", got)
	}
}
