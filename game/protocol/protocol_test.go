package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/wricardo/mcp-training/sharedspace/game/world"
)

func TestEncodeJoinSnapshot(t *testing.T) {
	users := world.WorldState{
		"c1": {Position: world.Vector3{X: 1, Y: 0, Z: 2}, LastModified: 0},
	}

	frame, err := EncodeJoinSnapshot("c1", users)
	if err != nil {
		t.Fatalf("EncodeJoinSnapshot failed: %v", err)
	}

	var got struct {
		Event string       `json:"event"`
		Data  JoinSnapshot `json:"data"`
	}
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("Failed to unmarshal frame: %v", err)
	}

	if got.Event != string(EventJoinSnapshot) {
		t.Errorf("Expected event %s, got %s", EventJoinSnapshot, got.Event)
	}
	if got.Data.SelfID != "c1" {
		t.Errorf("Expected selfId c1, got %s", got.Data.SelfID)
	}
	if got.Data.Users["c1"] != users["c1"] {
		t.Errorf("Expected users[c1] = %+v, got %+v", users["c1"], got.Data.Users["c1"])
	}
}

func TestEncodeJoinSnapshot_NilUsersIsEmptyObject(t *testing.T) {
	frame, err := EncodeJoinSnapshot("c1", nil)
	if err != nil {
		t.Fatalf("EncodeJoinSnapshot failed: %v", err)
	}
	want := `{"event":"join-snapshot","data":{"selfId":"c1","users":{}}}`
	if string(frame) != want {
		t.Errorf("Expected %s, got %s", want, frame)
	}
}

func TestEncodePeerFrames(t *testing.T) {
	frame, err := EncodePeerUpdate("c1", world.UserState{Position: world.Vector3{X: 1}, LastModified: 50})
	if err != nil {
		t.Fatalf("EncodePeerUpdate failed: %v", err)
	}
	want := `{"event":"peer-update","data":{"c1":{"position":{"x":1,"y":0,"z":0},"lastModified":50}}}`
	if string(frame) != want {
		t.Errorf("Expected %s, got %s", want, frame)
	}

	frame, err = EncodePeerLeft("c1")
	if err != nil {
		t.Fatalf("EncodePeerLeft failed: %v", err)
	}
	want = `{"event":"peer-left","data":{"id":"c1"}}`
	if string(frame) != want {
		t.Errorf("Expected %s, got %s", want, frame)
	}
}

func TestDecodeSelfUpdate(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    world.UserState
		wantErr error
	}{
		{
			name:  "valid update",
			frame: `{"event":"self-update","data":{"position":{"x":1,"y":0,"z":0},"lastModified":50}}`,
			want:  world.UserState{Position: world.Vector3{X: 1}, LastModified: 50},
		},
		{
			name:  "embedded id is ignored",
			frame: `{"event":"self-update","data":{"id":"someone-else","position":{"x":2,"y":3,"z":4},"lastModified":7.5}}`,
			want:  world.UserState{Position: world.Vector3{X: 2, Y: 3, Z: 4}, LastModified: 7.5},
		},
		{
			name:  "missing lastModified defaults to zero",
			frame: `{"event":"self-update","data":{"position":{"x":1,"y":1,"z":1}}}`,
			want:  world.UserState{Position: world.Vector3{X: 1, Y: 1, Z: 1}},
		},
		{name: "not json", frame: `{{{`, wantErr: ErrMalformed},
		{name: "unknown event", frame: `{"event":"teleport","data":{}}`, wantErr: ErrUnknownEvent},
		{name: "missing data", frame: `{"event":"self-update"}`, wantErr: ErrMalformed},
		{name: "missing position", frame: `{"event":"self-update","data":{"lastModified":3}}`, wantErr: ErrMalformed},
		{name: "wrong type", frame: `{"event":"self-update","data":{"position":"here"}}`, wantErr: ErrMalformed},
		{name: "data is array", frame: `{"event":"self-update","data":[1,2,3]}`, wantErr: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSelfUpdate([]byte(tt.frame))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"event":"peer-left","data":{"id":"x"}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Event != EventPeerLeft {
		t.Errorf("Expected peer-left, got %s", env.Event)
	}

	if _, err := Decode([]byte(`{"data":{}}`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for missing event, got %v", err)
	}
}
