// Package protocol defines the messages exchanged with clients over the
// websocket connection.
//
// Every frame is a JSON text message of the form
//
//	{"event": "<name>", "data": <payload>}
//
// Server to client events are join-snapshot, peer-update and peer-left.
// The only client to server event is self-update, whose payload is the
// sender's UserState. The sender's id is never read from a client frame.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/sharedspace/game/world"
)

// EventType names a message on the wire.
type EventType string

const (
	EventJoinSnapshot EventType = "join-snapshot"
	EventPeerUpdate   EventType = "peer-update"
	EventPeerLeft     EventType = "peer-left"
	EventSelfUpdate   EventType = "self-update"
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrUnknownEvent = errors.New("unknown event")
)

// Envelope is the outer shape of every frame.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinSnapshot is sent once to a new connection, before anything else.
type JoinSnapshot struct {
	SelfID string           `json:"selfId"`
	Users  world.WorldState `json:"users"`
}

// PeerUpdate carries the latest state of one peer, keyed by its id.
type PeerUpdate map[string]world.UserState

// PeerLeft announces that a peer disconnected.
type PeerLeft struct {
	ID string `json:"id"`
}

// EncodeJoinSnapshot builds the join-snapshot frame for selfID.
func EncodeJoinSnapshot(selfID string, users world.WorldState) ([]byte, error) {
	if users == nil {
		users = world.WorldState{}
	}
	return encode(EventJoinSnapshot, JoinSnapshot{SelfID: selfID, Users: users})
}

// EncodePeerUpdate builds a peer-update frame for a single peer.
func EncodePeerUpdate(id string, state world.UserState) ([]byte, error) {
	return encode(EventPeerUpdate, PeerUpdate{id: state})
}

// EncodePeerLeft builds a peer-left frame.
func EncodePeerLeft(id string) ([]byte, error) {
	return encode(EventPeerLeft, PeerLeft{ID: id})
}

func encode(event EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}
	return frame, nil
}

// DecodeSelfUpdate parses a client frame into the state it proposes.
// Frames that are not valid self-update messages return an error wrapping
// ErrMalformed or ErrUnknownEvent.
func DecodeSelfUpdate(frame []byte) (world.UserState, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return world.UserState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event != EventSelfUpdate {
		return world.UserState{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	if len(env.Data) == 0 {
		return world.UserState{}, fmt.Errorf("%w: missing data", ErrMalformed)
	}

	var payload struct {
		Position     *world.Vector3 `json:"position"`
		LastModified *float64       `json:"lastModified"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return world.UserState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Position == nil {
		return world.UserState{}, fmt.Errorf("%w: missing position", ErrMalformed)
	}
	if !payload.Position.IsFinite() {
		return world.UserState{}, fmt.Errorf("%w: non-finite position", ErrMalformed)
	}

	state := world.UserState{Position: *payload.Position}
	if payload.LastModified != nil {
		state.LastModified = *payload.LastModified
	}
	return state, nil
}

// Decode parses any frame into its envelope. Used by clients such as the
// bot swarm to dispatch server events.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", ErrMalformed)
	}
	return env, nil
}

// EncodeSelfUpdate builds a client self-update frame.
func EncodeSelfUpdate(state world.UserState) ([]byte, error) {
	return encode(EventSelfUpdate, state)
}
