package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Connection State
// -----------------------------------------------------------------------------

// ConnectionState is the lifecycle state of the channel's single transport.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosing
)

// String returns the lower-case name of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// MarshalText lets the state appear by name in JSON payloads and logs.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time view of the channel.
type Status struct {
	State   ConnectionState `json:"state"`
	Attempt int             `json:"attempt"`
}

// -----------------------------------------------------------------------------
// Wire Envelope
// -----------------------------------------------------------------------------

// Errors returned by Decode.
var (
	ErrMissingType = errors.New("frame has no type")
)

// Message is the envelope exchanged in both directions.
// Treat it as immutable once constructed.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds a Message, marshaling payload unless it is already raw JSON.
// A nil payload becomes an empty object.
func NewMessage(msgType string, payload any) (Message, error) {
	if msgType == "" {
		return Message{}, ErrMissingType
	}

	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
		raw = json.RawMessage(`{}`)
	case json.RawMessage:
		raw = p
	case []byte:
		if !json.Valid(p) {
			return Message{}, fmt.Errorf("payload for %q is not valid JSON", msgType)
		}
		raw = json.RawMessage(p)
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return Message{}, fmt.Errorf("marshal %q payload: %w", msgType, err)
		}
		raw = data
	}

	return Message{Type: msgType, Payload: raw}, nil
}

// Encode returns the wire bytes for the message.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a wire frame. Frames that are not JSON objects or that carry
// no type are rejected.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	if msg.Type == "" {
		return Message{}, ErrMissingType
	}
	return msg, nil
}

// -----------------------------------------------------------------------------
// Control Message Types
// -----------------------------------------------------------------------------

// Reserved control types exchanged with the server.
const (
	TypePing            = "ping"
	TypePong            = "pong"
	TypeJoinRoom        = "join_room"
	TypeLeaveRoom       = "leave_room"
	TypeSubscribeExam   = "subscribe_exam"
	TypeUnsubscribeExam = "unsubscribe_exam"
)

// PingPayload is sent with every heartbeat probe.
type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// RoomPayload is the payload of join_room and leave_room.
type RoomPayload struct {
	RoomID string `json:"room_id"`
}

// ExamPayload is the payload of subscribe_exam and unsubscribe_exam.
type ExamPayload struct {
	ExamID string `json:"exam_id"`
}
