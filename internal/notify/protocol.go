package notify

import (
	"encoding/json"
	"time"
)

// MessageType identifies the kind of WebSocket message exchanged with
// notification clients.
type MessageType string

// Protocol message types.
const (
	MsgNotification MessageType = "notification"
	MsgSpeak        MessageType = "speak"
	MsgAction       MessageType = "action"
	MsgActionResult MessageType = "action_result"
	MsgHeartbeat    MessageType = "heartbeat"
	MsgHeartbeatAck MessageType = "heartbeat_ack"
	MsgError        MessageType = "error"
)

// Envelope is the wire format for all WebSocket messages.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// SpeakPayload carries text to be voiced by the client.
type SpeakPayload struct {
	Owner string `json:"owner"`
	Text  string `json:"text"`
}

// ActionResult answers an action message. Found is false when the
// reminder no longer exists.
type ActionResult struct {
	OK    bool   `json:"ok"`
	Found bool   `json:"found"`
	Error string `json:"error,omitempty"`
}
