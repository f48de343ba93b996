package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventPong      Event = "pong"
	EventConnected Event = "connected"
	// EventActivity is used for feed messages that carry no "type" of their own.
	EventActivity Event = "activity"
)

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

type ConnectedResponse struct {
	Event   Event  `json:"event"`
	Channel string `json:"channel"`
}

// ActivityMessage wraps one event published on the activity channel. Data is
// forwarded verbatim.
type ActivityMessage struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}
