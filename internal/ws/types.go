package ws

import "resume_rewards/internal/domain"

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady = "ready"
	MsgPong  = "pong"
	MsgEvent = "event"
	MsgError = "error"
)

// Message is the envelope of every frame sent to a client.
type Message struct {
	Type  string              `json:"type"`
	Event *domain.LedgerEvent `json:"event,omitempty"`
	Error string              `json:"error,omitempty"`
}

type inbound struct {
	Type string `json:"type"`
}
