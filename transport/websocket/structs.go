package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

// Message is one inbound or outbound websocket message: an action name
// and an action-specific payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	Token     string         `json:"token,omitempty"`
	Player    *entity.Player `json:"player,omitempty"`
	Game      *entity.Game   `json:"game,omitempty"`
	Edge      *entity.Edge   `json:"edge,omitempty"`
	Completed []entity.Box   `json:"completed,omitempty"`
	KeepsTurn bool           `json:"keeps_turn,omitempty"`
	Error     string         `json:"error,omitempty"`
}
