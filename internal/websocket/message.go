package websocket

import (
	"encoding/json"
	"time"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewMessage encodes a message. Encoding only fails for payloads that
// cannot be represented in JSON, which callers never pass.
func NewMessage(action string, payload interface{}) []byte {
	b, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		b, _ = json.Marshal(Message{Action: "error", Payload: map[string]string{"error": err.Error()}})
	}
	return b
}

// NewErrorMessage creates an error message for a single client.
func NewErrorMessage(msg string) []byte {
	return NewMessage("error", map[string]string{"error": msg})
}

// NewPongMessage answers an application-level ping.
func NewPongMessage(now time.Time) []byte {
	return NewMessage("pong", map[string]string{"time": now.UTC().Format(time.RFC3339)})
}

// NewWelcomeMessage tells a freshly connected client what it is subscribed to.
func NewWelcomeMessage(recipeID string) []byte {
	scope := "global"
	if recipeID != "" {
		scope = "recipe"
	}
	return NewMessage("subscribed", map[string]string{"scope": scope, "recipe_id": recipeID})
}
