package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Actions sent to clients.
const (
	ActionPropertyCreated = "property.created"
	ActionPropertyUpdated = "property.updated"
	ActionPropertyDeleted = "property.deleted"
	ActionSubscribed      = "subscribed"
	ActionPong            = "pong"
	ActionError           = "error"
)

// Encode marshals a message, logging instead of failing: every payload sent
// here is built from plain structs.
func Encode(action string, payload interface{}) []byte {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return nil
	}
	return data
}

// NewErrorMessage builds an error message for a single client.
func NewErrorMessage(message string) []byte {
	return Encode(ActionError, map[string]string{"error": message})
}
