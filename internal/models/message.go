package models

import "encoding/json"

// MaxSequenceIndex is the largest sequence index a message container can carry.
const MaxSequenceIndex = 1<<16 - 1

// Message is one conversation record persisted as its own container.
type Message struct {
	ConversationID string          `json:"conversation_id"`
	Index          uint16          `json:"index"`
	Identity       string          `json:"identity,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	Force          bool            `json:"force,omitempty"`
}

// PayloadIdentity returns the top-level "id" string of a JSON object payload.
func PayloadIdentity(payload json.RawMessage) string {
	var probe struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	id, _ := probe.ID.(string)
	return id
}
