package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageSystem MessageKind = "system"
	MessageJoined MessageKind = "user_connected"
	MessageLeft   MessageKind = "user_disconnected"
)

// Message is a single chat message inside a session. The embedding is attached
// asynchronously before archival, and only for text messages.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	SenderID  string      `json:"sender_id"`
	Body      string      `json:"message"`
	Kind      MessageKind `json:"message_type"`
	Timestamp int64       `json:"timestamp"`
	Embedding []float32   `json:"-"`
	ReadBy    []string    `json:"read_by"`
}

// NewMessage builds a message with the sender already in its own read-set.
func NewMessage(sessionID, senderID, body string, kind MessageKind) *Message {
	return &Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		SenderID:  senderID,
		Body:      body,
		Kind:      kind,
		Timestamp: time.Now().UTC().Unix(),
		ReadBy:    []string{senderID},
	}
}

// IsReadBy reports whether the participant is in the message's read-set.
func (m *Message) IsReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
