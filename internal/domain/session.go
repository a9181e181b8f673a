package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is a two-party conversational context created at the moment two
// profiles are paired. It always references two distinct participant ids.
type Session struct {
	ID        string    `json:"id"`
	User1ID   string    `json:"user1_id"`
	User2ID   string    `json:"user2_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

func NewSession(user1ID, user2ID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New().String(),
		User1ID:   user1ID,
		User2ID:   user2ID,
		Active:    true,
		CreatedAt: now,
		LastSeen:  now,
	}
}

// Includes reports whether the given participant belongs to the session.
func (s *Session) Includes(userID string) bool {
	return s.User1ID == userID || s.User2ID == userID
}

// PartnerOf returns the other participant of the session, or "" when the
// given id is not a participant.
func (s *Session) PartnerOf(userID string) string {
	switch userID {
	case s.User1ID:
		return s.User2ID
	case s.User2ID:
		return s.User1ID
	}
	return ""
}
