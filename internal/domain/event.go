package domain

const (
	EventChat  = "chat"
	EventJoin  = "join_session"
	EventLeave = "leave_session"
)

// Event is the JSON frame clients exchange over the real-time connection.
// Unknown types are logged and ignored, they never close the connection.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message,omitempty"`
}
