package domain

import "time"

const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "ice-candidate"
)

// Envelope is a single pending signaling payload waiting in a recipient's
// mailbox. The payload is an opaque JSON string produced by the caller's
// call-setup stack; the relay never inspects it.
type Envelope struct {
	FromUserID string    `json:"from_user_id"`
	Kind       string    `json:"signal_type"`
	Payload    string    `json:"signal_data"`
	ReceivedAt time.Time `json:"timestamp"`
}
