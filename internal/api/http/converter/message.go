package converter

import (
	"time"

	"github.com/kindredspace/kindred/internal/domain"
)

type MessageResponse struct {
	ID        string   `json:"id"`
	SessionID string   `json:"session_id"`
	SenderID  string   `json:"sender_id"`
	Message   string   `json:"message"`
	Type      string   `json:"message_type"`
	Timestamp int64    `json:"timestamp"`
	ReadBy    []string `json:"read_by"`
}

func MessageToApi(m *domain.Message) MessageResponse {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return MessageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		SenderID:  m.SenderID,
		Message:   m.Body,
		Type:      string(m.Kind),
		Timestamp: m.Timestamp,
		ReadBy:    readBy,
	}
}

func MessagesToApi(messages []*domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageToApi(m))
	}
	return out
}

type EnvelopeResponse struct {
	FromUserID string    `json:"from_user_id"`
	SignalType string    `json:"signal_type"`
	SignalData string    `json:"signal_data"`
	Timestamp  time.Time `json:"timestamp"`
}

func EnvelopesToApi(envelopes []domain.Envelope) []EnvelopeResponse {
	out := make([]EnvelopeResponse, 0, len(envelopes))
	for _, e := range envelopes {
		out = append(out, EnvelopeResponse{
			FromUserID: e.FromUserID,
			SignalType: e.Kind,
			SignalData: e.Payload,
			Timestamp:  e.ReceivedAt,
		})
	}
	return out
}
