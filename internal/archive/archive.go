// Package archive persists messages and session records to the vector index,
// off the hot delivery path, and serves the history, search, unread, and
// read-state endpoints from it.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/internal/embedding"
	"github.com/kindredspace/kindred/internal/vectorindex"
)

const (
	MessagesCollection = "messages"
	SessionsCollection = "sessions"

	// SessionPageSize caps one history or unread listing.
	SessionPageSize = 100
)

var ErrMessageNotFound = errors.New("message not found")

// VectorIndex is the slice of the index client the archive needs; tests
// substitute a stub.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, name string, size int) error
	CreateFieldIndex(ctx context.Context, collection, field, schema string) error
	Upsert(ctx context.Context, collection string, points []vectorindex.Point) error
	Fetch(ctx context.Context, collection string, ids []string) ([]vectorindex.Record, error)
	Query(ctx context.Context, collection string, vector []float32, filter *vectorindex.Filter, limit int) ([]vectorindex.Record, error)
	Scroll(ctx context.Context, collection string, filter *vectorindex.Filter, limit int) ([]vectorindex.Record, error)
	Patch(ctx context.Context, collection, id string, payload map[string]any) error
}

type Store struct {
	index    VectorIndex
	embedder embedding.Embedder
	log      *slog.Logger
}

func NewStore(index VectorIndex, embedder embedding.Embedder, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{index: index, embedder: embedder, log: log}
}

// EnsureCollections creates the collections and payload indexes the archive
// and the pairing layers rely on. Safe to call on every startup.
func (s *Store) EnsureCollections(ctx context.Context) error {
	collections := []string{
		MessagesCollection,
		SessionsCollection,
		"chat_users",
		"voice_chat_users",
	}
	for _, name := range collections {
		if err := s.index.EnsureCollection(ctx, name, embedding.Dimensions); err != nil {
			return fmt.Errorf("ensure collection %s: %w", name, err)
		}
	}

	fields := map[string]string{
		"session_id": "keyword",
		"sender_id":  "keyword",
		"read_by":    "keyword",
		"timestamp":  "integer",
	}
	for field, schema := range fields {
		if err := s.index.CreateFieldIndex(ctx, MessagesCollection, field, schema); err != nil {
			return fmt.Errorf("index field %s: %w", field, err)
		}
	}
	return nil
}

// Save stores a message, attaching an embedding first for text messages.
// System messages get a zero vector; they are never search targets.
func (s *Store) Save(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if message.Kind == domain.MessageText && message.Embedding == nil {
		vector, err := s.embedder.Embed(ctx, message.Body)
		if err != nil {
			return nil, fmt.Errorf("embed message: %w", err)
		}
		message.Embedding = vector
	}

	vector := message.Embedding
	if vector == nil {
		vector = make([]float32, embedding.Dimensions)
	}

	point := vectorindex.Point{
		ID:     message.ID,
		Vector: vector,
		Payload: map[string]any{
			"session_id":   message.SessionID,
			"sender_id":    message.SenderID,
			"message":      message.Body,
			"timestamp":    message.Timestamp,
			"message_type": string(message.Kind),
			"read_by":      message.ReadBy,
		},
	}
	if err := s.index.Upsert(ctx, MessagesCollection, []vectorindex.Point{point}); err != nil {
		return nil, fmt.Errorf("archive message: %w", err)
	}
	return message, nil
}

// SaveSession records a session so SessionsFor can answer after a restart.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	point := vectorindex.Point{
		ID:     session.ID,
		Vector: make([]float32, embedding.Dimensions),
		Payload: map[string]any{
			"user1_id":   session.User1ID,
			"user2_id":   session.User2ID,
			"active":     session.Active,
			"created_at": session.CreatedAt.Unix(),
		},
	}
	return s.index.Upsert(ctx, SessionsCollection, []vectorindex.Point{point})
}

// ListForSession returns the session's messages ordered by arrival, capped at
// one page.
func (s *Store) ListForSession(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	filter := &vectorindex.Filter{
		Must: []vectorindex.Clause{
			vectorindex.MatchClause("session_id", sessionID),
		},
	}
	records, err := s.index.Scroll(ctx, MessagesCollection, filter, SessionPageSize)
	if err != nil {
		return nil, err
	}

	messages := recordsToMessages(records)
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
	return messages, nil
}

// Search ranks messages by similarity to the query, restricted to sessions
// the participant belongs to.
func (s *Store) Search(ctx context.Context, userID, query string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sessionIDs, err := s.SessionsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	filter := &vectorindex.Filter{
		Must: []vectorindex.Clause{sessionAnyOf(sessionIDs)},
	}
	records, err := s.index.Query(ctx, MessagesCollection, vector, filter, limit)
	if err != nil {
		return nil, err
	}
	return recordsToMessages(records), nil
}

// ListUnread returns messages in the participant's sessions that they did not
// author and have not read.
func (s *Store) ListUnread(ctx context.Context, userID string) ([]*domain.Message, error) {
	sessionIDs, err := s.SessionsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	filter := &vectorindex.Filter{
		Must: []vectorindex.Clause{sessionAnyOf(sessionIDs)},
		MustNot: []vectorindex.Clause{
			vectorindex.MatchClause("sender_id", userID),
			vectorindex.MatchClause("read_by", userID),
		},
	}
	records, err := s.index.Scroll(ctx, MessagesCollection, filter, SessionPageSize)
	if err != nil {
		return nil, err
	}

	messages := recordsToMessages(records)
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
	return messages, nil
}

// MarkRead adds the participant to each message's read-set. Re-marking an
// already-read message is a no-op.
func (s *Store) MarkRead(ctx context.Context, userID string, messageIDs []string) error {
	for _, messageID := range messageIDs {
		if err := s.markOneRead(ctx, userID, messageID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) markOneRead(ctx context.Context, userID, messageID string) error {
	records, err := s.index.Fetch(ctx, MessagesCollection, []string{messageID})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}

	readBy := stringSlice(records[0].Payload["read_by"])
	for _, id := range readBy {
		if id == userID {
			return nil
		}
	}
	readBy = append(readBy, userID)

	return s.index.Patch(ctx, MessagesCollection, messageID, map[string]any{
		"read_by": readBy,
	})
}

// SessionsFor lists ids of every session the participant is part of.
func (s *Store) SessionsFor(ctx context.Context, userID string) ([]string, error) {
	filter := &vectorindex.Filter{
		Should: []vectorindex.Clause{
			vectorindex.MatchClause("user1_id", userID),
			vectorindex.MatchClause("user2_id", userID),
		},
	}
	records, err := s.index.Scroll(ctx, SessionsCollection, filter, SessionPageSize)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids, nil
}

func sessionAnyOf(sessionIDs []string) vectorindex.Clause {
	clauses := make([]vectorindex.Clause, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		clauses = append(clauses, vectorindex.MatchClause("session_id", id))
	}
	return vectorindex.AnyOfClause(clauses...)
}

func recordsToMessages(records []vectorindex.Record) []*domain.Message {
	messages := make([]*domain.Message, 0, len(records))
	for _, record := range records {
		payload := record.Payload

		message := &domain.Message{
			ID:        record.ID,
			SessionID: asString(payload["session_id"]),
			SenderID:  asString(payload["sender_id"]),
			Body:      asString(payload["message"]),
			Kind:      domain.MessageKind(asString(payload["message_type"])),
			ReadBy:    stringSlice(payload["read_by"]),
		}
		switch ts := payload["timestamp"].(type) {
		case float64:
			message.Timestamp = int64(ts)
		case int64:
			message.Timestamp = ts
		}
		messages = append(messages, message)
	}
	return messages
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
