// Package voicechat registers participants by interest tags and finds the
// closest registered peer for call setup. Unlike text pairing there is no
// waiting queue: candidates come straight from the vector index.
package voicechat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kindredspace/kindred/internal/archive"
	"github.com/kindredspace/kindred/internal/embedding"
	"github.com/kindredspace/kindred/internal/vectorindex"
)

const Collection = "voice_chat_users"

const candidateLimit = 5

var ErrUserNotFound = errors.New("voice chat user not found")

// Match is the best candidate for a caller, or empty when nobody fits.
type Match struct {
	UserID string
	Tags   string
	Score  float64
}

type Service struct {
	index    archive.VectorIndex
	embedder embedding.Embedder
	log      *slog.Logger
}

func NewService(index archive.VectorIndex, embedder embedding.Embedder, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{index: index, embedder: embedder, log: log}
}

// Register stores the participant's tags and embedding and returns the new
// participant id.
func (s *Service) Register(ctx context.Context, tags string) (string, error) {
	if tags == "" {
		return "", errors.New("tags are required")
	}

	vector, err := s.embedder.Embed(ctx, tags)
	if err != nil {
		return "", fmt.Errorf("embed tags: %w", err)
	}

	userID := uuid.New().String()
	point := vectorindex.Point{
		ID:     userID,
		Vector: vector,
		Payload: map[string]any{
			"user_id":   userID,
			"tags":      tags,
			"timestamp": time.Now().UTC().Unix(),
		},
	}
	if err := s.index.Upsert(ctx, Collection, []vectorindex.Point{point}); err != nil {
		return "", fmt.Errorf("store voice chat user: %w", err)
	}

	s.log.Info("voice chat user registered", slog.String("user_id", userID))
	return userID, nil
}

// FindMatch looks up the caller's stored tags and returns the most similar
// other registered participant, or nil when none exists.
func (s *Service) FindMatch(ctx context.Context, userID string) (*Match, error) {
	records, err := s.index.Fetch(ctx, Collection, []string{userID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrUserNotFound
	}

	tags, _ := records[0].Payload["tags"].(string)
	if tags == "" {
		return nil, ErrUserNotFound
	}

	vector, err := s.embedder.Embed(ctx, tags)
	if err != nil {
		return nil, fmt.Errorf("embed tags: %w", err)
	}

	filter := &vectorindex.Filter{
		MustNot: []vectorindex.Clause{
			vectorindex.MatchClause("user_id", userID),
		},
	}
	candidates, err := s.index.Query(ctx, Collection, vector, filter, candidateLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	bestTags, _ := best.Payload["tags"].(string)
	bestID, _ := best.Payload["user_id"].(string)
	if bestID == "" {
		bestID = best.ID
	}

	return &Match{
		UserID: bestID,
		Tags:   bestTags,
		Score:  best.Score,
	}, nil
}
