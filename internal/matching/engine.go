// Package matching pairs anonymous participants by semantic similarity of
// their self-descriptions. A new arrival is scanned against the in-memory
// waiting queue first-fit; failing that, the remote index is only consulted as
// a signal and the arrival waits in the queue.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/internal/embedding"
	"github.com/kindredspace/kindred/lib/logger/sl"
)

// ProfileIndex is the remote similarity index as the engine sees it: store a
// profile for cross-request discovery, and list ranked candidates for one.
type ProfileIndex interface {
	StoreProfile(ctx context.Context, profile *domain.Profile) error
	SimilarProfiles(ctx context.Context, profile *domain.Profile, limit int) ([]Candidate, error)
}

// Sessions creates the session once a pair is decided.
type Sessions interface {
	Create(user1ID, user2ID string) (*domain.Session, error)
}

// SessionArchiver records the created session in the remote index so that
// history queries can later resolve a participant's sessions.
type SessionArchiver interface {
	SaveSession(ctx context.Context, session *domain.Session) error
}

// Candidate is a ranked remote match candidate.
type Candidate struct {
	ProfileID string
	Score     float64
}

// Result is the outcome of a match request: either a session with a partner,
// or the caller was queued.
type Result struct {
	Matched   bool
	SessionID string
	PartnerID string
	ProfileID string
}

const remoteCandidateLimit = 5

type Engine struct {
	embedder  embedding.Embedder
	index     ProfileIndex
	queue     *Queue
	sessions  Sessions
	archiver  SessionArchiver
	threshold float64
	log       *slog.Logger
}

func NewEngine(embedder embedding.Embedder, index ProfileIndex, queue *Queue, sessions Sessions, archiver SessionArchiver, threshold float64, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		embedder:  embedder,
		index:     index,
		queue:     queue,
		sessions:  sessions,
		archiver:  archiver,
		threshold: threshold,
		log:       log,
	}
}

// RequestMatch embeds the new profile, persists it for discovery, and tries
// to pair it against the waiting queue. The embedding call is the only step
// that can fail the request; everything after it degrades gracefully.
func (e *Engine) RequestMatch(ctx context.Context, description string, interests []string, ageRange string) (*Result, error) {
	const op = "matching.request"
	log := e.log.With(slog.String("op", op))

	profile := domain.NewProfile(description, interests, ageRange)

	text := strings.TrimSpace(description + " " + strings.Join(interests, " "))
	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed profile: %w", err)
	}
	profile.Embedding = vector

	// Best-effort: a failed index write degrades future discovery, it does
	// not abort this request.
	if err := e.index.StoreProfile(ctx, profile); err != nil {
		log.Warn("profile index write failed", slog.String("profile_id", profile.ID), sl.Err(err))
	}

	if partner := e.queue.TakeFirstAbove(profile.Embedding, e.threshold); partner != nil {
		session, err := e.sessions.Create(profile.ID, partner.ID)
		if err != nil {
			// The partner was already removed from the queue; put it back so
			// it is not lost to later arrivals.
			e.queue.Enqueue(partner)
			return nil, fmt.Errorf("create session: %w", err)
		}

		if e.archiver != nil {
			if err := e.archiver.SaveSession(ctx, session); err != nil {
				log.Warn("session index write failed", slog.String("session_id", session.ID), sl.Err(err))
			}
		}

		log.Info("pair matched",
			slog.String("session_id", session.ID),
			slog.String("profile_id", profile.ID),
			slog.String("partner_id", partner.ID),
		)
		return &Result{
			Matched:   true,
			SessionID: session.ID,
			PartnerID: partner.ID,
			ProfileID: profile.ID,
		}, nil
	}

	// Remote candidates are observed but deliberately not used to pair: the
	// candidate may have stopped waiting long ago, and only the live queue
	// can hand out partners exactly once.
	if candidates, err := e.index.SimilarProfiles(ctx, profile, remoteCandidateLimit); err != nil {
		log.Warn("remote candidate lookup failed", sl.Err(err))
	} else if len(candidates) > 0 {
		log.Info("remote candidates found, keeping caller queued",
			slog.String("profile_id", profile.ID),
			slog.Int("candidates", len(candidates)),
		)
	}

	e.queue.Enqueue(profile)

	return &Result{Matched: false, ProfileID: profile.ID}, nil
}
