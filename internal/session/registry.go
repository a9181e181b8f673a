// Package session owns the set of active two-party chat sessions. The
// in-memory map is authoritative; every change is mirrored best-effort into a
// SessionRepository so a restart can report past sessions.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/internal/repository"
	"github.com/kindredspace/kindred/lib/logger/sl"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSameParticipant = errors.New("session requires two distinct participants")
)

type Registry struct {
	repo repository.SessionRepository
	log  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewRegistry(repo repository.SessionRepository, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		repo:     repo,
		log:      log,
		sessions: make(map[string]*domain.Session),
	}
}

// Create pairs two distinct participants into a fresh active session.
func (r *Registry) Create(user1ID, user2ID string) (*domain.Session, error) {
	if user1ID == "" || user2ID == "" {
		return nil, errors.New("participant id is required")
	}
	if user1ID == user2ID {
		return nil, ErrSameParticipant
	}

	session := domain.NewSession(user1ID, user2ID)

	r.mu.Lock()
	r.sessions[session.ID] = session
	copied := *session
	r.mu.Unlock()

	r.persist(copied)

	r.log.Info("session created",
		slog.String("session_id", copied.ID),
		slog.String("user1_id", user1ID),
		slog.String("user2_id", user2ID),
	)
	return &copied, nil
}

// Get returns a copy of the session; callers never share registry-owned
// state. On a live-map miss the repository is consulted, so sessions survive
// a restart.
func (r *Registry) Get(id string) (*domain.Session, error) {
	if session, err := r.snapshot(id); err == nil {
		return session, nil
	}
	return r.lookup(id)
}

// Touch records activity so the idle sweep keeps the session alive.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	if session, ok := r.sessions[id]; ok {
		session.LastSeen = time.Now().UTC()
	}
	r.mu.Unlock()
}

// Deactivate marks the session over. It stays queryable until the sweep
// removes it.
func (r *Registry) Deactivate(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	var copied domain.Session
	if ok {
		if session.Active {
			session.Active = false
			session.LastSeen = time.Now().UTC()
		}
		copied = *session
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	r.persist(copied)
	r.log.Info("session deactivated", slog.String("session_id", id))
	return nil
}

// Sweep drops sessions that have been idle longer than maxIdle, removes
// their durable record, and returns how many were removed. Intended to run on
// a fixed interval.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxIdle)

	r.mu.Lock()
	var expired []string
	for id, session := range r.sessions {
		if session.LastSeen.Before(cutoff) {
			expired = append(expired, id)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, id := range expired {
		r.drop(id)
	}

	if len(expired) > 0 {
		r.log.Info("idle sessions swept", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Rehydrate loads the still-active sessions from the repository into the live
// map, returning how many were restored. Called once at startup.
func (r *Registry) Rehydrate(ctx context.Context) (int, error) {
	if r.repo == nil {
		return 0, nil
	}

	sessions, err := r.repo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	for _, session := range sessions {
		if _, ok := r.sessions[session.ID]; ok {
			continue
		}
		copied := *session
		r.sessions[copied.ID] = &copied
	}
	r.mu.Unlock()

	return len(sessions), nil
}

func (r *Registry) snapshot(id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

// persist takes the session by value; callers snapshot under the registry
// lock so the write never races a concurrent Touch.
func (r *Registry) persist(session domain.Session) {
	if r.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.repo.Save(ctx, &session); err != nil {
		r.log.Warn("session persistence failed",
			slog.String("session_id", session.ID),
			sl.Err(err),
		)
	}
}

func (r *Registry) lookup(id string) (*domain.Session, error) {
	if r.repo == nil {
		return nil, ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := r.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			r.log.Warn("session lookup failed", slog.String("session_id", id), sl.Err(err))
		}
		return nil, ErrSessionNotFound
	}

	r.mu.Lock()
	if _, ok := r.sessions[id]; !ok {
		copied := *session
		r.sessions[id] = &copied
	}
	r.mu.Unlock()

	copied := *session
	return &copied, nil
}

func (r *Registry) drop(id string) {
	if r.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		r.log.Warn("session removal failed", slog.String("session_id", id), sl.Err(err))
	}
}
