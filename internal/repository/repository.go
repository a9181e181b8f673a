package repository

import (
	"context"

	"github.com/kindredspace/kindred/internal/domain"
)

// SessionRepository is the best-effort durable record of chat sessions. The
// in-memory registry stays authoritative for the live path; repository
// failures are logged by the registry, never propagated to callers.
type SessionRepository interface {
	Save(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListActive(ctx context.Context) ([]*domain.Session, error)
	Delete(ctx context.Context, id string) error
}
