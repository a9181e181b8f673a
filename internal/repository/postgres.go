package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/internal/repository/model"
)

type PostgresSessionRepository struct {
	db *gorm.DB
}

func NewPostgresSessionRepository(db *gorm.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return errors.New("session is nil")
	}

	sessionModel := toModelSession(session)

	return r.db.WithContext(ctx).Save(sessionModel).Error
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session model.Session
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return toDomainSession(&session), nil
}

func (r *PostgresSessionRepository) ListActive(ctx context.Context) ([]*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sessions []model.Session
	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&sessions).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Session, 0, len(sessions))
	for i := range sessions {
		result = append(result, toDomainSession(&sessions[i]))
	}

	return result, nil
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Delete(&model.Session{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func toModelSession(session *domain.Session) *model.Session {
	return &model.Session{
		ID:        session.ID,
		User1ID:   session.User1ID,
		User2ID:   session.User2ID,
		Active:    session.Active,
		CreatedAt: session.CreatedAt.UTC(),
		LastSeen:  session.LastSeen.UTC(),
	}
}

func toDomainSession(session *model.Session) *domain.Session {
	return &domain.Session{
		ID:        session.ID,
		User1ID:   session.User1ID,
		User2ID:   session.User2ID,
		Active:    session.Active,
		CreatedAt: session.CreatedAt.UTC(),
		LastSeen:  session.LastSeen.UTC(),
	}
}
