package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
)

// EmojificationRepositoryInterface defines operations for emojification history
type EmojificationRepositoryInterface interface {
	Create(ctx context.Context, e *domain.Emojification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Emojification, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Emojification, error)
}

var _ EmojificationRepositoryInterface = (*EmojificationRepository)(nil)
