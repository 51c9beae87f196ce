package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type EmojificationRepository struct {
	pool PgxPool
}

func NewEmojificationRepository(pool PgxPool) *EmojificationRepository {
	return &EmojificationRepository{pool: pool}
}

func (r *EmojificationRepository) Create(ctx context.Context, e *domain.Emojification) error {
	query := `
		INSERT INTO emojifications (id, image_sha256, provider, faces_count, expressions, width, height, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		e.ID,
		e.ImageSHA256,
		e.Provider,
		e.FacesCount,
		expressionStrings(e.Expressions),
		e.Width,
		e.Height,
		e.LatencyMs,
	).Scan(&e.CreatedAt)

	if err != nil {
		return fmt.Errorf("create emojification: %w", err)
	}

	return nil
}

func (r *EmojificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Emojification, error) {
	query := `
		SELECT id, image_sha256, provider, faces_count, expressions, width, height, latency_ms, created_at
		FROM emojifications
		WHERE id = $1
	`

	e, err := scanEmojification(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get emojification by id: %w", err)
	}

	return e, nil
}

// ListRecent returns the newest records first. limit is clamped to [1, 100].
func (r *EmojificationRepository) ListRecent(ctx context.Context, limit int) ([]domain.Emojification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, image_sha256, provider, faces_count, expressions, width, height, latency_ms, created_at
		FROM emojifications
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list emojifications: %w", err)
	}
	defer rows.Close()

	records := make([]domain.Emojification, 0, limit)
	for rows.Next() {
		e, err := scanEmojification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emojification: %w", err)
		}
		records = append(records, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emojifications: %w", err)
	}

	return records, nil
}

func scanEmojification(row pgx.Row) (*domain.Emojification, error) {
	var (
		e           domain.Emojification
		expressions []string
	)

	err := row.Scan(
		&e.ID,
		&e.ImageSHA256,
		&e.Provider,
		&e.FacesCount,
		&expressions,
		&e.Width,
		&e.Height,
		&e.LatencyMs,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Expressions = make([]domain.Expression, len(expressions))
	for i, s := range expressions {
		e.Expressions[i] = domain.Expression(s)
	}

	return &e, nil
}

func expressionStrings(expressions []domain.Expression) []string {
	out := make([]string, len(expressions))
	for i, e := range expressions {
		out[i] = string(e)
	}
	return out
}
