package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/salonora/agenda/internal/model"
	"github.com/salonora/agenda/libs/db"
)

type ServiceRepository struct {
	pool *db.Pool
}

func NewServiceRepository(pool *db.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

func (r *ServiceRepository) Create(ctx context.Context, s *model.Service) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, name, duration_minutes, price_cents, category_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	`, id, s.Name, s.DurationMinutes, s.PriceCents, s.CategoryID)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ServiceRepository) List(ctx context.Context, limit int) ([]model.Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, duration_minutes, price_cents, COALESCE(category_id, ''), created_at
		FROM services
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.CategoryID, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// GetByIDs loads the selected services keyed by id. Missing ids are simply
// absent from the map; the aggregator reports them as unknown.
func (r *ServiceRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.Service, error) {
	if len(ids) == 0 {
		return map[string]model.Service{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, duration_minutes, price_cents, COALESCE(category_id, ''), created_at
		FROM services
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.Service, len(ids))
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.CategoryID, &s.CreatedAt); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
