package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/salonora/agenda/internal/model"
	"github.com/salonora/agenda/libs/db"
)

type BlockRepository struct {
	pool *db.Pool
}

func NewBlockRepository(pool *db.Pool) *BlockRepository {
	return &BlockRepository{pool: pool}
}

// Create inserts a block. Overlapping blocks are allowed; administrators
// stack them freely and the engine unions the result.
func (r *BlockRepository) Create(ctx context.Context, b *model.TimeBlock) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO time_blocks (date, start_minute, end_minute, reason, block_type, professional_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid)
		RETURNING id::text
	`, b.Date, b.StartMinute, b.EndMinute, b.Reason, string(b.Type), b.ProfessionalID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *BlockRepository) Update(ctx context.Context, b *model.TimeBlock) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_blocks
		SET date = $2,
			start_minute = $3,
			end_minute = $4,
			reason = $5,
			block_type = $6,
			professional_id = NULLIF($7, '')::uuid
		WHERE id = $1
	`, b.ID, b.Date, b.StartMinute, b.EndMinute, b.Reason, string(b.Type), b.ProfessionalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *BlockRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM time_blocks WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListByDate returns every block on the date, global and scoped alike; the
// engine decides which apply to a given professional.
func (r *BlockRepository) ListByDate(ctx context.Context, date string) ([]model.TimeBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, to_char(date, 'YYYY-MM-DD'), start_minute, end_minute, reason, block_type,
			COALESCE(professional_id::text, ''), created_at
		FROM time_blocks
		WHERE date = $1
		ORDER BY start_minute ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []model.TimeBlock
	for rows.Next() {
		var b model.TimeBlock
		var blockType string
		if err := rows.Scan(&b.ID, &b.Date, &b.StartMinute, &b.EndMinute, &b.Reason, &blockType, &b.ProfessionalID, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Type = model.BlockType(blockType)
		blocks = append(blocks, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return blocks, nil
}
