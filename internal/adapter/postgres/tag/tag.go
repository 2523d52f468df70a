package tag

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

// Repository implements port/tag.TagRepository using Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) List(ctx context.Context) ([]domainprompt.Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, color, usage_count
		FROM tags ORDER BY usage_count DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	tags := []domainprompt.Tag{}
	for rows.Next() {
		var t domainprompt.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.UsageCount); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *Repository) Save(ctx context.Context, t domainprompt.Tag) (domainprompt.Tag, error) {
	query := `
		INSERT INTO tags (id, name, color, usage_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, color = EXCLUDED.color, usage_count = EXCLUDED.usage_count`

	if _, err := r.pool.Exec(ctx, query, t.ID, t.Name, t.Color, t.UsageCount); err != nil {
		return domainprompt.Tag{}, fmt.Errorf("upserting tag: %w", err)
	}
	return t, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting tag %s: %w", id, domainprompt.ErrTagNotFound)
	}
	return nil
}
