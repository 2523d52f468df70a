package category

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

// Repository implements port/category.CategoryRepository using Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) List(ctx context.Context) ([]domainprompt.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, color, icon, COALESCE(parent_id, ''), sort_order
		FROM categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	cats := []domainprompt.Category{}
	for rows.Next() {
		var c domainprompt.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.ParentID, &c.Order); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *Repository) Save(ctx context.Context, c domainprompt.Category) (domainprompt.Category, error) {
	query := `
		INSERT INTO categories (id, name, color, icon, parent_id, sort_order)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, color = EXCLUDED.color, icon = EXCLUDED.icon,
			parent_id = EXCLUDED.parent_id, sort_order = EXCLUDED.sort_order`

	if _, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.Color, c.Icon, c.ParentID, c.Order); err != nil {
		return domainprompt.Category{}, fmt.Errorf("upserting category: %w", err)
	}
	return c, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting category %s: %w", id, domainprompt.ErrCategoryNotFound)
	}
	return nil
}
