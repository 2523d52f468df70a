package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

// Repository implements port/prompt.PromptRepository using Postgres.
// [LSP] Any conforming PromptRepository (in-memory, file-based) can substitute.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const promptColumns = `id, title, content, description, category, tags, variables, version,
	usage_count, last_used_at, is_favorite, is_template, author, source, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
	vars, err := json.Marshal(p.Variables)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("marshaling variables: %w", err)
	}

	var created domainprompt.Prompt
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO prompts (` + promptColumns + `)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
		_, err := tx.Exec(ctx, query,
			p.ID, p.Title, p.Content, p.Description, p.Category, nonNilTags(p.Tags), vars, p.Version,
			p.Metadata.UsageCount, p.Metadata.LastUsedAt, p.Metadata.IsFavorite, p.Metadata.IsTemplate,
			p.Metadata.Author, p.Metadata.Source, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting prompt: %w", err)
		}
		if err := upsertVersions(ctx, tx, p.ID, p.Versions); err != nil {
			return err
		}
		created, err = get(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return domainprompt.Prompt{}, err
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domainprompt.Prompt, error) {
	return get(ctx, r.pool, id)
}

var sortColumns = map[domainprompt.SortField]string{
	domainprompt.SortCreatedAt:  "created_at",
	domainprompt.SortUpdatedAt:  "updated_at",
	domainprompt.SortUsageCount: "usage_count",
	domainprompt.SortTitle:      "LOWER(title)",
}

func (r *Repository) List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filters.Text != "" {
		query += fmt.Sprintf(` AND (title ILIKE $%[1]d OR content ILIKE $%[1]d OR description ILIKE $%[1]d
			OR array_to_string(tags, ' ') ILIKE $%[1]d)`, argIdx)
		args = append(args, "%"+escapeLike(filters.Text)+"%")
		argIdx++
	}
	if len(filters.Categories) > 0 {
		query += fmt.Sprintf(" AND category = ANY($%d)", argIdx)
		args = append(args, filters.Categories)
		argIdx++
	}
	if len(filters.Tags) > 0 {
		query += fmt.Sprintf(" AND tags && $%d", argIdx)
		args = append(args, filters.Tags)
		argIdx++
	}
	if filters.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filters.From)
		argIdx++
	}
	if filters.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filters.To)
		argIdx++
	}
	if filters.Favorites {
		query += " AND is_favorite"
	}

	if col, ok := sortColumns[filters.SortBy]; ok {
		dir := "ASC"
		if filters.Descending {
			dir = "DESC"
		}
		query += " ORDER BY " + col + " " + dir + ", id"
	} else {
		query += " ORDER BY created_at DESC, id"
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	prompts := []domainprompt.Prompt{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[p.ID] = len(prompts)
		prompts = append(prompts, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	if len(prompts) == 0 {
		return prompts, nil
	}

	ids := make([]uuid.UUID, 0, len(prompts))
	for _, p := range prompts {
		ids = append(ids, p.ID)
	}
	vrows, err := r.pool.Query(ctx, `
		SELECT prompt_id, version, title, content, description, changes, label, created_at
		FROM prompt_versions WHERE prompt_id = ANY($1) ORDER BY prompt_id, seq`, ids)
	if err != nil {
		return nil, fmt.Errorf("listing prompt versions: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var promptID uuid.UUID
		var v domainprompt.Version
		if err := vrows.Scan(&promptID, &v.Version, &v.Title, &v.Content, &v.Description, &v.Changes, &v.Label, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning prompt version row: %w", err)
		}
		i := index[promptID]
		prompts[i].Versions = append(prompts[i].Versions, v)
	}
	return prompts, vrows.Err()
}

// Update overwrites the prompt row and upserts its versions. A version that
// is already stored only has its label updated.
func (r *Repository) Update(ctx context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
	vars, err := json.Marshal(p.Variables)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("marshaling variables: %w", err)
	}

	var updated domainprompt.Prompt
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE prompts SET title = $2, content = $3, description = $4, category = $5,
				tags = $6, variables = $7, version = $8, usage_count = $9, last_used_at = $10,
				is_favorite = $11, is_template = $12, author = $13, source = $14, updated_at = $15
			WHERE id = $1`
		tag, err := tx.Exec(ctx, query,
			p.ID, p.Title, p.Content, p.Description, p.Category, nonNilTags(p.Tags), vars, p.Version,
			p.Metadata.UsageCount, p.Metadata.LastUsedAt, p.Metadata.IsFavorite, p.Metadata.IsTemplate,
			p.Metadata.Author, p.Metadata.Source, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("updating prompt: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("updating prompt %s: %w", p.ID, domainprompt.ErrNotFound)
		}
		if err := upsertVersions(ctx, tx, p.ID, p.Versions); err != nil {
			return err
		}
		updated, err = get(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return domainprompt.Prompt{}, err
	}
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting prompt %s: %w", id, domainprompt.ErrNotFound)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func get(ctx context.Context, q querier, id uuid.UUID) (domainprompt.Prompt, error) {
	row := q.QueryRow(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id = $1`, id)
	p, err := scanPrompt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainprompt.Prompt{}, fmt.Errorf("prompt %s: %w", id, domainprompt.ErrNotFound)
		}
		return domainprompt.Prompt{}, err
	}

	rows, err := q.Query(ctx, `
		SELECT version, title, content, description, changes, label, created_at
		FROM prompt_versions WHERE prompt_id = $1 ORDER BY seq`, id)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("querying prompt versions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v domainprompt.Version
		if err := rows.Scan(&v.Version, &v.Title, &v.Content, &v.Description, &v.Changes, &v.Label, &v.CreatedAt); err != nil {
			return domainprompt.Prompt{}, fmt.Errorf("scanning prompt version row: %w", err)
		}
		p.Versions = append(p.Versions, v)
	}
	return p, rows.Err()
}

// upsertVersions appends unseen versions after the highest stored seq and
// refreshes labels on the rest.
func upsertVersions(ctx context.Context, tx pgx.Tx, promptID uuid.UUID, versions []domainprompt.Version) error {
	query := `
		INSERT INTO prompt_versions (prompt_id, seq, version, title, content, description, changes, label, created_at)
		VALUES ($1, (SELECT COALESCE(MAX(seq), -1) + 1 FROM prompt_versions WHERE prompt_id = $1),
			$2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (prompt_id, version) DO UPDATE SET label = EXCLUDED.label`

	for _, v := range versions {
		_, err := tx.Exec(ctx, query,
			promptID, v.Version, v.Title, v.Content, v.Description, v.Changes, v.Label, v.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting version %s: %w", v.Version, err)
		}
	}
	return nil
}

func scanPrompt(row pgx.Row) (domainprompt.Prompt, error) {
	var p domainprompt.Prompt
	var vars []byte
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.Description, &p.Category, &p.Tags, &vars, &p.Version,
		&p.Metadata.UsageCount, &p.Metadata.LastUsedAt, &p.Metadata.IsFavorite, &p.Metadata.IsTemplate,
		&p.Metadata.Author, &p.Metadata.Source, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainprompt.Prompt{}, err
		}
		return domainprompt.Prompt{}, fmt.Errorf("scanning prompt row: %w", err)
	}
	if err := json.Unmarshal(vars, &p.Variables); err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("unmarshaling variables: %w", err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
