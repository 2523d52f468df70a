package tag

import (
	"context"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

// TagRepository manages tag persistence.
type TagRepository interface {
	List(ctx context.Context) ([]domainprompt.Tag, error)
	// Save inserts or replaces the tag with t.ID.
	Save(ctx context.Context, t domainprompt.Tag) (domainprompt.Tag, error)
	Delete(ctx context.Context, id string) error
}
