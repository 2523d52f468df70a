package category

import (
	"context"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

// CategoryRepository manages category persistence.
// [DIP] service/category depends on this interface, not on a concrete storage.
type CategoryRepository interface {
	// List returns all categories ordered by Order.
	List(ctx context.Context) ([]domainprompt.Category, error)
	Save(ctx context.Context, c domainprompt.Category) (domainprompt.Category, error)
	Delete(ctx context.Context, id string) error
}
