package prompt

import (
	"context"

	"github.com/google/uuid"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

// PromptRepository is the storage abstraction for prompts and their version
// history.
// [DIP] service/prompt depends on this interface, not on any concrete storage.
// [LSP] Postgres and key-value implementations are both valid substitutes.
type PromptRepository interface {
	// Create stores a new prompt together with its versions.
	Create(ctx context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error)

	// GetByID returns the prompt with versions in append order.
	// Returns an error wrapping domainprompt.ErrNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (domainprompt.Prompt, error)

	// List returns prompts passing the filters, ordered as requested.
	List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Prompt, error)

	// Update overwrites the prompt fields and appends any versions not yet
	// stored. Stored versions are immutable except for their label.
	Update(ctx context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error)

	// Delete removes the prompt and its whole history.
	Delete(ctx context.Context, id uuid.UUID) error
}
