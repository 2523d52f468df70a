package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

const promptNamespace = "prompts"

// PromptRepository implements port/prompt.PromptRepository on a Store.
// Prompts are kept as JSON, so every read returns an independent copy.
type PromptRepository struct {
	store *Store
}

func NewPromptRepository(store *Store) *PromptRepository {
	return &PromptRepository{store: store}
}

func (r *PromptRepository) Create(ctx context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("marshaling prompt: %w", err)
	}
	if !r.store.SetIfAbsent(ctx, promptNamespace, p.ID.String(), data, 0) {
		return domainprompt.Prompt{}, fmt.Errorf("creating prompt %s: already exists", p.ID)
	}
	return p, nil
}

func (r *PromptRepository) GetByID(ctx context.Context, id uuid.UUID) (domainprompt.Prompt, error) {
	data, err := r.store.Get(ctx, promptNamespace, id.String())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domainprompt.Prompt{}, fmt.Errorf("getting prompt %s: %w", id, domainprompt.ErrNotFound)
		}
		return domainprompt.Prompt{}, fmt.Errorf("getting prompt %s: %w", id, err)
	}
	return decodePrompt(data)
}

// List applies the filters in memory. Without a sort field the newest prompt
// comes first, matching the Postgres adapter.
func (r *PromptRepository) List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Prompt, error) {
	prompts := []domainprompt.Prompt{}
	for _, data := range r.store.Values(ctx, promptNamespace) {
		p, err := decodePrompt(data)
		if err != nil {
			return nil, err
		}
		if filters.Match(p) {
			prompts = append(prompts, p)
		}
	}

	if filters.SortBy == "" {
		filters.SortBy = domainprompt.SortCreatedAt
		filters.Descending = true
	}
	filters.Sort(prompts)
	return prompts, nil
}

// Update replaces the prompt fields. Stored versions keep their text; only
// their label follows the incoming prompt. Versions not stored yet are
// appended.
func (r *PromptRepository) Update(ctx context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
	current, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("updating prompt: %w", err)
	}

	merged := current.Versions
	stored := make(map[string]int, len(merged))
	for i, v := range merged {
		stored[v.Version] = i
	}
	for _, v := range p.Versions {
		if i, ok := stored[v.Version]; ok {
			merged[i].Label = v.Label
			continue
		}
		merged = append(merged, v)
	}
	p.Versions = merged

	data, err := json.Marshal(p)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("marshaling prompt: %w", err)
	}
	if err := r.store.Set(ctx, promptNamespace, p.ID.String(), data, 0); err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("updating prompt %s: %w", p.ID, err)
	}
	return p, nil
}

func (r *PromptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.store.Get(ctx, promptNamespace, id.String()); err != nil {
		return fmt.Errorf("deleting prompt %s: %w", id, domainprompt.ErrNotFound)
	}
	return r.store.Delete(ctx, promptNamespace, id.String())
}

func decodePrompt(data []byte) (domainprompt.Prompt, error) {
	var p domainprompt.Prompt
	if err := json.Unmarshal(data, &p); err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("unmarshaling prompt: %w", err)
	}
	return p, nil
}
