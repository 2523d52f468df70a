package memory

import (
	"context"
	"encoding/json"
	"fmt"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

const tagNamespace = "tags"

type TagRepository struct {
	store *Store
}

func NewTagRepository(store *Store) *TagRepository {
	return &TagRepository{store: store}
}

// List returns every tag, most used first.
func (r *TagRepository) List(ctx context.Context) ([]domainprompt.Tag, error) {
	tags := []domainprompt.Tag{}
	for _, data := range r.store.Values(ctx, tagNamespace) {
		var t domainprompt.Tag
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("unmarshaling tag: %w", err)
		}
		tags = append(tags, t)
	}
	domainprompt.SortTags(tags)
	return tags, nil
}

func (r *TagRepository) Save(ctx context.Context, t domainprompt.Tag) (domainprompt.Tag, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return domainprompt.Tag{}, fmt.Errorf("marshaling tag: %w", err)
	}
	if err := r.store.Set(ctx, tagNamespace, t.ID, data, 0); err != nil {
		return domainprompt.Tag{}, fmt.Errorf("saving tag %s: %w", t.ID, err)
	}
	return t, nil
}

func (r *TagRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.store.Get(ctx, tagNamespace, id); err != nil {
		return fmt.Errorf("deleting tag %s: %w", id, domainprompt.ErrTagNotFound)
	}
	return r.store.Delete(ctx, tagNamespace, id)
}
