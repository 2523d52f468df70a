package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

const categoryNamespace = "categories"

type CategoryRepository struct {
	store *Store
}

func NewCategoryRepository(store *Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

func (r *CategoryRepository) List(ctx context.Context) ([]domainprompt.Category, error) {
	cats := []domainprompt.Category{}
	for _, data := range r.store.Values(ctx, categoryNamespace) {
		var c domainprompt.Category
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling category: %w", err)
		}
		cats = append(cats, c)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Order != cats[j].Order {
			return cats[i].Order < cats[j].Order
		}
		return cats[i].ID < cats[j].ID
	})
	return cats, nil
}

func (r *CategoryRepository) Save(ctx context.Context, c domainprompt.Category) (domainprompt.Category, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return domainprompt.Category{}, fmt.Errorf("marshaling category: %w", err)
	}
	if err := r.store.Set(ctx, categoryNamespace, c.ID, data, 0); err != nil {
		return domainprompt.Category{}, fmt.Errorf("saving category %s: %w", c.ID, err)
	}
	return c, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.store.Get(ctx, categoryNamespace, id); err != nil {
		return fmt.Errorf("deleting category %s: %w", id, domainprompt.ErrCategoryNotFound)
	}
	return r.store.Delete(ctx, categoryNamespace, id)
}
