package category

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/alanyang/prompt-vault/internal/domain/event"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	portcategory "github.com/alanyang/prompt-vault/internal/port/category"
	portbus "github.com/alanyang/prompt-vault/internal/port/eventbus"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Service manages the category list prompts are filed under.
// [SRP] Category bookkeeping only.
type Service struct {
	repo portcategory.CategoryRepository
	bus  portbus.EventBus
}

func NewService(repo portcategory.CategoryRepository, bus portbus.EventBus) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) List(ctx context.Context) ([]domainprompt.Category, error) {
	cats, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Save creates or replaces a category. IDs are lowercase slugs.
func (s *Service) Save(ctx context.Context, c domainprompt.Category) (domainprompt.Category, error) {
	if !slugPattern.MatchString(c.ID) {
		return domainprompt.Category{}, fmt.Errorf("save category: %w: id %q is not a slug", domainprompt.ErrInvalid, c.ID)
	}
	if c.Name == "" {
		return domainprompt.Category{}, fmt.Errorf("save category: %w: name is required", domainprompt.ErrInvalid)
	}

	saved, err := s.repo.Save(ctx, c)
	if err != nil {
		return domainprompt.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.publish(ctx, event.NewCategory(event.TypeCategorySaved, saved.ID))
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.publish(ctx, event.NewCategory(event.TypeCategoryDeleted, id))
	return nil
}

// SeedDefaults stores the default categories when none exist yet.
func (s *Service) SeedDefaults(ctx context.Context) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, c := range domainprompt.DefaultCategories {
		if _, err := s.repo.Save(ctx, c); err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	slog.InfoContext(ctx, "seeded default categories", "count", len(domainprompt.DefaultCategories))
	return nil
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "type", e.Type, "entity_id", e.EntityID, "error", err)
	}
}
