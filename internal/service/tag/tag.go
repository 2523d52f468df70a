package tag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alanyang/prompt-vault/internal/domain/event"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	portbus "github.com/alanyang/prompt-vault/internal/port/eventbus"
	porttag "github.com/alanyang/prompt-vault/internal/port/tag"
)

// Service manages the tag registry. Prompts reference tags by name.
type Service struct {
	repo porttag.TagRepository
	bus  portbus.EventBus
}

func NewService(repo porttag.TagRepository, bus portbus.EventBus) *Service {
	return &Service{repo: repo, bus: bus}
}

// List returns every tag, most used first.
func (s *Service) List(ctx context.Context) ([]domainprompt.Tag, error) {
	tags, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	domainprompt.SortTags(tags)
	return tags, nil
}

// Save creates or replaces a tag. A tag without an ID gets a new one.
func (s *Service) Save(ctx context.Context, t domainprompt.Tag) (domainprompt.Tag, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return domainprompt.Tag{}, fmt.Errorf("save tag: %w: name is required", domainprompt.ErrInvalid)
	}
	if t.UsageCount < 0 {
		return domainprompt.Tag{}, fmt.Errorf("save tag: %w: usage count is negative", domainprompt.ErrInvalid)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	saved, err := s.repo.Save(ctx, t)
	if err != nil {
		return domainprompt.Tag{}, fmt.Errorf("save tag: %w", err)
	}
	s.publish(ctx, event.NewTag(event.TypeTagSaved, saved.ID))
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	s.publish(ctx, event.NewTag(event.TypeTagDeleted, id))
	return nil
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "type", e.Type, "entity_id", e.EntityID, "error", err)
	}
}
