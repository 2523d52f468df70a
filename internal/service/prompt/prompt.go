package prompt

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/prompt-vault/internal/domain/diff"
	"github.com/alanyang/prompt-vault/internal/domain/event"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	"github.com/alanyang/prompt-vault/internal/metrics"
	portcategory "github.com/alanyang/prompt-vault/internal/port/category"
	portbus "github.com/alanyang/prompt-vault/internal/port/eventbus"
	portlocker "github.com/alanyang/prompt-vault/internal/port/locker"
	portprompt "github.com/alanyang/prompt-vault/internal/port/prompt"
	porttag "github.com/alanyang/prompt-vault/internal/port/tag"
	"github.com/alanyang/prompt-vault/internal/service/export"
)

// Service owns the prompt lifecycle: edits, version snapshots, restores and
// usage tracking.
// [SRP] Persistence orchestration only; versioning rules live in the domain.
// [DIP] Depends on ports, never on adapters or transport.
type Service struct {
	repo       portprompt.PromptRepository
	categories portcategory.CategoryRepository
	tags       porttag.TagRepository
	bus        portbus.EventBus
	locker     portlocker.AdvisoryLocker
	metrics    *metrics.Metrics
}

func NewService(
	repo portprompt.PromptRepository,
	categories portcategory.CategoryRepository,
	tags porttag.TagRepository,
	bus portbus.EventBus,
	locker portlocker.AdvisoryLocker,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		tags:       tags,
		bus:        bus,
		locker:     locker,
		metrics:    m,
	}
}

// NewPrompt carries the user-supplied fields of a prompt being created.
type NewPrompt struct {
	Title       string
	Content     string
	Description string
	Category    string
	Tags        []string
	Author      string
	Source      string
}

// Edit is a partial update. Nil fields are left untouched. Changes is the
// optional note stored on the version snapshot a text edit produces.
type Edit struct {
	Title       *string
	Content     *string
	Description *string
	Category    *string
	Tags        *[]string
	Changes     string
}

// Comparison is a line diff between two snapshots of one prompt.
type Comparison struct {
	From  domainprompt.Version `json:"from"`
	To    domainprompt.Version `json:"to"`
	Lines []diff.Line          `json:"lines"`
	Stats diff.Stats           `json:"stats"`
}

func (s *Service) Create(ctx context.Context, in NewPrompt) (domainprompt.Prompt, error) {
	if in.Title == "" {
		return domainprompt.Prompt{}, fmt.Errorf("create prompt: %w: title is required", domainprompt.ErrInvalid)
	}

	p := domainprompt.New(in.Title, in.Content, in.Description, in.Category, in.Tags)
	p.Metadata.Author = in.Author
	p.Metadata.Source = in.Source

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("create prompt: %w", err)
	}

	s.metrics.PromptCreated()
	s.publish(ctx, event.New(event.TypePromptCreated, created.ID))
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domainprompt.Prompt, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("get prompt: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Prompt, error) {
	prompts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return prompts, nil
}

// Update applies edit. A change to title, content or description appends a
// new version snapshot; category and tag edits do not.
func (s *Service) Update(ctx context.Context, id uuid.UUID, edit Edit) (domainprompt.Prompt, error) {
	var created *domainprompt.Version
	var changeType domainprompt.ChangeType

	updated, err := s.mutate(ctx, id, func(p *domainprompt.Prompt) error {
		textChanged := false
		if edit.Title != nil && *edit.Title != p.Title {
			if *edit.Title == "" {
				return fmt.Errorf("%w: title is required", domainprompt.ErrInvalid)
			}
			p.Title = *edit.Title
			textChanged = true
		}
		if edit.Content != nil && *edit.Content != p.Content {
			p.Content = *edit.Content
			textChanged = true
		}
		if edit.Description != nil && *edit.Description != p.Description {
			p.Description = *edit.Description
			textChanged = true
		}
		if edit.Category != nil {
			p.Category = *edit.Category
		}
		if edit.Tags != nil {
			p.Tags = *edit.Tags
			if p.Tags == nil {
				p.Tags = []string{}
			}
		}

		if textChanged {
			v, ct, err := appendVersion(p, edit.Changes)
			if err != nil {
				return err
			}
			created, changeType = &v, ct
		}
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("update prompt: %w", err)
	}

	s.publish(ctx, event.New(event.TypePromptUpdated, id))
	if created != nil {
		s.metrics.VersionCreated(changeType)
		s.publish(ctx, event.NewVersioned(event.TypeVersionCreated, id, created.Version))
	}
	return updated, nil
}

// Restore makes the named snapshot current again. History is never
// rewritten: the restored text is recorded as a new version bumped from the
// current one.
func (s *Service) Restore(ctx context.Context, id uuid.UUID, version string) (domainprompt.Prompt, error) {
	var next string
	var changeType domainprompt.ChangeType

	restored, err := s.mutate(ctx, id, func(p *domainprompt.Prompt) error {
		applied, err := domainprompt.ApplyVersion(*p, version)
		if err != nil {
			return err
		}
		// Bump from the current version, not the restored one.
		applied.Version = p.Version

		v, ct, err := appendVersion(&applied, fmt.Sprintf("Restored to version %s", version))
		if err != nil {
			return err
		}
		next, changeType = v.Version, ct
		*p = applied
		return nil
	})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("restore prompt: %w", err)
	}

	s.metrics.Restored()
	s.metrics.VersionCreated(changeType)
	s.publish(ctx, event.NewVersioned(event.TypePromptRestored, id, next))
	return restored, nil
}

// Label sets the label on one snapshot. An empty label clears it.
func (s *Service) Label(ctx context.Context, id uuid.UUID, version, label string) (domainprompt.Prompt, error) {
	labelled, err := s.mutate(ctx, id, func(p *domainprompt.Prompt) error {
		for i := range p.Versions {
			if p.Versions[i].Version == version {
				p.Versions[i].Label = label
				return nil
			}
		}
		return fmt.Errorf("label %s: %w", version, domainprompt.ErrVersionNotFound)
	})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("label version: %w", err)
	}

	s.publish(ctx, event.NewVersioned(event.TypeVersionLabelled, id, version))
	return labelled, nil
}

// History returns the snapshots newest semantic version first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]domainprompt.Version, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("version history: %w", err)
	}
	return domainprompt.VersionHistory(p), nil
}

func (s *Service) Latest(ctx context.Context, id uuid.UUID) (domainprompt.Version, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainprompt.Version{}, fmt.Errorf("latest version: %w", err)
	}
	v, ok := domainprompt.LatestVersion(p)
	if !ok {
		return domainprompt.Version{}, fmt.Errorf("latest version: %w", domainprompt.ErrVersionNotFound)
	}
	return v, nil
}

// Compare diffs two snapshots. An empty to means the current version; an
// empty from means the snapshot appended just before to.
func (s *Service) Compare(ctx context.Context, id uuid.UUID, from, to string) (Comparison, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Comparison{}, fmt.Errorf("compare versions: %w", err)
	}

	if to == "" {
		to = p.Version
	}
	target, ok := p.FindVersion(to)
	if !ok {
		return Comparison{}, fmt.Errorf("compare versions: %s: %w", to, domainprompt.ErrVersionNotFound)
	}
	if from == "" {
		from = predecessor(p.Versions, to)
	}
	base, ok := p.FindVersion(from)
	if !ok {
		return Comparison{}, fmt.Errorf("compare versions: %s: %w", from, domainprompt.ErrVersionNotFound)
	}

	lines := diff.Calculate(base.Content, target.Content)
	stats := diff.Summarize(lines)
	s.metrics.Diffed(stats)

	return Comparison{From: base, To: target, Lines: lines, Stats: stats}, nil
}

// RecordUsage counts a copy or insert of the prompt.
func (s *Service) RecordUsage(ctx context.Context, id uuid.UUID) (domainprompt.Prompt, error) {
	used, err := s.mutate(ctx, id, func(p *domainprompt.Prompt) error {
		now := time.Now().UTC()
		p.Metadata.UsageCount++
		p.Metadata.LastUsedAt = &now
		return nil
	})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("record usage: %w", err)
	}

	s.metrics.Used()
	s.publish(ctx, event.New(event.TypePromptUsed, id))
	return used, nil
}

func (s *Service) SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) (domainprompt.Prompt, error) {
	p, err := s.mutate(ctx, id, func(p *domainprompt.Prompt) error {
		p.Metadata.IsFavorite = favorite
		return nil
	})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("set favorite: %w", err)
	}

	s.publish(ctx, event.New(event.TypePromptUpdated, id))
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.locker.WithLock(ctx, lockKey(id), func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}

	s.publish(ctx, event.New(event.TypePromptDeleted, id))
	return nil
}

// ── Export / import ──────────────────────────────────────────────────────────

// ExportItem selects one prompt. An empty Version with IncludeHistory unset
// exports the current fields only.
type ExportItem struct {
	ID             uuid.UUID `json:"id"`
	Version        string    `json:"version,omitempty"`
	IncludeHistory bool      `json:"include_history"`
}

// ExportRequest with no items exports every prompt with its full history.
type ExportRequest struct {
	Items  []ExportItem  `json:"items"`
	Format export.Format `json:"format"`
}

func (s *Service) Export(ctx context.Context, req ExportRequest) (export.File, error) {
	var items []export.Item
	if len(req.Items) == 0 {
		all, err := s.repo.List(ctx, domainprompt.ListFilters{SortBy: domainprompt.SortCreatedAt})
		if err != nil {
			return export.File{}, fmt.Errorf("export prompts: %w", err)
		}
		for _, p := range all {
			items = append(items, export.Item{Prompt: p, IncludeHistory: true})
		}
	} else {
		for _, it := range req.Items {
			p, err := s.repo.GetByID(ctx, it.ID)
			if err != nil {
				return export.File{}, fmt.Errorf("export prompts: %w", err)
			}
			items = append(items, export.Item{Prompt: p, Version: it.Version, IncludeHistory: it.IncludeHistory})
		}
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return export.File{}, fmt.Errorf("export prompts: list categories: %w", err)
	}

	tags, err := s.tags.List(ctx)
	if err != nil {
		return export.File{}, fmt.Errorf("export prompts: list tags: %w", err)
	}

	f, err := export.Encode(export.Prepare(items, categories, tags), req.Format)
	if err != nil {
		return export.File{}, fmt.Errorf("export prompts: %w", err)
	}
	s.metrics.Exported(string(req.Format))
	return f, nil
}

type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Import stores the bundle's prompts, categories and tags. Prompts whose id
// already exists, or whose history is inconsistent, are skipped.
func (s *Service) Import(ctx context.Context, b export.Bundle) (ImportResult, error) {
	for _, c := range b.Categories {
		if _, err := s.categories.Save(ctx, c); err != nil {
			return ImportResult{}, fmt.Errorf("import category %s: %w", c.ID, err)
		}
	}
	for _, t := range b.Tags {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if _, err := s.tags.Save(ctx, t); err != nil {
			return ImportResult{}, fmt.Errorf("import tag %s: %w", t.Name, err)
		}
	}

	var res ImportResult
	for _, r := range b.Prompts {
		p := r.Prompt()
		if err := domainprompt.Validate(p); err != nil {
			slog.WarnContext(ctx, "skipping invalid imported prompt", "prompt_id", p.ID, "error", err)
			res.Skipped++
			continue
		}

		_, err := s.repo.GetByID(ctx, p.ID)
		switch {
		case err == nil:
			res.Skipped++
			continue
		case !errors.Is(err, domainprompt.ErrNotFound):
			return res, fmt.Errorf("import prompt %s: %w", p.ID, err)
		}

		if _, err := s.repo.Create(ctx, p); err != nil {
			return res, fmt.Errorf("import prompt %s: %w", p.ID, err)
		}
		res.Created++
		s.publish(ctx, event.New(event.TypePromptCreated, p.ID))
	}
	return res, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// mutate runs load, fn, save for one prompt under its advisory lock.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(p *domainprompt.Prompt) error) (domainprompt.Prompt, error) {
	var saved domainprompt.Prompt
	err := s.locker.WithLock(ctx, lockKey(id), func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		saved, err = s.repo.Update(ctx, p)
		return err
	})
	return saved, err
}

// appendVersion snapshots p, appends the snapshot and makes it current.
func appendVersion(p *domainprompt.Prompt, changes string) (domainprompt.Version, domainprompt.ChangeType, error) {
	v, changeType := domainprompt.ClassifyVersion(*p, changes)
	if _, dup := p.FindVersion(v.Version); dup {
		return domainprompt.Version{}, "", fmt.Errorf("%w: version %s already exists", domainprompt.ErrInvalid, v.Version)
	}
	p.Versions = append(p.Versions, v)
	p.Version = v.Version
	p.Variables = domainprompt.ExtractVariables(p.Content)
	p.Metadata.IsTemplate = len(p.Variables) > 0
	p.UpdatedAt = v.CreatedAt
	return v, changeType, nil
}

// predecessor returns the version appended just before version, or version
// itself when it is the first.
func predecessor(versions []domainprompt.Version, version string) string {
	for i, v := range versions {
		if v.Version == version && i > 0 {
			return versions[i-1].Version
		}
	}
	return version
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "type", e.Type, "entity_id", e.EntityID, "error", err)
	}
}

func lockKey(id uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("prompt"))
	h.Write(id[:])
	return int64(h.Sum64())
}
