package prompt

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("prompt not found")
	ErrVersionNotFound = errors.New("version not found")
	ErrInvalid         = errors.New("invalid prompt")
)

// Prompt is the mutable entity a user edits. Version always names the
// snapshot most recently appended to Versions.
type Prompt struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	Variables   []Variable `json:"variables"`
	Version     string     `json:"version"`
	Versions    []Version  `json:"versions"`
	Metadata    Metadata   `json:"metadata"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Version is an immutable snapshot of a prompt. Only Label may change after
// creation.
type Version struct {
	Version     string    `json:"version" yaml:"version"`
	Content     string    `json:"content" yaml:"content"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	Changes     string    `json:"changes,omitempty" yaml:"changes,omitempty"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
}

type Metadata struct {
	UsageCount int        `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	IsFavorite bool       `json:"is_favorite"`
	IsTemplate bool       `json:"is_template"`
	Author     string     `json:"author,omitempty"`
	Source     string     `json:"source,omitempty"`
}

// New builds a prompt carrying its initial v1.0.0 snapshot.
func New(title, content, description, category string, tags []string) Prompt {
	now := time.Now().UTC()
	if tags == nil {
		tags = []string{}
	}
	vars := ExtractVariables(content)
	return Prompt{
		ID:          uuid.New(),
		Title:       title,
		Content:     content,
		Description: description,
		Category:    category,
		Tags:        tags,
		Variables:   vars,
		Version:     InitialVersion,
		Versions: []Version{{
			Version:     InitialVersion,
			Content:     content,
			Title:       title,
			Description: description,
			CreatedAt:   now,
			Changes:     "Initial version",
		}},
		Metadata: Metadata{
			IsTemplate: len(vars) > 0,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers can mutate slices freely.
func (p Prompt) Clone() Prompt {
	out := p
	out.Tags = slices.Clone(p.Tags)
	out.Variables = slices.Clone(p.Variables)
	out.Versions = slices.Clone(p.Versions)
	if p.Metadata.LastUsedAt != nil {
		t := *p.Metadata.LastUsedAt
		out.Metadata.LastUsedAt = &t
	}
	return out
}

// FindVersion looks a snapshot up by exact version string.
func (p Prompt) FindVersion(version string) (Version, bool) {
	for _, v := range p.Versions {
		if v.Version == version {
			return v, true
		}
	}
	return Version{}, false
}

// Validate checks the history invariants a stored prompt must hold.
func Validate(p Prompt) error {
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if len(p.Versions) == 0 {
		return fmt.Errorf("%w: no versions", ErrInvalid)
	}
	if p.Versions[0].Version != InitialVersion {
		return fmt.Errorf("%w: first version is %s, want %s", ErrInvalid, p.Versions[0].Version, InitialVersion)
	}
	seen := make(map[string]bool, len(p.Versions))
	for _, v := range p.Versions {
		if !IsValidVersion(v.Version) {
			return fmt.Errorf("%w: malformed version %q", ErrInvalid, v.Version)
		}
		if seen[v.Version] {
			return fmt.Errorf("%w: duplicate version %s", ErrInvalid, v.Version)
		}
		seen[v.Version] = true
	}
	if !seen[p.Version] {
		return fmt.Errorf("%w: current version %s not in history", ErrInvalid, p.Version)
	}
	// The next edit bumps p.Version; that bump must not land on an existing
	// snapshot.
	if latest, _ := LatestVersion(p); latest.Version != p.Version {
		return fmt.Errorf("%w: current version %s is older than %s", ErrInvalid, p.Version, latest.Version)
	}
	return nil
}
