package prompt

import (
	"slices"
	"sort"
	"strings"
	"time"
)

type SortField string

const (
	SortCreatedAt  SortField = "created_at"
	SortUpdatedAt  SortField = "updated_at"
	SortUsageCount SortField = "usage_count"
	SortTitle      SortField = "title"
)

type ListFilters struct {
	Text       string
	Categories []string
	Tags       []string // any of
	From       *time.Time
	To         *time.Time
	Favorites  bool
	SortBy     SortField
	Descending bool
}

// Match reports whether p passes every filter. Text matching is
// case-insensitive over title, content, description and tags.
func (f ListFilters) Match(p Prompt) bool {
	if f.Text != "" {
		q := strings.ToLower(f.Text)
		hit := strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Content), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			slices.ContainsFunc(p.Tags, func(t string) bool {
				return strings.Contains(strings.ToLower(t), q)
			})
		if !hit {
			return false
		}
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, p.Category) {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, func(t string) bool { return slices.Contains(p.Tags, t) }) {
		return false
	}
	if f.From != nil && p.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && p.CreatedAt.After(*f.To) {
		return false
	}
	if f.Favorites && !p.Metadata.IsFavorite {
		return false
	}
	return true
}

// Sort orders prompts in place by f.SortBy. An empty SortBy leaves the order
// unchanged.
func (f ListFilters) Sort(prompts []Prompt) {
	var less func(a, b Prompt) bool
	switch f.SortBy {
	case SortCreatedAt:
		less = func(a, b Prompt) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortUpdatedAt:
		less = func(a, b Prompt) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case SortUsageCount:
		less = func(a, b Prompt) bool { return a.Metadata.UsageCount < b.Metadata.UsageCount }
	case SortTitle:
		less = func(a, b Prompt) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	default:
		return
	}
	sort.SliceStable(prompts, func(i, j int) bool {
		if f.Descending {
			return less(prompts[j], prompts[i])
		}
		return less(prompts[i], prompts[j])
	})
}
