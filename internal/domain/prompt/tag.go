package prompt

import (
	"cmp"
	"errors"
	"slices"
)

var ErrTagNotFound = errors.New("tag not found")

// Tag is a named label prompts refer to by Name.
type Tag struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Color      string `json:"color" yaml:"color"`
	UsageCount int    `json:"usage_count" yaml:"usage_count"`
}

// SortTags orders tags by usage, most used first, then by name.
func SortTags(tags []Tag) {
	slices.SortStableFunc(tags, func(a, b Tag) int {
		if c := cmp.Compare(b.UsageCount, a.UsageCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
