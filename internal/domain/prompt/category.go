package prompt

import "errors"

var ErrCategoryNotFound = errors.New("category not found")

type Category struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Color    string `json:"color" yaml:"color"`
	Icon     string `json:"icon,omitempty" yaml:"icon,omitempty"`
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Order    int    `json:"order" yaml:"order"`
}

// DefaultCategories are seeded into an empty store on first start.
var DefaultCategories = []Category{
	{ID: "writing", Name: "Writing", Color: "#2196F3", Icon: "edit", Order: 1},
	{ID: "coding", Name: "Coding", Color: "#4CAF50", Icon: "code", Order: 2},
	{ID: "analysis", Name: "Analysis", Color: "#FF9800", Icon: "analytics", Order: 3},
	{ID: "creative", Name: "Creative", Color: "#E91E63", Icon: "lightbulb", Order: 4},
	{ID: "business", Name: "Business", Color: "#9C27B0", Icon: "business", Order: 5},
	{ID: "academic", Name: "Academic", Color: "#607D8B", Icon: "school", Order: 6},
}
