package prompt

import (
	"regexp"
	"strings"
)

type VariableType string

const (
	VariableText   VariableType = "text"
	VariableSelect VariableType = "select"
	VariableNumber VariableType = "number"
)

// Variable is a {{name}} placeholder in prompt content.
type Variable struct {
	Name         string       `json:"name"`
	Type         VariableType `json:"type"`
	Label        string       `json:"label"`
	DefaultValue string       `json:"default_value,omitempty"`
	Options      []string     `json:"options,omitempty"`
	Required     bool         `json:"required"`
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// ExtractVariables returns one text variable per distinct placeholder, in
// order of first appearance.
func ExtractVariables(content string) []Variable {
	vars := []Variable{}
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		vars = append(vars, Variable{
			Name:     name,
			Type:     VariableText,
			Label:    strings.ReplaceAll(name, "_", " "),
			Required: true,
		})
	}
	return vars
}

// Fill substitutes placeholders with values, falling back to each variable's
// default. Placeholders with neither are left in place.
func Fill(content string, vars []Variable, values map[string]string) string {
	defaults := make(map[string]string, len(vars))
	for _, v := range vars {
		defaults[v.Name] = v.DefaultValue
	}
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := values[name]; ok {
			return v
		}
		if d := defaults[name]; d != "" {
			return d
		}
		return match
	})
}
