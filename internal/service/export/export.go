package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatYAML     Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts the format names plus the "md" and "yml" aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Item selects what to export for one prompt: the full history, or a single
// version snapshot.
type Item struct {
	Prompt         domainprompt.Prompt
	Version        string
	IncludeHistory bool
}

// Record is the exported shape of a prompt. Versions is only set when the
// history was requested.
type Record struct {
	ID          uuid.UUID              `json:"id" yaml:"id"`
	Title       string                 `json:"title" yaml:"title"`
	Content     string                 `json:"content" yaml:"content"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string                 `json:"category" yaml:"category"`
	Tags        []string               `json:"tags" yaml:"tags"`
	Version     string                 `json:"version" yaml:"version"`
	Versions    []domainprompt.Version `json:"versions,omitempty" yaml:"versions,omitempty"`
	CreatedAt   time.Time              `json:"created_at" yaml:"created_at"`
	UpdatedAt   *time.Time             `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

type Bundle struct {
	ExportedAt time.Time               `json:"exported_at" yaml:"exported_at"`
	Prompts    []Record                `json:"prompts" yaml:"prompts"`
	Categories []domainprompt.Category `json:"categories" yaml:"categories"`
	Tags       []domainprompt.Tag      `json:"tags" yaml:"tags"`
}

// File is an encoded export ready to be downloaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Prepare builds the bundle. A requested version that does not exist falls
// back to the prompt's current fields. Only categories and tags referenced
// by an exported prompt are kept; tags match on name.
func Prepare(items []Item, categories []domainprompt.Category, tags []domainprompt.Tag) Bundle {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, recordFor(item))
	}

	usedCategories := make(map[string]bool)
	usedTags := make(map[string]bool)
	for _, r := range records {
		usedCategories[r.Category] = true
		for _, name := range r.Tags {
			usedTags[name] = true
		}
	}

	relevantCategories := []domainprompt.Category{}
	for _, c := range categories {
		if usedCategories[c.ID] {
			relevantCategories = append(relevantCategories, c)
		}
	}
	relevantTags := []domainprompt.Tag{}
	for _, t := range tags {
		if usedTags[t.Name] {
			relevantTags = append(relevantTags, t)
		}
	}

	return Bundle{
		ExportedAt: time.Now().UTC(),
		Prompts:    records,
		Categories: relevantCategories,
		Tags:       relevantTags,
	}
}

func recordFor(item Item) Record {
	p := item.Prompt
	updated := p.UpdatedAt
	current := Record{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		Description: p.Description,
		Category:    p.Category,
		Tags:        slices.Clone(p.Tags),
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   &updated,
	}
	if item.IncludeHistory {
		current.Versions = slices.Clone(p.Versions)
		return current
	}

	target, ok := p.FindVersion(item.Version)
	if !ok {
		return current
	}
	return Record{
		ID:          p.ID,
		Title:       target.Title,
		Content:     target.Content,
		Description: target.Description,
		Category:    p.Category,
		Tags:        slices.Clone(p.Tags),
		Version:     target.Version,
		CreatedAt:   target.CreatedAt,
	}
}

// Encode serialises b in the given format.
func Encode(b Bundle, format Format) (File, error) {
	var (
		data        []byte
		err         error
		ext         string
		contentType string
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(b, "", "  ")
		ext, contentType = "json", "application/json"
	case FormatYAML:
		data, err = yaml.Marshal(b)
		ext, contentType = "yaml", "application/yaml"
	case FormatMarkdown:
		data = []byte(markdown(b))
		ext, contentType = "md", "text/markdown"
	case FormatCSV:
		data, err = csvBytes(b)
		ext, contentType = "csv", "text/csv"
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return File{}, fmt.Errorf("encode %s export: %w", format, err)
	}

	return File{
		Name:        fmt.Sprintf("prompt-vault-export-%s.%s", b.ExportedAt.Format(time.DateOnly), ext),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func markdown(b Bundle) string {
	var sb strings.Builder
	sb.WriteString("# Prompt Vault Export\n\n")
	fmt.Fprintf(&sb, "**Exported at:** %s\n", b.ExportedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "**Total items:** %d\n\n", len(b.Prompts))

	if len(b.Categories) > 0 {
		sb.WriteString("## Categories\n\n")
		for _, c := range b.Categories {
			fmt.Fprintf(&sb, "- **%s** (%s)\n", c.Name, c.ID)
		}
		sb.WriteString("\n")
	}

	if len(b.Tags) > 0 {
		sb.WriteString("## Tags\n\n")
		for _, t := range b.Tags {
			fmt.Fprintf(&sb, "- %s (used %d times)\n", t.Name, t.UsageCount)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Prompts\n\n")
	for i, r := range b.Prompts {
		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, r.Title)
		fmt.Fprintf(&sb, "**Version:** %s\n", r.Version)
		fmt.Fprintf(&sb, "**Category:** %s\n", r.Category)
		if len(r.Tags) > 0 {
			fmt.Fprintf(&sb, "**Tags:** %s\n", strings.Join(r.Tags, ", "))
		}
		if r.Description != "" {
			fmt.Fprintf(&sb, "**Description:** %s\n", r.Description)
		}
		fmt.Fprintf(&sb, "**Created:** %s\n\n", r.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "**Content:**\n\n```\n%s\n```\n\n", r.Content)

		if len(r.Versions) > 1 {
			sb.WriteString("**Version History:**\n\n")
			for _, v := range r.Versions {
				fmt.Fprintf(&sb, "- **%s** (%s)", v.Version, v.CreatedAt.Format(time.RFC3339))
				if v.Label != "" {
					fmt.Fprintf(&sb, " [%s]", v.Label)
				}
				if v.Changes != "" {
					fmt.Fprintf(&sb, ": %s", v.Changes)
				}
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("---\n\n")
	}
	return sb.String()
}

var csvHeader = []string{"ID", "Title", "Content", "Description", "Category", "Tags", "Version", "Created At"}

func csvBytes(b Bundle) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range b.Prompts {
		row := []string{
			r.ID.String(),
			r.Title,
			r.Content,
			r.Description,
			r.Category,
			strings.Join(r.Tags, "; "),
			r.Version,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Decode parses a JSON or YAML bundle produced by Encode.
func Decode(data []byte, format Format) (Bundle, error) {
	var b Bundle
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &b)
	case FormatYAML:
		err = yaml.Unmarshal(data, &b)
	default:
		return Bundle{}, fmt.Errorf("%w: cannot import %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Bundle{}, fmt.Errorf("decode %s bundle: %w", format, err)
	}
	return b, nil
}

// Prompt converts an imported record back into a prompt. A record exported
// without history gets a fresh v1.0.0 snapshot of its fields.
func (r Record) Prompt() domainprompt.Prompt {
	id := r.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	updated := r.CreatedAt
	if r.UpdatedAt != nil {
		updated = *r.UpdatedAt
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}

	p := domainprompt.Prompt{
		ID:          id,
		Title:       r.Title,
		Content:     r.Content,
		Description: r.Description,
		Category:    r.Category,
		Tags:        tags,
		Variables:   domainprompt.ExtractVariables(r.Content),
		Version:     r.Version,
		Versions:    slices.Clone(r.Versions),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   updated,
	}
	p.Metadata.IsTemplate = len(p.Variables) > 0

	if len(p.Versions) == 0 {
		p.Version = domainprompt.InitialVersion
		p.Versions = []domainprompt.Version{{
			Version:     domainprompt.InitialVersion,
			Content:     r.Content,
			Title:       r.Title,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
			Changes:     "Imported",
		}}
	}
	return p
}
