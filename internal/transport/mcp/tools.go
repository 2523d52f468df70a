package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/alanyang/prompt-vault/internal/domain/diff"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	promptsvc "github.com/alanyang/prompt-vault/internal/service/prompt"
)

// RegisterTools registers all MCP tools on the server.
// [SRP] Tool registration only.
// [OCP] Add a new tool by adding a new AddTool call; server.go never changes.
func RegisterTools(s *mcpserver.MCPServer, promptSvc *promptsvc.Service) {
	s.AddTool(mcpmcp.NewTool("list_prompts",
		mcpmcp.WithDescription("Search the prompt library. Returns id, title, category, tags, version and usage count for each match, most used first."),
		mcpmcp.WithString("query", mcpmcp.Description("Case-insensitive text matched against title, content, description and tags")),
		mcpmcp.WithString("category", mcpmcp.Description("Category id, e.g. writing or coding")),
		mcpmcp.WithString("tag", mcpmcp.Description("Only prompts carrying this tag")),
		mcpmcp.WithBoolean("favorites", mcpmcp.Description("Only favorite prompts")),
	), listPromptsHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("get_prompt",
		mcpmcp.WithDescription("Returns a prompt with its variables and metadata. Pass version to read an older snapshot instead."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Prompt UUID")),
		mcpmcp.WithString("version", mcpmcp.Description("Snapshot version such as v1.2.0")),
	), getPromptHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("save_prompt",
		mcpmcp.WithDescription("Create a prompt, or edit one when id is given. Editing title, content or description records a new version; the bump size follows how much the text changed."),
		mcpmcp.WithString("id", mcpmcp.Description("Prompt UUID to edit. Omit to create.")),
		mcpmcp.WithString("title", mcpmcp.Description("Title, required on create")),
		mcpmcp.WithString("content", mcpmcp.Description("Prompt text. {{name}} placeholders become variables.")),
		mcpmcp.WithString("description", mcpmcp.Description("Short description")),
		mcpmcp.WithString("category", mcpmcp.Description("Category id")),
		mcpmcp.WithString("tags", mcpmcp.Description("Comma-separated tags")),
		mcpmcp.WithString("changes", mcpmcp.Description("Change note stored on the new version")),
	), savePromptHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("version_history",
		mcpmcp.WithDescription("Lists every version of a prompt, newest first, with change notes and labels."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Prompt UUID")),
	), versionHistoryHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("compare_versions",
		mcpmcp.WithDescription("Line diff between two versions of a prompt. Defaults to the current version against the one before it."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Prompt UUID")),
		mcpmcp.WithString("from", mcpmcp.Description("Older version")),
		mcpmcp.WithString("to", mcpmcp.Description("Newer version")),
	), compareVersionsHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("restore_version",
		mcpmcp.WithDescription("Make an older version current again. The restore is recorded as a new version; history is kept."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Prompt UUID")),
		mcpmcp.WithString("version", mcpmcp.Required(), mcpmcp.Description("Version to restore")),
	), restoreVersionHandler(promptSvc))
}

// ── Tool handlers ─────────────────────────────────────────────────────────

type promptSummary struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	Version    string    `json:"version"`
	UsageCount int       `json:"usage_count"`
	IsFavorite bool      `json:"is_favorite"`
}

func listPromptsHandler(promptSvc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		filters := domainprompt.ListFilters{
			Text:       mcpmcp.ParseString(req, "query", ""),
			Favorites:  mcpmcp.ParseBoolean(req, "favorites", false),
			SortBy:     domainprompt.SortUsageCount,
			Descending: true,
		}
		if c := mcpmcp.ParseString(req, "category", ""); c != "" {
			filters.Categories = []string{c}
		}
		if t := mcpmcp.ParseString(req, "tag", ""); t != "" {
			filters.Tags = []string{t}
		}

		prompts, err := promptSvc.List(ctx, filters)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}

		out := make([]promptSummary, 0, len(prompts))
		for _, p := range prompts {
			out = append(out, promptSummary{
				ID:         p.ID,
				Title:      p.Title,
				Category:   p.Category,
				Tags:       p.Tags,
				Version:    p.Version,
				UsageCount: p.Metadata.UsageCount,
				IsFavorite: p.Metadata.IsFavorite,
			})
		}
		return jsonResult(out), nil
	}
}

func getPromptHandler(promptSvc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id, err := uuid.Parse(mcpmcp.ParseString(req, "id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid id"), nil
		}

		p, err := promptSvc.Get(ctx, id)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}

		if version := mcpmcp.ParseString(req, "version", ""); version != "" {
			v, ok := p.FindVersion(version)
			if !ok {
				return mcpmcp.NewToolResultText(fmt.Sprintf("error: version %s not found", version)), nil
			}
			return jsonResult(v), nil
		}
		return jsonResult(p), nil
	}
}

func savePromptHandler(promptSvc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		idStr := mcpmcp.ParseString(req, "id", "")

		if idStr == "" {
			p, err := promptSvc.Create(ctx, promptsvc.NewPrompt{
				Title:       mcpmcp.ParseString(req, "title", ""),
				Content:     mcpmcp.ParseString(req, "content", ""),
				Description: mcpmcp.ParseString(req, "description", ""),
				Category:    mcpmcp.ParseString(req, "category", ""),
				Tags:        splitTags(mcpmcp.ParseString(req, "tags", "")),
				Source:      "mcp",
			})
			if err != nil {
				return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
			}
			return jsonResult(map[string]string{"id": p.ID.String(), "version": p.Version}), nil
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid id"), nil
		}

		edit := promptsvc.Edit{
			Title:       optString(req, "title"),
			Content:     optString(req, "content"),
			Description: optString(req, "description"),
			Category:    optString(req, "category"),
			Changes:     mcpmcp.ParseString(req, "changes", ""),
		}
		if tags := optString(req, "tags"); tags != nil {
			t := splitTags(*tags)
			edit.Tags = &t
		}

		p, err := promptSvc.Update(ctx, id, edit)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		return jsonResult(map[string]string{"id": p.ID.String(), "version": p.Version}), nil
	}
}

func versionHistoryHandler(promptSvc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id, err := uuid.Parse(mcpmcp.ParseString(req, "id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid id"), nil
		}

		versions, err := promptSvc.History(ctx, id)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		return jsonResult(versions), nil
	}
}

// compareVersionsHandler answers with a rendered diff rather than JSON; it
// reads better in a model's context window.
func compareVersionsHandler(promptSvc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id, err := uuid.Parse(mcpmcp.ParseString(req, "id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid id"), nil
		}

		cmp, err := promptSvc.Compare(ctx, id,
			mcpmcp.ParseString(req, "from", ""),
			mcpmcp.ParseString(req, "to", ""),
		)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}

		text := fmt.Sprintf("%s -> %s: +%d -%d (%d unchanged)\n%s",
			cmp.From.Version, cmp.To.Version,
			cmp.Stats.Added, cmp.Stats.Removed, cmp.Stats.Unchanged,
			diff.Render(cmp.Lines),
		)
		return mcpmcp.NewToolResultText(text), nil
	}
}

func restoreVersionHandler(promptSvc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id, err := uuid.Parse(mcpmcp.ParseString(req, "id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid id"), nil
		}
		version := mcpmcp.ParseString(req, "version", "")
		if version == "" {
			return mcpmcp.NewToolResultText("error: version is required"), nil
		}

		p, err := promptSvc.Restore(ctx, id, version)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		return jsonResult(map[string]string{"id": p.ID.String(), "version": p.Version}), nil
	}
}

// ── helpers ───────────────────────────────────────────────────────────────

func jsonResult(v any) *mcpmcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err))
	}
	return mcpmcp.NewToolResultText(string(data))
}

// optString distinguishes an absent argument from an empty one.
func optString(req mcpmcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
