package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	promptsvc "github.com/alanyang/prompt-vault/internal/service/prompt"
)

// RegisterPrompts registers the use_prompt MCP native prompt.
// [SRP] Prompt registration only, separated from server lifecycle and tool definitions.
func RegisterPrompts(s *mcpserver.MCPServer, promptSvc *promptsvc.Service) {
	s.AddPrompt(
		mcpmcp.NewPrompt("use_prompt",
			mcpmcp.WithPromptDescription("Insert a stored prompt with its {{variables}} filled in. Counts as one use."),
			mcpmcp.WithArgument("id",
				mcpmcp.ArgumentDescription("Prompt UUID"),
				mcpmcp.RequiredArgument(),
			),
			mcpmcp.WithArgument("values",
				mcpmcp.ArgumentDescription(`JSON object of variable values, e.g. {"name": "Ada"}. Unfilled variables use their defaults.`),
			),
		),
		usePromptHandler(promptSvc),
	)
}

func usePromptHandler(promptSvc *promptsvc.Service) mcpserver.PromptHandlerFunc {
	return func(ctx context.Context, req mcpmcp.GetPromptRequest) (*mcpmcp.GetPromptResult, error) {
		id, err := uuid.Parse(req.Params.Arguments["id"])
		if err != nil {
			return nil, fmt.Errorf("invalid id: %w", err)
		}

		values := map[string]string{}
		if raw := req.Params.Arguments["values"]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &values); err != nil {
				return nil, fmt.Errorf("invalid values: %w", err)
			}
		}

		p, err := promptSvc.RecordUsage(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("use prompt %s: %w", id, err)
		}

		return mcpmcp.NewGetPromptResult(
			fmt.Sprintf("%s (%s)", p.Title, p.Version),
			[]mcpmcp.PromptMessage{
				mcpmcp.NewPromptMessage(
					mcpmcp.RoleUser,
					mcpmcp.TextContent{
						Type: "text",
						Text: domainprompt.Fill(p.Content, p.Variables, values),
					},
				),
			},
		), nil
	}
}
