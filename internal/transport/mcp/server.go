package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	promptsvc "github.com/alanyang/prompt-vault/internal/service/prompt"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// [SRP] HTTP server lifecycle only.
//
//	Tools are registered in tools.go, prompts in prompts.go.
//
// [OCP] Adding new tools or prompts never requires changes to this file.
type Server struct {
	mcpSrv  *mcpserver.MCPServer
	httpSrv *mcpserver.StreamableHTTPServer
}

// New creates the MCP transport server over the prompt service.
func New(promptSvc *promptsvc.Service, version string) *Server {
	mcpSrv := mcpserver.NewMCPServer(
		"prompt-vault",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	RegisterTools(mcpSrv, promptSvc)
	RegisterPrompts(mcpSrv, promptSvc)

	return &Server{
		mcpSrv:  mcpSrv,
		httpSrv: mcpserver.NewStreamableHTTPServer(mcpSrv),
	}
}

// Handler returns an http.Handler that serves the streamable HTTP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}
