// Package mcpadapter exposes the rule pipeline as MCP tools so coding
// agents can call it over stdio. Only wiring lives here; the tools delegate
// straight to the inbound ports.
package mcpadapter

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/akozhevnikov/rule-assistant/internal/core/ports"
)

// Version is set at build time via ldflags.
var Version = "dev"

func New(assistant ports.RuleAssistant, searcher ports.DocumentSearcher) *server.MCPServer {
	s := server.NewMCPServer(
		"rule-assistant",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Tools for generating, explaining and improving Targetprocess automation rules backed by a documentation corpus."),
	)

	generate := newGenerateRuleTool(assistant)
	s.AddTool(generate.Definition(), generate.Handle)

	explain := newExplainRuleTool(assistant)
	s.AddTool(explain.Definition(), explain.Handle)

	improve := newImproveRuleTool(assistant)
	s.AddTool(improve.Definition(), improve.Handle)

	search := newSearchDocsTool(searcher)
	s.AddTool(search.Definition(), search.Handle)

	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
