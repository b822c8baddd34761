// Package mcpapi exposes cognitod's read-only state (status, alerts,
// pending/recent enforcement actions) over the Model Context Protocol, so
// an AI agent can inspect the daemon the same way the teacher's internal/mcp
// lets an agent drive melisai. Grounded on internal/mcp/server.go's
// stdio-server wiring; only three read-only tools are registered, matching
// spec §6's read-only API surface (mutating the enforcement queue happens
// through the HTTP contract's approve/reject endpoints, not here).
package mcpapi

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	cogcontext "github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/enforcement"
	"github.com/linnix-systems/cognitod/internal/rules"
)

// Server wraps an MCP server bound to a running daemon's state.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer builds a Server with get_status, get_alerts, and list_actions
// registered against store, engine, and queue.
func NewServer(version string, store *cogcontext.Store, engine *rules.Engine, queue *enforcement.Queue) *Server {
	s := server.NewMCPServer("cognitod", version, server.WithLogging())
	registerTools(s, store, engine, queue)
	return &Server{mcpServer: s}
}

// Start runs the server in stdio mode (blocking), matching the teacher's
// Start(ctx).
func (s *Server) Start(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func registerTools(s *server.MCPServer, store *cogcontext.Store, engine *rules.Engine, queue *enforcement.Queue) {
	statusTool := mcp.NewTool("get_status",
		mcp.WithDescription("Current system snapshot: CPU/memory utilization, load average, and PSI pressure figures."),
	)
	s.AddTool(statusTool, handleGetStatus(store))

	alertsTool := mcp.NewTool("get_alerts",
		mcp.WithDescription("Recently fired rule alerts, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum alerts to return (default 20)"),
			mcp.DefaultNumber(20),
		),
	)
	s.AddTool(alertsTool, handleGetAlerts(engine))

	actionsTool := mcp.NewTool("list_actions",
		mcp.WithDescription("Enforcement queue contents: pending, approved, rejected, expired, and executed actions."),
		mcp.WithString("status",
			mcp.Description("Filter to one status: pending, approved, rejected, expired, executed. Omit for all."),
		),
	)
	s.AddTool(actionsTool, handleListActions(queue))
}
