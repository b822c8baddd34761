package mcpapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	cogcontext "github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/enforcement"
	"github.com/linnix-systems/cognitod/internal/rules"
)

func handleGetStatus(store *cogcontext.Store) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := store.SystemSnapshot()
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
		}
		return newTextResult(string(data)), nil
	}
}

func handleGetAlerts(engine *rules.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := 20
		if v, ok := getArgs(request)["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}

		data, err := json.MarshalIndent(engine.RecentAlerts(limit), "", "  ")
		if err != nil {
			return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
		}
		return newTextResult(string(data)), nil
	}
}

func handleListActions(queue *enforcement.Queue) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, _ := getArgs(request)["status"].(string)

		all := queue.GetAll()
		if status != "" {
			filtered := make([]enforcement.EnforcementAction, 0, len(all))
			for _, a := range all {
				if string(a.Status) == status {
					filtered = append(filtered, a)
				}
			}
			all = filtered
		}

		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
		}
		return newTextResult(string(data)), nil
	}
}

// getArgs safely extracts the arguments map from a CallToolRequest,
// matching the teacher's internal/mcp helper of the same name.
func getArgs(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}
	}
	if m, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func newTextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
	}
}
