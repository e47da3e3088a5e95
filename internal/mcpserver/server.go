// Package mcpserver exposes the capability registry and the decision loop as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Gurpartap/jiraagent/tooling/registry"
	"github.com/Gurpartap/jiraagent/tracker/jira"
)

const (
	serverName    = "jira-agent"
	AskToolName   = "ask"
	refinementArg = "refinement"
	taskArg       = "task"
)

var ErrMissingRegistry = errors.New("missing capability registry")

// Answerer runs one natural-language task through the decision loop.
type Answerer interface {
	Answer(ctx context.Context, task string) (string, error)
}

// New builds an MCP server with one tool per capability, plus ask when answerer is set.
func New(capabilities *registry.Registry, answerer Answerer, version string) (*server.MCPServer, error) {
	if capabilities == nil {
		return nil, ErrMissingRegistry
	}

	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, capability := range capabilities.List() {
		tool := NewCapabilityTool(capabilities, capability)
		s.AddTool(tool.Definition(), tool.Handle)
	}
	if answerer != nil {
		tool := NewAskTool(answerer)
		s.AddTool(tool.Definition(), tool.Handle)
	}
	return s, nil
}

const instructions = "Read-only access to Jira issues. " +
	"Call a capability tool to list issues for one fixed filter, optionally narrowed by free text, " +
	"or call ask with a natural-language task to let the agent choose."

// CapabilityTool serves one registry capability.
type CapabilityTool struct {
	registry   *registry.Registry
	capability registry.Capability
}

func NewCapabilityTool(r *registry.Registry, capability registry.Capability) *CapabilityTool {
	return &CapabilityTool{registry: r, capability: capability}
}

func (t *CapabilityTool) Definition() mcp.Tool {
	return mcp.NewTool(t.capability.Name(),
		mcp.WithDescription(t.capability.Description),
		mcp.WithString(refinementArg,
			mcp.Description("Optional free text; only issues whose text matches are returned."),
		),
	)
}

func (t *CapabilityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refinement := req.GetString(refinementArg, "")
	if refinement == "" {
		observation, err := t.capability.Invoke(ctx, "")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return textResult(observation), nil
	}

	records, err := t.registry.Query(ctx, t.capability.ID, refinement)
	if err != nil {
		return mcp.NewToolResultError(registry.ErrorObservationPrefix + err.Error()), nil
	}
	return mcp.NewToolResultText(jira.Render(records)), nil
}

// AskTool runs a whole task and returns the final answer.
type AskTool struct {
	answerer Answerer
}

func NewAskTool(answerer Answerer) *AskTool {
	return &AskTool{answerer: answerer}
}

func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool(AskToolName,
		mcp.WithDescription("Answer a natural-language question about Jira issues."),
		mcp.WithString(taskArg,
			mcp.Required(),
			mcp.Description("The question, e.g. \"show me unresolved issues\"."),
		),
	)
}

func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := req.GetString(taskArg, "")
	if task == "" {
		return mcp.NewToolResultError("'task' is required"), nil
	}
	answer, err := t.answerer.Answer(ctx, task)
	if err != nil {
		return mcp.NewToolResultError("❌ Error: " + err.Error()), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func textResult(observation string) *mcp.CallToolResult {
	if strings.HasPrefix(observation, registry.ErrorObservationPrefix) {
		return mcp.NewToolResultError(observation)
	}
	return mcp.NewToolResultText(observation)
}

// Serve runs the server over stdio until the input closes.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
