package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chengzr01/jobscout/internal/session"
	"github.com/chengzr01/jobscout/internal/storage"
)

// mcpIdentity is the session identity used for turns initiated over MCP.
// All MCP clients share one dialogue.
const mcpIdentity = "mcp"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Registry *session.Registry
}

// NewMCPServer creates an MCP server with the job-search tools and catalog
// resource registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"jobscout",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("jobscout — conversational job search over a local catalog of crawled listings."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_jobs",
			mcp.WithDescription("Search the local job catalog. Company and job title are required; level, location, and requirements narrow the results."),
			mcp.WithString("company", mcp.Description("Company name (exact, case-insensitive)"), mcp.Required()),
			mcp.WithString("job_title", mcp.Description("Job title substring"), mcp.Required()),
			mcp.WithString("level", mcp.Description("Seniority level")),
			mcp.WithString("location", mcp.Description("Location")),
			mcp.WithArray("requirements", mcp.Description("Requirement strings that must all appear verbatim")),
		),
		mcpSearchJobs(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_assistant",
			mcp.WithDescription("Send one message to the slot-filling assistant. Returns either a clarifying question or the matching jobs once the profile is complete."),
			mcp.WithString("input", mcp.Description("The user's message"), mcp.Required()),
		),
		mcpAskAssistant(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"jobscout://catalog",
			"Job Catalog",
			mcp.WithResourceDescription("Catalog statistics as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCatalog(deps),
	)

	return s
}

func mcpSearchJobs(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		company, err := req.RequireString("company")
		if err != nil {
			return mcpError("company is required"), nil
		}
		title, err := req.RequireString("job_title")
		if err != nil {
			return mcpError("job_title is required"), nil
		}

		jobs, err := deps.Store.FilterJobs(storage.Criteria{
			Corporate:    company,
			JobTitle:     title,
			Level:        req.GetString("level", ""),
			Location:     req.GetString("location", ""),
			Requirements: req.GetStringSlice("requirements", nil),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		b, err := json.Marshal(toPayload(jobs))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskAssistant(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := req.RequireString("input")
		if err != nil {
			return mcpError("input is required"), nil
		}

		sess, _ := deps.Registry.Open(mcpIdentity)
		result, err := sess.Controller.Respond(ctx, input)
		if err != nil {
			return mcpError(fmt.Sprintf("assistant failed: %v", err)), nil
		}

		if result.Query != nil {
			jobs, err := deps.Store.FilterJobs(criteriaFromQuery(result.Query))
			if err != nil {
				return mcpError(fmt.Sprintf("search failed: %v", err)), nil
			}
			b, err := json.Marshal(toPayload(jobs))
			if err != nil {
				return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
			}
			return mcpText(string(b)), nil
		}

		return mcpText(result.Reply), nil
	}
}

func mcpResourceCatalog(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		count, err := deps.Store.CountJobs()
		if err != nil {
			return nil, fmt.Errorf("failed to count jobs: %w", err)
		}

		b, err := json.Marshal(map[string]any{"jobs": count})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
