// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes reconciliation-engine tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/taskvault/internal/scheduler"
	"github.com/starford/taskvault/internal/searchindex"
)

// Server wraps the MCP server with taskvault tools.
type Server struct {
	mcp   *server.MCPServer
	sched *scheduler.Scheduler
	idx   searchindex.Index
}

// New creates a new MCP server with every reconciliation tool registered.
func New(sched *scheduler.Scheduler, idx searchindex.Index) *Server {
	s := &Server{sched: sched, idx: idx}

	s.mcp = server.NewMCPServer(
		"TaskVault",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("trigger_sync",
		mcp.WithDescription("Request a reconciliation run between Todoist and the vault. "+
			"Returns immediately; poll get_last_sync_summary for the outcome."),
	), s.triggerSync)

	s.mcp.AddTool(mcp.NewTool("get_last_sync_summary",
		mcp.WithDescription("Get the outcome of the most recently completed reconciliation run, "+
			"including created/updated/errored counts and any duplicate-ID or cycle warnings."),
	), s.getLastSyncSummary)

	s.mcp.AddTool(mcp.NewTool("search_tasks",
		mcp.WithDescription("Full-text search across TaskNote/ProjectNote/SectionNote titles and descriptions."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTasks)

	s.mcp.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get the indexed frontmatter projection of a single task/project/section note by vault path."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the note")),
	), s.getTask)

	s.mcp.AddTool(mcp.NewTool("list_duplicate_ids",
		mcp.WithDescription("List remote_task_id values that are carried by more than one file in the vault, "+
			"as surfaced by the most recent reconciliation run."),
	), s.listDuplicateIDs)

	s.mcp.AddTool(mcp.NewTool("get_frontmatter_contract",
		mcp.WithDescription("Returns the canonical TaskNote/ProjectNote/SectionNote frontmatter shape. "+
			"Call this before hand-editing a managed note's frontmatter."),
	), s.getFrontmatterContract)

	s.mcp.AddResource(
		mcp.NewResource("taskvault://frontmatter-contract", "Frontmatter Contract",
			mcp.WithResourceDescription("Canonical frontmatter shape for managed vault notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFrontmatterContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) triggerSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	started := s.sched.TryTrigger(ctx)
	out, _ := json.Marshal(map[string]bool{"started": started})
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getLastSyncSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err, at := s.sched.LastResult()
	payload := map[string]interface{}{
		"in_progress": s.sched.InProgress(),
		"ran_at":      at,
		"summary":     summary,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	out, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.idx.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.idx.GetNote(path)
	if err != nil || note == nil {
		return mcp.NewToolResultError("not found: " + path), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDuplicateIDs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, _, _ := s.sched.LastResult()
	if len(summary.Duplicates) == 0 {
		return mcp.NewToolResultText("no duplicate remote_task_id values detected in the last run"), nil
	}
	return mcp.NewToolResultText(strings.Join(summary.Duplicates, "\n")), nil
}

func (s *Server) getFrontmatterContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FrontmatterContract), nil
}

func (s *Server) readFrontmatterContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "taskvault://frontmatter-contract",
			MIMEType: "text/markdown",
			Text:     FrontmatterContract,
		},
	}, nil
}
