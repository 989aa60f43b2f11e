// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes PATKIT data-browsing tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/giuthas/patkit/internal/index"
	"github.com/giuthas/patkit/internal/recordingservice"
	"github.com/giuthas/patkit/internal/storage"
)

// Server wraps the MCP server with PATKIT tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    *index.DB
	svc   *recordingservice.Service
}

// New creates a new MCP server with all PATKIT tools registered.
func New(store storage.Provider, db *index.DB, svc *recordingservice.Service) *Server {
	s := &Server{store: store, db: db, svc: svc}

	s.mcp = server.NewMCPServer(
		"PATKIT",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_recordings",
		mcp.WithDescription("Full-text search through recording prompts and participants."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchRecordings)

	s.mcp.AddTool(mcp.NewTool("read_recording",
		mcp.WithDescription("Read one recording's metadata: prompt, participant, time, "+
			"modalities, and annotations. Returns JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the recording metadata file (e.g. sess1/rec1.Recording.patkit_meta)")),
	), s.readRecording)

	s.mcp.AddTool(mcp.NewTool("list_recordings",
		mcp.WithDescription("List recordings, optionally restricted to one session directory."),
		mcp.WithString("session", mcp.Description("Optional session directory (empty for all)")),
	), s.listRecordings)

	s.mcp.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the recording session directories in the data set."),
	), s.listSessions)

	s.mcp.AddTool(mcp.NewTool("get_file_format",
		mcp.WithDescription("Returns the description of the PATKIT file layout and "+
			"metadata format. Call this before interpreting raw metadata files."),
	), s.getFileFormat)

	// Resource: file format contract.
	s.mcp.AddResource(
		mcp.NewResource("patkit://file-format", "File Format Contract",
			mcp.WithResourceDescription("The PATKIT data-directory layout and metadata file format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFileFormatResource,
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

func (s *Server) searchRecordings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readRecording(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetRecording(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listRecordings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session := ""
	if f, err := req.RequireString("session"); err == nil {
		session = f
	}

	items, _, err := s.svc.ListRecordings(ctx, session, 200, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", item.Path, item.ParticipantID, item.Prompt))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no recordings found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.svc.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(sessions) == 0 {
		return mcp.NewToolResultText("no sessions found"), nil
	}
	return mcp.NewToolResultText(strings.Join(sessions, "\n")), nil
}

func (s *Server) getFileFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FileFormatContract), nil
}

func (s *Server) readFileFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "patkit://file-format",
			MIMEType: "text/markdown",
			Text:     FileFormatContract,
		},
	}, nil
}
