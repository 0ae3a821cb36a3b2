// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Kanbo board tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/kanbo/internal/apperr"
	"github.com/starford/kanbo/internal/board"
	"github.com/starford/kanbo/internal/boardservice"
)

const conventionsURI = "kanbo://conventions"

// Server wraps the MCP server with Kanbo tools.
type Server struct {
	mcp *server.MCPServer
	svc *boardservice.Service
}

// New creates a new MCP server with all Kanbo tools registered.
func New(svc *boardservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Kanbo",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List all boards with their column and card counts."),
	), s.listBoards)

	s.mcp.AddTool(mcp.NewTool("get_board",
		mcp.WithDescription("Read a board: columns with their live cards ordered by card id and the log, most recent first. "+
			"Set include_archived to see stored card order, which positions and moves act on."),
		mcp.WithNumber("board_id", mcp.Required(), mcp.Description("Board id")),
		mcp.WithBoolean("include_archived", mcp.Description("Return the raw structure with archived cards in place, cards in stored order")),
	), s.getBoard)

	s.mcp.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List the audit log of a board, most recent first."),
		mcp.WithNumber("board_id", mcp.Required(), mcp.Description("Board id")),
		mcp.WithNumber("limit", mcp.Description("Max entries (default 50)")),
	), s.getHistory)

	s.mcp.AddTool(mcp.NewTool("search_cards",
		mcp.WithDescription("Full-text search over the live cards of a board."),
		mcp.WithNumber("board_id", mcp.Required(), mcp.Description("Board id")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCards)

	s.mcp.AddTool(mcp.NewTool("add_card",
		mcp.WithDescription("Append a card to the end of a column. "+
			"Columns and cards are addressed by zero-based position; read the conventions "+
			"first via get_board_conventions or the kanbo://conventions resource."),
		mcp.WithNumber("board_id", mcp.Required(), mcp.Description("Board id")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Zero-based column position")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Card text")),
		mcp.WithNumber("actor_id", mcp.Required(), mcp.Description("Id of the acting user")),
	), s.addCard)

	s.mcp.AddTool(mcp.NewTool("update_card",
		mcp.WithDescription("Replace the content of a card."),
		mcp.WithNumber("board_id", mcp.Required(), mcp.Description("Board id")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Zero-based column position")),
		mcp.WithNumber("card", mcp.Required(), mcp.Description("Zero-based card position, archived cards included")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New card text")),
		mcp.WithNumber("actor_id", mcp.Required(), mcp.Description("Id of the acting user")),
	), s.updateCard)

	s.mcp.AddTool(mcp.NewTool("delete_card",
		mcp.WithDescription("Archive a card. It is hidden from the board but kept in storage and in the log."),
		mcp.WithNumber("board_id", mcp.Required(), mcp.Description("Board id")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Zero-based column position")),
		mcp.WithNumber("card", mcp.Required(), mcp.Description("Zero-based card position, archived cards included")),
		mcp.WithNumber("actor_id", mcp.Required(), mcp.Description("Id of the acting user")),
	), s.deleteCard)

	s.mcp.AddTool(mcp.NewTool("move_card",
		mcp.WithDescription("Move a card to a position in another (or the same) column."),
		mcp.WithNumber("board_id", mcp.Required(), mcp.Description("Board id")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Zero-based source column position")),
		mcp.WithNumber("card", mcp.Required(), mcp.Description("Zero-based source card position, archived cards included")),
		mcp.WithNumber("destination_column", mcp.Required(), mcp.Description("Zero-based destination column position")),
		mcp.WithNumber("destination_position", mcp.Required(), mcp.Description("Insertion index in the destination column's stored sequence")),
		mcp.WithNumber("actor_id", mcp.Required(), mcp.Description("Id of the acting user")),
	), s.moveCard)

	s.mcp.AddTool(mcp.NewTool("get_board_conventions",
		mcp.WithDescription("Returns how Kanbo addresses columns and cards and how archival and the log behave. "+
			"Call this before mutating a board."),
	), s.getConventions)

	// Resource: board conventions.
	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "Board Conventions",
			mcp.WithResourceDescription("Positional addressing, archival and audit log rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
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

func (s *Server) listBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boards, err := s.svc.ListBoards(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(boards), nil
}

func (s *Server) getBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("board_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.svc.GetBoard(ctx, int64(id), req.GetBool("include_archived", false))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(b), nil
}

func (s *Server) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("board_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	logs, err := s.svc.History(ctx, int64(id), req.GetInt("limit", 0))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(logs), nil
}

func (s *Server) searchCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("board_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.SearchCards(ctx, int64(id), query, 20)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(hits), nil
}

func (s *Server) addCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := requireInts(req, "board_id", "column", "actor_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	actor, err := actorOf(args[2])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CreateCard(ctx, int64(args[0]), args[1], content, actor)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) updateCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := requireInts(req, "board_id", "column", "card", "actor_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	actor, err := actorOf(args[3])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.UpdateCard(ctx, int64(args[0]), args[1], args[2], content, actor)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) deleteCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := requireInts(req, "board_id", "column", "card", "actor_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	actor, err := actorOf(args[3])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.DeleteCard(ctx, int64(args[0]), args[1], args[2], actor)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) moveCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := requireInts(req, "board_id", "column", "card", "destination_column", "destination_position", "actor_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	actor, err := actorOf(args[5])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	move := board.MoveRequest{DestinationColumn: args[3], DestinationPosition: args[4]}
	res, err := s.svc.MoveCard(ctx, int64(args[0]), args[1], args[2], move, actor)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getConventions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BoardConventions), nil
}

func (s *Server) readConventionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     BoardConventions,
		},
	}, nil
}

func requireInts(req mcp.CallToolRequest, keys ...string) ([]int, error) {
	out := make([]int, len(keys))
	for i, k := range keys {
		v, err := req.RequireInt(k)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func actorOf(id int) (board.User, error) {
	if id <= 0 {
		return board.User{}, fmt.Errorf("actor_id must be positive: %w", apperr.ErrUnauthenticated)
	}
	return board.User{ID: int64(id)}, nil
}

// toolError turns a service error into a tool result the model can act on.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("board not found")
	case errors.Is(err, board.ErrIndexOutOfRange), errors.Is(err, apperr.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError("internal error: " + err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}
