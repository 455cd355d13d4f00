// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the note list to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/jotlist/internal/apperr"
	"github.com/starford/jotlist/internal/noteservice"
)

const notesURI = "jotlist://notes"

// Server wraps the MCP server with the note list tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"jotlist",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every note in display order. Position 0 is the top of the list."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read the note at a position."),
		mcp.WithNumber("position", mcp.Required(), mcp.Description("Zero-based position in the list")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Add an empty note at the top of the list."),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("insert_note",
		mcp.WithDescription("Insert a note at a position, shifting later notes down. "+
			"Position may equal the list length to append."),
		mcp.WithNumber("position", mcp.Required(), mcp.Description("Zero-based target position")),
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("text", mcp.Description("Note body")),
	), s.insertNote)

	s.mcp.AddTool(mcp.NewTool("replace_note",
		mcp.WithDescription("Save edits to the note at a position. Nothing is written when "+
			"title and text are unchanged."),
		mcp.WithNumber("position", mcp.Required(), mcp.Description("Zero-based position")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		mcp.WithString("text", mcp.Required(), mcp.Description("New body")),
		mcp.WithString("checksum", mcp.Description("Optional list checksum from list_notes; the edit is rejected if the list changed since")),
	), s.replaceNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Remove the note at a position. The removal can be reverted with undo_remove."),
		mcp.WithNumber("position", mcp.Required(), mcp.Description("Zero-based position")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("move_note",
		mcp.WithDescription("Move a note from one position to another."),
		mcp.WithNumber("from", mcp.Required(), mcp.Description("Current position")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("Target position")),
	), s.moveNote)

	s.mcp.AddTool(mcp.NewTool("remove_notes",
		mcp.WithDescription("Remove several notes as one batch that undo_remove can restore."),
		mcp.WithArray("positions", mcp.Required(),
			mcp.Description("Positions to remove"),
			mcp.Items(map[string]any{"type": "number"}),
		),
	), s.removeNotes)

	s.mcp.AddTool(mcp.NewTool("undo_remove",
		mcp.WithDescription("Restore the notes removed by the last delete_note or remove_notes call."),
	), s.undoRemove)

	s.mcp.AddResource(
		mcp.NewResource(notesURI, "Note list",
			mcp.WithResourceDescription("The whole note list as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readNotesResource,
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

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.ListNotes(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := req.RequireInt("position")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, pos)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note), nil
}

func (s *Server) addNote(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := s.svc.AddNote(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note), nil
}

func (s *Server) insertNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := req.RequireInt("position")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.InsertNote(ctx, pos, req.GetString("title", ""), req.GetString("text", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note), nil
}

func (s *Server) replaceNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := req.RequireInt("position")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, saved, err := s.svc.ReplaceNote(ctx, pos, title, text, req.GetString("checksum", ""))
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return mcp.NewToolResultError("list changed since checksum was read; call list_notes again"), nil
		}
		return toolError(err), nil
	}
	if !saved {
		return mcp.NewToolResultText(fmt.Sprintf("unchanged: %d", pos)), nil
	}
	return jsonResult(note), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := req.RequireInt("position")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.DeleteNote(ctx, pos); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return mcp.NewToolResultError("notes are selected; use remove_notes or clear the selection first"), nil
		}
		// A single-note batch fails as a whole; report the cause.
		var pe *apperr.PartialError
		if errors.As(err, &pe) && pe.Err != nil {
			err = pe.Err
		}
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d", pos)), nil
}

func (s *Server) moveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireInt("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireInt("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.MoveNote(ctx, from, to); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved: %d -> %d", from, to)), nil
}

func (s *Server) removeNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	positions, err := req.RequireIntSlice("positions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.RemoveNotes(ctx, positions)
	if err != nil && !errors.Is(err, apperr.ErrPartial) {
		return toolError(err), nil
	}
	out := map[string]any{
		"requested": res.Requested,
		"removed":   res.Removed,
		"failed":    res.Failed,
	}
	if err != nil {
		out["error"] = err.Error()
	}
	return jsonResult(out), nil
}

func (s *Server) undoRemove(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Undo(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v (restored %d, %d still pending)", err, res.Restored, res.Remaining)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("restored: %d", res.Restored)), nil
}

func (s *Server) readNotesResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	res, err := s.svc.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      notesURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// toolError turns a service error into a tool error result. Storage
// failures are reported without their cause.
func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrStorage) && !errors.Is(err, apperr.ErrPartial) {
		return mcp.NewToolResultError("storage unavailable")
	}
	return mcp.NewToolResultError(err.Error())
}
