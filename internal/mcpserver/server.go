// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes memoracard tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/memoracard/internal/deckservice"
	"github.com/starford/memoracard/internal/storage"
	"github.com/starford/memoracard/internal/vault"
)

const formatURI = "memoracard://deck-format"

// Server wraps the MCP server with memoracard tools.
type Server struct {
	mcp   *server.MCPServer
	decks *deckservice.Service
	db    *storage.DB
	fsys  *vault.FS
	now   func() time.Time
}

// New creates a new MCP server with all memoracard tools registered.
func New(decks *deckservice.Service, db *storage.DB, fsys *vault.FS) *Server {
	s := &Server{decks: decks, db: db, fsys: fsys, now: time.Now}

	s.mcp = server.NewMCPServer(
		"Memoracard",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_decks",
		mcp.WithDescription("List all flashcard decks with their card and due counts."),
	), s.listDecks)

	s.mcp.AddTool(mcp.NewTool("list_due_cards",
		mcp.WithDescription("List the cards of a deck that are due for review now."),
		mcp.WithString("deck_id", mcp.Required(), mcp.Description("Deck ID")),
	), s.listDueCards)

	s.mcp.AddTool(mcp.NewTool("search_cards",
		mcp.WithDescription("Full-text search through card questions and answers."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCards)

	s.mcp.AddTool(mcp.NewTool("create_deck",
		mcp.WithDescription("Create an empty deck."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Deck name (at most 100 characters)")),
	), s.createDeck)

	s.mcp.AddTool(mcp.NewTool("add_card",
		mcp.WithDescription("Add a question/answer card to a deck. The card is due immediately."),
		mcp.WithString("deck_id", mcp.Required(), mcp.Description("Deck ID")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question text")),
		mcp.WithString("answer", mcp.Required(), mcp.Description("Answer text")),
	), s.addCard)

	s.mcp.AddTool(mcp.NewTool("import_deck",
		mcp.WithDescription("Write a deck file into the vault and import it. "+
			"Content MUST follow the deck format contract. Read it first via "+
			"the get_deck_format tool or the "+formatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the deck file (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the deck format contract")),
	), s.importDeck)

	s.mcp.AddTool(mcp.NewTool("export_deck",
		mcp.WithDescription("Render a deck and its cards in the deck file format."),
		mcp.WithString("deck_id", mcp.Required(), mcp.Description("Deck ID")),
	), s.exportDeck)

	s.mcp.AddTool(mcp.NewTool("get_deck_format",
		mcp.WithDescription("Returns the deck file format contract. "+
			"Call this before importing decks to ensure correct structure."),
	), s.getDeckFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Deck Format Contract",
			mcp.WithResourceDescription("Markdown deck file format that all vault decks follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDeckFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listDecks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	decks, err := s.decks.ListDecks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(decks), nil
}

func (s *Server) listDueCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireString("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cards, err := s.decks.DueCards(ctx, deckID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cards), nil
}

func (s *Server) searchCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cards, err := s.decks.SearchCards(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cards), nil
}

func (s *Server) createDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.decks.CreateDeck(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d), nil
}

func (s *Server) addCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireString("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := req.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.decks.AddCard(ctx, deckID, question, answer)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c), nil
}

func (s *Server) importDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasSuffix(path, ".md") {
		return mcp.NewToolResultError("path must end with .md"), nil
	}

	data := []byte(content)
	if err := s.fsys.Write(path, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deckID, err := vault.ImportFile(ctx, s.db, path, data, s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported: %s (deck %s)", path, deckID)), nil
}

func (s *Server) exportDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireString("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := vault.Export(ctx, s.db, deckID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getDeckFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DeckFormatContract), nil
}

func (s *Server) readDeckFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DeckFormatContract,
		},
	}, nil
}
