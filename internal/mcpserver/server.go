package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/serapieum/docent/internal/llm"
	"github.com/serapieum/docent/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server exposes the document store to MCP clients over stdio.
type Server struct {
	store *store.Store
	llm   llm.Embedder
	mcp   *server.MCPServer

	// Tool registry kept alongside the MCP server so the chat client can
	// invoke tools in-process without a stdio round trip.
	tools    []mcp.Tool
	handlers map[string]server.ToolHandlerFunc
}

type searchResultJSON struct {
	Filepath string   `json:"filepath"`
	Title    string   `json:"title"`
	Score    float64  `json:"score"`
	Snippet  string   `json:"snippet,omitempty"`
	Matches  []string `json:"matches,omitempty"`
}

type documentJSON struct {
	Collection string            `json:"collection"`
	Path       string            `json:"path"`
	Title      string            `json:"title"`
	Hash       string            `json:"hash"`
	Meta       map[string]string `json:"meta,omitempty"`
}

type statusJSON struct {
	TotalDocuments int `json:"total_documents"`
	Collections    int `json:"collections"`
	Embeddings     int `json:"embeddings"`
	Indexes        int `json:"indexes"`
}

func NewServer(s *store.Store, l llm.Embedder) *Server {
	mcpServer := server.NewMCPServer(
		"docent",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false), // Subscribe disabled
		server.WithLogging(),
	)

	srv := &Server{
		store:    s,
		llm:      l,
		mcp:      mcpServer,
		handlers: make(map[string]server.ToolHandlerFunc),
	}

	srv.registerTools()
	srv.registerResources()
	return srv
}

func (s *Server) Start() error {
	// Stdio transport for local agent integration
	return server.ServeStdio(s.mcp)
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
}

// CallTool lets in-process callers (the chat client) execute a tool directly.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return handler(ctx, req)
}

// GetTools returns the registered tool definitions, used to advertise tools
// to the chat model.
func (s *Server) GetTools() []mcp.Tool {
	return s.tools
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("JSON marshal failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func searchResponse(results []store.SearchResult) (*mcp.CallToolResult, error) {
	resp := make([]searchResultJSON, len(results))
	for i, r := range results {
		resp[i] = searchResultJSON{
			Filepath: r.Filepath,
			Title:    r.Title,
			Score:    r.Score,
			Snippet:  r.Snippet,
			Matches:  r.Matches,
		}
	}
	return toolJSON(resp)
}

func (s *Server) registerTools() {
	searchTool := mcp.NewTool("search",
		mcp.WithDescription("Full text search using BM25. Returns a JSON list of matches."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
		mcp.WithNumber("limit", mcp.DefaultNumber(10), mcp.Description("Max number of documents to return")),
		mcp.WithNumber("context_lines", mcp.DefaultNumber(1), mcp.Description("Number of lines to show before and after a match")),
		mcp.WithBoolean("find_all", mcp.DefaultBool(false), mcp.Description("If true, returns all matches in a file instead of just the first one")),
	)

	s.addTool(searchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, _ := request.RequireString("query")
		limit := request.GetInt("limit", 10)
		contextLines := request.GetInt("context_lines", 1)
		findAll := request.GetBool("find_all", false)

		results, err := s.store.SearchFTS(query, limit, contextLines, findAll)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
		}
		return searchResponse(results)
	})

	vsearchTool := mcp.NewTool("vsearch",
		mcp.WithDescription("Semantic search using vector embeddings. Returns a JSON list of matches."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
		mcp.WithNumber("limit", mcp.DefaultNumber(10), mcp.Description("Max number of results")),
	)

	s.addTool(vsearchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if s.llm == nil {
			return mcp.NewToolResultError("Embeddings are not configured. Vector search unavailable."), nil
		}

		query, _ := request.RequireString("query")
		limit := request.GetInt("limit", 10)

		vec, err := s.llm.Embed(query, true)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Embedding generation failed: %v", err)), nil
		}

		results, err := s.store.SearchVec(vec, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Vector search failed: %v", err)), nil
		}
		return searchResponse(results)
	})

	queryTool := mcp.NewTool("query",
		mcp.WithDescription("Hybrid search using both keywords and semantic meaning (RRF). Returns a JSON list of matches."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
		mcp.WithNumber("limit", mcp.DefaultNumber(10), mcp.Description("Max number of results")),
	)

	s.addTool(queryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if s.llm == nil {
			return mcp.NewToolResultError("Embeddings are not configured. Hybrid search unavailable."), nil
		}

		query, _ := request.RequireString("query")
		limit := request.GetInt("limit", 10)

		vec, err := s.llm.Embed(query, true)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Embedding generation failed: %v", err)), nil
		}

		results, err := s.store.SearchHybrid(query, vec, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Hybrid search failed: %v", err)), nil
		}
		return searchResponse(results)
	})

	getTool := mcp.NewTool("get_document",
		mcp.WithDescription("Retrieve the full content of a specific document"),
		mcp.WithString("path", mcp.Required(), mcp.Description("The document path (e.g., 'notes/meeting.md')")),
	)

	s.addTool(getTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pathStr, _ := request.RequireString("path")

		// Path format expected: collection/path/to/file.md
		parts := strings.SplitN(pathStr, "/", 2)
		if len(parts) < 2 {
			return mcp.NewToolResultError("Invalid path format. Expected 'collection/path'"), nil
		}
		collection, relPath := parts[0], parts[1]

		content, err := s.store.GetDocument(collection, relPath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get document: %v", err)), nil
		}

		return mcp.NewToolResultText(content), nil
	})

	findTool := mcp.NewTool("find_by_name",
		mcp.WithDescription("Find documents by file name. Returns a JSON list of document records."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The file name to look for")),
		mcp.WithBoolean("exact", mcp.DefaultBool(false), mcp.Description("If true, match the name exactly instead of by substring")),
	)

	s.addTool(findTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, _ := request.RequireString("name")
		exact := request.GetBool("exact", false)

		docs, err := s.store.GetDocsByFileName(name, exact)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Lookup failed: %v", err)), nil
		}

		resp := make([]documentJSON, len(docs))
		for i, d := range docs {
			resp[i] = documentJSON{
				Collection: d.Collection,
				Path:       d.Path,
				Title:      d.Title,
				Hash:       d.Hash,
				Meta:       d.Meta,
			}
		}
		return toolJSON(resp)
	})

	statusTool := mcp.NewTool("status",
		mcp.WithDescription("Get the status of the docent index in JSON format"),
	)

	s.addTool(statusTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := s.store.GetStats()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get stats: %v", err)), nil
		}

		return toolJSON(statusJSON{
			TotalDocuments: stats.TotalDocuments,
			Collections:    stats.Collections,
			Embeddings:     stats.Embeddings,
			Indexes:        stats.Indexes,
		})
	})
}

func (s *Server) registerResources() {
	// Template for accessing any document: docent://{collection}/{+path}
	// URI templates in MCP are RFC 6570; {+path} handles slashes.
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate("docent://{collection}/{+path}", "Document"),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			vars := request.Params.Arguments
			collection, ok := vars["collection"].(string)
			if !ok {
				if colArr, ok := vars["collection"].([]string); ok && len(colArr) > 0 {
					collection = colArr[0]
				} else {
					return nil, fmt.Errorf("invalid collection argument")
				}
			}

			var path string
			if p, ok := vars["path"].(string); ok {
				path = p
			} else if pArr, ok := vars["path"].([]string); ok && len(pArr) > 0 {
				path = strings.Join(pArr, "/")
			} else {
				return nil, fmt.Errorf("invalid path argument")
			}

			content, err := s.store.GetDocument(collection, path)
			if err != nil {
				return nil, fmt.Errorf("document not found: %w", err)
			}

			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      request.Params.URI,
					MIMEType: "text/markdown",
					Text:     content,
				},
			}, nil
		},
	)
}
