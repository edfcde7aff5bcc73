package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/rag"
	"github.com/recall-dev/recall/internal/store"
)

const (
	// MCPVersion is the protocol version we support.
	MCPVersion = "2024-11-05"

	// ServerName is the name of this MCP server.
	ServerName = "recall"

	// ServerVersion is the version of this server.
	ServerVersion = "1.0.0"
)

// Server is the MCP server for recall.
type Server struct {
	store   store.Store
	manager *rag.Manager
	query   *rag.QueryEngine
	cfg     *config.Config

	// Stdin/stdout for communication
	reader *bufio.Reader
	writer io.Writer

	// State
	initialized bool
}

// NewServer creates a new MCP server.
func NewServer(st store.Store, manager *rag.Manager, query *rag.QueryEngine, cfg *config.Config) *Server {
	return &Server{
		store:   st,
		manager: manager,
		query:   query,
		cfg:     cfg,
		reader:  bufio.NewReader(os.Stdin),
		writer:  os.Stdout,
	}
}

// Run starts the MCP server and processes requests until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Info("MCP server starting")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Read a line from stdin
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				log.Info("MCP server received EOF, shutting down")
				return nil
			}
			log.Error("Failed to read from stdin", "error", err)
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Parse the request
		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.sendError(nil, ErrorCodeParse, "Parse error", err.Error())
			continue
		}

		// Handle the request
		s.handleRequest(ctx, req)
	}
}

// handleRequest processes a single MCP request.
func (s *Server) handleRequest(ctx context.Context, req Request) {
	log.Debug("Received request", "method", req.Method, "id", req.ID)

	var result any
	var err error

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(req.Params)
	case "initialized":
		// This is a notification, no response needed
		s.initialized = true
		log.Info("MCP server initialized")
		return
	case "tools/list":
		result, err = s.handleListTools()
	case "tools/call":
		result, err = s.handleCallTool(ctx, req.Params)
	case "ping":
		result = map[string]any{}
	default:
		s.sendError(req.ID, ErrorCodeMethodNotFound, "Method not found", req.Method)
		return
	}

	if err != nil {
		s.sendError(req.ID, ErrorCodeInternal, "Internal error", err.Error())
		return
	}

	s.sendResult(req.ID, result)
}

// handleInitialize handles the initialize request.
func (s *Server) handleInitialize(params json.RawMessage) (*InitializeResult, error) {
	var p InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}

	log.Info("Initializing MCP server",
		"clientName", p.ClientInfo.Name,
		"clientVersion", p.ClientInfo.Version,
		"protocolVersion", p.ProtocolVersion,
	)

	return &InitializeResult{
		ProtocolVersion: MCPVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
	}, nil
}

// handleListTools returns the list of available tools.
func (s *Server) handleListTools() (*ListToolsResult, error) {
	tools := []Tool{
		{
			Name:        "recall_search",
			Description: "Semantic search over an indexed document collection. Returns the most relevant text chunks for a natural language query.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {
						Type:        "string",
						Description: "The search query in natural language",
					},
					"collection": {
						Type:        "string",
						Description: "Collection to search (defaults to the only collection when just one exists)",
					},
					"limit": {
						Type:        "number",
						Description: "Maximum number of chunks to return",
						Default:     5,
					},
					"min_relevance": {
						Type:        "number",
						Description: "Minimum relevance score (0-1)",
						Default:     0,
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "recall_ask",
			Description: "Answer a question using retrieved context from a document collection. Generates a grounded answer with source citations.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"question": {
						Type:        "string",
						Description: "The question to answer",
					},
					"collection": {
						Type:        "string",
						Description: "Collection to answer from (defaults to the only collection when just one exists)",
					},
					"limit": {
						Type:        "number",
						Description: "Maximum number of context chunks to retrieve",
						Default:     5,
					},
				},
				Required: []string{"question"},
			},
		},
		{
			Name:        "recall_list_collections",
			Description: "List all document collections with their document and chunk counts.",
			InputSchema: JSONSchema{
				Type: "object",
			},
		},
	}

	return &ListToolsResult{Tools: tools}, nil
}

// handleCallTool executes a tool and returns the result.
func (s *Server) handleCallTool(ctx context.Context, params json.RawMessage) (*CallToolResult, error) {
	var p CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	log.Debug("Calling tool", "name", p.Name, "arguments", p.Arguments)

	var resultText string
	var isError bool

	switch p.Name {
	case "recall_search":
		resultText, isError = s.toolSearch(ctx, p.Arguments)
	case "recall_ask":
		resultText, isError = s.toolAsk(ctx, p.Arguments)
	case "recall_list_collections":
		resultText, isError = s.toolListCollections()
	default:
		return &CallToolResult{
			Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("Unknown tool: %s", p.Name)}},
			IsError: true,
		}, nil
	}

	return &CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: resultText}},
		IsError: isError,
	}, nil
}

// toolSearch performs a semantic search over a collection.
func (s *Server) toolSearch(ctx context.Context, args map[string]any) (string, bool) {
	query, _ := args["query"].(string)
	if query == "" {
		return "Error: query is required", true
	}

	col, errText := s.resolveCollection(args)
	if errText != "" {
		return errText, true
	}

	limit := intArg(args, "limit", s.cfg.Query.TopK)
	minRelevance := floatArg(args, "min_relevance", s.cfg.Query.MinRelevance)

	sources, err := s.manager.Search(ctx, query, col.ID, limit, minRelevance)
	if err != nil {
		return fmt.Sprintf("Error: search failed: %v", err), true
	}

	if len(sources) == 0 {
		return "No results found.", false
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d results in collection '%s':\n\n", len(sources), col.Name))

	for i, src := range sources {
		sb.WriteString(fmt.Sprintf("[%d] %s (chunk %d) - %.1f%% match\n",
			i+1, src.DocumentTitle, src.ChunkIndex, src.Relevance*100))

		content := src.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}

	return sb.String(), false
}

// toolAsk answers a question using retrieved context.
func (s *Server) toolAsk(ctx context.Context, args map[string]any) (string, bool) {
	question, _ := args["question"].(string)
	if question == "" {
		return "Error: question is required", true
	}

	col, errText := s.resolveCollection(args)
	if errText != "" {
		return errText, true
	}

	opts := rag.DefaultQueryOptions()
	opts.TopK = intArg(args, "limit", s.cfg.Query.TopK)
	opts.MinRelevance = s.cfg.Query.MinRelevance
	opts.MaxTokens = s.cfg.Query.MaxTokens
	opts.Temperature = s.cfg.Query.Temperature

	result, err := s.query.Query(ctx, question, col.ID, opts)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrGeneratorNotReady):
			return "Error: the LLM backend is not available. Check the llm configuration.", true
		case errors.Is(err, rag.ErrNoRelevantChunks):
			return "No relevant context found for this question.", false
		default:
			return fmt.Sprintf("Error: %v", err), true
		}
	}

	var sb strings.Builder
	sb.WriteString(result.Answer)
	sb.WriteString("\n\nSources:\n")
	for i, src := range result.Sources {
		sb.WriteString(fmt.Sprintf("[%d] %s (chunk %d, %.1f%% match)\n",
			i+1, src.DocumentTitle, src.ChunkIndex, src.Relevance*100))
	}

	return sb.String(), false
}

// toolListCollections lists all collections.
func (s *Server) toolListCollections() (string, bool) {
	collections, err := s.manager.ListCollections()
	if err != nil {
		return fmt.Sprintf("Error: failed to list collections: %v", err), true
	}

	if len(collections) == 0 {
		return "No collections found. Ingest documents first with 'recall add'.", false
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d collections:\n\n", len(collections)))
	for _, col := range collections {
		sb.WriteString(fmt.Sprintf("- %s: %d documents, %d chunks (updated %s)\n",
			col.Name, col.DocumentCount, col.TotalChunks, col.UpdatedAt.Format("2006-01-02 15:04")))
	}

	return sb.String(), false
}

// resolveCollection finds the collection named in the arguments. When no
// name is given and exactly one collection exists, that one is used.
func (s *Server) resolveCollection(args map[string]any) (*store.Collection, string) {
	name, _ := args["collection"].(string)

	if name == "" {
		collections, err := s.manager.ListCollections()
		if err != nil {
			return nil, fmt.Sprintf("Error: failed to list collections: %v", err)
		}
		switch len(collections) {
		case 0:
			return nil, "Error: no collections exist. Ingest documents first with 'recall add'."
		case 1:
			return &collections[0], ""
		default:
			names := make([]string, 0, len(collections))
			for _, c := range collections {
				names = append(names, c.Name)
			}
			return nil, fmt.Sprintf("Error: collection is required when several exist. Available: %s", strings.Join(names, ", "))
		}
	}

	col, err := s.manager.GetCollectionByName(name)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return nil, fmt.Sprintf("Error: collection '%s' not found", name)
		}
		return nil, fmt.Sprintf("Error: failed to look up collection: %v", err)
	}
	return col, ""
}

// intArg reads a numeric argument, accepting both JSON numbers and strings.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

// floatArg reads a float argument, accepting both JSON numbers and strings.
func floatArg(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

// sendResult sends a successful response.
func (s *Server) sendResult(id any, result any) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	s.send(resp)
}

// sendError sends an error response.
func (s *Server) sendError(id any, code int, message, data string) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	s.send(resp)
}

// send writes a response to stdout.
func (s *Server) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("Failed to marshal response", "error", err)
		return
	}
	fmt.Fprintln(s.writer, string(data))
}
