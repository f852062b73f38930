// Package mcp provides the MCP (Model Context Protocol) server for robin.
//
// The server answers questions about one completed pipeline run: which
// subjects were collected, how a type expression reads, what a name
// denotes and what a template instance looks like.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/skn123/robin-sub001/internal/catalog"
	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/graph"
	"github.com/skn123/robin-sub001/internal/ingestion"
	"github.com/skn123/robin-sub001/internal/logger"
	"github.com/skn123/robin-sub001/internal/toolbox"
	"github.com/skn123/robin-sub001/internal/typeexpr"
	"github.com/skn123/robin-sub001/internal/types"
)

// Version is reported to clients on initialize.
const Version = "0.1.0"

// Server represents the MCP server.
type Server struct {
	// mu serializes tools that read or extend the database. Parsing a
	// type may create entities, so it is held for that too.
	mu      sync.Mutex
	run     *ingestion.Run
	catalog catalog.Backend
	server  *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server over a completed run. The catalog is
// used for search and refreshed when tools extend the collection.
func NewServer(run *ingestion.Run, cat catalog.Backend) *Server {
	s := &Server{
		run:     run,
		catalog: cat,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "robin",
		Version: Version,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	str := func(desc string) *jsonschema.Schema { return &jsonschema.Schema{Type: "string", Description: desc} }
	return []Tool{
		{
			Name:        "robin_collect",
			Description: "List the collected subjects in dependency order. With a subject name, collect it (and everything under a namespace of that name) first.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"subject": str("Short or qualified name of a class or namespace to collect"),
				},
			},
		},
		{
			Name:        "robin_format_type",
			Description: "Parse a C++ type expression and print it back along with its structure.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"type":  str("Type expression, such as 'const std::vector<int> &'"),
					"scope": str("Qualified name of the scope to resolve names in; global when empty"),
				},
				Required: []string{"type"},
			},
		},
		{
			Name:        "robin_lookup",
			Description: "Describe the entity with the given qualified name: its kind, declaration and members.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name": str("Qualified name, such as 'geo::Shape'"),
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "robin_instantiate",
			Description: "Instantiate a class template for the given arguments and describe the resulting instance.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"type":  str("Template instantiation, such as 'Vec<double>'"),
					"scope": str("Qualified name of the scope to resolve names in; global when empty"),
				},
				Required: []string{"type"},
			},
		},
		{
			Name:        "robin_search",
			Description: "Search the documentation catalog of the collected subjects by name and member tokens.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": str("Search query text"),
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "robin://overview",
			Name:        "Program Database Overview",
			Description: "Entity counts, subjects and diagnostics of the run",
			MimeType:    "text/plain",
		},
		{
			URI:         "robin://subjects",
			Name:        "Subjects",
			Description: "The collected subjects in dependency order, one per line",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	str := func(key string) string {
		v, _ := args[key].(string)
		return v
	}
	switch name {
	case "robin_collect":
		return s.handleCollect(ctx, str("subject"))
	case "robin_format_type":
		return s.handleFormatType(str("type"), str("scope"))
	case "robin_lookup":
		return s.handleLookup(str("name"))
	case "robin_instantiate":
		return s.handleInstantiate(ctx, str("type"), str("scope"))
	case "robin_search":
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 20
		}
		return s.handleSearch(ctx, str("query"), int(limit))
	default:
		return "", errors.Newf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "robin://overview":
		return s.overview(), nil
	case "robin://subjects":
		return s.subjects(), nil
	default:
		return "", errors.Newf("unknown resource: %s", uri)
	}
}

// Serve runs the server over stdin and stdout through the SDK transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Run serves line-delimited JSON-RPC requests from stdin until EOF.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return errors.New("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	// MCP messages are compact JSON, one per line.
	encoder := json.NewEncoder(stdout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			logger.Named("mcp").Debugw("dropping malformed request", "error", err)
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return result(id, map[string]any{
		"protocolVersion": "2024-11-05",
		"serverInfo": map[string]any{
			"name":    "robin",
			"version": Version,
		},
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": false},
			"resources": map[string]any{"listChanged": false},
		},
	})
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		}
	}
	return result(id, map[string]any{"tools": toolList})
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	text, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}
	return result(id, map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	})
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}
	return result(id, map[string]any{"resources": resourceList})
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)
	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}
	return result(id, map[string]any{
		"contents": []map[string]any{{"uri": uri, "mimeType": "text/plain", "text": content}},
	})
}

// Tool Handlers

func (s *Server) handleCollect(ctx context.Context, subject string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	if subject != "" {
		before := len(s.run.Collector.Subjects())
		s.run.Collector.Collect(subject)
		added := len(s.run.Collector.Subjects()) - before
		if added == 0 {
			fmt.Fprintf(&sb, "No new subjects for '%s'.\n\n", subject)
		} else {
			s.run.Sorted = s.run.Collector.TopologicallySortSubjects(true)
			if err := s.refreshCatalog(ctx); err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "Collected %d new subjects for '%s'.\n\n", added, subject)
		}
	}

	fmt.Fprintf(&sb, "%d subjects in dependency order:\n\n", len(s.run.Sorted))
	for i, agg := range s.run.Sorted {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, agg.FullName(), agg.AggregateKind())
	}
	return sb.String(), nil
}

// refreshCatalog stores the current subjects in the catalog.
func (s *Server) refreshCatalog(ctx context.Context) error {
	if s.catalog == nil {
		return nil
	}
	entries, err := catalog.Build(s.run.Sorted, catalog.Render)
	if err != nil {
		return err
	}
	return s.catalog.Store(ctx, entries)
}

func (s *Server) handleFormatType(text, scope string) (string, error) {
	if text == "" {
		return "No type provided", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.parse(text, scope)
	if err != nil {
		return "", err
	}

	db := s.run.DB
	var sb strings.Builder
	fmt.Fprintf(&sb, "Type: %s\n", types.FormatCpp(db, res.Type, res.Name))
	fmt.Fprintf(&sb, "Structure: %s\n", types.Describe(db, res.Type))
	if res.Name != "" {
		fmt.Fprintf(&sb, "Declarator: %s\n", res.Name)
	}
	if res.ErrorOccurred() {
		fmt.Fprintf(&sb, "Errors: %s\n", res.Messages())
	}
	return sb.String(), nil
}

// parse reads text as a type seen from scope. The caller holds s.mu.
func (s *Server) parse(text, scope string) (*typeexpr.Result, error) {
	var in graph.Entity = s.run.DB.Global()
	if scope != "" {
		e, err := s.run.DB.Lookup(scope, false)
		if err != nil {
			return nil, errors.Wrap(err, "resolving scope")
		}
		in = e
	}
	res := typeexpr.NewResolver(s.run.DB, in)
	res.Engine = s.run.Engine
	return typeexpr.Parse(text, res), nil
}

func (s *Server) handleLookup(name string) (string, error) {
	if name == "" {
		return "No name provided", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.find(name)
	if errors.IsElementNotFound(err) {
		return fmt.Sprintf("No entity named '%s'", name), nil
	}
	if err != nil {
		return "", err
	}
	return describeEntity(s.run.DB, e)
}

// find resolves a qualified name. Unlike Lookup it also reaches routines
// and fields as the last component.
func (s *Server) find(name string) (graph.Entity, error) {
	db := s.run.DB
	e, err := db.Lookup(name, false)
	if !errors.IsElementNotFound(err) {
		return e, err
	}
	parts := graph.SplitQualified(name)
	if len(parts) < 2 {
		return nil, err
	}
	owner, ownerErr := db.Lookup(strings.Join(parts[:len(parts)-1], "::"), false)
	if ownerErr != nil {
		return nil, err
	}
	if scope := graph.ScopeOf(owner); scope != nil {
		if member := scope.Find(parts[len(parts)-1]); member != nil {
			return member, nil
		}
	}
	return nil, err
}

func describeEntity(db *graph.Database, e graph.Entity) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** (%s)\n", e.Base().FullName(), e.Kind())
	if loc, err := e.Base().Declaration(); err == nil {
		fmt.Fprintf(&sb, "Declared at: %s:%d\n", loc.File, loc.Line)
	}
	if !toolbox.IsVisible(e) {
		sb.WriteString("Not visible from outside its container\n")
	}

	switch x := e.(type) {
	case *graph.Aggregate:
		entry, err := catalog.Render(x)
		if err != nil {
			return "", err
		}
		sb.WriteString(formatEntry(entry))
	case *graph.Routine:
		proto, err := toolbox.Prototype(x)
		if err != nil {
			fmt.Fprintf(&sb, "Prototype unavailable: %v\n", err)
		} else {
			fmt.Fprintf(&sb, "Prototype: %s\n", proto)
		}
	case *graph.Field:
		if typ, err := x.Type(); err == nil {
			fmt.Fprintf(&sb, "Declaration: %s\n", types.FormatCpp(db, typ, x.Name()))
		}
	case *graph.Alias:
		if aliased := x.AliasedType(); aliased != nil {
			fmt.Fprintf(&sb, "Aliases: %s\n", types.FormatCpp(db, aliased, ""))
		}
	case *graph.Enum:
		for _, c := range x.Constants() {
			fmt.Fprintf(&sb, "- %s = %d\n", c.Literal, c.Value)
		}
	case *graph.Namespace:
		fmt.Fprintf(&sb, "Members: %d\n", x.Scope().Len())
	}
	return sb.String(), nil
}

func (s *Server) handleInstantiate(ctx context.Context, text, scope string) (string, error) {
	if text == "" {
		return "No type provided", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.parse(text, scope)
	if err != nil {
		return "", err
	}
	if err := res.Err(); err != nil {
		return "", err
	}
	ti, ok := res.Type.(*types.TemplateInstantiation)
	if !ok {
		return "", errors.Wrapf(errors.ErrInvalidInstantiation, "%s is not a template instantiation", text)
	}

	instance, err := s.run.Engine.InstantiateType(ti)
	if err != nil {
		return "", err
	}
	entry, err := catalog.Render(instance)
	if err != nil {
		return "", err
	}
	return formatEntry(entry), nil
}

func (s *Server) handleSearch(ctx context.Context, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}
	if s.catalog == nil {
		return "", errors.New("no catalog available")
	}
	results, err := s.catalog.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for '%s':\n\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s** (%s)\n", i+1, r.Name, r.Kind)
		fmt.Fprintf(&sb, "   Score: %.3f\n", r.Score)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Next: Use `robin_lookup` on a specific subject for the full picture.")
	return sb.String(), nil
}

// formatEntry formats a catalog entry as markdown.
func formatEntry(e *catalog.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", e.Kind, e.Name)
	if e.File != "" {
		fmt.Fprintf(&sb, "File: %s:%d\n", e.File, e.Line)
	}
	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", title)
		for _, l := range lines {
			fmt.Fprintf(&sb, "- %s\n", l)
		}
	}
	section("Bases", e.Bases)
	section("Routines", e.Prototypes)
	section("Fields", e.Fields)
	for name, value := range e.Properties {
		fmt.Fprintf(&sb, "\n%s: %s\n", name, value)
	}
	return sb.String()
}

func (s *Server) overview() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.run.DB.Stats()
	var sb strings.Builder
	sb.WriteString("# Program Database Overview\n\n")
	fmt.Fprintf(&sb, "**Run:** %s\n", s.run.ID)
	fmt.Fprintf(&sb, "**Entities:** %d\n", stats.Entities)
	fmt.Fprintf(&sb, "**Namespaces:** %d\n", stats.Namespaces)
	fmt.Fprintf(&sb, "**Aggregates:** %d\n", stats.Aggregates)
	fmt.Fprintf(&sb, "**Routines:** %d\n", stats.Routines)
	fmt.Fprintf(&sb, "**Fields:** %d\n", stats.Fields)
	fmt.Fprintf(&sb, "**Aliases:** %d\n", stats.Aliases)
	fmt.Fprintf(&sb, "**Enums:** %d\n", stats.Enums)
	fmt.Fprintf(&sb, "**Macros:** %d\n", stats.Macros)
	fmt.Fprintf(&sb, "**Subjects:** %d\n", len(s.run.Sorted))
	fmt.Fprintf(&sb, "**Instantiations:** %d\n", s.run.Engine.Len())
	fmt.Fprintf(&sb, "**Diagnostics:** %d\n", len(s.run.Diagnostics)+len(s.run.Collector.Diagnostics()))
	return sb.String()
}

func (s *Server) subjects() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	for _, agg := range s.run.Sorted {
		sb.WriteString(agg.FullName())
		sb.WriteString("\n")
	}
	return sb.String()
}

// registerTools registers tools with the SDK server. Their handlers share
// CallTool with the line-delimited transport.
func (s *Server) registerTools() {
	for _, tool := range s.ListTools() {
		name := tool.Name
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args map[string]any
			if len(req.Params.Arguments) > 0 {
				if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
					return nil, errors.Wrap(err, "decoding arguments")
				}
			}
			text, err := s.CallTool(ctx, name, args)
			if err != nil {
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
		})
	}
}

// registerResources registers resources with the SDK server.
func (s *Server) registerResources() {
	for _, res := range s.ListResources() {
		uri := res.URI
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			text, err := s.ReadResource(ctx, uri)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "text/plain", Text: text}},
			}, nil
		})
	}
}

func result(id any, payload map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  payload,
	}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
