package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server is an in-process MCP tool registry.
//
// The official SDK's Server is built around a transport (stdio, HTTP, SSE).
// Embedding hosts call tools directly instead, so this keeps its own registry
// and invokes handlers without a protocol round trip.
type Server struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]*registeredTool
}

type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewServer creates an empty in-process server.
func NewServer(name, version string) *Server {
	return &Server{
		name:    name,
		version: version,
		tools:   make(map[string]*registeredTool, 8),
	}
}

// AddTool registers a tool, replacing any tool with the same name.
func (s *Server) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// Name returns the server name.
func (s *Server) Name() string { return s.name }

// Version returns the server version.
func (s *Server) Version() string { return s.version }

// ListTools returns metadata for all registered tools in registry order.
func (s *Server) ListTools() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listed := make([]map[string]any, 0, len(s.tools))
	for _, t := range s.tools {
		meta := map[string]any{
			"name":        t.tool.Name,
			"description": t.tool.Description,
		}

		if schema, ok := asMap(t.tool.InputSchema); ok {
			meta["inputSchema"] = schema
		}

		if annotations, ok := asMap(t.tool.Annotations); ok {
			meta["annotations"] = annotations
		}

		listed = append(listed, meta)
	}

	return listed
}

// CallTool executes a registered tool by name.
//
// Failures are reported in-band: a missing tool, a bad input, or a handler
// error all produce a result with is_error set, never a Go error, matching
// MCP semantics where a failed tool call is still a valid response.
func (s *Server) CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	s.mu.RLock()
	t, ok := s.tools[name]
	s.mu.RUnlock()

	if !ok {
		return errorMap("Tool not found: " + name), nil
	}

	args, err := json.Marshal(input)
	if err != nil {
		return errorMap("Failed to marshal input: " + err.Error()), nil
	}

	result, err := t.handler(ctx, &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: args},
	})
	if err != nil {
		return errorMap("Tool execution failed: " + err.Error()), nil
	}

	return resultMap(result), nil
}

// resultMap flattens a CallToolResult into the plain map shape hosts consume.
// Only text and image content appear here; the result helpers below produce
// nothing else.
func resultMap(result *mcp.CallToolResult) map[string]any {
	if result == nil {
		return map[string]any{"content": []map[string]any{}}
	}

	content := make([]map[string]any, 0, len(result.Content))
	for _, c := range result.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			content = append(content, map[string]any{
				"type": "text",
				"text": v.Text,
			})
		case *mcp.ImageContent:
			content = append(content, map[string]any{
				"type":     "image",
				"data":     v.Data,
				"mimeType": v.MIMEType,
			})
		}
	}

	out := map[string]any{"content": content}
	if result.IsError {
		out["is_error"] = true
	}

	return out
}

// errorMap builds an in-band tool failure result.
func errorMap(message string) map[string]any {
	return map[string]any{
		"content":  []map[string]any{{"type": "text", "text": message}},
		"is_error": true,
	}
}

// asMap serializes v into a plain map via JSON, reporting false when v is nil
// or does not round-trip.
func asMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}

	return m, true
}

// SimpleSchema builds an object schema from property names and Go-ish type
// strings, e.g. {"datasetId": "string", "page": "int"}. Every property is
// required.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, typ := range props {
		properties[name] = typeSchema(typ)
		required = append(required, name)
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

var scalarSchemaTypes = map[string]string{
	"string":  "string",
	"int":     "integer",
	"int8":    "integer",
	"int16":   "integer",
	"int32":   "integer",
	"int64":   "integer",
	"uint":    "integer",
	"uint8":   "integer",
	"uint16":  "integer",
	"uint32":  "integer",
	"uint64":  "integer",
	"float":   "number",
	"float32": "number",
	"float64": "number",
	"number":  "number",
	"bool":    "boolean",
	"boolean": "boolean",

	"any":            "object",
	"object":         "object",
	"map[string]any": "object",
}

// typeSchema maps a Go-ish type string to a JSON Schema. Slice types become
// arrays; anything unrecognized falls back to string.
func typeSchema(typ string) *jsonschema.Schema {
	if t, ok := scalarSchemaTypes[typ]; ok {
		return &jsonschema.Schema{Type: t}
	}

	if len(typ) > 2 && typ[:2] == "[]" {
		return &jsonschema.Schema{
			Type:  "array",
			Items: typeSchema(typ[2:]),
		}
	}

	return &jsonschema.Schema{Type: "string"}
}

// NewTool assembles an mcp.Tool definition.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// ParseArguments unmarshals a tool request's raw arguments into a map.
// A nil request or empty arguments yield an empty map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return args, nil
}

// TextResult wraps text in a successful tool result.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// ErrorResult wraps a message in a failed tool result.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}

// ImageResult wraps binary image content in a successful tool result.
func ImageResult(data []byte, mimeType string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.ImageContent{Data: data, MIMEType: mimeType}},
	}
}

// JSONResult renders v as indented JSON text. Marshal failures become an
// error result.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult("Failed to marshal result: " + err.Error())
	}

	return TextResult(string(data))
}
