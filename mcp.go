package moderately

import (
	"context"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/moderately-ai/moderately-go/internal/mcp"
)

// Re-export MCP SDK types for public API.
// These are the official MCP protocol types.
type (
	// CallToolResult is the server's response to a tool call.
	// Use TextResult, ErrorResult, JSONResult, or ImageResult helpers to
	// create results.
	CallToolResult = mcp.CallToolResult

	// CallToolRequest is the request passed to tool handlers.
	CallToolRequest = mcp.CallToolRequest

	// McpTool represents an MCP tool definition from the official SDK.
	McpTool = mcp.Tool

	// McpToolHandler is the function signature for tool handlers.
	McpToolHandler = mcp.ToolHandler

	// McpToolAnnotations describes optional hints about tool behavior.
	// Fields include ReadOnlyHint, DestructiveHint, IdempotentHint,
	// OpenWorldHint, and Title.
	McpToolAnnotations = mcp.ToolAnnotations

	// Schema is a JSON Schema object for tool input validation.
	Schema = jsonschema.Schema
)

// SimpleSchema creates a jsonschema.Schema from a simple type map.
//
// Input format: {"datasetId": "string", "page": "int"}
// All properties are marked required; build a Schema struct directly for
// more control.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return internalmcp.SimpleSchema(props)
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return internalmcp.TextResult(text)
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return internalmcp.ErrorResult(message)
}

// JSONResult creates a CallToolResult with a value rendered as JSON text.
func JSONResult(v any) *mcp.CallToolResult {
	return internalmcp.JSONResult(v)
}

// ImageResult creates a CallToolResult with image content.
func ImageResult(data []byte, mimeType string) *mcp.CallToolResult {
	return internalmcp.ImageResult(data, mimeType)
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
// This is a convenience function for extracting tool input.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	return internalmcp.ParseArguments(req)
}

// NewMcpTool creates an mcp.Tool with the given parameters.
func NewMcpTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return internalmcp.NewTool(name, description, inputSchema)
}

// maxInlineFileBytes caps the content size the download_file tool returns
// inline.
const maxInlineFileBytes = 1 << 20

// MCPServer exposes platform operations as Model Context Protocol tools.
//
// The server can run over stdio for MCP hosts, or be embedded and invoked
// programmatically via ListTools and CallTool.
type MCPServer struct {
	client *Client
	inner  *internalmcp.Server
	server *mcp.Server
}

// mcpServerConfig collects MCPServerOption settings.
type mcpServerConfig struct {
	name     string
	readOnly bool
}

// MCPServerOption configures an MCPServer during construction.
type MCPServerOption func(*mcpServerConfig)

// WithMCPServerName overrides the advertised server name.
func WithMCPServerName(name string) MCPServerOption {
	return func(c *mcpServerConfig) {
		c.name = name
	}
}

// WithReadOnlyTools registers only the tools that cannot modify platform
// state. Use this when exposing the server to untrusted hosts.
func WithReadOnlyTools() MCPServerOption {
	return func(c *mcpServerConfig) {
		c.readOnly = true
	}
}

// NewMCPServer builds an MCP server whose tools operate through the given
// client.
func NewMCPServer(client *Client, opts ...MCPServerOption) *MCPServer {
	cfg := &mcpServerConfig{name: "moderately"}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &MCPServer{
		client: client,
		inner:  internalmcp.NewServer(cfg.name, Version),
		server: mcp.NewServer(&mcp.Implementation{Name: cfg.name, Version: Version}, nil),
	}

	s.registerPlatformTools(cfg.readOnly)

	return s
}

// Name returns the advertised server name.
func (s *MCPServer) Name() string {
	return s.inner.Name()
}

// Version returns the advertised server version.
func (s *MCPServer) Version() string {
	return s.inner.Version()
}

// Tools returns the registered tool names, sorted.
func (s *MCPServer) Tools() []string {
	listed := s.inner.ListTools()

	names := make([]string, 0, len(listed))
	for _, tool := range listed {
		if name, ok := tool["name"].(string); ok {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

// ListTools returns metadata for all registered tools.
func (s *MCPServer) ListTools() []map[string]any {
	return s.inner.ListTools()
}

// CallTool executes a tool by name with the given input, without an MCP
// transport. Tool failures are encoded in the result.
func (s *MCPServer) CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	return s.inner.CallTool(ctx, name, input)
}

// AddTool registers a custom tool alongside the platform tools.
// Tools must be added before Run.
func (s *MCPServer) AddTool(tool *McpTool, handler McpToolHandler) {
	s.inner.AddTool(tool, handler)
	s.server.AddTool(tool, handler)
}

// Server exposes the underlying MCP server for custom transports.
func (s *MCPServer) Server() *mcp.Server {
	return s.server
}

// Run serves the tools over stdio until the context is cancelled or the
// host disconnects.
func (s *MCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// platformTool pairs a tool definition with its handler for registration.
type platformTool struct {
	tool     *mcp.Tool
	handler  mcp.ToolHandler
	readOnly bool
}

func (s *MCPServer) registerPlatformTools(readOnlyOnly bool) {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true}

	tools := []platformTool{
		{
			tool: &mcp.Tool{
				Name:        "list_datasets",
				Description: "List the team's datasets, optionally filtered by name substring",
				InputSchema: optionalArgsSchema(map[string]string{"page": "int", "pageSize": "int", "nameLike": "string"}),
				Annotations: readOnly,
			},
			handler:  s.handleListDatasets,
			readOnly: true,
		},
		{
			tool: &mcp.Tool{
				Name:        "get_dataset",
				Description: "Fetch a dataset by ID",
				InputSchema: internalmcp.SimpleSchema(map[string]string{"datasetId": "string"}),
				Annotations: readOnly,
			},
			handler:  s.handleGetDataset,
			readOnly: true,
		},
		{
			tool: &mcp.Tool{
				Name:        "list_files",
				Description: "List the team's files, optionally restricted to a dataset",
				InputSchema: optionalArgsSchema(map[string]string{"page": "int", "pageSize": "int", "datasetId": "string"}),
				Annotations: readOnly,
			},
			handler:  s.handleListFiles,
			readOnly: true,
		},
		{
			tool: &mcp.Tool{
				Name:        "get_file",
				Description: "Fetch file metadata by ID",
				InputSchema: internalmcp.SimpleSchema(map[string]string{"fileId": "string"}),
				Annotations: readOnly,
			},
			handler:  s.handleGetFile,
			readOnly: true,
		},
		{
			tool: &mcp.Tool{
				Name:        "upload_file",
				Description: "Upload a local file to the platform",
				InputSchema: optionalArgsSchema(map[string]string{"path": "string", "name": "string"}, "path"),
			},
			handler: s.handleUploadFile,
		},
		{
			tool: &mcp.Tool{
				Name:        "download_file",
				Description: "Download a file's content; images return as image content",
				InputSchema: internalmcp.SimpleSchema(map[string]string{"fileId": "string"}),
				Annotations: readOnly,
			},
			handler:  s.handleDownloadFile,
			readOnly: true,
		},
		{
			tool: &mcp.Tool{
				Name:        "list_pipelines",
				Description: "List the team's pipelines",
				InputSchema: optionalArgsSchema(map[string]string{"page": "int", "pageSize": "int", "nameLike": "string"}),
				Annotations: readOnly,
			},
			handler:  s.handleListPipelines,
			readOnly: true,
		},
		{
			tool: &mcp.Tool{
				Name:        "execute_pipeline",
				Description: "Run a pipeline configuration version, optionally waiting for completion",
				InputSchema: optionalArgsSchema(
					map[string]string{"configurationVersionId": "string", "input": "object", "wait": "bool"},
					"configurationVersionId",
				),
			},
			handler: s.handleExecutePipeline,
		},
		{
			tool: &mcp.Tool{
				Name:        "get_execution",
				Description: "Fetch a pipeline execution by ID",
				InputSchema: internalmcp.SimpleSchema(map[string]string{"executionId": "string"}),
				Annotations: readOnly,
			},
			handler:  s.handleGetExecution,
			readOnly: true,
		},
		{
			tool: &mcp.Tool{
				Name:        "get_execution_output",
				Description: "Fetch the output document of a completed pipeline execution",
				InputSchema: internalmcp.SimpleSchema(map[string]string{"executionId": "string"}),
				Annotations: readOnly,
			},
			handler:  s.handleGetExecutionOutput,
			readOnly: true,
		},
	}

	for _, t := range tools {
		if readOnlyOnly && !t.readOnly {
			continue
		}

		s.AddTool(t.tool, t.handler)
	}
}

// optionalArgsSchema builds an object schema where only the listed
// properties are required.
func optionalArgsSchema(props map[string]string, required ...string) *jsonschema.Schema {
	schema := internalmcp.SimpleSchema(props)
	schema.Required = required

	return schema
}

// Argument extraction helpers. MCP arguments arrive as decoded JSON, so
// numbers are float64.

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)

	return value
}

func intArg(args map[string]any, key string) int {
	value, _ := args[key].(float64)

	return int(value)
}

func boolArg(args map[string]any, key string) bool {
	value, _ := args[key].(bool)

	return value
}

func listParamsFromArgs(args map[string]any) ListParams {
	return ListParams{
		Page:     intArg(args, "page"),
		PageSize: intArg(args, "pageSize"),
	}
}

func (s *MCPServer) handleListDatasets(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	page, err := s.client.Datasets.List(ctx, &DatasetListParams{
		ListParams: listParamsFromArgs(args),
		NameLike:   stringArg(args, "nameLike"),
	})
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	return internalmcp.JSONResult(page), nil
}

func (s *MCPServer) handleGetDataset(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	dataset, err := s.client.Datasets.Retrieve(ctx, stringArg(args, "datasetId"))
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	return internalmcp.JSONResult(dataset), nil
}

func (s *MCPServer) handleListFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	page, err := s.client.Files.List(ctx, &FileListParams{
		ListParams: listParamsFromArgs(args),
		DatasetID:  stringArg(args, "datasetId"),
	})
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	return internalmcp.JSONResult(page), nil
}

func (s *MCPServer) handleGetFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	file, err := s.client.Files.Retrieve(ctx, stringArg(args, "fileId"))
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	return internalmcp.JSONResult(file), nil
}

func (s *MCPServer) handleUploadFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	file, err := s.client.Files.Upload(ctx, &FileUploadParams{
		Path: stringArg(args, "path"),
		Name: stringArg(args, "name"),
	})
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	return internalmcp.JSONResult(file), nil
}

func (s *MCPServer) handleDownloadFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	fileID := stringArg(args, "fileId")

	file, err := s.client.Files.Retrieve(ctx, fileID)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	if file.FileSize > maxInlineFileBytes {
		return internalmcp.ErrorResult("file too large to return inline; use the SDK to download it"), nil
	}

	data, err := file.Download(ctx)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	if file.IsImage() {
		return internalmcp.ImageResult(data, file.MimeType), nil
	}

	return internalmcp.TextResult(string(data)), nil
}

func (s *MCPServer) handleListPipelines(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	page, err := s.client.Pipelines.List(ctx, &PipelineListParams{
		ListParams: listParamsFromArgs(args),
		NameLike:   stringArg(args, "nameLike"),
	})
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	return internalmcp.JSONResult(page), nil
}

func (s *MCPServer) handleExecutePipeline(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	input, _ := args["input"].(map[string]any)

	params := &ExecutionCreateParams{
		ConfigurationVersionID: stringArg(args, "configurationVersionId"),
		Input:                  input,
	}

	var execution *PipelineExecution

	if boolArg(args, "wait") {
		execution, err = s.client.PipelineExecutions.ExecuteAndWait(ctx, params, nil)
	} else {
		execution, err = s.client.PipelineExecutions.Create(ctx, params)
	}

	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	return internalmcp.JSONResult(execution), nil
}

func (s *MCPServer) handleGetExecution(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	execution, err := s.client.PipelineExecutions.Retrieve(ctx, stringArg(args, "executionId"))
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	return internalmcp.JSONResult(execution), nil
}

func (s *MCPServer) handleGetExecutionOutput(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := internalmcp.ParseArguments(req)
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	output, err := s.client.PipelineExecutions.Output(ctx, stringArg(args, "executionId"))
	if err != nil {
		return internalmcp.ErrorResult(err.Error()), nil
	}

	return internalmcp.JSONResult(output), nil
}
