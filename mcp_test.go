package moderately

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toolText extracts the first text content block from a CallTool result.
func toolText(t *testing.T, result map[string]any) string {
	t.Helper()

	content, ok := result["content"].([]map[string]any)
	require.True(t, ok, "result must carry content")
	require.NotEmpty(t, content)

	text, _ := content[0]["text"].(string)

	return text
}

func TestNewMCPServer_Tools(t *testing.T) {
	server := newTestServer(t, http.NewServeMux())
	client := newTestClient(t, server.URL)

	mcpServer := NewMCPServer(client)

	assert.Equal(t, "moderately", mcpServer.Name())
	assert.Equal(t, Version, mcpServer.Version())

	assert.Equal(t, []string{
		"download_file",
		"execute_pipeline",
		"get_dataset",
		"get_execution",
		"get_execution_output",
		"get_file",
		"list_datasets",
		"list_files",
		"list_pipelines",
		"upload_file",
	}, mcpServer.Tools())
}

func TestNewMCPServer_ReadOnlyTools(t *testing.T) {
	server := newTestServer(t, http.NewServeMux())
	client := newTestClient(t, server.URL)

	mcpServer := NewMCPServer(client, WithReadOnlyTools())
	tools := mcpServer.Tools()

	assert.NotContains(t, tools, "upload_file")
	assert.NotContains(t, tools, "execute_pipeline")
	assert.Contains(t, tools, "list_datasets")
	assert.Contains(t, tools, "download_file")
}

func TestNewMCPServer_CustomName(t *testing.T) {
	server := newTestServer(t, http.NewServeMux())
	client := newTestClient(t, server.URL)

	mcpServer := NewMCPServer(client, WithMCPServerName("platform-tools"))

	assert.Equal(t, "platform-tools", mcpServer.Name())
}

func TestMCPServer_CallTool_GetDataset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /datasets/ds_1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"datasetId": "ds_1", "name": "sales"})
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)
	mcpServer := NewMCPServer(client)

	result, err := mcpServer.CallTool(context.Background(), "get_dataset", map[string]any{
		"datasetId": "ds_1",
	})
	require.NoError(t, err)

	assert.NotContains(t, result, "is_error")

	var dataset map[string]any
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &dataset))
	assert.Equal(t, "sales", dataset["name"])
}

func TestMCPServer_CallTool_ListDatasets(t *testing.T) {
	var gotQuery map[string][]string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /datasets", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()

		writeJSON(t, w, pageBody([]map[string]any{
			{"datasetId": "ds_1", "name": "sales"},
		}, 2, 10, 11, 2))
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)
	mcpServer := NewMCPServer(client)

	result, err := mcpServer.CallTool(context.Background(), "list_datasets", map[string]any{
		"page":     2,
		"pageSize": 10,
		"nameLike": "sal",
	})
	require.NoError(t, err)
	assert.NotContains(t, result, "is_error")

	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"10"}, gotQuery["pageSize"])
	assert.Equal(t, []string{"sal"}, gotQuery["nameLike"])
}

func TestMCPServer_CallTool_APIFailureIsToolError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /datasets/ds_missing", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": "dataset_not_found", "message": "no such dataset"}}`))
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)
	mcpServer := NewMCPServer(client)

	result, err := mcpServer.CallTool(context.Background(), "get_dataset", map[string]any{
		"datasetId": "ds_missing",
	})
	require.NoError(t, err, "API failures are tool results, not errors")

	assert.Equal(t, true, result["is_error"])
	assert.Contains(t, toolText(t, result), "no such dataset")
}

func TestMCPServer_CallTool_Unknown(t *testing.T) {
	server := newTestServer(t, http.NewServeMux())
	client := newTestClient(t, server.URL)
	mcpServer := NewMCPServer(client)

	result, err := mcpServer.CallTool(context.Background(), "nonexistent", nil)
	require.NoError(t, err)

	assert.Equal(t, true, result["is_error"])
	assert.Contains(t, toolText(t, result), "nonexistent")
}

func TestMCPServer_CallTool_DownloadFile(t *testing.T) {
	content := []byte("col1,col2\n1,2\n")

	var serverURL string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /files/file_1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"fileId":   "file_1",
			"name":     "data.csv",
			"mimeType": "text/csv",
			"fileSize": len(content),
			"status":   "completed",
		})
	})
	mux.HandleFunc("GET /files/file_1/download", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"downloadUrl": serverURL + "/dl/file_1"})
	})
	mux.HandleFunc("GET /dl/file_1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(content)
	})

	server := newTestServer(t, mux)
	serverURL = server.URL
	client := newTestClient(t, server.URL)
	mcpServer := NewMCPServer(client)

	result, err := mcpServer.CallTool(context.Background(), "download_file", map[string]any{
		"fileId": "file_1",
	})
	require.NoError(t, err)

	assert.NotContains(t, result, "is_error")
	assert.Equal(t, string(content), toolText(t, result))
}

func TestMCPServer_CallTool_DownloadFile_TooLarge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /files/file_big", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"fileId":   "file_big",
			"name":     "huge.bin",
			"fileSize": maxInlineFileBytes + 1,
		})
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)
	mcpServer := NewMCPServer(client)

	result, err := mcpServer.CallTool(context.Background(), "download_file", map[string]any{
		"fileId": "file_big",
	})
	require.NoError(t, err)

	assert.Equal(t, true, result["is_error"])
	assert.Contains(t, toolText(t, result), "too large")
}

func TestMCPServer_CallTool_ExecutePipeline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /pipeline-executions", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)

		writeJSON(t, w, map[string]any{
			"pipelineExecutionId":            "exec_1",
			"pipelineConfigurationVersionId": body["pipelineConfigurationVersionId"],
			"status":                         "pending",
		})
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)
	mcpServer := NewMCPServer(client)

	result, err := mcpServer.CallTool(context.Background(), "execute_pipeline", map[string]any{
		"configurationVersionId": "cv_1",
		"input":                  map[string]any{"document": map[string]any{"text": "hi"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, result, "is_error")

	var execution map[string]any
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &execution))
	assert.Equal(t, "exec_1", execution["pipelineExecutionId"])
}

func TestMCPServer_AddTool(t *testing.T) {
	server := newTestServer(t, http.NewServeMux())
	client := newTestClient(t, server.URL)
	mcpServer := NewMCPServer(client)

	tool := NewMcpTool("ping", "Reply with pong", SimpleSchema(map[string]string{}))
	mcpServer.AddTool(tool, func(_ context.Context, _ *CallToolRequest) (*CallToolResult, error) {
		return TextResult("pong"), nil
	})

	assert.Contains(t, mcpServer.Tools(), "ping")

	result, err := mcpServer.CallTool(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", toolText(t, result))
}

func TestMCPServer_ListTools_Metadata(t *testing.T) {
	server := newTestServer(t, http.NewServeMux())
	client := newTestClient(t, server.URL)
	mcpServer := NewMCPServer(client)

	for _, tool := range mcpServer.ListTools() {
		assert.NotEmpty(t, tool["name"])
		assert.NotEmpty(t, tool["description"], "tool %v must carry a description", tool["name"])
		assert.Contains(t, tool, "inputSchema")
	}
}
