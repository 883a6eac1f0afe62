package moderately

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineExecutionsService_Create(t *testing.T) {
	var gotBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("POST /pipeline-executions", func(w http.ResponseWriter, r *http.Request) {
		gotBody = decodeBody(t, r)

		writeJSON(t, w, map[string]any{
			"pipelineExecutionId":            "exec_1",
			"pipelineConfigurationVersionId": gotBody["pipelineConfigurationVersionId"],
			"status":                         "pending",
			"createdAt":                      "2024-05-01T10:00:00Z",
		})
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)

	execution, err := client.PipelineExecutions.Create(context.Background(), &ExecutionCreateParams{
		ConfigurationVersionID: "cv_1",
		Input:                  map[string]any{"document": map[string]any{"text": "hello"}},
		InputSummary:           "one document",
	})
	require.NoError(t, err)

	assert.Equal(t, "cv_1", gotBody["pipelineConfigurationVersionId"])
	assert.Equal(t, "one document", gotBody["pipelineInputSummary"])
	require.Contains(t, gotBody, "pipelineInput")

	assert.Equal(t, "exec_1", execution.ExecutionID)
	assert.True(t, execution.IsRunning())
	assert.NotNil(t, execution.client, "created execution must be attached")
}

func TestPipelineExecutionsService_Create_RequiresConfigurationVersion(t *testing.T) {
	server := newTestServer(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("invalid params must not reach the server")
	}))

	client := newTestClient(t, server.URL)

	var validationErr *ValidationError

	_, err := client.PipelineExecutions.Create(context.Background(), &ExecutionCreateParams{})
	require.ErrorAs(t, err, &validationErr)

	_, err = client.PipelineExecutions.Create(context.Background(), nil)
	require.ErrorAs(t, err, &validationErr)
}

func TestPipelineExecutionsService_List(t *testing.T) {
	var gotQuery map[string][]string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /pipeline-executions", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()

		writeJSON(t, w, pageBody([]map[string]any{
			{"pipelineExecutionId": "exec_1", "status": "completed"},
		}, 1, 50, 1, 1))
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)

	page, err := client.PipelineExecutions.List(context.Background(), &ExecutionListParams{
		PipelineIDs:             []string{"pl_1"},
		ConfigurationVersionIDs: []string{"cv_1", "cv_2"},
		Statuses:                []string{"completed", "failed"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"team_test"}, gotQuery["teamIds"])
	assert.Equal(t, []string{"pl_1"}, gotQuery["pipelineIds"])
	assert.Equal(t, []string{"cv_1", "cv_2"}, gotQuery["pipelineConfigurationVersionIds"])
	assert.Equal(t, []string{"completed", "failed"}, gotQuery["statuses"])

	require.Len(t, page.Items, 1)
	assert.NotNil(t, page.Items[0].client, "listed executions must be attached")
}

// executionBackend serves an execution whose status advances on every
// retrieval.
func executionBackend(t *testing.T, statuses ...map[string]any) *Client {
	t.Helper()

	var calls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /pipeline-executions/exec_1", func(w http.ResponseWriter, _ *http.Request) {
		i := int(calls.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}

		body := map[string]any{"pipelineExecutionId": "exec_1"}
		for k, v := range statuses[i] {
			body[k] = v
		}

		writeJSON(t, w, body)
	})

	server := newTestServer(t, mux)

	return newTestClient(t, server.URL)
}

func TestPipelineExecutionsService_Wait(t *testing.T) {
	client := executionBackend(t,
		map[string]any{"status": "queued"},
		map[string]any{"status": "running", "progressPercentage": 40.0},
		map[string]any{"status": "completed", "progressPercentage": 100.0},
	)

	var progress []float64

	execution, err := client.PipelineExecutions.Wait(context.Background(), "exec_1", &WaitParams{
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
		OnProgress: func(e *PipelineExecution) {
			progress = append(progress, e.Progress())
		},
	})
	require.NoError(t, err)

	assert.True(t, execution.IsCompleted())
	assert.Equal(t, []float64{0, 40, 100}, progress, "every poll must report progress")
}

func TestPipelineExecutionsService_Wait_Failed(t *testing.T) {
	client := executionBackend(t,
		map[string]any{"status": "running"},
		map[string]any{"status": "failed", "error": "block crashed"},
	)

	_, err := client.PipelineExecutions.Wait(context.Background(), "exec_1", &WaitParams{
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
	})

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	assert.Equal(t, "exec_1", executionErr.ExecutionID)
	assert.Equal(t, "failed", executionErr.Status)
	assert.Equal(t, "block crashed", executionErr.Message)
}

func TestPipelineExecutionsService_Wait_Cancelled(t *testing.T) {
	client := executionBackend(t, map[string]any{"status": "cancelled"})

	_, err := client.PipelineExecutions.Wait(context.Background(), "exec_1", &WaitParams{
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
	})

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
}

func TestPipelineExecutionsService_Wait_Timeout(t *testing.T) {
	client := executionBackend(t, map[string]any{"status": "running"})

	_, err := client.PipelineExecutions.Wait(context.Background(), "exec_1", &WaitParams{
		PollInterval: time.Millisecond,
		Timeout:      5 * time.Millisecond,
	})

	require.ErrorIs(t, err, ErrWaitTimeout)
}

func TestPipelineExecutionsService_ExecuteAndWait(t *testing.T) {
	var retrieves atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /pipeline-executions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"pipelineExecutionId": "exec_1", "status": "pending"})
	})
	mux.HandleFunc("GET /pipeline-executions/exec_1", func(w http.ResponseWriter, _ *http.Request) {
		status := "running"
		if retrieves.Add(1) > 1 {
			status = "completed"
		}

		writeJSON(t, w, map[string]any{"pipelineExecutionId": "exec_1", "status": status})
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)

	execution, err := client.PipelineExecutions.ExecuteAndWait(context.Background(),
		&ExecutionCreateParams{ConfigurationVersionID: "cv_1"},
		&WaitParams{PollInterval: time.Millisecond, Timeout: time.Second},
	)
	require.NoError(t, err)

	assert.True(t, execution.IsCompleted())
}

func TestPipelineExecutionsService_Output_Inline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /pipeline-executions/exec_1/output", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"result": "ok", "rows": 42.0})
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)

	output, err := client.PipelineExecutions.Output(context.Background(), "exec_1")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"result": "ok", "rows": 42.0}, output)
}

func TestPipelineExecutionsService_Output_Presigned(t *testing.T) {
	var serverURL string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /pipeline-executions/exec_1/output", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"downloadUrl": serverURL + "/dl/exec_1"})
	})
	mux.HandleFunc("GET /dl/exec_1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"result": "large"})
	})

	server := newTestServer(t, mux)
	serverURL = server.URL
	client := newTestClient(t, server.URL)

	output, err := client.PipelineExecutions.Output(context.Background(), "exec_1")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"result": "large"}, output, "presigned outputs must be followed")
}

func TestPipelineExecutionsService_Output_InlineWithDownloadURLKey(t *testing.T) {
	// An output document that merely contains a downloadUrl key alongside
	// other keys is inline data, not a redirect.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /pipeline-executions/exec_1/output", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"downloadUrl": "https://example.com/x", "result": "ok"})
	})

	server := newTestServer(t, mux)
	client := newTestClient(t, server.URL)

	output, err := client.PipelineExecutions.Output(context.Background(), "exec_1")
	require.NoError(t, err)

	assert.Equal(t, "ok", output["result"])
}

func TestPipelineExecution_StatusHelpers(t *testing.T) {
	assert.True(t, (&PipelineExecution{Status: ExecutionStatusPending}).IsRunning())
	assert.True(t, (&PipelineExecution{Status: ExecutionStatusQueued}).IsRunning())
	assert.True(t, (&PipelineExecution{Status: ExecutionStatusRunning}).IsRunning())
	assert.True(t, (&PipelineExecution{Status: ExecutionStatusCompleted}).IsCompleted())
	assert.True(t, (&PipelineExecution{Status: ExecutionStatusFailed}).IsFailed())
	assert.True(t, (&PipelineExecution{Status: ExecutionStatusCancelled}).IsCancelled())

	for _, status := range []string{ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled} {
		assert.True(t, (&PipelineExecution{Status: status}).IsTerminal(), status)
	}

	assert.False(t, (&PipelineExecution{Status: ExecutionStatusRunning}).IsTerminal())
}

func TestPipelineExecution_ProgressAndDuration(t *testing.T) {
	execution := &PipelineExecution{}
	assert.Zero(t, execution.Progress())
	assert.Zero(t, execution.Duration())

	progress := 62.5
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)

	execution = &PipelineExecution{
		ProgressPercentage: &progress,
		StartedAt:          &started,
		CompletedAt:        &completed,
	}

	assert.Equal(t, 62.5, execution.Progress())
	assert.Equal(t, 90*time.Second, execution.Duration())
}

func TestPipelineExecution_DetachedMethodsFail(t *testing.T) {
	ctx := context.Background()
	execution := &PipelineExecution{ExecutionID: "exec_1"}

	_, err := execution.Wait(ctx, nil)
	require.ErrorIs(t, err, ErrNotAttached)

	_, err = execution.Output(ctx)
	require.ErrorIs(t, err, ErrNotAttached)

	require.ErrorIs(t, execution.Refresh(ctx), ErrNotAttached)
}
