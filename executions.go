package moderately

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"time"

	"github.com/moderately-ai/moderately-go/internal/apierror"
)

// Pipeline execution statuses reported by the platform.
const (
	ExecutionStatusPending   = "pending"
	ExecutionStatusQueued    = "queued"
	ExecutionStatusRunning   = "running"
	ExecutionStatusCompleted = "completed"
	ExecutionStatusFailed    = "failed"
	ExecutionStatusCancelled = "cancelled"
)

// Defaults for Wait.
const (
	defaultExecutionPollInterval = 2 * time.Second
	defaultExecutionTimeout      = 10 * time.Minute
)

// PipelineExecution is one run of a pipeline configuration.
type PipelineExecution struct {
	ExecutionID            string         `json:"pipelineExecutionId"`
	ConfigurationVersionID string         `json:"pipelineConfigurationVersionId"`
	Status                 string         `json:"status"`
	ProgressPercentage     *float64       `json:"progressPercentage,omitempty"`
	Input                  map[string]any `json:"pipelineInput,omitempty"`
	InputSummary           string         `json:"pipelineInputSummary,omitempty"`
	Error                  string         `json:"error,omitempty"`
	CreatedAt              time.Time      `json:"createdAt"`
	StartedAt              *time.Time     `json:"startedAt,omitempty"`
	CompletedAt            *time.Time     `json:"completedAt,omitempty"`

	client *Client
}

// IsCompleted reports whether the execution finished successfully.
func (e *PipelineExecution) IsCompleted() bool {
	return e.Status == ExecutionStatusCompleted
}

// IsRunning reports whether the execution is still making progress.
func (e *PipelineExecution) IsRunning() bool {
	return e.Status == ExecutionStatusPending ||
		e.Status == ExecutionStatusQueued ||
		e.Status == ExecutionStatusRunning
}

// IsFailed reports whether the execution failed.
func (e *PipelineExecution) IsFailed() bool {
	return e.Status == ExecutionStatusFailed
}

// IsCancelled reports whether the execution was cancelled.
func (e *PipelineExecution) IsCancelled() bool {
	return e.Status == ExecutionStatusCancelled
}

// IsTerminal reports whether the execution reached a final status.
func (e *PipelineExecution) IsTerminal() bool {
	return e.IsCompleted() || e.IsFailed() || e.IsCancelled()
}

// Progress returns the reported progress in percent, or 0 when unknown.
func (e *PipelineExecution) Progress() float64 {
	if e.ProgressPercentage == nil {
		return 0
	}

	return *e.ProgressPercentage
}

// Duration returns how long the execution ran, or 0 while it hasn't
// finished.
func (e *PipelineExecution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}

	return e.CompletedAt.Sub(*e.StartedAt)
}

// Wait polls until the execution reaches a terminal status.
func (e *PipelineExecution) Wait(ctx context.Context, params *WaitParams) (*PipelineExecution, error) {
	if e.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return e.client.PipelineExecutions.Wait(ctx, e.ExecutionID, params)
}

// Output fetches the execution's output document.
func (e *PipelineExecution) Output(ctx context.Context) (map[string]any, error) {
	if e.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return e.client.PipelineExecutions.Output(ctx, e.ExecutionID)
}

// Refresh refetches the execution in place.
func (e *PipelineExecution) Refresh(ctx context.Context) error {
	if e.client == nil {
		return apierror.ErrNotAttached
	}

	fresh, err := e.client.PipelineExecutions.Retrieve(ctx, e.ExecutionID)
	if err != nil {
		return err
	}

	*e = *fresh

	return nil
}

// PipelineExecutionsService runs pipelines and tracks execution state.
// Access it via Client.PipelineExecutions.
type PipelineExecutionsService struct {
	client *Client
}

// ExecutionCreateParams describe an execution to start.
type ExecutionCreateParams struct {
	// ConfigurationVersionID names the pipeline configuration version to
	// run.
	ConfigurationVersionID string `json:"pipelineConfigurationVersionId" validate:"required"`

	// Input is the execution input document, keyed by input block name.
	Input map[string]any `json:"pipelineInput,omitempty"`

	// InputSummary is an optional human-readable input description shown
	// in listings.
	InputSummary string `json:"pipelineInputSummary,omitempty"`
}

// ExecutionListParams filter execution listings.
type ExecutionListParams struct {
	ListParams

	// PipelineIDs restricts the listing to executions of the given
	// pipelines.
	PipelineIDs []string

	// ConfigurationVersionIDs restricts the listing to executions of the
	// given configuration versions.
	ConfigurationVersionIDs []string

	// ExecutionIDs restricts the listing to the given executions.
	ExecutionIDs []string

	// Status restricts the listing to one status.
	Status string

	// Statuses restricts the listing to any of the given statuses.
	Statuses []string
}

func (p *ExecutionListParams) values(teamID string) url.Values {
	query := p.ListParams.values()
	query.Set("teamIds", teamID)

	for _, id := range p.PipelineIDs {
		query.Add("pipelineIds", id)
	}

	for _, id := range p.ConfigurationVersionIDs {
		query.Add("pipelineConfigurationVersionIds", id)
	}

	for _, id := range p.ExecutionIDs {
		query.Add("pipelineExecutionIds", id)
	}

	if p.Status != "" {
		query.Set("status", p.Status)
	}

	for _, status := range p.Statuses {
		query.Add("statuses", status)
	}

	return query
}

// WaitParams tune execution polling.
type WaitParams struct {
	// PollInterval is the time between status checks. Defaults to 2s.
	PollInterval time.Duration

	// Timeout caps the total wait. Defaults to 10m.
	Timeout time.Duration

	// OnProgress is invoked with the latest execution after every poll.
	OnProgress func(*PipelineExecution)
}

// Create starts a pipeline execution.
func (s *PipelineExecutionsService) Create(ctx context.Context, params *ExecutionCreateParams) (*PipelineExecution, error) {
	if params == nil {
		return nil, &apierror.ValidationError{Message: "execution create params are required"}
	}

	if err := validateParams("execution create params", params); err != nil {
		return nil, err
	}

	var execution PipelineExecution
	if err := s.client.post(ctx, "/pipeline-executions", params, &execution); err != nil {
		return nil, err
	}

	s.attach(&execution)

	s.client.log.Debug("execution created",
		"execution_id", execution.ExecutionID,
		"configuration_version_id", params.ConfigurationVersionID)

	return &execution, nil
}

// Retrieve fetches an execution by ID.
func (s *PipelineExecutionsService) Retrieve(ctx context.Context, executionID string) (*PipelineExecution, error) {
	var execution PipelineExecution
	if err := s.client.get(ctx, "/pipeline-executions/"+executionID, nil, &execution); err != nil {
		return nil, err
	}

	s.attach(&execution)

	return &execution, nil
}

// List fetches one page of executions for the client's team.
func (s *PipelineExecutionsService) List(ctx context.Context, params *ExecutionListParams) (*Page[*PipelineExecution], error) {
	if params == nil {
		params = &ExecutionListParams{}
	}

	if err := validateParams("execution list params", params); err != nil {
		return nil, err
	}

	var page Page[*PipelineExecution]
	if err := s.client.get(ctx, "/pipeline-executions", params.values(s.client.TeamID()), &page); err != nil {
		return nil, err
	}

	s.attach(page.Items...)

	return &page, nil
}

// All iterates over every execution matching params, fetching pages lazily.
func (s *PipelineExecutionsService) All(ctx context.Context, params *ExecutionListParams) iter.Seq2[*PipelineExecution, error] {
	return allPages(ctx, func(ctx context.Context, page int) (*Page[*PipelineExecution], error) {
		pageParams := ExecutionListParams{}
		if params != nil {
			pageParams = *params
		}

		pageParams.Page = page

		return s.List(ctx, &pageParams)
	})
}

// Wait polls the execution until it reaches a terminal status.
//
// A "failed" or "cancelled" execution fails the wait with an
// *ExecutionError carrying the server-reported message. Exceeding the
// timeout fails with ErrWaitTimeout.
func (s *PipelineExecutionsService) Wait(ctx context.Context, executionID string, params *WaitParams) (*PipelineExecution, error) {
	if params == nil {
		params = &WaitParams{}
	}

	interval := params.PollInterval
	if interval <= 0 {
		interval = defaultExecutionPollInterval
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)

	defer ticker.Stop()

	for {
		execution, err := s.Retrieve(ctx, executionID)
		if err != nil {
			return nil, err
		}

		if params.OnProgress != nil {
			params.OnProgress(execution)
		}

		switch execution.Status {
		case ExecutionStatusCompleted:
			return execution, nil
		case ExecutionStatusFailed, ExecutionStatusCancelled:
			return nil, &apierror.ExecutionError{
				ExecutionID: executionID,
				Status:      execution.Status,
				Message:     execution.Error,
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("execution %s: %w after %s", executionID, apierror.ErrWaitTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ExecuteAndWait starts an execution and polls until it terminates.
func (s *PipelineExecutionsService) ExecuteAndWait(ctx context.Context, params *ExecutionCreateParams, waitParams *WaitParams) (*PipelineExecution, error) {
	execution, err := s.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	return s.Wait(ctx, execution.ExecutionID, waitParams)
}

// Output fetches an execution's output document.
//
// Small outputs come back inline; large ones arrive as a presigned download
// URL that is followed transparently.
func (s *PipelineExecutionsService) Output(ctx context.Context, executionID string) (map[string]any, error) {
	var out map[string]any
	if err := s.client.get(ctx, "/pipeline-executions/"+executionID+"/output", nil, &out); err != nil {
		return nil, err
	}

	downloadURL, ok := out["downloadUrl"].(string)
	if !ok || len(out) != 1 {
		return out, nil
	}

	data, err := s.client.download(ctx, downloadURL)
	if err != nil {
		return nil, err
	}

	var output map[string]any
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("decode execution output: %w", err)
	}

	return output, nil
}

func (s *PipelineExecutionsService) attach(executions ...*PipelineExecution) {
	for _, e := range executions {
		e.client = s.client
	}
}
