package moderately

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"os"
	"time"

	"github.com/ghodss/yaml"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/moderately-ai/moderately-go/internal/apierror"
)

// Block types that appear in pipeline configurations.
const (
	BlockTypeInput  = "input"
	BlockTypeOutput = "output"
)

// Configuration version statuses.
const (
	ConfigurationStatusCurrent = "current"
	ConfigurationStatusDraft   = "draft"
)

// Pipeline is an executable workflow on the platform.
type Pipeline struct {
	PipelineID  string    `json:"pipelineId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TeamID      string    `json:"teamId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	client *Client
}

// Update modifies the pipeline in place.
func (p *Pipeline) Update(ctx context.Context, params *PipelineUpdateParams) error {
	if p.client == nil {
		return apierror.ErrNotAttached
	}

	fresh, err := p.client.Pipelines.Update(ctx, p.PipelineID, params)
	if err != nil {
		return err
	}

	*p = *fresh

	return nil
}

// Delete removes the pipeline from the platform.
func (p *Pipeline) Delete(ctx context.Context) error {
	if p.client == nil {
		return apierror.ErrNotAttached
	}

	return p.client.Pipelines.Delete(ctx, p.PipelineID)
}

// Refresh refetches the pipeline in place.
func (p *Pipeline) Refresh(ctx context.Context) error {
	if p.client == nil {
		return apierror.ErrNotAttached
	}

	fresh, err := p.client.Pipelines.Retrieve(ctx, p.PipelineID)
	if err != nil {
		return err
	}

	*p = *fresh

	return nil
}

// ConfigurationVersions lists this pipeline's configuration versions.
func (p *Pipeline) ConfigurationVersions(ctx context.Context, params *ListParams) (*Page[*ConfigurationVersion], error) {
	if p.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return p.client.Pipelines.ListConfigurationVersions(ctx, p.PipelineID, params)
}

// BlockConfig is the free-form configuration document of a block.
// Well-known keys are exposed as methods; everything else stays accessible
// through the map.
type BlockConfig map[string]any

// Name returns the block's configured name, if any.
func (c BlockConfig) Name() string {
	name, _ := c["name"].(string)

	return name
}

// JSONSchema returns the block's input schema document, if any.
func (c BlockConfig) JSONSchema() (map[string]any, bool) {
	doc, ok := c["json_schema"].(map[string]any)

	return doc, ok
}

// Block is one node of a pipeline configuration.
type Block struct {
	ID     string      `json:"id,omitempty"`
	Type   string      `json:"type"`
	Config BlockConfig `json:"config,omitempty"`
}

// Connection wires one block's output to another block's input.
// Configuration documents use snake_case keys, exactly as the platform
// stores them.
type Connection struct {
	SourceBlockID string `json:"source_block_id"`
	TargetBlockID string `json:"target_block_id"`
	SourcePort    string `json:"source_port,omitempty"`
	TargetPort    string `json:"target_port,omitempty"`
}

// PipelineConfiguration is the executable definition of a pipeline.
type PipelineConfiguration struct {
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Version     string           `json:"version,omitempty"`
	Blocks      map[string]Block `json:"blocks"`
	Connections []Connection     `json:"connections,omitempty"`
}

// InputBlocks returns the configuration's input blocks keyed by their
// configured names.
func (c *PipelineConfiguration) InputBlocks() map[string]Block {
	inputs := make(map[string]Block)

	for key, block := range c.Blocks {
		if block.Type != BlockTypeInput {
			continue
		}

		name := block.Config.Name()
		if name == "" {
			name = key
		}

		inputs[name] = block
	}

	return inputs
}

// ValidateInput checks an execution input against the configuration's input
// block schemas before anything is sent to the platform.
//
// Every input block must have a matching entry in input, every entry must
// match an input block, and entries are validated against the block's JSON
// Schema when one is declared.
func (c *PipelineConfiguration) ValidateInput(input map[string]any) error {
	inputs := c.InputBlocks()

	for key := range input {
		if _, ok := inputs[key]; !ok {
			return &apierror.ValidationError{Message: fmt.Sprintf("unknown input %q", key)}
		}
	}

	for name, block := range inputs {
		value, ok := input[name]
		if !ok {
			return &apierror.ValidationError{Message: fmt.Sprintf("missing input %q", name)}
		}

		doc, ok := block.Config.JSONSchema()
		if !ok {
			continue
		}

		schema, err := schemaFromDocument(doc)
		if err != nil {
			return &apierror.ValidationError{Message: fmt.Sprintf("input %q has an invalid schema", name), Err: err}
		}

		resolved, err := schema.Resolve(nil)
		if err != nil {
			return &apierror.ValidationError{Message: fmt.Sprintf("input %q has an unresolvable schema", name), Err: err}
		}

		if err := resolved.Validate(value); err != nil {
			return &apierror.ValidationError{Message: fmt.Sprintf("input %q", name), Err: err}
		}
	}

	return nil
}

// schemaFromDocument decodes a schema document into a jsonschema.Schema.
func schemaFromDocument(doc map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}

	return &schema, nil
}

// LoadConfiguration reads a pipeline configuration document from a YAML or
// JSON file.
func LoadConfiguration(path string) (*PipelineConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	return ParseConfiguration(data)
}

// ParseConfiguration decodes a pipeline configuration document from YAML or
// JSON bytes.
func ParseConfiguration(data []byte) (*PipelineConfiguration, error) {
	var cfg PipelineConfiguration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	return &cfg, nil
}

// ConfigurationVersion is one revision of a pipeline's configuration.
type ConfigurationVersion struct {
	ConfigurationVersionID string                `json:"pipelineConfigurationVersionId"`
	PipelineID             string                `json:"pipelineId"`
	Configuration          PipelineConfiguration `json:"configuration"`
	Status                 string                `json:"status"`
	Version                int                   `json:"version,omitempty"`
	CreatedAt              time.Time             `json:"createdAt"`
	UpdatedAt              time.Time             `json:"updatedAt"`

	client *Client
}

// IsCurrent reports whether this version is the pipeline's active
// configuration.
func (v *ConfigurationVersion) IsCurrent() bool {
	return v.Status == ConfigurationStatusCurrent
}

// Execute starts a pipeline execution from this configuration version.
// The input is validated locally against the configuration's input blocks
// first.
func (v *ConfigurationVersion) Execute(ctx context.Context, input map[string]any) (*PipelineExecution, error) {
	if v.client == nil {
		return nil, apierror.ErrNotAttached
	}

	if err := v.Configuration.ValidateInput(input); err != nil {
		return nil, err
	}

	return v.client.PipelineExecutions.Create(ctx, &ExecutionCreateParams{
		ConfigurationVersionID: v.ConfigurationVersionID,
		Input:                  input,
	})
}

// ExecuteAndWait starts an execution and polls until it terminates.
func (v *ConfigurationVersion) ExecuteAndWait(ctx context.Context, input map[string]any, params *WaitParams) (*PipelineExecution, error) {
	if v.client == nil {
		return nil, apierror.ErrNotAttached
	}

	execution, err := v.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	return v.client.PipelineExecutions.Wait(ctx, execution.ExecutionID, params)
}

// PipelinesService manages pipelines and their configuration versions.
// Access it via Client.Pipelines.
type PipelinesService struct {
	client *Client
}

// PipelineCreateParams describe a pipeline to create.
type PipelineCreateParams struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// PipelineUpdateParams describe a pipeline modification.
type PipelineUpdateParams struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// PipelineListParams filter pipeline listings.
type PipelineListParams struct {
	ListParams

	// PipelineIDs restricts the listing to the given pipelines.
	PipelineIDs []string

	// NameLike matches the pipeline name by substring.
	NameLike string
}

func (p *PipelineListParams) values(teamID string) url.Values {
	query := p.ListParams.values()
	query.Set("teamIds", teamID)

	for _, id := range p.PipelineIDs {
		query.Add("pipelineIds", id)
	}

	if p.NameLike != "" {
		query.Set("nameLike", p.NameLike)
	}

	return query
}

// ConfigurationVersionParams tune configuration version creation.
type ConfigurationVersionParams struct {
	// Status is "current" or "draft". Defaults to "draft".
	Status string `validate:"omitempty,oneof=current draft"`
}

// ValidationResult is the platform's verdict on a configuration document.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Wire shapes for configuration version operations.
type (
	configurationVersionCreateRequest struct {
		PipelineID    string                 `json:"pipelineId"`
		Configuration *PipelineConfiguration `json:"configuration"`
		Status        string                 `json:"status"`
	}

	configurationDocumentRequest struct {
		Configuration *PipelineConfiguration `json:"configuration"`
	}
)

// Create creates a pipeline.
func (s *PipelinesService) Create(ctx context.Context, params *PipelineCreateParams) (*Pipeline, error) {
	if params == nil {
		return nil, &apierror.ValidationError{Message: "pipeline create params are required"}
	}

	if err := validateParams("pipeline create params", params); err != nil {
		return nil, err
	}

	body := struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		TeamID      string `json:"teamId"`
	}{params.Name, params.Description, s.client.TeamID()}

	var pipeline Pipeline
	if err := s.client.post(ctx, "/pipelines", body, &pipeline); err != nil {
		return nil, err
	}

	s.attach(&pipeline)

	return &pipeline, nil
}

// Retrieve fetches a pipeline by ID.
func (s *PipelinesService) Retrieve(ctx context.Context, pipelineID string) (*Pipeline, error) {
	var pipeline Pipeline
	if err := s.client.get(ctx, "/pipelines/"+pipelineID, nil, &pipeline); err != nil {
		return nil, err
	}

	s.attach(&pipeline)

	return &pipeline, nil
}

// Update modifies a pipeline.
func (s *PipelinesService) Update(ctx context.Context, pipelineID string, params *PipelineUpdateParams) (*Pipeline, error) {
	if params == nil {
		return nil, &apierror.ValidationError{Message: "pipeline update params are required"}
	}

	var pipeline Pipeline
	if err := s.client.patch(ctx, "/pipelines/"+pipelineID, params, &pipeline); err != nil {
		return nil, err
	}

	s.attach(&pipeline)

	return &pipeline, nil
}

// Delete removes a pipeline from the platform.
func (s *PipelinesService) Delete(ctx context.Context, pipelineID string) error {
	return s.client.delete(ctx, "/pipelines/"+pipelineID)
}

// List fetches one page of pipelines for the client's team.
func (s *PipelinesService) List(ctx context.Context, params *PipelineListParams) (*Page[*Pipeline], error) {
	if params == nil {
		params = &PipelineListParams{}
	}

	if err := validateParams("pipeline list params", params); err != nil {
		return nil, err
	}

	var page Page[*Pipeline]
	if err := s.client.get(ctx, "/pipelines", params.values(s.client.TeamID()), &page); err != nil {
		return nil, err
	}

	s.attach(page.Items...)

	return &page, nil
}

// All iterates over every pipeline matching params, fetching pages lazily.
func (s *PipelinesService) All(ctx context.Context, params *PipelineListParams) iter.Seq2[*Pipeline, error] {
	return allPages(ctx, func(ctx context.Context, page int) (*Page[*Pipeline], error) {
		pageParams := PipelineListParams{}
		if params != nil {
			pageParams = *params
		}

		pageParams.Page = page

		return s.List(ctx, &pageParams)
	})
}

// CreateConfigurationVersion creates a new configuration version for a
// pipeline.
func (s *PipelinesService) CreateConfigurationVersion(ctx context.Context, pipelineID string, cfg *PipelineConfiguration, params *ConfigurationVersionParams) (*ConfigurationVersion, error) {
	if cfg == nil {
		return nil, &apierror.ValidationError{Message: "configuration is required"}
	}

	if params == nil {
		params = &ConfigurationVersionParams{}
	}

	if err := validateParams("configuration version params", params); err != nil {
		return nil, err
	}

	status := params.Status
	if status == "" {
		status = ConfigurationStatusDraft
	}

	body := &configurationVersionCreateRequest{
		PipelineID:    pipelineID,
		Configuration: cfg,
		Status:        status,
	}

	var version ConfigurationVersion
	if err := s.client.post(ctx, "/pipeline-configuration-versions", body, &version); err != nil {
		return nil, err
	}

	s.attachVersions(&version)

	return &version, nil
}

// ListConfigurationVersions fetches one page of a pipeline's configuration
// versions.
func (s *PipelinesService) ListConfigurationVersions(ctx context.Context, pipelineID string, params *ListParams) (*Page[*ConfigurationVersion], error) {
	if params == nil {
		params = &ListParams{}
	}

	if err := validateParams("configuration version list params", params); err != nil {
		return nil, err
	}

	query := params.values()
	query.Set("pipelineIds", pipelineID)

	var page Page[*ConfigurationVersion]
	if err := s.client.get(ctx, "/pipeline-configuration-versions", query, &page); err != nil {
		return nil, err
	}

	s.attachVersions(page.Items...)

	return &page, nil
}

// ValidateConfiguration asks the platform to validate a configuration
// document without creating a version.
func (s *PipelinesService) ValidateConfiguration(ctx context.Context, cfg *PipelineConfiguration) (*ValidationResult, error) {
	if cfg == nil {
		return nil, &apierror.ValidationError{Message: "configuration is required"}
	}

	var result ValidationResult

	body := &configurationDocumentRequest{Configuration: cfg}
	if err := s.client.post(ctx, "/pipeline-configuration-versions/validate", body, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// CloneConfigurationVersion copies an existing configuration version into a
// new draft.
func (s *PipelinesService) CloneConfigurationVersion(ctx context.Context, versionID string) (*ConfigurationVersion, error) {
	var version ConfigurationVersion
	if err := s.client.post(ctx, "/pipeline-configuration-versions/"+versionID+"/clone", nil, &version); err != nil {
		return nil, err
	}

	s.attachVersions(&version)

	return &version, nil
}

// UpdateConfigurationVersion replaces the configuration document of a
// version.
func (s *PipelinesService) UpdateConfigurationVersion(ctx context.Context, versionID string, cfg *PipelineConfiguration) (*ConfigurationVersion, error) {
	if cfg == nil {
		return nil, &apierror.ValidationError{Message: "configuration is required"}
	}

	body := &configurationDocumentRequest{Configuration: cfg}

	var version ConfigurationVersion
	if err := s.client.patch(ctx, "/pipeline-configuration-versions/"+versionID, body, &version); err != nil {
		return nil, err
	}

	s.attachVersions(&version)

	return &version, nil
}

func (s *PipelinesService) attach(pipelines ...*Pipeline) {
	for _, p := range pipelines {
		p.client = s.client
	}
}

func (s *PipelinesService) attachVersions(versions ...*ConfigurationVersion) {
	for _, v := range versions {
		v.client = s.client
	}
}
