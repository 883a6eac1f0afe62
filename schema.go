package moderately

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/moderately-ai/moderately-go/internal/apierror"
	"github.com/moderately-ai/moderately-go/internal/schema"
)

// ColumnType enumerates the column types the platform understands.
type ColumnType string

const (
	ColumnTypeString   ColumnType = schema.TypeString
	ColumnTypeInt      ColumnType = schema.TypeInt
	ColumnTypeFloat    ColumnType = schema.TypeFloat
	ColumnTypeBoolean  ColumnType = schema.TypeBoolean
	ColumnTypeDate     ColumnType = schema.TypeDate
	ColumnTypeTime     ColumnType = schema.TypeTime
	ColumnTypeDateTime ColumnType = schema.TypeDateTime
)

// Schema version statuses.
const (
	SchemaStatusCurrent = "current"
	SchemaStatusDraft   = "draft"
)

// Column describes one column of a dataset schema.
type Column struct {
	Name        string     `json:"name" validate:"required"`
	Type        ColumnType `json:"type" validate:"required,oneof=string int float boolean date time datetime"`
	Required    bool       `json:"required"`
	Description string     `json:"description,omitempty"`
	Nullable    bool       `json:"nullable"`
}

// ParsingOptions tell the platform how to parse uploaded tabular data.
type ParsingOptions struct {
	Delimiter string `json:"delimiter"`
	HeaderRow int    `json:"headerRow"`
	Encoding  string `json:"encoding"`
}

// DefaultParsingOptions returns the platform defaults: comma-delimited
// UTF-8 with the header on row 1.
func DefaultParsingOptions() ParsingOptions {
	return ParsingOptions{Delimiter: ",", HeaderRow: 1, Encoding: "utf-8"}
}

// SchemaVersion is one revision of a dataset's schema.
type SchemaVersion struct {
	SchemaVersionID string          `json:"datasetSchemaVersionId"`
	DatasetID       string          `json:"datasetId"`
	Columns         []Column        `json:"columns"`
	Status          string          `json:"status"`
	ParsingOptions  *ParsingOptions `json:"parsingOptions,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// IsCurrent reports whether this version is the dataset's active schema.
func (v *SchemaVersion) IsCurrent() bool {
	return v.Status == SchemaStatusCurrent
}

// Column returns the named column, or nil.
func (v *SchemaVersion) Column(name string) *Column {
	for i := range v.Columns {
		if v.Columns[i].Name == name {
			return &v.Columns[i]
		}
	}

	return nil
}

// JSONSchema exports the column set as a JSON Schema object, usable as a
// pipeline input block schema.
func (v *SchemaVersion) JSONSchema() *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(v.Columns))
	required := make([]string, 0, len(v.Columns))

	for _, col := range v.Columns {
		properties[col.Name] = columnJSONSchema(col)

		if col.Required {
			required = append(required, col.Name)
		}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// columnJSONSchema maps a platform column type to a JSON Schema node.
func columnJSONSchema(col Column) *jsonschema.Schema {
	node := &jsonschema.Schema{Description: col.Description}

	switch col.Type {
	case ColumnTypeInt:
		node.Type = "integer"
	case ColumnTypeFloat:
		node.Type = "number"
	case ColumnTypeBoolean:
		node.Type = "boolean"
	case ColumnTypeDate:
		node.Type = "string"
		node.Format = "date"
	case ColumnTypeTime:
		node.Type = "string"
		node.Format = "time"
	case ColumnTypeDateTime:
		node.Type = "string"
		node.Format = "date-time"
	default:
		node.Type = "string"
	}

	return node
}

// SchemaCreateParams tune schema creation.
type SchemaCreateParams struct {
	// Status is "current" or "draft". Defaults to "current".
	Status string `validate:"omitempty,oneof=current draft"`

	// ParsingOptions defaults to comma-delimited UTF-8, header on row 1.
	ParsingOptions *ParsingOptions
}

// SchemaFromSampleParams tune CSV schema inference.
// One of Path or Reader is required.
type SchemaFromSampleParams struct {
	// Path is a local CSV file to sample.
	Path string

	// Reader supplies CSV content directly.
	Reader io.Reader

	// Status is "current" or "draft". Defaults to "draft" so an inferred
	// schema can be reviewed before activation.
	Status string `validate:"omitempty,oneof=current draft"`

	// HeaderRow is the 1-based row holding column names. Defaults to 1.
	HeaderRow int `validate:"omitempty,gte=1"`

	// SampleSize caps the number of data rows examined. Defaults to 100.
	SampleSize int `validate:"omitempty,gte=1"`

	// Delimiter is the field separator. Defaults to ','.
	Delimiter rune
}

// Wire shape for schema creation.
type schemaCreateRequest struct {
	Columns        []Column        `json:"columns"`
	Status         string          `json:"status"`
	ParsingOptions *ParsingOptions `json:"parsingOptions"`
}

// CreateSchema creates a schema version for a dataset.
// Columns are validated client-side before the request is sent.
func (s *DatasetsService) CreateSchema(ctx context.Context, datasetID string, columns []Column, params *SchemaCreateParams) (*SchemaVersion, error) {
	if len(columns) == 0 {
		return nil, &apierror.ValidationError{Message: "schema create params: at least one column is required"}
	}

	for i := range columns {
		if err := validateParams(fmt.Sprintf("schema column %q", columns[i].Name), &columns[i]); err != nil {
			return nil, err
		}
	}

	if params == nil {
		params = &SchemaCreateParams{}
	}

	if err := validateParams("schema create params", params); err != nil {
		return nil, err
	}

	status := params.Status
	if status == "" {
		status = SchemaStatusCurrent
	}

	parsing := params.ParsingOptions
	if parsing == nil {
		defaults := DefaultParsingOptions()
		parsing = &defaults
	}

	body := &schemaCreateRequest{Columns: columns, Status: status, ParsingOptions: parsing}

	var version SchemaVersion
	if err := s.client.post(ctx, "/datasets/"+datasetID+"/schema-versions", body, &version); err != nil {
		return nil, err
	}

	return &version, nil
}

// CreateSchemaFromSample infers column types from a CSV sample and creates
// the resulting schema.
//
// Inference probes each column in order: int, float, boolean, date, time,
// datetime, then string. Empty cells don't vote but mark the column
// nullable and not required.
func (s *DatasetsService) CreateSchemaFromSample(ctx context.Context, datasetID string, params *SchemaFromSampleParams) (*SchemaVersion, error) {
	if params == nil {
		return nil, &apierror.ValidationError{Message: "schema sample params are required"}
	}

	if err := validateParams("schema sample params", params); err != nil {
		return nil, err
	}

	var reader io.Reader

	switch {
	case params.Path != "":
		data, err := os.ReadFile(params.Path)
		if err != nil {
			return nil, fmt.Errorf("read sample: %w", err)
		}

		reader = bytes.NewReader(data)

	case params.Reader != nil:
		reader = params.Reader

	default:
		return nil, &apierror.ValidationError{Message: "schema sample params: one of Path or Reader is required"}
	}

	inferred, err := schema.InferCSV(reader, schema.Options{
		HeaderRow:  params.HeaderRow,
		SampleSize: params.SampleSize,
		Delimiter:  params.Delimiter,
	})
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}

	columns := make([]Column, len(inferred))
	for i, col := range inferred {
		columns[i] = Column{
			Name:     col.Name,
			Type:     ColumnType(col.Type),
			Required: !col.Nullable,
			Nullable: col.Nullable,
		}
	}

	status := params.Status
	if status == "" {
		status = SchemaStatusDraft
	}

	parsing := DefaultParsingOptions()
	if params.Delimiter != 0 {
		parsing.Delimiter = string(params.Delimiter)
	}

	if params.HeaderRow > 0 {
		parsing.HeaderRow = params.HeaderRow
	}

	s.client.log.Debug("schema inferred", "dataset_id", datasetID, "columns", len(columns))

	return s.CreateSchema(ctx, datasetID, columns, &SchemaCreateParams{
		Status:         status,
		ParsingOptions: &parsing,
	})
}

// CurrentSchema fetches a dataset's current schema version, or
// ErrNoCurrentSchema when none is active.
func (s *DatasetsService) CurrentSchema(ctx context.Context, datasetID string) (*SchemaVersion, error) {
	query := url.Values{}
	query.Set("datasetIds", datasetID)
	query.Set("status", SchemaStatusCurrent)
	query.Set("pageSize", "1")

	var page Page[*SchemaVersion]
	if err := s.client.get(ctx, "/dataset-schema-versions", query, &page); err != nil {
		return nil, err
	}

	if len(page.Items) == 0 {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, apierror.ErrNoCurrentSchema)
	}

	return page.Items[0], nil
}

// SchemaBuilder builds a schema version fluently.
//
//	version, err := client.Datasets.SchemaBuilder(datasetID).
//	    AddColumn("name", moderately.ColumnTypeString, moderately.ColumnRequired()).
//	    AddColumn("age", moderately.ColumnTypeInt).
//	    AsCurrent().
//	    Create(ctx)
type SchemaBuilder struct {
	service   *DatasetsService
	datasetID string
	columns   []Column
	params    SchemaCreateParams
}

// SchemaBuilder starts a fluent schema definition for a dataset.
func (s *DatasetsService) SchemaBuilder(datasetID string) *SchemaBuilder {
	return &SchemaBuilder{service: s, datasetID: datasetID}
}

// ColumnOption customizes a column added via AddColumn.
type ColumnOption func(*Column)

// ColumnRequired marks the column as required.
func ColumnRequired() ColumnOption {
	return func(c *Column) {
		c.Required = true
	}
}

// ColumnNullable marks the column as nullable.
func ColumnNullable() ColumnOption {
	return func(c *Column) {
		c.Nullable = true
	}
}

// ColumnDescription sets the column description.
func ColumnDescription(description string) ColumnOption {
	return func(c *Column) {
		c.Description = description
	}
}

// AddColumn appends a column to the schema.
func (b *SchemaBuilder) AddColumn(name string, columnType ColumnType, opts ...ColumnOption) *SchemaBuilder {
	col := Column{Name: name, Type: columnType}
	for _, opt := range opts {
		opt(&col)
	}

	b.columns = append(b.columns, col)

	return b
}

// WithParsing sets the parsing options for the schema.
func (b *SchemaBuilder) WithParsing(parsing ParsingOptions) *SchemaBuilder {
	b.params.ParsingOptions = &parsing

	return b
}

// AsCurrent marks the schema version as current on creation.
func (b *SchemaBuilder) AsCurrent() *SchemaBuilder {
	b.params.Status = SchemaStatusCurrent

	return b
}

// AsDraft marks the schema version as a draft on creation.
func (b *SchemaBuilder) AsDraft() *SchemaBuilder {
	b.params.Status = SchemaStatusDraft

	return b
}

// Create sends the built schema to the platform.
func (b *SchemaBuilder) Create(ctx context.Context) (*SchemaVersion, error) {
	return b.service.CreateSchema(ctx, b.datasetID, b.columns, &b.params)
}
