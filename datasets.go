package moderately

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/url"
	"time"

	"github.com/moderately-ai/moderately-go/internal/apierror"
	"github.com/moderately-ai/moderately-go/internal/filetype"
)

// Dataset processing statuses reported by the platform.
const (
	DatasetStatusCompleted       = "completed"
	DatasetStatusProcessing      = "processing"
	DatasetStatusNeedsProcessing = "needs-processing"
	DatasetStatusError           = "error"
)

// Data version statuses.
const (
	DataVersionStatusCurrent = "current"
	DataVersionStatusDraft   = "draft"
)

// Data file types accepted by the platform.
const (
	DataFileTypeCSV  = "csv"
	DataFileTypeXLSX = "xlsx"
)

// Defaults for WaitForProcessing.
const (
	defaultProcessingPollInterval = 5 * time.Second
	defaultProcessingTimeout      = 60 * time.Second
)

// Dataset is a tabular dataset on the platform.
type Dataset struct {
	DatasetID              string    `json:"datasetId"`
	Name                   string    `json:"name"`
	Description            string    `json:"description,omitempty"`
	TeamID                 string    `json:"teamId"`
	ProcessingStatus       string    `json:"processingStatus,omitempty"`
	RecordCount            int64     `json:"recordCount,omitempty"`
	CurrentDataVersionID   string    `json:"currentDataVersionId,omitempty"`
	CurrentSchemaVersionID string    `json:"currentSchemaVersionId,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`

	client *Client
}

// IsProcessed reports whether the dataset finished processing.
func (d *Dataset) IsProcessed() bool {
	return d.ProcessingStatus == DatasetStatusCompleted
}

// HasData reports whether the dataset has a current data version.
func (d *Dataset) HasData() bool {
	return d.CurrentDataVersionID != ""
}

// HasSchema reports whether the dataset has a current schema version.
func (d *Dataset) HasSchema() bool {
	return d.CurrentSchemaVersionID != ""
}

// UploadData uploads a new data version to this dataset.
func (d *Dataset) UploadData(ctx context.Context, params *DataUploadParams) (*DataVersion, error) {
	if d.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return d.client.Datasets.UploadData(ctx, d.DatasetID, params)
}

// DownloadData fetches the current data version content into memory.
func (d *Dataset) DownloadData(ctx context.Context) ([]byte, error) {
	if d.client == nil {
		return nil, apierror.ErrNotAttached
	}

	if d.CurrentDataVersionID != "" {
		return d.client.Datasets.DownloadDataVersion(ctx, d.DatasetID, d.CurrentDataVersionID)
	}

	return d.client.Datasets.DownloadData(ctx, d.DatasetID)
}

// DownloadDataToFile streams the current data version content to path.
func (d *Dataset) DownloadDataToFile(ctx context.Context, path string) error {
	if d.client == nil {
		return apierror.ErrNotAttached
	}

	if d.CurrentDataVersionID != "" {
		return d.client.Datasets.DownloadDataVersionToFile(ctx, d.DatasetID, d.CurrentDataVersionID, path)
	}

	return d.client.Datasets.DownloadDataToFile(ctx, d.DatasetID, path)
}

// CreateSchema creates a schema version for this dataset.
func (d *Dataset) CreateSchema(ctx context.Context, columns []Column, params *SchemaCreateParams) (*SchemaVersion, error) {
	if d.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return d.client.Datasets.CreateSchema(ctx, d.DatasetID, columns, params)
}

// CreateSchemaFromSample infers a schema from a CSV sample and creates it.
func (d *Dataset) CreateSchemaFromSample(ctx context.Context, params *SchemaFromSampleParams) (*SchemaVersion, error) {
	if d.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return d.client.Datasets.CreateSchemaFromSample(ctx, d.DatasetID, params)
}

// CurrentSchema fetches the dataset's current schema version.
func (d *Dataset) CurrentSchema(ctx context.Context) (*SchemaVersion, error) {
	if d.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return d.client.Datasets.CurrentSchema(ctx, d.DatasetID)
}

// WaitForProcessing polls until the dataset finishes processing.
func (d *Dataset) WaitForProcessing(ctx context.Context, params *ProcessingWaitParams) (*Dataset, error) {
	if d.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return d.client.Datasets.WaitForProcessing(ctx, d.DatasetID, params)
}

// Update modifies the dataset in place.
func (d *Dataset) Update(ctx context.Context, params *DatasetUpdateParams) error {
	if d.client == nil {
		return apierror.ErrNotAttached
	}

	fresh, err := d.client.Datasets.Update(ctx, d.DatasetID, params)
	if err != nil {
		return err
	}

	*d = *fresh

	return nil
}

// Delete removes the dataset from the platform.
func (d *Dataset) Delete(ctx context.Context) error {
	if d.client == nil {
		return apierror.ErrNotAttached
	}

	return d.client.Datasets.Delete(ctx, d.DatasetID)
}

// Refresh refetches the dataset in place.
func (d *Dataset) Refresh(ctx context.Context) error {
	if d.client == nil {
		return apierror.ErrNotAttached
	}

	fresh, err := d.client.Datasets.Retrieve(ctx, d.DatasetID)
	if err != nil {
		return err
	}

	*d = *fresh

	return nil
}

// DataVersion is one uploaded revision of a dataset's data.
type DataVersion struct {
	DataVersionID string    `json:"datasetDataVersionId"`
	DatasetID     string    `json:"datasetId"`
	VersionNo     int       `json:"versionNo"`
	FileID        string    `json:"fileId,omitempty"`
	RowCount      int64     `json:"rowCount,omitempty"`
	FileType      string    `json:"fileType"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsCurrent reports whether this version is the dataset's current data.
func (v *DataVersion) IsCurrent() bool {
	return v.Status == DataVersionStatusCurrent
}

// DatasetsService manages datasets, their data versions, and schemas.
// Access it via Client.Datasets.
type DatasetsService struct {
	client *Client
}

// DatasetCreateParams describe a dataset to create.
type DatasetCreateParams struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// DatasetUpdateParams describe a dataset modification.
// Nil or zero fields are left unchanged.
type DatasetUpdateParams struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	// ShouldProcess asks the platform to (re)process the dataset's data
	// against its schema.
	ShouldProcess *bool `json:"shouldProcess,omitempty"`
}

// DatasetListParams filter dataset listings.
type DatasetListParams struct {
	ListParams

	// DatasetIDs restricts the listing to the given datasets.
	DatasetIDs []string

	// Name matches the dataset name exactly.
	Name string

	// NameLike matches the dataset name by substring.
	NameLike string
}

func (p *DatasetListParams) values(teamID string) url.Values {
	query := p.ListParams.values()
	query.Set("teamIds", teamID)

	for _, id := range p.DatasetIDs {
		query.Add("datasetIds", id)
	}

	if p.Name != "" {
		query.Set("name", p.Name)
	}

	if p.NameLike != "" {
		query.Set("nameLike", p.NameLike)
	}

	return query
}

// DataUploadParams describe data to upload into a dataset.
// The content source resolves like FileUploadParams: one of Path, Data, or
// Reader, with Name required for the latter two.
type DataUploadParams struct {
	Path   string
	Data   []byte
	Reader io.Reader
	Name   string

	// FileType is "csv" or "xlsx". Detected from the file name when empty.
	FileType string `validate:"omitempty,oneof=csv xlsx"`

	// Status is "current" or "draft". Defaults to "current".
	Status string `validate:"omitempty,oneof=current draft"`

	// SkipDedupe bypasses the upload cache for this call.
	SkipDedupe bool
}

// DataVersionListParams filter data version listings.
type DataVersionListParams struct {
	ListParams

	// Status restricts the listing to "current" or "draft" versions.
	Status string `validate:"omitempty,oneof=current draft"`
}

// ProcessingWaitParams tune WaitForProcessing polling.
type ProcessingWaitParams struct {
	// PollInterval is the time between status checks. Defaults to 5s.
	PollInterval time.Duration

	// Timeout caps the total wait. Defaults to 60s.
	Timeout time.Duration
}

// Wire shapes for the data version choreography.
type (
	dataVersionCreateRequest struct {
		FileType string `json:"fileType"`
		Status   string `json:"status"`
	}

	dataVersionLinkRequest struct {
		FileID string `json:"fileId"`
	}
)

// Create creates an empty dataset.
func (s *DatasetsService) Create(ctx context.Context, params *DatasetCreateParams) (*Dataset, error) {
	if params == nil {
		return nil, &apierror.ValidationError{Message: "dataset create params are required"}
	}

	if err := validateParams("dataset create params", params); err != nil {
		return nil, err
	}

	body := struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		TeamID      string `json:"teamId"`
	}{params.Name, params.Description, s.client.TeamID()}

	var dataset Dataset
	if err := s.client.post(ctx, "/datasets", body, &dataset); err != nil {
		return nil, err
	}

	s.attach(&dataset)

	return &dataset, nil
}

// Retrieve fetches a dataset by ID.
func (s *DatasetsService) Retrieve(ctx context.Context, datasetID string) (*Dataset, error) {
	var dataset Dataset
	if err := s.client.get(ctx, "/datasets/"+datasetID, nil, &dataset); err != nil {
		return nil, err
	}

	s.attach(&dataset)

	return &dataset, nil
}

// Update modifies a dataset.
func (s *DatasetsService) Update(ctx context.Context, datasetID string, params *DatasetUpdateParams) (*Dataset, error) {
	if params == nil {
		return nil, &apierror.ValidationError{Message: "dataset update params are required"}
	}

	var dataset Dataset
	if err := s.client.patch(ctx, "/datasets/"+datasetID, params, &dataset); err != nil {
		return nil, err
	}

	s.attach(&dataset)

	return &dataset, nil
}

// Delete removes a dataset from the platform.
func (s *DatasetsService) Delete(ctx context.Context, datasetID string) error {
	return s.client.delete(ctx, "/datasets/"+datasetID)
}

// List fetches one page of datasets for the client's team.
func (s *DatasetsService) List(ctx context.Context, params *DatasetListParams) (*Page[*Dataset], error) {
	if params == nil {
		params = &DatasetListParams{}
	}

	if err := validateParams("dataset list params", params); err != nil {
		return nil, err
	}

	var page Page[*Dataset]
	if err := s.client.get(ctx, "/datasets", params.values(s.client.TeamID()), &page); err != nil {
		return nil, err
	}

	s.attach(page.Items...)

	return &page, nil
}

// All iterates over every dataset matching params, fetching pages lazily.
func (s *DatasetsService) All(ctx context.Context, params *DatasetListParams) iter.Seq2[*Dataset, error] {
	return allPages(ctx, func(ctx context.Context, page int) (*Page[*Dataset], error) {
		pageParams := DatasetListParams{}
		if params != nil {
			pageParams = *params
		}

		pageParams.Page = page

		return s.List(ctx, &pageParams)
	})
}

// UploadData uploads a new data version into a dataset.
//
// The upload runs in five steps: create the data version record, then the
// three-step file upload, then link the uploaded file to the version.
// FileType is detected from the file name when omitted; Status defaults to
// "current".
func (s *DatasetsService) UploadData(ctx context.Context, datasetID string, params *DataUploadParams) (*DataVersion, error) {
	if params == nil {
		return nil, &apierror.ValidationError{Message: "data upload params are required"}
	}

	if err := validateParams("data upload params", params); err != nil {
		return nil, err
	}

	fileParams := &FileUploadParams{
		Path:       params.Path,
		Data:       params.Data,
		Reader:     params.Reader,
		Name:       params.Name,
		SkipDedupe: params.SkipDedupe,
	}

	data, name, err := fileParams.resolve()
	if err != nil {
		return nil, err
	}

	fileType := params.FileType
	if fileType == "" {
		fileType = detectDataFileType(name)
	}

	status := params.Status
	if status == "" {
		status = DataVersionStatusCurrent
	}

	var version DataVersion

	createReq := &dataVersionCreateRequest{FileType: fileType, Status: status}
	if err := s.client.post(ctx, "/datasets/"+datasetID+"/data-versions", createReq, &version); err != nil {
		return nil, err
	}

	// The source is already in memory; hand it to the file upload as bytes.
	fileParams.Path, fileParams.Reader = "", nil
	fileParams.Data, fileParams.Name = data, name

	file, err := s.client.Files.Upload(ctx, fileParams)
	if err != nil {
		return nil, err
	}

	linkReq := &dataVersionLinkRequest{FileID: file.FileID}

	var linked DataVersion
	if err := s.client.patch(ctx, "/datasets/"+datasetID+"/data-versions/"+version.DataVersionID, linkReq, &linked); err != nil {
		return nil, err
	}

	s.client.log.Debug("data version uploaded",
		"dataset_id", datasetID, "data_version_id", linked.DataVersionID, "file_id", file.FileID)

	return &linked, nil
}

// detectDataFileType maps a file name to the platform's data file types.
func detectDataFileType(name string) string {
	switch filetype.Extension(name) {
	case ".xlsx", ".xls":
		return DataFileTypeXLSX
	default:
		return DataFileTypeCSV
	}
}

// currentDataVersionID resolves the dataset's current data version.
func (s *DatasetsService) currentDataVersionID(ctx context.Context, datasetID string) (string, error) {
	dataset, err := s.Retrieve(ctx, datasetID)
	if err != nil {
		return "", err
	}

	if dataset.CurrentDataVersionID == "" {
		return "", fmt.Errorf("dataset %s: %w", datasetID, apierror.ErrNoCurrentDataVersion)
	}

	return dataset.CurrentDataVersionID, nil
}

// dataVersionDownloadURL asks the API for a presigned data download URL.
func (s *DatasetsService) dataVersionDownloadURL(ctx context.Context, datasetID, versionID string) (string, error) {
	var out downloadURLResponse

	path := "/datasets/" + datasetID + "/data-versions/" + versionID + "/download"
	if err := s.client.get(ctx, path, nil, &out); err != nil {
		return "", err
	}

	return out.DownloadURL, nil
}

// DownloadData fetches the dataset's current data version into memory.
func (s *DatasetsService) DownloadData(ctx context.Context, datasetID string) ([]byte, error) {
	versionID, err := s.currentDataVersionID(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	return s.DownloadDataVersion(ctx, datasetID, versionID)
}

// DownloadDataVersion fetches a specific data version into memory.
func (s *DatasetsService) DownloadDataVersion(ctx context.Context, datasetID, versionID string) ([]byte, error) {
	downloadURL, err := s.dataVersionDownloadURL(ctx, datasetID, versionID)
	if err != nil {
		return nil, err
	}

	return s.client.download(ctx, downloadURL)
}

// DownloadDataToFile streams the dataset's current data version to path.
func (s *DatasetsService) DownloadDataToFile(ctx context.Context, datasetID, path string) error {
	versionID, err := s.currentDataVersionID(ctx, datasetID)
	if err != nil {
		return err
	}

	return s.DownloadDataVersionToFile(ctx, datasetID, versionID, path)
}

// DownloadDataVersionToFile streams a specific data version to path.
func (s *DatasetsService) DownloadDataVersionToFile(ctx context.Context, datasetID, versionID, path string) error {
	downloadURL, err := s.dataVersionDownloadURL(ctx, datasetID, versionID)
	if err != nil {
		return err
	}

	return s.client.downloadToFile(ctx, downloadURL, path, "")
}

// ListDataVersions fetches one page of a dataset's data versions.
func (s *DatasetsService) ListDataVersions(ctx context.Context, datasetID string, params *DataVersionListParams) (*Page[*DataVersion], error) {
	if params == nil {
		params = &DataVersionListParams{}
	}

	if err := validateParams("data version list params", params); err != nil {
		return nil, err
	}

	query := params.ListParams.values()
	query.Set("datasetIds", datasetID)

	if params.Status != "" {
		query.Set("status", params.Status)
	}

	var page Page[*DataVersion]
	if err := s.client.get(ctx, "/dataset-data-versions", query, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// WaitForProcessing polls the dataset until processing completes.
//
// A dataset that reaches the "error" status fails the wait with a
// *ProcessingError. Exceeding the timeout fails with ErrWaitTimeout.
func (s *DatasetsService) WaitForProcessing(ctx context.Context, datasetID string, params *ProcessingWaitParams) (*Dataset, error) {
	if params == nil {
		params = &ProcessingWaitParams{}
	}

	interval := params.PollInterval
	if interval <= 0 {
		interval = defaultProcessingPollInterval
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultProcessingTimeout
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)

	defer ticker.Stop()

	for {
		dataset, err := s.Retrieve(ctx, datasetID)
		if err != nil {
			return nil, err
		}

		switch dataset.ProcessingStatus {
		case DatasetStatusCompleted:
			return dataset, nil
		case DatasetStatusError:
			return nil, &apierror.ProcessingError{DatasetID: datasetID, Status: dataset.ProcessingStatus}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("dataset %s processing: %w after %s", datasetID, apierror.ErrWaitTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *DatasetsService) attach(datasets ...*Dataset) {
	for _, d := range datasets {
		d.client = s.client
	}
}
