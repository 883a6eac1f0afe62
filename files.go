package moderately

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moderately-ai/moderately-go/internal/apierror"
	"github.com/moderately-ai/moderately-go/internal/filetype"
)

// File statuses reported by the platform.
const (
	FileStatusPending    = "pending"
	FileStatusProcessing = "processing"
	FileStatusCompleted  = "completed"
	FileStatusError      = "error"
)

// defaultUploadConcurrency bounds parallel transfers in UploadMany.
const defaultUploadConcurrency = 4

// File is a file stored on the platform.
type File struct {
	FileID    string         `json:"fileId"`
	TeamID    string         `json:"teamId"`
	Name      string         `json:"name"`
	MimeType  string         `json:"mimeType"`
	FileSize  int64          `json:"fileSize"`
	FileHash  string         `json:"fileHash"`
	Status    string         `json:"status"`
	DatasetID string         `json:"datasetId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`

	client *Client
}

// Extension returns the lowercased file extension including the dot.
func (f *File) Extension() string {
	return filetype.Extension(f.Name)
}

// IsCSV reports whether the file is a CSV.
func (f *File) IsCSV() bool {
	return filetype.KindOf(f.MimeType, f.Name) == filetype.KindCSV
}

// IsDocument reports whether the file is a document (PDF, Word, ...).
func (f *File) IsDocument() bool {
	return filetype.KindOf(f.MimeType, f.Name) == filetype.KindDocument
}

// IsImage reports whether the file is an image.
func (f *File) IsImage() bool {
	return filetype.KindOf(f.MimeType, f.Name) == filetype.KindImage
}

// IsText reports whether the file is plain text.
func (f *File) IsText() bool {
	return filetype.KindOf(f.MimeType, f.Name) == filetype.KindText
}

// IsReady reports whether the file finished processing.
func (f *File) IsReady() bool {
	return f.Status == FileStatusCompleted
}

// IsProcessing reports whether the file is still being processed.
func (f *File) IsProcessing() bool {
	return f.Status == FileStatusPending || f.Status == FileStatusProcessing
}

// HasError reports whether processing failed.
func (f *File) HasError() bool {
	return f.Status == FileStatusError
}

// Download fetches the file content into memory.
func (f *File) Download(ctx context.Context) ([]byte, error) {
	if f.client == nil {
		return nil, apierror.ErrNotAttached
	}

	return f.client.Files.Download(ctx, f.FileID)
}

// DownloadToFile streams the file content to path, verifying the content
// hash.
func (f *File) DownloadToFile(ctx context.Context, path string) error {
	if f.client == nil {
		return apierror.ErrNotAttached
	}

	downloadURL, err := f.client.Files.downloadURL(ctx, f.FileID)
	if err != nil {
		return err
	}

	return f.client.downloadToFile(ctx, downloadURL, path, f.FileHash)
}

// Delete removes the file from the platform.
func (f *File) Delete(ctx context.Context) error {
	if f.client == nil {
		return apierror.ErrNotAttached
	}

	return f.client.Files.Delete(ctx, f.FileID)
}

// Refresh refetches the file metadata in place.
func (f *File) Refresh(ctx context.Context) error {
	if f.client == nil {
		return apierror.ErrNotAttached
	}

	fresh, err := f.client.Files.Retrieve(ctx, f.FileID)
	if err != nil {
		return err
	}

	*f = *fresh

	return nil
}

// FilesService manages file upload, download, and metadata.
// Access it via Client.Files.
type FilesService struct {
	client *Client
}

// FileUploadParams describes a file to upload.
// Exactly one of Path, Data, or Reader must be set; Data and Reader require
// Name.
type FileUploadParams struct {
	// Path is a local file to read and upload.
	Path string

	// Data is in-memory content to upload. An empty non-nil slice uploads
	// an empty file.
	Data []byte

	// Reader is streamed content to upload. It is read fully before the
	// transfer so the content hash can be computed.
	Reader io.Reader

	// Name is the file name on the platform. Defaults to the base name of
	// Path.
	Name string

	// MimeType overrides content-type detection from the file name.
	MimeType string

	// Metadata is attached to the file record.
	Metadata map[string]any

	// SkipDedupe bypasses the upload cache for this call.
	SkipDedupe bool
}

// resolve reads the upload source into memory and fills in the name.
func (p *FileUploadParams) resolve() (data []byte, name string, err error) {
	switch {
	case p.Path != "":
		data, err = os.ReadFile(p.Path)
		if err != nil {
			return nil, "", fmt.Errorf("read upload source: %w", err)
		}

		name = p.Name
		if name == "" {
			name = filepath.Base(p.Path)
		}

	case p.Data != nil:
		if p.Name == "" {
			return nil, "", &apierror.ValidationError{Message: "upload params: Name is required with Data"}
		}

		data, name = p.Data, p.Name

	case p.Reader != nil:
		if p.Name == "" {
			return nil, "", &apierror.ValidationError{Message: "upload params: Name is required with Reader"}
		}

		data, err = io.ReadAll(p.Reader)
		if err != nil {
			return nil, "", fmt.Errorf("read upload source: %w", err)
		}

		name = p.Name

	default:
		return nil, "", &apierror.ValidationError{Message: "upload params: one of Path, Data, or Reader is required"}
	}

	return data, name, nil
}

// FileListParams filter file listings.
type FileListParams struct {
	ListParams

	// DatasetID restricts the listing to files in a dataset.
	DatasetID string

	// Status restricts the listing to files in the given status.
	Status string

	// MimeType restricts the listing by content type.
	MimeType string

	// FileHashes restricts the listing to files with the given content
	// hashes.
	FileHashes []string
}

func (p *FileListParams) values(teamID string) url.Values {
	query := p.ListParams.values()
	query.Set("teamIds", teamID)

	if p.DatasetID != "" {
		query.Set("datasetId", p.DatasetID)
	}

	if p.Status != "" {
		query.Set("status", p.Status)
	}

	if p.MimeType != "" {
		query.Set("mimeType", p.MimeType)
	}

	for _, hash := range p.FileHashes {
		query.Add("fileHashes", hash)
	}

	return query
}

// Wire shapes for the upload choreography.
type (
	uploadURLRequest struct {
		TeamID   string         `json:"teamId"`
		Name     string         `json:"name"`
		MimeType string         `json:"mimeType"`
		FileSize int64          `json:"fileSize"`
		FileHash string         `json:"fileHash"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}

	uploadURLResponse struct {
		FileID    string `json:"fileId"`
		UploadURL string `json:"uploadUrl"`
	}

	uploadCompleteRequest struct {
		FileHash string `json:"fileHash"`
		FileSize int64  `json:"fileSize"`
	}

	downloadURLResponse struct {
		DownloadURL string `json:"downloadUrl"`
	}
)

// Upload uploads content to the platform.
//
// The upload runs in three steps: request a presigned URL, PUT the content
// to storage, then confirm completion so the server can verify size and
// hash. When the upload cache is enabled, content already known by hash is
// not transferred again.
func (s *FilesService) Upload(ctx context.Context, params *FileUploadParams) (*File, error) {
	if params == nil {
		return nil, &apierror.ValidationError{Message: "upload params are required"}
	}

	data, name, err := params.resolve()
	if err != nil {
		return nil, err
	}

	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = filetype.DetectMIME(name)
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])

	if !params.SkipDedupe {
		if existing := s.dedupe(ctx, fileHash); existing != nil {
			s.client.log.Debug("upload deduplicated", "name", name, "file_id", existing.FileID)

			return existing, nil
		}
	}

	var created uploadURLResponse

	createReq := &uploadURLRequest{
		TeamID:   s.client.TeamID(),
		Name:     name,
		MimeType: mimeType,
		FileSize: int64(len(data)),
		FileHash: fileHash,
		Metadata: params.Metadata,
	}
	if err := s.client.post(ctx, "/files/upload-url", createReq, &created); err != nil {
		return nil, err
	}

	if err := s.client.upload(ctx, created.UploadURL, mimeType, data); err != nil {
		return nil, err
	}

	var file File

	completeReq := &uploadCompleteRequest{FileHash: fileHash, FileSize: int64(len(data))}
	if err := s.client.post(ctx, "/files/"+created.FileID+"/complete", completeReq, &file); err != nil {
		return nil, err
	}

	s.cacheStore(fileHash, file.FileID)
	s.attach(&file)

	s.client.log.Debug("file uploaded", "name", name, "file_id", file.FileID, "bytes", len(data))

	return &file, nil
}

// dedupe looks for an existing file with the given content hash, first in
// the local cache, then on the server. Misses and lookup failures return
// nil so the upload proceeds.
func (s *FilesService) dedupe(ctx context.Context, fileHash string) *File {
	if s.client.cache == nil {
		return nil
	}

	if fileID, ok, err := s.client.cache.Lookup(fileHash); err == nil && ok {
		file, err := s.Retrieve(ctx, fileID)
		if err == nil {
			return file
		}
	}

	page, err := s.List(ctx, &FileListParams{
		ListParams: ListParams{PageSize: 1},
		FileHashes: []string{fileHash},
	})
	if err != nil || len(page.Items) == 0 {
		return nil
	}

	s.cacheStore(fileHash, page.Items[0].FileID)

	return page.Items[0]
}

// cacheStore records a hash to file ID mapping, best effort.
func (s *FilesService) cacheStore(fileHash, fileID string) {
	if s.client.cache == nil {
		return
	}

	if err := s.client.cache.Store(fileHash, fileID); err != nil {
		s.client.log.Warn("upload cache store failed", "error", err)
	}
}

// UploadMany uploads several files with bounded concurrency.
// Results are returned in input order. The first failure cancels the
// remaining uploads.
func (s *FilesService) UploadMany(ctx context.Context, params []*FileUploadParams) ([]*File, error) {
	files := make([]*File, len(params))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultUploadConcurrency)

	for i, p := range params {
		g.Go(func() error {
			file, err := s.Upload(ctx, p)
			if err != nil {
				return err
			}

			files[i] = file

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return files, nil
}

// Retrieve fetches file metadata by ID.
func (s *FilesService) Retrieve(ctx context.Context, fileID string) (*File, error) {
	var file File
	if err := s.client.get(ctx, "/files/"+fileID, nil, &file); err != nil {
		return nil, err
	}

	s.attach(&file)

	return &file, nil
}

// Delete removes a file from the platform.
func (s *FilesService) Delete(ctx context.Context, fileID string) error {
	return s.client.delete(ctx, "/files/"+fileID)
}

// downloadURL asks the API for a presigned download URL.
func (s *FilesService) downloadURL(ctx context.Context, fileID string) (string, error) {
	var out downloadURLResponse
	if err := s.client.get(ctx, "/files/"+fileID+"/download", nil, &out); err != nil {
		return "", err
	}

	return out.DownloadURL, nil
}

// Download fetches the file content into memory.
func (s *FilesService) Download(ctx context.Context, fileID string) ([]byte, error) {
	downloadURL, err := s.downloadURL(ctx, fileID)
	if err != nil {
		return nil, err
	}

	return s.client.download(ctx, downloadURL)
}

// DownloadToFile streams the file content to path. The content hash from
// the file record is verified before the file lands at path.
func (s *FilesService) DownloadToFile(ctx context.Context, fileID, path string) error {
	file, err := s.Retrieve(ctx, fileID)
	if err != nil {
		return err
	}

	return file.DownloadToFile(ctx, path)
}

// List fetches one page of files for the client's team.
func (s *FilesService) List(ctx context.Context, params *FileListParams) (*Page[*File], error) {
	if params == nil {
		params = &FileListParams{}
	}

	if err := validateParams("file list params", params); err != nil {
		return nil, err
	}

	var page Page[*File]
	if err := s.client.get(ctx, "/files", params.values(s.client.TeamID()), &page); err != nil {
		return nil, err
	}

	s.attach(page.Items...)

	return &page, nil
}

// All iterates over every file matching params, fetching pages lazily.
//
//	for file, err := range client.Files.All(ctx, nil) {
//	    if err != nil {
//	        return err
//	    }
//	    // use file...
//	}
func (s *FilesService) All(ctx context.Context, params *FileListParams) iter.Seq2[*File, error] {
	return allPages(ctx, func(ctx context.Context, page int) (*Page[*File], error) {
		pageParams := FileListParams{}
		if params != nil {
			pageParams = *params
		}

		pageParams.Page = page

		return s.List(ctx, &pageParams)
	})
}

func (s *FilesService) attach(files ...*File) {
	for _, f := range files {
		f.client = s.client
	}
}
