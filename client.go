package moderately

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"github.com/moderately-ai/moderately-go/internal/apierror"
	"github.com/moderately-ai/moderately-go/internal/config"
	"github.com/moderately-ai/moderately-go/internal/transport"
	"github.com/moderately-ai/moderately-go/internal/uploadcache"
)

// Client is the entry point to the Moderately AI platform API.
//
// Resources are exposed as service fields:
//
//	client, err := moderately.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	dataset, err := client.Datasets.Retrieve(ctx, "dataset-id")
//
// Clients are safe for concurrent use. After Close(), all operations return
// ErrClientClosed; create a new client with New().
type Client struct {
	// Files manages file upload, download, and metadata.
	Files *FilesService

	// Datasets manages datasets, their data versions, and schemas.
	Datasets *DatasetsService

	// Pipelines manages pipelines and their configuration versions.
	Pipelines *PipelinesService

	// PipelineExecutions runs pipelines and tracks execution state.
	PipelineExecutions *PipelineExecutionsService

	// Users manages platform users.
	Users *UsersService

	options   *config.Options
	transport config.Transport
	cache     *uploadcache.Cache
	log       *slog.Logger
	closed    atomic.Bool
}

// New builds a client from functional options.
//
// Configuration is layered: explicit options override environment variables
// (MODERATELY_API_KEY, MODERATELY_TEAM_ID, MODERATELY_BASE_URL), which
// override the optional config file, which overrides built-in defaults.
// A missing API key or team ID is a constructor error.
func New(opts ...Option) (*Client, error) {
	options := applyOptions(opts)

	if err := config.Load(options); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	if options.UserAgent == "" {
		options.UserAgent = "moderately-go/" + Version
	}

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	tr := options.Transport
	if tr == nil {
		tr = transport.New(options)
	}

	var cache *uploadcache.Cache

	if options.UploadCachePath != "" {
		var err error

		cache, err = uploadcache.Open(options.UploadCachePath, options.UploadCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open upload cache: %w", err)
		}
	}

	c := &Client{
		options:   options,
		transport: tr,
		cache:     cache,
		log:       log.With("component", "moderately"),
	}

	c.Files = &FilesService{client: c}
	c.Datasets = &DatasetsService{client: c}
	c.Pipelines = &PipelinesService{client: c}
	c.PipelineExecutions = &PipelineExecutionsService{client: c}
	c.Users = &UsersService{client: c}

	c.log.Info("client created", "base_url", options.BaseURL, "team_id", options.TeamID)

	return c, nil
}

// TeamID returns the team the client operates on.
func (c *Client) TeamID() string {
	return c.options.TeamID
}

// BaseURL returns the API base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.options.BaseURL
}

// Close releases the upload cache and idle HTTP connections.
// Safe to call multiple times.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	var errs []error

	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close upload cache: %w", err))
		}
	}

	if err := c.transport.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close transport: %w", err))
	}

	c.log.Info("client closed")

	return errors.Join(errs...)
}

// ensureOpen guards API operations on a closed client.
func (c *Client) ensureOpen() error {
	if c.closed.Load() {
		return apierror.ErrClientClosed
	}

	return nil
}

// Transport wrappers shared by the services. Each checks the closed flag so
// every operation fails fast with ErrClientClosed after Close().

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	return c.transport.Get(ctx, path, query, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	return c.transport.Post(ctx, path, body, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out any) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	return c.transport.Patch(ctx, path, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	return c.transport.Delete(ctx, path)
}

func (c *Client) upload(ctx context.Context, url, contentType string, data []byte) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	return c.transport.Upload(ctx, url, contentType, data)
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	return c.transport.Download(ctx, url)
}

func (c *Client) downloadToFile(ctx context.Context, url, path, wantSHA256 string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	return c.transport.DownloadToFile(ctx, url, path, wantSHA256)
}
