package config

import (
	"context"
	"net/url"
)

// Transport defines the interface for platform API communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative backends.
//
// The default implementation is the resty-based HTTP transport.
// Custom transports can be injected via Options.Transport.
type Transport interface {
	// Get issues a GET against an API path and decodes the JSON response
	// into out. A nil out discards the body. query may be nil.
	Get(ctx context.Context, path string, query url.Values, out any) error

	// Post issues a POST with a JSON body and decodes the response into out.
	// A nil body sends no payload; a nil out discards the body.
	Post(ctx context.Context, path string, body, out any) error

	// Patch issues a PATCH with a JSON body and decodes the response into out.
	Patch(ctx context.Context, path string, body, out any) error

	// Delete issues a DELETE against an API path. The response body is discarded.
	Delete(ctx context.Context, path string) error

	// Upload PUTs raw bytes to a presigned URL outside the API base.
	Upload(ctx context.Context, url, contentType string, data []byte) error

	// Download GETs a presigned URL into memory.
	Download(ctx context.Context, url string) ([]byte, error)

	// DownloadToFile streams a presigned URL to path. When wantSHA256 is
	// non-empty the content hash is verified before the file is moved in
	// place.
	DownloadToFile(ctx context.Context, url, path, wantSHA256 string) error

	// Close releases idle connections. Safe to call multiple times.
	Close() error
}
