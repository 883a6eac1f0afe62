package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/moderately-ai/moderately-go/internal/apierror"
)

// Upload PUTs raw bytes to a presigned storage URL.
// The bare HTTP client is used: presigned URLs are self-authorizing and the
// API bearer token must not be sent to the storage backend.
func (c *Client) Upload(ctx context.Context, rawURL, contentType string, data []byte) error {
	ctx, span := c.tracer.Start(ctx, "moderately.upload", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	c.log.Debug("presigned upload", "bytes", len(data), "content_type", contentType)

	resp, err := c.raw.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put(rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return &apierror.TransferError{Op: "upload", URL: rawURL, Err: err}
	}

	if resp.IsError() {
		statusErr := fmt.Errorf("unexpected status %s", resp.Status())
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())

		return &apierror.TransferError{Op: "upload", URL: rawURL, Err: statusErr}
	}

	span.SetStatus(codes.Ok, "")

	return nil
}

// Download GETs a presigned storage URL into memory.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "moderately.download", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	resp, err := c.raw.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, &apierror.TransferError{Op: "download", URL: rawURL, Err: err}
	}

	if resp.IsError() {
		statusErr := fmt.Errorf("unexpected status %s", resp.Status())
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())

		return nil, &apierror.TransferError{Op: "download", URL: rawURL, Err: statusErr}
	}

	span.SetStatus(codes.Ok, "")
	c.log.Debug("presigned download", "bytes", len(resp.Body()))

	return resp.Body(), nil
}

// DownloadToFile streams a presigned URL to destPath through a temp file in
// the same directory, so a failed transfer never leaves a partial file
// behind. When wantSHA256 is non-empty the content hash is verified before
// the temp file is moved in place.
func (c *Client) DownloadToFile(ctx context.Context, rawURL, destPath, wantSHA256 string) error {
	ctx, span := c.tracer.Start(ctx, "moderately.download", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	wrap := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return &apierror.TransferError{Op: "download", URL: rawURL, Err: err}
	}

	resp, err := c.raw.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return wrap(err)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return wrap(fmt.Errorf("unexpected status %s", resp.Status()))
	}

	dir := filepath.Dir(destPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return wrap(fmt.Errorf("create destination directory: %w", err))
		}
	}

	file, err := os.CreateTemp(dir, ".moderately-dl-*")
	if err != nil {
		return wrap(fmt.Errorf("create temp file: %w", err))
	}

	var done bool

	defer func() {
		if cerr := file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
			c.log.Error("close temp file", "error", cerr)
		}

		if !done {
			if rerr := os.Remove(file.Name()); rerr != nil {
				c.log.Error("remove temp file", "error", rerr)
			}
		}
	}()

	var (
		verifier *checksumVerifier
		writer   io.Writer = file
	)

	if wantSHA256 != "" {
		verifier = newChecksumVerifier(wantSHA256)
		writer = io.MultiWriter(file, verifier)
	}

	n, err := io.Copy(writer, body)
	if err != nil {
		return wrap(fmt.Errorf("copy body: %w", err))
	}

	if cl := resp.RawResponse.ContentLength; cl >= 0 && n != cl {
		return wrap(fmt.Errorf("%w: expected %d bytes, got %d", apierror.ErrContentLengthMismatch, cl, n))
	}

	if err := verifier.Verify(); err != nil {
		return wrap(err)
	}

	if err := file.Sync(); err != nil {
		return wrap(fmt.Errorf("sync temp file: %w", err))
	}

	if err := file.Close(); err != nil {
		return wrap(fmt.Errorf("close temp file: %w", err))
	}

	if err := os.Rename(file.Name(), destPath); err != nil {
		return wrap(fmt.Errorf("rename temp file: %w", err))
	}

	done = true

	span.SetStatus(codes.Ok, "")
	c.log.Debug("download complete", "path", destPath, "bytes", n)

	return nil
}
