// Package transport implements the HTTP core shared by every service:
// authentication, request IDs, retries, rate limiting, tracing, and
// presigned transfers.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/moderately-ai/moderately-go/internal/apierror"
	"github.com/moderately-ai/moderately-go/internal/config"
)

const headerRequestID = "X-Request-Id"

// tracerName identifies this module's spans.
const tracerName = "github.com/moderately-ai/moderately-go"

// Compile-time verification that Client implements config.Transport.
var _ config.Transport = (*Client)(nil)

// Client is the resty-based transport behind every service call.
// It owns two HTTP clients: one bound to the API base URL carrying the
// bearer token, and a bare one for presigned storage URLs, which must
// never receive the API credentials.
type Client struct {
	rest    *resty.Client
	raw     *resty.Client
	baseURL string
	limiter *rate.Limiter
	tracer  trace.Tracer
	log     *slog.Logger

	onRequest  config.RequestHook
	onResponse config.ResponseHook
}

// New builds the default transport from resolved options.
func New(cfg *config.Options) *Client {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	newRestyClient := func() *resty.Client {
		if cfg.HTTPClient != nil {
			return resty.NewWithClient(cfg.HTTPClient)
		}

		return resty.New()
	}

	rest := newRestyClient()
	rest.SetBaseURL(cfg.BaseURL)
	rest.SetTimeout(cfg.Timeout)
	rest.SetAuthToken(cfg.APIKey)
	rest.SetHeader("Accept", "application/json")
	rest.SetHeader("User-Agent", cfg.UserAgent)
	rest.SetHeaders(cfg.Headers)
	rest.SetRetryCount(cfg.Retries())
	rest.SetRetryWaitTime(cfg.RetryWaitTime)
	rest.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}

		return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
	})

	raw := newRestyClient()
	raw.SetTimeout(cfg.Timeout)
	raw.SetHeader("User-Agent", cfg.UserAgent)

	c := &Client{
		rest:       rest,
		raw:        raw,
		baseURL:    cfg.BaseURL,
		tracer:     otel.Tracer(tracerName),
		log:        log.With("component", "transport"),
		onRequest:  cfg.OnRequest,
		onResponse: cfg.OnResponse,
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RateBurst)
		rest.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return c.limiter.Wait(req.Context())
		})
	}

	return c
}

// Get implements config.Transport.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post implements config.Transport.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch implements config.Transport.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete implements config.Transport.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Close releases idle connections on both HTTP clients.
func (c *Client) Close() error {
	c.rest.GetClient().CloseIdleConnections()
	c.raw.GetClient().CloseIdleConnections()

	return nil
}

// do runs one API call: span, hooks, request ID, error mapping.
// The request ID is stable across retries of the same call.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	requestID := ulid.Make().String()
	fullURL := c.baseURL + path

	ctx, span := c.tracer.Start(ctx, "moderately.api",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer span.End()

	if c.onRequest != nil {
		c.onRequest(&config.RequestEvent{Method: method, URL: fullURL, RequestID: requestID})
	}

	req := c.rest.R().
		SetContext(ctx).
		SetHeader(headerRequestID, requestID)

	if query != nil {
		req.SetQueryParamsFromValues(query)
	}

	if body != nil {
		req.SetBody(body)
	}

	if out != nil {
		req.SetResult(out)
	}

	c.log.Debug("api request", "method", method, "path", path, "request_id", requestID)

	start := time.Now()

	resp, err := req.Execute(method, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	duration := time.Since(start)

	if c.onResponse != nil {
		c.onResponse(&config.ResponseEvent{
			Method:     method,
			URL:        fullURL,
			RequestID:  requestID,
			StatusCode: resp.StatusCode(),
			Duration:   duration,
		})
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))

	if resp.IsError() {
		apiErr := apierror.FromResponse(method, fullURL, requestID, resp.StatusCode(), retryAfter(resp.Header()), resp.Body())
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Error())
		c.log.Debug("api error", "method", method, "path", path, "status", resp.StatusCode(), "request_id", requestID)

		return apiErr
	}

	span.SetStatus(codes.Ok, "")
	c.log.Debug("api response", "method", method, "path", path, "status", resp.StatusCode(), "duration", duration)

	return nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	raw := h.Get("Retry-After")
	if raw == "" {
		return 0
	}

	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}
