package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SDKError is the base interface for all SDK errors.
type SDKError interface {
	error
	IsModeratelySDKError() bool
}

// Compile-time verification that all error types implement SDKError.
var (
	_ SDKError = (*APIError)(nil)
	_ SDKError = (*AuthenticationError)(nil)
	_ SDKError = (*NotFoundError)(nil)
	_ SDKError = (*RateLimitError)(nil)
	_ SDKError = (*ValidationError)(nil)
	_ SDKError = (*TransferError)(nil)
	_ SDKError = (*ExecutionError)(nil)
	_ SDKError = (*ProcessingError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrMissingAPIKey indicates no API key was provided via options,
	// config file, or the MODERATELY_API_KEY environment variable.
	ErrMissingAPIKey = errors.New("missing API key: set MODERATELY_API_KEY or use WithAPIKey()")

	// ErrMissingTeamID indicates no team ID was provided via options,
	// config file, or the MODERATELY_TEAM_ID environment variable.
	ErrMissingTeamID = errors.New("missing team ID: set MODERATELY_TEAM_ID or use WithTeamID()")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: create a new one with New()")

	// ErrNotAttached indicates a model method was called on a value that is
	// not attached to a client, e.g. one constructed manually.
	ErrNotAttached = errors.New("model not attached to a client")

	// ErrWaitTimeout indicates a polling wait gave up before the watched
	// resource reached a terminal state.
	ErrWaitTimeout = errors.New("wait timed out")

	// ErrNoCurrentDataVersion indicates the dataset has no current data version.
	ErrNoCurrentDataVersion = errors.New("dataset has no current data version")

	// ErrNoCurrentSchema indicates the dataset has no current schema version.
	ErrNoCurrentSchema = errors.New("dataset has no current schema version")

	// ErrChecksumMismatch indicates downloaded content did not match the
	// expected SHA-256 hash.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrContentLengthMismatch indicates a transfer moved fewer or more bytes
	// than the declared content length.
	ErrContentLengthMismatch = errors.New("content length mismatch")
)

// APIError is returned when the platform responds with a non-2xx status.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Code is the platform error code, if the response carried one.
	Code string
	// Message is the platform error message.
	Message string
	// Details holds structured error details, if any.
	Details map[string]any
	// RequestID is the X-Request-Id the request was sent with.
	RequestID string
	// Method and URL identify the failed request.
	Method string
	URL    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	if e.RequestID != "" {
		return fmt.Sprintf("api error (status %d): %s (request %s)", e.StatusCode, msg, e.RequestID)
	}

	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, msg)
}

// IsModeratelySDKError implements SDKError.
func (e *APIError) IsModeratelySDKError() bool { return true }

// AuthenticationError indicates the API key was rejected (401 or 403).
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.APIError.Error()
}

// Unwrap exposes the underlying APIError to errors.As.
func (e *AuthenticationError) Unwrap() error {
	return &e.APIError
}

// NotFoundError indicates the requested resource does not exist (404).
type NotFoundError struct {
	APIError
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.APIError.Error()
}

// Unwrap exposes the underlying APIError to errors.As.
func (e *NotFoundError) Unwrap() error {
	return &e.APIError
}

// RateLimitError indicates the platform throttled the request (429).
type RateLimitError struct {
	APIError

	// RetryAfter is the server-suggested wait before retrying.
	// Zero when the response carried no Retry-After header.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: %s (retry after %s)", e.APIError.Error(), e.RetryAfter)
	}

	return "rate limited: " + e.APIError.Error()
}

// Unwrap exposes the underlying APIError to errors.As.
func (e *RateLimitError) Unwrap() error {
	return &e.APIError
}

// ValidationError indicates request parameters failed client-side validation
// before any request was sent.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid parameters: %s: %v", e.Message, e.Err)
	}

	return "invalid parameters: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsModeratelySDKError implements SDKError.
func (e *ValidationError) IsModeratelySDKError() bool { return true }

// TransferError indicates a presigned upload or download failed.
type TransferError struct {
	// Op is "upload" or "download".
	Op  string
	URL string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsModeratelySDKError implements SDKError.
func (e *TransferError) IsModeratelySDKError() bool { return true }

// ExecutionError indicates a pipeline execution finished in a failed or
// cancelled state while being waited on.
type ExecutionError struct {
	ExecutionID string
	Status      string
	Message     string
}

func (e *ExecutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pipeline execution %s %s: %s", e.ExecutionID, e.Status, e.Message)
	}

	return fmt.Sprintf("pipeline execution %s %s", e.ExecutionID, e.Status)
}

// IsModeratelySDKError implements SDKError.
func (e *ExecutionError) IsModeratelySDKError() bool { return true }

// ProcessingError indicates dataset processing finished in an error state
// while being waited on.
type ProcessingError struct {
	DatasetID string
	Status    string
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("dataset %s processing failed (status %s)", e.DatasetID, e.Status)
}

// IsModeratelySDKError implements SDKError.
func (e *ProcessingError) IsModeratelySDKError() bool { return true }

// errorBody is the wire shape of platform error responses.
// Both {"error": {"code", "message", "details"}} and the flat
// {"message": ...} form appear in practice.
type errorBody struct {
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Message string `json:"message"`
}

// FromResponse maps a non-2xx platform response onto the matching error type.
// retryAfter is only consulted for 429 responses; pass zero when the response
// carried no Retry-After header.
func FromResponse(method, url, requestID string, statusCode int, retryAfter time.Duration, body []byte) error {
	base := APIError{
		StatusCode: statusCode,
		RequestID:  requestID,
		Method:     method,
		URL:        url,
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Error != nil:
			base.Code = parsed.Error.Code
			base.Message = parsed.Error.Message
			base.Details = parsed.Error.Details
		case parsed.Message != "":
			base.Message = parsed.Message
		}
	}

	if base.Message == "" && len(body) > 0 {
		base.Message = truncate(string(body), 512)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthenticationError{APIError: base}
	case http.StatusNotFound:
		return &NotFoundError{APIError: base}
	case http.StatusTooManyRequests:
		return &RateLimitError{APIError: base, RetryAfter: retryAfter}
	default:
		return &base
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
