package moderately

import "github.com/moderately-ai/moderately-go/internal/apierror"

// Re-export error types from internal package

// APIError is the generic error for non-2xx API responses.
type APIError = apierror.APIError

// AuthenticationError indicates the API rejected the credentials (401/403).
type AuthenticationError = apierror.AuthenticationError

// NotFoundError indicates the requested resource does not exist (404).
type NotFoundError = apierror.NotFoundError

// RateLimitError indicates the API throttled the request (429).
type RateLimitError = apierror.RateLimitError

// ValidationError indicates request parameters failed client-side validation.
type ValidationError = apierror.ValidationError

// TransferError indicates a presigned upload or download failed.
type TransferError = apierror.TransferError

// ExecutionError indicates a pipeline execution finished in a failure state.
type ExecutionError = apierror.ExecutionError

// ProcessingError indicates dataset processing finished in an error state.
type ProcessingError = apierror.ProcessingError

// SDKError is the base interface for all SDK errors.
type SDKError = apierror.SDKError

// Re-export sentinel errors from internal package.
var (
	// ErrMissingAPIKey indicates no API key was configured.
	ErrMissingAPIKey = apierror.ErrMissingAPIKey

	// ErrMissingTeamID indicates no team ID was configured.
	ErrMissingTeamID = apierror.ErrMissingTeamID

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = apierror.ErrClientClosed

	// ErrNotAttached indicates a model method was called on a detached value.
	ErrNotAttached = apierror.ErrNotAttached

	// ErrWaitTimeout indicates a polling wait exceeded its timeout.
	ErrWaitTimeout = apierror.ErrWaitTimeout

	// ErrNoCurrentDataVersion indicates the dataset has no current data version.
	ErrNoCurrentDataVersion = apierror.ErrNoCurrentDataVersion

	// ErrNoCurrentSchema indicates the dataset has no current schema version.
	ErrNoCurrentSchema = apierror.ErrNoCurrentSchema

	// ErrChecksumMismatch indicates downloaded content failed hash verification.
	ErrChecksumMismatch = apierror.ErrChecksumMismatch

	// ErrContentLengthMismatch indicates a download was shorter or longer than advertised.
	ErrContentLengthMismatch = apierror.ErrContentLengthMismatch
)
