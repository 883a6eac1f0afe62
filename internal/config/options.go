// Package config provides configuration types for the Moderately SDK.
package config

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/moderately-ai/moderately-go/internal/apierror"
)

// Environment variables consulted by Load.
const (
	EnvAPIKey     = "MODERATELY_API_KEY"
	EnvTeamID     = "MODERATELY_TEAM_ID"
	EnvBaseURL    = "MODERATELY_BASE_URL"
	EnvConfigFile = "MODERATELY_CONFIG_FILE"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultBaseURL       = "https://api.moderately.ai/v1"
	DefaultTimeout       = 60 * time.Second
	DefaultRetryCount    = 2
	DefaultRetryWaitTime = 500 * time.Millisecond
)

// Options configures the Moderately client.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// APIKey authenticates every request.
	// Falls back to the MODERATELY_API_KEY environment variable.
	APIKey string

	// TeamID scopes list operations and resource creation.
	// Falls back to the MODERATELY_TEAM_ID environment variable.
	TeamID string

	// BaseURL is the platform API root.
	// Falls back to MODERATELY_BASE_URL, then to DefaultBaseURL.
	BaseURL string

	// Timeout bounds each HTTP request including body transfer.
	Timeout time.Duration

	// RetryCount is how many times retryable failures (429, 5xx, network
	// errors) are retried. If nil, DefaultRetryCount is used.
	RetryCount *int

	// RetryWaitTime is the base wait between retries.
	RetryWaitTime time.Duration

	// RequestsPerSecond enables a client-side rate limiter when positive.
	RequestsPerSecond float64

	// RateBurst is the limiter burst size. Zero means 1.
	RateBurst int

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Headers are extra headers added to every API request.
	Headers map[string]string

	// HTTPClient overrides the underlying HTTP client.
	HTTPClient *http.Client

	// ConfigFile is an optional YAML config file path.
	// Falls back to the MODERATELY_CONFIG_FILE environment variable.
	ConfigFile string

	// EnvFile is an optional dotenv file loaded into the process
	// environment before environment variables are read.
	EnvFile string

	// UploadCachePath enables the local upload dedupe cache at this path.
	// Empty disables the cache.
	UploadCachePath string

	// UploadCacheTTL is how long dedupe entries live. Zero means the
	// cache default.
	UploadCacheTTL time.Duration

	// OnRequest is invoked before each API request is sent.
	OnRequest RequestHook

	// OnResponse is invoked after each API response is received.
	OnResponse ResponseHook

	// Transport allows injecting a custom transport implementation.
	// If nil, the default HTTP transport is created automatically.
	Transport Transport
}

// ApplyDefaults fills unset fields with their defaults.
func (o *Options) ApplyDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}

	o.BaseURL = strings.TrimRight(o.BaseURL, "/")

	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	if o.RetryWaitTime <= 0 {
		o.RetryWaitTime = DefaultRetryWaitTime
	}

	if o.RateBurst <= 0 {
		o.RateBurst = 1
	}
}

// Retries resolves the effective retry count.
func (o *Options) Retries() int {
	if o.RetryCount == nil {
		return DefaultRetryCount
	}

	if *o.RetryCount < 0 {
		return 0
	}

	return *o.RetryCount
}

// Validate checks that the options are complete enough to build a client.
func (o *Options) Validate() error {
	if o.APIKey == "" {
		return apierror.ErrMissingAPIKey
	}

	if o.TeamID == "" {
		return apierror.ErrMissingTeamID
	}

	return nil
}
