package moderately

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/moderately-ai/moderately-go/internal/config"
)

// Options holds the resolved client configuration.
// Most callers should configure the client with functional options instead
// of building this struct directly.
type Options = config.Options

// Option configures Options using the functional options pattern.
// This is the primary option type for configuring clients.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Credentials =====

// WithAPIKey sets the API key used for Bearer authentication.
// If not set, the key is read from the MODERATELY_API_KEY environment
// variable or the config file.
func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.APIKey = key
	}
}

// WithTeamID sets the team whose resources the client operates on.
// If not set, the team ID is read from the MODERATELY_TEAM_ID environment
// variable or the config file.
func WithTeamID(teamID string) Option {
	return func(o *Options) {
		o.TeamID = teamID
	}
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithBaseURL overrides the API base URL.
// Useful for staging environments and test servers.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout. Defaults to 60s.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(o *Options) {
		o.UserAgent = userAgent
	}
}

// WithHeader adds a header to every API request.
func WithHeader(key, value string) Option {
	return func(o *Options) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}

		o.Headers[key] = value
	}
}

// WithHTTPClient supplies the underlying *http.Client.
// Use this to customize TLS, proxies, or connection pooling.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// ===== Retry and Rate Limiting =====

// WithRetryCount sets how many times failed requests are retried.
// Retries apply to connection errors, 429s, and 5xx responses.
// Zero disables retries. Defaults to 2.
func WithRetryCount(count int) Option {
	return func(o *Options) {
		o.RetryCount = &count
	}
}

// WithRetryWaitTime sets the base wait between retries. Defaults to 500ms.
func WithRetryWaitTime(wait time.Duration) Option {
	return func(o *Options) {
		o.RetryWaitTime = wait
	}
}

// WithRequestRate enables a client-side rate limiter of rps requests per
// second with the given burst. Zero rps disables limiting.
func WithRequestRate(rps float64, burst int) Option {
	return func(o *Options) {
		o.RequestsPerSecond = rps
		o.RateBurst = burst
	}
}

// ===== Configuration Sources =====

// WithConfigFile loads defaults from a YAML config file before applying
// environment variables and explicit options.
func WithConfigFile(path string) Option {
	return func(o *Options) {
		o.ConfigFile = path
	}
}

// WithEnvFile loads a dotenv file into the process environment before
// reading configuration from it.
func WithEnvFile(path string) Option {
	return func(o *Options) {
		o.EnvFile = path
	}
}

// ===== Upload Cache =====

// WithUploadCache enables the on-disk upload-dedupe cache at the given path.
// Files whose content hash is already known are not uploaded again.
func WithUploadCache(path string) Option {
	return func(o *Options) {
		o.UploadCachePath = path
	}
}

// WithUploadCacheTTL sets how long cached upload entries remain valid.
// Defaults to 7 days.
func WithUploadCacheTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.UploadCacheTTL = ttl
	}
}

// ===== Hooks =====

// WithRequestHook registers a hook invoked before each API request.
func WithRequestHook(hook RequestHook) Option {
	return func(o *Options) {
		o.OnRequest = hook
	}
}

// WithResponseHook registers a hook invoked after each API response.
func WithResponseHook(hook ResponseHook) Option {
	return func(o *Options) {
		o.OnResponse = hook
	}
}

// ===== Transport =====

// WithTransport injects a custom Transport, bypassing the built-in HTTP
// stack entirely. Intended for tests and instrumentation wrappers.
func WithTransport(t Transport) Option {
	return func(o *Options) {
		o.Transport = t
	}
}
