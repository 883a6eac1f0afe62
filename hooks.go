package moderately

import "github.com/moderately-ai/moderately-go/internal/config"

// Re-export hook types from internal package.
type (
	// RequestEvent describes an API request about to be sent.
	RequestEvent = config.RequestEvent

	// ResponseEvent describes a completed API request.
	ResponseEvent = config.ResponseEvent

	// RequestHook observes requests before they are sent.
	RequestHook = config.RequestHook

	// ResponseHook observes responses after they arrive.
	ResponseHook = config.ResponseHook
)
