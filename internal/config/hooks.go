package config

import "time"

// RequestEvent describes an API request about to be sent.
type RequestEvent struct {
	Method    string
	URL       string
	RequestID string
}

// ResponseEvent describes a completed API request.
type ResponseEvent struct {
	Method     string
	URL        string
	RequestID  string
	StatusCode int
	Duration   time.Duration
}

// RequestHook observes requests before they are sent.
// Hooks must not modify the request and must be safe for concurrent use.
type RequestHook func(*RequestEvent)

// ResponseHook observes responses after they are received, including
// error responses. Hooks must be safe for concurrent use.
type ResponseHook func(*ResponseEvent)
