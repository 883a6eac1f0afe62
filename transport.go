package moderately

import "github.com/moderately-ai/moderately-go/internal/config"

// Transport abstracts the HTTP layer used by the client.
//
// The default transport is a resty-based implementation with retry, rate
// limiting, and tracing. Provide a custom Transport via WithTransport to
// stub the API in tests.
type Transport = config.Transport
