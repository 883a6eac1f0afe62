//go:build integration

package integration

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	moderately "github.com/moderately-ai/moderately-go"
)

// newLiveClient builds a client against the real platform, skipping the test
// when credentials are not configured.
func newLiveClient(t *testing.T, opts ...moderately.Option) *moderately.Client {
	t.Helper()

	if os.Getenv("MODERATELY_API_KEY") == "" || os.Getenv("MODERATELY_TEAM_ID") == "" {
		t.Skip("MODERATELY_API_KEY and MODERATELY_TEAM_ID not set")
	}

	client, err := moderately.New(opts...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	return client
}

// uniqueName builds a collision-free resource name so parallel test runs
// don't trip over each other.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-it-%d", prefix, time.Now().UnixNano())
}
