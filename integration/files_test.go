//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	moderately "github.com/moderately-ai/moderately-go"
)

// TestFilesRoundTrip uploads a file, reads it back, and deletes it.
func TestFilesRoundTrip(t *testing.T) {
	client := newLiveClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	content := []byte("id,name\n1,alice\n2,bob\n")

	file, err := client.Files.Upload(ctx, &moderately.FileUploadParams{
		Data: content,
		Name: uniqueName("roundtrip") + ".csv",
	})
	require.NoError(t, err)

	defer func() {
		require.NoError(t, client.Files.Delete(ctx, file.FileID))
	}()

	assert.NotEmpty(t, file.FileID)
	assert.True(t, file.IsCSV())

	fetched, err := client.Files.Retrieve(ctx, file.FileID)
	require.NoError(t, err)
	assert.Equal(t, file.FileID, fetched.FileID)

	got, err := client.Files.Download(ctx, file.FileID)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// TestFilesList pages through the team's files.
func TestFilesList(t *testing.T) {
	client := newLiveClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	page, err := client.Files.List(ctx, &moderately.FileListParams{
		ListParams: moderately.ListParams{PageSize: 10},
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(page.Items), 10)

	seen := 0
	for file, err := range client.Files.All(ctx, nil) {
		require.NoError(t, err)
		assert.NotEmpty(t, file.FileID)

		seen++
		if seen >= 25 {
			break
		}
	}
}
