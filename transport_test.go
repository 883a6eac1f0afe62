package moderately

import (
	"context"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moderately-ai/moderately-go/internal/config"
)

// stubTransport is a programmable Transport for tests that never touches the
// network. Unset callbacks succeed and leave out untouched.
type stubTransport struct {
	onGet      func(ctx context.Context, path string, query url.Values, out any) error
	onPost     func(ctx context.Context, path string, body, out any) error
	onDownload func(ctx context.Context, url string) ([]byte, error)

	closed atomic.Bool
}

func (s *stubTransport) Get(ctx context.Context, path string, query url.Values, out any) error {
	if s.onGet != nil {
		return s.onGet(ctx, path, query, out)
	}

	return nil
}

func (s *stubTransport) Post(ctx context.Context, path string, body, out any) error {
	if s.onPost != nil {
		return s.onPost(ctx, path, body, out)
	}

	return nil
}

func (s *stubTransport) Patch(_ context.Context, _ string, _, _ any) error {
	return nil
}

func (s *stubTransport) Delete(_ context.Context, _ string) error {
	return nil
}

func (s *stubTransport) Upload(_ context.Context, _, _ string, _ []byte) error {
	return nil
}

func (s *stubTransport) Download(ctx context.Context, url string) ([]byte, error) {
	if s.onDownload != nil {
		return s.onDownload(ctx, url)
	}

	return nil, nil
}

func (s *stubTransport) DownloadToFile(_ context.Context, _, _, _ string) error {
	return nil
}

func (s *stubTransport) Close() error {
	s.closed.Store(true)

	return nil
}

// Compile-time check that stubTransport implements config.Transport.
var _ config.Transport = (*stubTransport)(nil)

// Transport is re-exported so callers can implement it without importing
// internal packages.
var _ Transport = (*stubTransport)(nil)

func TestWithTransport_BypassesHTTP(t *testing.T) {
	clearConfigEnv(t)

	var gotPath string

	transport := &stubTransport{
		onGet: func(_ context.Context, path string, query url.Values, out any) error {
			gotPath = path

			if page, ok := out.(*Page[*Dataset]); ok {
				page.Items = []*Dataset{{DatasetID: "ds_1", Name: "stubbed"}}
				page.Pagination = Pagination{Page: 1, PageSize: 50, TotalItems: 1, TotalPages: 1}
			}

			assert.Equal(t, "team_test", query.Get("teamIds"))

			return nil
		},
	}

	client, err := New(
		WithAPIKey("mk_test"),
		WithTeamID("team_test"),
		WithTransport(transport),
	)
	require.NoError(t, err)

	defer client.Close()

	page, err := client.Datasets.List(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "/datasets", gotPath)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "stubbed", page.Items[0].Name)
}
