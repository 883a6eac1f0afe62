package transport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moderately-ai/moderately-go/internal/apierror"
)

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// TestClient_Upload checks presigned uploads PUT raw bytes without credentials.
func TestClient_Upload(t *testing.T) {
	var (
		gotMethod      string
		gotContentType string
		gotAuth        string
		gotBody        []byte
	)

	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	c := newTestClient(t, http.NotFoundHandler())

	data := []byte("name,age\nada,36\n")
	require.NoError(t, c.Upload(context.Background(), storage.URL+"/bucket/key?sig=abc", "text/csv", data))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "text/csv", gotContentType)
	assert.Empty(t, gotAuth)
	assert.Equal(t, data, gotBody)
}

// TestClient_UploadRejected checks storage errors surface as transfer errors.
func TestClient_UploadRejected(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer storage.Close()

	c := newTestClient(t, http.NotFoundHandler())

	err := c.Upload(context.Background(), storage.URL, "text/csv", []byte("x"))

	var tErr *apierror.TransferError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "upload", tErr.Op)
}

// TestClient_Download checks presigned downloads return the body bytes.
func TestClient_Download(t *testing.T) {
	want := []byte("col\n1\n2\n")

	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write(want)
	}))
	defer storage.Close()

	c := newTestClient(t, http.NotFoundHandler())

	got, err := c.Download(context.Background(), storage.URL)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestClient_DownloadRejected checks storage errors surface as transfer errors.
func TestClient_DownloadRejected(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer storage.Close()

	c := newTestClient(t, http.NotFoundHandler())

	_, err := c.Download(context.Background(), storage.URL)

	var tErr *apierror.TransferError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "download", tErr.Op)
}

// TestClient_DownloadToFile checks streaming downloads land atomically on disk.
func TestClient_DownloadToFile(t *testing.T) {
	want := []byte("id,value\n1,a\n2,b\n")

	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(want)
	}))
	defer storage.Close()

	c := newTestClient(t, http.NotFoundHandler())

	dest := filepath.Join(t.TempDir(), "nested", "data.csv")
	require.NoError(t, c.DownloadToFile(context.Background(), storage.URL, dest, sha256Hex(want)))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestClient_DownloadToFileChecksumMismatch checks corrupt payloads never land.
func TestClient_DownloadToFileChecksumMismatch(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("corrupted"))
	}))
	defer storage.Close()

	c := newTestClient(t, http.NotFoundHandler())

	dir := t.TempDir()
	dest := filepath.Join(dir, "data.csv")

	err := c.DownloadToFile(context.Background(), storage.URL, dest, sha256Hex([]byte("expected")))
	require.ErrorIs(t, err, apierror.ErrChecksumMismatch)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))

	leftovers, globErr := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, globErr)
	assert.Empty(t, leftovers)
}

// TestClient_DownloadToFileNoChecksum checks the checksum is optional.
func TestClient_DownloadToFileNoChecksum(t *testing.T) {
	want := []byte("payload")

	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(want)
	}))
	defer storage.Close()

	c := newTestClient(t, http.NotFoundHandler())

	dest := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, c.DownloadToFile(context.Background(), storage.URL, dest, ""))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestChecksumVerifier(t *testing.T) {
	data := []byte("hello")

	v := newChecksumVerifier(sha256Hex(data))
	_, err := v.Write(data)
	require.NoError(t, err)
	require.NoError(t, v.Verify())

	v = newChecksumVerifier(sha256Hex([]byte("other")))
	_, err = v.Write(data)
	require.NoError(t, err)
	require.ErrorIs(t, v.Verify(), apierror.ErrChecksumMismatch)

	var nilVerifier *checksumVerifier
	require.NoError(t, nilVerifier.Verify())
}
