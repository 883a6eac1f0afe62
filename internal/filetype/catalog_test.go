package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll(t *testing.T) {
	all := All()
	require.NotEmpty(t, all, "catalog must not be empty")

	for _, ft := range all {
		assert.NotEmpty(t, ft.MIME, "type MIME must not be empty")
		assert.NotEmpty(t, ft.Extensions, "type Extensions must not be empty")
		assert.NotEmpty(t, ft.Kind, "type Kind must not be empty")
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	a := All()
	b := All()
	a[0].MIME = "mutated"

	assert.NotEqual(t, "mutated", b[0].MIME, "All() must return independent copies")
}

func TestNoDuplicateMIMEs(t *testing.T) {
	seen := make(map[string]bool, len(registry))

	for _, ft := range registry {
		assert.False(t, seen[ft.MIME], "duplicate MIME: %s", ft.MIME)
		seen[ft.MIME] = true
	}
}

func TestByMIME(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantNil  bool
	}{
		{
			name:     "exact match",
			input:    "text/csv",
			wantKind: KindCSV,
		},
		{
			name:     "parameters stripped",
			input:    "text/csv; charset=utf-8",
			wantKind: KindCSV,
		},
		{
			name:     "case insensitive",
			input:    "Application/PDF",
			wantKind: KindDocument,
		},
		{
			name:    "unknown type",
			input:   "application/x-unheard-of",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ByMIME(tt.input)

			if tt.wantNil {
				require.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
		})
	}
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "csv", input: "sales.csv", want: "text/csv"},
		{name: "xlsx", input: "book.xlsx", want: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{name: "uppercase extension", input: "REPORT.PDF", want: "application/pdf"},
		{name: "no extension", input: "README", want: DefaultMIME},
		{name: "path is ignored", input: "/tmp/data/export.jsonl", want: "application/x-ndjson"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIME(tt.input))
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		fileName string
		want     Kind
	}{
		{name: "csv by mime", mimeType: "text/csv", fileName: "whatever.bin", want: KindCSV},
		{name: "image by prefix", mimeType: "image/x-exotic", fileName: "pic", want: KindImage},
		{name: "text by prefix", mimeType: "text/x-go", fileName: "main.go", want: KindText},
		{name: "extension fallback", mimeType: "", fileName: "data.xlsx", want: KindSpreadsheet},
		{name: "nothing matches", mimeType: "application/octet-stream", fileName: "blob", want: KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.mimeType, tt.fileName))
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".csv", Extension("a/b/data.CSV"))
	assert.Equal(t, "", Extension("Makefile"))
}
