// Package filetype provides a catalog of file types known to the platform.
// It is the source of truth for MIME detection and file classification
// within the SDK.
package filetype

import (
	"mime"
	"path/filepath"
	"slices"
	"strings"
)

// Kind classifies a file type into a broad family.
type Kind string

const (
	// KindCSV indicates comma-separated tabular data.
	KindCSV Kind = "csv"
	// KindSpreadsheet indicates a spreadsheet workbook such as xlsx.
	KindSpreadsheet Kind = "spreadsheet"
	// KindDocument indicates a document format such as PDF or Word.
	KindDocument Kind = "document"
	// KindImage indicates an image format.
	KindImage Kind = "image"
	// KindText indicates plain or lightly marked-up text.
	KindText Kind = "text"
	// KindData indicates structured data formats such as JSON or Parquet.
	KindData Kind = "data"
	// KindOther is the fallback for anything unrecognized.
	KindOther Kind = "other"
)

// DefaultMIME is used when no better MIME type can be determined.
const DefaultMIME = "application/octet-stream"

// Type holds metadata for a single known file type.
type Type struct {
	// MIME is the canonical MIME type (e.g. "text/csv").
	MIME string
	// Extensions lists the file extensions mapped to this type, dot included.
	Extensions []string
	// Kind is the broad family this type belongs to.
	Kind Kind
}

// HasExtension reports whether the type claims the given extension.
func (t Type) HasExtension(ext string) bool {
	return slices.Contains(t.Extensions, strings.ToLower(ext))
}

// All returns a copy of every known file type in the catalog.
func All() []Type {
	out := make([]Type, len(registry))
	copy(out, registry)

	return out
}

// ByMIME looks up a file type by MIME type. Media type parameters such as
// "; charset=utf-8" are ignored. Returns nil if the type is not in the catalog.
func ByMIME(mimeType string) *Type {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.ToLower(strings.TrimSpace(base))

	for i := range registry {
		if registry[i].MIME == base {
			t := registry[i]

			return &t
		}
	}

	return nil
}

// ByName looks up a file type by the extension of the given file name.
// Returns nil if the extension is not in the catalog.
func ByName(name string) *Type {
	ext := Extension(name)
	if ext == "" {
		return nil
	}

	for i := range registry {
		if registry[i].HasExtension(ext) {
			t := registry[i]

			return &t
		}
	}

	return nil
}

// DetectMIME returns the MIME type for a file name. It checks in order:
//  1. The catalog
//  2. The host's mime database
//
// Falls back to DefaultMIME when nothing matches.
func DetectMIME(name string) string {
	ext := Extension(name)
	if ext == "" {
		return DefaultMIME
	}

	for i := range registry {
		if registry[i].HasExtension(ext) {
			return registry[i].MIME
		}
	}

	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}

	return DefaultMIME
}

// KindOf classifies a file by MIME type, falling back to the name's
// extension when the MIME type is not in the catalog. Unlisted image/* and
// text/* types classify by prefix.
func KindOf(mimeType, name string) Kind {
	if t := ByMIME(mimeType); t != nil {
		return t.Kind
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "text/"):
		return KindText
	}

	if t := ByName(name); t != nil {
		return t.Kind
	}

	return KindOther
}

// Extension returns the lowercased extension of name, dot included.
// Returns "" when the name has no extension.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
