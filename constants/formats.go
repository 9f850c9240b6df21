package constants

import (
	"path/filepath"
	"strings"
)

// DocumentFormat identifies the byte-level front end used to normalize a file.
type DocumentFormat string

const (
	TEXT DocumentFormat = "TEXT"
	CSV  DocumentFormat = "CSV"
	XLSX DocumentFormat = "XLSX"
	JSON DocumentFormat = "JSON"
	PDF  DocumentFormat = "PDF"
)

// AllowedExtensions holds the default allowed file extensions for ingestion.
var AllowedExtensions = map[string]struct{}{
	"txt":  {},
	"md":   {},
	"csv":  {},
	"tsv":  {},
	"xlsx": {},
	"xls":  {},
	"json": {},
	"pdf":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a file extension to its document format.
// Returns "" for unsupported extensions.
func MapExtToFormat(ext string) DocumentFormat {
	switch NormalizeExt(ext) {
	case "txt", "md", "text":
		return TEXT
	case "csv", "tsv":
		return CSV
	case "xlsx", "xls":
		return XLSX
	case "json":
		return JSON
	case "pdf":
		return PDF
	default:
		return ""
	}
}

// FormatForPath maps a file path to its document format via the extension.
func FormatForPath(path string) DocumentFormat {
	return MapExtToFormat(filepath.Ext(path))
}
