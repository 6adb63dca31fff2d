package constants

import "strings"

// Upload formats understood by the text extractor.
const (
	TEXT = "TEXT"
	PDF  = "PDF"
	XLSX = "XLSX"
)

// AllowedExtensions holds the file extensions accepted for uploads and inbox ingestion.
var AllowedExtensions = map[string]struct{}{
	"txt":  {},
	"md":   {},
	"csv":  {},
	"pdf":  {},
	"xlsx": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps an extension to its extraction format, or "" when unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "txt", "md", "csv":
		return TEXT
	case "pdf":
		return PDF
	case "xlsx":
		return XLSX
	default:
		return ""
	}
}
