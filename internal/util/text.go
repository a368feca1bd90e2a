package util

import (
	"path/filepath"
	"regexp"
	"strings"
)

// SanitizePostgresText drops invalid UTF-8 and NUL bytes, which Postgres
// text columns reject.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeName reduces an uploaded file name to a flat artifact name: no
// directories, no extension, only [A-Za-z0-9._-]. Empty results become
// fallback.
func SafeName(name, fallback string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeName.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._-")
	if base == "" {
		return fallback
	}
	return base
}
