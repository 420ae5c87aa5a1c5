package middleware

import (
	"path"
	"strings"
	"unicode/utf8"
)

// maxFileNameLen bounds the stored display name, in runes.
const maxFileNameLen = 255

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r == utf8.RuneError {
			continue
		}
		if r >= 32 && r != 127 || r == '\t' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// SanitizeFileName reduces a client-supplied upload name to a display-safe
// base name. Returns "upload.csv" when nothing usable is left.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(SanitizeString(name))
	if name == "." || name == "/" || name == ".." {
		name = ""
	}
	if utf8.RuneCountInString(name) > maxFileNameLen {
		name = string([]rune(name)[:maxFileNameLen])
	}
	if strings.TrimSpace(name) == "" {
		return "upload.csv"
	}
	return name
}
